package game

// PanelEvent is a typed update emitted by the controller to display panels.
// Each event carries only the fields its panel needs; panels never read the
// game state directly.
type PanelEvent interface {
	panelEvent()
}

// NavUpdate refreshes the navigation panel.
type NavUpdate struct {
	Position Coord
	Fuel     float64
	Hull     float64
	Turn     int
}

// ScanUpdate refreshes the sensor panel after a scan.
type ScanUpdate struct {
	Result          ScanResult
	DiscoveredCount int
	Turn            int
}

// CommsUpdate refreshes the comms panel after a hail.
type CommsUpdate struct {
	Channel  string
	Name     string
	Response string
	Turn     int
}

// ProjectUpdate refreshes project progress display.
type ProjectUpdate struct {
	Delta ProjectDelta
	Turn  int
}

// LogUpdate delivers one new log entry.
type LogUpdate struct {
	Entry LogEntry
}

func (NavUpdate) panelEvent()     {}
func (ScanUpdate) panelEvent()    {}
func (CommsUpdate) panelEvent()   {}
func (ProjectUpdate) panelEvent() {}
func (LogUpdate) panelEvent()     {}

// PanelSink receives panel events. Implementations must be fast; the
// controller calls OnUpdate synchronously from the turn loop.
type PanelSink interface {
	OnUpdate(ev PanelEvent)
}
