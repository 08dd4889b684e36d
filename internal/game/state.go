// Package game holds the authoritative game state, command handling and the
// controller that drives the turn loop.
package game

import (
	"fmt"
	"sort"

	"github.com/calhale/spacegame/internal/config"
)

// Coord is a position on the map grid.
type Coord struct {
	X, Y int
}

// Direction is one of the four compass moves.
type Direction int

const (
	North Direction = iota
	South
	East
	West
)

// String returns the lowercase direction name.
func (d Direction) String() string {
	switch d {
	case North:
		return "north"
	case South:
		return "south"
	case East:
		return "east"
	case West:
		return "west"
	default:
		return "unknown"
	}
}

// Delta returns the grid offset for one step in this direction.
func (d Direction) Delta() (dx, dy int) {
	switch d {
	case North:
		return 0, -1
	case South:
		return 0, 1
	case East:
		return 1, 0
	case West:
		return -1, 0
	default:
		return 0, 0
	}
}

// BodyID identifies a celestial body in the catalog.
type BodyID string

// Body is a known celestial body.
type Body struct {
	ID          BodyID
	Name        string
	Kind        string
	Position    Coord
	Description string
}

// State is the canonical game model. It is owned by a single goroutine (the
// controller's turn loop); mutators do no locking of their own. Every mutator
// leaves the state unchanged when it returns an error.
type State struct {
	ShipPosition Coord
	Fuel         float64
	Hull         float64
	Credits      int
	Discovered   map[BodyID]bool
	Log          []LogEntry
	Turn         int

	projects      map[ProjectID]*Project
	projectOrder  []ProjectID
	bodies        map[BodyID]Body
	channels      map[string]config.Channel
	bounds        config.MapBounds
	moveFuelCost  float64
	scanCreditAwd int
}

// NewState builds a fresh game from configuration and the project catalog.
func NewState(cfg config.Config, projects []Project) *State {
	s := &State{
		ShipPosition:  Coord{X: cfg.Start.X, Y: cfg.Start.Y},
		Fuel:          cfg.Start.Fuel,
		Hull:          cfg.Start.Hull,
		Credits:       cfg.Start.Credits,
		Discovered:    make(map[BodyID]bool),
		Turn:          1,
		projects:      make(map[ProjectID]*Project, len(projects)),
		bodies:        make(map[BodyID]Body, len(cfg.Bodies)),
		channels:      make(map[string]config.Channel, len(cfg.Channels)),
		bounds:        cfg.Map,
		moveFuelCost:  cfg.MoveFuelCost,
		scanCreditAwd: cfg.ScanCreditAward,
	}
	for _, b := range cfg.Bodies {
		s.bodies[BodyID(b.ID)] = Body{
			ID:          BodyID(b.ID),
			Name:        b.Name,
			Kind:        b.Kind,
			Position:    Coord{X: b.X, Y: b.Y},
			Description: b.Description,
		}
	}
	for _, ch := range cfg.Channels {
		s.channels[ch.ID] = ch
	}
	for _, p := range projects {
		s.addProject(p)
	}
	return s
}

// Restore rebuilds a state from a saved snapshot, reusing the static catalog
// data from configuration.
func Restore(cfg config.Config, snap Snapshot) *State {
	s := NewState(cfg, snap.Projects)
	s.ShipPosition = snap.ShipPosition
	s.Fuel = snap.Fuel
	s.Hull = snap.Hull
	s.Credits = snap.Credits
	s.Turn = snap.Turn
	for _, id := range snap.Discovered {
		s.Discovered[id] = true
	}
	s.Log = append(s.Log[:0], snap.Log...)
	return s
}

func (s *State) addProject(p Project) {
	if _, ok := s.projects[p.ID]; ok {
		return
	}
	cp := p
	s.projects[p.ID] = &cp
	s.projectOrder = append(s.projectOrder, p.ID)
}

// StateDelta describes the observable result of a move.
type StateDelta struct {
	Position Coord
	Fuel     float64
	Hull     float64
}

// ApplyMove moves the ship one step. It fails with ErrInvalidMove when the
// destination leaves map bounds or the remaining fuel cannot cover the cost.
func (s *State) ApplyMove(dir Direction) (StateDelta, error) {
	dx, dy := dir.Delta()
	dest := Coord{X: s.ShipPosition.X + dx, Y: s.ShipPosition.Y + dy}
	if dest.X < 0 || dest.X >= s.bounds.Width || dest.Y < 0 || dest.Y >= s.bounds.Height {
		return StateDelta{}, fmt.Errorf("%w: %s leaves charted space", ErrInvalidMove, dir)
	}
	if s.Fuel < s.moveFuelCost {
		return StateDelta{}, fmt.Errorf("%w: need %.0f fuel, have %.0f", ErrInvalidMove, s.moveFuelCost, s.Fuel)
	}
	s.ShipPosition = dest
	s.Fuel -= s.moveFuelCost
	return StateDelta{Position: s.ShipPosition, Fuel: s.Fuel, Hull: s.Hull}, nil
}

// ScanResult is the descriptive outcome of a successful scan.
type ScanResult struct {
	Target         BodyID
	Name           string
	Kind           string
	Description    string
	FirstDiscovery bool
	CreditsAwarded int
}

// ApplyScan records the target as discovered and returns its scan data.
// Scanning an already-discovered body is a no-op on state and yields the same
// result content with FirstDiscovery false.
func (s *State) ApplyScan(target BodyID) (ScanResult, error) {
	body, ok := s.bodies[target]
	if !ok {
		return ScanResult{}, fmt.Errorf("%w: %q", ErrUnknownTarget, target)
	}
	res := ScanResult{
		Target:      body.ID,
		Name:        body.Name,
		Kind:        body.Kind,
		Description: body.Description,
	}
	if !s.Discovered[target] {
		s.Discovered[target] = true
		s.Credits += s.scanCreditAwd
		res.FirstDiscovery = true
		res.CreditsAwarded = s.scanCreditAwd
	}
	return res, nil
}

// HailResult is the outcome of hailing a comms channel.
type HailResult struct {
	Channel  string
	Name     string
	Response string
}

// ApplyHail answers a hail on a configured channel.
func (s *State) ApplyHail(channel string) (HailResult, error) {
	ch, ok := s.channels[channel]
	if !ok {
		return HailResult{}, fmt.Errorf("%w: %q", ErrUnknownChannel, channel)
	}
	return HailResult{Channel: ch.ID, Name: ch.Name, Response: ch.Response}, nil
}

// AdvanceTurn increments the turn counter. The controller calls it exactly
// once after a mutator succeeds.
func (s *State) AdvanceTurn() {
	s.Turn++
}

// Body looks up a catalog body.
func (s *State) Body(id BodyID) (Body, bool) {
	b, ok := s.bodies[id]
	return b, ok
}

// DiscoveredCount returns how many bodies have been scanned.
func (s *State) DiscoveredCount() int {
	return len(s.Discovered)
}

// Snapshot is a deep copy of the durable game state, safe to hand to the
// persistence store or a narration goroutine while the live state mutates.
type Snapshot struct {
	Turn         int
	ShipPosition Coord
	Fuel         float64
	Hull         float64
	Credits      int
	Discovered   []BodyID
	Log          []LogEntry
	Projects     []Project
}

// Snapshot copies the durable parts of the state.
func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		Turn:         s.Turn,
		ShipPosition: s.ShipPosition,
		Fuel:         s.Fuel,
		Hull:         s.Hull,
		Credits:      s.Credits,
		Discovered:   make([]BodyID, 0, len(s.Discovered)),
		Log:          append([]LogEntry(nil), s.Log...),
		Projects:     s.Projects(),
	}
	for id := range s.Discovered {
		snap.Discovered = append(snap.Discovered, id)
	}
	sort.Slice(snap.Discovered, func(i, j int) bool { return snap.Discovered[i] < snap.Discovered[j] })
	return snap
}
