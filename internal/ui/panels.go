package ui

import (
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/calhale/spacegame/internal/game"
)

// maxLogLines bounds the comms/log panel scrollback.
const maxLogLines = 200

// rect is a panel's drawing area in screen cells.
type rect struct {
	x, y, w, h int
}

// NavPanel shows ship position, fuel and hull.
type NavPanel struct {
	mu     sync.Mutex
	screen *Screen
	last   game.NavUpdate
	seen   bool
}

// NewNavPanel creates the navigation panel sink.
func NewNavPanel(screen *Screen) *NavPanel {
	return &NavPanel{screen: screen}
}

// OnUpdate records nav state and requests a redraw. It never blocks.
func (p *NavPanel) OnUpdate(ev game.PanelEvent) {
	nav, ok := ev.(game.NavUpdate)
	if !ok {
		return
	}
	p.mu.Lock()
	p.last = nav
	p.seen = true
	p.mu.Unlock()
	p.screen.PostInterrupt()
}

func (p *NavPanel) draw(r rect) {
	p.mu.Lock()
	last, seen := p.last, p.seen
	p.mu.Unlock()

	drawFrame(p.screen, r, "Navigation")
	if !seen {
		drawLine(p.screen, r, 1, "awaiting telemetry", dimStyle())
		return
	}
	drawLine(p.screen, r, 1, fmt.Sprintf("Position (%d,%d)", last.Position.X, last.Position.Y), textStyle())
	drawLine(p.screen, r, 2, fmt.Sprintf("Fuel %.0f", last.Fuel), textStyle())
	drawLine(p.screen, r, 3, fmt.Sprintf("Hull %.0f", last.Hull), textStyle())
	drawLine(p.screen, r, 4, fmt.Sprintf("Turn %d", last.Turn), dimStyle())
}

// ScanPanel shows the latest scan result and discovery count.
type ScanPanel struct {
	mu     sync.Mutex
	screen *Screen
	last   game.ScanUpdate
	seen   bool
}

// NewScanPanel creates the scanner panel sink.
func NewScanPanel(screen *Screen) *ScanPanel {
	return &ScanPanel{screen: screen}
}

// OnUpdate records the scan result and requests a redraw.
func (p *ScanPanel) OnUpdate(ev game.PanelEvent) {
	scan, ok := ev.(game.ScanUpdate)
	if !ok {
		return
	}
	p.mu.Lock()
	p.last = scan
	p.seen = true
	p.mu.Unlock()
	p.screen.PostInterrupt()
}

func (p *ScanPanel) draw(r rect) {
	p.mu.Lock()
	last, seen := p.last, p.seen
	p.mu.Unlock()

	drawFrame(p.screen, r, "Scanner")
	if !seen {
		drawLine(p.screen, r, 1, "no scans yet", dimStyle())
		return
	}
	res := last.Result
	drawLine(p.screen, r, 1, fmt.Sprintf("%s (%s)", res.Name, res.Kind), textStyle())
	drawLine(p.screen, r, 2, res.Description, textStyle())
	if res.FirstDiscovery {
		drawLine(p.screen, r, 3, fmt.Sprintf("New discovery! +%d credits", res.CreditsAwarded), highlightStyle())
	}
	drawLine(p.screen, r, 4, fmt.Sprintf("Bodies charted: %d", last.DiscoveredCount), dimStyle())
}

// CommsPanel shows hail traffic.
type CommsPanel struct {
	mu     sync.Mutex
	screen *Screen
	lines  []string
}

// NewCommsPanel creates the comms panel sink.
func NewCommsPanel(screen *Screen) *CommsPanel {
	return &CommsPanel{screen: screen}
}

// OnUpdate records comms traffic and user-visible errors.
func (p *CommsPanel) OnUpdate(ev game.PanelEvent) {
	var line string
	switch e := ev.(type) {
	case game.CommsUpdate:
		line = fmt.Sprintf("[%s] %s", e.Name, e.Response)
	case game.LogUpdate:
		if e.Entry.Kind != game.LogError {
			return
		}
		line = "! " + e.Entry.Text
	default:
		return
	}
	p.mu.Lock()
	p.lines = append(p.lines, line)
	if len(p.lines) > maxLogLines {
		p.lines = p.lines[len(p.lines)-maxLogLines:]
	}
	p.mu.Unlock()
	p.screen.PostInterrupt()
}

func (p *CommsPanel) draw(r rect) {
	p.mu.Lock()
	lines := append([]string(nil), p.lines...)
	p.mu.Unlock()

	drawFrame(p.screen, r, "Comms")
	drawTail(p.screen, r, lines, textStyle())
}

// LogPanel shows the game log, ordered by turn.
type LogPanel struct {
	mu      sync.Mutex
	screen  *Screen
	entries []game.LogEntry
}

// NewLogPanel creates the log panel sink.
func NewLogPanel(screen *Screen) *LogPanel {
	return &LogPanel{screen: screen}
}

// OnUpdate inserts the entry into the panel buffer keeping turn order, so a
// late narration lands next to its own turn rather than at the tail.
func (p *LogPanel) OnUpdate(ev game.PanelEvent) {
	log, ok := ev.(game.LogUpdate)
	if !ok {
		return
	}
	p.mu.Lock()
	pos := len(p.entries)
	for pos > 0 && p.entries[pos-1].Turn > log.Entry.Turn {
		pos--
	}
	p.entries = append(p.entries, game.LogEntry{})
	copy(p.entries[pos+1:], p.entries[pos:])
	p.entries[pos] = log.Entry
	if len(p.entries) > maxLogLines {
		p.entries = p.entries[len(p.entries)-maxLogLines:]
	}
	p.mu.Unlock()
	p.screen.PostInterrupt()
}

func (p *LogPanel) draw(r rect) {
	p.mu.Lock()
	entries := append([]game.LogEntry(nil), p.entries...)
	p.mu.Unlock()

	drawFrame(p.screen, r, "Log")
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, formatLogLine(e))
	}
	drawTail(p.screen, r, lines, textStyle())
}

// formatLogLine renders one log entry for display.
func formatLogLine(e game.LogEntry) string {
	switch e.Kind {
	case game.LogError:
		return fmt.Sprintf("T%d ! %s", e.Turn, e.Text)
	case game.LogNarrative:
		return fmt.Sprintf("T%d ~ %s", e.Turn, e.Text)
	default:
		return fmt.Sprintf("T%d   %s", e.Turn, e.Text)
	}
}

// --- drawing helpers ---

func textStyle() tcell.Style {
	return tcell.StyleDefault.Foreground(tcell.ColorWhite)
}

func dimStyle() tcell.Style {
	return tcell.StyleDefault.Foreground(tcell.ColorGray)
}

func highlightStyle() tcell.Style {
	return tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
}

func borderStyle() tcell.Style {
	return tcell.StyleDefault.Foreground(tcell.ColorDarkGray)
}

// drawFrame draws the panel border and title.
func drawFrame(s *Screen, r rect, title string) {
	if r.w < 2 || r.h < 2 {
		return
	}
	for x := r.x; x < r.x+r.w; x++ {
		s.SetContent(x, r.y, tcell.RuneHLine, borderStyle())
		s.SetContent(x, r.y+r.h-1, tcell.RuneHLine, borderStyle())
	}
	for y := r.y; y < r.y+r.h; y++ {
		s.SetContent(r.x, y, tcell.RuneVLine, borderStyle())
		s.SetContent(r.x+r.w-1, y, tcell.RuneVLine, borderStyle())
	}
	s.SetContent(r.x, r.y, tcell.RuneULCorner, borderStyle())
	s.SetContent(r.x+r.w-1, r.y, tcell.RuneURCorner, borderStyle())
	s.SetContent(r.x, r.y+r.h-1, tcell.RuneLLCorner, borderStyle())
	s.SetContent(r.x+r.w-1, r.y+r.h-1, tcell.RuneLRCorner, borderStyle())
	drawText(s, r.x+2, r.y, " "+title+" ", highlightStyle())
}

// drawLine writes one line of text inside the frame at the given row.
func drawLine(s *Screen, r rect, row int, text string, style tcell.Style) {
	if row >= r.h-1 {
		return
	}
	drawClipped(s, r.x+2, r.y+row, r.w-4, text, style)
}

// drawTail writes as many trailing lines as fit inside the frame.
func drawTail(s *Screen, r rect, lines []string, style tcell.Style) {
	visible := r.h - 2
	if visible <= 0 {
		return
	}
	if len(lines) > visible {
		lines = lines[len(lines)-visible:]
	}
	for i, line := range lines {
		drawClipped(s, r.x+2, r.y+1+i, r.w-4, line, style)
	}
}

func drawClipped(s *Screen, x, y, maxWidth int, text string, style tcell.Style) {
	col := 0
	for _, ch := range text {
		if col >= maxWidth {
			break
		}
		s.SetContent(x+col, y, ch, style)
		col++
	}
}

func drawText(s *Screen, x, y int, text string, style tcell.Style) {
	for i, ch := range text {
		s.SetContent(x+i, y, ch, style)
	}
}
