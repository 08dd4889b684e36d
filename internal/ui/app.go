package ui

import (
	"context"

	"github.com/gdamore/tcell/v2"

	"github.com/calhale/spacegame/internal/game"
)

// App owns the screen, the four panels and the command input line. Panel
// sinks may be updated from the controller's narration goroutine; drawing
// happens only on the event loop, woken by PostInterrupt.
type App struct {
	screen *Screen
	title  string

	nav   *NavPanel
	scan  *ScanPanel
	comms *CommsPanel
	log   *LogPanel

	input   []rune
	running bool
}

// NewApp builds the display around an initialized screen.
func NewApp(screen *Screen, title string) *App {
	return &App{
		screen:  screen,
		title:   title,
		nav:     NewNavPanel(screen),
		scan:    NewScanPanel(screen),
		comms:   NewCommsPanel(screen),
		log:     NewLogPanel(screen),
		running: true,
	}
}

// Sinks returns the panel sinks to register with the controller.
func (a *App) Sinks() []game.PanelSink {
	return []game.PanelSink{a.nav, a.scan, a.comms, a.log}
}

// Run executes the input loop until the player quits or ctx is done. Each
// entered line is submitted to the controller; rejections surface on the
// comms/log panels, so the submit error needs no handling here.
func (a *App) Run(ctx context.Context, controller *game.Controller) error {
	a.redraw()
	for a.running {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		ev := a.screen.PollEvent()
		switch ev := ev.(type) {
		case *tcell.EventKey:
			a.handleKey(ctx, ev, controller)
		case *tcell.EventResize:
			a.screen.Sync()
			a.redraw()
		case *tcell.EventInterrupt:
			a.redraw()
		}
	}
	return nil
}

// handleKey processes keyboard input for the command line.
func (a *App) handleKey(ctx context.Context, ev *tcell.EventKey, controller *game.Controller) {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		a.running = false

	case tcell.KeyEnter:
		line := string(a.input)
		a.input = a.input[:0]
		if line != "" {
			// Rejections are already reported through the log panel.
			_ = controller.Submit(ctx, line)
		}
		a.redraw()

	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if len(a.input) > 0 {
			a.input = a.input[:len(a.input)-1]
		}
		a.redraw()

	case tcell.KeyRune:
		a.input = append(a.input, ev.Rune())
		a.redraw()
	}
}

// redraw lays the four panels out in a 2x2 grid with the input bar below.
func (a *App) redraw() {
	a.screen.Clear()
	width, height := a.screen.Size()

	inputBar := 1
	gridHeight := height - inputBar
	if gridHeight < 4 || width < 8 {
		a.screen.Show()
		return
	}

	halfW := width / 2
	halfH := gridHeight / 2
	a.nav.draw(rect{x: 0, y: 0, w: halfW, h: halfH})
	a.scan.draw(rect{x: halfW, y: 0, w: width - halfW, h: halfH})
	a.comms.draw(rect{x: 0, y: halfH, w: halfW, h: gridHeight - halfH})
	a.log.draw(rect{x: halfW, y: halfH, w: width - halfW, h: gridHeight - halfH})

	prompt := a.title + "> " + string(a.input)
	drawClipped(a.screen, 0, height-1, width, prompt, textStyle())

	a.screen.Show()
}
