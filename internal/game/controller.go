package game

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/calhale/spacegame/internal/telemetry"
)

// fallbackNarration is logged when the narrative client fails or times out.
const fallbackNarration = "description unavailable"

// NarrationEvent is the copied event data handed to the narrative client. It
// carries no references into the live state, so narration may run while later
// commands mutate the game.
type NarrationEvent struct {
	Turn    int
	Verb    string
	Subject string
	Detail  string
}

// Narrator produces optional descriptive text for a game event. Calls may be
// slow or fail; the controller bounds them with a timeout and never lets them
// block turn processing.
type Narrator interface {
	Narrate(ctx context.Context, ev NarrationEvent) (string, error)
}

// ProjectSeed describes one starter project for an empty store.
type ProjectSeed struct {
	Project Project
	Tasks   []TaskSeed
}

// TaskSeed describes one ordered task row within a seeded project.
type TaskSeed struct {
	Key         string
	Name        string
	Description string
}

// Store durably persists game snapshots and the project catalog.
type Store interface {
	// LoadState returns the latest snapshot, or ok=false on a fresh store.
	LoadState(ctx context.Context) (snap Snapshot, ok bool, err error)
	// SaveState persists a full snapshot, including the project catalog.
	SaveState(ctx context.Context, snap Snapshot) error
	// SeedProjectsIfEmpty seeds the catalog once; a no-op when projects exist.
	SeedProjectsIfEmpty(ctx context.Context, seeds []ProjectSeed) error
	// ListProjects returns the catalog in seed order.
	ListProjects(ctx context.Context) ([]Project, error)
	Close() error
}

// Options tunes the controller's turn loop.
type Options struct {
	// NarrationTimeout bounds each narrative request. Zero disables narration.
	NarrationTimeout time.Duration
	// CheckpointInterval persists state every N accepted commands. Zero
	// disables automatic checkpoints; the save command still works.
	CheckpointInterval int
}

// Controller owns the turn loop. It applies validated commands to the game
// state, fans resulting deltas out to panels, requests best-effort narration
// and persists snapshots at checkpoints.
//
// Submit serializes the synchronous portion of each command under a mutex;
// only narration runs concurrently, on copied event data.
type Controller struct {
	mu       sync.Mutex
	state    *State
	interp   *Interpreter
	narrator Narrator
	store    Store
	sinks    []PanelSink
	opts     Options

	accepted   int // accepted commands since the last checkpoint
	narrations sync.WaitGroup
}

// NewController wires a controller. narrator and store may be nil, which
// disables narration and checkpointing respectively.
func NewController(state *State, interp *Interpreter, opts Options) *Controller {
	return &Controller{
		state:  state,
		interp: interp,
		opts:   opts,
	}
}

// SetNarrator installs the narrative client.
func (c *Controller) SetNarrator(n Narrator) {
	c.narrator = n
}

// SetStore installs the persistence store.
func (c *Controller) SetStore(s Store) {
	c.store = s
}

// AddSink registers a panel to receive update events.
func (c *Controller) AddSink(sink PanelSink) {
	c.sinks = append(c.sinks, sink)
}

// State exposes the game state for the process owner. Panels must not use
// this; they only see events.
func (c *Controller) State() *State {
	return c.state
}

// Submit processes one raw player command. The synchronous portion - parse,
// authorize, mutate, advance turn, panel fan-out - completes before Submit
// returns; narration for the command may still be in flight. Rejections are
// returned and also reported to the log panel; they never advance the turn.
func (c *Controller) Submit(ctx context.Context, raw string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tracer := telemetry.Tracer("controller")
	ctx, span := tracer.Start(ctx, "controller.submit")
	defer span.End()

	cmd, err := c.interp.Parse(raw)
	if err != nil {
		span.SetAttributes(attribute.String("outcome", "parse_error"))
		c.reportError(err)
		return err
	}
	span.SetAttributes(attribute.String("command.verb", cmd.Kind.String()))

	if err := c.interp.Authorize(cmd, c.state); err != nil {
		span.SetAttributes(attribute.String("outcome", "not_authorized"))
		c.reportError(err)
		return err
	}

	switch cmd.Kind {
	case CmdSave:
		return c.checkpointLocked(ctx)
	case CmdHelp:
		c.appendAndEmit(LogEntry{
			Turn: c.state.Turn,
			Kind: LogSystem,
			Text: "commands: " + strings.Join(c.interp.Verbs(), ", "),
		})
		return nil
	}

	ev, err := c.apply(cmd)
	if err != nil {
		span.SetAttributes(attribute.String("outcome", "rejected"))
		c.reportError(err)
		return err
	}

	c.state.AdvanceTurn()
	turn := c.state.Turn
	span.SetAttributes(attribute.Int("game.turn", turn))
	ev.Turn = turn

	c.emitPanelEvents(ev)

	if c.narrator != nil && c.opts.NarrationTimeout > 0 {
		c.narrations.Add(1)
		go c.narrate(context.WithoutCancel(ctx), ev.narration(turn))
	}

	c.accepted++
	if c.opts.CheckpointInterval > 0 && c.accepted >= c.opts.CheckpointInterval {
		if err := c.checkpointLocked(ctx); err != nil {
			// Already reported to the log; the turn itself stands.
			span.SetAttributes(attribute.String("checkpoint", "failed"))
		}
	}

	span.SetAttributes(attribute.String("outcome", "applied"))
	return nil
}

// turnOutcome gathers the results of one accepted command for panel fan-out
// and narration.
type turnOutcome struct {
	Turn    int
	Verb    string
	Move    *StateDelta
	Scan    *ScanResult
	Hail    *HailResult
	Project *ProjectDelta
	Summary string
}

func (o turnOutcome) narration(turn int) NarrationEvent {
	ev := NarrationEvent{Turn: turn, Verb: o.Verb, Detail: o.Summary}
	switch {
	case o.Scan != nil:
		ev.Subject = o.Scan.Name
		ev.Detail = o.Scan.Description
	case o.Hail != nil:
		ev.Subject = o.Hail.Name
		ev.Detail = o.Hail.Response
	case o.Project != nil:
		ev.Subject = o.Project.Name
	}
	return ev
}

// apply dispatches the command to its state mutator. Exhaustive over the
// turn-advancing command kinds.
func (c *Controller) apply(cmd Command) (turnOutcome, error) {
	switch cmd.Kind {
	case CmdMove:
		delta, err := c.state.ApplyMove(cmd.Direction)
		if err != nil {
			return turnOutcome{}, err
		}
		return turnOutcome{
			Verb: "move",
			Move: &delta,
			Summary: fmt.Sprintf("Moved %s to (%d,%d). Fuel %.0f.",
				cmd.Direction, delta.Position.X, delta.Position.Y, delta.Fuel),
		}, nil

	case CmdScan:
		res, err := c.state.ApplyScan(cmd.Target)
		if err != nil {
			return turnOutcome{}, err
		}
		summary := fmt.Sprintf("Scan of %s complete.", res.Name)
		if res.FirstDiscovery {
			summary = fmt.Sprintf("Scan of %s complete. New discovery, +%d credits.", res.Name, res.CreditsAwarded)
		}
		return turnOutcome{Verb: "scan", Scan: &res, Summary: summary}, nil

	case CmdHail:
		res, err := c.state.ApplyHail(cmd.Channel)
		if err != nil {
			return turnOutcome{}, err
		}
		return turnOutcome{
			Verb:    "hail",
			Hail:    &res,
			Summary: fmt.Sprintf("Hailing %s: %s", res.Name, res.Response),
		}, nil

	case CmdAdvanceProject:
		delta, err := c.state.ApplyProjectAdvance(cmd.Project, cmd.Amount)
		if err != nil {
			return turnOutcome{}, err
		}
		summary := fmt.Sprintf("Project %s at %.0f%%.", delta.Name, delta.Progress)
		if delta.Completed {
			summary = fmt.Sprintf("Project %s complete.", delta.Name)
		}
		return turnOutcome{Verb: "work", Project: &delta, Summary: summary}, nil

	default:
		return turnOutcome{}, fmt.Errorf("command %v has no mutator", cmd.Kind)
	}
}

// emitPanelEvents fans the outcome out to the registered sinks and appends
// the System summary entry for the turn.
func (c *Controller) emitPanelEvents(o turnOutcome) {
	c.emit(NavUpdate{
		Position: c.state.ShipPosition,
		Fuel:     c.state.Fuel,
		Hull:     c.state.Hull,
		Turn:     o.Turn,
	})
	if o.Scan != nil {
		c.emit(ScanUpdate{Result: *o.Scan, DiscoveredCount: c.state.DiscoveredCount(), Turn: o.Turn})
	}
	if o.Hail != nil {
		c.emit(CommsUpdate{Channel: o.Hail.Channel, Name: o.Hail.Name, Response: o.Hail.Response, Turn: o.Turn})
	}
	if o.Project != nil {
		c.emit(ProjectUpdate{Delta: *o.Project, Turn: o.Turn})
	}
	c.appendAndEmit(LogEntry{Turn: o.Turn, Kind: LogSystem, Text: o.Summary})
}

// narrate requests descriptive text for one turn. It owns the full lifecycle
// of the request: a bounded wait, exactly one log entry (narrative on
// success, a fallback System line on failure or timeout), and discarding any
// result that arrives after the deadline.
func (c *Controller) narrate(ctx context.Context, ev NarrationEvent) {
	defer c.narrations.Done()

	tracer := telemetry.Tracer("narration")
	ctx, span := tracer.Start(ctx, "narration.request")
	defer span.End()
	span.SetAttributes(
		attribute.Int("game.turn", ev.Turn),
		attribute.String("request.id", uuid.NewString()),
	)

	ctx, cancel := context.WithTimeout(ctx, c.opts.NarrationTimeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		text, err := c.narrator.Narrate(ctx, ev)
		ch <- result{text: text, err: err}
	}()

	entry := LogEntry{Turn: ev.Turn, Kind: LogSystem, Text: fallbackNarration}
	select {
	case res := <-ch:
		if res.err == nil && strings.TrimSpace(res.text) != "" {
			entry = LogEntry{Turn: ev.Turn, Kind: LogNarrative, Text: strings.TrimSpace(res.text)}
			span.SetAttributes(attribute.String("outcome", "ok"))
		} else {
			span.SetAttributes(attribute.String("outcome", "failed"))
		}
	case <-ctx.Done():
		// The client never answered in time; a late result is discarded.
		span.SetAttributes(attribute.String("outcome", "timeout"))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.appendAndEmit(entry)
}

// Drain blocks until every in-flight narration has resolved or timed out.
func (c *Controller) Drain() {
	c.narrations.Wait()
}

// Checkpoint persists a full snapshot of the game and project catalog. On
// failure the in-memory state is untouched, a System error is logged and the
// error returned so the caller may retry.
func (c *Controller) Checkpoint(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.checkpointLocked(ctx)
}

func (c *Controller) checkpointLocked(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	tracer := telemetry.Tracer("controller")
	ctx, span := tracer.Start(ctx, "controller.checkpoint")
	defer span.End()

	snap := c.state.Snapshot()
	if err := c.store.SaveState(ctx, snap); err != nil {
		span.SetAttributes(attribute.String("outcome", "failed"))
		c.appendAndEmit(LogEntry{
			Turn: c.state.Turn,
			Kind: LogError,
			Text: fmt.Sprintf("save failed: %v", err),
		})
		return fmt.Errorf("checkpoint: %w", err)
	}
	c.accepted = 0
	span.SetAttributes(attribute.Int("game.turn", snap.Turn))
	c.appendAndEmit(LogEntry{Turn: c.state.Turn, Kind: LogSystem, Text: "Game saved."})
	return nil
}

// reportError logs a rejected command. The turn does not advance and the
// state is unchanged.
func (c *Controller) reportError(err error) {
	c.appendAndEmit(LogEntry{Turn: c.state.Turn, Kind: LogError, Text: err.Error()})
}

// appendAndEmit inserts the entry into the game log in turn order and
// delivers it to the sinks. Callers hold c.mu.
func (c *Controller) appendAndEmit(e LogEntry) {
	c.state.Log = insertLogEntry(c.state.Log, e)
	c.emit(LogUpdate{Entry: e})
}

func (c *Controller) emit(ev PanelEvent) {
	for _, sink := range c.sinks {
		sink.OnUpdate(ev)
	}
}
