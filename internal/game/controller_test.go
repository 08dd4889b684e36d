package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// recordingSink captures every panel event for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []PanelEvent
}

func (s *recordingSink) OnUpdate(ev PanelEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) all() []PanelEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PanelEvent(nil), s.events...)
}

func (s *recordingSink) countErrors() int {
	count := 0
	for _, ev := range s.all() {
		if log, ok := ev.(LogUpdate); ok && log.Entry.Kind == LogError {
			count++
		}
	}
	return count
}

// fakeStore counts saves and can be made to fail.
type fakeStore struct {
	mu       sync.Mutex
	saves    int
	lastSnap Snapshot
	failSave bool
	seeded   []ProjectSeed
}

func (f *fakeStore) LoadState(ctx context.Context) (Snapshot, bool, error) {
	return Snapshot{}, false, nil
}

func (f *fakeStore) SaveState(ctx context.Context, snap Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSave {
		return errors.New("disk unavailable")
	}
	f.saves++
	f.lastSnap = snap
	return nil
}

func (f *fakeStore) SeedProjectsIfEmpty(ctx context.Context, seeds []ProjectSeed) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seeded == nil {
		f.seeded = seeds
	}
	return nil
}

func (f *fakeStore) ListProjects(ctx context.Context) ([]Project, error) {
	return nil, nil
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves
}

// gatedNarrator blocks each request until its turn's gate is closed. Turns
// without a gate resolve immediately.
type gatedNarrator struct {
	mu    sync.Mutex
	gates map[int]chan struct{}
}

func (g *gatedNarrator) gate(turn int) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gates == nil {
		g.gates = make(map[int]chan struct{})
	}
	ch := make(chan struct{})
	g.gates[turn] = ch
	return ch
}

func (g *gatedNarrator) Narrate(ctx context.Context, ev NarrationEvent) (string, error) {
	g.mu.Lock()
	gate := g.gates[ev.Turn]
	g.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return fmt.Sprintf("narration for turn %d", ev.Turn), nil
}

// silentNarrator never responds; only the controller's timeout ends the wait.
type silentNarrator struct{}

func (silentNarrator) Narrate(ctx context.Context, ev NarrationEvent) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func newTestController(t *testing.T, opts Options) (*Controller, *recordingSink) {
	t.Helper()
	st := NewState(testConfig(), testProjects())
	c := NewController(st, NewInterpreter(), opts)
	sink := &recordingSink{}
	c.AddSink(sink)
	return c, sink
}

// waitUntil polls cond under the controller lock until it holds or the
// deadline passes.
func waitUntil(t *testing.T, c *Controller, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		c.mu.Lock()
		ok := cond()
		c.mu.Unlock()
		if ok {
			return
		}
		select {
		case <-deadline:
			t.Fatal("condition not reached in time")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSubmitAdvancesTurnPerAcceptedCommand(t *testing.T) {
	c, _ := newTestController(t, Options{})
	ctx := context.Background()

	commands := []string{"move north", "scan alpha", "hail traffic", "work first_scout"}
	before := c.State().Turn
	for _, raw := range commands {
		if err := c.Submit(ctx, raw); err != nil {
			t.Fatalf("Submit(%q) error = %v", raw, err)
		}
	}
	if got := c.State().Turn; got != before+len(commands) {
		t.Errorf("turn = %d, want %d", got, before+len(commands))
	}

	// Rejected commands never advance the turn.
	rejected := []string{"frobnicate", "move up", "scan gamma", "work getting_started_typo"}
	turn := c.State().Turn
	for _, raw := range rejected {
		if err := c.Submit(ctx, raw); err == nil {
			t.Errorf("Submit(%q) = nil, want error", raw)
		}
	}
	if got := c.State().Turn; got != turn {
		t.Errorf("turn after rejections = %d, want %d", got, turn)
	}
}

func TestSubmitInsufficientFuelScenario(t *testing.T) {
	cfg := testConfig()
	cfg.Start.Fuel = 1 // move costs 2
	st := NewState(cfg, nil)
	c := NewController(st, NewInterpreter(), Options{})
	sink := &recordingSink{}
	c.AddSink(sink)

	err := c.Submit(context.Background(), "move north")
	if !errors.Is(err, ErrInvalidMove) {
		t.Fatalf("Submit error = %v, want ErrInvalidMove", err)
	}
	if st.Fuel != 1 {
		t.Errorf("fuel = %v, want 1 (unchanged)", st.Fuel)
	}
	if st.Turn != 1 {
		t.Errorf("turn = %d, want 1 (unchanged)", st.Turn)
	}
	if got := sink.countErrors(); got != 1 {
		t.Errorf("error events = %d, want exactly 1", got)
	}
}

func TestSubmitEmitsPanelEventsSynchronously(t *testing.T) {
	c, sink := newTestController(t, Options{})

	if err := c.Submit(context.Background(), "scan alpha"); err != nil {
		t.Fatalf("Submit error = %v", err)
	}

	var sawNav, sawScan, sawLog bool
	for _, ev := range sink.all() {
		switch ev := ev.(type) {
		case NavUpdate:
			sawNav = true
		case ScanUpdate:
			sawScan = true
			if ev.Result.Target != "alpha" || !ev.Result.FirstDiscovery {
				t.Errorf("scan update = %+v, want alpha first discovery", ev.Result)
			}
		case LogUpdate:
			sawLog = true
		}
	}
	if !sawNav || !sawScan || !sawLog {
		t.Errorf("events nav=%v scan=%v log=%v, want all true", sawNav, sawScan, sawLog)
	}
}

func TestNarrationTimeoutFallsBackOnce(t *testing.T) {
	c, sink := newTestController(t, Options{NarrationTimeout: 30 * time.Millisecond})
	c.SetNarrator(silentNarrator{})

	if err := c.Submit(context.Background(), "scan alpha"); err != nil {
		t.Fatalf("Submit error = %v", err)
	}

	// The scan panel updated synchronously, before any timeout.
	sawScan := false
	for _, ev := range sink.all() {
		if _, ok := ev.(ScanUpdate); ok {
			sawScan = true
		}
	}
	if !sawScan {
		t.Error("scan panel should update before narration resolves")
	}

	c.Drain()

	fallbacks := 0
	for _, e := range c.State().Log {
		if e.Text == fallbackNarration {
			fallbacks++
			if e.Turn != 2 {
				t.Errorf("fallback turn = %d, want 2", e.Turn)
			}
			if e.Kind != LogSystem {
				t.Errorf("fallback kind = %v, want LogSystem", e.Kind)
			}
		}
	}
	if fallbacks != 1 {
		t.Errorf("fallback entries = %d, want exactly 1", fallbacks)
	}
}

func TestNarrationOrderedByTurnDespiteLateArrival(t *testing.T) {
	narrator := &gatedNarrator{}
	c, _ := newTestController(t, Options{NarrationTimeout: 2 * time.Second})
	c.SetNarrator(narrator)
	ctx := context.Background()

	// Turn 2's narration is held back; turn 3's resolves immediately.
	gate := narrator.gate(2)

	if err := c.Submit(ctx, "scan alpha"); err != nil { // turn 2
		t.Fatalf("Submit error = %v", err)
	}
	if err := c.Submit(ctx, "scan beta"); err != nil { // turn 3
		t.Fatalf("Submit error = %v", err)
	}

	// Wait for turn 3's narration to land first.
	waitUntil(t, c, func() bool {
		for _, e := range c.state.Log {
			if e.Kind == LogNarrative && e.Turn == 3 {
				return true
			}
		}
		return false
	})

	close(gate)
	c.Drain()

	log := c.State().Log
	for i := 1; i < len(log); i++ {
		if log[i].Turn < log[i-1].Turn {
			t.Fatalf("log out of order at %d: %+v", i, log)
		}
	}
	// Turn 2's late narration sits with turn 2, before any turn 3 entry.
	var idxNarration2, idxSystem3 = -1, -1
	for i, e := range log {
		if e.Kind == LogNarrative && e.Turn == 2 {
			idxNarration2 = i
		}
		if e.Kind == LogSystem && e.Turn == 3 && idxSystem3 == -1 {
			idxSystem3 = i
		}
	}
	if idxNarration2 == -1 || idxSystem3 == -1 {
		t.Fatalf("missing expected entries in log: %+v", log)
	}
	if idxNarration2 > idxSystem3 {
		t.Errorf("turn 2 narration at %d after turn 3 entry at %d", idxNarration2, idxSystem3)
	}
}

func TestCheckpointOnIntervalAndSaveCommand(t *testing.T) {
	store := &fakeStore{}
	c, _ := newTestController(t, Options{CheckpointInterval: 2})
	c.SetStore(store)
	ctx := context.Background()

	if err := c.Submit(ctx, "move north"); err != nil {
		t.Fatalf("Submit error = %v", err)
	}
	if got := store.saveCount(); got != 0 {
		t.Errorf("saves after 1 command = %d, want 0", got)
	}
	if err := c.Submit(ctx, "move south"); err != nil {
		t.Fatalf("Submit error = %v", err)
	}
	if got := store.saveCount(); got != 1 {
		t.Errorf("saves after 2 commands = %d, want 1", got)
	}

	if err := c.Submit(ctx, "save"); err != nil {
		t.Fatalf("Submit(save) error = %v", err)
	}
	if got := store.saveCount(); got != 2 {
		t.Errorf("saves after explicit save = %d, want 2", got)
	}
	if store.lastSnap.Turn != c.State().Turn {
		t.Errorf("saved turn = %d, want %d", store.lastSnap.Turn, c.State().Turn)
	}
}

func TestCheckpointFailureLeavesStateUntouched(t *testing.T) {
	store := &fakeStore{failSave: true}
	c, sink := newTestController(t, Options{})
	c.SetStore(store)
	ctx := context.Background()

	if err := c.Submit(ctx, "move north"); err != nil {
		t.Fatalf("Submit error = %v", err)
	}
	turn := c.State().Turn
	fuel := c.State().Fuel

	if err := c.Checkpoint(ctx); err == nil {
		t.Fatal("Checkpoint() = nil, want error")
	}
	if c.State().Turn != turn || c.State().Fuel != fuel {
		t.Error("failed checkpoint must not change in-memory state")
	}
	if got := sink.countErrors(); got != 1 {
		t.Errorf("error events = %d, want 1", got)
	}

	// The caller may retry; a recovered store succeeds.
	store.failSave = false
	if err := c.Checkpoint(ctx); err != nil {
		t.Errorf("retry Checkpoint() error = %v", err)
	}
}

func TestHelpListsVerbsWithoutAdvancingTurn(t *testing.T) {
	c, sink := newTestController(t, Options{})

	if err := c.Submit(context.Background(), "help"); err != nil {
		t.Fatalf("Submit(help) error = %v", err)
	}
	if c.State().Turn != 1 {
		t.Errorf("turn after help = %d, want 1", c.State().Turn)
	}
	found := false
	for _, ev := range sink.all() {
		if log, ok := ev.(LogUpdate); ok && log.Entry.Kind == LogSystem {
			found = true
		}
	}
	if !found {
		t.Error("help should emit a System log event")
	}
}

func TestUnauthorizedProjectReported(t *testing.T) {
	c, sink := newTestController(t, Options{})

	err := c.Submit(context.Background(), "work bogus_project")
	if !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("Submit error = %v, want ErrNotAuthorized", err)
	}
	if c.State().Turn != 1 {
		t.Errorf("turn = %d, want 1", c.State().Turn)
	}
	if got := sink.countErrors(); got != 1 {
		t.Errorf("error events = %d, want 1", got)
	}
}
