package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/calhale/spacegame/internal/game"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "spacegame.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open(%s) error = %v", path, err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testSeeds() []game.ProjectSeed {
	return []game.ProjectSeed{
		{
			Project: game.Project{ID: "getting_started", Name: "Getting Started", Description: "Basic ship bring-up sequence.", Status: game.StatusPending},
			Tasks: []game.TaskSeed{
				{Key: "board_ship", Name: "Board your ship"},
				{Key: "power_up", Name: "Power up systems"},
			},
		},
		{
			Project: game.Project{ID: "first_scout", Name: "First Scout Mission", Status: game.StatusPending},
			Tasks: []game.TaskSeed{
				{Key: "plot_course", Name: "Plot short course"},
			},
		},
	}
}

func TestSeedProjectsIfEmptyIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.SeedProjectsIfEmpty(ctx, testSeeds()); err != nil {
		t.Fatalf("first seed error = %v", err)
	}
	if err := store.SeedProjectsIfEmpty(ctx, testSeeds()); err != nil {
		t.Fatalf("second seed error = %v", err)
	}

	projects, err := store.ListProjects(ctx)
	if err != nil {
		t.Fatalf("ListProjects error = %v", err)
	}
	if len(projects) != 2 {
		t.Fatalf("projects after double seed = %d, want 2", len(projects))
	}
	if projects[0].ID != "getting_started" || projects[1].ID != "first_scout" {
		t.Errorf("project order = [%s, %s], want seed order", projects[0].ID, projects[1].ID)
	}

	tasks, err := store.ListTasks(ctx, "getting_started")
	if err != nil {
		t.Fatalf("ListTasks error = %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("tasks = %d, want 2", len(tasks))
	}
	for _, task := range tasks {
		if !task.Hidden {
			t.Errorf("task %s seeded visible, want hidden", task.Key)
		}
		if task.Status != "unassigned" {
			t.Errorf("task %s status = %q, want unassigned", task.Key, task.Status)
		}
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.SeedProjectsIfEmpty(ctx, testSeeds()); err != nil {
		t.Fatalf("seed error = %v", err)
	}

	_, ok, err := store.LoadState(ctx)
	if err != nil {
		t.Fatalf("LoadState on fresh store error = %v", err)
	}
	if ok {
		t.Fatal("LoadState on fresh store ok = true, want false")
	}

	snap := game.Snapshot{
		Turn:         7,
		ShipPosition: game.Coord{X: 3, Y: 9},
		Fuel:         42.5,
		Hull:         88,
		Credits:      125,
		Discovered:   []game.BodyID{"alpha", "beta"},
		Log: []game.LogEntry{
			{Turn: 2, Kind: game.LogSystem, Text: "Moved north."},
			{Turn: 2, Kind: game.LogNarrative, Text: "The stars wheel past."},
			{Turn: 3, Kind: game.LogError, Text: "unknown command"},
		},
		Projects: []game.Project{
			{ID: "getting_started", Name: "Getting Started", Progress: 60, Status: game.StatusActive},
			{ID: "first_scout", Name: "First Scout Mission", Status: game.StatusPending},
		},
	}
	if err := store.SaveState(ctx, snap); err != nil {
		t.Fatalf("SaveState error = %v", err)
	}

	loaded, ok, err := store.LoadState(ctx)
	if err != nil {
		t.Fatalf("LoadState error = %v", err)
	}
	if !ok {
		t.Fatal("LoadState ok = false after save")
	}
	if loaded.Turn != 7 || loaded.ShipPosition != (game.Coord{X: 3, Y: 9}) {
		t.Errorf("loaded turn/position = %d %v, want 7 (3,9)", loaded.Turn, loaded.ShipPosition)
	}
	if loaded.Fuel != 42.5 || loaded.Hull != 88 || loaded.Credits != 125 {
		t.Errorf("loaded ship stats = %v/%v/%d, want 42.5/88/125", loaded.Fuel, loaded.Hull, loaded.Credits)
	}
	if len(loaded.Discovered) != 2 {
		t.Errorf("loaded discovered = %v, want 2 bodies", loaded.Discovered)
	}
	if len(loaded.Log) != 3 {
		t.Fatalf("loaded log = %d entries, want 3", len(loaded.Log))
	}
	if loaded.Log[1].Kind != game.LogNarrative || loaded.Log[1].Text != "The stars wheel past." {
		t.Errorf("loaded log[1] = %+v, want the narrative entry", loaded.Log[1])
	}
	if len(loaded.Projects) != 2 {
		t.Fatalf("loaded projects = %d, want 2", len(loaded.Projects))
	}
	if loaded.Projects[0].Progress != 60 || loaded.Projects[0].Status != game.StatusActive {
		t.Errorf("loaded project = %+v, want progress 60 active", loaded.Projects[0])
	}
}

func TestSaveStateOverwritesPreviousSnapshot(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first := game.Snapshot{Turn: 2, Fuel: 90, Hull: 100}
	second := game.Snapshot{Turn: 5, Fuel: 80, Hull: 95}
	if err := store.SaveState(ctx, first); err != nil {
		t.Fatalf("first SaveState error = %v", err)
	}
	if err := store.SaveState(ctx, second); err != nil {
		t.Fatalf("second SaveState error = %v", err)
	}

	loaded, ok, err := store.LoadState(ctx)
	if err != nil || !ok {
		t.Fatalf("LoadState = ok %v, err %v", ok, err)
	}
	if loaded.Turn != 5 || loaded.Fuel != 80 {
		t.Errorf("loaded = turn %d fuel %v, want the second snapshot", loaded.Turn, loaded.Fuel)
	}
}

func TestCompletedProjectRevealsTasks(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.SeedProjectsIfEmpty(ctx, testSeeds()); err != nil {
		t.Fatalf("seed error = %v", err)
	}

	snap := game.Snapshot{
		Turn: 4,
		Projects: []game.Project{
			{ID: "getting_started", Progress: 100, Status: game.StatusComplete},
		},
	}
	if err := store.SaveState(ctx, snap); err != nil {
		t.Fatalf("SaveState error = %v", err)
	}

	tasks, err := store.ListTasks(ctx, "getting_started")
	if err != nil {
		t.Fatalf("ListTasks error = %v", err)
	}
	for _, task := range tasks {
		if task.Hidden {
			t.Errorf("task %s still hidden after project completion", task.Key)
		}
		if task.Status != "completed" {
			t.Errorf("task %s status = %q, want completed", task.Key, task.Status)
		}
	}

	// The untouched project's tasks stay hidden.
	tasks, err = store.ListTasks(ctx, "first_scout")
	if err != nil {
		t.Fatalf("ListTasks error = %v", err)
	}
	for _, task := range tasks {
		if !task.Hidden {
			t.Errorf("task %s revealed without completion", task.Key)
		}
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Error("Open(\"\") = nil error, want error")
	}
}
