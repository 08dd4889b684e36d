// Package memory provides an in-memory persistence store for ephemeral runs
// and tests. It implements game.Store with the same seeding semantics as the
// SQLite store but keeps nothing across process restarts.
package memory

import (
	"context"
	"sync"

	"github.com/calhale/spacegame/internal/game"
)

// Store keeps snapshots and the project catalog in process memory.
type Store struct {
	mu       sync.Mutex
	snap     game.Snapshot
	hasState bool
	projects []game.Project
}

// New creates an empty store.
func New() *Store {
	return &Store{}
}

// LoadState returns the last saved snapshot, or ok=false before any save.
func (s *Store) LoadState(ctx context.Context) (game.Snapshot, bool, error) {
	if err := ctx.Err(); err != nil {
		return game.Snapshot{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasState {
		return game.Snapshot{}, false, nil
	}
	return cloneSnapshot(s.snap), true, nil
}

// SaveState stores a copy of the snapshot and updates the project catalog.
func (s *Store) SaveState(ctx context.Context, snap game.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = cloneSnapshot(snap)
	s.hasState = true
	if len(snap.Projects) > 0 {
		s.projects = append([]game.Project(nil), snap.Projects...)
	}
	return nil
}

// SeedProjectsIfEmpty seeds the catalog once; later calls are no-ops.
func (s *Store) SeedProjectsIfEmpty(ctx context.Context, seeds []game.ProjectSeed) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.projects) > 0 {
		return nil
	}
	for _, seed := range seeds {
		s.projects = append(s.projects, seed.Project)
	}
	return nil
}

// ListProjects returns the catalog in seed order.
func (s *Store) ListProjects(ctx context.Context) ([]game.Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]game.Project(nil), s.projects...), nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

func cloneSnapshot(snap game.Snapshot) game.Snapshot {
	out := snap
	out.Discovered = append([]game.BodyID(nil), snap.Discovered...)
	out.Log = append([]game.LogEntry(nil), snap.Log...)
	out.Projects = append([]game.Project(nil), snap.Projects...)
	return out
}
