// Package sqlite provides a SQLite-backed persistence store for game
// snapshots and the project catalog.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/calhale/spacegame/internal/game"
	"github.com/calhale/spacegame/internal/storage/sqlite/migrations"
)

// Store persists game state in SQLite. It implements game.Store.
type Store struct {
	sqlDB *sql.DB
}

// Open opens the store at path and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// logRecord is the JSON shape of a persisted log entry.
type logRecord struct {
	Turn int    `json:"turn"`
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// LoadState returns the saved snapshot, or ok=false on a fresh store.
func (s *Store) LoadState(ctx context.Context) (game.Snapshot, bool, error) {
	var (
		snap       game.Snapshot
		discovered string
		logJSON    string
	)
	row := s.sqlDB.QueryRowContext(ctx, `
		SELECT turn, ship_x, ship_y, fuel, hull, credits, discovered, log
		FROM game_state WHERE id = 1`)
	err := row.Scan(&snap.Turn, &snap.ShipPosition.X, &snap.ShipPosition.Y,
		&snap.Fuel, &snap.Hull, &snap.Credits, &discovered, &logJSON)
	if err == sql.ErrNoRows {
		return game.Snapshot{}, false, nil
	}
	if err != nil {
		return game.Snapshot{}, false, fmt.Errorf("load game state: %w", err)
	}

	var bodies []string
	if err := json.Unmarshal([]byte(discovered), &bodies); err != nil {
		return game.Snapshot{}, false, fmt.Errorf("decode discovered set: %w", err)
	}
	for _, id := range bodies {
		snap.Discovered = append(snap.Discovered, game.BodyID(id))
	}

	var records []logRecord
	if err := json.Unmarshal([]byte(logJSON), &records); err != nil {
		return game.Snapshot{}, false, fmt.Errorf("decode log: %w", err)
	}
	for _, r := range records {
		snap.Log = append(snap.Log, game.LogEntry{Turn: r.Turn, Kind: parseLogKind(r.Kind), Text: r.Text})
	}

	projects, err := s.ListProjects(ctx)
	if err != nil {
		return game.Snapshot{}, false, err
	}
	snap.Projects = projects
	return snap, true, nil
}

// SaveState persists the full snapshot, replacing the previous one. Project
// rows are updated in the same transaction; a project reaching complete has
// its task rows revealed and marked completed.
func (s *Store) SaveState(ctx context.Context, snap game.Snapshot) error {
	bodies := make([]string, 0, len(snap.Discovered))
	for _, id := range snap.Discovered {
		bodies = append(bodies, string(id))
	}
	discovered, err := json.Marshal(bodies)
	if err != nil {
		return fmt.Errorf("encode discovered set: %w", err)
	}

	records := make([]logRecord, 0, len(snap.Log))
	for _, e := range snap.Log {
		records = append(records, logRecord{Turn: e.Turn, Kind: e.Kind.String(), Text: e.Text})
	}
	logJSON, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode log: %w", err)
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO game_state (id, turn, ship_x, ship_y, fuel, hull, credits, discovered, log, saved_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
		    turn = excluded.turn,
		    ship_x = excluded.ship_x,
		    ship_y = excluded.ship_y,
		    fuel = excluded.fuel,
		    hull = excluded.hull,
		    credits = excluded.credits,
		    discovered = excluded.discovered,
		    log = excluded.log,
		    saved_at = excluded.saved_at`,
		snap.Turn, snap.ShipPosition.X, snap.ShipPosition.Y,
		snap.Fuel, snap.Hull, snap.Credits,
		string(discovered), string(logJSON), time.Now().UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("save game state: %w", err)
	}

	for _, p := range snap.Projects {
		_, err = tx.ExecContext(ctx, `
			UPDATE projects SET progress = ?, status = ? WHERE key = ?`,
			p.Progress, p.Status.String(), string(p.ID))
		if err != nil {
			return fmt.Errorf("save project %s: %w", p.ID, err)
		}
		if p.Status == game.StatusComplete {
			if err := revealCompletedTasks(ctx, tx, string(p.ID)); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// revealCompletedTasks marks every task of a finished project visible and
// completed, matching the reveal-on-progress behavior of the task catalog.
func revealCompletedTasks(ctx context.Context, tx *sql.Tx, projectKey string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE tasks SET hidden = 0, status = 'completed'
		WHERE project_id = (SELECT id FROM projects WHERE key = ?)`, projectKey)
	if err != nil {
		return fmt.Errorf("reveal tasks for %s: %w", projectKey, err)
	}
	return nil
}

// SeedProjectsIfEmpty inserts the starter catalog when no projects exist.
// Calling it again is a no-op.
func (s *Store) SeedProjectsIfEmpty(ctx context.Context, seeds []game.ProjectSeed) error {
	var count int
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(1) FROM projects`).Scan(&count); err != nil {
		return fmt.Errorf("count projects: %w", err)
	}
	if count > 0 {
		return nil
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, seed := range seeds {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO projects (key, name, description, progress, status, seed_order)
			VALUES (?, ?, ?, ?, ?, ?)`,
			string(seed.Project.ID), seed.Project.Name, seed.Project.Description,
			seed.Project.Progress, seed.Project.Status.String(), i)
		if err != nil {
			return fmt.Errorf("seed project %s: %w", seed.Project.ID, err)
		}
		projectID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("seed project %s id: %w", seed.Project.ID, err)
		}
		for j, task := range seed.Tasks {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO tasks (project_id, key, name, description, order_index, status, hidden)
				VALUES (?, ?, ?, ?, ?, 'unassigned', 1)`,
				projectID, task.Key, task.Name, task.Description, j+1)
			if err != nil {
				return fmt.Errorf("seed task %s/%s: %w", seed.Project.ID, task.Key, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	return nil
}

// ListProjects returns the catalog in seed order.
func (s *Store) ListProjects(ctx context.Context) ([]game.Project, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
		SELECT key, name, description, progress, status
		FROM projects ORDER BY seed_order ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []game.Project
	for rows.Next() {
		var (
			p      game.Project
			key    string
			status string
		)
		if err := rows.Scan(&key, &p.Name, &p.Description, &p.Progress, &status); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		p.ID = game.ProjectID(key)
		st, err := game.ParseProjectStatus(status)
		if err != nil {
			return nil, fmt.Errorf("project %s: %w", key, err)
		}
		p.Status = st
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return out, nil
}

// Task is one catalog task row.
type Task struct {
	Key         string
	Name        string
	Description string
	OrderIndex  int
	Status      string
	Hidden      bool
}

// ListTasks returns the task rows of a project ordered by index.
func (s *Store) ListTasks(ctx context.Context, projectKey string) ([]Task, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
		SELECT t.key, t.name, t.description, t.order_index, t.status, t.hidden
		FROM tasks t
		JOIN projects p ON p.id = t.project_id
		WHERE p.key = ?
		ORDER BY t.order_index ASC`, projectKey)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		var (
			t      Task
			hidden int
		)
		if err := rows.Scan(&t.Key, &t.Name, &t.Description, &t.OrderIndex, &t.Status, &hidden); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.Hidden = hidden != 0
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return out, nil
}

func parseLogKind(name string) game.LogKind {
	switch name {
	case "narrative":
		return game.LogNarrative
	case "error":
		return game.LogError
	default:
		return game.LogSystem
	}
}
