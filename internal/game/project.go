package game

import "fmt"

// ProjectID identifies a long-running objective.
type ProjectID string

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus int

const (
	// StatusPending - seeded but not yet worked on.
	StatusPending ProjectStatus = iota
	// StatusActive - at least one advance has been applied.
	StatusActive
	// StatusComplete - progress reached 100; terminal.
	StatusComplete
)

// String returns the status name used in storage and display.
func (s ProjectStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusActive:
		return "active"
	case StatusComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// ParseProjectStatus maps a stored status name back to a ProjectStatus.
func ParseProjectStatus(name string) (ProjectStatus, error) {
	switch name {
	case "pending":
		return StatusPending, nil
	case "active":
		return StatusActive, nil
	case "complete":
		return StatusComplete, nil
	default:
		return StatusPending, fmt.Errorf("unknown project status %q", name)
	}
}

// Project is a long-running objective tracked across turns.
type Project struct {
	ID          ProjectID
	Name        string
	Description string
	Progress    float64 // 0-100
	Status      ProjectStatus
}

// ProjectDelta describes the observable result of advancing a project.
type ProjectDelta struct {
	ID        ProjectID
	Name      string
	Progress  float64
	Status    ProjectStatus
	Completed bool // true exactly when this advance reached 100
}

// ApplyProjectAdvance adds progress to a project, clamping at 100 and
// transitioning to Complete exactly when 100 is reached. It fails with
// ErrProjectComplete on a finished project and ErrProjectNotActive when the
// project is unknown.
func (s *State) ApplyProjectAdvance(id ProjectID, amount float64) (ProjectDelta, error) {
	p, ok := s.projects[id]
	if !ok {
		return ProjectDelta{}, fmt.Errorf("%w: %q", ErrProjectNotActive, id)
	}
	if p.Status == StatusComplete {
		return ProjectDelta{}, fmt.Errorf("%w: %q", ErrProjectComplete, id)
	}
	if amount < 0 {
		amount = 0
	}
	p.Progress += amount
	p.Status = StatusActive
	completed := false
	if p.Progress >= 100 {
		p.Progress = 100
		p.Status = StatusComplete
		completed = true
	}
	return ProjectDelta{
		ID:        p.ID,
		Name:      p.Name,
		Progress:  p.Progress,
		Status:    p.Status,
		Completed: completed,
	}, nil
}

// Project looks up a project by ID.
func (s *State) Project(id ProjectID) (Project, bool) {
	p, ok := s.projects[id]
	if !ok {
		return Project{}, false
	}
	return *p, true
}

// Projects returns the catalog in seed order.
func (s *State) Projects() []Project {
	out := make([]Project, 0, len(s.projectOrder))
	for _, id := range s.projectOrder {
		out = append(out, *s.projects[id])
	}
	return out
}

// ActiveProjects returns the IDs of projects still open for advancement, in
// seed order.
func (s *State) ActiveProjects() []ProjectID {
	out := make([]ProjectID, 0, len(s.projectOrder))
	for _, id := range s.projectOrder {
		if s.projects[id].Status != StatusComplete {
			out = append(out, id)
		}
	}
	return out
}
