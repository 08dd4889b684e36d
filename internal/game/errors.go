package game

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMove indicates a move would leave map bounds or exhaust fuel.
	ErrInvalidMove = errors.New("invalid move")
	// ErrUnknownTarget indicates a scan target not in the body catalog.
	ErrUnknownTarget = errors.New("unknown scan target")
	// ErrUnknownChannel indicates a hail on an unconfigured comms channel.
	ErrUnknownChannel = errors.New("unknown comms channel")
	// ErrProjectNotActive indicates a project outside the Pending/Active set.
	ErrProjectNotActive = errors.New("project is not active")
	// ErrProjectComplete indicates a project that can no longer advance.
	ErrProjectComplete = errors.New("project is already complete")
	// ErrNotAuthorized indicates a structurally valid command that is illegal
	// in the current game context.
	ErrNotAuthorized = errors.New("command not authorized")
)

// ParseErrorKind classifies command parse failures.
type ParseErrorKind int

const (
	// UnknownVerb - the first token matched no registered verb.
	UnknownVerb ParseErrorKind = iota
	// MalformedArgument - the verb was recognized but its arguments were not.
	MalformedArgument
)

// String returns a machine-friendly kind name.
func (k ParseErrorKind) String() string {
	switch k {
	case UnknownVerb:
		return "unknown_verb"
	case MalformedArgument:
		return "malformed_argument"
	default:
		return "unknown"
	}
}

// ParseError describes why raw input could not become a Command.
type ParseError struct {
	Kind       ParseErrorKind
	Input      string
	Message    string
	Suggestion string // closest known verb, when one is near enough
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (did you mean %q?)", e.Message, e.Suggestion)
	}
	return e.Message
}

// IsUserError reports whether err is a player-facing rejection rather than a
// system failure. User errors never advance the turn.
func IsUserError(err error) bool {
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return true
	}
	return errors.Is(err, ErrInvalidMove) ||
		errors.Is(err, ErrUnknownTarget) ||
		errors.Is(err, ErrUnknownChannel) ||
		errors.Is(err, ErrProjectNotActive) ||
		errors.Is(err, ErrProjectComplete) ||
		errors.Is(err, ErrNotAuthorized)
}
