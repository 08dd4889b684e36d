package game

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
)

// CommandKind discriminates the closed set of player commands.
type CommandKind int

const (
	// CmdMove - move the ship one step in a compass direction.
	CmdMove CommandKind = iota
	// CmdScan - scan a catalog body.
	CmdScan
	// CmdHail - hail a comms channel.
	CmdHail
	// CmdAdvanceProject - put work into an open project.
	CmdAdvanceProject
	// CmdSave - request an explicit checkpoint.
	CmdSave
	// CmdHelp - list available verbs.
	CmdHelp
)

// String returns the canonical verb for the kind.
func (k CommandKind) String() string {
	switch k {
	case CmdMove:
		return "move"
	case CmdScan:
		return "scan"
	case CmdHail:
		return "hail"
	case CmdAdvanceProject:
		return "work"
	case CmdSave:
		return "save"
	case CmdHelp:
		return "help"
	default:
		return "unknown"
	}
}

// Command is a validated player intent. It is immutable once constructed;
// only the fields relevant to its kind are set.
type Command struct {
	Kind      CommandKind
	Direction Direction
	Target    BodyID
	Channel   string
	Project   ProjectID
	Amount    float64
}

// defaultAdvanceAmount is the progress applied when the work command names no
// explicit amount.
const defaultAdvanceAmount = 10

// maxVerbDistance bounds how far a typo may be from a verb before the parser
// stops suggesting it.
const maxVerbDistance = 2

// Interpreter translates raw input into validated commands.
type Interpreter struct {
	verbs map[string]CommandKind
}

// NewInterpreter builds an interpreter with the standard verb table.
func NewInterpreter() *Interpreter {
	return &Interpreter{
		verbs: map[string]CommandKind{
			"move": CmdMove,
			"go":   CmdMove,
			"scan": CmdScan,
			"hail": CmdHail,
			"work": CmdAdvanceProject,
			"save": CmdSave,
			"help": CmdHelp,
		},
	}
}

// Verbs returns the canonical verbs in sorted order.
func (in *Interpreter) Verbs() []string {
	seen := make(map[string]bool)
	var out []string
	for _, kind := range in.verbs {
		v := kind.String()
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

// Parse turns raw input into a Command. It never touches game state; all
// failures are *ParseError values.
func (in *Interpreter) Parse(raw string) (Command, error) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(raw)))
	if len(fields) == 0 {
		return Command{}, &ParseError{
			Kind:    UnknownVerb,
			Input:   raw,
			Message: "enter a command",
		}
	}

	verb := fields[0]
	kind, ok := in.verbs[verb]
	if !ok {
		return Command{}, &ParseError{
			Kind:       UnknownVerb,
			Input:      raw,
			Message:    fmt.Sprintf("unknown command %q", verb),
			Suggestion: in.closestVerb(verb),
		}
	}
	args := fields[1:]

	switch kind {
	case CmdMove:
		if len(args) != 1 {
			return Command{}, malformed(raw, "move needs a direction: move north|south|east|west")
		}
		dir, err := parseDirection(args[0])
		if err != nil {
			return Command{}, malformed(raw, err.Error())
		}
		return Command{Kind: CmdMove, Direction: dir}, nil

	case CmdScan:
		if len(args) != 1 {
			return Command{}, malformed(raw, "scan needs a target: scan <body-id>")
		}
		return Command{Kind: CmdScan, Target: BodyID(args[0])}, nil

	case CmdHail:
		if len(args) != 1 {
			return Command{}, malformed(raw, "hail needs a channel: hail <channel-id>")
		}
		return Command{Kind: CmdHail, Channel: args[0]}, nil

	case CmdAdvanceProject:
		if len(args) < 1 || len(args) > 2 {
			return Command{}, malformed(raw, "work needs a project: work <project-key> [amount]")
		}
		cmd := Command{Kind: CmdAdvanceProject, Project: ProjectID(args[0]), Amount: defaultAdvanceAmount}
		if len(args) == 2 {
			amount, err := strconv.ParseFloat(args[1], 64)
			if err != nil || amount <= 0 {
				return Command{}, malformed(raw, fmt.Sprintf("amount %q is not a positive number", args[1]))
			}
			cmd.Amount = amount
		}
		return cmd, nil

	case CmdSave:
		if len(args) != 0 {
			return Command{}, malformed(raw, "save takes no arguments")
		}
		return Command{Kind: CmdSave}, nil

	case CmdHelp:
		return Command{Kind: CmdHelp}, nil

	default:
		return Command{}, malformed(raw, fmt.Sprintf("verb %q has no handler", verb))
	}
}

// Authorize rejects commands illegal in the current game context. It runs
// before mutators so they can assume structurally valid input.
func (in *Interpreter) Authorize(cmd Command, st *State) error {
	if cmd.Kind != CmdAdvanceProject {
		return nil
	}
	for _, id := range st.ActiveProjects() {
		if id == cmd.Project {
			return nil
		}
	}
	return fmt.Errorf("%w: project %q is not in your active set", ErrNotAuthorized, cmd.Project)
}

// closestVerb returns the nearest registered verb within maxVerbDistance, or
// an empty string when nothing is close.
func (in *Interpreter) closestVerb(verb string) string {
	best := ""
	bestDist := maxVerbDistance + 1
	var verbs []string
	for v := range in.verbs {
		verbs = append(verbs, v)
	}
	sort.Strings(verbs)
	for _, v := range verbs {
		if d := levenshtein.ComputeDistance(verb, v); d < bestDist {
			best = v
			bestDist = d
		}
	}
	return best
}

func parseDirection(arg string) (Direction, error) {
	switch arg {
	case "north", "n":
		return North, nil
	case "south", "s":
		return South, nil
	case "east", "e":
		return East, nil
	case "west", "w":
		return West, nil
	default:
		return North, fmt.Errorf("direction %q is not north, south, east or west", arg)
	}
}

func malformed(raw, msg string) *ParseError {
	return &ParseError{Kind: MalformedArgument, Input: raw, Message: msg}
}
