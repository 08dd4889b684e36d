package game

// LogKind classifies a log entry.
type LogKind int

const (
	// LogSystem - mechanical outcomes and fallback notices.
	LogSystem LogKind = iota
	// LogNarrative - text produced by the narrative client.
	LogNarrative
	// LogError - rejected commands and persistence failures.
	LogError
)

// String returns the kind name.
func (k LogKind) String() string {
	switch k {
	case LogSystem:
		return "system"
	case LogNarrative:
		return "narrative"
	case LogError:
		return "error"
	default:
		return "unknown"
	}
}

// LogEntry is one line of the game log. Entries are appended only by the
// controller; panels read them through LogUpdate events.
type LogEntry struct {
	Turn int
	Kind LogKind
	Text string
}

// insertLogEntry places e into entries keeping them ordered by turn. An entry
// for turn T lands after every existing entry with turn <= T and before any
// entry with a higher turn, so late narration slots back into its own turn
// without reordering anything already present.
func insertLogEntry(entries []LogEntry, e LogEntry) []LogEntry {
	pos := len(entries)
	for pos > 0 && entries[pos-1].Turn > e.Turn {
		pos--
	}
	entries = append(entries, LogEntry{})
	copy(entries[pos+1:], entries[pos:])
	entries[pos] = e
	return entries
}
