// Package changelog implements the append-only changelog sink and its
// line grammar: one header per workflow (CLONE/PULL/PUSH) followed by
// UPDATE/APPLY entries for that workflow; DIFF entries are stdout-only
// and are never written to the file sink.
package changelog

import (
	"fmt"
	"strings"
	"time"
)

// Kind is the entry type of a changelog line.
type Kind string

const (
	Clone  Kind = "CLONE"
	Pull   Kind = "PULL"
	Push   Kind = "PUSH"
	Update Kind = "UPDATE"
	Apply  Kind = "APPLY"
	Diff   Kind = "DIFF" // stdout only; never appended to a Sink
)

const timestampLayout = "2006-01-02 15:04:05"

// Entry is a single parsed changelog line.
type Entry struct {
	Timestamp time.Time
	Kind      Kind
	Fields    []string // raw positional fields after the kind token
}

// FormatHeader renders a CLONE/PULL/PUSH header line. fields are the
// bracketed positional values in declaration order (e.g. CLONE wants
// [from][to]; PULL wants [since][from][to]; PUSH wants [from][to]).
func FormatHeader(ts time.Time, kind Kind, fields ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", ts.Format(timestampLayout), kind)
	for _, f := range fields {
		b.WriteString(" [")
		b.WriteString(f)
		b.WriteString("]")
	}
	return b.String()
}

// FormatUpdate renders an UPDATE entry: "<id> <field> <old> → <new>".
// old is omitted (no arrow) when the field is being created, signalled
// by an empty old string.
func FormatUpdate(ts time.Time, txnID int64, field, old, new string) string {
	if old == "" {
		return fmt.Sprintf("[%s] UPDATE %d %s %s", ts.Format(timestampLayout), txnID, field, new)
	}
	return fmt.Sprintf("[%s] UPDATE %d %s %s → %s", ts.Format(timestampLayout), txnID, field, old, new)
}

// FormatApply renders an APPLY entry: "<id> RULE <rule-id> <field> <old> → <new>".
func FormatApply(ts time.Time, txnID, ruleID int64, field, old, new, status string) string {
	if old == "" {
		return fmt.Sprintf("[%s] APPLY %d RULE %d %s %s (%s)", ts.Format(timestampLayout), txnID, ruleID, field, new, status)
	}
	return fmt.Sprintf("[%s] APPLY %d RULE %d %s %s → %s (%s)", ts.Format(timestampLayout), txnID, ruleID, field, old, new, status)
}

// FormatDiff renders a DIFF entry for stdout only: "<id> <field> <local> <> <remote>".
func FormatDiff(ts time.Time, txnID int64, field, local, remote string) string {
	return fmt.Sprintf("[%s] DIFF %d %s %s <> %s", ts.Format(timestampLayout), txnID, field, local, remote)
}

// Parse parses one changelog line into an Entry.
func Parse(line string) (Entry, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Entry{}, fmt.Errorf("empty line")
	}
	if !strings.HasPrefix(line, "[") {
		return Entry{}, fmt.Errorf("missing timestamp: %q", line)
	}
	end := strings.Index(line, "]")
	if end < 0 {
		return Entry{}, fmt.Errorf("malformed timestamp: %q", line)
	}
	ts, err := time.Parse(timestampLayout, line[1:end])
	if err != nil {
		return Entry{}, fmt.Errorf("parse timestamp %q: %w", line[1:end], err)
	}
	rest := strings.TrimSpace(line[end+1:])
	parts := strings.Fields(rest)
	if len(parts) == 0 {
		return Entry{}, fmt.Errorf("missing kind: %q", line)
	}
	return Entry{Timestamp: ts, Kind: Kind(parts[0]), Fields: parts[1:]}, nil
}

// IsWatermarkKind reports whether kind advances the pull watermark
// (CLONE or PULL headers only).
func IsWatermarkKind(k Kind) bool { return k == Clone || k == Pull }
