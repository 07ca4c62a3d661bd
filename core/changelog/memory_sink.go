package changelog

import "time"

// MemorySink is an in-memory Sink used by tests. Dry-run workflows do
// not need it: the orchestrator simply writes no changelog entries
// during a dry run.
type MemorySink struct {
	Lines []string
	Now   func() time.Time
}

// NewMemorySink builds a MemorySink using the given clock, or time.Now
// if clock is nil.
func NewMemorySink(clock func() time.Time) *MemorySink {
	if clock == nil {
		clock = time.Now
	}
	return &MemorySink{Now: clock}
}

func (s *MemorySink) AppendHeader(kind Kind, fields ...string) error {
	s.Lines = append(s.Lines, FormatHeader(s.Now(), kind, fields...))
	return nil
}

func (s *MemorySink) AppendUpdate(txnID int64, field, old, new string) error {
	s.Lines = append(s.Lines, FormatUpdate(s.Now(), txnID, field, old, new))
	return nil
}

func (s *MemorySink) AppendApply(txnID, ruleID int64, field, old, new, status string) error {
	s.Lines = append(s.Lines, FormatApply(s.Now(), txnID, ruleID, field, old, new, status))
	return nil
}

func (s *MemorySink) Watermark() (time.Time, bool, error) {
	for i := len(s.Lines) - 1; i >= 0; i-- {
		e, err := Parse(s.Lines[i])
		if err != nil {
			continue
		}
		if IsWatermarkKind(e.Kind) {
			return e.Timestamp, true, nil
		}
	}
	return time.Time{}, false, nil
}

func (s *MemorySink) Close() error { return nil }
