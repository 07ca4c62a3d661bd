package changelog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func TestFormatUpdateCreationOmitsArrow(t *testing.T) {
	ts := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	line := FormatUpdate(ts, 1001, "category_id", "", "7")
	require.Equal(t, "[2024-01-15 10:00:00] UPDATE 1001 category_id 7", line)
}

func TestFormatUpdateWithOld(t *testing.T) {
	ts := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	line := FormatUpdate(ts, 1001, "labels", "[coffee]", "[coffee,morning]")
	require.Equal(t, "[2024-01-15 10:00:00] UPDATE 1001 labels [coffee] → [coffee,morning]", line)
}

func TestParseRoundTrip(t *testing.T) {
	ts := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	line := FormatHeader(ts, Pull, "2024-01-01T00:00:00Z", "2024-01-01", "2024-01-31")
	e, err := Parse(line)
	require.NoError(t, err)
	require.Equal(t, Pull, e.Kind)
	require.True(t, ts.Equal(e.Timestamp))
}

func TestMemorySinkWatermarkFindsLatestHeader(t *testing.T) {
	clock := fixedClock(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	sink := NewMemorySink(clock)
	require.NoError(t, sink.AppendHeader(Clone, "2024-01-01", "2024-01-31"))
	require.NoError(t, sink.AppendUpdate(1, "category_id", "1", "2"))

	laterClock := fixedClock(time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC))
	sink.Now = laterClock
	require.NoError(t, sink.AppendHeader(Pull, "2024-02-01T00:00:00Z"))

	ts, ok, err := sink.Watermark()
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, ts.Equal(time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)))
}

func TestMemorySinkNoWatermarkWhenEmpty(t *testing.T) {
	sink := NewMemorySink(nil)
	_, ok, err := sink.Watermark()
	require.NoError(t, err)
	require.False(t, ok)
}
