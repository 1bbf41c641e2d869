package eventlog

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) *Logger {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.jsonl")
	logger, err := NewLogger(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = logger.Close() })
	return logger
}

func TestLogDetection(t *testing.T) {
	logger := newTestLogger(t)

	err := logger.LogDetection(LowAudio, "alsa:default", "rms",
		[]float64{-50.5, -48.2}, -40, 30*time.Second, "")
	require.NoError(t, err)

	events, hasMore, err := ReadLast(logger.Path(), 10, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.False(t, hasMore)

	event := events[0]
	assert.Equal(t, LowAudio, event.Type)
	assert.Equal(t, "alsa:default", event.Source)
	assert.False(t, event.Timestamp.IsZero())

	// Details round-trip through JSON as a generic map.
	detailsJSON, err := json.Marshal(event.Details)
	require.NoError(t, err)
	var details DetectionDetails
	require.NoError(t, json.Unmarshal(detailsJSON, &details))
	assert.Equal(t, "rms", details.Method)
	assert.Equal(t, []float64{-50.5, -48.2}, details.LevelsDB)
	assert.InDelta(t, -40, details.ThresholdDB, 1e-9)
	assert.InDelta(t, 30, details.TimeoutSecs, 1e-9)
}

func TestReadLastNewestFirst(t *testing.T) {
	logger := newTestLogger(t)

	for i := range 5 {
		require.NoError(t, logger.Log(&Event{
			Type:    SoundDetected,
			Message: string(rune('a' + i)),
		}))
	}

	events, hasMore, err := ReadLast(logger.Path(), 10, 0)
	require.NoError(t, err)
	require.Len(t, events, 5)
	assert.False(t, hasMore)
	assert.Equal(t, "e", events[0].Message)
	assert.Equal(t, "a", events[4].Message)
}

func TestReadLastPagination(t *testing.T) {
	logger := newTestLogger(t)

	for i := range 5 {
		require.NoError(t, logger.Log(&Event{
			Type:    GlitchDetected,
			Message: string(rune('a' + i)),
		}))
	}

	events, hasMore, err := ReadLast(logger.Path(), 2, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.True(t, hasMore)
	assert.Equal(t, "e", events[0].Message)
	assert.Equal(t, "d", events[1].Message)

	events, hasMore, err = ReadLast(logger.Path(), 2, 4)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.False(t, hasMore)
	assert.Equal(t, "a", events[0].Message)
}

func TestReadLastMissingFile(t *testing.T) {
	events, hasMore, err := ReadLast(filepath.Join(t.TempDir(), "absent.jsonl"), 10, 0)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.False(t, hasMore)
}

func TestReadLastSkipsMalformedLines(t *testing.T) {
	logger := newTestLogger(t)
	require.NoError(t, logger.Log(&Event{Type: PipelineStall}))

	// Append a corrupt line directly.
	f := logger.file
	_, err := f.WriteString("not json\n")
	require.NoError(t, err)

	events, _, err := ReadLast(logger.Path(), 10, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, PipelineStall, events[0].Type)
}

func TestLogReport(t *testing.T) {
	logger := newTestLogger(t)

	require.NoError(t, logger.LogReport(ReportUploaded, "reports/events-x.jsonl", 1234, ""))

	events, _, err := ReadLast(logger.Path(), 1, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, ReportUploaded, events[0].Type)
}
