package detect

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stblab/audioprobe/internal/capture"
)

func TestOpenLevelStreamOpenError(t *testing.T) {
	openErr := errors.New("device busy")
	_, err := OpenLevelStream(func() (capture.Pipeline, error) {
		return nil, openErr
	}, MethodRMS, time.Second)

	require.ErrorIs(t, err, openErr)
}

func TestLevelStreamStall(t *testing.T) {
	pipeline := &mockPipeline{}
	stream, err := OpenLevelStream((&mockOpener{pipeline: pipeline}).open, MethodRMS, time.Second)
	require.NoError(t, err)
	defer stream.Close() //nolint:errcheck // Test cleanup

	_, _, err = stream.Next()

	require.ErrorIs(t, err, ErrPipelineStall)
}

func TestLevelStreamTimeoutBoundary(t *testing.T) {
	// Timestamps are measured relative to the first reading. A reading
	// exactly at the timeout is still yielded; the first one past it
	// ends the stream and is discarded.
	pipeline := &mockPipeline{msgs: []*capture.LevelMessage{
		{Timestamp: 500 * time.Millisecond, RMS: []float64{-10}, Peak: []float64{-5}},
		{Timestamp: 1500 * time.Millisecond, RMS: []float64{-11}, Peak: []float64{-6}},
		{Timestamp: 1501 * time.Millisecond, RMS: []float64{-12}, Peak: []float64{-7}},
	}}
	stream, err := OpenLevelStream((&mockOpener{pipeline: pipeline}).open, MethodRMS, time.Second)
	require.NoError(t, err)
	defer stream.Close() //nolint:errcheck // Test cleanup

	reading, ok, err := stream.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []float64{-10}, reading.Levels)

	reading, ok, err = stream.Next()
	require.NoError(t, err)
	require.True(t, ok, "a reading exactly at the timeout is within bounds")
	assert.Equal(t, []float64{-11}, reading.Levels)

	_, ok, err = stream.Next()
	require.NoError(t, err)
	assert.False(t, ok, "the reading past the timeout must end the stream, not be yielded")
}

func TestLevelStreamMethodSelection(t *testing.T) {
	msgs := func() []*capture.LevelMessage {
		return []*capture.LevelMessage{
			{Timestamp: 0, RMS: []float64{-20}, Peak: []float64{-3}},
		}
	}

	tests := []struct {
		method Method
		want   []float64
	}{
		{MethodRMS, []float64{-20}},
		{MethodPeak, []float64{-3}},
	}

	for _, tt := range tests {
		t.Run(string(tt.method), func(t *testing.T) {
			pipeline := &mockPipeline{msgs: msgs()}
			stream, err := OpenLevelStream((&mockOpener{pipeline: pipeline}).open, tt.method, time.Second)
			require.NoError(t, err)
			defer stream.Close() //nolint:errcheck // Test cleanup

			reading, ok, err := stream.Next()
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, tt.want, reading.Levels)
		})
	}
}

func TestLevelStreamCloseIdempotent(t *testing.T) {
	pipeline := &mockPipeline{}
	stream, err := OpenLevelStream((&mockOpener{pipeline: pipeline}).open, MethodRMS, time.Second)
	require.NoError(t, err)

	require.NoError(t, stream.Close())
	require.NoError(t, stream.Close())
	require.NoError(t, stream.Close())

	assert.Equal(t, 1, pipeline.stops, "the pipeline must be stopped exactly once")
}
