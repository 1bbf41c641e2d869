package detect

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrPipelineStall is returned when the capture pipeline stops emitting
// level messages while the overall detection timeout has not yet been
// reached. It signals a capture malfunction, not an absence of sound.
var ErrPipelineStall = errors.New("audio pipeline stalled")

// ErrInvalidSampleSpec is returned when a sample specification asks for
// more detected samples than the window holds.
var ErrInvalidSampleSpec = errors.New("sound detected samples exceeds considered samples")

// LowAudioError reports that the audio level never sufficiently exceeded
// the threshold within the detection timeout. Levels holds the last
// observed per-channel levels; it is nil when the stream ended before
// yielding a single reading.
type LowAudioError struct {
	Levels      []float64
	ThresholdDB float64
	Timeout     time.Duration
}

func (e *LowAudioError) Error() string {
	return fmt.Sprintf("audio level didn't exceed the %.1f dB threshold within %s",
		e.ThresholdDB, e.Timeout)
}

// GlitchError reports a peak level that exceeded the running-average
// threshold. Levels holds the offending per-channel peak levels and
// ThresholdDB the threshold in effect when they were observed.
type GlitchError struct {
	Levels      []float64
	ThresholdDB float64
}

func (e *GlitchError) Error() string {
	return fmt.Sprintf("audio level exceeded the %.1f dB threshold level", e.ThresholdDB)
}

// formatLevels renders a level tuple for debug logging.
func formatLevels(levels []float64) string {
	parts := make([]string, len(levels))
	for i, l := range levels {
		parts[i] = fmt.Sprintf("%.3f", l)
	}
	return strings.Join(parts, ", ")
}
