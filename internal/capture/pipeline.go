// Package capture builds and runs the audio capture pipeline that feeds
// level readings to the detectors. The pipeline is an external FFmpeg
// process reading from the configured audio source; its PCM output is
// metered in roughly 100 ms windows and delivered as level messages
// through a one-slot handoff channel.
package capture

import (
	"errors"
	"time"
)

// ErrNoMessage is returned by NextLevelMessage when no level message
// arrives within the poll timeout.
var ErrNoMessage = errors.New("no level message within poll timeout")

// ErrInvalidDescriptor is returned when a source or sink descriptor
// cannot be parsed.
var ErrInvalidDescriptor = errors.New("invalid pipeline descriptor")

// LevelMessage is one level measurement emitted by a running pipeline.
type LevelMessage struct {
	// Timestamp is the time elapsed since the pipeline produced its
	// first sample, derived from the sample counter (monotonic).
	Timestamp time.Duration

	// RMS and Peak hold one level in dB per audio channel.
	RMS  []float64
	Peak []float64
}

// Pipeline is a running capture graph that measures audio levels.
// A Pipeline supports a single consumer; concurrent detector calls must
// each start their own pipeline instance. Whether the underlying audio
// device allows concurrent capture is device-dependent and not enforced
// here.
type Pipeline interface {
	// NextLevelMessage blocks until the next level message is available
	// or pollTimeout expires, in which case it returns ErrNoMessage.
	// Once the capture process has died it returns the capture error.
	NextLevelMessage(pollTimeout time.Duration) (*LevelMessage, error)

	// Stop tears the pipeline down. It is idempotent and must be called
	// exactly when the consumer is done, regardless of how consumption
	// ended.
	Stop() error
}
