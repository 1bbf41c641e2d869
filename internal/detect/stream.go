package detect

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/stblab/audioprobe/internal/capture"
)

// Method selects which level measurement a stream yields.
type Method string

const (
	// MethodRMS yields root-mean-square levels, used for sustained-sound
	// detection.
	MethodRMS Method = "rms"
	// MethodPeak yields peak levels, used for glitch detection.
	MethodPeak Method = "peak"
)

// DefaultPollTimeout bounds the wait for a single level message. A
// pipeline that is alive emits a message every ~100 ms; exceeding this
// bound means the capture has silently stopped and is treated as fatal.
const DefaultPollTimeout = 2 * time.Second

// OpenFunc builds and starts a capture pipeline.
type OpenFunc func() (capture.Pipeline, error)

// LevelReading is one per-channel level measurement in dB.
type LevelReading struct {
	Timestamp time.Duration
	Levels    []float64
}

// LevelStream is a lazy, time-bounded sequence of level readings pulled
// from a capture pipeline. The stream ends once a reading's timestamp
// exceeds the timeout relative to the first reading; that reading is not
// yielded. Close must be called on every exit path; it stops the
// underlying pipeline exactly once.
type LevelStream struct {
	pipeline    capture.Pipeline
	method      Method
	timeout     time.Duration
	pollTimeout time.Duration

	started bool
	start   time.Duration

	closeOnce sync.Once
	closeErr  error
}

// OpenLevelStream starts a capture pipeline via open and returns a
// stream of its level readings, measured with the given method and
// bounded by timeout.
func OpenLevelStream(open OpenFunc, method Method, timeout time.Duration) (*LevelStream, error) {
	pipeline, err := open()
	if err != nil {
		return nil, fmt.Errorf("open capture pipeline: %w", err)
	}
	return &LevelStream{
		pipeline:    pipeline,
		method:      method,
		timeout:     timeout,
		pollTimeout: DefaultPollTimeout,
	}, nil
}

// Next returns the next level reading. ok is false when the stream is
// exhausted (timeout reached); err is non-nil when the capture pipeline
// stalled or failed.
func (s *LevelStream) Next() (reading LevelReading, ok bool, err error) {
	msg, err := s.pipeline.NextLevelMessage(s.pollTimeout)
	if err != nil {
		if errors.Is(err, capture.ErrNoMessage) {
			return LevelReading{}, false, fmt.Errorf("%w: no level message within %s", ErrPipelineStall, s.pollTimeout)
		}
		return LevelReading{}, false, err
	}

	if !s.started {
		s.started = true
		s.start = msg.Timestamp
	}
	if msg.Timestamp-s.start > s.timeout {
		return LevelReading{}, false, nil
	}

	levels := msg.RMS
	if s.method == MethodPeak {
		levels = msg.Peak
	}

	slog.Debug("level reading", "timestamp", msg.Timestamp, "method", s.method,
		"levels", formatLevels(levels))

	return LevelReading{Timestamp: msg.Timestamp, Levels: levels}, true, nil
}

// Close stops the underlying capture pipeline. It is idempotent; later
// calls return the first result.
func (s *LevelStream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.pipeline.Stop()
	})
	return s.closeErr
}
