package detect

import (
	"fmt"
	"strconv"
	"strings"
)

// SampleSpec describes how many samples within a sliding window must
// exceed the threshold for sound to count as detected.
type SampleSpec struct {
	// Detected is the required number of over-threshold samples.
	Detected int
	// Window is the size of the sliding window of considered samples.
	Window int
}

// Exactly returns a SampleSpec requiring every sample in a window of n
// to exceed the threshold.
func Exactly(n int) SampleSpec {
	return SampleSpec{Detected: n, Window: n}
}

// ParseSampleSpec parses a sample specification string: either a single
// positive integer n (meaning "n out of n") or "x/y" (meaning "at least
// x out of a sliding window of y samples").
func ParseSampleSpec(s string) (SampleSpec, error) {
	s = strings.TrimSpace(s)

	if detected, window, ok := strings.Cut(s, "/"); ok {
		x, err := strconv.Atoi(detected)
		if err != nil {
			return SampleSpec{}, fmt.Errorf("invalid sample spec %q: %w", s, err)
		}
		y, err := strconv.Atoi(window)
		if err != nil {
			return SampleSpec{}, fmt.Errorf("invalid sample spec %q: %w", s, err)
		}
		return SampleSpec{Detected: x, Window: y}, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return SampleSpec{}, fmt.Errorf("invalid sample spec %q: %w", s, err)
	}
	return Exactly(n), nil
}

// validate checks the spec before any stream is opened.
func (s SampleSpec) validate() error {
	if s.Detected <= 0 || s.Window <= 0 {
		return fmt.Errorf("sample spec values must be positive, got %d/%d", s.Detected, s.Window)
	}
	if s.Detected > s.Window {
		return fmt.Errorf("%w: %d/%d", ErrInvalidSampleSpec, s.Detected, s.Window)
	}
	return nil
}

// String returns the spec in "x/y" form.
func (s SampleSpec) String() string {
	return fmt.Sprintf("%d/%d", s.Detected, s.Window)
}
