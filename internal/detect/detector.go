// Package detect implements sound presence and glitch detection over a
// stream of audio level readings produced by a capture pipeline.
//
// Both detectors make a single pass over an independent, time-bounded
// level stream: WaitForSound looks for RMS levels that sufficiently
// exceed a noise floor within a sliding window, EnsureNoGlitch watches
// peak levels against a continuously refined running average. Each call
// opens its own pipeline; no retries are performed internally.
package detect

import (
	"errors"
	"log/slog"
	"math"
	"time"
)

// Detector runs sound and glitch detection against a capture pipeline.
type Detector struct {
	noiseFloorDB float64
	open         OpenFunc
}

// New returns a Detector that opens capture pipelines with open and
// treats noiseFloorDB as the background noise level of the source.
func New(noiseFloorDB float64, open OpenFunc) *Detector {
	return &Detector{noiseFloorDB: noiseFloorDB, open: open}
}

// WaitForSound detects whether sound is present in the source audio
// stream. It returns the per-channel RMS levels of the reading that
// completed detection.
//
// Sound counts as detected once at least samples.Detected readings out
// of a sliding window of samples.Window have any channel at or above
// the effective threshold (noise floor + thresholdDB margin). If that
// does not happen within timeout, a *LowAudioError is returned carrying
// the last observed levels (nil if the stream yielded no readings at
// all), the effective threshold and the timeout.
func (d *Detector) WaitForSound(timeout time.Duration, samples SampleSpec, thresholdDB float64) ([]float64, error) {
	if err := samples.validate(); err != nil {
		return nil, err
	}

	thresholdLevel := thresholdDB + d.noiseFloorDB

	slog.Debug("waiting for sound", "detected", samples.Detected,
		"window", samples.Window, "threshold_db", thresholdLevel)

	stream, err := OpenLevelStream(d.open, MethodRMS, timeout)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = stream.Close() //nolint:errcheck // Best-effort cleanup; detection result already decided
	}()

	window := newBoolWindow(samples.Window)
	var lastLevels []float64

	for {
		reading, ok, err := stream.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}

		lastLevels = reading.Levels
		window.Push(anyAtOrAbove(reading.Levels, thresholdLevel))

		if window.TrueCount() >= samples.Detected {
			slog.Debug("sound detected", "levels", formatLevels(reading.Levels))
			return reading.Levels, nil
		}
	}

	return nil, &LowAudioError{
		Levels:      lastLevels,
		ThresholdDB: thresholdLevel,
		Timeout:     timeout,
	}
}

// EnsureNoGlitch detects glitches (momentary deviations from the average
// audio level) in the source audio stream. It returns nil if no glitch
// is observed within timeout.
//
// The average peak level is established from the first minSamples
// readings and refined continuously afterwards. A reading whose peak on
// any channel exceeds thresholdDB above the average computed from all
// PRECEDING readings fails with a *GlitchError. Assumes the source
// programme's channels are normalised, so high peaks indicate a defect.
func (d *Detector) EnsureNoGlitch(timeout time.Duration, thresholdDB float64, minSamples int) error {
	slog.Debug("detecting glitches in the audio stream",
		"threshold_db", thresholdDB, "min_samples", minSamples)

	stream, err := OpenLevelStream(d.open, MethodPeak, timeout)
	if err != nil {
		return err
	}
	defer func() {
		_ = stream.Close() //nolint:errcheck // Best-effort cleanup; detection result already decided
	}()

	var (
		sumLevels      float64
		numSamples     int
		thresholdLevel = math.Inf(1)
	)

	for {
		reading, ok, err := stream.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		if numSamples > minSamples && anyAbove(reading.Levels, thresholdLevel) {
			return &GlitchError{Levels: reading.Levels, ThresholdDB: thresholdLevel}
		}

		sumLevels += mean(reading.Levels)
		numSamples++
		thresholdLevel = thresholdDB + sumLevels/float64(numSamples)
	}
}

// MeanLevel measures the mean RMS level of the source over timeout,
// averaged across channels and readings. It is intended for calibrating
// the noise floor against a muted source.
func (d *Detector) MeanLevel(timeout time.Duration) (float64, error) {
	stream, err := OpenLevelStream(d.open, MethodRMS, timeout)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = stream.Close() //nolint:errcheck // Best-effort cleanup; measurement already decided
	}()

	var (
		sumLevels  float64
		numSamples int
	)

	for {
		reading, ok, err := stream.Next()
		if err != nil {
			return 0, err
		}
		if !ok {
			break
		}
		sumLevels += mean(reading.Levels)
		numSamples++
	}

	if numSamples == 0 {
		return 0, errors.New("no level readings received")
	}
	return sumLevels / float64(numSamples), nil
}

// NoiseFloorDB returns the configured background noise level.
func (d *Detector) NoiseFloorDB() float64 {
	return d.noiseFloorDB
}

func anyAtOrAbove(levels []float64, threshold float64) bool {
	for _, l := range levels {
		if l >= threshold {
			return true
		}
	}
	return false
}

func anyAbove(levels []float64, threshold float64) bool {
	for _, l := range levels {
		if l > threshold {
			return true
		}
	}
	return false
}

func mean(levels []float64) float64 {
	if len(levels) == 0 {
		return 0
	}
	var sum float64
	for _, l := range levels {
		sum += l
	}
	return sum / float64(len(levels))
}
