// Package audio provides PCM level metering utilities.
package audio

import (
	"encoding/binary"
	"math"
)

const (
	// MinDB is the minimum dB level (silence).
	MinDB = -60.0
	// MaxSampleValue is the maximum absolute value for 16-bit signed audio.
	MaxSampleValue = 32768.0
)

// LevelData holds raw sample accumulator data for level calculation.
// Samples are accumulated per channel from interleaved S16LE PCM.
type LevelData struct {
	SumSquares []float64
	Peaks      []float64
	FrameCount int
	channels   int
}

// NewLevelData returns a LevelData accumulator for the given channel count.
func NewLevelData(channels int) *LevelData {
	return &LevelData{
		SumSquares: make([]float64, channels),
		Peaks:      make([]float64, channels),
		channels:   channels,
	}
}

// Channels returns the number of audio channels being metered.
func (d *LevelData) Channels() int {
	return d.channels
}

// ProcessSamples processes interleaved S16LE PCM data and accumulates level data.
// One frame is one sample per channel; trailing partial frames are ignored.
func (d *LevelData) ProcessSamples(buf []byte, n int) {
	frameBytes := d.channels * 2
	for i := 0; i+frameBytes-1 < n; i += frameBytes {
		for ch := 0; ch < d.channels; ch++ {
			sample := float64(int16(binary.LittleEndian.Uint16(buf[i+ch*2:])))
			d.SumSquares[ch] += sample * sample
			if abs := math.Abs(sample); abs > d.Peaks[ch] {
				d.Peaks[ch] = abs
			}
		}
		d.FrameCount++
	}
}

// Levels computes per-channel RMS and peak levels in dB from accumulated data.
// With no accumulated frames both slices are filled with MinDB.
func (d *LevelData) Levels() (rms, peak []float64) {
	rms = make([]float64, d.channels)
	peak = make([]float64, d.channels)

	if d.FrameCount == 0 {
		for ch := range rms {
			rms[ch] = MinDB
			peak[ch] = MinDB
		}
		return rms, peak
	}

	for ch := 0; ch < d.channels; ch++ {
		rmsRaw := math.Sqrt(d.SumSquares[ch] / float64(d.FrameCount))

		// Convert to dB (reference: MaxSampleValue for 16-bit audio)
		rms[ch] = max(20*math.Log10(rmsRaw/MaxSampleValue), MinDB)
		peak[ch] = max(20*math.Log10(d.Peaks[ch]/MaxSampleValue), MinDB)
	}
	return rms, peak
}

// Reset resets accumulators for the next measurement period.
func (d *LevelData) Reset() {
	d.FrameCount = 0
	for ch := 0; ch < d.channels; ch++ {
		d.SumSquares[ch] = 0
		d.Peaks[ch] = 0
	}
}
