package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/stblab/audioprobe/internal/audio"
	"github.com/stblab/audioprobe/internal/types"
	"github.com/stblab/audioprobe/internal/util"
)

// meterInterval is the amount of audio accumulated per level message.
const meterInterval = 100 * time.Millisecond

// Config describes the capture graph to build.
type Config struct {
	// FFmpegPath is the path to the FFmpeg binary.
	FFmpegPath string

	// Source is the audio source descriptor in "backend:device" form,
	// e.g. "alsa:default", "pulse:default" or "wav:/path/to/file.wav".
	Source string

	// Sink is the audio sink descriptor. "null" (or empty) discards the
	// audio after metering; any "backend:device" descriptor mirrors it
	// to a playback device.
	Sink string

	// SampleRate and Channels describe the PCM format requested from
	// the source. Zero values fall back to the defaults.
	SampleRate int
	Channels   int
}

func (c *Config) sampleRate() int {
	if c.SampleRate > 0 {
		return c.SampleRate
	}
	return types.DefaultSampleRate
}

func (c *Config) channels() int {
	if c.Channels > 0 {
		return c.Channels
	}
	return types.DefaultChannels
}

// splitDescriptor splits a "backend:rest" descriptor. File-based
// descriptors keep their full path in rest, so only the first colon
// separates.
func splitDescriptor(desc string) (backend, rest string, err error) {
	backend, rest, ok := strings.Cut(desc, ":")
	if !ok || backend == "" {
		return "", "", fmt.Errorf("%w: %q (want \"backend:device\")", ErrInvalidDescriptor, desc)
	}
	return backend, rest, nil
}

// BuildArgs returns the FFmpeg arguments for the configured capture graph:
// source input, S16LE PCM on stdout for metering, and an optional sink
// output.
func BuildArgs(cfg Config) ([]string, error) {
	backend, device, err := splitDescriptor(cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("audio source: %w", err)
	}

	args := []string{"-hide_banner", "-nostats"}

	switch backend {
	case "wav", "file":
		if device == "" {
			return nil, fmt.Errorf("audio source: %w: %q (missing file path)", ErrInvalidDescriptor, cfg.Source)
		}
		// File sources are paced to realtime so timestamps behave like
		// a live capture.
		args = append(args, "-re", "-i", device)
	default:
		if device == "" {
			device = "default"
		}
		args = append(args, "-f", backend, "-i", device)
	}

	args = append(args,
		"-map", "0:a",
		"-f", "s16le",
		"-ar", fmt.Sprintf("%d", cfg.sampleRate()),
		"-ac", fmt.Sprintf("%d", cfg.channels()),
		"pipe:1",
	)

	if cfg.Sink != "" && cfg.Sink != "null" {
		sinkBackend, sinkDevice, err := splitDescriptor(cfg.Sink)
		if err != nil {
			return nil, fmt.Errorf("audio sink: %w", err)
		}
		if sinkDevice == "" {
			sinkDevice = "default"
		}
		args = append(args, "-map", "0:a", "-f", sinkBackend, sinkDevice)
	}

	return args, nil
}

// ffmpegPipeline runs FFmpeg as the capture process and meters its PCM
// output. Level messages are handed to the consumer through a channel of
// capacity 1: if the consumer has not drained the previous message the
// metering goroutine blocks, which in turn stalls the stdout read and
// applies backpressure to the capture process.
type ffmpegPipeline struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc
	stdout io.ReadCloser
	stderr *bytes.Buffer

	sampleRate int
	channels   int

	msgCh  chan *LevelMessage
	stopCh chan struct{}

	stopOnce sync.Once

	mu     sync.Mutex
	runErr error
}

// Start builds and starts the FFmpeg capture graph described by cfg.
func Start(cfg Config) (Pipeline, error) {
	args, err := BuildArgs(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.FFmpegPath == "" {
		return nil, errors.New("ffmpeg binary not available")
	}

	slog.Info("starting audio capture", "source", cfg.Source, "sink", cfg.Sink,
		"sample_rate", cfg.sampleRate(), "channels", cfg.channels())

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, cfg.FFmpegPath, args...)

	// Declarative graceful shutdown: signal first, kill after WaitDelay.
	cmd.Cancel = func() error {
		return util.GracefulSignal(cmd.Process)
	}
	cmd.WaitDelay = types.ShutdownTimeout

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}

	var stderrBuf bytes.Buffer
	cmd.Stderr = &stderrBuf

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	p := &ffmpegPipeline{
		cmd:        cmd,
		cancel:     cancel,
		stdout:     stdoutPipe,
		stderr:     &stderrBuf,
		sampleRate: cfg.sampleRate(),
		channels:   cfg.channels(),
		msgCh:      make(chan *LevelMessage, 1),
		stopCh:     make(chan struct{}),
	}

	go p.run()

	return p, nil
}

// run reads PCM from the capture process, meters it and delivers a level
// message per meterInterval of audio. It closes msgCh when the capture
// process exits so the consumer observes the capture error.
func (p *ffmpegPipeline) run() {
	defer close(p.msgCh)

	frameBytes := p.channels * types.BytesPerSample
	meterFrames := p.sampleRate * int(meterInterval/time.Millisecond) / 1000
	buf := make([]byte, meterFrames*frameBytes)

	data := audio.NewLevelData(p.channels)
	totalFrames := 0

	for {
		n, err := io.ReadFull(p.stdout, buf)
		if n > 0 {
			data.ProcessSamples(buf, n)
		}

		if data.FrameCount >= meterFrames || (err != nil && data.FrameCount > 0) {
			rms, peak := data.Levels()
			totalFrames += data.FrameCount
			data.Reset()

			msg := &LevelMessage{
				Timestamp: time.Duration(totalFrames) * time.Second / time.Duration(p.sampleRate),
				RMS:       rms,
				Peak:      peak,
			}

			select {
			case p.msgCh <- msg:
			case <-p.stopCh:
				p.finish(nil)
				return
			}
		}

		if err != nil {
			p.finish(err)
			return
		}

		select {
		case <-p.stopCh:
			p.finish(nil)
			return
		default:
		}
	}
}

// finish waits for the capture process and records the first run error.
func (p *ffmpegPipeline) finish(readErr error) {
	waitErr := p.cmd.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.runErr != nil {
		return
	}

	select {
	case <-p.stopCh:
		// Consumer-initiated stop; the process exit is expected.
		return
	default:
	}

	switch {
	case readErr != nil && !errors.Is(readErr, io.EOF) && !errors.Is(readErr, io.ErrUnexpectedEOF):
		p.runErr = fmt.Errorf("capture read: %w", readErr)
	case waitErr != nil:
		if last := util.ExtractLastError(p.stderr.String()); last != "" {
			p.runErr = fmt.Errorf("capture process failed: %s", last)
		} else {
			p.runErr = fmt.Errorf("capture process failed: %w", waitErr)
		}
	default:
		p.runErr = errors.New("capture process exited")
	}
}

// NextLevelMessage implements Pipeline.
func (p *ffmpegPipeline) NextLevelMessage(pollTimeout time.Duration) (*LevelMessage, error) {
	timer := time.NewTimer(pollTimeout)
	defer timer.Stop()

	select {
	case msg, ok := <-p.msgCh:
		if !ok {
			p.mu.Lock()
			defer p.mu.Unlock()
			if p.runErr != nil {
				return nil, p.runErr
			}
			return nil, errors.New("capture pipeline stopped")
		}
		return msg, nil
	case <-timer.C:
		return nil, ErrNoMessage
	}
}

// Stop implements Pipeline. It transitions the capture process to a
// stopped state exactly once and always returns nil: a consumer stop
// makes the process exit expected, and capture failures before the stop
// surface through NextLevelMessage.
func (p *ffmpegPipeline) Stop() error {
	p.stopOnce.Do(func() {
		close(p.stopCh)
		p.cancel()

		// Drain so the metering goroutine can observe stopCh even if it
		// is mid-send.
		for range p.msgCh {
		}

		slog.Info("audio capture stopped")
	})
	return nil
}
