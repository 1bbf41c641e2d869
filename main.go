// Package main provides a command-line audio probe that captures audio
// from a configured source and checks it for sound presence and
// glitches.
//
// Usage:
//
//	audioprobe [-config path/to/config.json] [-debug] <command> [flags]
//
// Commands:
//
//	wait-sound     wait until sound is detected on the source
//	no-glitch      verify the source stays free of glitches
//	mean-level     measure the mean RMS level of the source
//	monitor        serve live level readings over WebSocket
//	upload-report  upload the detection event log to S3
//
// If -config is not specified, the probe looks for config.json in the
// same directory as the binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/stblab/audioprobe/internal/capture"
	"github.com/stblab/audioprobe/internal/config"
	"github.com/stblab/audioprobe/internal/detect"
	"github.com/stblab/audioprobe/internal/eventlog"
	"github.com/stblab/audioprobe/internal/monitor"
	"github.com/stblab/audioprobe/internal/notify"
	"github.com/stblab/audioprobe/internal/report"
	"github.com/stblab/audioprobe/internal/util"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: config.json next to binary)")
	showVersion := flag.Bool("version", false, "Print version information and exit")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	if *showVersion {
		info, err := CheckLatest(context.Background())
		if err != nil {
			slog.Warn("update check failed", "error", err)
		}
		slog.Info("version info", "version", info.Current, "commit", info.Commit,
			"build_time", info.BuildTime, "latest", info.Latest, "update_available", info.UpdateAvail)
		return
	}

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: audioprobe [flags] <wait-sound|no-glitch|mean-level|monitor|upload-report> [command flags]")
		os.Exit(2)
	}

	if *configPath == "" {
		execPath, err := os.Executable()
		if err != nil {
			slog.Error("failed to get executable path", "error", err)
			os.Exit(1)
		}
		*configPath = filepath.Join(filepath.Dir(execPath), "config.json")
	}

	cfg := config.New(*configPath)
	if err := cfg.Load(); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	probe, err := newApp(cfg)
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	command := flag.Arg(0)
	args := flag.Args()[1:]

	var runErr error
	switch command {
	case "wait-sound":
		runErr = probe.runWaitSound(args)
	case "no-glitch":
		runErr = probe.runNoGlitch(args)
	case "mean-level":
		runErr = probe.runMeanLevel(args)
	case "monitor":
		runErr = probe.runMonitor()
	case "upload-report":
		runErr = probe.runUploadReport(args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", command)
		os.Exit(2)
	}

	// os.Exit skips deferred calls, so close explicitly.
	probe.close()
	if runErr != nil {
		os.Exit(1)
	}
}

// app wires the detector, event log and notifications together.
type app struct {
	cfg      *config.Config
	snap     config.Snapshot
	open     detect.OpenFunc
	detector *detect.Detector
	notifier *notify.Notifier
	events   *eventlog.Logger
}

func newApp(cfg *config.Config) (*app, error) {
	snap := cfg.Snapshot()

	ffmpegPath := util.ResolveFFmpegPath(snap.FFmpegPath)
	if ffmpegPath == "" {
		return nil, fmt.Errorf("FFmpeg not found (configured path %q)", snap.FFmpegPath)
	}
	slog.Debug("FFmpeg found", "path", ffmpegPath)

	open := func() (capture.Pipeline, error) {
		return capture.Start(capture.Config{
			FFmpegPath: ffmpegPath,
			Source:     snap.AudioSource,
			Sink:       snap.AudioSink,
			SampleRate: snap.SampleRate,
			Channels:   snap.Channels,
		})
	}

	a := &app{
		cfg:      cfg,
		snap:     snap,
		open:     open,
		detector: detect.New(snap.NoiseLevelDB, open),
		notifier: notify.NewNotifier(cfg),
	}

	if snap.HasEventLog() {
		events, err := eventlog.NewLogger(snap.EventLogPath)
		if err != nil {
			return nil, util.WrapError("open event log", err)
		}
		a.events = events
	}

	return a, nil
}

func (a *app) close() {
	if a.events != nil {
		if err := a.events.Close(); err != nil {
			slog.Warn("failed to close event log", "error", err)
		}
	}
}

// logEvent writes a detection event when the event log is configured.
func (a *app) logEvent(eventType eventlog.EventType, method string, levels []float64, thresholdDB float64, timeout time.Duration, errMsg string) {
	if a.events == nil {
		return
	}
	if err := a.events.LogDetection(eventType, a.snap.AudioSource, method, levels, thresholdDB, timeout, errMsg); err != nil {
		slog.Warn("failed to write event log", "error", err)
	}
}

func (a *app) runWaitSound(args []string) error {
	fs := flag.NewFlagSet("wait-sound", flag.ExitOnError)
	timeout := fs.Duration("timeout", 60*time.Second, "How long to wait for sound")
	samplesSpec := fs.String("samples", "1", "Samples over threshold required, as n or x/y")
	threshold := fs.Float64("threshold", 20, "Margin above the noise floor in dB")
	_ = fs.Parse(args) //nolint:errcheck // ExitOnError flag set exits on parse failure

	samples, err := detect.ParseSampleSpec(*samplesSpec)
	if err != nil {
		slog.Error("invalid samples flag", "error", err)
		return err
	}

	levels, err := a.detector.WaitForSound(*timeout, samples, *threshold)
	if err != nil {
		var lowAudio *detect.LowAudioError
		switch {
		case errors.As(err, &lowAudio):
			slog.Error("no sound detected", "levels", lowAudio.Levels,
				"threshold_db", lowAudio.ThresholdDB, "timeout", lowAudio.Timeout)
			a.logEvent(eventlog.LowAudio, "rms", lowAudio.Levels, lowAudio.ThresholdDB, lowAudio.Timeout, "")
			a.notifier.NotifyLowAudio(lowAudio.Levels, lowAudio.ThresholdDB, lowAudio.Timeout)
		case errors.Is(err, detect.ErrPipelineStall):
			slog.Error("capture pipeline stalled", "error", err)
			a.logEvent(eventlog.PipelineStall, "rms", nil, 0, *timeout, err.Error())
			a.notifier.NotifyStall(err.Error())
		default:
			slog.Error("sound detection failed", "error", err)
		}
		return err
	}

	slog.Info("sound detected", "levels", levels)
	a.logEvent(eventlog.SoundDetected, "rms", levels, a.detector.NoiseFloorDB()+*threshold, *timeout, "")
	return nil
}

func (a *app) runNoGlitch(args []string) error {
	fs := flag.NewFlagSet("no-glitch", flag.ExitOnError)
	timeout := fs.Duration("timeout", 60*time.Second, "How long to watch for glitches")
	threshold := fs.Float64("threshold", 5, "Margin above the running average peak in dB")
	minSamples := fs.Int("min-samples", 10, "Readings used to establish the average before checking")
	_ = fs.Parse(args) //nolint:errcheck // ExitOnError flag set exits on parse failure

	err := a.detector.EnsureNoGlitch(*timeout, *threshold, *minSamples)
	if err != nil {
		var glitch *detect.GlitchError
		switch {
		case errors.As(err, &glitch):
			slog.Error("glitch detected", "levels", glitch.Levels, "threshold_db", glitch.ThresholdDB)
			a.logEvent(eventlog.GlitchDetected, "peak", glitch.Levels, glitch.ThresholdDB, *timeout, "")
			a.notifier.NotifyGlitch(glitch.Levels, glitch.ThresholdDB)
		case errors.Is(err, detect.ErrPipelineStall):
			slog.Error("capture pipeline stalled", "error", err)
			a.logEvent(eventlog.PipelineStall, "peak", nil, 0, *timeout, err.Error())
			a.notifier.NotifyStall(err.Error())
		default:
			slog.Error("glitch detection failed", "error", err)
		}
		return err
	}

	slog.Info("no glitches detected", "duration", *timeout)
	return nil
}

func (a *app) runMeanLevel(args []string) error {
	fs := flag.NewFlagSet("mean-level", flag.ExitOnError)
	timeout := fs.Duration("timeout", 10*time.Second, "How long to measure")
	_ = fs.Parse(args) //nolint:errcheck // ExitOnError flag set exits on parse failure

	level, err := a.detector.MeanLevel(*timeout)
	if err != nil {
		slog.Error("level measurement failed", "error", err)
		return err
	}

	slog.Info("mean level measured", "level_db", fmt.Sprintf("%.2f", level), "duration", *timeout)
	fmt.Printf("%.2f\n", level)
	return nil
}

func (a *app) runMonitor() error {
	srv := monitor.NewServer(a.snap.MonitorPort, a.open)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run() }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, util.ShutdownSignals()...)

	select {
	case err := <-errCh:
		if err != nil {
			slog.Error("monitor server failed", "error", err)
		}
		return err
	case <-sigChan:
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("monitor server shutdown error", "error", err)
			return err
		}
		return nil
	}
}

func (a *app) runUploadReport(args []string) error {
	fs := flag.NewFlagSet("upload-report", flag.ExitOnError)
	testConn := fs.Bool("test", false, "Test S3 connectivity and exit without uploading")
	_ = fs.Parse(args) //nolint:errcheck // ExitOnError flag set exits on parse failure

	if !a.snap.HasReportUpload() {
		err := errors.New("S3 report upload not configured")
		slog.Error("cannot upload report", "error", err)
		return err
	}

	s3cfg := &report.S3Config{
		Endpoint:        a.snap.S3Endpoint,
		Bucket:          a.snap.S3Bucket,
		AccessKeyID:     a.snap.S3AccessKeyID,
		SecretAccessKey: a.snap.S3SecretAccessKey,
		Prefix:          a.snap.S3Prefix,
	}

	if *testConn {
		if err := report.TestConnection(s3cfg); err != nil {
			slog.Error("S3 connection test failed", "error", err)
			return err
		}
		slog.Info("S3 connection test succeeded", "bucket", a.snap.S3Bucket)
		return nil
	}

	if !a.snap.HasEventLog() {
		err := errors.New("event log path not configured")
		slog.Error("cannot upload report", "error", err)
		return err
	}

	key, size, err := report.UploadEventLog(s3cfg, a.snap.EventLogPath)
	if err != nil {
		slog.Error("report upload failed", "error", err)
		if a.events != nil {
			_ = a.events.LogReport(eventlog.ReportUploadFailed, "", 0, err.Error())
		}
		return err
	}

	if a.events != nil {
		_ = a.events.LogReport(eventlog.ReportUploaded, key, size, "")
	}
	return nil
}
