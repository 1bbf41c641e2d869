// Package eventlog provides unified event logging for the audio probe.
// It captures detection outcomes (sound_detected, low_audio,
// glitch_detected, pipeline_stall) and report uploads in a single JSON
// lines file.
package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType represents the type of event.
type EventType string

// Detection event types.
const (
	SoundDetected  EventType = "sound_detected"
	LowAudio       EventType = "low_audio"
	GlitchDetected EventType = "glitch_detected"
	PipelineStall  EventType = "pipeline_stall"
)

// Report event types.
const (
	ReportUploaded     EventType = "report_uploaded"
	ReportUploadFailed EventType = "report_upload_failed"
)

// Event represents a single log entry with type-specific details.
type Event struct {
	Timestamp time.Time `json:"ts"`
	Type      EventType `json:"type"`
	Source    string    `json:"source,omitempty"`
	Message   string    `json:"msg,omitempty"`
	Details   any       `json:"details,omitempty"`
}

// DetectionDetails contains detection-specific event details.
type DetectionDetails struct {
	Method      string    `json:"method,omitempty"`
	LevelsDB    []float64 `json:"levels_db,omitempty"`
	ThresholdDB float64   `json:"threshold_db,omitempty"`
	TimeoutSecs float64   `json:"timeout_secs,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// ReportDetails contains report upload event details.
type ReportDetails struct {
	S3Key     string `json:"s3_key,omitempty"`
	SizeBytes int64  `json:"size_bytes,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Logger writes events to a JSON lines file.
type Logger struct {
	mu       sync.Mutex
	filePath string
	file     *os.File
	encoder  *json.Encoder
}

// NewLogger creates a new event logger at the specified path.
func NewLogger(filePath string) (*Logger, error) {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	return &Logger{
		filePath: filePath,
		file:     file,
		encoder:  json.NewEncoder(file),
	}, nil
}

// Log writes an event to the log file.
func (l *Logger) Log(event *Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	return l.encoder.Encode(event)
}

// LogDetection logs a detection outcome.
func (l *Logger) LogDetection(eventType EventType, source, method string, levels []float64, thresholdDB float64, timeout time.Duration, errMsg string) error {
	return l.Log(&Event{
		Timestamp: time.Now(),
		Type:      eventType,
		Source:    source,
		Details: &DetectionDetails{
			Method:      method,
			LevelsDB:    levels,
			ThresholdDB: thresholdDB,
			TimeoutSecs: timeout.Seconds(),
			Error:       errMsg,
		},
	})
}

// LogReport logs a report upload result.
func (l *Logger) LogReport(eventType EventType, s3Key string, size int64, errMsg string) error {
	return l.Log(&Event{
		Timestamp: time.Now(),
		Type:      eventType,
		Details: &ReportDetails{
			S3Key:     s3Key,
			SizeBytes: size,
			Error:     errMsg,
		},
	})
}

// Close closes the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Path returns the path to the log file.
func (l *Logger) Path() string {
	return l.filePath
}

// MaxReadLimit is the maximum number of events that can be read at once.
const MaxReadLimit = 500

// ReadLast reads up to n events starting from offset, newest first.
// It reports whether more events remain beyond the returned page.
func ReadLast(filePath string, n, offset int) ([]Event, bool, error) {
	if n > MaxReadLimit {
		n = MaxReadLimit
	}
	if n <= 0 {
		return []Event{}, false, nil
	}

	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []Event{}, false, nil
		}
		return nil, false, err
	}
	defer file.Close() //nolint:errcheck // Read-only operation, close error not critical

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, false, err
	}

	events := make([]Event, 0, n)
	skipped := 0
	hasMore := false
	for i := len(lines) - 1; i >= 0; i-- {
		var event Event
		if err := json.Unmarshal([]byte(lines[i]), &event); err != nil {
			continue // Skip malformed lines
		}

		if skipped < offset {
			skipped++
			continue
		}

		if len(events) >= n {
			hasMore = true
			break
		}
		events = append(events, event)
	}

	return events, hasMore, nil
}
