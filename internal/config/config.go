// Package config provides application configuration management.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/stblab/audioprobe/internal/types"
	"github.com/stblab/audioprobe/internal/util"
)

// Configuration defaults are used when values are not specified.
const (
	DefaultAudioSource  = "alsa:default"
	DefaultAudioSink    = "null"
	DefaultNoiseLevelDB = -60.0
	DefaultMonitorPort  = 8090
)

// validate is the shared validator instance for configuration validation.
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Use JSON tag names in error messages instead of struct field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return fld.Name
		}
		return name
	})
}

// SystemConfig holds system-level settings.
type SystemConfig struct {
	FFmpegPath   string `json:"ffmpeg_path"`                              // Path to FFmpeg binary (empty = use PATH)
	EventLogPath string `json:"event_log_path" validate:"omitempty,max=4096"` // JSONL detection event log (empty = disabled)
}

// AudioConfig holds the capture graph and calibration settings.
type AudioConfig struct {
	Source       string  `json:"source" validate:"required,max=512"`        // Source descriptor, e.g. "alsa:default"
	Sink         string  `json:"sink" validate:"omitempty,max=512"`         // Sink descriptor, "null" discards
	NoiseLevelDB float64 `json:"noise_level_db" validate:"gte=-120,lte=0"`  // Background noise level in dB
	SampleRate   int     `json:"sample_rate" validate:"gte=8000,lte=192000"` // Capture sample rate in Hz
	Channels     int     `json:"channels" validate:"gte=1,lte=8"`           // Capture channel count
}

// MonitorConfig holds the live level monitor server settings.
type MonitorConfig struct {
	Port int `json:"port" validate:"gte=1,lte=65535"` // HTTP/WebSocket server port
}

// WebhookConfig holds webhook notification settings.
type WebhookConfig struct {
	URL string `json:"url" validate:"omitempty,max=2048"` // Webhook URL for detection alerts
}

// EmailConfig holds Microsoft Graph email notification settings.
type EmailConfig struct {
	TenantID     string `json:"tenant_id" validate:"omitempty,max=100"`    // Azure AD tenant ID
	ClientID     string `json:"client_id" validate:"omitempty,max=100"`    // App registration client ID
	ClientSecret string `json:"client_secret" validate:"omitempty,max=500"` // App registration client secret
	FromAddress  string `json:"from_address" validate:"omitempty,max=254"` // Shared mailbox sender address
	Recipients   string `json:"recipients" validate:"omitempty,max=1000"`  // Comma-separated recipient addresses
}

// NotificationsConfig holds all notification channel settings.
type NotificationsConfig struct {
	Webhook WebhookConfig `json:"webhook"` // Webhook settings
	Email   EmailConfig   `json:"email"`   // Email settings
}

// ReportConfig holds S3 report upload settings.
type ReportConfig struct {
	S3Endpoint        string `json:"s3_endpoint" validate:"omitempty,max=2048"`          // S3-compatible endpoint URL
	S3Bucket          string `json:"s3_bucket" validate:"omitempty,max=63"`              // S3 bucket name
	S3AccessKeyID     string `json:"s3_access_key_id" validate:"omitempty,max=128"`      // S3 access key ID
	S3SecretAccessKey string `json:"s3_secret_access_key" validate:"omitempty,max=256"`  // S3 secret access key
	S3Prefix          string `json:"s3_prefix" validate:"omitempty,max=512"`             // Key prefix for uploaded reports
}

// Config holds all application configuration. It is safe for concurrent use.
type Config struct {
	System        SystemConfig        `json:"system"`
	Audio         AudioConfig         `json:"audio"`
	Monitor       MonitorConfig       `json:"monitor"`
	Notifications NotificationsConfig `json:"notifications"`
	Report        ReportConfig        `json:"report"`

	mu       sync.RWMutex
	filePath string
}

// New creates a new Config with default values.
func New(filePath string) *Config {
	return &Config{
		Audio: AudioConfig{
			Source:       DefaultAudioSource,
			Sink:         DefaultAudioSink,
			NoiseLevelDB: DefaultNoiseLevelDB,
			SampleRate:   types.DefaultSampleRate,
			Channels:     types.DefaultChannels,
		},
		Monitor:  MonitorConfig{Port: DefaultMonitorPort},
		filePath: filePath,
	}
}

// Load reads config from file, creating a default if none exists.
func (c *Config) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.filePath)
	if os.IsNotExist(err) {
		return c.saveLocked()
	}
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	// New seeds every default, so unmarshalling overlays only the keys
	// the file actually sets. An explicit zero (a deliberate
	// "noise_level_db": 0 ceiling) therefore survives loading.
	if err := json.Unmarshal(data, c); err != nil {
		return util.WrapError("parse config", err)
	}

	if err := validate.Struct(c); err != nil {
		return util.WrapError("validate config", err)
	}

	return nil
}

// saveLocked persists configuration. Caller must hold c.mu.
func (c *Config) saveLocked() error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return util.WrapError("marshal config", err)
	}

	dir := filepath.Dir(c.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return util.WrapError("create config directory", err)
	}

	if err := os.WriteFile(c.filePath, data, 0o600); err != nil {
		return util.WrapError("write config", err)
	}

	return nil
}

// --- Snapshot for atomic reads ---

// Snapshot is a point-in-time copy of configuration values.
type Snapshot struct {
	// System
	FFmpegPath   string
	EventLogPath string

	// Audio
	AudioSource  string
	AudioSink    string
	NoiseLevelDB float64
	SampleRate   int
	Channels     int

	// Monitor
	MonitorPort int

	// Notifications
	WebhookURL        string
	GraphTenantID     string
	GraphClientID     string
	GraphClientSecret string
	GraphFromAddress  string
	GraphRecipients   string

	// Report
	S3Endpoint        string
	S3Bucket          string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Prefix          string
}

// Snapshot returns a point-in-time copy of all configuration values.
func (c *Config) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		FFmpegPath:   c.System.FFmpegPath,
		EventLogPath: c.System.EventLogPath,

		AudioSource:  c.Audio.Source,
		AudioSink:    c.Audio.Sink,
		NoiseLevelDB: c.Audio.NoiseLevelDB,
		SampleRate:   c.Audio.SampleRate,
		Channels:     c.Audio.Channels,

		MonitorPort: c.Monitor.Port,

		WebhookURL:        c.Notifications.Webhook.URL,
		GraphTenantID:     c.Notifications.Email.TenantID,
		GraphClientID:     c.Notifications.Email.ClientID,
		GraphClientSecret: c.Notifications.Email.ClientSecret,
		GraphFromAddress:  c.Notifications.Email.FromAddress,
		GraphRecipients:   c.Notifications.Email.Recipients,

		S3Endpoint:        c.Report.S3Endpoint,
		S3Bucket:          c.Report.S3Bucket,
		S3AccessKeyID:     c.Report.S3AccessKeyID,
		S3SecretAccessKey: c.Report.S3SecretAccessKey,
		S3Prefix:          c.Report.S3Prefix,
	}
}

// GraphConfig returns the Microsoft Graph settings from the snapshot.
func (s *Snapshot) GraphConfig() types.GraphConfig {
	return types.GraphConfig{
		TenantID:     s.GraphTenantID,
		ClientID:     s.GraphClientID,
		ClientSecret: s.GraphClientSecret,
		FromAddress:  s.GraphFromAddress,
		Recipients:   s.GraphRecipients,
	}
}

// HasWebhook reports whether a webhook URL is configured.
func (s *Snapshot) HasWebhook() bool {
	return s.WebhookURL != ""
}

// HasGraph reports whether Microsoft Graph email notifications are configured.
func (s *Snapshot) HasGraph() bool {
	return s.GraphTenantID != "" && s.GraphClientID != "" && s.GraphClientSecret != "" &&
		s.GraphFromAddress != "" && s.GraphRecipients != ""
}

// HasEventLog reports whether a detection event log path is configured.
func (s *Snapshot) HasEventLog() bool {
	return s.EventLogPath != ""
}

// HasReportUpload reports whether S3 report upload is configured.
func (s *Snapshot) HasReportUpload() bool {
	return s.S3Bucket != "" && s.S3AccessKeyID != "" && s.S3SecretAccessKey != ""
}
