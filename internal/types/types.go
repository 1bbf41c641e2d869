// Package types provides shared type definitions used across the probe.
package types

import "time"

// Audio format constants for PCM capture and metering.
const (
	// DefaultSampleRate is the default audio sample rate in Hz.
	DefaultSampleRate = 48000
	// DefaultChannels is the default number of audio channels (stereo).
	DefaultChannels = 2
	// BytesPerSample is the size of one S16LE sample.
	BytesPerSample = 2
)

const (
	// ShutdownTimeout is the duration to wait for graceful pipeline shutdown.
	ShutdownTimeout = 3000 * time.Millisecond
)

// GraphConfig contains Microsoft Graph API settings for email notifications.
type GraphConfig struct {
	TenantID     string `json:"tenant_id,omitempty"`     // Azure AD tenant ID
	ClientID     string `json:"client_id,omitempty"`     // App registration client ID
	ClientSecret string `json:"client_secret,omitempty"` // App registration client secret
	FromAddress  string `json:"from_address,omitempty"`  // Shared mailbox address (sender)
	Recipients   string `json:"recipients,omitempty"`    // Comma-separated recipients
}

// VersionInfo contains version comparison data.
type VersionInfo struct {
	Current     string `json:"current"`              // Current version
	Latest      string `json:"latest,omitempty"`     // Latest available version
	UpdateAvail bool   `json:"update_available"`     // Update is available
	Commit      string `json:"commit,omitempty"`     // Git commit hash
	BuildTime   string `json:"build_time,omitempty"` // Build timestamp
}

// WSLevelsUpdate is sent to monitor clients with one level reading.
type WSLevelsUpdate struct {
	Type        string    `json:"type"`         // Message type identifier
	TimestampMs int64     `json:"timestamp_ms"` // Milliseconds since pipeline start
	RMS         []float64 `json:"rms"`          // Per-channel RMS levels in dB
	Peak        []float64 `json:"peak"`         // Per-channel peak levels in dB
}
