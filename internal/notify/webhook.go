// Package notify delivers detection alerts via webhooks and email.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/stblab/audioprobe/internal/util"
)

// webhookTimeout bounds outgoing webhook requests.
const webhookTimeout = 10 * time.Second

// WebhookPayload represents the data sent to webhook endpoints.
type WebhookPayload struct {
	Event       string    `json:"event"`
	LevelsDB    []float64 `json:"levels_db,omitempty"`
	ThresholdDB float64   `json:"threshold_db,omitempty"`
	TimeoutSecs float64   `json:"timeout_secs,omitempty"`
	Message     string    `json:"message,omitempty"`
	Timestamp   string    `json:"timestamp"`
}

// SendLowAudioWebhook notifies the configured webhook that no sound was
// detected within the timeout.
func SendLowAudioWebhook(webhookURL string, levels []float64, thresholdDB float64, timeout time.Duration) error {
	return sendWebhook(webhookURL, &WebhookPayload{
		Event:       "low_audio",
		LevelsDB:    levels,
		ThresholdDB: thresholdDB,
		TimeoutSecs: timeout.Seconds(),
		Timestamp:   timestampUTC(),
	})
}

// SendGlitchWebhook notifies the configured webhook of a detected glitch.
func SendGlitchWebhook(webhookURL string, levels []float64, thresholdDB float64) error {
	return sendWebhook(webhookURL, &WebhookPayload{
		Event:       "glitch_detected",
		LevelsDB:    levels,
		ThresholdDB: thresholdDB,
		Timestamp:   timestampUTC(),
	})
}

// SendStallWebhook notifies the configured webhook that the capture
// pipeline stopped producing level messages.
func SendStallWebhook(webhookURL, message string) error {
	return sendWebhook(webhookURL, &WebhookPayload{
		Event:     "pipeline_stall",
		Message:   message,
		Timestamp: timestampUTC(),
	})
}

// SendTestWebhook sends a test webhook notification.
func SendTestWebhook(webhookURL string) error {
	if webhookURL == "" {
		return fmt.Errorf("webhook URL not configured")
	}

	return sendWebhook(webhookURL, &WebhookPayload{
		Event:     "test",
		Message:   "This is a test notification from " + AppName,
		Timestamp: timestampUTC(),
	})
}

// sendWebhook delivers a notification to the configured webhook endpoint.
func sendWebhook(webhookURL string, payload *WebhookPayload) error {
	if !util.IsConfigured(webhookURL) {
		return nil // Silently skip if not configured
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return util.WrapError("marshal payload", err)
	}

	client := &http.Client{Timeout: webhookTimeout}
	resp, err := client.Post(webhookURL, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return util.WrapError("send webhook request", err)
	}
	defer resp.Body.Close() //nolint:errcheck // Response body content is not used

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}

// AppName is the application name used in notifications.
const AppName = "Audioprobe"

// timestampUTC returns the current UTC time in RFC3339 format.
func timestampUTC() string {
	return time.Now().UTC().Format(time.RFC3339)
}
