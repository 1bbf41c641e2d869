package notify

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/stblab/audioprobe/internal/config"
	"github.com/stblab/audioprobe/internal/util"
)

// Notifier delivers alerts for detection outcomes over the configured
// channels. Delivery is synchronous so short-lived detection runs do
// not exit before alerts are sent.
type Notifier struct {
	cfg *config.Config

	// mu protects the cached Graph client
	mu          sync.Mutex
	graphClient *GraphClient
}

// NewNotifier returns a Notifier configured with the given config.
func NewNotifier(cfg *config.Config) *Notifier {
	return &Notifier{cfg: cfg}
}

// getOrCreateGraphClient returns the cached Graph client, creating it if needed.
func (n *Notifier) getOrCreateGraphClient(snap *config.Snapshot) (*GraphClient, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.graphClient != nil {
		return n.graphClient, nil
	}

	graphCfg := snap.GraphConfig()
	client, err := NewGraphClient(&graphCfg)
	if err != nil {
		return nil, err
	}
	n.graphClient = client
	return client, nil
}

// NotifyLowAudio sends alerts that no sound was detected within timeout.
func (n *Notifier) NotifyLowAudio(levels []float64, thresholdDB float64, timeout time.Duration) {
	snap := n.cfg.Snapshot()

	if snap.HasWebhook() {
		util.LogNotifyResult(
			func() error { return SendLowAudioWebhook(snap.WebhookURL, levels, thresholdDB, timeout) },
			"Low audio webhook",
		)
	}
	if snap.HasGraph() {
		subject := "[ALERT] No Audio Detected - " + AppName
		body := fmt.Sprintf(
			"No sound was detected on the audio source.\n\n"+
				"Last levels: %s\n"+
				"Threshold:   %.1f dB\n"+
				"Timeout:     %s\n"+
				"Time:        %s\n\n"+
				"Please check the audio source.",
			formatLevelsDB(levels), thresholdDB, util.FormatDuration(timeout), util.HumanTime(),
		)
		n.sendEmail(&snap, subject, body, "Low audio email")
	}
}

// NotifyGlitch sends alerts that a glitch was detected.
func (n *Notifier) NotifyGlitch(levels []float64, thresholdDB float64) {
	snap := n.cfg.Snapshot()

	if snap.HasWebhook() {
		util.LogNotifyResult(
			func() error { return SendGlitchWebhook(snap.WebhookURL, levels, thresholdDB) },
			"Glitch webhook",
		)
	}
	if snap.HasGraph() {
		subject := "[ALERT] Audio Glitch Detected - " + AppName
		body := fmt.Sprintf(
			"A glitch was detected on the audio source.\n\n"+
				"Peak levels: %s\n"+
				"Threshold:   %.1f dB\n"+
				"Time:        %s\n\n"+
				"Please check the audio chain.",
			formatLevelsDB(levels), thresholdDB, util.HumanTime(),
		)
		n.sendEmail(&snap, subject, body, "Glitch email")
	}
}

// NotifyStall sends alerts that the capture pipeline stalled.
func (n *Notifier) NotifyStall(message string) {
	snap := n.cfg.Snapshot()

	if snap.HasWebhook() {
		util.LogNotifyResult(
			func() error { return SendStallWebhook(snap.WebhookURL, message) },
			"Stall webhook",
		)
	}
	if snap.HasGraph() {
		subject := "[ALERT] Capture Pipeline Stalled - " + AppName
		body := fmt.Sprintf(
			"The audio capture pipeline stopped producing level readings.\n\n"+
				"Error: %s\n"+
				"Time:  %s",
			message, util.HumanTime(),
		)
		n.sendEmail(&snap, subject, body, "Stall email")
	}
}

// sendEmail handles the common email sending infrastructure.
func (n *Notifier) sendEmail(snap *config.Snapshot, subject, body, notifyType string) {
	util.LogNotifyResult(func() error {
		client, err := n.getOrCreateGraphClient(snap)
		if err != nil {
			return util.WrapError("create Graph client", err)
		}

		recipients := ParseRecipients(snap.GraphRecipients)
		if len(recipients) == 0 {
			return fmt.Errorf("no valid recipients")
		}

		if err := client.SendMail(recipients, subject, body); err != nil {
			return util.WrapError("send email via Graph", err)
		}
		return nil
	}, notifyType)
}

// formatLevelsDB renders per-channel levels for email bodies.
func formatLevelsDB(levels []float64) string {
	if len(levels) == 0 {
		return "none"
	}
	parts := make([]string, len(levels))
	for i, l := range levels {
		parts[i] = fmt.Sprintf("%.1f dB", l)
	}
	return strings.Join(parts, ", ")
}
