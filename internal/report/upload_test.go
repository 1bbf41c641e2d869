package report

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS3ConfigIsConfigured(t *testing.T) {
	tests := []struct {
		name string
		cfg  S3Config
		want bool
	}{
		{"complete", S3Config{Bucket: "b", AccessKeyID: "k", SecretAccessKey: "s"}, true},
		{"with endpoint and prefix", S3Config{Endpoint: "https://s3.example.com", Bucket: "b", AccessKeyID: "k", SecretAccessKey: "s", Prefix: "p"}, true},
		{"empty", S3Config{}, false},
		{"missing bucket", S3Config{AccessKeyID: "k", SecretAccessKey: "s"}, false},
		{"missing access key", S3Config{Bucket: "b", SecretAccessKey: "s"}, false},
		{"missing secret", S3Config{Bucket: "b", AccessKeyID: "k"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.IsConfigured())
		})
	}
}

func TestTestConnectionRequiresConfig(t *testing.T) {
	err := TestConnection(&S3Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestUploadEventLogRequiresConfig(t *testing.T) {
	_, _, err := UploadEventLog(&S3Config{}, "/tmp/events.jsonl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestUploadEventLogMissingFile(t *testing.T) {
	cfg := &S3Config{Bucket: "b", AccessKeyID: "k", SecretAccessKey: "s"}

	_, _, err := UploadEventLog(cfg, filepath.Join(t.TempDir(), "absent.jsonl"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "read event log")
}
