package util

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapError(t *testing.T) {
	base := errors.New("boom")
	wrapped := WrapError("do the thing", base)
	require.ErrorIs(t, wrapped, base)
	assert.Equal(t, "failed to do the thing: boom", wrapped.Error())

	assert.NoError(t, WrapError("noop", nil))
}

func TestExtractLastError(t *testing.T) {
	tests := []struct {
		name   string
		stderr string
		want   string
	}{
		{"empty", "", ""},
		{"single line", "device not found", "device not found"},
		{"last non-empty line", "info: starting\nerror: device busy\n\n", "error: device busy"},
		{"long line truncated", strings.Repeat("x", 300), strings.Repeat("x", 200) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractLastError(tt.stderr))
		})
	}
}

func TestIsConfigured(t *testing.T) {
	assert.True(t, IsConfigured("a", "b"))
	assert.False(t, IsConfigured("a", ""))
	assert.False(t, IsConfigured(""))
	assert.True(t, IsConfigured())
}

func TestBackoff(t *testing.T) {
	b := NewBackoff(time.Second, 5*time.Second)

	assert.Equal(t, time.Second, b.Next())
	assert.Equal(t, 2*time.Second, b.Next())
	assert.Equal(t, 4*time.Second, b.Next())
	assert.Equal(t, 5*time.Second, b.Next(), "delay is capped at the maximum")
	assert.Equal(t, 5*time.Second, b.Next())

	b.Reset()
	assert.Equal(t, time.Second, b.Next())
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "45s", FormatDuration(45*time.Second))
	assert.Equal(t, "2m 34s", FormatDuration(2*time.Minute+34*time.Second))
	assert.Equal(t, "1h 23m", FormatDuration(time.Hour+23*time.Minute))
}
