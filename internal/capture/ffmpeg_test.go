package capture

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildArgs(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		want    []string
		wantErr error
	}{
		{
			name: "alsa source with defaults",
			cfg:  Config{Source: "alsa:default"},
			want: []string{
				"-hide_banner", "-nostats",
				"-f", "alsa", "-i", "default",
				"-map", "0:a", "-f", "s16le", "-ar", "48000", "-ac", "2", "pipe:1",
			},
		},
		{
			name: "source device defaults when omitted",
			cfg:  Config{Source: "pulse:"},
			want: []string{
				"-hide_banner", "-nostats",
				"-f", "pulse", "-i", "default",
				"-map", "0:a", "-f", "s16le", "-ar", "48000", "-ac", "2", "pipe:1",
			},
		},
		{
			name: "wav file source is realtime paced",
			cfg:  Config{Source: "wav:/tmp/tone.wav", SampleRate: 44100, Channels: 1},
			want: []string{
				"-hide_banner", "-nostats",
				"-re", "-i", "/tmp/tone.wav",
				"-map", "0:a", "-f", "s16le", "-ar", "44100", "-ac", "1", "pipe:1",
			},
		},
		{
			name: "file source keeps colons in path",
			cfg:  Config{Source: "file:C:/audio/test.wav"},
			want: []string{
				"-hide_banner", "-nostats",
				"-re", "-i", "C:/audio/test.wav",
				"-map", "0:a", "-f", "s16le", "-ar", "48000", "-ac", "2", "pipe:1",
			},
		},
		{
			name: "null sink is discarded",
			cfg:  Config{Source: "alsa:hw:0", Sink: "null"},
			want: []string{
				"-hide_banner", "-nostats",
				"-f", "alsa", "-i", "hw:0",
				"-map", "0:a", "-f", "s16le", "-ar", "48000", "-ac", "2", "pipe:1",
			},
		},
		{
			name: "sink mirrors audio to a device",
			cfg:  Config{Source: "alsa:default", Sink: "alsa:hw:1"},
			want: []string{
				"-hide_banner", "-nostats",
				"-f", "alsa", "-i", "default",
				"-map", "0:a", "-f", "s16le", "-ar", "48000", "-ac", "2", "pipe:1",
				"-map", "0:a", "-f", "alsa", "hw:1",
			},
		},
		{
			name:    "source without backend",
			cfg:     Config{Source: "default"},
			wantErr: ErrInvalidDescriptor,
		},
		{
			name:    "empty source",
			cfg:     Config{Source: ""},
			wantErr: ErrInvalidDescriptor,
		},
		{
			name:    "wav source without path",
			cfg:     Config{Source: "wav:"},
			wantErr: ErrInvalidDescriptor,
		},
		{
			name:    "invalid sink descriptor",
			cfg:     Config{Source: "alsa:default", Sink: "nodevice"},
			wantErr: ErrInvalidDescriptor,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildArgs(tt.cfg)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStartRequiresFFmpeg(t *testing.T) {
	_, err := Start(Config{Source: "alsa:default"})
	require.Error(t, err)
}

func TestPipelineProcessExit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on a unix false(1) binary")
	}

	// A capture process that exits immediately without producing PCM
	// must surface a capture error, and Stop must stay clean and
	// idempotent afterwards.
	p, err := Start(Config{FFmpegPath: "false", Source: "alsa:default"})
	require.NoError(t, err)

	_, err = p.NextLevelMessage(5 * time.Second)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoMessage, "a dead process is a capture failure, not a poll timeout")

	require.NoError(t, p.Stop())
	require.NoError(t, p.Stop())
}

func TestSplitDescriptor(t *testing.T) {
	backend, rest, err := splitDescriptor("alsa:hw:1,0")
	require.NoError(t, err)
	assert.Equal(t, "alsa", backend)
	assert.Equal(t, "hw:1,0", rest)

	_, _, err = splitDescriptor(":device")
	require.ErrorIs(t, err, ErrInvalidDescriptor)
}
