package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSampleSpec(t *testing.T) {
	tests := []struct {
		in      string
		want    SampleSpec
		wantErr bool
	}{
		{"1", SampleSpec{Detected: 1, Window: 1}, false},
		{"5", SampleSpec{Detected: 5, Window: 5}, false},
		{"2/3", SampleSpec{Detected: 2, Window: 3}, false},
		{" 4/10 ", SampleSpec{Detected: 4, Window: 10}, false},
		{"", SampleSpec{}, true},
		{"x/y", SampleSpec{}, true},
		{"2/", SampleSpec{}, true},
		{"/3", SampleSpec{}, true},
		{"1.5/3", SampleSpec{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSampleSpec(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSampleSpecValidate(t *testing.T) {
	tests := []struct {
		name    string
		spec    SampleSpec
		wantErr error
	}{
		{"valid exact", Exactly(3), nil},
		{"valid window", SampleSpec{Detected: 2, Window: 5}, nil},
		{"detected exceeds window", SampleSpec{Detected: 15, Window: 10}, ErrInvalidSampleSpec},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.validate()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}

	t.Run("non-positive values", func(t *testing.T) {
		require.Error(t, SampleSpec{Detected: 0, Window: 3}.validate())
		require.Error(t, SampleSpec{Detected: 1, Window: 0}.validate())
		require.Error(t, SampleSpec{Detected: -1, Window: -1}.validate())
	})
}

func TestSampleSpecString(t *testing.T) {
	assert.Equal(t, "2/3", SampleSpec{Detected: 2, Window: 3}.String())
	assert.Equal(t, "4/4", Exactly(4).String())
}
