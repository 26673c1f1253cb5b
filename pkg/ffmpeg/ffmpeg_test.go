package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	f := New("ffprobe", 30*time.Second)
	assert.Equal(t, "ffprobe", f.ffprobePath)
	assert.Equal(t, 30*time.Second, f.timeout)

	defaults := New("", 0)
	assert.Equal(t, "ffprobe", defaults.ffprobePath)
	assert.Equal(t, 30*time.Second, defaults.timeout)
}

func TestValidateBinaries_Missing(t *testing.T) {
	f := New("/nonexistent/ffprobe-binary", time.Second)
	err := f.ValidateBinaries()
	assert.True(t, errors.Is(err, ErrFFprobeNotFound))
}

func TestProbeOutput_Duration(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    float64
		wantErr bool
	}{
		{
			name: "format duration",
			raw:  `{"format":{"duration":"12.500"},"streams":[{"duration":"12.480"}]}`,
			want: 12.5,
		},
		{
			name: "stream duration fallback",
			raw:  `{"format":{},"streams":[{"duration":"3.25"}]}`,
			want: 3.25,
		},
		{
			name: "not available in container",
			raw:  `{"format":{"duration":"N/A"},"streams":[{"duration":"7"}]}`,
			want: 7,
		},
		{
			name:    "zero duration",
			raw:     `{"format":{"duration":"0.000000"},"streams":[]}`,
			wantErr: true,
		},
		{
			name:    "no duration",
			raw:     `{"format":{},"streams":[]}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out probeOutput
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &out))

			got, err := out.duration("speech.wav")
			if tt.wantErr {
				var perr *ProcessingError
				require.ErrorAs(t, err, &perr)
				assert.Equal(t, "duration", perr.Operation)
				assert.ErrorIs(t, err, errNoDuration)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestProcessingError(t *testing.T) {
	cause := errors.New("exit status 1")
	err := NewProcessingError("probe", "a.wav", cause, "moov atom not found")
	assert.Contains(t, err.Error(), "moov atom not found")
	assert.ErrorIs(t, err, cause)

	plain := NewProcessingError("parse", "a.wav", cause, "")
	assert.NotContains(t, plain.Error(), "stderr")
}

func TestDuration_MissingBinary(t *testing.T) {
	f := New("/nonexistent/ffprobe-binary", time.Second)
	_, err := f.Duration(context.Background(), "a.wav")
	require.Error(t, err)
	var perr *ProcessingError
	assert.ErrorAs(t, err, &perr)
}
