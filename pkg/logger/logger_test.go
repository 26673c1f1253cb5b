package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"WARN", logrus.WarnLevel},
		{"warning", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"", logrus.InfoLevel},
		{"nonsense", logrus.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: "debug", Format: "json", Output: &buf})

	l.WithField("recording_id", "r-1").Debug("stage changed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "stage changed", entry["msg"])
	assert.Equal(t, "r-1", entry["recording_id"])
	assert.Equal(t, "debug", entry["level"])
}

func TestLogger_WithError(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Format: "json", Output: &buf})

	l.WithError(errors.New("boom")).Error("failed")
	assert.Contains(t, buf.String(), `"error":"boom"`)

	assert.Equal(t, l.Entry, l.WithError(nil))
}

func TestConfigure_ReplacesProcessLogger(t *testing.T) {
	prev := Get()
	t.Cleanup(func() {
		mu.Lock()
		base = prev
		mu.Unlock()
	})

	var buf bytes.Buffer
	Configure(Options{Level: "info", Format: "json", Output: &buf})
	WithComponent("scheduler").Info("hello")

	assert.Contains(t, buf.String(), `"component":"scheduler"`)
}
