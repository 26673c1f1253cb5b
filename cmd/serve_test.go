package cmd

import (
	"testing"
	"time"

	"github.com/killallgit/speech-coach/pkg/config"
	"github.com/stretchr/testify/assert"
)

func TestServeCommand_Flags(t *testing.T) {
	for _, name := range []string{"host", "port", "no-workers"} {
		assert.NotNil(t, serveCmd.Flags().Lookup(name), name)
	}
}

func TestServerOptions(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            8080,
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    7 * time.Second,
			MaxRequestBytes: 1024,
		},
		RateLimit: config.RateLimitConfig{Enabled: true, RPS: 3, Burst: 6},
		Features:  config.FeaturesConfig{EnableSwagger: true},
	}

	tests := []struct {
		name string
		host string
		port int
		want string
	}{
		{name: "config values", want: "127.0.0.1:8080"},
		{name: "port override", port: 9090, want: "127.0.0.1:9090"},
		{name: "host and port override", host: "0.0.0.0", port: 9000, want: "0.0.0.0:9000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := serverOptions(cfg, tt.host, tt.port)
			assert.Equal(t, tt.want, opts.Address)
			assert.Equal(t, 5*time.Second, opts.ReadTimeout)
			assert.Equal(t, 7*time.Second, opts.WriteTimeout)
			assert.Equal(t, int64(1024), opts.MaxRequestBytes)
			assert.True(t, opts.Routes.EnableSwagger)
			assert.True(t, opts.Routes.RateLimit)
			assert.InDelta(t, 3.0, opts.Routes.RPS, 1e-9)
			assert.Equal(t, 6, opts.Routes.Burst)
		})
	}
}

func TestNewApplication(t *testing.T) {
	cfg := &config.Config{
		Database:   config.DatabaseConfig{Path: ":memory:"},
		Processing: config.ProcessingConfig{Workers: 2, PollInterval: time.Second, MaxRetries: 3, FFprobePath: "ffprobe-not-installed"},
		Feedback:   config.FeedbackConfig{Provider: "rules"},
		Storage:    config.StorageConfig{TempDir: t.TempDir(), CleanupInterval: time.Hour},
		Similarity: config.SimilarityConfig{DefaultLimit: 5, CacheTTL: time.Minute},
		Features:   config.FeaturesConfig{EnableFeedback: true},
	}

	app, err := newApplication(cfg)
	if !assert.NoError(t, err) {
		return
	}
	assert.Equal(t, 2, app.pool.Size())
	assert.False(t, app.pool.Running())
	assert.NotNil(t, app.scheduler)
	assert.NotNil(t, app.exemplars)
	assert.NoError(t, app.Close())
}
