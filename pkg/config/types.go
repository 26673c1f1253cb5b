package config

import "time"

// Config represents the complete application configuration
type Config struct {
	Environment string           `mapstructure:"environment"`
	Server      ServerConfig     `mapstructure:"server"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Processing  ProcessingConfig `mapstructure:"processing"`
	Whisper     WhisperConfig    `mapstructure:"whisper"`
	Embedding   EmbeddingConfig  `mapstructure:"embedding"`
	Feedback    FeedbackConfig   `mapstructure:"feedback"`
	Storage     StorageConfig    `mapstructure:"storage"`
	Similarity  SimilarityConfig `mapstructure:"similarity"`
	RateLimit   RateLimitConfig  `mapstructure:"rate_limiting"`
	Logging     LoggingConfig    `mapstructure:"logging"`
	Features    FeaturesConfig   `mapstructure:"features"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxRequestBytes int64         `mapstructure:"max_request_bytes"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path        string `mapstructure:"path"`
	Verbose     bool   `mapstructure:"verbose"`
	EnableWAL   bool   `mapstructure:"enable_wal"`
	BusyTimeout int    `mapstructure:"busy_timeout_ms"`
}

// ProcessingConfig controls the job queue and worker pool
type ProcessingConfig struct {
	Workers        int           `mapstructure:"workers"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	JobTimeout     time.Duration `mapstructure:"job_timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	StaleJobAfter  time.Duration `mapstructure:"stale_job_after"`
	JobRetention   int           `mapstructure:"job_retention_days"`
	FFprobePath    string        `mapstructure:"ffprobe_path"`
	FFprobeTimeout time.Duration `mapstructure:"ffprobe_timeout"`
}

// WhisperConfig contains transcription service settings
type WhisperConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	APIURL      string        `mapstructure:"api_url"`
	Model       string        `mapstructure:"model"`
	Language    string        `mapstructure:"language"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxFileSize int64         `mapstructure:"max_file_size"`
	RateLimit   float64       `mapstructure:"rate_limit"`
}

// EmbeddingConfig contains audio embedding service settings
type EmbeddingConfig struct {
	APIKey    string        `mapstructure:"api_key"`
	APIURL    string        `mapstructure:"api_url"`
	Dimension int           `mapstructure:"dimension"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"`
}

// FeedbackConfig contains feedback generation settings
type FeedbackConfig struct {
	Provider     string        `mapstructure:"provider"`
	OpenAIAPIKey string        `mapstructure:"openai_api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	Model        string        `mapstructure:"model"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// StorageConfig contains temp storage settings
type StorageConfig struct {
	TempDir         string        `mapstructure:"temp_dir"`
	MaxTempAge      time.Duration `mapstructure:"max_temp_age"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// SimilarityConfig contains exemplar search settings
type SimilarityConfig struct {
	DefaultLimit int           `mapstructure:"default_limit"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
}

// RateLimitConfig contains API rate limiting settings
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// FeaturesConfig contains feature flags
type FeaturesConfig struct {
	EnableFeedback bool `mapstructure:"enable_feedback"`
	EnableSwagger  bool `mapstructure:"enable_swagger"`
}
