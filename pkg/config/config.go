package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. SPEECHCOACH_SERVER_PORT.
const EnvPrefix = "SPEECHCOACH"

var (
	once    sync.Once
	initErr error

	configPath = "./config/settings.yaml"
	dotenvPath = ".env"
)

// Init initializes the configuration system.
// It must be called once at startup before GetConfig.
func Init() error {
	once.Do(func() {
		// .env is optional; real environment variables win over it
		if err := godotenv.Load(dotenvPath); err != nil && !os.IsNotExist(err) {
			initErr = fmt.Errorf("error loading %s: %w", dotenvPath, err)
			return
		}

		setDefaults()

		viper.SetEnvPrefix(EnvPrefix)
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		viper.AutomaticEnv()

		path := filepath.Clean(configPath)
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			if !os.IsNotExist(err) {
				initErr = fmt.Errorf("error reading config file %s: %w", path, err)
				return
			}
		}

		if err := validate(); err != nil {
			initErr = fmt.Errorf("invalid configuration: %w", err)
		}
	})

	return initErr
}

// GetConfig returns the current configuration as a struct
func GetConfig() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &config, nil
}

// GetString returns a string config value
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration returns a time.Duration config value
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

func validate() error {
	port := viper.GetInt("server.port")
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid server port: %d", port)
	}

	if viper.GetString("database.path") == "" {
		return fmt.Errorf("database.path is required")
	}

	provider := viper.GetString("feedback.provider")
	if provider != "openai" && provider != "rules" {
		return fmt.Errorf("invalid feedback provider: %q", provider)
	}

	if err := checkStaleAfter(viper.GetDuration("processing.job_timeout"), viper.GetDuration("processing.stale_job_after")); err != nil {
		return err
	}

	if viper.GetInt("processing.workers") <= 0 {
		viper.Set("processing.workers", 2)
	}
	if viper.GetInt("similarity.default_limit") <= 0 {
		viper.Set("similarity.default_limit", 5)
	}

	return nil
}

// Validate checks a Config struct and corrects recoverable values
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Feedback.Provider != "openai" && c.Feedback.Provider != "rules" {
		return fmt.Errorf("invalid feedback provider: %q", c.Feedback.Provider)
	}
	if err := checkStaleAfter(c.Processing.JobTimeout, c.Processing.StaleJobAfter); err != nil {
		return err
	}

	if c.Processing.Workers <= 0 {
		c.Processing.Workers = 2
	}
	if c.Processing.PollInterval <= 0 {
		c.Processing.PollInterval = time.Second
	}
	if c.Similarity.DefaultLimit <= 0 {
		c.Similarity.DefaultLimit = 5
	}

	return nil
}

// checkStaleAfter rejects a reaper that could release a job while its
// worker is still inside the job deadline.
func checkStaleAfter(jobTimeout, staleAfter time.Duration) error {
	if staleAfter <= 0 {
		return nil
	}
	if jobTimeout <= 0 {
		return fmt.Errorf("processing.job_timeout must be set when processing.stale_job_after is enabled")
	}
	if staleAfter <= jobTimeout {
		return fmt.Errorf("processing.stale_job_after (%s) must exceed processing.job_timeout (%s)", staleAfter, jobTimeout)
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("environment", "development")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)
	viper.SetDefault("server.max_request_bytes", 10<<20)

	viper.SetDefault("database.path", "./data/speech-coach.db")
	viper.SetDefault("database.verbose", false)
	viper.SetDefault("database.enable_wal", true)
	viper.SetDefault("database.busy_timeout_ms", 5000)

	viper.SetDefault("processing.workers", 4)
	viper.SetDefault("processing.poll_interval", time.Second)
	viper.SetDefault("processing.job_timeout", 10*time.Minute)
	viper.SetDefault("processing.max_retries", 3)
	viper.SetDefault("processing.stale_job_after", 30*time.Minute)
	viper.SetDefault("processing.job_retention_days", 14)
	viper.SetDefault("processing.ffprobe_path", "ffprobe")
	viper.SetDefault("processing.ffprobe_timeout", 30*time.Second)

	viper.SetDefault("whisper.api_url", "https://api.openai.com/v1/audio/transcriptions")
	viper.SetDefault("whisper.model", "whisper-1")
	viper.SetDefault("whisper.language", "en")
	viper.SetDefault("whisper.temperature", 0)
	viper.SetDefault("whisper.timeout", 5*time.Minute)
	viper.SetDefault("whisper.max_file_size", 26214400)
	viper.SetDefault("whisper.rate_limit", 2.0)

	viper.SetDefault("embedding.api_url", "http://localhost:8500/embed")
	viper.SetDefault("embedding.dimension", 512)
	viper.SetDefault("embedding.timeout", 2*time.Minute)
	viper.SetDefault("embedding.rate_limit", 4.0)

	viper.SetDefault("feedback.provider", "openai")
	viper.SetDefault("feedback.model", "gpt-4o-mini")
	viper.SetDefault("feedback.timeout", time.Minute)

	viper.SetDefault("storage.temp_dir", "./tmp")
	viper.SetDefault("storage.max_temp_age", 6*time.Hour)
	viper.SetDefault("storage.cleanup_interval", time.Hour)

	viper.SetDefault("similarity.default_limit", 5)
	viper.SetDefault("similarity.cache_ttl", 5*time.Minute)

	viper.SetDefault("rate_limiting.enabled", true)
	viper.SetDefault("rate_limiting.rps", 10.0)
	viper.SetDefault("rate_limiting.burst", 20)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")

	viper.SetDefault("features.enable_feedback", true)
	viper.SetDefault("features.enable_swagger", true)
}
