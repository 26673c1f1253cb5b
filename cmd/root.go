package cmd

import (
	"fmt"
	"os"

	"github.com/killallgit/speech-coach/pkg/config"
	apperrors "github.com/killallgit/speech-coach/pkg/errors"
	"github.com/killallgit/speech-coach/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	logLevel string
	jsonLogs bool

	// appConfig is loaded by the root pre-run hook
	appConfig *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "speech-coach",
	Short: "Speech coaching API server",
	Long: `Speech Coach - asynchronous analysis of recorded speeches

Recordings are transcribed, measured, embedded and compared against a
corpus of exemplar speeches. Every stage runs as a queued background job.

Features:
  • Word-level transcription through a Whisper compatible API
  • Pacing, pause, filler word and clarity metrics
  • Similarity search over exemplar speech embeddings
  • Coaching feedback from an LLM or a rule-based fallback`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCmd returns the root command (exported for testing)
func NewRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides config")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "enable JSON formatted logs")
}

// setup loads configuration for commands that need it and configures logging
func setup(cmd *cobra.Command, args []string) error {
	if !needsConfig(cmd) {
		logger.Configure(loggingOptions(nil, logLevel, jsonLogs))
		return nil
	}

	if err := config.Init(); err != nil {
		return fmt.Errorf("error initializing config: %w", err)
	}
	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeConfigInvalid, "invalid configuration")
	}

	appConfig = cfg
	logger.Configure(loggingOptions(cfg, logLevel, jsonLogs))
	return nil
}

func needsConfig(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "version", "help", "completion":
		return false
	}
	return true
}

// loggingOptions merges the config file settings with command line overrides
func loggingOptions(cfg *config.Config, level string, json bool) logger.Options {
	opts := logger.Options{Level: "info", Format: "text"}
	if cfg != nil {
		if cfg.Logging.Level != "" {
			opts.Level = cfg.Logging.Level
		}
		if cfg.Logging.Format != "" {
			opts.Format = cfg.Logging.Format
		}
	}
	if level != "" {
		opts.Level = level
	}
	if json {
		opts.Format = "json"
	}
	return opts
}
