package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/speech-coach/api"
	"github.com/killallgit/speech-coach/api/types"
	"github.com/killallgit/speech-coach/pkg/config"
	"github.com/killallgit/speech-coach/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	serverHost string
	serverPort int
	noWorkers  bool
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the Speech Coach API server with the configured settings.

The server accepts recordings over HTTP and runs the worker pool that
transcribes, measures, embeds and reviews them in the background.

Example:
  speech-coach serve
  speech-coach serve --port 9090
  speech-coach serve --host 0.0.0.0 --port 8080 --log-level debug`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host (overrides config)")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "server port (overrides config)")
	serveCmd.Flags().BoolVar(&noWorkers, "no-workers", false, "accept requests without processing jobs")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg := appConfig
	log := logger.WithComponent("server")

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	app, err := newApplication(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.WithError(err).Warn("Error during shutdown")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !noWorkers {
		if err := app.pool.Start(ctx); err != nil {
			return fmt.Errorf("failed to start worker pool: %w", err)
		}
	}
	app.cleanup.Start(ctx)

	server := api.NewServer(serverOptions(cfg, serverHost, serverPort))
	server.SetDependencies(&types.Dependencies{
		DB:               app.db,
		RecordingService: app.scheduler,
		ExemplarService:  app.exemplars,
		JobService:       app.jobs,
		WorkerPool:       app.pool,
		Build:            buildInfo(),
	})
	if err := server.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Starting Speech Coach API server on %s", serverAddress(cfg, serverHost, serverPort))
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		log.Info("Shutting down server")
	}

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("Server exited")
	return nil
}

// serverAddress applies the flag overrides to the configured listen address
func serverAddress(cfg *config.Config, host string, port int) string {
	if host == "" {
		host = cfg.Server.Host
	}
	if port == 0 {
		port = cfg.Server.Port
	}
	return fmt.Sprintf("%s:%d", host, port)
}

func serverOptions(cfg *config.Config, host string, port int) api.ServerOptions {
	return api.ServerOptions{
		Address:         serverAddress(cfg, host, port),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		MaxRequestBytes: cfg.Server.MaxRequestBytes,
		Routes: api.RouteOptions{
			EnableSwagger: cfg.Features.EnableSwagger,
			RateLimit:     cfg.RateLimit.Enabled,
			RPS:           cfg.RateLimit.RPS,
			Burst:         cfg.RateLimit.Burst,
		},
	}
}
