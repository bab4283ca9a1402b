package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/meeting-recorder/api"
	"github.com/killallgit/meeting-recorder/internal/logging"
	"github.com/killallgit/meeting-recorder/internal/telemetry"
	"github.com/spf13/cobra"
)

var (
	serverHost  string
	serverPort  int
	withWorkers bool
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the Meeting Recorder API server with the configured settings.

The server accepts media server webhooks and serves the recording,
analysis and queue endpoints. With --with-workers it also runs the
transcription workers in the same process.

Example:
  recorder-api serve
  recorder-api serve --port 9090
  recorder-api serve --host 0.0.0.0 --port 8080 --with-workers`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host (overrides config)")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "server port (overrides config)")
	serveCmd.Flags().BoolVar(&withWorkers, "with-workers", false, "run transcription workers in this process")
}

func runServer(cmd *cobra.Command, _ []string) error {
	cfg := appConfig
	if serverHost != "" {
		cfg.Server.Host = serverHost
	}
	if serverPort != 0 {
		cfg.Server.Port = serverPort
	}
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry, Version)
	if err != nil {
		return err
	}
	defer flushTracing(shutdownTracing)

	c, err := newComponents(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	deps, err := c.dependencies(ctx)
	if err != nil {
		return err
	}

	if withWorkers {
		pool, err := c.workerPool()
		if err != nil {
			return err
		}
		if err := pool.Start(ctx); err != nil {
			return err
		}
		defer pool.Stop()
		deps.WorkerPool = pool
	}

	srv := api.NewServer(cfg, deps)
	if err := srv.Initialize(); err != nil {
		return fmt.Errorf("initializing routes: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Starting Meeting Recorder API", "addr", srv.Addr(), "version", Version, "workers", withWorkers)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutting down server")
	case err := <-serverErr:
		slog.Error("server error", logging.ErrKey, err, logging.PriorityCritical())
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("Server gracefully stopped")
	return nil
}

func flushTracing(shutdown telemetry.ShutdownFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownFlushTimeout)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		slog.Warn("failed to flush traces", logging.ErrKey, err)
	}
}
