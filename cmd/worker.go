package cmd

import (
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/killallgit/meeting-recorder/internal/telemetry"
	"github.com/spf13/cobra"
)

const shutdownFlushTimeout = 5 * time.Second

// workerCmd runs transcription workers without the HTTP server
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run transcription workers",
	Long: `Run the transcription worker pool without the HTTP server.

Workers claim queued transcription jobs, download speaker tracks from
object storage, transcribe them and store the transcript on the track.
Run as many worker processes as the speech API allows.`,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
	workerCmd.Flags().Int("workers", 0, "number of workers (overrides config)")
}

func runWorker(cmd *cobra.Command, _ []string) error {
	cfg := appConfig
	if n, _ := cmd.Flags().GetInt("workers"); n > 0 {
		cfg.Processing.Workers = n
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

	pool, err := c.workerPool()
	if err != nil {
		return err
	}
	if err := pool.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	slog.Info("Stopping workers")
	pool.Stop()
	return nil
}
