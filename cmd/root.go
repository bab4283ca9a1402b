package cmd

import (
	"fmt"
	"os"

	"github.com/killallgit/meeting-recorder/internal/logging"
	"github.com/killallgit/meeting-recorder/pkg/config"
	"github.com/spf13/cobra"
)

// appConfig is loaded by the persistent pre-run of commands that need it
var appConfig *config.Config

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "recorder-api",
	Short: "Meeting Recorder API server",
	Long: `Meeting Recorder API - records meetings, transcribes every speaker
and runs analysis prompts over the transcripts.

Features:
  • Composite and per-speaker recording driven by media server webhooks
  • Queued speech-to-text transcription of every speaker track
  • Presigned download links for finished recordings
  • Language model prompts over speaker transcripts
  • Pipeline notifications over NATS, Kafka or Redis`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
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
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error); overrides config")
	rootCmd.PersistentFlags().Bool("json-logs", false, "enable JSON formatted logs")
}

// skipsConfig reports commands that run without configuration
func skipsConfig(cmd *cobra.Command) bool {
	return cmd.Name() == "version" || cmd.Name() == "help"
}

// loadConfig initializes configuration and the default logger
func loadConfig(cmd *cobra.Command, _ []string) error {
	if skipsConfig(cmd) {
		return nil
	}

	if err := config.Init(); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}
	appConfig = cfg

	level := cfg.Logging.Level
	if flagLevel, _ := cmd.Flags().GetString("log-level"); flagLevel != "" {
		level = flagLevel
	}
	jsonLogs, _ := cmd.Flags().GetBool("json-logs")

	logging.Setup(logging.Options{
		Level:     level,
		JSON:      jsonLogs || cfg.Logging.Format == "json",
		AddSource: cfg.Logging.AddSource,
	})
	return nil
}
