package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/dispatch/internal/control"
	"github.com/vietddude/dispatch/internal/core/config"
	"github.com/vietddude/dispatch/internal/core/domain"
	"github.com/vietddude/stylelog"
)

var (
	cfgPath string
	isDebug bool
)

var rootCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Dispatch message pipeline",
	Long:  `Dispatch is a message-processing pipeline with per-message error tracking, retry exhaustion, and dead-lettering.`,
	Run:   runPipeline,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
}

func runPipeline(cmd *cobra.Command, args []string) {
	_ = godotenv.Load()

	// Load Configuration
	cfg, err := config.Load(cfgPath)
	if err != nil {
		stylelog.InitDefault()
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup logging
	slogLevel := slog.LevelInfo
	if isDebug || cfg.Logging.Level == "debug" {
		slogLevel = slog.LevelDebug
	}

	stylelog.InitDefault(&tint.Options{
		Level:      slogLevel,
		TimeFormat: time.RFC3339,
	})

	// Transform config
	controlCfg := control.Config{
		Port:     cfg.Server.Port,
		Queues:   cfg.Queues,
		Tracking: cfg.Tracking,
		Dispatch: cfg.Dispatch,
	}

	// The standalone binary logs every delivery; embedders register their
	// own handlers.
	handler := func(ctx context.Context, msg *domain.Message) error {
		slog.Info("Handled message", "message_id", msg.ID, "bytes", len(msg.Body))
		return nil
	}

	pipeline, err := control.NewPipeline(controlCfg, handler)
	if err != nil {
		slog.Error("Failed to initialize pipeline", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if err := pipeline.Start(ctx); err != nil {
		slog.Error("Failed to start pipeline", "error", err)
		os.Exit(1)
	}

	sig := <-sigChan
	slog.Info("Received signal, shutting down...", "signal", sig)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := pipeline.Stop(shutdownCtx); err != nil {
		slog.Error("Error during shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Pipeline stopped gracefully")
}
