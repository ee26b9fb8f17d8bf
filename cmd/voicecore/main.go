package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/calmroom/voicecore/internal/config"
	"github.com/calmroom/voicecore/internal/docstore"
	"github.com/calmroom/voicecore/internal/streamapi"
	capfake "github.com/calmroom/voicecore/pkg/capture/fake"
	"github.com/calmroom/voicecore/pkg/session"
	"github.com/calmroom/voicecore/pkg/version"
)

var rootCmd = &cobra.Command{
	Use:          "voicecore",
	Short:        "Session engine for avatar conversation sessions on TV devices",
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.GetVersionInfo())
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Watch the device document and run sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		transcript, _ := cmd.Flags().GetString("transcript")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := setupLogger(cfg.Log)
		logger.Info("starting voicecore",
			slog.String("version", version.Version),
			slog.String("commit", version.GitCommit))

		if cfg.Docstore.URL == "" {
			return fmt.Errorf("docstore url is required (VOICECORE_DOCSTORE_URL)")
		}
		deviceID := cfg.Docstore.DeviceID
		if deviceID == "" {
			deviceID = "tv-" + uuid.NewString()[:8]
			logger.Warn("no device id configured, using ephemeral id",
				slog.String("device_id", deviceID))
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if cfg.MetricsAddr != "" {
			go serveMetrics(cfg.MetricsAddr, logger)
		}

		watcher := docstore.NewFeedWatcher(cfg.Docstore.URL, logger)
		defer watcher.Close()

		start := func(ctx context.Context) (session.Running, error) {
			// The platform recognizer lives in the TV runtime; the standalone
			// binary drives sessions with a scripted adapter.
			return session.Start(ctx, session.Config{
				Cfg:     cfg,
				Adapter: capfake.NewScripted(transcript),
				Logger:  logger,
			})
		}
		sv := session.NewSupervisor(watcher, deviceID, start, logger)
		if err := sv.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		logger.Info("voicecore stopped")
		return nil
	},
}

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Provision a vendor session once and print its details",
	RunE: func(cmd *cobra.Command, args []string) error {
		keep, _ := cmd.Flags().GetBool("keep")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := setupLogger(cfg.Log)
		if cfg.Vendor.APIKey == "" {
			return fmt.Errorf("vendor api key is required (VOICECORE_VENDOR_API_KEY)")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		client := streamapi.NewClient(streamapi.Config{
			BaseURL: cfg.Vendor.BaseURL,
			APIKey:  cfg.Vendor.APIKey,
		}, logger)
		prov, err := client.Provision(ctx, streamapi.ProvisionConfig{
			Quality:         cfg.Vendor.Quality,
			AvatarID:        cfg.Vendor.AvatarID,
			ParticipantName: "tv-" + uuid.NewString()[:8],
			Version:         cfg.Vendor.Version,
			VideoEncoding:   cfg.Vendor.VideoEncoding,
			STTLanguage:     cfg.Vendor.STTLanguage,
			SilenceResponse: cfg.Vendor.SilenceResponse,
			Attempts:        cfg.Vendor.ProvisionAttempts,
			RetryDelay:      cfg.Vendor.ProvisionRetryDelay(),
		})
		if err != nil {
			return err
		}

		fmt.Printf("session_id:        %s\n", prov.SessionID)
		fmt.Printf("media_url:         %s\n", prov.URL)
		fmt.Printf("realtime_endpoint: %s\n", prov.RealtimeEndpoint)

		if !keep {
			if err := client.StopSession(ctx, prov.Token, prov.SessionID); err != nil {
				return fmt.Errorf("stop session: %w", err)
			}
			logger.Info("session stopped", slog.String("session_id", prov.SessionID))
		}
		return nil
	},
}

func loadConfig() (*config.Config, error) {
	_ = godotenv.Load() // .env is optional
	return config.Load()
}

func setupLogger(cfg config.Log) *slog.Logger {
	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func serveMetrics(addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info("metrics server listening", slog.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server failed", slog.String("error", err.Error()))
	}
}

func init() {
	runCmd.Flags().String("transcript", "hello there", "scripted transcript for the demo capture adapter")
	provisionCmd.Flags().Bool("keep", false, "leave the provisioned session running")
	rootCmd.AddCommand(versionCmd, runCmd, provisionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
