package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/asrlab/asr-pipeline/internal/config"
	"github.com/asrlab/asr-pipeline/internal/decode"
	"github.com/asrlab/asr-pipeline/internal/inference"
	"github.com/asrlab/asr-pipeline/internal/metrics"
	"github.com/asrlab/asr-pipeline/internal/pipeline"
	"github.com/asrlab/asr-pipeline/internal/server"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "asr-pipeline"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary (without sensitive data)
	logger.Info("Configuration loaded",
		slog.Int("http_port", cfg.HTTP.Port),
		slog.Int("sample_rate", cfg.Audio.SampleRate),
		slog.Int("n_fft", cfg.Features.NFft),
		slog.Int("win_length", cfg.Features.WinLength),
		slog.Int("hop_length", cfg.Features.HopLength),
		slog.Int("n_mels", cfg.Features.NMels),
		slog.String("vocab_path", cfg.Decode.VocabPath),
		slog.Int("blank_index", cfg.Decode.BlankIndex),
		slog.String("inference_endpoint", cfg.Inference.Endpoint),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Load the vocabulary
	vocab, err := decode.LoadVocabulary(cfg.Decode.VocabPath, cfg.Decode.BoundaryMarker)
	if err != nil {
		logger.Error("Failed to load vocabulary", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Vocabulary loaded",
		slog.String("path", cfg.Decode.VocabPath),
		slog.Int("tokens", vocab.Size()),
	)

	// Initialize inference client
	client, err := inference.NewClient(inference.Config{
		Endpoint:      cfg.Inference.Endpoint,
		APIKey:        cfg.Inference.APIKey,
		Timeout:       cfg.Inference.GetTimeoutDuration(),
		MaxConcurrent: cfg.Inference.MaxConcurrent,
	})
	if err != nil {
		logger.Error("Failed to create inference client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Inference client initialized",
		slog.String("endpoint", cfg.Inference.Endpoint),
		slog.Duration("timeout", cfg.Inference.GetTimeoutDuration()),
	)

	// Initialize the processing pipeline
	p, err := pipeline.New(pipeline.Config{
		SampleRate: cfg.Audio.SampleRate,
		TargetPeak: cfg.Audio.TargetPeak,
		Amplify:    cfg.Audio.Amplify,
		TargetAmp:  cfg.Audio.TargetAmp,
		Dither:     cfg.Audio.Dither,
		NFft:       cfg.Features.NFft,
		WinLength:  cfg.Features.WinLength,
		HopLength:  cfg.Features.HopLength,
		NMels:      cfg.Features.NMels,
		FMin:       cfg.Features.FMin,
		FMax:       cfg.Features.FMax,
		PadTo:      cfg.Features.PadTo,
	}, vocab, cfg.Decode.BlankIndex, client, logger, appMetrics)
	if err != nil {
		logger.Error("Failed to create pipeline", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Pipeline initialized")

	// Initialize and start the HTTP API server
	httpServer := server.NewHTTPServer(cfg.HTTP, logger, cfg, p, client, appMetrics)
	if err := httpServer.Start(); err != nil {
		logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("HTTP API server started",
		slog.String("address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
	)

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Shutdown signal received", slog.String("signal", sig.String()))

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
	}

	if err := client.Close(); err != nil {
		logger.Error("Inference client shutdown error", slog.String("error", err.Error()))
	}

	logger.Info("Service stopped")
}

// initLogger creates a logger from the logging configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	default:
		output = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
