package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/skypro1111/speech-translator/internal/audio"
	"github.com/skypro1111/speech-translator/internal/capture"
	"github.com/skypro1111/speech-translator/internal/config"
	"github.com/skypro1111/speech-translator/internal/exchange"
	"github.com/skypro1111/speech-translator/internal/metrics"
	"github.com/skypro1111/speech-translator/internal/playback"
	"github.com/skypro1111/speech-translator/internal/server"
	"github.com/skypro1111/speech-translator/internal/translator"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "speech-translator"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	envPath := flag.String("env", ".env", "Path to .env file with backend credentials")
	inputFile := flag.String("input", "", "Replay this audio file instead of using the microphone")
	noPlayback := flag.Bool("no-playback", false, "Disable audio output")
	flag.Parse()

	if err := config.LoadDotEnv(*envPath); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load env file: %v\n", err)
		os.Exit(1)
	}

	// A missing default config file is fine; an explicit path must exist
	allowMissing := *configPath == defaultConfigPath
	cfg, err := config.Load(*configPath, allowMissing)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if *inputFile != "" {
		cfg.Capture.Device = "file"
		cfg.Capture.InputFile = *inputFile
	}
	if *noPlayback {
		cfg.Playback.Enabled = false
	}

	logger := initLogger(cfg.Logging)

	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary (without sensitive data)
	logger.Info("Configuration loaded",
		slog.String("base_url", cfg.Backend.BaseURLTrimmed()),
		slog.Bool("authenticated", cfg.Backend.Username != "" && cfg.Backend.Password != ""),
		slog.String("source_language", cfg.Languages.Source),
		slog.String("target_language", cfg.Languages.Target),
		slog.String("capture_device", cfg.Capture.Device),
		slog.Int("sample_rate", cfg.Capture.SampleRate),
		slog.Bool("playback", cfg.Playback.Enabled),
		slog.String("log_level", cfg.Logging.Level),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Prometheus metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(registry)

	decoders := audio.DefaultRegistry()

	var player playback.Player = playback.Nop{}
	if cfg.Playback.Enabled {
		player = playback.NewSpeaker(decoders, logger)
	}

	var monitor playback.Player
	if cfg.Playback.Monitor {
		monitor = player
	}

	var events *server.EventHub
	displays := exchange.Displays{exchange.NewConsoleDisplay(os.Stdout)}
	if cfg.HTTP.Enabled {
		events = server.NewEventHub(logger)
		displays = append(displays, events)
	}

	clientConfig := exchange.Config{
		BaseURL: cfg.Backend.BaseURLTrimmed,
		Doer:    exchange.NewAuthClient(cfg.Backend.Username, cfg.Backend.Password, cfg.Backend.GetTimeoutDuration()),
		Voice:   cfg.Backend.Voice,
		Timeout: cfg.Backend.GetTimeoutDuration(),
	}

	sessionConfig := capture.SessionConfig{
		QueueSize:       cfg.Capture.QueueSize,
		DefaultMimeType: cfg.Capture.DefaultMimeType,
		Monitor:         monitor,
	}
	if events != nil {
		sessionConfig.OnStateChange = events.ShowState
	}

	tr := translator.New(translator.Options{
		Device:    newDevice(cfg.Capture, logger),
		Session:   sessionConfig,
		Decoders:  decoders,
		Client:    clientConfig,
		Languages: exchange.LanguagePair{Source: cfg.Languages.Source, Target: cfg.Languages.Target},
		Display:   displays,
		Player:    player,
		Logger:    logger,
		Metrics:   appMetrics,
	})

	if err := tr.Open(ctx); err != nil {
		// Keep running so status and replay stay reachable
		logger.Error("Recording is unavailable", slog.String("error", err.Error()))
	}

	// Initialize HTTP API server (if enabled)
	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		httpServer = server.NewHTTPServer(cfg.HTTP, logger, cfg, tr, events, appMetrics, registry)
		if err := httpServer.Start(); err != nil {
			logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	go readKeys(ctx, os.Stdin, os.Stdout, tr, cancel, logger)

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	fmt.Println(usage)

	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Quit requested, shutting down")
	}

	logger.Info("Starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Stop HTTP server first (stop accepting new requests)
	if httpServer != nil {
		if err := httpServer.Stop(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
		}
	}

	// Finish the live recording and any pending translation
	if err := tr.Close(shutdownCtx); err != nil {
		logger.Error("Error closing translator", slog.String("error", err.Error()))
	}

	status := tr.Status()
	logger.Info("Final statistics",
		slog.Uint64("recordings_submitted", status.Stats.RecordingsSubmitted),
		slog.Uint64("translations_ok", status.Stats.TranslationsOK),
		slog.Uint64("translations_failed", status.Stats.TranslationsFailed),
	)

	logger.Info("Service stopped")
}

// newDevice selects the capture device from configuration
func newDevice(cfg config.CaptureConfig, logger *slog.Logger) capture.Device {
	if cfg.Device == "file" {
		return capture.NewFileDevice(cfg.InputFile, cfg.InputMimeType, true)
	}
	return capture.NewMicrophoneDevice(capture.MicrophoneConfig{
		SampleRate:      cfg.SampleRate,
		Channels:        cfg.Channels,
		FramesPerBuffer: cfg.FramesPerBuffer,
		Logger:          logger,
	})
}

const usage = `Commands:
  Enter or r     start/stop recording
  p              replay the last translated audio
  s              swap source and target languages
  t <text>       translate text
  a <text>       read text aloud
  q              quit`

// console is the translator surface driven by the keyboard
type console interface {
	StartOrStopRecording(ctx context.Context) (capture.State, error)
	PlayLastTranslatedAudio(ctx context.Context) bool
	SwapLanguages() exchange.LanguagePair
	TranslateText(ctx context.Context, text string) (string, error)
	ReadAloud(ctx context.Context, text string) (bool, error)
}

// readKeys maps console input lines to translator operations
func readKeys(ctx context.Context, r io.Reader, w io.Writer, tr console, quit context.CancelFunc, logger *slog.Logger) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		cmd, arg, _ := strings.Cut(strings.TrimSpace(scanner.Text()), " ")
		arg = strings.TrimSpace(arg)

		switch strings.ToLower(cmd) {
		case "", "r":
			state, err := tr.StartOrStopRecording(ctx)
			if err != nil {
				fmt.Fprintf(w, "Cannot record: %v\n", err)
				continue
			}
			fmt.Fprintf(w, "Recording state: %s\n", state)
		case "p":
			if !tr.PlayLastTranslatedAudio(ctx) {
				fmt.Fprintln(w, "No translated audio yet")
			}
		case "s":
			langs := tr.SwapLanguages()
			fmt.Fprintf(w, "Languages: %s -> %s\n", langs.Source, langs.Target)
		case "t":
			// The translation itself is rendered by the display
			if _, err := tr.TranslateText(ctx, arg); errors.Is(err, exchange.ErrEmptyText) {
				fmt.Fprintln(w, "Usage: t <text>")
			}
		case "a":
			played, err := tr.ReadAloud(ctx, arg)
			switch {
			case errors.Is(err, exchange.ErrEmptyText):
				fmt.Fprintln(w, "Usage: a <text>")
			case err == nil && !played:
				fmt.Fprintln(w, "No audio received")
			}
		case "q":
			quit()
			return
		default:
			fmt.Fprintln(w, "Unknown command")
			fmt.Fprintln(w, usage)
		}
	}

	if err := scanner.Err(); err != nil {
		logger.Debug("Console input closed", slog.String("error", err.Error()))
	}
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Results go to stdout, so logs default to stderr
	var output *os.File
	switch cfg.Output {
	case "stderr", "":
		output = os.Stderr
	case "stdout":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stderr\n", cfg.Output, err)
			output = os.Stderr
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
