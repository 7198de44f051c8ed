// main package for the tts-predictor service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/book-expert/logger"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/tts-predictor/internal/classifier"
	"github.com/book-expert/tts-predictor/internal/config"
	"github.com/book-expert/tts-predictor/internal/emotion"
	"github.com/book-expert/tts-predictor/internal/engine"
	"github.com/book-expert/tts-predictor/internal/objectstore"
	"github.com/book-expert/tts-predictor/internal/predictor"
	"github.com/book-expert/tts-predictor/internal/worker"
)

func setupLogger(logPath string) (*logger.Logger, error) {
	log, err := logger.New(logPath, "tts-predictor.log")
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

func run() error {
	// Bootstrap logger covers the window before configuration is available.
	bootstrapLog, err := setupLogger(os.TempDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	return runService(cfg, finalLog)
}

// runService wires the NATS transport, object store, synthesis engine, and
// prediction worker, then blocks until shutdown.
func runService(cfg *config.Config, log *logger.Logger) error {
	natsConnection, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
	}
	defer natsConnection.Close()

	jetstreamContext, err := natsConnection.JetStream()
	if err != nil {
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	store, err := objectstore.New(jetstreamContext, cfg.NATS.AudioObjectStoreBucket)
	if err != nil {
		return fmt.Errorf("failed to initialize object store: %w", err)
	}

	engineTimeout := time.Duration(cfg.Engine.TimeoutSeconds) * time.Second
	synthesisEngine := engine.NewClient(cfg.Engine.BaseURL, engineTimeout)

	var textClassifier emotion.Classifier
	if cfg.Classifier.Enabled {
		classifierTimeout := time.Duration(cfg.Classifier.TimeoutSeconds) * time.Second
		textClassifier = classifier.NewClient(cfg.Classifier.BaseURL, classifierTimeout)

		log.Info("Text-emotion classifier enabled at %s", cfg.Classifier.BaseURL)
	} else {
		log.Info("Text-emotion classifier disabled; text requests resolve to neutral")
	}

	resolver := emotion.NewResolver(textClassifier, log)
	predictionService := predictor.New(synthesisEngine, resolver, log)

	natsWorker, err := worker.NewNatsWorker(
		natsConnection,
		jetstreamContext,
		cfg.NATS.PredictionRequestedSubject,
		store,
		predictionService,
		log,
	)
	if err != nil {
		return fmt.Errorf("failed to create worker: %w", err)
	}

	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	log.System(
		"TTS-Predictor successfully initialized. Listening for jobs on subject: %s",
		cfg.NATS.PredictionRequestedSubject,
	)

	runErr := natsWorker.Run(ctx)
	if runErr != nil {
		return fmt.Errorf("worker exited with error: %w", runErr)
	}

	log.System("TTS-Predictor shut down cleanly.")

	return nil
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
