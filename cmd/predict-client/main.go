// predict-client runs a single prediction against a synthesis engine over
// HTTP, without going through NATS. It exists for smoke-testing deployments.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/book-expert/logger"

	"github.com/book-expert/tts-predictor/internal/classifier"
	"github.com/book-expert/tts-predictor/internal/core"
	"github.com/book-expert/tts-predictor/internal/emotion"
	"github.com/book-expert/tts-predictor/internal/engine"
	"github.com/book-expert/tts-predictor/internal/predictor"
)

// Flag names.
const (
	flagText          = "text"
	flagSpeaker       = "speaker"
	flagEmotionAudio  = "emotion-audio"
	flagEmotionVector = "emotion-vector"
	flagEmotionText   = "emotion-text"
	flagScale         = "scale"
	flagSilence       = "silence"
	flagEngine        = "engine"
	flagClassifier    = "classifier"
	flagOutput        = "output"
	flagHealth        = "health"
	flagTimeout       = "timeout"
)

// Flag descriptions.
const (
	flagTextDesc          = "Text to synthesize"
	flagSpeakerDesc       = "Path to the speaker reference WAV"
	flagEmotionAudioDesc  = "Path to an emotion reference WAV (optional)"
	flagEmotionVectorDesc = "Emotion vector, 8 comma-separated weights (optional)"
	flagEmotionTextDesc   = "Free text describing the desired emotion (optional)"
	flagScaleDesc         = "Emotion blend scale in [0.0, 1.0]"
	flagSilenceDesc       = "Inter-segment silence in milliseconds"
	flagEngineDesc        = "Synthesis engine base URL"
	flagClassifierDesc    = "Text-emotion classifier base URL (optional)"
	flagOutputDesc        = "Output file path (.wav)"
	flagHealthDesc        = "Check synthesis engine health and exit"
	flagTimeoutDesc       = "Engine request timeout in seconds"
)

const (
	defaultEngineURL      = "http://127.0.0.1:8000"
	defaultOutputFile     = "output.wav"
	defaultTimeoutSeconds = 300

	healthCheckTimeout = 10 * time.Second
	outputPermissions  = 0o644
)

var (
	errTextRequired    = errors.New("--text must be provided")
	errSpeakerRequired = errors.New("--speaker must be provided")
)

// appFlags holds the parsed command-line flag values.
type appFlags struct {
	text          string
	speaker       string
	emotionAudio  string
	emotionVector string
	emotionText   string
	scale         float64
	silence       int
	engineURL     string
	classifierURL string
	output        string
	health        bool
	timeout       int
}

func main() {
	err := run()
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run() error {
	flags := parseFlags()

	appLogger, err := logger.New(os.TempDir(), "predict-client.log")
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	defer func() {
		closeErr := appLogger.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing logger: %v\n", closeErr)
		}
	}()

	timeout := time.Duration(flags.timeout) * time.Second
	synthesisEngine := engine.NewClient(flags.engineURL, timeout)

	if flags.health {
		return handleHealthCheck(synthesisEngine)
	}

	return handlePrediction(synthesisEngine, appLogger, flags)
}

// parseFlags defines and parses command-line flags, returning them in a struct.
func parseFlags() appFlags {
	var flags appFlags

	flag.StringVar(&flags.text, flagText, "", flagTextDesc)
	flag.StringVar(&flags.speaker, flagSpeaker, "", flagSpeakerDesc)
	flag.StringVar(&flags.emotionAudio, flagEmotionAudio, "", flagEmotionAudioDesc)
	flag.StringVar(&flags.emotionVector, flagEmotionVector, "", flagEmotionVectorDesc)
	flag.StringVar(&flags.emotionText, flagEmotionText, "", flagEmotionTextDesc)
	flag.Float64Var(&flags.scale, flagScale, core.DefaultEmotionScale, flagScaleDesc)
	flag.IntVar(&flags.silence, flagSilence, core.DefaultIntervalSilenceMs, flagSilenceDesc)
	flag.StringVar(&flags.engineURL, flagEngine, defaultEngineURL, flagEngineDesc)
	flag.StringVar(&flags.classifierURL, flagClassifier, "", flagClassifierDesc)
	flag.StringVar(&flags.output, flagOutput, defaultOutputFile, flagOutputDesc)
	flag.BoolVar(&flags.health, flagHealth, false, flagHealthDesc)
	flag.IntVar(&flags.timeout, flagTimeout, defaultTimeoutSeconds, flagTimeoutDesc)
	flag.Parse()

	return flags
}

// handleHealthCheck queries the engine health endpoint and prints the result.
func handleHealthCheck(synthesisEngine *engine.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
	defer cancel()

	err := synthesisEngine.HealthCheck(ctx)
	if err != nil {
		fmt.Printf("Synthesis engine is not healthy: %v\n", err)

		return fmt.Errorf("health check failed: %w", err)
	}

	fmt.Println("Synthesis engine is healthy")

	return nil
}

// handlePrediction validates the flags, runs the prediction, and copies the
// result to the requested output path.
func handlePrediction(
	synthesisEngine *engine.Client,
	appLogger *logger.Logger,
	flags appFlags,
) error {
	if flags.text == "" {
		flag.Usage()

		return errTextRequired
	}

	if flags.speaker == "" {
		flag.Usage()

		return errSpeakerRequired
	}

	var textClassifier emotion.Classifier
	if flags.classifierURL != "" {
		textClassifier = classifier.NewClient(flags.classifierURL, healthCheckTimeout)
	}

	resolver := emotion.NewResolver(textClassifier, appLogger)
	predictionService := predictor.New(synthesisEngine, resolver, appLogger)

	req := core.NewPredictionRequest(flags.text, flags.speaker)
	req.EmotionAudioPath = flags.emotionAudio
	req.EmotionVector = flags.emotionVector
	req.EmotionText = flags.emotionText
	req.EmotionScale = flags.scale
	req.IntervalSilenceMs = flags.silence

	result, err := predictionService.Predict(context.Background(), req)
	if err != nil {
		return fmt.Errorf("prediction failed: %w", err)
	}

	defer func() {
		_ = os.Remove(result.AudioPath)
	}()

	copyErr := copyFile(result.AudioPath, flags.output)
	if copyErr != nil {
		return copyErr
	}

	fmt.Printf("Generated: %s\n", flags.output)

	return nil
}

func copyFile(sourcePath, destinationPath string) error {
	source, openErr := os.Open(sourcePath)
	if openErr != nil {
		return fmt.Errorf("failed to open prediction output: %w", openErr)
	}

	defer func() {
		_ = source.Close()
	}()

	destination, createErr := os.OpenFile(
		destinationPath,
		os.O_WRONLY|os.O_CREATE|os.O_TRUNC,
		outputPermissions,
	)
	if createErr != nil {
		return fmt.Errorf("failed to create output file: %w", createErr)
	}

	_, copyErr := io.Copy(destination, source)
	closeErr := destination.Close()

	if copyErr != nil {
		return fmt.Errorf("failed to copy output file: %w", copyErr)
	}

	if closeErr != nil {
		return fmt.Errorf("failed to close output file: %w", closeErr)
	}

	return nil
}
