// Package worker provides a NATS worker that processes prediction jobs.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/tts-predictor/internal/core"
)

const (
	handleMessageTimeout = 10 * time.Minute

	requestDirPattern    = "tts-predictor-job-"
	speakerFileName      = "speaker.wav"
	emotionFileName      = "emotion.wav"
	requestDirPermission = 0o700
)

// PredictionRequestedEvent is the inbound job message. Omitted parameter
// fields keep their documented defaults; fields present in the payload,
// including explicit zeros, are honored as sent.
type PredictionRequestedEvent struct {
	Header events.EventHeader `json:"header"`

	Text            string `json:"text"`
	SpeakerAudioKey string `json:"speaker_audio_key"`
	EmotionAudioKey string `json:"emotion_audio_key,omitempty"`

	EmotionScale            float64 `json:"emotion_scale"`
	EmotionVector           string  `json:"emotion_vector,omitempty"`
	EmotionText             string  `json:"emotion_text,omitempty"`
	RandomizeEmotion        bool    `json:"randomize_emotion"`
	IntervalSilenceMs       int     `json:"interval_silence_ms"`
	MaxTextTokensPerSegment int     `json:"max_text_tokens_per_segment"`

	TopP              float64 `json:"top_p"`
	TopK              int     `json:"top_k"`
	Temperature       float64 `json:"temperature"`
	LengthPenalty     float64 `json:"length_penalty"`
	NumBeams          int     `json:"num_beams"`
	RepetitionPenalty float64 `json:"repetition_penalty"`
	MaxMelTokens      int     `json:"max_mel_tokens"`
}

// PredictionCompletedEvent is the reply message carrying the object-store key
// of the finished audio.
type PredictionCompletedEvent struct {
	Header   events.EventHeader `json:"header"`
	AudioKey string             `json:"audio_key"`
}

// NatsWorker listens for prediction jobs on a NATS subject and processes them.
type NatsWorker struct {
	natsConnection   *nats.Conn
	jetstreamContext nats.JetStreamContext
	subject          string
	store            core.ObjectStore
	predictor        core.Predictor
	log              *logger.Logger
}

// NewNatsWorker creates a new instance of a NATS worker.
func NewNatsWorker(
	natsConnection *nats.Conn,
	jetstreamContext nats.JetStreamContext,
	subject string,
	store core.ObjectStore,
	predictor core.Predictor,
	log *logger.Logger,
) (*NatsWorker, error) {
	return &NatsWorker{
		natsConnection:   natsConnection,
		jetstreamContext: jetstreamContext,
		subject:          subject,
		store:            store,
		predictor:        predictor,
		log:              log,
	}, nil
}

// Run starts the worker and begins listening for messages.
func (w *NatsWorker) Run(ctx context.Context) error {
	sub, err := w.natsConnection.Subscribe(w.subject, w.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.subject, err)
	}

	<-ctx.Done()

	drainErr := sub.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain subscription: %w", drainErr)
	}

	return nil
}

func (w *NatsWorker) handleMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), handleMessageTimeout)
	defer cancel()

	event, parseErr := parseEvent(msg)
	if parseErr != nil {
		w.log.Error("Failed to parse prediction event: %v", parseErr)

		return
	}

	audioKey, jobErr := w.processPredictionJob(ctx, event)
	if jobErr != nil {
		w.log.Error(
			"Failed to process prediction job for workflow %s: %v",
			event.Header.WorkflowID,
			jobErr,
		)

		return
	}

	replyEvent := &PredictionCompletedEvent{
		Header:   event.Header,
		AudioKey: audioKey,
	}

	publishErr := w.publishReplyEvent(msg, replyEvent)
	if publishErr != nil {
		w.log.Error(
			"Failed to publish reply event for workflow %s: %v",
			event.Header.WorkflowID,
			publishErr,
		)
	}
}

// processPredictionJob downloads the reference audio, runs the prediction,
// and uploads the resulting WAV under a fresh key.
func (w *NatsWorker) processPredictionJob(
	ctx context.Context,
	event *PredictionRequestedEvent,
) (string, error) {
	workDir, tempErr := os.MkdirTemp("", requestDirPattern)
	if tempErr != nil {
		return "", fmt.Errorf("failed to create job directory: %w", tempErr)
	}

	defer func() {
		removeErr := os.RemoveAll(workDir)
		if removeErr != nil {
			w.log.Error("Failed to remove job directory %s: %v", workDir, removeErr)
		}
	}()

	req, buildErr := w.buildRequest(ctx, event, workDir)
	if buildErr != nil {
		return "", buildErr
	}

	result, predictErr := w.predictor.Predict(ctx, req)
	if predictErr != nil {
		return "", fmt.Errorf("prediction failed: %w", predictErr)
	}

	defer func() {
		removeErr := os.RemoveAll(filepath.Dir(result.AudioPath))
		if removeErr != nil {
			w.log.Error("Failed to remove prediction output: %v", removeErr)
		}
	}()

	audioData, readErr := os.ReadFile(result.AudioPath)
	if readErr != nil {
		return "", fmt.Errorf("failed to read prediction output: %w", readErr)
	}

	audioKey := uuid.NewString() + ".wav"

	uploadErr := w.store.Upload(ctx, audioKey, audioData)
	if uploadErr != nil {
		return "", fmt.Errorf(
			"failed to upload audio data for key '%s': %w",
			audioKey,
			uploadErr,
		)
	}

	return audioKey, nil
}

// buildRequest materializes the referenced audio into the job directory and
// maps the event fields onto a prediction request.
func (w *NatsWorker) buildRequest(
	ctx context.Context,
	event *PredictionRequestedEvent,
	workDir string,
) (core.PredictionRequest, error) {
	speakerPath, speakerErr := w.materialize(
		ctx, event.SpeakerAudioKey, filepath.Join(workDir, speakerFileName),
	)
	if speakerErr != nil {
		return core.PredictionRequest{}, speakerErr
	}

	req := core.NewPredictionRequest(event.Text, speakerPath)
	req.EmotionScale = event.EmotionScale
	req.EmotionVector = event.EmotionVector
	req.EmotionText = event.EmotionText
	req.RandomizeEmotion = event.RandomizeEmotion
	req.IntervalSilenceMs = event.IntervalSilenceMs
	req.MaxTextTokensPerSegment = event.MaxTextTokensPerSegment
	req.Sampling = core.SamplingParams{
		TopP:              event.TopP,
		TopK:              event.TopK,
		Temperature:       event.Temperature,
		LengthPenalty:     event.LengthPenalty,
		NumBeams:          event.NumBeams,
		RepetitionPenalty: event.RepetitionPenalty,
		MaxMelTokens:      event.MaxMelTokens,
	}

	if event.EmotionAudioKey != "" {
		emotionPath, emotionErr := w.materialize(
			ctx, event.EmotionAudioKey, filepath.Join(workDir, emotionFileName),
		)
		if emotionErr != nil {
			return core.PredictionRequest{}, emotionErr
		}

		req.EmotionAudioPath = emotionPath
	}

	return req, nil
}

// materialize downloads an object-store entry to a local file.
func (w *NatsWorker) materialize(
	ctx context.Context,
	key string,
	localPath string,
) (string, error) {
	data, downloadErr := w.store.Download(ctx, key)
	if downloadErr != nil {
		return "", fmt.Errorf(
			"failed to download reference audio for key '%s': %w",
			key,
			downloadErr,
		)
	}

	writeErr := os.WriteFile(localPath, data, requestDirPermission)
	if writeErr != nil {
		return "", fmt.Errorf(
			"failed to write reference audio to %s: %w",
			localPath,
			writeErr,
		)
	}

	return localPath, nil
}

// publishReplyEvent marshals and responds with the PredictionCompletedEvent.
func (w *NatsWorker) publishReplyEvent(
	msg *nats.Msg,
	replyEvent *PredictionCompletedEvent,
) error {
	replyData, marshalErr := json.Marshal(replyEvent)
	if marshalErr != nil {
		return fmt.Errorf("failed to marshal reply event: %w", marshalErr)
	}

	respondErr := msg.Respond(replyData)
	if respondErr != nil {
		return fmt.Errorf("failed to publish reply event: %w", respondErr)
	}

	return nil
}

// parseEvent decodes the job payload over a defaults-populated event, so that
// omitted fields keep their defaults while explicit values, zeros included,
// win.
func parseEvent(msg *nats.Msg) (*PredictionRequestedEvent, error) {
	event := newDefaultEvent()

	err := json.Unmarshal(msg.Data, event)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	return event, nil
}

func newDefaultEvent() *PredictionRequestedEvent {
	defaults := core.NewPredictionRequest("", "")

	return &PredictionRequestedEvent{
		Header:                  events.EventHeader{},
		Text:                    "",
		SpeakerAudioKey:         "",
		EmotionAudioKey:         "",
		EmotionScale:            defaults.EmotionScale,
		EmotionVector:           "",
		EmotionText:             "",
		RandomizeEmotion:        false,
		IntervalSilenceMs:       defaults.IntervalSilenceMs,
		MaxTextTokensPerSegment: defaults.MaxTextTokensPerSegment,
		TopP:                    defaults.Sampling.TopP,
		TopK:                    defaults.Sampling.TopK,
		Temperature:             defaults.Sampling.Temperature,
		LengthPenalty:           defaults.Sampling.LengthPenalty,
		NumBeams:                defaults.Sampling.NumBeams,
		RepetitionPenalty:       defaults.Sampling.RepetitionPenalty,
		MaxMelTokens:            defaults.Sampling.MaxMelTokens,
	}
}
