// Package core defines the core business logic and interfaces for the TTS
// prediction service.
package core

import (
	"context"

	"github.com/book-expert/tts-predictor/internal/emotion"
)

// ObjectStore defines the interface for interacting with a key-value blob store.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
}

// SamplingParams holds the autoregressive sampling and decoding parameters
// forwarded to the synthesis engine for every segment.
type SamplingParams struct {
	TopP              float64
	TopK              int
	Temperature       float64
	LengthPenalty     float64
	NumBeams          int
	RepetitionPenalty float64
	MaxMelTokens      int
}

// SegmentJob is the unit of work handed to the synthesis engine: one bounded
// text segment plus the speaker reference and the resolved emotion control.
type SegmentJob struct {
	Text             string
	SpeakerAudioPath string
	Emotion          emotion.Control
	Sampling         SamplingParams
}

// SynthesisEngine defines the interface to the external model that performs
// the actual waveform generation. Any error it returns is terminal for the
// request that produced the job.
type SynthesisEngine interface {
	Synthesize(ctx context.Context, job SegmentJob) ([]byte, error)
	HealthCheck(ctx context.Context) error
}

// Predictor defines the interface for a complete prediction: request in,
// path to a single synthesized WAV file out.
type Predictor interface {
	Predict(ctx context.Context, req PredictionRequest) (PredictionResult, error)
}
