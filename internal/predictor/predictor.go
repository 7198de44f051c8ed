// Package predictor implements the prediction façade: it validates a request,
// resolves the emotion-control mode, segments the text, delegates waveform
// generation to the external synthesis engine, and stitches the segment
// outputs into one WAV file.
package predictor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/book-expert/logger"

	"github.com/book-expert/tts-predictor/internal/audio"
	"github.com/book-expert/tts-predictor/internal/core"
	"github.com/book-expert/tts-predictor/internal/emotion"
	"github.com/book-expert/tts-predictor/internal/segment"
)

// Output file naming.
const (
	outputDirPattern = "tts-predict-"
	outputFileName   = "output.wav"
)

// Log formats.
const (
	logFmtResolvedEmotion = "Resolved emotion mode %q for request (%d segments)"
	logFmtSegmentDone     = "Synthesized segment %d/%d (%d bytes)"
	logFmtPredictionDone  = "Prediction complete: %s"
)

// Predictor is a stateless-per-call façade over the synthesis engine. The
// engine and resolver it holds are read-only after construction, so a single
// Predictor may serve concurrent requests.
type Predictor struct {
	engine   core.SynthesisEngine
	resolver *emotion.Resolver
	log      *logger.Logger
}

// New creates a Predictor delegating to the given engine and resolver.
func New(
	synthesisEngine core.SynthesisEngine,
	resolver *emotion.Resolver,
	log *logger.Logger,
) *Predictor {
	return &Predictor{
		engine:   synthesisEngine,
		resolver: resolver,
		log:      log,
	}
}

// Predict runs one complete prediction. It fails fast on invalid input,
// degrades classifier failures to the neutral emotion, and treats any engine
// error as terminal. On success the result holds the path to a single
// complete WAV file; no partial results are ever returned.
func (p *Predictor) Predict(
	ctx context.Context,
	req core.PredictionRequest,
) (core.PredictionResult, error) {
	validationErr := ValidateRequest(req)
	if validationErr != nil {
		return core.PredictionResult{}, fmt.Errorf(
			"invalid prediction request: %w",
			validationErr,
		)
	}

	control, resolveErr := p.resolver.Resolve(ctx, emotionSource(req))
	if resolveErr != nil {
		return core.PredictionResult{}, fmt.Errorf(
			"failed to resolve emotion control: %w",
			resolveErr,
		)
	}

	healthErr := p.engine.HealthCheck(ctx)
	if healthErr != nil {
		return core.PredictionResult{}, fmt.Errorf(
			"synthesis engine health check failed: %w",
			healthErr,
		)
	}

	segments := segment.Split(req.Text, req.MaxTextTokensPerSegment)
	if len(segments) == 0 {
		return core.PredictionResult{}, ErrTextEmpty
	}

	p.log.Info(logFmtResolvedEmotion, control.Mode, len(segments))

	segmentAudio, synthesisErr := p.synthesizeSegments(ctx, req, control, segments)
	if synthesisErr != nil {
		return core.PredictionResult{}, synthesisErr
	}

	outputPath, assembleErr := p.assembleOutput(segmentAudio, req.IntervalSilenceMs)
	if assembleErr != nil {
		return core.PredictionResult{}, assembleErr
	}

	p.log.Info(logFmtPredictionDone, outputPath)

	return core.PredictionResult{AudioPath: outputPath}, nil
}

// synthesizeSegments runs the engine once per segment, in order. Segments are
// sequential on purpose: the engine serializes inference per request, and
// ordering must be preserved for stitching.
func (p *Predictor) synthesizeSegments(
	ctx context.Context,
	req core.PredictionRequest,
	control emotion.Control,
	segments []string,
) ([][]byte, error) {
	segmentAudio := make([][]byte, 0, len(segments))

	for segmentIndex, segmentText := range segments {
		job := core.SegmentJob{
			Text:             segmentText,
			SpeakerAudioPath: req.SpeakerAudioPath,
			Emotion:          control,
			Sampling:         req.Sampling,
		}

		audioData, synthesisErr := p.engine.Synthesize(ctx, job)
		if synthesisErr != nil {
			return nil, fmt.Errorf(
				"synthesis failed for segment %d of %d: %w",
				segmentIndex+1,
				len(segments),
				synthesisErr,
			)
		}

		p.log.Info(
			logFmtSegmentDone,
			segmentIndex+1,
			len(segments),
			len(audioData),
		)

		segmentAudio = append(segmentAudio, audioData)
	}

	return segmentAudio, nil
}

// assembleOutput stitches the segment WAVs into a fresh per-request temp
// directory and returns the output path.
func (p *Predictor) assembleOutput(
	segmentAudio [][]byte,
	intervalSilenceMs int,
) (string, error) {
	outputDir, tempErr := os.MkdirTemp("", outputDirPattern)
	if tempErr != nil {
		return "", fmt.Errorf("failed to create output directory: %w", tempErr)
	}

	outputPath := filepath.Join(outputDir, outputFileName)

	stitchErr := audio.StitchToFile(segmentAudio, intervalSilenceMs, outputPath)
	if stitchErr != nil {
		return "", fmt.Errorf("failed to assemble output audio: %w", stitchErr)
	}

	return outputPath, nil
}

// emotionSource maps the request fields onto the resolver's input.
func emotionSource(req core.PredictionRequest) emotion.Source {
	return emotion.Source{
		VectorText:       req.EmotionVector,
		AudioPath:        req.EmotionAudioPath,
		Scale:            req.EmotionScale,
		Text:             req.EmotionText,
		Randomize:        req.RandomizeEmotion,
		SpeakerAudioPath: req.SpeakerAudioPath,
	}
}
