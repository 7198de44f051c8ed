package predictor

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/book-expert/tts-predictor/internal/core"
	"github.com/book-expert/tts-predictor/internal/emotion"
)

// Closed valid ranges for every numeric request field.
const (
	MinEmotionScale = 0.0
	MaxEmotionScale = 1.0

	MinIntervalSilenceMs = 0
	MaxIntervalSilenceMs = 2000

	MinTextTokensPerSegment = 32
	MaxTextTokensPerSegment = 300

	MinTopP = 0.0
	MaxTopP = 1.0

	MinTopK = 1
	MaxTopK = 200

	MinTemperature = 0.0
	MaxTemperature = 2.0

	MinLengthPenalty = 0.0
	MaxLengthPenalty = 5.0

	MinNumBeams = 1
	MaxNumBeams = 8

	MinRepetitionPenalty = 1.0
	MaxRepetitionPenalty = 30.0

	MinMaxMelTokens = 256
	MaxMaxMelTokens = 4096
)

// Static validation errors. Each names the offending request field.
var (
	// ErrTextEmpty indicates the request text is empty or whitespace.
	ErrTextEmpty = errors.New("text cannot be empty")
	// ErrSpeakerAudioEmpty indicates no speaker reference path was given.
	ErrSpeakerAudioEmpty = errors.New("speaker_audio cannot be empty")
	// ErrEmotionScaleRange indicates emotion_scale is out of [0.0, 1.0].
	ErrEmotionScaleRange = errors.New("emotion_scale must be between 0.0 and 1.0")
	// ErrIntervalSilenceRange indicates interval_silence_ms is out of [0, 2000].
	ErrIntervalSilenceRange = errors.New(
		"interval_silence_ms must be between 0 and 2000",
	)
	// ErrTextTokensRange indicates max_text_tokens_per_segment is out of [32, 300].
	ErrTextTokensRange = errors.New(
		"max_text_tokens_per_segment must be between 32 and 300",
	)
	// ErrTopPRange indicates top_p is out of [0.0, 1.0].
	ErrTopPRange = errors.New("top_p must be between 0.0 and 1.0")
	// ErrTopKRange indicates top_k is out of [1, 200].
	ErrTopKRange = errors.New("top_k must be between 1 and 200")
	// ErrTemperatureRange indicates temperature is out of [0.0, 2.0].
	ErrTemperatureRange = errors.New("temperature must be between 0.0 and 2.0")
	// ErrLengthPenaltyRange indicates length_penalty is out of [0.0, 5.0].
	ErrLengthPenaltyRange = errors.New("length_penalty must be between 0.0 and 5.0")
	// ErrNumBeamsRange indicates num_beams is out of [1, 8].
	ErrNumBeamsRange = errors.New("num_beams must be between 1 and 8")
	// ErrRepetitionPenaltyRange indicates repetition_penalty is out of [1.0, 30.0].
	ErrRepetitionPenaltyRange = errors.New(
		"repetition_penalty must be between 1.0 and 30.0",
	)
	// ErrMaxMelTokensRange indicates max_mel_tokens is out of [256, 4096].
	ErrMaxMelTokensRange = errors.New("max_mel_tokens must be between 256 and 4096")
)

// ValidateRequest checks every field of the request against its documented
// contract before any synthesis work begins. The returned error identifies
// the offending field and the observed value.
func ValidateRequest(req core.PredictionRequest) error {
	textErr := validateText(req)
	if textErr != nil {
		return textErr
	}

	audioErr := validateReferenceAudio(req)
	if audioErr != nil {
		return audioErr
	}

	vectorErr := validateEmotionVector(req.EmotionVector)
	if vectorErr != nil {
		return vectorErr
	}

	rangeErr := validateNumericRanges(req)
	if rangeErr != nil {
		return rangeErr
	}

	return validateSamplingRanges(req.Sampling)
}

func validateText(req core.PredictionRequest) error {
	if strings.TrimSpace(req.Text) == "" {
		return ErrTextEmpty
	}

	return nil
}

// validateReferenceAudio confirms the speaker reference, and the emotion
// reference when given, exist and are readable.
func validateReferenceAudio(req core.PredictionRequest) error {
	if req.SpeakerAudioPath == "" {
		return ErrSpeakerAudioEmpty
	}

	readableErr := checkReadable("speaker_audio", req.SpeakerAudioPath)
	if readableErr != nil {
		return readableErr
	}

	if req.EmotionAudioPath != "" {
		return checkReadable("emotion_audio", req.EmotionAudioPath)
	}

	return nil
}

// checkReadable opens the file to prove readability, not just existence.
func checkReadable(field, path string) error {
	file, openErr := os.Open(path)
	if openErr != nil {
		return fmt.Errorf("%s is not readable: %w", field, openErr)
	}

	closeErr := file.Close()
	if closeErr != nil {
		return fmt.Errorf("%s could not be closed: %w", field, closeErr)
	}

	return nil
}

func validateEmotionVector(vectorText string) error {
	if strings.TrimSpace(vectorText) == "" {
		return nil
	}

	_, parseErr := emotion.Parse(vectorText)
	if parseErr != nil {
		return fmt.Errorf("emotion_vector is invalid: %w", parseErr)
	}

	return nil
}

func validateNumericRanges(req core.PredictionRequest) error {
	if req.EmotionScale < MinEmotionScale || req.EmotionScale > MaxEmotionScale {
		return fmt.Errorf("%w: got %g", ErrEmotionScaleRange, req.EmotionScale)
	}

	if req.IntervalSilenceMs < MinIntervalSilenceMs ||
		req.IntervalSilenceMs > MaxIntervalSilenceMs {
		return fmt.Errorf(
			"%w: got %d",
			ErrIntervalSilenceRange,
			req.IntervalSilenceMs,
		)
	}

	if req.MaxTextTokensPerSegment < MinTextTokensPerSegment ||
		req.MaxTextTokensPerSegment > MaxTextTokensPerSegment {
		return fmt.Errorf(
			"%w: got %d",
			ErrTextTokensRange,
			req.MaxTextTokensPerSegment,
		)
	}

	return nil
}

func validateSamplingRanges(params core.SamplingParams) error {
	if params.TopP < MinTopP || params.TopP > MaxTopP {
		return fmt.Errorf("%w: got %g", ErrTopPRange, params.TopP)
	}

	if params.TopK < MinTopK || params.TopK > MaxTopK {
		return fmt.Errorf("%w: got %d", ErrTopKRange, params.TopK)
	}

	if params.Temperature < MinTemperature || params.Temperature > MaxTemperature {
		return fmt.Errorf("%w: got %g", ErrTemperatureRange, params.Temperature)
	}

	if params.LengthPenalty < MinLengthPenalty ||
		params.LengthPenalty > MaxLengthPenalty {
		return fmt.Errorf("%w: got %g", ErrLengthPenaltyRange, params.LengthPenalty)
	}

	if params.NumBeams < MinNumBeams || params.NumBeams > MaxNumBeams {
		return fmt.Errorf("%w: got %d", ErrNumBeamsRange, params.NumBeams)
	}

	if params.RepetitionPenalty < MinRepetitionPenalty ||
		params.RepetitionPenalty > MaxRepetitionPenalty {
		return fmt.Errorf(
			"%w: got %g",
			ErrRepetitionPenaltyRange,
			params.RepetitionPenalty,
		)
	}

	if params.MaxMelTokens < MinMaxMelTokens || params.MaxMelTokens > MaxMaxMelTokens {
		return fmt.Errorf("%w: got %d", ErrMaxMelTokensRange, params.MaxMelTokens)
	}

	return nil
}
