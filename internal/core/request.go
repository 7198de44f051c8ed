package core

// Default values for every tunable prediction parameter. A request built with
// NewPredictionRequest carries these until the caller overrides them.
const (
	DefaultEmotionScale            = 1.0
	DefaultIntervalSilenceMs       = 200
	DefaultMaxTextTokensPerSegment = 120
	DefaultTopP                    = 0.8
	DefaultTopK                    = 30
	DefaultTemperature             = 0.8
	DefaultLengthPenalty           = 0.0
	DefaultNumBeams                = 3
	DefaultRepetitionPenalty       = 10.0
	DefaultMaxMelTokens            = 1500
)

// PredictionRequest is the full input contract for a single prediction.
//
// Text and SpeakerAudioPath are required. EmotionAudioPath, EmotionVector and
// EmotionText are mutually exclusive emotion signals resolved in strict
// precedence order: vector, then audio blend, then text classifier, then the
// speaker reference itself. EmotionVector holds the textual form (comma
// separated floats or a JSON array of 8 floats).
type PredictionRequest struct {
	Text             string
	SpeakerAudioPath string
	EmotionAudioPath string
	EmotionScale     float64
	EmotionVector    string
	EmotionText      string
	RandomizeEmotion bool

	IntervalSilenceMs       int
	MaxTextTokensPerSegment int

	Sampling SamplingParams
}

// PredictionResult holds the path to the single synthesized WAV file.
type PredictionResult struct {
	AudioPath string
}

// NewPredictionRequest returns a request populated with the documented
// defaults for every optional parameter.
func NewPredictionRequest(text, speakerAudioPath string) PredictionRequest {
	return PredictionRequest{
		Text:                    text,
		SpeakerAudioPath:        speakerAudioPath,
		EmotionAudioPath:        "",
		EmotionScale:            DefaultEmotionScale,
		EmotionVector:           "",
		EmotionText:             "",
		RandomizeEmotion:        false,
		IntervalSilenceMs:       DefaultIntervalSilenceMs,
		MaxTextTokensPerSegment: DefaultMaxTextTokensPerSegment,
		Sampling: SamplingParams{
			TopP:              DefaultTopP,
			TopK:              DefaultTopK,
			Temperature:       DefaultTemperature,
			LengthPenalty:     DefaultLengthPenalty,
			NumBeams:          DefaultNumBeams,
			RepetitionPenalty: DefaultRepetitionPenalty,
			MaxMelTokens:      DefaultMaxMelTokens,
		},
	}
}
