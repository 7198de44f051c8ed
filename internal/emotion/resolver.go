package emotion

import (
	"context"
	"fmt"
	"strings"

	"github.com/book-expert/logger"
)

// Mode identifies which emotion-control path a request resolved to. Exactly
// one mode is active per request.
type Mode string

// Resolution modes, in precedence order.
const (
	ModeVector     Mode = "vector"
	ModeAudioBlend Mode = "audio_blend"
	ModeText       Mode = "text"
	ModeSpeaker    Mode = "speaker"
)

// SpeakerFallbackScale is the blend weight used when the speaker reference
// doubles as the emotion reference.
const SpeakerFallbackScale = 1.0

// Control is the resolved emotion signal handed to the synthesis engine.
// Vector is set for ModeVector and ModeText; AudioPath and Scale are set for
// ModeAudioBlend and ModeSpeaker.
type Control struct {
	Mode      Mode
	Vector    *Vector
	AudioPath string
	Scale     float64
	Randomize bool
}

// Classifier produces an emotion vector from free text. Implementations call
// an external model and may fail for any reason; the resolver treats every
// failure as recoverable.
type Classifier interface {
	Classify(ctx context.Context, text string) (Vector, error)
}

// Source carries the emotion-relevant fields of a prediction request.
type Source struct {
	VectorText       string
	AudioPath        string
	Scale            float64
	Text             string
	Randomize        bool
	SpeakerAudioPath string
}

// Resolver selects the emotion-control mode for a request. Resolution is
// deterministic and side-effect-free except for the classifier call on the
// text path.
type Resolver struct {
	classifier Classifier
	log        *logger.Logger
}

// NewResolver creates a resolver. The classifier may be nil when the
// deployment runs without one; the text path then degrades to neutral.
func NewResolver(classifier Classifier, log *logger.Logger) *Resolver {
	return &Resolver{
		classifier: classifier,
		log:        log,
	}
}

// Resolve applies the strict precedence order: explicit vector, then emotion
// reference audio blended by scale, then the text classifier, then the
// speaker reference itself with scale 1.0. A classifier failure never fails
// resolution; it substitutes the neutral vector and logs a warning.
func (r *Resolver) Resolve(ctx context.Context, src Source) (Control, error) {
	if strings.TrimSpace(src.VectorText) != "" {
		return r.resolveVector(src)
	}

	if src.AudioPath != "" {
		return Control{
			Mode:      ModeAudioBlend,
			Vector:    nil,
			AudioPath: src.AudioPath,
			Scale:     src.Scale,
			Randomize: false,
		}, nil
	}

	if strings.TrimSpace(src.Text) != "" {
		return r.resolveText(ctx, src.Text), nil
	}

	return Control{
		Mode:      ModeSpeaker,
		Vector:    nil,
		AudioPath: src.SpeakerAudioPath,
		Scale:     SpeakerFallbackScale,
		Randomize: false,
	}, nil
}

func (r *Resolver) resolveVector(src Source) (Control, error) {
	vector, err := Parse(src.VectorText)
	if err != nil {
		return Control{}, fmt.Errorf("failed to parse emotion vector: %w", err)
	}

	return Control{
		Mode:      ModeVector,
		Vector:    &vector,
		AudioPath: "",
		Scale:     0,
		Randomize: src.Randomize,
	}, nil
}

// resolveText consults the classifier and degrades to the neutral vector on
// any failure. The degradation is a warning, never an error.
func (r *Resolver) resolveText(ctx context.Context, text string) Control {
	vector := Neutral()

	switch {
	case r.classifier == nil:
		r.log.Warn(
			"Emotion classifier unavailable; falling back to neutral emotion",
		)
	default:
		classified, err := r.classifier.Classify(ctx, text)
		if err != nil {
			r.log.Warn(
				"Emotion classification failed (%v); falling back to neutral emotion",
				err,
			)
		} else {
			vector = classified
		}
	}

	return Control{
		Mode:      ModeText,
		Vector:    &vector,
		AudioPath: "",
		Scale:     0,
		Randomize: false,
	}
}
