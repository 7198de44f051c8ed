// Package emotion_test tests the emotion resolution precedence rules.
package emotion_test

import (
	"context"
	"errors"
	"testing"

	"github.com/book-expert/logger"
	"github.com/book-expert/tts-predictor/internal/emotion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errMockClassify = errors.New("mock classify error")

// mockClassifier is a mock implementation of the Classifier interface.
type mockClassifier struct {
	classifyShouldFail bool
	classifiedText     string
	result             emotion.Vector
}

func (m *mockClassifier) Classify(
	_ context.Context,
	text string,
) (emotion.Vector, error) {
	if m.classifyShouldFail {
		return emotion.Vector{}, errMockClassify
	}

	m.classifiedText = text

	return m.result, nil
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "resolver-test.log")
	require.NoError(t, err)

	return log
}

func TestResolve_VectorTakesPrecedenceOverAudio(t *testing.T) {
	t.Parallel()

	classifier := &mockClassifier{
		classifyShouldFail: false,
		classifiedText:     "",
		result:             emotion.Vector{},
	}
	resolver := emotion.NewResolver(classifier, newTestLogger(t))

	control, err := resolver.Resolve(context.Background(), emotion.Source{
		VectorText:       "0,1,0,0,0,0,0,0",
		AudioPath:        "/refs/angry.wav",
		Scale:            0.5,
		Text:             "furious text",
		Randomize:        true,
		SpeakerAudioPath: "/refs/speaker.wav",
	})
	require.NoError(t, err)

	assert.Equal(t, emotion.ModeVector, control.Mode)
	require.NotNil(t, control.Vector)
	assert.InEpsilon(t, 1.0, control.Vector[emotion.IndexAngry], 1e-9)
	assert.True(t, control.Randomize)
	assert.Empty(t, control.AudioPath)
	assert.Empty(t, classifier.classifiedText, "classifier must be bypassed")
}

func TestResolve_AudioBlendUsesScale(t *testing.T) {
	t.Parallel()

	resolver := emotion.NewResolver(nil, newTestLogger(t))

	control, err := resolver.Resolve(context.Background(), emotion.Source{
		VectorText:       "",
		AudioPath:        "/refs/sad.wav",
		Scale:            0.3,
		Text:             "",
		Randomize:        false,
		SpeakerAudioPath: "/refs/speaker.wav",
	})
	require.NoError(t, err)

	assert.Equal(t, emotion.ModeAudioBlend, control.Mode)
	assert.Equal(t, "/refs/sad.wav", control.AudioPath)
	assert.InEpsilon(t, 0.3, control.Scale, 1e-9)
	assert.Nil(t, control.Vector)
}

func TestResolve_TextUsesClassifier(t *testing.T) {
	t.Parallel()

	classified := emotion.Vector{}
	classified[emotion.IndexHappy] = 0.9

	classifier := &mockClassifier{
		classifyShouldFail: false,
		classifiedText:     "",
		result:             classified,
	}
	resolver := emotion.NewResolver(classifier, newTestLogger(t))

	control, err := resolver.Resolve(context.Background(), emotion.Source{
		VectorText:       "",
		AudioPath:        "",
		Scale:            0,
		Text:             "what wonderful news",
		Randomize:        false,
		SpeakerAudioPath: "/refs/speaker.wav",
	})
	require.NoError(t, err)

	assert.Equal(t, emotion.ModeText, control.Mode)
	require.NotNil(t, control.Vector)
	assert.Equal(t, classified, *control.Vector)
	assert.Equal(t, "what wonderful news", classifier.classifiedText)
}

func TestResolve_ClassifierFailureFallsBackToNeutral(t *testing.T) {
	t.Parallel()

	classifier := &mockClassifier{
		classifyShouldFail: true,
		classifiedText:     "",
		result:             emotion.Vector{},
	}
	resolver := emotion.NewResolver(classifier, newTestLogger(t))

	control, err := resolver.Resolve(context.Background(), emotion.Source{
		VectorText:       "",
		AudioPath:        "",
		Scale:            0,
		Text:             "some text",
		Randomize:        false,
		SpeakerAudioPath: "/refs/speaker.wav",
	})
	require.NoError(t, err, "classifier failure must not fail resolution")

	assert.Equal(t, emotion.ModeText, control.Mode)
	require.NotNil(t, control.Vector)
	assert.Equal(t, emotion.Neutral(), *control.Vector)
}

func TestResolve_MissingClassifierFallsBackToNeutral(t *testing.T) {
	t.Parallel()

	resolver := emotion.NewResolver(nil, newTestLogger(t))

	control, err := resolver.Resolve(context.Background(), emotion.Source{
		VectorText:       "",
		AudioPath:        "",
		Scale:            0,
		Text:             "some text",
		Randomize:        false,
		SpeakerAudioPath: "/refs/speaker.wav",
	})
	require.NoError(t, err)

	require.NotNil(t, control.Vector)
	assert.Equal(t, emotion.Neutral(), *control.Vector)
}

func TestResolve_NoSignalFallsBackToSpeakerAudio(t *testing.T) {
	t.Parallel()

	resolver := emotion.NewResolver(nil, newTestLogger(t))

	control, err := resolver.Resolve(context.Background(), emotion.Source{
		VectorText:       "",
		AudioPath:        "",
		Scale:            0,
		Text:             "",
		Randomize:        false,
		SpeakerAudioPath: "/refs/speaker.wav",
	})
	require.NoError(t, err)

	assert.Equal(t, emotion.ModeSpeaker, control.Mode)
	assert.Equal(t, "/refs/speaker.wav", control.AudioPath)
	assert.InEpsilon(t, emotion.SpeakerFallbackScale, control.Scale, 1e-9)
}

func TestResolve_MalformedVectorFails(t *testing.T) {
	t.Parallel()

	resolver := emotion.NewResolver(nil, newTestLogger(t))

	_, err := resolver.Resolve(context.Background(), emotion.Source{
		VectorText:       "not,a,vector",
		AudioPath:        "",
		Scale:            0,
		Text:             "",
		Randomize:        false,
		SpeakerAudioPath: "/refs/speaker.wav",
	})
	require.ErrorIs(t, err, emotion.ErrVectorUnparseable)
}
