package predictor_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/logger"
	"github.com/book-expert/tts-predictor/internal/core"
	"github.com/book-expert/tts-predictor/internal/emotion"
	"github.com/book-expert/tts-predictor/internal/predictor"
)

const (
	testSampleRate    = 16000
	testBitDepth      = 16
	segmentSampleSize = 160
)

var (
	errMockSynthesize = errors.New("mock synthesize error")
	errMockHealth     = errors.New("mock health error")
)

// mockEngine is a mock implementation of the SynthesisEngine interface.
type mockEngine struct {
	synthesizeShouldFail bool
	healthShouldFail     bool
	jobs                 []core.SegmentJob
	wavData              []byte
}

func (m *mockEngine) Synthesize(
	_ context.Context,
	job core.SegmentJob,
) ([]byte, error) {
	if m.synthesizeShouldFail {
		return nil, errMockSynthesize
	}

	m.jobs = append(m.jobs, job)

	return m.wavData, nil
}

func (m *mockEngine) HealthCheck(_ context.Context) error {
	if m.healthShouldFail {
		return errMockHealth
	}

	return nil
}

// segmentWAV builds a small mono WAV used as the mock engine output.
func segmentWAV(t *testing.T) []byte {
	t.Helper()

	path := filepath.Join(t.TempDir(), "segment.wav")

	file, err := os.Create(path)
	require.NoError(t, err)

	samples := make([]int, segmentSampleSize)
	for i := range samples {
		samples[i] = 100
	}

	encoder := wav.NewEncoder(file, testSampleRate, testBitDepth, 1, 1)

	err = encoder.Write(&goaudio.IntBuffer{
		Format: &goaudio.Format{
			SampleRate:  testSampleRate,
			NumChannels: 1,
		},
		Data:           samples,
		SourceBitDepth: testBitDepth,
	})
	require.NoError(t, err)
	require.NoError(t, encoder.Close())
	require.NoError(t, file.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	return data
}

func setupPredictor(
	t *testing.T,
	engine *mockEngine,
	classifier emotion.Classifier,
) *predictor.Predictor {
	t.Helper()

	log, err := logger.New(t.TempDir(), "predictor-test.log")
	require.NoError(t, err)

	resolver := emotion.NewResolver(classifier, log)

	return predictor.New(engine, resolver, log)
}

func cleanupResult(t *testing.T, result core.PredictionResult) {
	t.Helper()

	if result.AudioPath == "" {
		return
	}

	t.Cleanup(func() {
		_ = os.RemoveAll(filepath.Dir(result.AudioPath))
	})
}

func TestPredict_SingleSegment(t *testing.T) {
	t.Parallel()

	engine := &mockEngine{
		synthesizeShouldFail: false,
		healthShouldFail:     false,
		jobs:                 nil,
		wavData:              segmentWAV(t),
	}
	pred := setupPredictor(t, engine, nil)

	result, err := pred.Predict(context.Background(), validRequest(t))
	require.NoError(t, err)
	cleanupResult(t, result)

	require.Len(t, engine.jobs, 1)
	assert.Equal(t, emotion.ModeSpeaker, engine.jobs[0].Emotion.Mode)

	info, err := os.Stat(result.AudioPath)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestPredict_LongTextProducesStitchedSegments(t *testing.T) {
	t.Parallel()

	engine := &mockEngine{
		synthesizeShouldFail: false,
		healthShouldFail:     false,
		jobs:                 nil,
		wavData:              segmentWAV(t),
	}
	pred := setupPredictor(t, engine, nil)

	req := validRequest(t)
	req.Text = strings.Repeat(
		"The quick brown fox jumps over the lazy dog near the river bank today. ",
		8,
	)
	req.MaxTextTokensPerSegment = 32
	req.IntervalSilenceMs = 100

	result, err := pred.Predict(context.Background(), req)
	require.NoError(t, err)
	cleanupResult(t, result)

	require.Greater(t, len(engine.jobs), 1)

	outputFile, err := os.Open(result.AudioPath)
	require.NoError(t, err)

	defer func() {
		closeErr := outputFile.Close()
		require.NoError(t, closeErr)
	}()

	buffer, err := wav.NewDecoder(outputFile).FullPCMBuffer()
	require.NoError(t, err)

	segmentCount := len(engine.jobs)
	silenceSamples := testSampleRate * req.IntervalSilenceMs / 1000
	expected := segmentCount*segmentSampleSize + (segmentCount-1)*silenceSamples

	assert.Len(t, buffer.Data, expected)
}

func TestPredict_VectorPrecedenceReachesEngine(t *testing.T) {
	t.Parallel()

	engine := &mockEngine{
		synthesizeShouldFail: false,
		healthShouldFail:     false,
		jobs:                 nil,
		wavData:              segmentWAV(t),
	}
	pred := setupPredictor(t, engine, nil)

	req := validRequest(t)
	req.EmotionVector = "0,1,0,0,0,0,0,0"
	req.EmotionAudioPath = writeSpeakerFile(t)

	result, err := pred.Predict(context.Background(), req)
	require.NoError(t, err)
	cleanupResult(t, result)

	require.Len(t, engine.jobs, 1)
	assert.Equal(t, emotion.ModeVector, engine.jobs[0].Emotion.Mode)
	require.NotNil(t, engine.jobs[0].Emotion.Vector)
	assert.InEpsilon(t, 1.0, engine.jobs[0].Emotion.Vector[emotion.IndexAngry], 1e-9)
}

func TestPredict_EmotionTextWithoutClassifierStillCompletes(t *testing.T) {
	t.Parallel()

	engine := &mockEngine{
		synthesizeShouldFail: false,
		healthShouldFail:     false,
		jobs:                 nil,
		wavData:              segmentWAV(t),
	}
	pred := setupPredictor(t, engine, nil)

	req := validRequest(t)
	req.EmotionText = "an ecstatic announcement"

	result, err := pred.Predict(context.Background(), req)
	require.NoError(t, err, "classifier absence must not fail the request")
	cleanupResult(t, result)

	require.Len(t, engine.jobs, 1)
	require.NotNil(t, engine.jobs[0].Emotion.Vector)
	assert.Equal(t, emotion.Neutral(), *engine.jobs[0].Emotion.Vector)
}

func TestPredict_SynthesisFailureIsTerminal(t *testing.T) {
	t.Parallel()

	engine := &mockEngine{
		synthesizeShouldFail: true,
		healthShouldFail:     false,
		jobs:                 nil,
		wavData:              nil,
	}
	pred := setupPredictor(t, engine, nil)

	_, err := pred.Predict(context.Background(), validRequest(t))
	require.ErrorIs(t, err, errMockSynthesize)
}

func TestPredict_HealthCheckFailureIsTerminal(t *testing.T) {
	t.Parallel()

	engine := &mockEngine{
		synthesizeShouldFail: false,
		healthShouldFail:     true,
		jobs:                 nil,
		wavData:              nil,
	}
	pred := setupPredictor(t, engine, nil)

	_, err := pred.Predict(context.Background(), validRequest(t))
	require.ErrorIs(t, err, errMockHealth)
	assert.Empty(t, engine.jobs, "no synthesis may happen after a failed health check")
}

func TestPredict_InvalidRequestNeverReachesEngine(t *testing.T) {
	t.Parallel()

	engine := &mockEngine{
		synthesizeShouldFail: false,
		healthShouldFail:     false,
		jobs:                 nil,
		wavData:              segmentWAV(t),
	}
	pred := setupPredictor(t, engine, nil)

	req := validRequest(t)
	req.Sampling.NumBeams = 99

	_, err := pred.Predict(context.Background(), req)
	require.ErrorIs(t, err, predictor.ErrNumBeamsRange)
	assert.Empty(t, engine.jobs)
}
