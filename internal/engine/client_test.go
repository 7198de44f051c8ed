// Package engine_test tests the HTTP synthesis client.
package engine_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/tts-predictor/internal/core"
	"github.com/book-expert/tts-predictor/internal/emotion"
	"github.com/book-expert/tts-predictor/internal/engine"
)

const testTimeout = 10 * time.Second

func testJob() core.SegmentJob {
	vector := emotion.Neutral()

	return core.SegmentJob{
		Text:             "Hello there.",
		SpeakerAudioPath: "/refs/speaker.wav",
		Emotion: emotion.Control{
			Mode:      emotion.ModeVector,
			Vector:    &vector,
			AudioPath: "",
			Scale:     0,
			Randomize: false,
		},
		Sampling: core.SamplingParams{
			TopP:              core.DefaultTopP,
			TopK:              core.DefaultTopK,
			Temperature:       core.DefaultTemperature,
			LengthPenalty:     core.DefaultLengthPenalty,
			NumBeams:          core.DefaultNumBeams,
			RepetitionPenalty: core.DefaultRepetitionPenalty,
			MaxMelTokens:      core.DefaultMaxMelTokens,
		},
	}
}

func TestSynthesize_Success(t *testing.T) {
	t.Parallel()

	const fakeAudio = "fake-wav-bytes"

	server := httptest.NewServer(http.HandlerFunc(
		func(responseWriter http.ResponseWriter, request *http.Request) {
			assert.Equal(t, http.MethodPost, request.Method)
			assert.Equal(t, "/v1/synthesize", request.URL.Path)
			assert.Equal(
				t,
				"application/json",
				request.Header.Get("Content-Type"),
			)

			var payload map[string]any

			err := json.NewDecoder(request.Body).Decode(&payload)
			require.NoError(t, err)

			assert.Equal(t, "Hello there.", payload["text"])
			assert.Equal(t, "/refs/speaker.wav", payload["speaker_audio"])
			assert.Equal(t, "vector", payload["emotion_mode"])

			vector, ok := payload["emotion_vector"].([]any)
			require.True(t, ok, "emotion_vector must be present")
			assert.Len(t, vector, emotion.VectorDim)

			responseWriter.Header().Set("Content-Type", "audio/wav")
			_, _ = responseWriter.Write([]byte(fakeAudio))
		},
	))
	defer server.Close()

	client := engine.NewClient(server.URL, testTimeout)

	audioData, err := client.Synthesize(context.Background(), testJob())
	require.NoError(t, err)
	assert.Equal(t, []byte(fakeAudio), audioData)
}

func TestSynthesize_StructuredServiceError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(
		func(responseWriter http.ResponseWriter, _ *http.Request) {
			responseWriter.Header().Set("Content-Type", "application/json")
			responseWriter.WriteHeader(http.StatusInternalServerError)
			_, _ = responseWriter.Write(
				[]byte(`{"detail":"mel decoder exploded","error_code":"MEL_FAIL"}`),
			)
		},
	))
	defer server.Close()

	client := engine.NewClient(server.URL, testTimeout)

	_, err := client.Synthesize(context.Background(), testJob())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mel decoder exploded")
	assert.Contains(t, err.Error(), "MEL_FAIL")
}

func TestSynthesize_UnexpectedContentType(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(
		func(responseWriter http.ResponseWriter, _ *http.Request) {
			responseWriter.Header().Set("Content-Type", "text/plain")
			_, _ = responseWriter.Write([]byte("nope"))
		},
	))
	defer server.Close()

	client := engine.NewClient(server.URL, testTimeout)

	_, err := client.Synthesize(context.Background(), testJob())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected content type")
}

func TestSynthesize_EmptyAudio(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(
		func(responseWriter http.ResponseWriter, _ *http.Request) {
			responseWriter.Header().Set("Content-Type", "audio/wav")
		},
	))
	defer server.Close()

	client := engine.NewClient(server.URL, testTimeout)

	_, err := client.Synthesize(context.Background(), testJob())
	require.ErrorIs(t, err, engine.ErrEmptyAudio)
}

func TestSynthesize_ValidatesInputs(t *testing.T) {
	t.Parallel()

	client := engine.NewClient("http://localhost:0", testTimeout)

	job := testJob()
	job.Text = ""

	_, err := client.Synthesize(context.Background(), job)
	require.ErrorIs(t, err, engine.ErrSegmentTextEmpty)

	job = testJob()
	job.SpeakerAudioPath = ""

	_, err = client.Synthesize(context.Background(), job)
	require.ErrorIs(t, err, engine.ErrSpeakerAudioEmpty)
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	healthy := httptest.NewServer(http.HandlerFunc(
		func(responseWriter http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/health", request.URL.Path)
			responseWriter.WriteHeader(http.StatusOK)
		},
	))
	defer healthy.Close()

	client := engine.NewClient(healthy.URL, testTimeout)
	require.NoError(t, client.HealthCheck(context.Background()))

	unhealthy := httptest.NewServer(http.HandlerFunc(
		func(responseWriter http.ResponseWriter, _ *http.Request) {
			responseWriter.WriteHeader(http.StatusServiceUnavailable)
		},
	))
	defer unhealthy.Close()

	client = engine.NewClient(unhealthy.URL, testTimeout)
	require.Error(t, client.HealthCheck(context.Background()))
}
