// Package engine provides the HTTP client for the external synthesis model
// server. The server owns the heavy computation (autoregressive token
// generation, mel decoding, vocoding); this client only ships it one bounded
// text segment at a time with the resolved emotion control and sampling
// parameters, and receives WAV bytes back.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/book-expert/tts-predictor/internal/core"
	"github.com/book-expert/tts-predictor/internal/emotion"
)

// API endpoints and paths.
const (
	apiSynthesize = "/v1/synthesize"
	apiHealth     = "/health"
)

// HTTP headers.
const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	contentTypeJSON   = "application/json"
	contentTypeWAV    = "audio/wav"
)

// Error messages.
const (
	errTextCannotBeEmpty       = "segment text cannot be empty"
	errSpeakerAudioEmpty       = "speaker audio path cannot be empty"
	errUnexpectedContentType   = "unexpected content type: expected audio/wav, got %s"
	errReceivedEmptyAudio      = "received empty audio data"
	errFmtServiceErrorWithCode = "synthesis service error (%s): %s (code: %s)"
	errFmtServiceNonOKStatus   = "synthesis service returned non-OK status: %s, body: %s"
)

// Static errors.
var (
	ErrSegmentTextEmpty  = errors.New(errTextCannotBeEmpty)
	ErrSpeakerAudioEmpty = errors.New(errSpeakerAudioEmpty)
	ErrEmptyAudio        = errors.New(errReceivedEmptyAudio)
)

// Client is an HTTP client for the standalone synthesis model server. It
// implements core.SynthesisEngine.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// synthesisRequest defines the JSON payload for a per-segment synthesis call.
// Field names follow the model server's API contract.
type synthesisRequest struct {
	Text             string    `json:"text"`
	SpeakerAudioPath string    `json:"speaker_audio"`
	EmotionMode      string    `json:"emotion_mode"`
	EmotionVector    []float64 `json:"emotion_vector,omitempty"`
	EmotionAudioPath string    `json:"emotion_audio,omitempty"`
	EmotionScale     float64   `json:"emotion_scale"`
	RandomizeEmotion bool      `json:"randomize_emotion"`

	TopP              float64 `json:"top_p"`
	TopK              int     `json:"top_k"`
	Temperature       float64 `json:"temperature"`
	LengthPenalty     float64 `json:"length_penalty"`
	NumBeams          int     `json:"num_beams"`
	RepetitionPenalty float64 `json:"repetition_penalty"`
	MaxMelTokens      int     `json:"max_mel_tokens"`
}

// errorResponse represents a structured error payload from the model server.
type errorResponse struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code,omitempty"`
}

// NewClient creates an HTTP client for the synthesis model server. The
// baseURL should include the protocol and port (e.g., "http://localhost:8000").
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Synthesize sends one segment job to the model server and returns the raw
// WAV bytes. Any server-side error is terminal for the job; no retries are
// attempted.
func (c *Client) Synthesize(ctx context.Context, job core.SegmentJob) ([]byte, error) {
	if job.Text == "" {
		return nil, ErrSegmentTextEmpty
	}

	if job.SpeakerAudioPath == "" {
		return nil, ErrSpeakerAudioEmpty
	}

	requestBody, err := json.Marshal(buildRequest(job))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal synthesis request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+apiSynthesize,
		bytes.NewBuffer(requestBody),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create synthesis request: %w", err)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerAccept, contentTypeWAV)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to reach synthesis service at %s: %w",
			c.baseURL,
			err,
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	contentType := resp.Header.Get(headerContentType)
	if contentType != contentTypeWAV {
		return nil, fmt.Errorf(errUnexpectedContentType, contentType)
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", err)
	}

	if len(audioData) == 0 {
		return nil, ErrEmptyAudio
	}

	return audioData, nil
}

// HealthCheck verifies that the model server is running and operational.
// Performed before processing a request to fail fast with clear diagnostics
// when the server is unavailable.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		c.baseURL+apiHealth,
		http.NoBody,
	)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf(
			"health check failed for service at %s: %w",
			c.baseURL,
			err,
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status: %s", resp.Status)
	}

	return nil
}

// buildRequest maps a segment job onto the wire payload. The emotion vector
// is flattened only when the resolved mode carries one.
func buildRequest(job core.SegmentJob) synthesisRequest {
	req := synthesisRequest{
		Text:              job.Text,
		SpeakerAudioPath:  job.SpeakerAudioPath,
		EmotionMode:       string(job.Emotion.Mode),
		EmotionVector:     nil,
		EmotionAudioPath:  job.Emotion.AudioPath,
		EmotionScale:      job.Emotion.Scale,
		RandomizeEmotion:  job.Emotion.Randomize,
		TopP:              job.Sampling.TopP,
		TopK:              job.Sampling.TopK,
		Temperature:       job.Sampling.Temperature,
		LengthPenalty:     job.Sampling.LengthPenalty,
		NumBeams:          job.Sampling.NumBeams,
		RepetitionPenalty: job.Sampling.RepetitionPenalty,
		MaxMelTokens:      job.Sampling.MaxMelTokens,
	}

	if job.Emotion.Vector != nil {
		req.EmotionVector = make([]float64, emotion.VectorDim)
		copy(req.EmotionVector, job.Emotion.Vector[:])
	}

	return req
}

// parseErrorResponse attempts to decode a structured JSON error from the
// server, falling back to the raw body so diagnostics are never lost.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	var errorResp errorResponse

	err := json.NewDecoder(resp.Body).Decode(&errorResp)
	if err == nil {
		return fmt.Errorf(errFmtServiceErrorWithCode,
			resp.Status, errorResp.Detail, errorResp.ErrorCode)
	}

	body, _ := io.ReadAll(resp.Body)

	return fmt.Errorf(
		errFmtServiceNonOKStatus,
		resp.Status,
		string(body),
	)
}
