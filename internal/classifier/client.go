// Package classifier provides the HTTP client for the auxiliary text-emotion
// classification model.
//
// The classifier is best-effort by contract: callers route every failure
// through the emotion resolver's neutral fallback, so this client only has to
// report errors faithfully, never recover from them.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/book-expert/tts-predictor/internal/emotion"
)

// API endpoint.
const apiClassify = "/v1/classify"

// HTTP headers.
const (
	headerContentType = "Content-Type"
	contentTypeJSON   = "application/json"
)

// Raw classifier scores are clamped to this closed range before use. The
// upper bound intentionally exceeds 1.0: the upstream model emphasizes
// dominant emotions slightly beyond unit weight.
const (
	minScore = 0.0
	maxScore = 1.2
)

// Static errors.
var (
	// ErrTextEmpty indicates classification was requested for empty text.
	ErrTextEmpty = errors.New("classification text cannot be empty")
	// ErrMissingScores indicates the classifier response carried no scores.
	ErrMissingScores = errors.New("classifier response contained no emotion scores")
)

// melancholicCueWords trigger the sad/melancholic swap. The upstream model
// confuses the two labels when the text itself names melancholy.
var melancholicCueWords = []string{
	"melancholy",
	"melancholic",
	"depression",
	"depressed",
	"gloomy",
}

// Client calls the text-emotion classification service. It implements
// emotion.Classifier.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// classifyRequest is the JSON payload sent to the classifier.
type classifyRequest struct {
	Text string `json:"text"`
}

// classifyResponse is the JSON payload returned by the classifier: a score
// per emotion label.
type classifyResponse struct {
	Emotions map[string]float64 `json:"emotions"`
}

// NewClient creates a classifier client for the service at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Classify sends the text to the classification service and maps the scored
// labels onto the fixed emotion vector order. Scores are clamped to
// [0.0, 1.2]; an all-zero result normalizes to the neutral vector.
func (c *Client) Classify(ctx context.Context, text string) (emotion.Vector, error) {
	var vector emotion.Vector

	if strings.TrimSpace(text) == "" {
		return vector, ErrTextEmpty
	}

	scores, err := c.fetchScores(ctx, text)
	if err != nil {
		return vector, err
	}

	if len(scores) == 0 {
		return vector, ErrMissingScores
	}

	labels := emotion.Labels()
	for i, label := range labels {
		vector[i] = clampScore(scores[label])
	}

	if hasMelancholicCue(text) {
		vector[emotion.IndexSad], vector[emotion.IndexMelancholic] =
			vector[emotion.IndexMelancholic], vector[emotion.IndexSad]
	}

	if vector.IsZero() {
		return emotion.Neutral(), nil
	}

	return vector, nil
}

// fetchScores performs the HTTP round trip and decodes the score map.
func (c *Client) fetchScores(
	ctx context.Context,
	text string,
) (map[string]float64, error) {
	requestBody, err := json.Marshal(classifyRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal classify request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+apiClassify,
		bytes.NewBuffer(requestBody),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create classify request: %w", err)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to reach classifier at %s: %w",
			c.baseURL,
			err,
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)

		return nil, fmt.Errorf(
			"classifier returned non-OK status: %s, body: %s",
			resp.Status,
			string(body),
		)
	}

	var response classifyResponse

	err = json.NewDecoder(resp.Body).Decode(&response)
	if err != nil {
		return nil, fmt.Errorf("failed to decode classifier response: %w", err)
	}

	return response.Emotions, nil
}

func clampScore(value float64) float64 {
	if value < minScore {
		return minScore
	}

	if value > maxScore {
		return maxScore
	}

	return value
}

func hasMelancholicCue(text string) bool {
	lowered := strings.ToLower(text)

	for _, cue := range melancholicCueWords {
		if strings.Contains(lowered, cue) {
			return true
		}
	}

	return false
}
