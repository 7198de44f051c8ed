// Package emotion provides the 8-dimensional emotion control vector and the
// precedence-ordered resolver that selects how a prediction request steers
// synthesized prosody.
package emotion

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// VectorDim is the fixed dimensionality of an emotion vector.
const VectorDim = 8

// Indices into a Vector, in the fixed documented order.
const (
	IndexHappy = iota
	IndexAngry
	IndexSad
	IndexAfraid
	IndexDisgusted
	IndexMelancholic
	IndexSurprised
	IndexCalm
)

// Static errors for vector parsing.
var (
	// ErrVectorLength indicates the textual form did not yield exactly 8 weights.
	ErrVectorLength = errors.New("emotion vector must contain exactly 8 weights")
	// ErrVectorNegativeWeight indicates a weight below zero.
	ErrVectorNegativeWeight = errors.New("emotion vector weights must be non-negative")
	// ErrVectorUnparseable indicates the textual form is neither comma separated
	// floats nor a JSON array of numbers.
	ErrVectorUnparseable = errors.New(
		"could not parse emotion vector; use JSON or comma separated numbers",
	)
)

// labels holds the fixed label order shared with the classifier wire format.
var labels = [VectorDim]string{
	"happy",
	"angry",
	"sad",
	"afraid",
	"disgusted",
	"melancholic",
	"surprised",
	"calm",
}

// Vector is an 8-dimensional weighting over the fixed emotion taxonomy
// (happy, angry, sad, afraid, disgusted, melancholic, surprised, calm).
// Weights need not sum to 1.
type Vector [VectorDim]float64

// Labels returns the fixed emotion label order.
func Labels() [VectorDim]string {
	return labels
}

// Neutral returns the neutral vector: all weights zero except calm = 1.0.
func Neutral() Vector {
	var v Vector

	v[IndexCalm] = 1.0

	return v
}

// IsZero reports whether every weight is zero.
func (v Vector) IsZero() bool {
	for _, weight := range v {
		if weight != 0 {
			return false
		}
	}

	return true
}

// String renders the vector as comma separated weights in the fixed order.
func (v Vector) String() string {
	parts := make([]string, VectorDim)
	for i, weight := range v {
		parts[i] = strconv.FormatFloat(weight, 'g', -1, 64)
	}

	return strings.Join(parts, ",")
}

// Parse converts the textual form of an emotion vector into a Vector. Both
// comma separated floats ("0.2,0.0,...") and a JSON array of 8 floats are
// accepted and yield identical vectors. The raw string must not be empty.
func Parse(raw string) (Vector, error) {
	var vector Vector

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return vector, ErrVectorLength
	}

	values, err := parseWeights(trimmed)
	if err != nil {
		return vector, err
	}

	if len(values) != VectorDim {
		return vector, fmt.Errorf("%w: got %d", ErrVectorLength, len(values))
	}

	for i, value := range values {
		if value < 0 {
			return vector, fmt.Errorf(
				"%w: %s is %g",
				ErrVectorNegativeWeight,
				labels[i],
				value,
			)
		}

		vector[i] = value
	}

	return vector, nil
}

// parseWeights decodes either textual form into a float slice.
func parseWeights(trimmed string) ([]float64, error) {
	if strings.HasPrefix(trimmed, "[") {
		var values []float64

		err := json.Unmarshal([]byte(trimmed), &values)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrVectorUnparseable, err)
		}

		return values, nil
	}

	tokens := strings.Split(trimmed, ",")
	values := make([]float64, 0, len(tokens))

	for _, token := range tokens {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}

		value, err := strconv.ParseFloat(token, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrVectorUnparseable, err)
		}

		values = append(values, value)
	}

	return values, nil
}
