// Package sentiment defines the typed result of an analysis and the client that asks the
// provider for it.
package sentiment

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

// Sentiment is the mutually exclusive polarity class.
type Sentiment string

const (
	Positive Sentiment = "Positive"
	Negative Sentiment = "Negative"
	Neutral  Sentiment = "Neutral"
)

// Intensity grades how strongly the sentiment is expressed.
type Intensity string

const (
	Low    Intensity = "Low"
	Medium Intensity = "Medium"
	High   Intensity = "High"
)

var (
	sentiments  = []Sentiment{Positive, Negative, Neutral}
	intensities = []Intensity{Low, Medium, High}
)

// ErrMalformedResponse is returned when provider output is not valid JSON or misses a field.
var ErrMalformedResponse = errors.New("malformed response")

// Result is one analysis of one input text.
type Result struct {
	Sentiment   Sentiment `json:"sentiment"`
	Score       int       `json:"score"`
	Confidence  int       `json:"confidence"`
	Explanation string    `json:"explanation"`
	Keywords    []string  `json:"keywords"`
	Emojis      []string  `json:"emojis"`
	Intensity   Intensity `json:"intensity"`
}

// PrimaryEmoji returns the first suggested emoji, or "" when there is none.
func (r Result) PrimaryEmoji() string {
	if len(r.Emojis) == 0 {
		return ""
	}
	return r.Emojis[0]
}

// NuanceEmojis returns up to two emojis following the primary one.
func (r Result) NuanceEmojis() []string {
	if len(r.Emojis) <= 1 {
		return nil
	}
	end := min(len(r.Emojis), 3)
	return r.Emojis[1:end]
}

// wireResult uses pointers so that absent fields can be told apart from zero values.
type wireResult struct {
	Sentiment   *string   `json:"sentiment"`
	Score       *float64  `json:"score"`
	Confidence  *float64  `json:"confidence"`
	Explanation *string   `json:"explanation"`
	Keywords    *[]string `json:"keywords"`
	Emojis      *[]string `json:"emojis"`
	Intensity   *string   `json:"intensity"`
}

// Parse decodes raw provider text into a Result. Every field is required; nothing is defaulted.
func Parse(raw string) (Result, error) {
	body := strings.TrimSpace(raw)
	if body == "" {
		return Result{}, fmt.Errorf("%w: empty body", ErrMalformedResponse)
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	var w wireResult
	if err := dec.Decode(&w); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Result{}, fmt.Errorf("%w: trailing data after object", ErrMalformedResponse)
	}

	missing := w.missing()
	if len(missing) > 0 {
		return Result{}, fmt.Errorf("%w: missing %s", ErrMalformedResponse, strings.Join(missing, ", "))
	}

	s, ok := matchEnum(*w.Sentiment, sentiments)
	if !ok {
		return Result{}, fmt.Errorf("%w: unknown sentiment %q", ErrMalformedResponse, *w.Sentiment)
	}
	in, ok := matchEnum(*w.Intensity, intensities)
	if !ok {
		return Result{}, fmt.Errorf("%w: unknown intensity %q", ErrMalformedResponse, *w.Intensity)
	}
	score, err := percent("score", *w.Score)
	if err != nil {
		return Result{}, err
	}
	confidence, err := percent("confidence", *w.Confidence)
	if err != nil {
		return Result{}, err
	}
	explanation := strings.TrimSpace(*w.Explanation)
	if explanation == "" {
		return Result{}, fmt.Errorf("%w: empty explanation", ErrMalformedResponse)
	}

	return Result{
		Sentiment:   s,
		Score:       score,
		Confidence:  confidence,
		Explanation: explanation,
		Keywords:    *w.Keywords,
		Emojis:      *w.Emojis,
		Intensity:   in,
	}, nil
}

func (w wireResult) missing() []string {
	var out []string
	if w.Sentiment == nil {
		out = append(out, "sentiment")
	}
	if w.Score == nil {
		out = append(out, "score")
	}
	if w.Confidence == nil {
		out = append(out, "confidence")
	}
	if w.Explanation == nil {
		out = append(out, "explanation")
	}
	if w.Keywords == nil || *w.Keywords == nil {
		out = append(out, "keywords")
	}
	if w.Emojis == nil || *w.Emojis == nil {
		out = append(out, "emojis")
	}
	if w.Intensity == nil {
		out = append(out, "intensity")
	}
	return out
}

// matchEnum accepts any casing of a declared value and returns the canonical one.
func matchEnum[T ~string](raw string, values []T) (T, bool) {
	raw = strings.TrimSpace(raw)
	for _, v := range values {
		if strings.EqualFold(raw, string(v)) {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func percent(field string, v float64) (int, error) {
	if math.IsNaN(v) || v < 0 || v > 100 {
		return 0, fmt.Errorf("%w: %s %v out of range [0,100]", ErrMalformedResponse, field, v)
	}
	return int(math.Round(v)), nil
}
