package sentiment

import (
	"github.com/sashabaranov/go-openai/jsonschema"
)

const schemaName = "sentiment_result"

func enumValues[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

// Schema is the structured-output contract sent with every analysis request.
func Schema() *jsonschema.Definition {
	return &jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"sentiment": {
				Type:        jsonschema.String,
				Enum:        enumValues(sentiments),
				Description: "Positive, Negative, or Neutral",
			},
			"score": {
				Type:        jsonschema.Number,
				Description: "Sentiment score from 0 (very negative) to 100 (very positive)",
			},
			"confidence": {
				Type:        jsonschema.Number,
				Description: "Model confidence score from 0 to 100",
			},
			"explanation": {
				Type:        jsonschema.String,
				Description: "Brief explanation of the sentiment analysis",
			},
			"keywords": {
				Type:        jsonschema.Array,
				Items:       &jsonschema.Definition{Type: jsonschema.String},
				Description: "Key emotional words found",
			},
			"emojis": {
				Type:        jsonschema.Array,
				Items:       &jsonschema.Definition{Type: jsonschema.String},
				Description: "Suggested emojis for this sentiment",
			},
			"intensity": {
				Type:        jsonschema.String,
				Enum:        enumValues(intensities),
				Description: "Intensity of the emotion: Low, Medium, High",
			},
		},
		Required:             []string{"sentiment", "score", "confidence", "explanation", "keywords", "emojis", "intensity"},
		AdditionalProperties: false,
	}
}
