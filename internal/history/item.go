package history

import "github.com/comigor/sentix/internal/sentiment"

// Item is an analysis result together with the text that produced it.
type Item struct {
	sentiment.Result
	ID        string `json:"id"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
}
