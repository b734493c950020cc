package retrieval

import (
	"context"

	"roleplay-agent-be/internal/pkg/logger"
)

// DefaultTopK is the number of hits returned when the caller passes k <= 0.
const DefaultTopK = 5

// Hit is one retrieved passage, transient and never persisted. Score is
// ordinal: hits are ranked by it, but its absolute scale depends on the
// index metric and must not be interpreted.
type Hit struct {
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
	SourceType string  `json:"source_type"`
	Topic      string  `json:"topic"`
}

// Searcher is the similarity index queried by the client. Implementations
// must return hits ordered by descending relevance and be idempotent for an
// unchanged index.
type Searcher interface {
	SearchSimilar(ctx context.Context, embedding []float32, characterFilter string, limit int) ([]Hit, error)
}

// Client queries the similarity index for passages tagged for a character.
// It degrades open: any index error yields an empty result set instead of
// failing the turn, with the outage logged as a warning.
type Client struct {
	index Searcher
	log   logger.ILogger
}

func NewClient(index Searcher, log logger.ILogger) *Client {
	return &Client{index: index, log: log}
}

// Search returns the top-k passages for the query embedding, restricted to
// passages tagged for characterFilter. Never returns an error: a retrieval
// outage degrades answer quality, it does not abort the turn.
func (c *Client) Search(ctx context.Context, embedding []float32, characterFilter string, k int) []Hit {
	if k <= 0 {
		k = DefaultTopK
	}

	hits, err := c.index.SearchSimilar(ctx, embedding, characterFilter, k)
	if err != nil {
		c.log.Warn("Retrieval", "Similarity search failed, degrading to empty context", map[string]interface{}{
			"character": characterFilter,
			"error":     err.Error(),
		})
		return []Hit{}
	}
	return hits
}
