package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

type stubSearcher struct {
	hits       []Hit
	err        error
	lastFilter string
	lastLimit  int
}

func (s *stubSearcher) SearchSimilar(ctx context.Context, embedding []float32, characterFilter string, limit int) ([]Hit, error) {
	s.lastFilter = characterFilter
	s.lastLimit = limit
	if s.err != nil {
		return nil, s.err
	}
	return s.hits, nil
}

func TestSearchReturnsIndexHits(t *testing.T) {
	index := &stubSearcher{hits: []Hit{
		{Content: "first", Score: 0.9},
		{Content: "second", Score: 0.7},
	}}
	client := NewClient(index, nopLogger{})

	hits := client.Search(context.Background(), []float32{0.1}, "Elara", 2)

	assert.Len(t, hits, 2)
	assert.Equal(t, "first", hits[0].Content)
	assert.Equal(t, "Elara", index.lastFilter)
	assert.Equal(t, 2, index.lastLimit)
}

func TestSearchDegradesOpenOnIndexError(t *testing.T) {
	index := &stubSearcher{err: errors.New("connection refused")}
	client := NewClient(index, nopLogger{})

	hits := client.Search(context.Background(), []float32{0.1}, "Elara", 5)

	assert.NotNil(t, hits)
	assert.Empty(t, hits)
}

func TestSearchDefaultsTopK(t *testing.T) {
	index := &stubSearcher{}
	client := NewClient(index, nopLogger{})

	client.Search(context.Background(), []float32{0.1}, "Elara", 0)
	assert.Equal(t, DefaultTopK, index.lastLimit)

	client.Search(context.Background(), []float32{0.1}, "Elara", -3)
	assert.Equal(t, DefaultTopK, index.lastLimit)
}
