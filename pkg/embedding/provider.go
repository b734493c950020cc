package embedding

import "context"

// Task type hints passed to providers that distinguish query and document
// embeddings. Providers that don't support the hint ignore it.
const (
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
)

// EmbeddingProvider generates a vector representation of a text.
type EmbeddingProvider interface {
	Generate(ctx context.Context, text string, taskType string) ([]float32, error)
}
