package implementation

import (
	"context"

	"roleplay-agent-be/internal/repository/contract"
	"roleplay-agent-be/pkg/retrieval"

	"gorm.io/gorm"
)

// PassageSearcher adapts the passage repository to the retrieval index
// contract. Reads only, so it runs outside any unit of work.
type PassageSearcher struct {
	repo contract.PersonaPassageRepository
}

func NewPassageSearcher(db *gorm.DB) retrieval.Searcher {
	return &PassageSearcher{repo: NewPersonaPassageRepository(db)}
}

func (s *PassageSearcher) SearchSimilar(ctx context.Context, embedding []float32, characterFilter string, limit int) ([]retrieval.Hit, error) {
	scored, err := s.repo.SearchSimilar(ctx, embedding, characterFilter, limit)
	if err != nil {
		return nil, err
	}
	hits := make([]retrieval.Hit, len(scored))
	for i, sp := range scored {
		hits[i] = retrieval.Hit{
			Content:    sp.Passage.Content,
			Score:      sp.Similarity,
			SourceType: sp.Passage.SourceType,
			Topic:      sp.Passage.Topic,
		}
	}
	return hits, nil
}
