package contract

import (
	"context"

	"roleplay-agent-be/internal/entity"
	"roleplay-agent-be/internal/repository/specification"

	"github.com/google/uuid"
)

// ScoredPassage wraps PersonaPassage with its similarity score
type ScoredPassage struct {
	Passage    *entity.PersonaPassage
	Similarity float64 // 0.0 to 1.0 (1.0 = identical)
}

type PersonaPassageRepository interface {
	Create(ctx context.Context, passage *entity.PersonaPassage) error
	CreateBulk(ctx context.Context, passages []*entity.PersonaPassage) error
	Update(ctx context.Context, passage *entity.PersonaPassage) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.PersonaPassage, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.PersonaPassage, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// SearchSimilar returns the closest passages for a character by cosine
	// similarity, best first.
	SearchSimilar(ctx context.Context, embedding []float32, characterName string, limit int) ([]*ScoredPassage, error)
}
