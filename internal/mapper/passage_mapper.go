package mapper

import (
	"strings"
	"time"

	"roleplay-agent-be/internal/entity"
	"roleplay-agent-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type PassageMapper struct{}

func NewPassageMapper() *PassageMapper {
	return &PassageMapper{}
}

func (m *PassageMapper) ToEntity(p *model.PersonaPassage) *entity.PersonaPassage {
	if p == nil {
		return nil
	}

	var deletedAt *time.Time
	if p.DeletedAt.Valid {
		dt := p.DeletedAt.Time
		deletedAt = &dt
	}

	var updatedAt *time.Time
	if !p.UpdatedAt.IsZero() {
		ut := p.UpdatedAt
		updatedAt = &ut
	}

	var characters []string
	if p.Characters != "" {
		characters = strings.Split(p.Characters, ",")
	}

	return &entity.PersonaPassage{
		Id:         p.Id,
		Characters: characters,
		Content:    p.Content,
		SourceType: p.SourceType,
		Topic:      p.Topic,
		Embedding:  p.EmbeddingValue.Slice(),
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  updatedAt,
		DeletedAt:  deletedAt,
		IsDeleted:  p.DeletedAt.Valid,
	}
}

func (m *PassageMapper) ToModel(p *entity.PersonaPassage) *model.PersonaPassage {
	if p == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if p.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *p.DeletedAt, Valid: true}
	} else if p.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if p.UpdatedAt != nil {
		updatedAt = *p.UpdatedAt
	}

	out := &model.PersonaPassage{
		Id:         p.Id,
		Characters: strings.Join(p.Characters, ","),
		Content:    p.Content,
		SourceType: p.SourceType,
		Topic:      p.Topic,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  updatedAt,
		DeletedAt:  deletedAt,
	}
	if len(p.Embedding) > 0 {
		out.EmbeddingValue = pgvector.NewVector(p.Embedding)
	}
	return out
}
