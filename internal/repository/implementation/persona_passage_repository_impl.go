package implementation

import (
	"context"
	"errors"

	"roleplay-agent-be/internal/entity"
	"roleplay-agent-be/internal/mapper"
	"roleplay-agent-be/internal/model"
	"roleplay-agent-be/internal/repository/contract"
	"roleplay-agent-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type PersonaPassageRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.PassageMapper
}

func NewPersonaPassageRepository(db *gorm.DB) contract.PersonaPassageRepository {
	return &PersonaPassageRepositoryImpl{
		db:     db,
		mapper: mapper.NewPassageMapper(),
	}
}

func (r *PersonaPassageRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *PersonaPassageRepositoryImpl) Create(ctx context.Context, passage *entity.PersonaPassage) error {
	m := r.mapper.ToModel(passage)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*passage = *r.mapper.ToEntity(m)
	return nil
}

func (r *PersonaPassageRepositoryImpl) CreateBulk(ctx context.Context, passages []*entity.PersonaPassage) error {
	if len(passages) == 0 {
		return nil
	}
	models := make([]*model.PersonaPassage, len(passages))
	for i, p := range passages {
		models[i] = r.mapper.ToModel(p)
	}
	if err := r.db.WithContext(ctx).Create(models).Error; err != nil {
		return err
	}
	for i, m := range models {
		*passages[i] = *r.mapper.ToEntity(m)
	}
	return nil
}

func (r *PersonaPassageRepositoryImpl) Update(ctx context.Context, passage *entity.PersonaPassage) error {
	m := r.mapper.ToModel(passage)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*passage = *r.mapper.ToEntity(m)
	return nil
}

func (r *PersonaPassageRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.PersonaPassage{}, id).Error
}

func (r *PersonaPassageRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.PersonaPassage, error) {
	var m model.PersonaPassage
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *PersonaPassageRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.PersonaPassage, error) {
	var models []*model.PersonaPassage
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.PersonaPassage, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *PersonaPassageRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.PersonaPassage{}).Count(&count).Error
	return count, err
}

func (r *PersonaPassageRepositoryImpl) SearchSimilar(ctx context.Context, embedding []float32, characterName string, limit int) ([]*contract.ScoredPassage, error) {
	if limit <= 0 {
		limit = 5
	}

	// Cosine distance in pgvector is: 1 - cosine_similarity
	// So we compute: 1 - (embedding_value <=> query_vector) = cosine_similarity
	type result struct {
		model.PersonaPassage
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	err := r.db.WithContext(ctx).
		Table("persona_passages").
		Select("persona_passages.*, 1 - (embedding_value <=> ?) as similarity", queryVector).
		Where("characters LIKE ?", "%"+characterName+"%").
		Where("deleted_at IS NULL").
		Order("similarity DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredPassage, len(results))
	for i, res := range results {
		scored[i] = &contract.ScoredPassage{
			Passage:    r.mapper.ToEntity(&res.PersonaPassage),
			Similarity: res.Similarity,
		}
	}
	return scored, nil
}
