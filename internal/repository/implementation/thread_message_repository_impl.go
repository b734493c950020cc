package implementation

import (
	"context"

	"roleplay-agent-be/internal/entity"
	"roleplay-agent-be/internal/mapper"
	"roleplay-agent-be/internal/model"
	"roleplay-agent-be/internal/repository/contract"
	"roleplay-agent-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ThreadMessageRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ThreadMapper
}

func NewThreadMessageRepository(db *gorm.DB) contract.ThreadMessageRepository {
	return &ThreadMessageRepositoryImpl{
		db:     db,
		mapper: mapper.NewThreadMapper(),
	}
}

func (r *ThreadMessageRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ThreadMessageRepositoryImpl) Create(ctx context.Context, message *entity.ThreadMessage) error {
	m := r.mapper.MessageToModel(message)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*message = *r.mapper.MessageToEntity(m)
	return nil
}

func (r *ThreadMessageRepositoryImpl) CreateBulk(ctx context.Context, messages []*entity.ThreadMessage) error {
	if len(messages) == 0 {
		return nil
	}
	models := make([]*model.ThreadMessage, len(messages))
	for i, msg := range messages {
		models[i] = r.mapper.MessageToModel(msg)
	}
	if err := r.db.WithContext(ctx).Create(models).Error; err != nil {
		return err
	}
	for i, m := range models {
		*messages[i] = *r.mapper.MessageToEntity(m)
	}
	return nil
}

func (r *ThreadMessageRepositoryImpl) DeleteByThreadId(ctx context.Context, threadId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("thread_id = ?", threadId).Delete(&model.ThreadMessage{}).Error
}

func (r *ThreadMessageRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ThreadMessage, error) {
	var models []*model.ThreadMessage
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.ThreadMessage, len(models))
	for i, m := range models {
		entities[i] = r.mapper.MessageToEntity(m)
	}
	return entities, nil
}

func (r *ThreadMessageRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.ThreadMessage{}).Count(&count).Error
	return count, err
}
