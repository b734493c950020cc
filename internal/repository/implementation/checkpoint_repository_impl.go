package implementation

import (
	"context"
	"errors"

	"roleplay-agent-be/internal/mapper"
	"roleplay-agent-be/internal/model"
	"roleplay-agent-be/internal/repository/contract"
	"roleplay-agent-be/pkg/agent"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CheckpointRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.CheckpointMapper
}

func NewCheckpointRepository(db *gorm.DB) contract.CheckpointRepository {
	return &CheckpointRepositoryImpl{
		db:     db,
		mapper: mapper.NewCheckpointMapper(),
	}
}

func (r *CheckpointRepositoryImpl) FindByThreadId(ctx context.Context, threadId uuid.UUID) (*agent.Checkpoint, error) {
	var m model.Checkpoint
	if err := r.db.WithContext(ctx).Where("thread_id = ?", threadId).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var blobs []*model.CheckpointBlob
	if err := r.db.WithContext(ctx).Where("thread_id = ?", threadId).Find(&blobs).Error; err != nil {
		return nil, err
	}

	return r.mapper.ToCheckpoint(&m, blobs)
}

func (r *CheckpointRepositoryImpl) Upsert(ctx context.Context, threadId uuid.UUID, state *agent.State) error {
	m, blobs, err := r.mapper.ToModel(threadId, state)
	if err != nil {
		return err
	}

	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "thread_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"state", "updated_at"}),
	}).Create(m).Error
	if err != nil {
		return err
	}

	// Stale overflow rows must not survive a snapshot that no longer
	// references them.
	if err := r.db.WithContext(ctx).Where("thread_id = ?", threadId).Delete(&model.CheckpointBlob{}).Error; err != nil {
		return err
	}
	if len(blobs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(blobs).Error
}

func (r *CheckpointRepositoryImpl) DeleteByThreadId(ctx context.Context, threadId uuid.UUID) error {
	if err := r.db.WithContext(ctx).Where("thread_id = ?", threadId).Delete(&model.Checkpoint{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Where("thread_id = ?", threadId).Delete(&model.CheckpointBlob{}).Error
}
