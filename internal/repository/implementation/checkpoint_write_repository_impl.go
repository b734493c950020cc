package implementation

import (
	"context"
	"encoding/json"
	"fmt"

	"roleplay-agent-be/internal/mapper"
	"roleplay-agent-be/internal/model"
	"roleplay-agent-be/internal/repository/contract"
	"roleplay-agent-be/pkg/agent"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CheckpointWriteRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.CheckpointMapper
}

func NewCheckpointWriteRepository(db *gorm.DB) contract.CheckpointWriteRepository {
	return &CheckpointWriteRepositoryImpl{
		db:     db,
		mapper: mapper.NewCheckpointMapper(),
	}
}

func (r *CheckpointWriteRepositoryImpl) CreateBulk(ctx context.Context, threadId, turnId uuid.UUID, writes []agent.Write) error {
	if len(writes) == 0 {
		return nil
	}
	models := make([]*model.CheckpointWrite, len(writes))
	for i, w := range writes {
		m, err := r.mapper.WriteToModel(threadId, turnId, w)
		if err != nil {
			return err
		}
		models[i] = m
	}
	return r.db.WithContext(ctx).Create(models).Error
}

func (r *CheckpointWriteRepositoryImpl) FindByThreadId(ctx context.Context, threadId uuid.UUID) ([]*contract.TurnWrites, error) {
	var models []*model.CheckpointWrite
	err := r.db.WithContext(ctx).
		Where("thread_id = ?", threadId).
		Order("created_at ASC, seq ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	var turns []*contract.TurnWrites
	byTurn := map[uuid.UUID]*contract.TurnWrites{}
	for _, m := range models {
		t, ok := byTurn[m.TurnId]
		if !ok {
			t = &contract.TurnWrites{TurnId: m.TurnId}
			byTurn[m.TurnId] = t
			turns = append(turns, t)
		}
		var delta agent.Delta
		if err := json.Unmarshal(m.Delta, &delta); err != nil {
			return nil, fmt.Errorf("unmarshal write delta seq %d: %w", m.Seq, err)
		}
		t.Writes = append(t.Writes, agent.Write{Seq: m.Seq, Node: m.Node, Delta: delta})
	}
	return turns, nil
}

func (r *CheckpointWriteRepositoryImpl) DeleteByThreadId(ctx context.Context, threadId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("thread_id = ?", threadId).Delete(&model.CheckpointWrite{}).Error
}
