package checkpoint

import (
	"context"
	"fmt"

	"roleplay-agent-be/internal/pkg/logger"
	"roleplay-agent-be/internal/repository/unitofwork"
	"roleplay-agent-be/pkg/agent"

	"github.com/google/uuid"
)

// Store is the gorm-backed checkpoint store. Save and DeleteAll each run in
// their own transaction so a mid-operation failure leaves the previous
// checkpoint intact and a delete never leaves partial rows.
type Store struct {
	uowFactory unitofwork.RepositoryFactory
	log        logger.ILogger
}

func NewStore(uowFactory unitofwork.RepositoryFactory, log logger.ILogger) agent.CheckpointStore {
	return &Store{
		uowFactory: uowFactory,
		log:        log,
	}
}

func (s *Store) Load(ctx context.Context, threadID string) (*agent.Checkpoint, error) {
	id, err := uuid.Parse(threadID)
	if err != nil {
		return nil, fmt.Errorf("invalid thread id %q: %w", threadID, err)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.CheckpointRepository().FindByThreadId(ctx, id)
}

func (s *Store) Save(ctx context.Context, threadID string, state *agent.State, writes []agent.Write) error {
	id, err := uuid.Parse(threadID)
	if err != nil {
		return fmt.Errorf("invalid thread id %q: %w", threadID, err)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.CheckpointRepository().Upsert(ctx, id, state); err != nil {
		return err
	}
	if err := uow.CheckpointWriteRepository().CreateBulk(ctx, id, uuid.New(), writes); err != nil {
		return err
	}

	return uow.Commit()
}

func (s *Store) DeleteAll(ctx context.Context, threadID string) error {
	id, err := uuid.Parse(threadID)
	if err != nil {
		return fmt.Errorf("invalid thread id %q: %w", threadID, err)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.CheckpointRepository().DeleteByThreadId(ctx, id); err != nil {
		return err
	}
	if err := uow.CheckpointWriteRepository().DeleteByThreadId(ctx, id); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return err
	}

	s.log.Info("Checkpoint", "Deleted all checkpoint data for thread", map[string]interface{}{
		"thread_id": threadID,
	})
	return nil
}
