package unitofwork

import (
	"context"

	"roleplay-agent-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	ThreadRepository() contract.ThreadRepository
	ThreadMessageRepository() contract.ThreadMessageRepository
	CheckpointRepository() contract.CheckpointRepository
	CheckpointWriteRepository() contract.CheckpointWriteRepository
	PersonaPassageRepository() contract.PersonaPassageRepository
}
