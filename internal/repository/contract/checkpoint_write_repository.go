package contract

import (
	"context"

	"roleplay-agent-be/pkg/agent"

	"github.com/google/uuid"
)

// TurnWrites is the recorded write log of one executed turn.
type TurnWrites struct {
	TurnId uuid.UUID
	Writes []agent.Write
}

type CheckpointWriteRepository interface {
	CreateBulk(ctx context.Context, threadId, turnId uuid.UUID, writes []agent.Write) error
	FindByThreadId(ctx context.Context, threadId uuid.UUID) ([]*TurnWrites, error)
	DeleteByThreadId(ctx context.Context, threadId uuid.UUID) error
}
