package contract

import (
	"context"

	"roleplay-agent-be/pkg/agent"

	"github.com/google/uuid"
)

// CheckpointRepository persists the per-thread state snapshot together with
// its blob overflow rows. Upsert replaces both; Find reassembles overflowed
// fields before returning. Checkpoint rows are hard-deleted.
type CheckpointRepository interface {
	FindByThreadId(ctx context.Context, threadId uuid.UUID) (*agent.Checkpoint, error)
	Upsert(ctx context.Context, threadId uuid.UUID, state *agent.State) error
	DeleteByThreadId(ctx context.Context, threadId uuid.UUID) error
}
