package contract

import (
	"context"

	"roleplay-agent-be/internal/entity"
	"roleplay-agent-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ThreadMessageRepository interface {
	Create(ctx context.Context, message *entity.ThreadMessage) error
	CreateBulk(ctx context.Context, messages []*entity.ThreadMessage) error
	DeleteByThreadId(ctx context.Context, threadId uuid.UUID) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ThreadMessage, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
