package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Checkpoint holds the latest merged state snapshot for a thread. Exactly
// one row per thread; hard-deleted (no soft delete) so DeleteAll leaves
// zero rows behind.
type Checkpoint struct {
	Id        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ThreadId  uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex"`
	State     datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
}

func (Checkpoint) TableName() string {
	return "checkpoints"
}

// CheckpointWrite is one entry of a turn's write log: the partial update a
// single node contributed, ordered by Seq within the turn.
type CheckpointWrite struct {
	Id        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ThreadId  uuid.UUID      `gorm:"type:uuid;not null;index"`
	TurnId    uuid.UUID      `gorm:"type:uuid;not null;index"`
	Seq       int            `gorm:"not null"`
	Node      string         `gorm:"type:varchar(50);not null"`
	Delta     datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
}

func (CheckpointWrite) TableName() string {
	return "checkpoint_writes"
}

// CheckpointBlob is overflow storage for oversized state fields. The state
// JSON keeps a marker and the value lives here, one row per field.
type CheckpointBlob struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ThreadId  uuid.UUID `gorm:"type:uuid;not null;index:idx_checkpoint_blobs_thread_field,unique"`
	Field     string    `gorm:"type:varchar(50);not null;index:idx_checkpoint_blobs_thread_field,unique"`
	Value     []byte    `gorm:"type:bytea;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (CheckpointBlob) TableName() string {
	return "checkpoint_blobs"
}
