package entity

import (
	"time"

	"github.com/google/uuid"
)

type Thread struct {
	Id            uuid.UUID
	UserId        uuid.UUID
	CharacterName string
	Title         string
	CreatedAt     time.Time
	UpdatedAt     *time.Time
	DeletedAt     *time.Time
	IsDeleted     bool
}

type ThreadMessage struct {
	Id        uuid.UUID
	ThreadId  uuid.UUID
	Role      string
	Text      string
	CreatedAt time.Time
	UpdatedAt *time.Time
	DeletedAt *time.Time
	IsDeleted bool
}
