package entity

import (
	"time"

	"github.com/google/uuid"
)

// PersonaPassage is background knowledge tagged for one or more characters.
type PersonaPassage struct {
	Id         uuid.UUID
	Characters []string
	Content    string
	SourceType string
	Topic      string
	Embedding  []float32
	CreatedAt  time.Time
	UpdatedAt  *time.Time
	DeletedAt  *time.Time
	IsDeleted  bool
}
