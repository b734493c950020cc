package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// PersonaPassage is one unit of background knowledge for one or more
// characters. Characters is a comma-joined multi-valued tag column; the
// retrieval filter is a substring match against it.
type PersonaPassage struct {
	Id             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Characters     string          `gorm:"type:text;not null;index"`
	Content        string          `gorm:"type:text;not null"`
	SourceType     string          `gorm:"type:varchar(100)"`
	Topic          string          `gorm:"type:varchar(255)"`
	EmbeddingValue pgvector.Vector `gorm:"type:vector(768)"` // text-embedding-004 / nomic-embed-text use 768 dimensions
	CreatedAt      time.Time       `gorm:"autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime"`
	DeletedAt      gorm.DeletedAt  `gorm:"index"`
}

func (PersonaPassage) TableName() string {
	return "persona_passages"
}
