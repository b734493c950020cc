package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ByThreadId filters rows belonging to one conversation thread.
type ByThreadId struct {
	ThreadId uuid.UUID
}

func (s ByThreadId) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("thread_id = ?", s.ThreadId)
}

// ByUserId filters threads owned by one user.
type ByUserId struct {
	UserId uuid.UUID
}

func (s ByUserId) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ?", s.UserId)
}

// ByCharacterName filters threads bound to one character.
type ByCharacterName struct {
	CharacterName string
}

func (s ByCharacterName) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("character_name = ?", s.CharacterName)
}
