package specification

import "gorm.io/gorm"

// FilterByCharacter matches passages tagged for one character. Characters is
// a comma-joined tag column, so this is a substring match. An empty name
// matches everything.
type FilterByCharacter struct {
	CharacterName string
}

func (s FilterByCharacter) Apply(db *gorm.DB) *gorm.DB {
	if s.CharacterName == "" {
		return db
	}
	return db.Where("characters LIKE ?", "%"+s.CharacterName+"%")
}
