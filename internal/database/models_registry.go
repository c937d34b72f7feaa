package database

import "devfolio/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []any {
	return []any{
		&models.Account{},
		&models.Project{},
		&models.Like{},
		&models.Comment{},
	}
}
