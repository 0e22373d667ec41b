package testutil

import (
	"time-tracking-api/internal/database"

	"gorm.io/gorm"
)

// NewInMemoryDB creates an in-memory SQLite DB and runs migrations. The pool is
// held at one connection so every query sees the same in-memory database.
func NewInMemoryDB() (*gorm.DB, error) {
	db, err := database.Open(":memory:", "silent")
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
