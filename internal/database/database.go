package database

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"time-tracking-api/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// activeLogIndex keeps at most one open time log per (task, user). It is the
// storage-level guard behind StartTracking's pre-check.
const activeLogIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_time_logs_one_active
	ON time_logs(task_id, user_id) WHERE is_active = 1`

// InitDB opens the database file at path, runs migrations and stores the
// handle for GetDB.
func InitDB(path, logLevel string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create database directory: %w", err)
		}
	}
	// Pure Go SQLite; WAL + busy_timeout so the single writer waits instead of failing.
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := Open(dsn, logLevel)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if err := Migrate(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	DB = db
	log.Println("Database connected and migrated successfully")
	return nil
}

// Open returns a gorm handle on dsn limited to one open connection.
func Open(dsn, logLevel string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(ParseLogLevel(logLevel)),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite only supports one writer at a time
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// Migrate creates or updates every table plus the partial unique index.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Task{},
		&models.StatusChange{},
		&models.PriorityChange{},
		&models.Remark{},
		&models.TimeLog{},
		&models.DailySummary{},
		&models.SummaryTask{},
	)
	if err != nil {
		return err
	}
	return db.Exec(activeLogIndex).Error
}

// ParseLogLevel maps a config string to a gorm log level; unknown values are warn.
func ParseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	}
	return logger.Warn
}

// GetDB returns the database connection
func GetDB() *gorm.DB {
	return DB
}
