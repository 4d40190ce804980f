package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lingopad/api/internal/apperr"
	"github.com/lingopad/api/internal/config"
	"github.com/lingopad/api/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens Postgres, or a private in-memory SQLite database when
// cfg.Testing is set.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	level := logger.Warn
	if cfg.Testing {
		level = logger.Silent
	}
	gormCfg := &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	}

	if cfg.Testing {
		return OpenMemory(gormCfg)
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), gormCfg)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// OpenMemory opens a fresh in-memory SQLite database. Every call gets its
// own named database so parallel tests do not share state.
func OpenMemory(gormCfg *gorm.Config) (*gorm.DB, error) {
	if gormCfg == nil {
		gormCfg = &gorm.Config{Logger: logger.Default.LogMode(logger.Silent), TranslateError: true}
	}
	dsn := fmt.Sprintf("file:typing-%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), gormCfg)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite serializes writers; a single connection keeps the in-memory
	// database alive and avoids SQLITE_BUSY between pooled connections.
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Dictionary{},
		&model.Word{},
		&model.PracticeSession{},
	)
}

// IsRetryable reports whether err is a transient write conflict: a unique
// violation from a racing insert, a serialization failure, a deadlock, or
// a locked SQLite database.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505", "40001", "40P01":
			return true
		}
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

// IsTimeout reports whether err came from a cancelled or expired context.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

// StorageError wraps a database failure as Unavailable; op names the
// failed step in logs.
func StorageError(err error, op string) error {
	if IsTimeout(err) {
		return apperr.Wrap(apperr.Unavailable, err, op+": timed out")
	}
	return apperr.Wrap(apperr.Unavailable, err, op)
}
