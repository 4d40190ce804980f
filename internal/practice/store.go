// Package practice keeps the per-user per-day typing practice aggregate.
package practice

import (
	"context"
	"errors"
	"time"

	"github.com/lingopad/api/internal/apperr"
	"github.com/lingopad/api/internal/clock"
	"github.com/lingopad/api/internal/database"
	"github.com/lingopad/api/internal/logger"
	"github.com/lingopad/api/internal/metrics"
	"github.com/lingopad/api/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const DefaultRetries = 3

type Store struct {
	db      *gorm.DB
	clock   clock.Clock
	retries int
	log     *logger.Logger
}

type Option func(*Store)

// WithRetries sets how many times a conflicting upsert is retried.
func WithRetries(n int) Option {
	return func(s *Store) {
		if n >= 0 {
			s.retries = n
		}
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

func NewStore(db *gorm.DB, clk clock.Clock, opts ...Option) *Store {
	if clk == nil {
		clk = clock.System{}
	}
	s := &Store{db: db, clock: clk, retries: DefaultRetries, log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today is the current civil date according to the store's clock.
func (s *Store) Today() time.Time {
	return model.CivilDate(s.clock.Now())
}

// RecordPractice adds wordsAdded to the (user, date) aggregate, creating
// the row on first use. Once completed is set for a day it stays set.
// Negative wordsAdded counts as zero.
func (s *Store) RecordPractice(ctx context.Context, userID int64, date time.Time, wordsAdded int, completed bool) (*model.PracticeSession, error) {
	if userID < 1 {
		return nil, apperr.New(apperr.BadRequest, "invalid user")
	}
	day := model.CivilDate(date)
	if day.After(s.Today()) {
		return nil, apperr.New(apperr.BadRequest, "session date %s is in the future", model.DateKey(day))
	}
	if wordsAdded < 0 {
		wordsAdded = 0
	}

	var (
		row *model.PracticeSession
		err error
	)
	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 {
			metrics.RecordUpsertRetry()
			s.log.Debug("retrying practice upsert", "user_id", userID, "date", model.DateKey(day), "attempt", attempt)
		}
		row, err = s.upsert(ctx, userID, day, wordsAdded, completed)
		if err == nil {
			metrics.RecordPractice("ok")
			return row, nil
		}
		if !database.IsRetryable(err) || ctx.Err() != nil {
			break
		}
	}

	if database.IsRetryable(err) && ctx.Err() == nil {
		metrics.RecordPractice("conflict")
		return nil, apperr.Wrap(apperr.Conflict, err, "practice session is busy, try again")
	}
	metrics.RecordPractice("error")
	return nil, database.StorageError(err, "record practice")
}

func (s *Store) upsert(ctx context.Context, userID int64, day time.Time, wordsAdded int, completed bool) (*model.PracticeSession, error) {
	var out model.PracticeSession
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clock.Now()
		row := model.PracticeSession{
			UserID:      userID,
			SessionDate: day,
			TotalWords:  wordsAdded,
			IsCompleted: completed,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		// Single statement, so concurrent increments for the same day
		// serialize on the row instead of racing a read-modify-write.
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "session_date"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"total_words":  gorm.Expr("practice_sessions.total_words + excluded.total_words"),
				"is_completed": gorm.Expr("practice_sessions.is_completed OR excluded.is_completed"),
				"updated_at": gorm.Expr("CASE WHEN excluded.total_words > 0 OR (excluded.is_completed AND NOT practice_sessions.is_completed) " +
					"THEN excluded.updated_at ELSE practice_sessions.updated_at END"),
			}),
		}).Create(&row).Error
		if err != nil {
			return err
		}
		return tx.Where("user_id = ? AND session_date = ?", userID, day).First(&out).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Get returns the (user, date) aggregate.
func (s *Store) Get(ctx context.Context, userID int64, date time.Time) (*model.PracticeSession, error) {
	var row model.PracticeSession
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND session_date = ?", userID, model.CivilDate(date)).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.NotFound, "no practice recorded on %s", model.DateKey(date))
	}
	if err != nil {
		return nil, database.StorageError(err, "get practice session")
	}
	return &row, nil
}

// ListSessions returns the user's rows with from <= date <= to, oldest
// first.
func (s *Store) ListSessions(ctx context.Context, userID int64, from, to time.Time) ([]model.PracticeSession, error) {
	from, to = model.CivilDate(from), model.CivilDate(to)
	if from.After(to) {
		return nil, apperr.New(apperr.BadRequest, "date_from must not be after date_to")
	}
	return ListRange(s.db.WithContext(ctx), userID, from, to)
}

// ListRange is the query behind ListSessions. It runs on whatever handle
// it is given so callers can use it inside their own transaction.
func ListRange(db *gorm.DB, userID int64, from, to time.Time) ([]model.PracticeSession, error) {
	rows := []model.PracticeSession{}
	err := db.
		Where("user_id = ? AND session_date >= ? AND session_date <= ?", userID, from, to).
		Order("session_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, database.StorageError(err, "list practice sessions")
	}
	return rows, nil
}

// UserExists reports whether a user row exists.
func UserExists(db *gorm.DB, userID int64) (bool, error) {
	var n int64
	if err := db.Model(&model.User{}).Where("id = ?", userID).Count(&n).Error; err != nil {
		return false, database.StorageError(err, "find user")
	}
	return n > 0, nil
}

// EnsureUser returns the user with email, creating it when missing.
func EnsureUser(ctx context.Context, db *gorm.DB, email, name string) (*model.User, error) {
	u := model.User{Email: email, Name: name}
	err := db.WithContext(ctx).
		Where(model.User{Email: email}).
		Attrs(model.User{Name: name}).
		FirstOrCreate(&u).Error
	if err != nil {
		return nil, database.StorageError(err, "ensure user")
	}
	return &u, nil
}
