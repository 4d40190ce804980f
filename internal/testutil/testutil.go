// Package testutil provides an in-memory database and fixtures for tests.
package testutil

import (
	"testing"
	"time"

	"github.com/lingopad/api/internal/database"
	"github.com/lingopad/api/internal/model"
	"gorm.io/gorm"
)

// DB returns a fresh, migrated in-memory database.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()
	db, err := database.OpenMemory(nil)
	if err != nil {
		tb.Fatalf("open test db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		tb.Fatalf("migrate test db: %v", err)
	}
	tb.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// Date builds a civil date at midnight UTC.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func User(tb testing.TB, db *gorm.DB, email string) *model.User {
	tb.Helper()
	u := &model.User{Email: email, Name: email}
	if err := db.Create(u).Error; err != nil {
		tb.Fatalf("create user: %v", err)
	}
	return u
}

func Dictionary(tb testing.TB, db *gorm.DB, name, category string) *model.Dictionary {
	tb.Helper()
	d := &model.Dictionary{Name: name, Category: category}
	if err := db.Create(d).Error; err != nil {
		tb.Fatalf("create dictionary: %v", err)
	}
	return d
}

func Word(tb testing.TB, db *gorm.DB, dictionaryID int64, chapter int, headword string) *model.Word {
	tb.Helper()
	w := &model.Word{DictionaryID: dictionaryID, Chapter: chapter, Headword: headword}
	if err := db.Create(w).Error; err != nil {
		tb.Fatalf("create word: %v", err)
	}
	return w
}

func Session(tb testing.TB, db *gorm.DB, userID int64, date time.Time, totalWords int) *model.PracticeSession {
	tb.Helper()
	s := &model.PracticeSession{UserID: userID, SessionDate: date, TotalWords: totalWords}
	if err := db.Create(s).Error; err != nil {
		tb.Fatalf("create session: %v", err)
	}
	return s
}

// SeedTOEFL creates the TOEFL dictionary used across handler and
// catalog tests: abandon/ability in chapter 1, absence in chapter 2.
func SeedTOEFL(tb testing.TB, db *gorm.DB) *model.Dictionary {
	tb.Helper()
	d := Dictionary(tb, db, "TOEFL词汇", model.CategoryTOEFL)
	Word(tb, db, d.ID, 1, "ability")
	Word(tb, db, d.ID, 1, "abandon")
	Word(tb, db, d.ID, 2, "absence")
	return d
}

// FailCreates makes the first n inserts into table fail with a duplicate
// key error. The returned func reports how many inserts were attempted.
func FailCreates(tb testing.TB, db *gorm.DB, table string, n int) func() int {
	tb.Helper()
	calls := 0
	err := db.Callback().Create().Before("gorm:create").Register("testutil:fail_creates", func(tx *gorm.DB) {
		if tx.Statement.Table != table {
			return
		}
		calls++
		if calls <= n {
			_ = tx.AddError(gorm.ErrDuplicatedKey)
		}
	})
	if err != nil {
		tb.Fatalf("register create callback: %v", err)
	}
	return func() int { return calls }
}
