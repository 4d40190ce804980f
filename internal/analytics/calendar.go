// Package analytics builds read-only projections over practice sessions.
package analytics

import (
	"context"
	"database/sql"
	"time"

	"github.com/lingopad/api/internal/apperr"
	"github.com/lingopad/api/internal/clock"
	"github.com/lingopad/api/internal/database"
	"github.com/lingopad/api/internal/metrics"
	"github.com/lingopad/api/internal/model"
	"github.com/lingopad/api/internal/practice"
	"gorm.io/gorm"
)

var DefaultThresholds = []int{10, 30, 60}

type Cell struct {
	Date       string `json:"date"`
	Weekday    int    `json:"weekday"`
	Practiced  bool   `json:"practiced"`
	Intensity  int    `json:"intensity"`
	IsInMonth  bool   `json:"is_in_month"`
	TotalWords int    `json:"total_words"`
	Completed  bool   `json:"completed"`
}

type MonthlyCalendar struct {
	Year            int      `json:"year"`
	Month           int      `json:"month"`
	WeekStart       string   `json:"week_start"`
	WeeksData       [][]Cell `json:"weeks_data"`
	PracticedDays   int      `json:"practiced_days"`
	CompletedDays   int      `json:"completed_days"`
	TotalWordsMonth int      `json:"total_words_month"`
	LongestStreak   int      `json:"longest_streak"`
	CurrentStreak   int      `json:"current_streak"`
}

type Calendar struct {
	db         *gorm.DB
	clock      clock.Clock
	weekStart  time.Weekday
	thresholds []int
}

// NewCalendar builds the projection. thresholds are the upper bounds of
// intensity buckets 1..3; nil selects DefaultThresholds.
func NewCalendar(db *gorm.DB, clk clock.Clock, weekStart time.Weekday, thresholds []int) *Calendar {
	if clk == nil {
		clk = clock.System{}
	}
	if len(thresholds) == 0 {
		thresholds = DefaultThresholds
	}
	return &Calendar{db: db, clock: clk, weekStart: weekStart, thresholds: thresholds}
}

// MonthlyCalendar returns the 5x7 heatmap of a user's month. Cells and
// totals come from one read transaction so they always agree.
func (c *Calendar) MonthlyCalendar(ctx context.Context, userID int64, year, month int) (*MonthlyCalendar, error) {
	if year < 1 || year > 9999 {
		return nil, apperr.New(apperr.BadRequest, "year must be between 1 and 9999")
	}
	if month < 1 || month > 12 {
		return nil, apperr.New(apperr.BadRequest, "month must be between 1 and 12")
	}
	start := time.Now()
	defer func() { metrics.ObserveCalendar(time.Since(start)) }()

	dates := GridDates(year, time.Month(month), c.weekStart)

	var sessions []model.PracticeSession
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := practice.UserExists(tx, userID)
		if err != nil {
			return err
		}
		if !exists {
			return apperr.New(apperr.NotFound, "user %d not found", userID)
		}
		sessions, err = practice.ListRange(tx, userID, dates[0], dates[len(dates)-1])
		return err
	}, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		if apperr.KindOf(err) != apperr.Internal {
			return nil, err
		}
		return nil, database.StorageError(err, "read calendar")
	}

	return c.project(year, time.Month(month), dates, sessions), nil
}

func (c *Calendar) project(year int, month time.Month, dates []time.Time, sessions []model.PracticeSession) *MonthlyCalendar {
	byDate := make(map[string]model.PracticeSession, len(sessions))
	for _, s := range sessions {
		byDate[model.DateKey(s.SessionDate)] = s
	}

	out := &MonthlyCalendar{
		Year:      year,
		Month:     int(month),
		WeekStart: c.weekStart.String(),
		WeeksData: make([][]Cell, GridWeeks),
	}

	today := model.DateKey(model.CivilDate(c.clock.Now()))
	todayIdx := -1
	var inMonth []bool

	for i, d := range dates {
		key := model.DateKey(d)
		cell := Cell{
			Date:      key,
			Weekday:   int(d.Weekday()),
			IsInMonth: d.Month() == month,
		}
		if s, ok := byDate[key]; ok {
			cell.TotalWords = s.TotalWords
			cell.Practiced = s.TotalWords > 0
			cell.Intensity = Intensity(s.TotalWords, c.thresholds)
			cell.Completed = s.IsCompleted
		}
		if cell.IsInMonth {
			if key == today {
				todayIdx = len(inMonth)
			}
			inMonth = append(inMonth, cell.Practiced)
			if cell.Practiced {
				out.PracticedDays++
				out.TotalWordsMonth += cell.TotalWords
			}
			if cell.Completed {
				out.CompletedDays++
			}
		}
		w := i / GridDays
		out.WeeksData[w] = append(out.WeeksData[w], cell)
	}

	out.LongestStreak, out.CurrentStreak = Streaks(inMonth, todayIdx)
	return out
}
