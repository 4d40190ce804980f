package model

import "time"

// PracticeSession is the per-user per-day typing practice aggregate.
// One row = one user + one calendar date.
type PracticeSession struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64     `gorm:"not null;uniqueIndex:idx_practice_sessions_user_date,priority:1" json:"userId"`
	SessionDate time.Time `gorm:"type:date;not null;uniqueIndex:idx_practice_sessions_user_date,priority:2" json:"sessionDate"`
	TotalWords  int       `gorm:"not null;default:0" json:"totalWords"`
	IsCompleted bool      `gorm:"not null;default:false" json:"isCompleted"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (PracticeSession) TableName() string {
	return "practice_sessions"
}

// DateKey formats a civil date the way cells and query params carry it.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// CivilDate drops the time of day, keeping the calendar date as seen in
// t's location, and returns it at midnight UTC.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
