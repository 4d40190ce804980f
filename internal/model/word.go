package model

import (
	"time"

	"gorm.io/datatypes"
)

type Word struct {
	ID           int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	DictionaryID int64          `gorm:"not null;uniqueIndex:idx_words_dict_chapter_headword,priority:1" json:"dictionaryId"`
	Chapter      int            `gorm:"not null;check:chapter >= 1;uniqueIndex:idx_words_dict_chapter_headword,priority:2" json:"chapter"`
	Headword     string         `gorm:"not null;size:255;uniqueIndex:idx_words_dict_chapter_headword,priority:3" json:"word"`
	Position     int            `gorm:"not null;default:0" json:"-"`
	Phonetic     string         `gorm:"size:255" json:"phonetic,omitempty"`
	Translation  string         `gorm:"type:text" json:"translation,omitempty"`
	Difficulty   int            `gorm:"not null;default:0" json:"difficulty,omitempty"`
	Metadata     datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"-"`
}

func (Word) TableName() string {
	return "words"
}
