package model

import "time"

// Well-known dictionary categories. The set is open; seed files may use
// any non-empty tag.
const (
	CategoryTOEFL = "TOEFL"
	CategoryCET4  = "CET4"
)

type Dictionary struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"not null;size:255;uniqueIndex:idx_dictionaries_name_category,priority:1" json:"name"`
	Category    string    `gorm:"not null;size:50;index;uniqueIndex:idx_dictionaries_name_category,priority:2" json:"category"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	Words       []Word    `gorm:"foreignKey:DictionaryID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (Dictionary) TableName() string {
	return "dictionaries"
}
