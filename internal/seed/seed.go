// Package seed loads dictionary word lists from YAML into the database.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/lingopad/api/internal/logger"
	"github.com/lingopad/api/internal/model"
	"github.com/lingopad/api/internal/validator"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const batchSize = 500

// File is the on-disk seed format.
//
//	dictionaries:
//	  - name: TOEFL词汇
//	    category: TOEFL
//	    chapters:
//	      - chapter: 1
//	        words:
//	          - word: ability
//	            translation: n. 能力
type File struct {
	Dictionaries []DictionaryEntry `yaml:"dictionaries"`
}

type DictionaryEntry struct {
	Name        string         `yaml:"name"`
	Category    string         `yaml:"category"`
	Description string         `yaml:"description"`
	Chapters    []ChapterEntry `yaml:"chapters"`
}

type ChapterEntry struct {
	Chapter int         `yaml:"chapter"`
	Words   []WordEntry `yaml:"words"`
}

type WordEntry struct {
	Word        string                 `yaml:"word"`
	Phonetic    string                 `yaml:"phonetic"`
	Translation string                 `yaml:"translation"`
	Difficulty  int                    `yaml:"difficulty"`
	Metadata    map[string]interface{} `yaml:"metadata"`
}

// LoadFile reads and structurally checks a seed file.
func LoadFile(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	for i, d := range f.Dictionaries {
		if strings.TrimSpace(d.Name) == "" || strings.TrimSpace(d.Category) == "" {
			return nil, fmt.Errorf("dictionary #%d: name and category are required", i+1)
		}
		for _, ch := range d.Chapters {
			if ch.Chapter < 1 {
				return nil, fmt.Errorf("dictionary %q: chapter must be >= 1, got %d", d.Name, ch.Chapter)
			}
		}
	}
	return &f, nil
}

// Invalidator drops cached word lists of a dictionary.
type Invalidator interface {
	InvalidateDictionary(ctx context.Context, dictionaryID int64) error
}

type Result struct {
	Dictionaries int
	Inserted     int64
	Skipped      int64
	Invalid      int
}

type Seeder struct {
	db        *gorm.DB
	validator *validator.HeadwordValidator
	cache     Invalidator
	log       *logger.Logger
}

// NewSeeder builds a seeder. cache may be nil.
func NewSeeder(db *gorm.DB, v *validator.HeadwordValidator, cache Invalidator, log *logger.Logger) *Seeder {
	if log == nil {
		log = logger.Nop()
	}
	return &Seeder{db: db, validator: v, cache: cache, log: log}
}

// Seed inserts every dictionary and word of f. Existing rows are left
// untouched, so running the same file twice is a no-op.
func (s *Seeder) Seed(ctx context.Context, f *File) (*Result, error) {
	res := &Result{}
	for _, entry := range f.Dictionaries {
		dict, err := s.ensureDictionary(ctx, entry)
		if err != nil {
			return res, err
		}
		res.Dictionaries++

		for _, ch := range entry.Chapters {
			words, invalid := s.buildWords(dict.ID, ch)
			res.Invalid += invalid
			if len(words) == 0 {
				continue
			}
			result := s.db.WithContext(ctx).
				Clauses(clause.OnConflict{DoNothing: true}).
				CreateInBatches(words, batchSize)
			if result.Error != nil {
				return res, fmt.Errorf("insert words for %q chapter %d: %w", dict.Name, ch.Chapter, result.Error)
			}
			res.Inserted += result.RowsAffected
			res.Skipped += int64(len(words)) - result.RowsAffected
		}

		if s.cache != nil {
			if err := s.cache.InvalidateDictionary(ctx, dict.ID); err != nil {
				s.log.Warn("word cache invalidation failed", "dictionary_id", dict.ID, "error", err)
			}
		}
		s.log.Info("dictionary seeded", "name", dict.Name, "category", dict.Category, "id", dict.ID)
	}
	return res, nil
}

func (s *Seeder) ensureDictionary(ctx context.Context, entry DictionaryEntry) (*model.Dictionary, error) {
	d := model.Dictionary{
		Name:     strings.TrimSpace(entry.Name),
		Category: strings.TrimSpace(entry.Category),
	}
	err := s.db.WithContext(ctx).
		Where(model.Dictionary{Name: d.Name, Category: d.Category}).
		Attrs(model.Dictionary{Description: entry.Description}).
		FirstOrCreate(&d).Error
	if err != nil {
		return nil, fmt.Errorf("ensure dictionary %q: %w", entry.Name, err)
	}
	return &d, nil
}

// buildWords turns a chapter entry into rows. Position follows file order.
func (s *Seeder) buildWords(dictionaryID int64, ch ChapterEntry) ([]model.Word, int) {
	words := make([]model.Word, 0, len(ch.Words))
	invalid := 0
	for i, w := range ch.Words {
		headword := strings.TrimSpace(w.Word)
		if s.validator != nil {
			if err := s.validator.Validate(headword); err != nil {
				s.log.Warn("skipping invalid headword", "chapter", ch.Chapter, "error", err)
				invalid++
				continue
			}
		}
		row := model.Word{
			DictionaryID: dictionaryID,
			Chapter:      ch.Chapter,
			Headword:     headword,
			Position:     i + 1,
			Phonetic:     w.Phonetic,
			Translation:  w.Translation,
			Difficulty:   w.Difficulty,
		}
		if len(w.Metadata) > 0 {
			if raw, err := json.Marshal(w.Metadata); err == nil {
				row.Metadata = datatypes.JSON(raw)
			}
		}
		words = append(words, row)
	}
	return words, invalid
}
