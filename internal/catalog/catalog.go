// Package catalog resolves dictionaries and chapters to ordered word lists.
package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/lingopad/api/internal/apperr"
	"github.com/lingopad/api/internal/database"
	"github.com/lingopad/api/internal/logger"
	"github.com/lingopad/api/internal/metrics"
	"github.com/lingopad/api/internal/model"
	"gorm.io/gorm"
)

// WordCache stores chapter word lists keyed by (dictionary, chapter).
type WordCache interface {
	GetWords(ctx context.Context, dictionaryID int64, chapter int) ([]model.Word, bool, error)
	SetWords(ctx context.Context, dictionaryID int64, chapter int, words []model.Word) error
}

type Service struct {
	db    *gorm.DB
	cache WordCache
	log   *logger.Logger
}

// NewService builds a catalog. cache may be nil.
func NewService(db *gorm.DB, cache WordCache, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{db: db, cache: cache, log: log}
}

type DictionarySummary struct {
	model.Dictionary
	ChapterCount int   `json:"chapterCount"`
	WordCount    int64 `json:"wordCount"`
}

type ChapterSummary struct {
	Chapter   int   `json:"chapter"`
	WordCount int64 `json:"wordCount"`
}

// GetWords returns the words of one chapter of the first dictionary
// tagged with category. Dictionaries are tried in id order.
func (s *Service) GetWords(ctx context.Context, category string, chapter int) ([]model.Word, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, apperr.New(apperr.BadRequest, "category is required")
	}
	if chapter < 1 {
		return nil, apperr.New(apperr.BadRequest, "chapter must be a positive integer")
	}

	var dict model.Dictionary
	err := s.db.WithContext(ctx).
		Where("category = ?", category).
		Order("id ASC").
		First(&dict).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.NotFound, "no dictionary for category %q", category)
	}
	if err != nil {
		return nil, database.StorageError(err, "find dictionary")
	}

	return s.chapterWords(ctx, dict.ID, chapter)
}

// GetWordsByDictionary is GetWords with an explicit dictionary id.
func (s *Service) GetWordsByDictionary(ctx context.Context, dictionaryID int64, chapter int) ([]model.Word, error) {
	if dictionaryID < 1 {
		return nil, apperr.New(apperr.BadRequest, "dictionary_id must be a positive integer")
	}
	if chapter < 1 {
		return nil, apperr.New(apperr.BadRequest, "chapter must be a positive integer")
	}
	if _, err := s.dictionary(ctx, dictionaryID); err != nil {
		return nil, err
	}
	return s.chapterWords(ctx, dictionaryID, chapter)
}

func (s *Service) chapterWords(ctx context.Context, dictionaryID int64, chapter int) ([]model.Word, error) {
	if s.cache != nil {
		words, ok, err := s.cache.GetWords(ctx, dictionaryID, chapter)
		if err != nil {
			// Fail open: the database is the source of truth.
			s.log.Warn("word cache read failed", "dictionary_id", dictionaryID, "chapter", chapter, "error", err)
		} else if ok {
			metrics.RecordWordsCache(true)
			return words, nil
		}
		metrics.RecordWordsCache(false)
	}

	words := []model.Word{}
	err := s.db.WithContext(ctx).
		Where("dictionary_id = ? AND chapter = ?", dictionaryID, chapter).
		Order("position ASC").
		Order("headword ASC").
		Order("id ASC").
		Find(&words).Error
	if err != nil {
		return nil, database.StorageError(err, "list words")
	}

	if s.cache != nil {
		if err := s.cache.SetWords(ctx, dictionaryID, chapter, words); err != nil {
			s.log.Warn("word cache write failed", "dictionary_id", dictionaryID, "chapter", chapter, "error", err)
		}
	}
	return words, nil
}

// ListDictionaries returns dictionaries (optionally of one category) with
// their chapter and word counts.
func (s *Service) ListDictionaries(ctx context.Context, category string) ([]DictionarySummary, error) {
	q := s.db.WithContext(ctx).Order("category ASC").Order("id ASC")
	if category = strings.TrimSpace(category); category != "" {
		q = q.Where("category = ?", category)
	}
	var dicts []model.Dictionary
	if err := q.Find(&dicts).Error; err != nil {
		return nil, database.StorageError(err, "list dictionaries")
	}
	if len(dicts) == 0 {
		return []DictionarySummary{}, nil
	}

	ids := make([]int64, len(dicts))
	for i, d := range dicts {
		ids[i] = d.ID
	}
	type countRow struct {
		DictionaryID int64
		Chapters     int
		Words        int64
	}
	var rows []countRow
	err := s.db.WithContext(ctx).
		Model(&model.Word{}).
		Select("dictionary_id, COUNT(DISTINCT chapter) AS chapters, COUNT(*) AS words").
		Where("dictionary_id IN ?", ids).
		Group("dictionary_id").
		Scan(&rows).Error
	if err != nil {
		return nil, database.StorageError(err, "count words")
	}
	counts := make(map[int64]countRow, len(rows))
	for _, r := range rows {
		counts[r.DictionaryID] = r
	}

	out := make([]DictionarySummary, len(dicts))
	for i, d := range dicts {
		c := counts[d.ID]
		out[i] = DictionarySummary{Dictionary: d, ChapterCount: c.Chapters, WordCount: c.Words}
	}
	return out, nil
}

// Chapters lists the chapters of a dictionary in ascending order.
func (s *Service) Chapters(ctx context.Context, dictionaryID int64) ([]ChapterSummary, error) {
	if _, err := s.dictionary(ctx, dictionaryID); err != nil {
		return nil, err
	}
	out := []ChapterSummary{}
	err := s.db.WithContext(ctx).
		Model(&model.Word{}).
		Select("chapter, COUNT(*) AS word_count").
		Where("dictionary_id = ?", dictionaryID).
		Group("chapter").
		Order("chapter ASC").
		Scan(&out).Error
	if err != nil {
		return nil, database.StorageError(err, "list chapters")
	}
	return out, nil
}

func (s *Service) dictionary(ctx context.Context, id int64) (*model.Dictionary, error) {
	var dict model.Dictionary
	err := s.db.WithContext(ctx).First(&dict, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.NotFound, "dictionary %d not found", id)
	}
	if err != nil {
		return nil, database.StorageError(err, "find dictionary")
	}
	return &dict, nil
}
