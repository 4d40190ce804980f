package seed

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/lingopad/api/internal/model"
	"github.com/lingopad/api/internal/validator"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	IssueInvalidHeadword    = "INVALID_HEADWORD"
	IssueMissingTranslation = "MISSING_TRANSLATION"
	IssueChapterGap         = "CHAPTER_GAP"
	IssueDuplicatePosition  = "DUPLICATE_POSITION"
)

type Issue struct {
	DictionaryID int64  `json:"dictionaryId"`
	Dictionary   string `json:"dictionary"`
	Chapter      int    `json:"chapter,omitempty"`
	WordID       int64  `json:"wordId,omitempty"`
	Word         string `json:"word,omitempty"`
	Type         string `json:"type"`
	Details      string `json:"details"`
}

type AuditReport struct {
	Dictionaries int            `json:"dictionaries"`
	Words        int            `json:"words"`
	Issues       []Issue        `json:"issues"`
	ByType       map[string]int `json:"issuesByType"`
}

// Audit scans every dictionary with up to workers concurrent readers and
// reports data problems that would degrade a practice list.
func Audit(ctx context.Context, db *gorm.DB, v *validator.HeadwordValidator, workers int) (*AuditReport, error) {
	if workers < 1 {
		workers = 1
	}
	var dicts []model.Dictionary
	if err := db.WithContext(ctx).Order("id ASC").Find(&dicts).Error; err != nil {
		return nil, fmt.Errorf("list dictionaries: %w", err)
	}

	report := &AuditReport{Dictionaries: len(dicts), ByType: map[string]int{}}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, d := range dicts {
		d := d
		g.Go(func() error {
			var words []model.Word
			err := db.WithContext(gctx).
				Where("dictionary_id = ?", d.ID).
				Order("chapter ASC, position ASC, headword ASC, id ASC").
				Find(&words).Error
			if err != nil {
				return fmt.Errorf("load words of dictionary %d: %w", d.ID, err)
			}
			issues := auditDictionary(d, words, v)

			mu.Lock()
			report.Words += len(words)
			report.Issues = append(report.Issues, issues...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(report.Issues, func(i, j int) bool {
		a, b := report.Issues[i], report.Issues[j]
		if a.DictionaryID != b.DictionaryID {
			return a.DictionaryID < b.DictionaryID
		}
		if a.Chapter != b.Chapter {
			return a.Chapter < b.Chapter
		}
		return a.WordID < b.WordID
	})
	for _, is := range report.Issues {
		report.ByType[is.Type]++
	}
	return report, nil
}

// auditDictionary expects words ordered by chapter then position.
func auditDictionary(d model.Dictionary, words []model.Word, v *validator.HeadwordValidator) []Issue {
	var issues []Issue
	add := func(w *model.Word, chapter int, typ, details string) {
		is := Issue{DictionaryID: d.ID, Dictionary: d.Name, Chapter: chapter, Type: typ, Details: details}
		if w != nil {
			is.WordID = w.ID
			is.Word = w.Headword
		}
		issues = append(issues, is)
	}

	lastChapter := 0
	for i := range words {
		w := &words[i]
		if w.Chapter > lastChapter+1 {
			for missing := lastChapter + 1; missing < w.Chapter; missing++ {
				add(nil, missing, IssueChapterGap, fmt.Sprintf("chapter %d has no words", missing))
			}
		}
		if i > 0 && words[i-1].Chapter == w.Chapter && w.Position > 0 && words[i-1].Position == w.Position {
			add(w, w.Chapter, IssueDuplicatePosition, fmt.Sprintf("position %d shared with %q", w.Position, words[i-1].Headword))
		}
		lastChapter = w.Chapter

		if v != nil {
			if err := v.Validate(w.Headword); err != nil {
				add(w, w.Chapter, IssueInvalidHeadword, err.Error())
			}
		}
		if w.Translation == "" {
			add(w, w.Chapter, IssueMissingTranslation, "no translation")
		}
	}
	return issues
}
