package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lingopad/api/internal/analytics"
	"github.com/lingopad/api/internal/apperr"
	"github.com/lingopad/api/internal/catalog"
	"github.com/lingopad/api/internal/logger"
	"github.com/lingopad/api/internal/middleware"
	"github.com/lingopad/api/internal/model"
	"github.com/lingopad/api/internal/practice"
	"github.com/lingopad/api/internal/response"
)

type TypingHandler struct {
	catalog  *catalog.Service
	store    *practice.Store
	calendar *analytics.Calendar
	log      *logger.Logger
}

func NewTypingHandler(cat *catalog.Service, store *practice.Store, cal *analytics.Calendar, log *logger.Logger) *TypingHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &TypingHandler{catalog: cat, store: store, calendar: cal, log: log}
}

// WordResponse is the wire shape of a word in the practice list.
type WordResponse struct {
	ID          int64  `json:"id"`
	Word        string `json:"word"`
	Chapter     int    `json:"chapter"`
	Translation string `json:"translation,omitempty"`
	Phonetic    string `json:"phonetic,omitempty"`
}

type RecordSessionRequest struct {
	Date       string `json:"date"`
	WordsAdded int    `json:"words_added"`
	Completed  bool   `json:"completed"`
}

type SessionResponse struct {
	ID          int64  `json:"id"`
	SessionDate string `json:"session_date"`
	TotalWords  int    `json:"total_words"`
	IsCompleted bool   `json:"is_completed"`
}

// Words returns the ordered word list of a (category, chapter) selection.
// The body is a bare array; errors use the envelope.
func (h *TypingHandler) Words(c *gin.Context) {
	chapter, err := positiveIntQuery(c, "chapter")
	if err != nil {
		response.Error(c, h.log, err)
		return
	}

	var words []model.Word
	if raw := strings.TrimSpace(c.Query("dictionary_id")); raw != "" {
		id, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil || id < 1 {
			response.Error(c, h.log, apperr.New(apperr.BadRequest, "dictionary_id must be a positive integer"))
			return
		}
		words, err = h.catalog.GetWordsByDictionary(c.Request.Context(), id, chapter)
	} else {
		category := strings.TrimSpace(c.Query("category"))
		if category == "" {
			response.Error(c, h.log, apperr.New(apperr.BadRequest, "category is required"))
			return
		}
		words, err = h.catalog.GetWords(c.Request.Context(), category, chapter)
	}
	if err != nil {
		response.Error(c, h.log, err)
		return
	}

	out := make([]WordResponse, len(words))
	for i, w := range words {
		out[i] = WordResponse{
			ID:          w.ID,
			Word:        w.Headword,
			Chapter:     w.Chapter,
			Translation: w.Translation,
			Phonetic:    w.Phonetic,
		}
	}
	c.JSON(http.StatusOK, out)
}

// Calendar returns the caller's monthly practice heatmap.
func (h *TypingHandler) Calendar(c *gin.Context) {
	uid, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, h.log, apperr.New(apperr.Unauthenticated, "unauthorized"))
		return
	}
	year, err := requiredIntQuery(c, "year")
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	month, err := requiredIntQuery(c, "month")
	if err != nil {
		response.Error(c, h.log, err)
		return
	}

	cal, err := h.calendar.MonthlyCalendar(c.Request.Context(), uid, year, month)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, "ok", cal)
}

// RecordSession adds practice activity to the caller's day.
func (h *TypingHandler) RecordSession(c *gin.Context) {
	uid, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, h.log, apperr.New(apperr.Unauthenticated, "unauthorized"))
		return
	}

	var req RecordSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, h.log, apperr.New(apperr.BadRequest, "invalid request body"))
		return
	}

	date := h.store.Today()
	if req.Date != "" {
		d, err := parseDate(req.Date, "date")
		if err != nil {
			response.Error(c, h.log, err)
			return
		}
		date = d
	}

	row, err := h.store.RecordPractice(c.Request.Context(), uid, date, req.WordsAdded, req.Completed)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, "practice recorded", toSessionResponse(*row))
}

// ListSessions returns the caller's sessions in [date_from, date_to].
// Both default to the last 30 days ending today.
func (h *TypingHandler) ListSessions(c *gin.Context) {
	uid, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, h.log, apperr.New(apperr.Unauthenticated, "unauthorized"))
		return
	}

	to := h.store.Today()
	from := to.AddDate(0, 0, -29)
	if raw := c.Query("date_to"); raw != "" {
		d, err := parseDate(raw, "date_to")
		if err != nil {
			response.Error(c, h.log, err)
			return
		}
		to = d
	}
	if raw := c.Query("date_from"); raw != "" {
		d, err := parseDate(raw, "date_from")
		if err != nil {
			response.Error(c, h.log, err)
			return
		}
		from = d
	}

	rows, err := h.store.ListSessions(c.Request.Context(), uid, from, to)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	out := make([]SessionResponse, len(rows))
	for i, r := range rows {
		out[i] = toSessionResponse(r)
	}
	response.OK(c, "ok", out)
}

// GetSession returns the caller's aggregate for one day.
func (h *TypingHandler) GetSession(c *gin.Context) {
	uid, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, h.log, apperr.New(apperr.Unauthenticated, "unauthorized"))
		return
	}
	day, err := parseDate(c.Param("date"), "date")
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	row, err := h.store.Get(c.Request.Context(), uid, day)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, "ok", toSessionResponse(*row))
}

// Dictionaries lists dictionaries, optionally filtered by category.
func (h *TypingHandler) Dictionaries(c *gin.Context) {
	dicts, err := h.catalog.ListDictionaries(c.Request.Context(), c.Query("category"))
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, "ok", dicts)
}

// Chapters lists the chapters of one dictionary.
func (h *TypingHandler) Chapters(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		response.Error(c, h.log, apperr.New(apperr.BadRequest, "invalid dictionary id"))
		return
	}
	chapters, err := h.catalog.Chapters(c.Request.Context(), id)
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, "ok", chapters)
}

func toSessionResponse(r model.PracticeSession) SessionResponse {
	return SessionResponse{
		ID:          r.ID,
		SessionDate: model.DateKey(r.SessionDate),
		TotalWords:  r.TotalWords,
		IsCompleted: r.IsCompleted,
	}
}

func requiredIntQuery(c *gin.Context, name string) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, apperr.New(apperr.BadRequest, "%s is required", name)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.New(apperr.BadRequest, "%s must be an integer", name)
	}
	return n, nil
}

func positiveIntQuery(c *gin.Context, name string) (int, error) {
	n, err := requiredIntQuery(c, name)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, apperr.New(apperr.BadRequest, "%s must be a positive integer", name)
	}
	return n, nil
}

func parseDate(raw, name string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, apperr.New(apperr.BadRequest, "invalid %s, use YYYY-MM-DD", name)
	}
	return d, nil
}
