package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lingopad/api/internal/analytics"
	"github.com/lingopad/api/internal/auth"
	"github.com/lingopad/api/internal/catalog"
	"github.com/lingopad/api/internal/clock"
	"github.com/lingopad/api/internal/model"
	"github.com/lingopad/api/internal/practice"
	"github.com/lingopad/api/internal/ratelimit"
	"github.com/lingopad/api/internal/testutil"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

var testNow = time.Date(2024, time.March, 6, 18, 0, 0, 0, time.UTC)

type fixture struct {
	db     *gorm.DB
	router *gin.Engine
	user   *model.User
	token  string
}

type rateCounter struct{ n int64 }

func (r *rateCounter) Incr(context.Context, string, time.Duration) (int64, error) {
	r.n++
	return r.n, nil
}

func (r *rateCounter) TTL(context.Context, string) (time.Duration, error) { return time.Minute, nil }

func newFixture(t *testing.T, limiter *ratelimit.Limiter) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.DB(t)
	clk := clock.Fixed(testNow)
	typing := NewTypingHandler(
		catalog.NewService(db, nil, nil),
		practice.NewStore(db, clk),
		analytics.NewCalendar(db, clk, time.Monday, nil),
		nil,
	)
	router := NewRouter(RouterConfig{
		JWTSecret:      testSecret,
		RequestTimeout: 5 * time.Second,
		Limiter:        limiter,
	}, typing)

	user := testutil.User(t, db, "learner@example.com")
	token, err := auth.GenerateAccessToken(user, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return &fixture{db: db, router: router, user: user, token: token}
}

func (f *fixture) do(t *testing.T, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Authorization", "Bearer "+f.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body=%s)", err, rec.Body.String())
	}
	return env
}

func TestWordsHappyPath(t *testing.T) {
	f := newFixture(t, nil)
	testutil.SeedTOEFL(t, f.db)

	rec := f.do(t, http.MethodGet, TypingPracticePrefix+"/words/?category=TOEFL&chapter=1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got=%d want=%d body=%s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var words []WordResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &words); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(words) != 2 || words[0].Word != "abandon" || words[1].Word != "ability" {
		t.Fatalf("unexpected words: %+v", words)
	}
	for _, w := range words {
		if w.Chapter != 1 || w.ID == 0 {
			t.Fatalf("unexpected word: %+v", w)
		}
	}
}

func TestWordsUnknownCategory(t *testing.T) {
	f := newFixture(t, nil)
	testutil.SeedTOEFL(t, f.db)

	rec := f.do(t, http.MethodGet, TypingPracticePrefix+"/words/?category=XYZ&chapter=1", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: got=%d want=%d", rec.Code, http.StatusNotFound)
	}
	if env := decodeEnvelope(t, rec); env.Success || env.Message == "" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestWordsEmptyChapter(t *testing.T) {
	f := newFixture(t, nil)
	testutil.SeedTOEFL(t, f.db)

	rec := f.do(t, http.MethodGet, TypingPracticePrefix+"/words/?category=TOEFL&chapter=9", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got=%d want=%d", rec.Code, http.StatusOK)
	}
	if got := bytes.TrimSpace(rec.Body.Bytes()); string(got) != "[]" {
		t.Fatalf("body: got=%s want=[]", got)
	}
}

func TestWordsBadParams(t *testing.T) {
	f := newFixture(t, nil)
	testutil.SeedTOEFL(t, f.db)

	for _, q := range []string{
		"category=TOEFL&chapter=0",
		"category=TOEFL&chapter=-2",
		"category=TOEFL&chapter=one",
		"category=TOEFL",
		"chapter=1",
		"dictionary_id=abc&chapter=1",
	} {
		rec := f.do(t, http.MethodGet, TypingPracticePrefix+"/words/?"+q, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status got=%d want=%d", q, rec.Code, http.StatusBadRequest)
		}
	}
}

func TestWordsByDictionaryID(t *testing.T) {
	f := newFixture(t, nil)
	d := testutil.SeedTOEFL(t, f.db)

	rec := f.do(t, http.MethodGet, TypingPracticePrefix+"/words/?dictionary_id="+itoa(d.ID)+"&chapter=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got=%d body=%s", rec.Code, rec.Body.String())
	}
	var words []WordResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &words); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(words) != 1 || words[0].Word != "absence" {
		t.Fatalf("unexpected words: %+v", words)
	}
}

func TestRequiresAuthentication(t *testing.T) {
	f := newFixture(t, nil)

	for _, target := range []string{
		TypingPracticePrefix + "/words/?category=TOEFL&chapter=1",
		TypingPracticePrefix + "/calendar/?year=2024&month=3",
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: status got=%d want=%d", target, rec.Code, http.StatusUnauthorized)
		}

		req = httptest.NewRequest(http.MethodGet, target, nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		rec = httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s with bad token: status got=%d want=%d", target, rec.Code, http.StatusUnauthorized)
		}
	}
}

func getCalendar(t *testing.T, f *fixture, query string) (int, analytics.MonthlyCalendar) {
	t.Helper()
	rec := f.do(t, http.MethodGet, TypingPracticePrefix+"/calendar/?"+query, nil)
	env := decodeEnvelope(t, rec)
	var data analytics.MonthlyCalendar
	if rec.Code == http.StatusOK {
		if !env.Success {
			t.Fatalf("success=false on 200: %+v", env)
		}
		if err := json.Unmarshal(env.Data, &data); err != nil {
			t.Fatalf("decode calendar: %v", err)
		}
	}
	return rec.Code, data
}

func TestCalendarEmptyUser(t *testing.T) {
	f := newFixture(t, nil)

	code, cal := getCalendar(t, f, "year=2024&month=3")
	if code != http.StatusOK {
		t.Fatalf("status: got=%d want=%d", code, http.StatusOK)
	}
	if cal.Year != 2024 || cal.Month != 3 {
		t.Fatalf("unexpected year/month: %d/%d", cal.Year, cal.Month)
	}
	if len(cal.WeeksData) != 5 {
		t.Fatalf("weeks: got=%d want=5", len(cal.WeeksData))
	}
	for _, w := range cal.WeeksData {
		if len(w) != 7 {
			t.Fatalf("week length: got=%d want=7", len(w))
		}
		for _, c := range w {
			if c.Practiced || c.Intensity != 0 {
				t.Fatalf("unexpected cell: %+v", c)
			}
		}
	}
	if cal.PracticedDays != 0 || cal.CurrentStreak != 0 {
		t.Fatalf("unexpected totals: %+v", cal)
	}
}

func TestCalendarAfterRecording(t *testing.T) {
	f := newFixture(t, nil)

	for _, r := range []RecordSessionRequest{
		{Date: "2024-03-04", WordsAdded: 5},
		{Date: "2024-03-05", WordsAdded: 20},
		{Date: "2024-03-06", WordsAdded: 70, Completed: true},
	} {
		rec := f.do(t, http.MethodPost, TypingPracticePrefix+"/sessions/", r)
		if rec.Code != http.StatusOK {
			t.Fatalf("record %s: status got=%d body=%s", r.Date, rec.Code, rec.Body.String())
		}
	}

	code, cal := getCalendar(t, f, "year=2024&month=3")
	if code != http.StatusOK {
		t.Fatalf("status: got=%d", code)
	}
	want := map[string]int{"2024-03-04": 1, "2024-03-05": 2, "2024-03-06": 4}
	for _, w := range cal.WeeksData {
		for _, c := range w {
			if exp, ok := want[c.Date]; ok && c.Intensity != exp {
				t.Fatalf("%s: intensity got=%d want=%d", c.Date, c.Intensity, exp)
			}
		}
	}
	if cal.PracticedDays != 3 || cal.LongestStreak != 3 || cal.TotalWordsMonth != 95 || cal.CurrentStreak != 3 {
		t.Fatalf("unexpected totals: %+v", cal)
	}
}

func TestCalendarBadParams(t *testing.T) {
	f := newFixture(t, nil)
	for _, q := range []string{"year=2024&month=13", "year=2024&month=0", "year=2024", "month=3", "year=x&month=3"} {
		if code, _ := getCalendar(t, f, q); code != http.StatusBadRequest {
			t.Fatalf("%s: status got=%d want=%d", q, code, http.StatusBadRequest)
		}
	}
}

func TestCalendarUnknownUser(t *testing.T) {
	f := newFixture(t, nil)
	ghost := &model.User{ID: f.user.ID + 42, Email: "ghost@example.com"}
	tok, err := auth.GenerateAccessToken(ghost, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	f.token = tok
	if code, _ := getCalendar(t, f, "year=2024&month=3"); code != http.StatusNotFound {
		t.Fatalf("status: got=%d want=%d", code, http.StatusNotFound)
	}
}

func TestRecordSessionValidation(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, TypingPracticePrefix+"/sessions/", RecordSessionRequest{Date: "2024-03-07", WordsAdded: 3})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("future date: status got=%d want=%d", rec.Code, http.StatusBadRequest)
	}
	rec = f.do(t, http.MethodPost, TypingPracticePrefix+"/sessions/", RecordSessionRequest{Date: "03/06/2024", WordsAdded: 3})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad date: status got=%d want=%d", rec.Code, http.StatusBadRequest)
	}

	// No date means today.
	rec = f.do(t, http.MethodPost, TypingPracticePrefix+"/sessions/", RecordSessionRequest{WordsAdded: 4})
	if rec.Code != http.StatusOK {
		t.Fatalf("today: status got=%d body=%s", rec.Code, rec.Body.String())
	}
	var row SessionResponse
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &row); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if row.SessionDate != "2024-03-06" || row.TotalWords != 4 {
		t.Fatalf("unexpected row: %+v", row)
	}
}

func TestRecordSessionConflict(t *testing.T) {
	f := newFixture(t, nil)
	testutil.FailCreates(t, f.db, "practice_sessions", 10)

	rec := f.do(t, http.MethodPost, TypingPracticePrefix+"/sessions/", RecordSessionRequest{Date: "2024-03-05", WordsAdded: 2})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status: got=%d want=%d body=%s", rec.Code, http.StatusConflict, rec.Body.String())
	}
	if env := decodeEnvelope(t, rec); env.Success {
		t.Fatalf("conflict must not report success")
	}
}

func TestGetSession(t *testing.T) {
	f := newFixture(t, nil)
	testutil.Session(t, f.db, f.user.ID, testutil.Date(2024, time.March, 4), 12)

	rec := f.do(t, http.MethodGet, TypingPracticePrefix+"/sessions/2024-03-04/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got=%d want=%d body=%s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var row SessionResponse
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &row); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if row.SessionDate != "2024-03-04" || row.TotalWords != 12 {
		t.Fatalf("unexpected row: %+v", row)
	}

	cases := []struct {
		target string
		want   int
	}{
		{"/sessions/2024-03-05/", http.StatusNotFound},
		{"/sessions/yesterday/", http.StatusBadRequest},
	}
	for _, tc := range cases {
		rec := f.do(t, http.MethodGet, TypingPracticePrefix+tc.target, nil)
		if rec.Code != tc.want {
			t.Fatalf("%s: got=%d want=%d", tc.target, rec.Code, tc.want)
		}
	}
}

func TestListSessions(t *testing.T) {
	f := newFixture(t, nil)
	testutil.Session(t, f.db, f.user.ID, testutil.Date(2024, time.March, 1), 3)
	testutil.Session(t, f.db, f.user.ID, testutil.Date(2024, time.March, 3), 8)

	rec := f.do(t, http.MethodGet, TypingPracticePrefix+"/sessions/?date_from=2024-03-01&date_to=2024-03-02", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got=%d", rec.Code)
	}
	var rows []SessionResponse
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 1 || rows[0].SessionDate != "2024-03-01" {
		t.Fatalf("unexpected rows: %+v", rows)
	}

	rec = f.do(t, http.MethodGet, TypingPracticePrefix+"/sessions/?date_from=2024-03-05&date_to=2024-03-01", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("inverted range: status got=%d want=%d", rec.Code, http.StatusBadRequest)
	}

	// Defaults cover the last 30 days.
	rec = f.do(t, http.MethodGet, TypingPracticePrefix+"/sessions/", nil)
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("default range: got %d rows want 2", len(rows))
	}
}

func TestDictionariesAndChapters(t *testing.T) {
	f := newFixture(t, nil)
	d := testutil.SeedTOEFL(t, f.db)

	rec := f.do(t, http.MethodGet, TypingPracticePrefix+"/dictionaries/?category=TOEFL", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got=%d", rec.Code)
	}
	var dicts []catalog.DictionarySummary
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &dicts); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(dicts) != 1 || dicts[0].Name != "TOEFL词汇" || dicts[0].ChapterCount != 2 {
		t.Fatalf("unexpected dictionaries: %+v", dicts)
	}

	rec = f.do(t, http.MethodGet, TypingPracticePrefix+"/dictionaries/"+itoa(d.ID)+"/chapters/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("chapters status: got=%d", rec.Code)
	}
	rec = f.do(t, http.MethodGet, TypingPracticePrefix+"/dictionaries/999/chapters/", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing dictionary: status got=%d want=%d", rec.Code, http.StatusNotFound)
	}
}

func TestRecordSessionRateLimited(t *testing.T) {
	limiter := ratelimit.NewLimiter(&rateCounter{}, map[string]ratelimit.ActionConfig{
		ratelimit.ActionRecordPractice: {Limit: 1, Window: time.Minute},
	})
	f := newFixture(t, limiter)

	body := RecordSessionRequest{WordsAdded: 1}
	if rec := f.do(t, http.MethodPost, TypingPracticePrefix+"/sessions/", body); rec.Code != http.StatusOK {
		t.Fatalf("first: status got=%d", rec.Code)
	}
	rec := f.do(t, http.MethodPost, TypingPracticePrefix+"/sessions/", body)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second: status got=%d want=%d", rec.Code, http.StatusTooManyRequests)
	}
	if env := decodeEnvelope(t, rec); env.Success {
		t.Fatalf("expected failure envelope: %+v", env)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t, nil)
	for _, target := range []string{"/health", "/metrics"} {
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status got=%d", target, rec.Code)
		}
	}
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
