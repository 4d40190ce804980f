package config

import (
	"reflect"
	"testing"
	"time"
)

func TestParseWeekday(t *testing.T) {
	cases := []struct {
		in   string
		want time.Weekday
	}{
		{"monday", time.Monday},
		{"Sun", time.Sunday},
		{" SATURDAY ", time.Saturday},
		{"mo", time.Monday},
		{"someday", time.Monday},
	}
	for _, tc := range cases {
		if got := ParseWeekday(tc.in, time.Monday); got != tc.want {
			t.Fatalf("ParseWeekday(%q): got=%v want=%v", tc.in, got, tc.want)
		}
	}
}

func TestParseThresholds(t *testing.T) {
	cases := []struct {
		in   string
		want []int
	}{
		{"5,15,40", []int{5, 15, 40}},
		{"", DefaultIntensityThresholds},
		{"10,10,60", DefaultIntensityThresholds},
		{"1,2", DefaultIntensityThresholds},
		{"a,b,c", DefaultIntensityThresholds},
	}
	for _, tc := range cases {
		if got := ParseThresholds(tc.in, DefaultIntensityThresholds); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("ParseThresholds(%q): got=%v want=%v", tc.in, got, tc.want)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("WEEK_START", "")
	t.Setenv("REQUEST_TIMEOUT", "")
	t.Setenv("UPSERT_RETRIES", "")
	t.Setenv("TESTING", "true")

	cfg := Load()
	if cfg.WeekStart != time.Monday {
		t.Fatalf("week start: got=%v want=%v", cfg.WeekStart, time.Monday)
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Fatalf("timeout: got=%v want=%v", cfg.RequestTimeout, 10*time.Second)
	}
	if cfg.UpsertRetries != 3 {
		t.Fatalf("retries: got=%d want=3", cfg.UpsertRetries)
	}
	if !cfg.Testing {
		t.Fatalf("testing flag not picked up")
	}
}
