package analytics

import "time"

const (
	GridWeeks = 5
	GridDays  = 7
	GridCells = GridWeeks * GridDays
)

// GridDates returns the 35 dates shown for a month. The window starts on
// weekStart of the week containing the 1st. When the month would spill
// into a sixth row the leading pad is shortened instead, so every day of
// the month stays in the window; the remaining cells are trailing days
// of the next month.
func GridDates(year int, month time.Month, weekStart time.Weekday) []time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	days := DaysIn(year, month)

	pad := LeadingPad(first.Weekday(), weekStart)
	if pad+days > GridCells {
		pad = GridCells - days
	}

	start := first.AddDate(0, 0, -pad)
	out := make([]time.Time, GridCells)
	for i := range out {
		out[i] = start.AddDate(0, 0, i)
	}
	return out
}

// LeadingPad is the number of cells before a month whose first day falls
// on first, in a week that begins on weekStart.
func LeadingPad(first, weekStart time.Weekday) int {
	return (int(first) - int(weekStart) + 7) % 7
}

func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Intensity buckets a day's word count. thresholds are the inclusive
// upper bounds of buckets 1..len(thresholds); zero words is bucket 0 and
// anything above the last bound is the top bucket.
func Intensity(totalWords int, thresholds []int) int {
	if totalWords <= 0 {
		return 0
	}
	for i, limit := range thresholds {
		if totalWords <= limit {
			return i + 1
		}
	}
	return len(thresholds) + 1
}

// Streaks returns the longest run of true values and the run that ends at
// index end (0 when end is out of range or not practiced).
func Streaks(practiced []bool, end int) (longest, current int) {
	run := 0
	for _, p := range practiced {
		if p {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	if end < 0 || end >= len(practiced) {
		return longest, 0
	}
	for i := end; i >= 0 && practiced[i]; i-- {
		current++
	}
	return longest, current
}
