package query

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// extractTimeRange recognizes fixed labels and parametric forms, producing
// day/week/month/year boundaries. Week boundaries follow the ISO convention
// (Monday 00:00:00 through Sunday 23:59:59, local time) chosen to resolve
// the ambiguity left open by the upstream system's week-boundary handling.
func extractTimeRange(now time.Time, lower string) *TimeRange {
	switch {
	case matchesWord(lower, "today"):
		start, end := dayBounds(now)
		return &TimeRange{Start: start, End: end, Label: "today"}
	case matchesWord(lower, "yesterday"):
		start, end := dayBounds(now.AddDate(0, 0, -1))
		return &TimeRange{Start: start, End: end, Label: "yesterday"}
	case strings.Contains(lower, "last week"):
		start, end := weekBounds(now.AddDate(0, 0, -7))
		return &TimeRange{Start: start, End: end, Label: "last week"}
	case strings.Contains(lower, "this week"):
		start, end := weekBounds(now)
		return &TimeRange{Start: start, End: end, Label: "this week"}
	case strings.Contains(lower, "last month"):
		start, end := monthBounds(now.AddDate(0, -1, 0))
		return &TimeRange{Start: start, End: end, Label: "last month"}
	case strings.Contains(lower, "this month"):
		start, end := monthBounds(now)
		return &TimeRange{Start: start, End: end, Label: "this month"}
	case strings.Contains(lower, "last year"):
		start, end := yearBounds(now.AddDate(-1, 0, 0))
		return &TimeRange{Start: start, End: end, Label: "last year"}
	case strings.Contains(lower, "this year"):
		start, end := yearBounds(now)
		return &TimeRange{Start: start, End: end, Label: "this year"}
	}

	if tr := matchRelativeN(now, lower); tr != nil {
		return tr
	}
	if tr := matchMonthName(now, lower); tr != nil {
		return tr
	}
	if tr := matchISODate(lower); tr != nil {
		return tr
	}
	return nil
}

func dayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	end := start.Add(24*time.Hour - time.Nanosecond)
	return start, end
}

// weekBounds returns the ISO week (Monday-Sunday) containing t.
func weekBounds(t time.Time) (time.Time, time.Time) {
	weekday := int(t.Weekday())
	if weekday == 0 { // Sunday
		weekday = 7
	}
	monday := t.AddDate(0, 0, -(weekday - 1))
	start, _ := dayBounds(monday)
	_, end := dayBounds(monday.AddDate(0, 0, 6))
	return start, end
}

func monthBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return start, end
}

func yearBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
	end := start.AddDate(1, 0, 0).Add(-time.Nanosecond)
	return start, end
}

var relativeNPattern = regexp.MustCompile(`(?:last\s+(\d+)\s+(day|week|month)s?|(\d+)\s+(day|week|month)s?\s+ago)`)

func matchRelativeN(now time.Time, lower string) *TimeRange {
	m := relativeNPattern.FindStringSubmatch(lower)
	if m == nil {
		return nil
	}
	nStr, unit := m[1], m[2]
	if nStr == "" {
		nStr, unit = m[3], m[4]
	}
	n, err := strconv.Atoi(nStr)
	if err != nil || n <= 0 {
		return nil
	}
	var since time.Time
	switch unit {
	case "day":
		since = now.AddDate(0, 0, -n)
	case "week":
		since = now.AddDate(0, 0, -7*n)
	case "month":
		since = now.AddDate(0, -n, 0)
	}
	start, _ := dayBounds(since)
	_, end := dayBounds(now)
	return &TimeRange{Start: start, End: end, Label: m[0]}
}

var monthNames = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June, "july": time.July,
	"august": time.August, "september": time.September, "october": time.October,
	"november": time.November, "december": time.December,
}

var monthNamePattern = regexp.MustCompile(`\bin\s+(january|february|march|april|may|june|july|august|september|october|november|december)\b`)

func matchMonthName(now time.Time, lower string) *TimeRange {
	m := monthNamePattern.FindStringSubmatch(lower)
	if m == nil {
		return nil
	}
	month := monthNames[m[1]]
	year := now.Year()
	if month > now.Month() {
		year--
	}
	start, end := monthBounds(time.Date(year, month, 1, 0, 0, 0, 0, now.Location()))
	return &TimeRange{Start: start, End: end, Label: "in " + m[1]}
}

var isoDatePattern = regexp.MustCompile(`\bon\s+(\d{4})-(\d{2})-(\d{2})\b`)

func matchISODate(lower string) *TimeRange {
	m := isoDatePattern.FindStringSubmatch(lower)
	if m == nil {
		return nil
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	start, end := dayBounds(t)
	return &TimeRange{Start: start, End: end, Label: "on " + m[1] + "-" + m[2] + "-" + m[3]}
}

func matchesWord(s, word string) bool {
	return regexp.MustCompile(`\b`+word+`\b`).MatchString(s)
}
