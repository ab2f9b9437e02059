package normalize

import (
	"strings"
	"time"
)

const (
	timestampLayout = "2006-01-02T15:04:05Z"
	unzonedLayout   = "2006-01-02T15:04:05"
)

// ParseTimestamp parses the API's YYYY-MM-DDThh:mm:ssZ timestamps. A
// sub-second fraction is stripped and the parse retried; a bare date is
// accepted too. When nothing matches it returns now and ok=false so the
// caller can log the substitution.
func ParseTimestamp(text string, now time.Time) (t time.Time, ok bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return now.UTC(), false
	}
	if !strings.Contains(text, "T") {
		if t, err := time.Parse(time.DateOnly, text); err == nil {
			return t, true
		}
		return now.UTC(), false
	}
	text = stripFraction(text)
	if t, err := time.Parse(timestampLayout, text); err == nil {
		return t.Truncate(time.Second), true
	}
	if t, err := time.Parse(unzonedLayout, text); err == nil {
		return t, true
	}
	return now.UTC(), false
}

// stripFraction drops a ".123" run after the seconds field, keeping any
// zone suffix that follows it. time.Parse would otherwise keep the
// nanoseconds even though the layout has none.
func stripFraction(text string) string {
	i := strings.IndexByte(text, '.')
	if i < 0 {
		return text
	}
	j := i + 1
	for j < len(text) && text[j] >= '0' && text[j] <= '9' {
		j++
	}
	return text[:i] + text[j:]
}

// PublishDate is the calendar date of t in UTC.
func PublishDate(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// DaysSince counts whole calendar days between the UTC dates of t and now.
func DaysSince(t, now time.Time) int {
	from := truncateDay(t)
	to := truncateDay(now)
	return int(to.Sub(from).Hours() / 24)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
