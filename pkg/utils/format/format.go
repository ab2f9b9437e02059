package format

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// Count formats a nullable counter with thousands separators. Returns "n/a"
// for nil.
func Count(n *int64) string {
	if n == nil {
		return "n/a"
	}
	return humanize.Comma(*n)
}

// Number formats a count with SI suffixes for display (e.g. 1500 → "1.5 k").
func Number(n int64) string {
	if n < 1000 && n > -1000 {
		return humanize.Comma(n)
	}
	return humanize.SIWithDigits(float64(n), 1, "")
}

// Decimal formats a mean with thousands separators and two decimals.
func Decimal(f float64) string {
	return humanize.CommafWithDigits(f, 2)
}

// Percent formats an engagement rate (e.g. 4.25 → "4.25%").
func Percent(f float64) string {
	return fmt.Sprintf("%.2f%%", f)
}

// Truncate returns s truncated to max characters with "..." suffix.
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

// Age formats a point in time relative to now (e.g. "3 months ago").
func Age(t time.Time, now time.Time) string {
	return humanize.RelTime(t, now, "ago", "from now")
}

// Elapsed formats a command's wall time, e.g. "850ms", "3.2s", "2m05s".
func Elapsed(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	d = d.Round(time.Second)
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}
