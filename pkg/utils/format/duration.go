package format

import "fmt"

// Duration converts seconds to "M:SS" or "H:MM:SS" display format.
func Duration(seconds int) string {
	if seconds < 0 {
		return "0:00"
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	sec := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%d:%02d", m, sec)
}
