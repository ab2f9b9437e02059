// Package normalize converts platform-specific encodings found in raw API
// payloads into plain Go values.
package normalize

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedDuration is returned for duration tokens outside the
// P[nD][T[nH][nM][nS]] grammar.
var ErrMalformedDuration = errors.New("malformed duration")

// ParseDuration converts a compact ISO-8601 duration such as "PT1H30M15S"
// into seconds. Empty input is 0. Components must appear in D, H, M, S order
// and each may appear at most once.
func ParseDuration(text string) (int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, nil
	}
	if text[0] != 'P' {
		return 0, fmt.Errorf("%w: %q", ErrMalformedDuration, text)
	}

	rest := text[1:]
	seconds := 0
	inTime := false
	// rank of the last unit seen; units must strictly increase
	last := 0
	digits := 0
	n := 0

	for i := 0; i < len(rest); i++ {
		ch := rest[i]
		switch {
		case ch >= '0' && ch <= '9':
			n = n*10 + int(ch-'0')
			digits++
			if digits > 9 {
				return 0, fmt.Errorf("%w: %q", ErrMalformedDuration, text)
			}
		case ch == 'T':
			if inTime || digits > 0 {
				return 0, fmt.Errorf("%w: %q", ErrMalformedDuration, text)
			}
			inTime = true
		default:
			rank, mult := unitOf(ch, inTime)
			if rank == 0 || rank <= last || digits == 0 {
				return 0, fmt.Errorf("%w: %q", ErrMalformedDuration, text)
			}
			seconds += n * mult
			last = rank
			n, digits = 0, 0
		}
	}

	// trailing digits without a unit, or a bare "P"/"PT"
	if digits > 0 || last == 0 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedDuration, text)
	}
	return seconds, nil
}

func unitOf(ch byte, inTime bool) (rank, seconds int) {
	if !inTime {
		if ch == 'D' {
			return 1, 86400
		}
		return 0, 0
	}
	switch ch {
	case 'H':
		return 2, 3600
	case 'M':
		return 3, 60
	case 'S':
		return 4, 1
	}
	return 0, 0
}
