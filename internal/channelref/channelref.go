package channelref

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Host aliases that all mean youtube.com.
var youtubeHosts = map[string]struct{}{
	"youtube.com":       {},
	"www.youtube.com":   {},
	"m.youtube.com":     {},
	"music.youtube.com": {},
}

var (
	channelIDPattern = regexp.MustCompile(`^UC[0-9A-Za-z_-]{22}$`)
	handlePattern    = regexp.MustCompile(`^[0-9A-Za-z_.-]{3,30}$`)
)

// Ref identifies a channel either by ID or by @handle. Exactly one is set.
type Ref struct {
	ID     string
	Handle string
}

func (r Ref) String() string {
	if r.ID != "" {
		return r.ID
	}
	return "@" + r.Handle
}

// Parse accepts a bare channel ID (UC...), a bare handle (@name), or a
// channel URL such as https://www.youtube.com/channel/UC... or
// youtube.com/@name?si=x.
func Parse(raw string) (Ref, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Ref{}, errors.New("missing channel")
	}

	if channelIDPattern.MatchString(raw) {
		return Ref{ID: raw}, nil
	}
	if strings.HasPrefix(raw, "@") {
		return parseHandle(raw[1:])
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Ref{}, err
	}
	if u.Scheme == "" {
		u, err = url.Parse("https://" + raw)
		if err != nil {
			return Ref{}, err
		}
	}

	if _, ok := youtubeHosts[normalizeHost(u.Host)]; !ok {
		return Ref{}, fmt.Errorf("not a YouTube channel: %q", raw)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	switch {
	case len(segments) >= 1 && strings.HasPrefix(segments[0], "@"):
		return parseHandle(segments[0][1:])
	case len(segments) >= 2 && segments[0] == "channel":
		if channelIDPattern.MatchString(segments[1]) {
			return Ref{ID: segments[1]}, nil
		}
		return Ref{}, fmt.Errorf("invalid channel ID %q", segments[1])
	}
	return Ref{}, fmt.Errorf("no channel in %q", raw)
}

func parseHandle(h string) (Ref, error) {
	if !handlePattern.MatchString(h) {
		return Ref{}, fmt.Errorf("invalid handle %q", "@"+h)
	}
	return Ref{Handle: h}, nil
}

func normalizeHost(hostport string) string {
	h := strings.TrimSpace(strings.ToLower(hostport))
	if h == "" {
		return ""
	}
	// url.URL.Host may include port.
	if strings.Contains(h, ":") {
		if parsed, err := url.Parse("//" + h); err == nil {
			if parsed.Hostname() != "" {
				h = parsed.Hostname()
			}
		}
	}
	return strings.TrimSuffix(h, ".")
}
