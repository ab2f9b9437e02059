// Package rawstore reads and writes the append-only JSON snapshots captured
// from the source API. Every fetch call produces one file named
// <resource>_<key>_<YYYYMMDD_HHMMSS>.json in a single flat directory.
package rawstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrNoSnapshot is returned when no file matches a resource pattern.
var ErrNoSnapshot = errors.New("no snapshot found")

const stampLayout = "20060102_150405"

// Resource naming patterns.
const (
	ChannelPattern  = "channel_*.json"
	PlaylistPattern = "playlist_*.json"
	VideosPattern   = "videos_details_*.json"
	CommentsPattern = "comments_*.json"
)

// Snapshot is one raw file on disk.
type Snapshot struct {
	Path    string
	Name    string
	ModTime time.Time
}

// CommentSnapshot is a comment file together with the video it belongs to.
type CommentSnapshot struct {
	Snapshot
	VideoID string
}

// Store is a directory of raw snapshots.
type Store struct {
	dir string
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used to stamp new snapshot names.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New returns a store rooted at dir. The directory is created lazily on the
// first Save.
func New(dir string, opts ...Option) *Store {
	s := &Store{dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the directory backing the store.
func (s *Store) Dir() string {
	return s.dir
}

// SaveChannel writes a channels response.
func (s *Store) SaveChannel(channelID string, payload any) (string, error) {
	return s.save(fmt.Sprintf("channel_%s_%s.json", channelID, s.stamp()), payload)
}

// SavePlaylist writes the accumulated playlist items of one playlist.
func (s *Store) SavePlaylist(playlistID string, payload any) (string, error) {
	return s.save(fmt.Sprintf("playlist_%s_%s.json", playlistID, s.stamp()), payload)
}

// SaveVideos writes the accumulated video detail items.
func (s *Store) SaveVideos(payload any) (string, error) {
	return s.save(fmt.Sprintf("videos_details_%s.json", s.stamp()), payload)
}

// SaveComments writes the comment threads of one video. The video ID is
// encoded in the file name; the transform stage recovers it from there.
func (s *Store) SaveComments(videoID string, payload any) (string, error) {
	return s.save(fmt.Sprintf("comments_%s_%s.json", videoID, s.stamp()), payload)
}

func (s *Store) stamp() string {
	return s.now().Format(stampLayout)
}

func (s *Store) save(name string, payload any) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create raw dir: %w", err)
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", name, err)
	}

	path := filepath.Join(s.dir, name)
	if err := WriteFileAtomic(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// Latest returns the most recently modified snapshot matching pattern. Ties
// on modification time go to the lexically greatest name, which for stamped
// names is also the newest.
func (s *Store) Latest(pattern string) (Snapshot, error) {
	snaps, err := s.list(pattern)
	if err != nil {
		return Snapshot{}, err
	}
	if len(snaps) == 0 {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrNoSnapshot, filepath.Join(s.dir, pattern))
	}
	return snaps[0], nil
}

// CommentSnapshots returns the newest comment snapshot of every video, in
// video ID order. Names with fewer than three underscore-separated segments
// are skipped.
func (s *Store) CommentSnapshots() ([]CommentSnapshot, error) {
	snaps, err := s.list(CommentsPattern)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(snaps))
	out := make([]CommentSnapshot, 0, len(snaps))
	for _, snap := range snaps {
		videoID, ok := VideoIDFromCommentName(snap.Name)
		if !ok {
			slog.Warn("skipping comment snapshot with unexpected name", "file", snap.Name)
			continue
		}
		// snaps is newest first, so the first hit per video wins
		if _, dup := seen[videoID]; dup {
			continue
		}
		seen[videoID] = struct{}{}
		out = append(out, CommentSnapshot{Snapshot: snap, VideoID: videoID})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].VideoID < out[j].VideoID })
	return out, nil
}

// VideoIDFromCommentName extracts <videoId> from comments_<videoId>_<timestamp>.json.
func VideoIDFromCommentName(name string) (string, bool) {
	parts := strings.Split(filepath.Base(name), "_")
	if len(parts) < 3 || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func (s *Store) list(pattern string) ([]Snapshot, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}

	snaps := make([]Snapshot, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		if info.IsDir() {
			continue
		}
		snaps = append(snaps, Snapshot{Path: p, Name: info.Name(), ModTime: info.ModTime()})
	}

	sort.Slice(snaps, func(i, j int) bool {
		if !snaps[i].ModTime.Equal(snaps[j].ModTime) {
			return snaps[i].ModTime.After(snaps[j].ModTime)
		}
		return snaps[i].Name > snaps[j].Name
	})
	return snaps, nil
}

// WriteFileAtomic writes data next to path and renames it into place, so
// readers observe either the previous file or the complete new one.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close %s: %w", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("chmod %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}
