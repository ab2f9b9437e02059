// Package dataset turns the newest raw snapshots into the persisted tables.
package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"thirdcoast.systems/tubestats/internal/extract"
	"thirdcoast.systems/tubestats/internal/metrics"
	"thirdcoast.systems/tubestats/internal/model"
	"thirdcoast.systems/tubestats/internal/rawstore"
	"thirdcoast.systems/tubestats/internal/tables"
)

// Summary reports what one transform run wrote.
type Summary struct {
	RunID        string `json:"run_id"`
	Channels     int    `json:"channel"`
	Videos       int    `json:"videos"`
	Comments     int    `json:"comments"`
	Denormalized int    `json:"denormalized"`
}

// Rows is the per-table row count recorded in the manifest.
func (s Summary) Rows() map[string]int {
	return map[string]int{
		tables.ChannelTable:      s.Channels,
		tables.VideoTable:        s.Videos,
		tables.CommentTable:      s.Comments,
		tables.DenormalizedTable: s.Denormalized,
	}
}

// Builder runs a transform: extract every resource, join, persist.
type Builder struct {
	raw       *rawstore.Store
	extractor *extract.Extractor
	out       tables.Writer
	workers   int
	newRunID  func() string
}

type Option func(*Builder)

// WithWorkers bounds how many comment snapshots are decoded at once.
func WithWorkers(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithRunID overrides run ID generation.
func WithRunID(fn func() string) Option {
	return func(b *Builder) {
		b.newRunID = fn
	}
}

func NewBuilder(raw *rawstore.Store, extractor *extract.Extractor, out tables.Writer, opts ...Option) *Builder {
	b := &Builder{
		raw:       raw,
		extractor: extractor,
		out:       out,
		workers:   runtime.GOMAXPROCS(0),
		newRunID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build loads the newest snapshots and replaces every table. A missing or
// undecodable channel or video snapshot aborts the run before anything is
// written.
func (b *Builder) Build(ctx context.Context) (Summary, error) {
	start := time.Now()
	summary, err := b.build(ctx)
	metrics.TransformDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.TransformRuns.WithLabelValues("failed").Inc()
		return Summary{}, err
	}
	metrics.TransformRuns.WithLabelValues("succeeded").Inc()
	return summary, nil
}

func (b *Builder) build(ctx context.Context) (Summary, error) {
	runID := b.newRunID()
	log := slog.With("run_id", runID)

	channels, err := loadRequired(b.raw, rawstore.ChannelPattern, b.extractor.Channels)
	if err != nil {
		return Summary{}, err
	}
	videos, err := loadRequired(b.raw, rawstore.VideosPattern, b.extractor.Videos)
	if err != nil {
		return Summary{}, err
	}
	comments, err := b.loadComments(ctx)
	if err != nil {
		return Summary{}, err
	}

	ds := &model.Dataset{
		Channels:     channels,
		Videos:       videos,
		Comments:     comments,
		Denormalized: Denormalize(channels, videos, comments),
	}

	summary := Summary{
		RunID:        runID,
		Channels:     len(ds.Channels),
		Videos:       len(ds.Videos),
		Comments:     len(ds.Comments),
		Denormalized: len(ds.Denormalized),
	}

	if err := b.out.Replace(ctx, ds, tables.Manifest{RunID: runID, Rows: summary.Rows()}); err != nil {
		return Summary{}, fmt.Errorf("persist tables: %w", err)
	}

	log.Info("Transform complete",
		"channels", summary.Channels,
		"videos", summary.Videos,
		"comments", summary.Comments,
		"denormalized", summary.Denormalized,
	)
	return summary, nil
}

func loadRequired[T any](raw *rawstore.Store, pattern string, decode func([]byte, string) ([]T, error)) ([]T, error) {
	snap, err := raw.Latest(pattern)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(snap.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", snap.Path, err)
	}
	slog.Debug("Loading snapshot", "file", snap.Name)
	return decode(data, snap.Name)
}

// loadComments decodes the newest snapshot of each video concurrently. A
// file that cannot be read or decoded is skipped with a warning.
func (b *Builder) loadComments(ctx context.Context) ([]model.Comment, error) {
	snaps, err := b.raw.CommentSnapshots()
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		slog.Info("No comment snapshots found, continuing with an empty comment table")
		return []model.Comment{}, nil
	}

	results := make([][]model.Comment, len(snaps))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i, snap := range snaps {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(snap.Path)
			if err != nil {
				slog.Warn("skipping unreadable comment snapshot", "file", snap.Name, "error", err)
				return nil
			}
			rows, err := b.extractor.Comments(data, snap.VideoID, snap.Name)
			if err != nil {
				slog.Warn("skipping corrupt comment snapshot", "file", snap.Name, "error", err)
				metrics.RecoveredRecords.WithLabelValues("comment_snapshot").Inc()
				return nil
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := []model.Comment{}
	for _, rows := range results {
		out = append(out, rows...)
	}
	return out, nil
}

// Denormalize left-joins every video with its channel and the number of
// comment rows referencing it. Output order follows videos.
func Denormalize(channels []model.Channel, videos []model.Video, comments []model.Comment) []model.DenormalizedVideo {
	byID := make(map[string]model.Channel, len(channels))
	for _, c := range channels {
		if _, ok := byID[c.ChannelID]; !ok {
			byID[c.ChannelID] = c
		}
	}

	counts := make(map[string]int64)
	for _, c := range comments {
		counts[c.VideoID]++
	}

	out := make([]model.DenormalizedVideo, 0, len(videos))
	for _, v := range videos {
		row := model.DenormalizedVideo{Video: v, ActualCommentCount: counts[v.VideoID]}
		if c, ok := byID[v.ChannelID]; ok {
			title := c.ChannelTitle
			row.ChannelTitle = &title
			row.SubscriberCount = c.SubscriberCount
		}
		out = append(out, row)
	}
	return out
}
