// Package extract flattens raw channel, video and comment-thread payloads
// into typed rows, applying the normalizations from package normalize.
//
// Per-record problems (bad timestamps, bad durations) are recovered and
// logged; only undecodable documents are returned as errors.
package extract

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"thirdcoast.systems/tubestats/internal/metrics"
	"thirdcoast.systems/tubestats/internal/model"
	"thirdcoast.systems/tubestats/internal/normalize"
)

// Extractor converts raw snapshot documents into rows.
type Extractor struct {
	now func() time.Time
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithClock pins the clock used for days-since-published and for timestamp
// substitution.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) {
		e.now = now
	}
}

// New returns an Extractor using the wall clock unless overridden.
func New(opts ...Option) *Extractor {
	e := &Extractor{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Channels decodes a channels response. The dataset is single-channel, so
// only the first item is kept.
func (e *Extractor) Channels(data []byte, source string) ([]model.Channel, error) {
	var payload channelPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode channel snapshot %s: %w", source, err)
	}
	if len(payload.Items) == 0 {
		return []model.Channel{}, nil
	}
	if len(payload.Items) > 1 {
		slog.Warn("channel snapshot holds more than one channel, keeping the first",
			"file", source, "items", len(payload.Items))
	}

	item := payload.Items[0]
	ch := model.Channel{
		ChannelID:          item.ID,
		ChannelTitle:       item.Snippet.Title,
		ChannelDescription: item.Snippet.Description,
		CustomURL:          item.Snippet.CustomURL,
		Country:            item.Snippet.Country,
		ViewCount:          item.Statistics.ViewCount.ptr(),
		SubscriberCount:    item.Statistics.SubscriberCount.ptr(),
		VideoCount:         item.Statistics.VideoCount.ptr(),
		UploadsPlaylistID:  item.ContentDetails.RelatedPlaylists.Uploads,
	}
	if strings.TrimSpace(item.Snippet.PublishedAt) != "" {
		ts := e.timestamp(item.Snippet.PublishedAt, "channel", item.ID, "published_at", source)
		ch.PublishedAt = &ts
	}

	metrics.RowsExtracted.WithLabelValues("channel").Inc()
	return []model.Channel{ch}, nil
}

// Videos decodes a video details response into one row per item.
func (e *Extractor) Videos(data []byte, source string) ([]model.Video, error) {
	var payload videoPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode video snapshot %s: %w", source, err)
	}

	now := e.now()
	videos := make([]model.Video, 0, len(payload.Items))
	for _, item := range payload.Items {
		publishedAt := e.timestamp(item.Snippet.PublishedAt, "video", item.ID, "published_at", source)

		seconds, err := normalize.ParseDuration(item.ContentDetails.Duration)
		if err != nil {
			slog.Warn("substituting 0 for malformed duration",
				"video_id", item.ID, "duration", item.ContentDetails.Duration, "file", source, "error", err)
			metrics.RecoveredRecords.WithLabelValues("duration").Inc()
			seconds = 0
		}

		tags := item.Snippet.Tags
		if tags == nil {
			tags = []string{}
		}

		v := model.Video{
			VideoID:            item.ID,
			ChannelID:          item.Snippet.ChannelID,
			Title:              item.Snippet.Title,
			Description:        item.Snippet.Description,
			PublishedAt:        publishedAt,
			PublishDate:        normalize.PublishDate(publishedAt),
			CategoryID:         item.Snippet.CategoryID,
			CategoryName:       normalize.CategoryName(item.Snippet.CategoryID),
			Duration:           item.ContentDetails.Duration,
			DurationSeconds:    seconds,
			Tags:               tags,
			ViewCount:          item.Statistics.ViewCount.ptr(),
			LikeCount:          item.Statistics.LikeCount.ptr(),
			FavoriteCount:      item.Statistics.FavoriteCount.ptr(),
			CommentCount:       item.Statistics.CommentCount.ptr(),
			DaysSincePublished: normalize.DaysSince(publishedAt, now),
		}
		v.EngagementRate = normalize.EngagementRate(
			model.Value(v.LikeCount), model.Value(v.CommentCount), model.Value(v.ViewCount))

		videos = append(videos, v)
	}

	metrics.RowsExtracted.WithLabelValues("video").Add(float64(len(videos)))
	return videos, nil
}

// Comments decodes a comment threads response. The owning video comes from
// the snapshot file name, not the payload.
func (e *Extractor) Comments(data []byte, videoID, source string) ([]model.Comment, error) {
	var payload commentThreadPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode comment snapshot %s: %w", source, err)
	}

	comments := make([]model.Comment, 0, len(payload.Items))
	for _, item := range payload.Items {
		s := item.Snippet.TopLevelComment.Snippet
		comments = append(comments, model.Comment{
			CommentID:       item.ID,
			VideoID:         videoID,
			AuthorName:      s.AuthorDisplayName,
			AuthorChannelID: s.AuthorChannelID.Value,
			Text:            s.TextDisplay,
			PublishedAt:     e.timestamp(s.PublishedAt, "comment", item.ID, "published_at", source),
			UpdatedAt:       e.timestamp(s.UpdatedAt, "comment", item.ID, "updated_at", source),
			LikeCount:       s.LikeCount.ptr(),
		})
	}

	metrics.RowsExtracted.WithLabelValues("comment").Add(float64(len(comments)))
	return comments, nil
}

func (e *Extractor) timestamp(raw, kind, id, field, source string) time.Time {
	t, ok := normalize.ParseTimestamp(raw, e.now())
	if !ok {
		slog.Warn("could not parse timestamp, using current time",
			"kind", kind, "id", id, "field", field, "value", raw, "file", source)
		metrics.RecoveredRecords.WithLabelValues("timestamp").Inc()
	}
	return t
}
