package tables

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"thirdcoast.systems/tubestats/internal/model"
)

var denormalizedHeader = []string{
	"video_id", "channel_id", "title", "description", "published_at", "publish_date",
	"category_id", "category_name", "duration", "duration_seconds", "tags",
	"view_count", "like_count", "favorite_count", "comment_count",
	"engagement_rate", "days_since_published",
	"channel_title", "subscriber_count", "actual_comment_count",
}

// EncodeDenormalizedCSV renders the denormalized table with a header row.
// Null counts are empty cells; tags are joined with "|".
func EncodeDenormalizedCSV(rows []model.DenormalizedVideo) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(denormalizedHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rows {
		rec := []string{
			r.VideoID,
			r.ChannelID,
			r.Title,
			r.Description,
			r.PublishedAt.UTC().Format(time.RFC3339),
			r.PublishDate,
			r.CategoryID,
			r.CategoryName,
			r.Duration,
			strconv.Itoa(r.DurationSeconds),
			strings.Join(r.Tags, "|"),
			nullable(r.ViewCount),
			nullable(r.LikeCount),
			nullable(r.FavoriteCount),
			nullable(r.CommentCount),
			strconv.FormatFloat(r.EngagementRate, 'f', -1, 64),
			strconv.Itoa(r.DaysSincePublished),
			derefString(r.ChannelTitle),
			nullable(r.SubscriberCount),
			strconv.FormatInt(r.ActualCommentCount, 10),
		}
		if err := w.Write(rec); err != nil {
			return nil, fmt.Errorf("write csv row %s: %w", r.VideoID, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func nullable(n *int64) string {
	if n == nil {
		return ""
	}
	return strconv.FormatInt(*n, 10)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
