// Package model holds the typed rows produced by the transform stage and
// consumed by the analysis stage.
package model

import "time"

// Channel is one analyzed channel. A dataset carries at most one.
type Channel struct {
	ChannelID          string     `json:"channel_id"`
	ChannelTitle       string     `json:"channel_title"`
	ChannelDescription string     `json:"channel_description"`
	CustomURL          string     `json:"custom_url"`
	PublishedAt        *time.Time `json:"published_at"`
	Country            string     `json:"country"`
	ViewCount          *int64     `json:"view_count"`
	SubscriberCount    *int64     `json:"subscriber_count"`
	VideoCount         *int64     `json:"video_count"`
	UploadsPlaylistID  string     `json:"uploads_playlist_id"`
}

// Video is one uploaded video with its derived columns.
type Video struct {
	VideoID            string    `json:"video_id"`
	ChannelID          string    `json:"channel_id"`
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	PublishedAt        time.Time `json:"published_at"`
	PublishDate        string    `json:"publish_date"`
	CategoryID         string    `json:"category_id"`
	CategoryName       string    `json:"category_name"`
	Duration           string    `json:"duration"`
	DurationSeconds    int       `json:"duration_seconds"`
	Tags               []string  `json:"tags"`
	ViewCount          *int64    `json:"view_count"`
	LikeCount          *int64    `json:"like_count"`
	FavoriteCount      *int64    `json:"favorite_count"`
	CommentCount       *int64    `json:"comment_count"`
	EngagementRate     float64   `json:"engagement_rate"`
	DaysSincePublished int       `json:"days_since_published"`
}

// Comment is one top-level comment thread.
type Comment struct {
	CommentID       string    `json:"comment_id"`
	VideoID         string    `json:"video_id"`
	AuthorName      string    `json:"author_name"`
	AuthorChannelID string    `json:"author_channel_id"`
	Text            string    `json:"text"`
	PublishedAt     time.Time `json:"published_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	LikeCount       *int64    `json:"like_count"`
}

// DenormalizedVideo is a video left-joined with its channel and the number
// of comment rows that reference it.
type DenormalizedVideo struct {
	Video
	ChannelTitle       *string `json:"channel_title"`
	SubscriberCount    *int64  `json:"subscriber_count"`
	ActualCommentCount int64   `json:"actual_comment_count"`
}

// Dataset is the full set of tables written by one transform run.
type Dataset struct {
	Channels     []Channel
	Videos       []Video
	Comments     []Comment
	Denormalized []DenormalizedVideo
}

// Int64 returns a pointer to n. Handy for building rows in tests and fixtures.
func Int64(n int64) *int64 {
	return &n
}

// Value returns the pointed-to count, or 0 when the count is null.
func Value(n *int64) int64 {
	if n == nil {
		return 0
	}
	return *n
}
