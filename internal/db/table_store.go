package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"thirdcoast.systems/tubestats/internal/model"
	"thirdcoast.systems/tubestats/internal/tables"
)

var (
	channelColumns = []string{
		"channel_id", "channel_title", "channel_description", "custom_url", "published_at",
		"country", "view_count", "subscriber_count", "video_count", "uploads_playlist_id",
	}
	videoColumns = []string{
		"position", "video_id", "channel_id", "title", "description", "published_at", "publish_date",
		"category_id", "category_name", "duration", "duration_seconds", "tags", "view_count",
		"like_count", "favorite_count", "comment_count", "engagement_rate", "days_since_published",
	}
	commentColumns = []string{
		"position", "comment_id", "video_id", "author_name", "author_channel_id", "text",
		"published_at", "updated_at", "like_count",
	}
	denormalizedColumns = append(append([]string{}, videoColumns...),
		"channel_title", "subscriber_count", "actual_comment_count")
)

// TableStore keeps the transformed tables in postgres. Row order is kept in
// a position column so loads return rows in the order they were written.
type TableStore struct {
	db *DatabaseConnection
}

var _ tables.Store = (*TableStore)(nil)

func NewTableStore(db *DatabaseConnection) *TableStore {
	return &TableStore{db: db}
}

// Replace truncates and reloads every table in a single transaction.
func (s *TableStore) Replace(ctx context.Context, ds *model.Dataset, manifest tables.Manifest) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `TRUNCATE channels, videos, comments, denormalized_videos, table_manifest`); err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"channels"}, channelColumns,
		pgx.CopyFromSlice(len(ds.Channels), func(i int) ([]any, error) {
			c := ds.Channels[i]
			return []any{
				c.ChannelID, c.ChannelTitle, c.ChannelDescription, c.CustomURL, utcPtr(c.PublishedAt),
				c.Country, c.ViewCount, c.SubscriberCount, c.VideoCount, c.UploadsPlaylistID,
			}, nil
		})); err != nil {
		return fmt.Errorf("copy channels: %w", err)
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"videos"}, videoColumns,
		pgx.CopyFromSlice(len(ds.Videos), func(i int) ([]any, error) {
			return videoValues(i, ds.Videos[i]), nil
		})); err != nil {
		return fmt.Errorf("copy videos: %w", err)
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"comments"}, commentColumns,
		pgx.CopyFromSlice(len(ds.Comments), func(i int) ([]any, error) {
			c := ds.Comments[i]
			return []any{
				i, c.CommentID, c.VideoID, c.AuthorName, c.AuthorChannelID, c.Text,
				c.PublishedAt.UTC(), c.UpdatedAt.UTC(), c.LikeCount,
			}, nil
		})); err != nil {
		return fmt.Errorf("copy comments: %w", err)
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"denormalized_videos"}, denormalizedColumns,
		pgx.CopyFromSlice(len(ds.Denormalized), func(i int) ([]any, error) {
			d := ds.Denormalized[i]
			return append(videoValues(i, d.Video), d.ChannelTitle, d.SubscriberCount, d.ActualCommentCount), nil
		})); err != nil {
		return fmt.Errorf("copy denormalized videos: %w", err)
	}

	rows, err := json.Marshal(manifest.Rows)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO table_manifest (run_id, row_counts) VALUES ($1, $2)`, manifest.RunID, rows); err != nil {
		return fmt.Errorf("insert manifest: %w", err)
	}

	return tx.Commit(ctx)
}

// Load reads every table back. A database that has never received a
// transform run reports tables.ErrNoTable.
func (s *TableStore) Load(ctx context.Context) (*model.Dataset, error) {
	if _, err := s.Manifest(ctx); err != nil {
		return nil, err
	}

	ds := &model.Dataset{}
	var err error

	if ds.Channels, err = query(ctx, s, `SELECT `+columnList(channelColumns)+` FROM channels ORDER BY channel_id`, scanChannel); err != nil {
		return nil, err
	}
	if ds.Videos, err = query(ctx, s, `SELECT `+columnList(videoColumns[1:])+` FROM videos ORDER BY position`, scanVideo); err != nil {
		return nil, err
	}
	if ds.Comments, err = query(ctx, s, `SELECT `+columnList(commentColumns[1:])+` FROM comments ORDER BY position`, scanComment); err != nil {
		return nil, err
	}
	if ds.Denormalized, err = query(ctx, s, `SELECT `+columnList(denormalizedColumns[1:])+` FROM denormalized_videos ORDER BY position`, scanDenormalized); err != nil {
		return nil, err
	}
	return ds, nil
}

// Manifest returns the manifest of the most recent Replace.
func (s *TableStore) Manifest(ctx context.Context) (tables.Manifest, error) {
	var m tables.Manifest
	var rows []byte
	err := s.db.QueryRow(ctx, `SELECT run_id, row_counts FROM table_manifest ORDER BY written_at DESC LIMIT 1`).Scan(&m.RunID, &rows)
	if errors.Is(err, pgx.ErrNoRows) || IsUndefinedTableErr(err) {
		return m, fmt.Errorf("%w: table_manifest", tables.ErrNoTable)
	}
	if err != nil {
		return m, fmt.Errorf("read manifest: %w", err)
	}
	if err := json.Unmarshal(rows, &m.Rows); err != nil {
		return m, fmt.Errorf("decode manifest: %w", err)
	}
	return m, nil
}

func query[T any](ctx context.Context, s *TableStore, sql string, scan func(pgx.CollectableRow) (T, error)) ([]T, error) {
	rows, err := s.db.Query(ctx, sql)
	if err != nil {
		if IsUndefinedTableErr(err) {
			return nil, fmt.Errorf("%w: %v", tables.ErrNoTable, err)
		}
		return nil, err
	}
	out, err := pgx.CollectRows(rows, scan)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func videoValues(pos int, v model.Video) []any {
	tags := v.Tags
	if tags == nil {
		tags = []string{}
	}
	return []any{
		pos, v.VideoID, v.ChannelID, v.Title, v.Description, v.PublishedAt.UTC(), v.PublishDate,
		v.CategoryID, v.CategoryName, v.Duration, v.DurationSeconds, tags, v.ViewCount,
		v.LikeCount, v.FavoriteCount, v.CommentCount, v.EngagementRate, v.DaysSincePublished,
	}
}

func videoTargets(v *model.Video) []any {
	return []any{
		&v.VideoID, &v.ChannelID, &v.Title, &v.Description, &v.PublishedAt, &v.PublishDate,
		&v.CategoryID, &v.CategoryName, &v.Duration, &v.DurationSeconds, &v.Tags, &v.ViewCount,
		&v.LikeCount, &v.FavoriteCount, &v.CommentCount, &v.EngagementRate, &v.DaysSincePublished,
	}
}

func scanChannel(row pgx.CollectableRow) (model.Channel, error) {
	var c model.Channel
	err := row.Scan(
		&c.ChannelID, &c.ChannelTitle, &c.ChannelDescription, &c.CustomURL, &c.PublishedAt,
		&c.Country, &c.ViewCount, &c.SubscriberCount, &c.VideoCount, &c.UploadsPlaylistID,
	)
	c.PublishedAt = utcPtr(c.PublishedAt)
	return c, err
}

func scanVideo(row pgx.CollectableRow) (model.Video, error) {
	var v model.Video
	err := row.Scan(videoTargets(&v)...)
	normalizeVideo(&v)
	return v, err
}

func scanComment(row pgx.CollectableRow) (model.Comment, error) {
	var c model.Comment
	err := row.Scan(
		&c.CommentID, &c.VideoID, &c.AuthorName, &c.AuthorChannelID, &c.Text,
		&c.PublishedAt, &c.UpdatedAt, &c.LikeCount,
	)
	c.PublishedAt = c.PublishedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return c, err
}

func scanDenormalized(row pgx.CollectableRow) (model.DenormalizedVideo, error) {
	var d model.DenormalizedVideo
	targets := append(videoTargets(&d.Video), &d.ChannelTitle, &d.SubscriberCount, &d.ActualCommentCount)
	err := row.Scan(targets...)
	normalizeVideo(&d.Video)
	return d, err
}

func normalizeVideo(v *model.Video) {
	v.PublishedAt = v.PublishedAt.UTC()
	if v.Tags == nil {
		v.Tags = []string{}
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func columnList(cols []string) string {
	return strings.Join(cols, ", ")
}
