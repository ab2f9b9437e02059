// Package youtube pulls channel, upload, video and comment-thread resources
// from the YouTube Data API and records every response as a raw snapshot.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"thirdcoast.systems/tubestats/internal/channelref"
	"thirdcoast.systems/tubestats/internal/rawstore"
)

const (
	// MaxResultsPerPage is the API's page size ceiling.
	MaxResultsPerPage = 50
	// videoBatchSize is how many IDs videos.list accepts per call.
	videoBatchSize = 50
)

// NewService creates the API service on an HTTP client that records raw
// response bodies for snapshots and sends apiKey with every request. Extra
// options (endpoint) are mostly for tests; a WithHTTPClient option would
// bypass recording.
func NewService(ctx context.Context, apiKey string, opts ...option.ClientOption) (*youtube.Service, error) {
	client := &http.Client{Transport: &recordingTransport{base: http.DefaultTransport, apiKey: apiKey}}
	opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)
	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}
	return service, nil
}

// Fetcher drives the API calls for one channel.
type Fetcher struct {
	service          *youtube.Service
	raw              *rawstore.Store
	limiter          *rate.Limiter
	videosCount      int
	commentsPerVideo int
	workers          int
}

type Option func(*Fetcher)

// WithRateLimit caps API calls per second across all workers.
func WithRateLimit(perSecond float64) Option {
	return func(f *Fetcher) {
		if perSecond > 0 {
			f.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

func WithVideosCount(n int) Option {
	return func(f *Fetcher) {
		f.videosCount = n
	}
}

// WithCommentsPerVideo sets the comment thread cap per video; 0 skips
// comment fetching.
func WithCommentsPerVideo(n int) Option {
	return func(f *Fetcher) {
		f.commentsPerVideo = n
	}
}

// WithWorkers bounds concurrent comment fetches.
func WithWorkers(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.workers = n
		}
	}
}

func New(service *youtube.Service, raw *rawstore.Store, opts ...Option) *Fetcher {
	f := &Fetcher{
		service:          service,
		raw:              raw,
		limiter:          rate.NewLimiter(rate.Limit(10), 1),
		videosCount:      100,
		commentsPerVideo: 100,
		workers:          4,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Result summarizes a fetch run.
type Result struct {
	ChannelID    string
	ChannelTitle string
	Videos       int
	Comments     int
	Files        []string
}

// Run fetches the channel, its newest uploads, their details and their
// comment threads, saving each as a snapshot.
func (f *Fetcher) Run(ctx context.Context, channelID string) (Result, error) {
	res := Result{ChannelID: channelID}

	channel, path, err := f.FetchChannel(ctx, channelID)
	if err != nil {
		return res, err
	}
	res.Files = append(res.Files, path)
	if channel.Snippet != nil {
		res.ChannelTitle = channel.Snippet.Title
	}

	if channel.ContentDetails == nil || channel.ContentDetails.RelatedPlaylists == nil ||
		channel.ContentDetails.RelatedPlaylists.Uploads == "" {
		return res, fmt.Errorf("channel %s has no uploads playlist", channelID)
	}
	uploads := channel.ContentDetails.RelatedPlaylists.Uploads

	items, path, err := f.FetchPlaylistItems(ctx, uploads, f.videosCount)
	if err != nil {
		return res, err
	}
	res.Files = append(res.Files, path)

	ids := make([]string, 0, len(items))
	for _, item := range items {
		if item.ContentDetails != nil && item.ContentDetails.VideoId != "" {
			ids = append(ids, item.ContentDetails.VideoId)
		}
	}

	videos, path, err := f.FetchVideos(ctx, ids)
	if err != nil {
		return res, err
	}
	res.Files = append(res.Files, path)
	res.Videos = len(videos)

	if f.commentsPerVideo > 0 {
		counts := make([]int, len(videos))
		paths := make([]string, len(videos))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(f.workers)
		for i, v := range videos {
			g.Go(func() error {
				threads, p, err := f.FetchComments(gctx, v.Id, f.commentsPerVideo)
				if err != nil {
					return err
				}
				counts[i] = len(threads)
				paths[i] = p
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return res, err
		}
		for i := range videos {
			res.Comments += counts[i]
			res.Files = append(res.Files, paths[i])
		}
	}

	slog.Info("Fetch complete", "channel_id", channelID, "videos", res.Videos, "comments", res.Comments)
	return res, nil
}

// ResolveChannel turns a parsed reference into a channel ID, looking handles
// up through channels.list. Lookups are not saved as snapshots.
func (f *Fetcher) ResolveChannel(ctx context.Context, ref channelref.Ref) (string, error) {
	if ref.ID != "" {
		return ref.ID, nil
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return "", err
	}
	resp, err := f.service.Channels.List([]string{"id"}).
		ForHandle(ref.Handle).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("error resolving %s: %w", ref, err)
	}
	if len(resp.Items) == 0 {
		return "", fmt.Errorf("no channel with handle %s", ref)
	}
	return resp.Items[0].Id, nil
}

// FetchChannel saves the channels.list response and returns its first item.
func (f *Fetcher) FetchChannel(ctx context.Context, channelID string) (*youtube.Channel, string, error) {
	ctx, rec := recordPages(ctx)
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, "", err
	}
	resp, err := f.service.Channels.List([]string{"snippet", "contentDetails", "statistics"}).
		Id(channelID).
		Context(ctx).
		Do()
	if err != nil {
		return nil, "", fmt.Errorf("error fetching channel %s: %w", channelID, err)
	}
	if len(resp.Items) == 0 {
		return nil, "", fmt.Errorf("channel with ID %q not found", channelID)
	}

	path, err := f.save(rec, 0, func(payload any) (string, error) {
		return f.raw.SaveChannel(channelID, payload)
	})
	if err != nil {
		return nil, "", err
	}
	return resp.Items[0], path, nil
}

// FetchPlaylistItems pages through a playlist until max items or the last
// page.
func (f *Fetcher) FetchPlaylistItems(ctx context.Context, playlistID string, limit int) ([]*youtube.PlaylistItem, string, error) {
	ctx, rec := recordPages(ctx)
	items := []*youtube.PlaylistItem{}
	pageToken := ""
	for len(items) < limit {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, "", err
		}
		resp, err := f.service.PlaylistItems.List([]string{"snippet", "contentDetails"}).
			PlaylistId(playlistID).
			MaxResults(int64(min(MaxResultsPerPage, limit-len(items)))).
			PageToken(pageToken).
			Context(ctx).
			Do()
		if err != nil {
			return nil, "", fmt.Errorf("error fetching playlist items: %w", err)
		}
		items = append(items, resp.Items...)

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}
	if len(items) > limit {
		items = items[:limit]
	}

	path, err := f.save(rec, limit, func(payload any) (string, error) {
		return f.raw.SavePlaylist(playlistID, payload)
	})
	if err != nil {
		return nil, "", err
	}
	return items, path, nil
}

// FetchVideos requests video details in batches and saves them as one
// snapshot.
func (f *Fetcher) FetchVideos(ctx context.Context, ids []string) ([]*youtube.Video, string, error) {
	ctx, rec := recordPages(ctx)
	videos := []*youtube.Video{}
	for start := 0; start < len(ids); start += videoBatchSize {
		batch := ids[start:min(start+videoBatchSize, len(ids))]
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, "", err
		}
		resp, err := f.service.Videos.List([]string{"snippet", "contentDetails", "statistics"}).
			Id(batch...).
			Context(ctx).
			Do()
		if err != nil {
			return nil, "", fmt.Errorf("error getting video details: %w", err)
		}
		videos = append(videos, resp.Items...)
	}

	path, err := f.save(rec, 0, f.raw.SaveVideos)
	if err != nil {
		return nil, "", err
	}
	return videos, path, nil
}

// FetchComments pages through a video's top-level comment threads. When the
// API refuses (comments disabled, video gone) the threads collected so far
// are saved and no error is returned.
func (f *Fetcher) FetchComments(ctx context.Context, videoID string, limit int) ([]*youtube.CommentThread, string, error) {
	ctx, rec := recordPages(ctx)
	threads := []*youtube.CommentThread{}
	pageToken := ""
	for len(threads) < limit {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, "", err
		}
		resp, err := f.service.CommentThreads.List([]string{"snippet"}).
			VideoId(videoID).
			MaxResults(int64(min(MaxResultsPerPage, limit-len(threads)))).
			PageToken(pageToken).
			Context(ctx).
			Do()
		if err != nil {
			if !commentsUnavailable(err) {
				return nil, "", fmt.Errorf("error fetching comments for %s: %w", videoID, err)
			}
			slog.Warn("could not fetch comments", "video_id", videoID, "error", err)
			break
		}
		threads = append(threads, resp.Items...)

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}
	if len(threads) > limit {
		threads = threads[:limit]
	}

	path, err := f.save(rec, limit, func(payload any) (string, error) {
		return f.raw.SaveComments(videoID, payload)
	})
	if err != nil {
		return nil, "", err
	}
	return threads, path, nil
}

// save writes the recorded response pages through write.
func (f *Fetcher) save(rec *pageRecorder, limit int, write func(payload any) (string, error)) (string, error) {
	payload, err := rec.payload(limit)
	if err != nil {
		return "", err
	}
	return write(payload)
}

func commentsUnavailable(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusForbidden || apiErr.Code == http.StatusNotFound
}
