package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"thirdcoast.systems/tubestats/internal/channelref"
	"thirdcoast.systems/tubestats/internal/rawstore"
	"thirdcoast.systems/tubestats/internal/youtube"
	"thirdcoast.systems/tubestats/pkg/utils/format"
)

func newFetchCmd(c *cli) *cobra.Command {
	var (
		channelID string
		videos    int
		comments  int
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Snapshot the channel, its uploads and their comments",
		Long:  "Fetch the channel, its newest uploads and their comment threads from the YouTube Data API and save each response under the raw directory.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.cfg
			if cmd.Flags().Changed("channel") {
				cfg.ChannelID = channelID
			}
			if cmd.Flags().Changed("videos") {
				cfg.VideosCount = videos
			}
			if cmd.Flags().Changed("comments") {
				cfg.CommentsPerVideo = comments
			}
			if cfg.YouTubeAPIKey == "" {
				return fmt.Errorf("missing YouTube API key: set YOUTUBE_API_KEY")
			}
			if cfg.ChannelID == "" {
				return fmt.Errorf("missing channel: set CHANNEL_ID or pass --channel")
			}
			ref, err := channelref.Parse(cfg.ChannelID)
			if err != nil {
				return fmt.Errorf("invalid channel: %w", err)
			}

			ctx := cmd.Context()
			service, err := youtube.NewService(ctx, cfg.YouTubeAPIKey)
			if err != nil {
				return err
			}

			fetcher := youtube.New(service, rawstore.New(cfg.RawDir),
				youtube.WithRateLimit(cfg.APIRequestsPerSecond),
				youtube.WithVideosCount(cfg.VideosCount),
				youtube.WithCommentsPerVideo(cfg.CommentsPerVideo),
			)

			id, err := fetcher.ResolveChannel(ctx, ref)
			if err != nil {
				return err
			}

			start := time.Now()
			slog.Info("Fetching channel", "channel", ref.String(), "channel_id", id, "videos", cfg.VideosCount)
			res, err := fetcher.Run(ctx, id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Channel: %s (%s)\n", res.ChannelTitle, res.ChannelID)
			fmt.Fprintf(out, "Fetched %d videos and %d comments into %s in %s\n",
				res.Videos, res.Comments, cfg.RawDir, format.Elapsed(time.Since(start)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&channelID, "channel", "c", "", "Channel ID, URL or @handle to fetch (CHANNEL_ID)")
	cmd.Flags().IntVarP(&videos, "videos", "n", 0, "Maximum number of uploads to fetch (VIDEOS_COUNT)")
	cmd.Flags().IntVar(&comments, "comments", 0, "Maximum comment threads per video, 0 to skip (COMMENTS_PER_VIDEO)")

	return cmd
}
