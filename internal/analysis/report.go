package analysis

import (
	"context"

	"golang.org/x/sync/errgroup"

	"thirdcoast.systems/tubestats/internal/model"
)

// ReportOptions tunes the parameterized result sets.
type ReportOptions struct {
	TopN                   int
	Keywords               []string
	KeywordCaseInsensitive bool
}

// DefaultTopN applies when ReportOptions.TopN is not positive.
const DefaultTopN = 10

// Report is the full set of named results handed to the presentation layer.
type Report struct {
	ChannelSummary        ChannelSummary        `json:"channel_summary"`
	TopVideosByViews      []model.Video         `json:"top_videos_by_views"`
	TopVideosByLikes      []model.Video         `json:"top_videos_by_likes"`
	TopVideosByComments   []model.Video         `json:"top_videos_by_comments"`
	TopVideosByEngagement []model.Video         `json:"top_videos_by_engagement"`
	PerformanceByDay      []DayPerformance      `json:"performance_by_day"`
	PerformanceByMonth    []MonthPerformance    `json:"performance_by_month"`
	CategoryPerformance   []CategoryPerformance `json:"category_performance"`
	LengthPerformance     []LengthPerformance   `json:"length_performance"`
	ChannelGrowth         []GrowthPoint         `json:"channel_growth"`
	EngagementMetrics     EngagementMetrics     `json:"engagement_metrics"`
	TopCommenters         []Commenter           `json:"top_commenters"`
	KeywordPerformance    []KeywordPerformance  `json:"keyword_performance"`
}

// ResultNames lists the named result sets in report order.
var ResultNames = []string{
	"channel_summary",
	"top_videos_by_views",
	"top_videos_by_likes",
	"top_videos_by_comments",
	"top_videos_by_engagement",
	"performance_by_day",
	"performance_by_month",
	"category_performance",
	"length_performance",
	"channel_growth",
	"engagement_metrics",
	"top_commenters",
	"keyword_performance",
}

// Result returns one named result set.
func (r *Report) Result(name string) (any, bool) {
	switch name {
	case "channel_summary":
		return r.ChannelSummary, true
	case "top_videos_by_views":
		return r.TopVideosByViews, true
	case "top_videos_by_likes":
		return r.TopVideosByLikes, true
	case "top_videos_by_comments":
		return r.TopVideosByComments, true
	case "top_videos_by_engagement":
		return r.TopVideosByEngagement, true
	case "performance_by_day":
		return r.PerformanceByDay, true
	case "performance_by_month":
		return r.PerformanceByMonth, true
	case "category_performance":
		return r.CategoryPerformance, true
	case "length_performance":
		return r.LengthPerformance, true
	case "channel_growth":
		return r.ChannelGrowth, true
	case "engagement_metrics":
		return r.EngagementMetrics, true
	case "top_commenters":
		return r.TopCommenters, true
	case "keyword_performance":
		return r.KeywordPerformance, true
	}
	return nil, false
}

// Report computes every result set. The aggregates are independent, so
// they run concurrently; each writes only its own field.
func (s *Session) Report(ctx context.Context, opts ReportOptions) (*Report, error) {
	s.mu.RLock()
	closed := s.closed
	ds := s.ds
	s.mu.RUnlock()
	if closed {
		return nil, ErrSessionClosed
	}

	n := opts.TopN
	if n <= 0 {
		n = DefaultTopN
	}

	r := &Report{}
	g, ctx := errgroup.WithContext(ctx)
	run := func(fn func()) {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn()
			return nil
		})
	}

	run(func() { r.ChannelSummary = SummarizeChannel(ds.Channels) })
	run(func() { r.TopVideosByViews = TopVideos(ds.Videos, MetricViews, n) })
	run(func() { r.TopVideosByLikes = TopVideos(ds.Videos, MetricLikes, n) })
	run(func() { r.TopVideosByComments = TopVideos(ds.Videos, MetricComments, n) })
	run(func() { r.TopVideosByEngagement = TopVideos(ds.Videos, MetricEngagement, n) })
	run(func() { r.PerformanceByDay = PerformanceByDay(ds.Videos) })
	run(func() { r.PerformanceByMonth = PerformanceByMonth(ds.Videos) })
	run(func() { r.CategoryPerformance = PerformanceByCategory(ds.Videos) })
	run(func() { r.LengthPerformance = PerformanceByLength(ds.Videos) })
	run(func() { r.ChannelGrowth = ChannelGrowth(ds.Videos) })
	run(func() { r.EngagementMetrics = Engagement(ds.Videos) })
	run(func() { r.TopCommenters = TopCommenters(ds.Comments, n) })
	run(func() {
		r.KeywordPerformance = PerformanceByKeyword(ds.Videos, opts.Keywords, opts.KeywordCaseInsensitive)
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return r, nil
}
