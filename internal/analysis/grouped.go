package analysis

import (
	"sort"
	"time"

	"thirdcoast.systems/tubestats/internal/model"
)

var weekdayLabels = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

type DayPerformance struct {
	DayOfWeek string `json:"day_of_week"`
	Stats
}

type MonthPerformance struct {
	YearMonth string `json:"year_month"`
	Stats
}

type CategoryPerformance struct {
	CategoryName string `json:"category_name"`
	Stats
	TotalViews int64 `json:"total_views"`
}

type LengthPerformance struct {
	DurationCategory string `json:"duration_category"`
	Stats
}

// Length buckets, shortest first.
const (
	BucketUnderMinute = "< 1 min"
	BucketOneToFive   = "1-5 mins"
	BucketFiveToTen   = "5-10 mins"
	BucketTenToTwenty = "10-20 mins"
	BucketOverTwenty  = "> 20 mins"
)

var lengthBuckets = []string{BucketUnderMinute, BucketOneToFive, BucketFiveToTen, BucketTenToTwenty, BucketOverTwenty}

// LengthBucket assigns a duration to its half-open bucket.
func LengthBucket(seconds int) string {
	switch {
	case seconds < 60:
		return BucketUnderMinute
	case seconds < 300:
		return BucketOneToFive
	case seconds < 600:
		return BucketFiveToTen
	case seconds < 1200:
		return BucketTenToTwenty
	default:
		return BucketOverTwenty
	}
}

// Weekday returns the Mon..Sun label of the video's publish date.
func Weekday(v model.Video) string {
	// time.Weekday counts from Sunday
	return weekdayLabels[(int(v.PublishedAt.UTC().Weekday())+6)%7]
}

// YearMonth returns the YYYY-MM bucket of the video's publish date.
func YearMonth(v model.Video) string {
	return v.PublishedAt.UTC().Format("2006-01")
}

// PerformanceByDay groups by weekday, ordered Mon..Sun. Days without
// videos are absent.
func PerformanceByDay(videos []model.Video) []DayPerformance {
	_, groups := groupVideos(videos, Weekday)
	out := []DayPerformance{}
	for _, day := range weekdayLabels {
		if acc, ok := groups[day]; ok {
			out = append(out, DayPerformance{DayOfWeek: day, Stats: acc.stats()})
		}
	}
	return out
}

// PerformanceByMonth groups by year-month in chronological order.
func PerformanceByMonth(videos []model.Video) []MonthPerformance {
	months, groups := groupVideos(videos, YearMonth)
	sort.Strings(months)
	out := make([]MonthPerformance, 0, len(months))
	for _, m := range months {
		out = append(out, MonthPerformance{YearMonth: m, Stats: groups[m].stats()})
	}
	return out
}

// PerformanceByCategory groups by category name, highest total views first.
func PerformanceByCategory(videos []model.Video) []CategoryPerformance {
	totals := make(map[string]int64)
	for _, v := range videos {
		totals[v.CategoryName] += model.Value(v.ViewCount)
	}

	names, groups := groupVideos(videos, func(v model.Video) string { return v.CategoryName })
	out := make([]CategoryPerformance, 0, len(names))
	for _, name := range names {
		out = append(out, CategoryPerformance{CategoryName: name, Stats: groups[name].stats(), TotalViews: totals[name]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TotalViews != out[j].TotalViews {
			return out[i].TotalViews > out[j].TotalViews
		}
		return out[i].CategoryName < out[j].CategoryName
	})
	return out
}

// PerformanceByLength groups by length bucket, shortest bucket first. Empty
// buckets are absent.
func PerformanceByLength(videos []model.Video) []LengthPerformance {
	_, groups := groupVideos(videos, func(v model.Video) string { return LengthBucket(v.DurationSeconds) })
	out := []LengthPerformance{}
	for _, b := range lengthBuckets {
		if acc, ok := groups[b]; ok {
			out = append(out, LengthPerformance{DurationCategory: b, Stats: acc.stats()})
		}
	}
	return out
}

// GrowthPoint is one month of uploads with running totals up to and
// including that month.
type GrowthPoint struct {
	YearMonth       string `json:"year_month"`
	VideosPublished int    `json:"videos_published"`
	ViewsInMonth    int64  `json:"views_in_month"`
	LikesInMonth    int64  `json:"likes_in_month"`
	CommentsInMonth int64  `json:"comments_in_month"`
	TotalVideos     int    `json:"total_videos"`
	TotalViews      int64  `json:"total_views"`
	TotalLikes      int64  `json:"total_likes"`
	TotalComments   int64  `json:"total_comments"`
}

// ChannelGrowth returns per-month deltas and cumulative sums in
// chronological order.
func ChannelGrowth(videos []model.Video) []GrowthPoint {
	byMonth := make(map[string]*GrowthPoint)
	var months []string
	for _, v := range videos {
		m := YearMonth(v)
		p, ok := byMonth[m]
		if !ok {
			p = &GrowthPoint{YearMonth: m}
			byMonth[m] = p
			months = append(months, m)
		}
		p.VideosPublished++
		p.ViewsInMonth += model.Value(v.ViewCount)
		p.LikesInMonth += model.Value(v.LikeCount)
		p.CommentsInMonth += model.Value(v.CommentCount)
	}
	sort.Strings(months)

	out := make([]GrowthPoint, 0, len(months))
	var running GrowthPoint
	for _, m := range months {
		p := *byMonth[m]
		running.TotalVideos += p.VideosPublished
		running.TotalViews += p.ViewsInMonth
		running.TotalLikes += p.LikesInMonth
		running.TotalComments += p.CommentsInMonth
		p.TotalVideos = running.TotalVideos
		p.TotalViews = running.TotalViews
		p.TotalLikes = running.TotalLikes
		p.TotalComments = running.TotalComments
		out = append(out, p)
	}
	return out
}

// ChannelSummary is the single channel row as presented to consumers.
type ChannelSummary struct {
	ChannelID       string     `json:"channel_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	CustomURL       string     `json:"custom_url"`
	PublishedAt     *time.Time `json:"published_at"`
	Country         string     `json:"country"`
	ViewCount       *int64     `json:"view_count"`
	SubscriberCount *int64     `json:"subscriber_count"`
	VideoCount      *int64     `json:"video_count"`
}

// SummarizeChannel returns the first channel row, or a zero record.
func SummarizeChannel(channels []model.Channel) ChannelSummary {
	if len(channels) == 0 {
		return ChannelSummary{}
	}
	c := channels[0]
	return ChannelSummary{
		ChannelID:       c.ChannelID,
		Title:           c.ChannelTitle,
		Description:     c.ChannelDescription,
		CustomURL:       c.CustomURL,
		PublishedAt:     c.PublishedAt,
		Country:         c.Country,
		ViewCount:       c.ViewCount,
		SubscriberCount: c.SubscriberCount,
		VideoCount:      c.VideoCount,
	}
}

// EngagementMetrics is the whole-table aggregate.
type EngagementMetrics struct {
	AvgViews         float64 `json:"avg_views"`
	AvgLikes         float64 `json:"avg_likes"`
	AvgComments      float64 `json:"avg_comments"`
	AvgEngagement    float64 `json:"avg_engagement"`
	MedianViews      float64 `json:"median_views"`
	MedianLikes      float64 `json:"median_likes"`
	MedianComments   float64 `json:"median_comments"`
	MedianEngagement float64 `json:"median_engagement"`
	TotalViews       int64   `json:"total_views"`
	TotalLikes       int64   `json:"total_likes"`
	TotalComments    int64   `json:"total_comments"`
}

// Engagement aggregates every video. No videos gives a zero record.
func Engagement(videos []model.Video) EngagementMetrics {
	s := summarize(videos)
	return EngagementMetrics{
		AvgViews:         s.AvgViews,
		AvgLikes:         s.AvgLikes,
		AvgComments:      s.AvgComments,
		AvgEngagement:    s.AvgEngagement,
		MedianViews:      approxMedian(nonNull(videos, func(v model.Video) *int64 { return v.ViewCount })),
		MedianLikes:      approxMedian(nonNull(videos, func(v model.Video) *int64 { return v.LikeCount })),
		MedianComments:   approxMedian(nonNull(videos, func(v model.Video) *int64 { return v.CommentCount })),
		MedianEngagement: approxMedian(engagementRates(videos)),
		TotalViews:       sumCounts(videos, func(v model.Video) *int64 { return v.ViewCount }),
		TotalLikes:       sumCounts(videos, func(v model.Video) *int64 { return v.LikeCount }),
		TotalComments:    sumCounts(videos, func(v model.Video) *int64 { return v.CommentCount }),
	}
}

func nonNull(videos []model.Video, field func(model.Video) *int64) []float64 {
	out := make([]float64, 0, len(videos))
	for _, v := range videos {
		if n := field(v); n != nil {
			out = append(out, float64(*n))
		}
	}
	return out
}

func engagementRates(videos []model.Video) []float64 {
	out := make([]float64, 0, len(videos))
	for _, v := range videos {
		out = append(out, v.EngagementRate)
	}
	return out
}
