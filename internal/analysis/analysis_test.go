package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"thirdcoast.systems/tubestats/internal/model"
	"thirdcoast.systems/tubestats/internal/tables"
)

func video(id string, published time.Time, views int64) model.Video {
	return model.Video{
		VideoID:     id,
		PublishedAt: published,
		PublishDate: published.Format(time.DateOnly),
		ViewCount:   model.Int64(views),
	}
}

// 2024-01-01 is a Monday.
var monday = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

func TestPerformanceByDay_MonWedScenario(t *testing.T) {
	videos := []model.Video{
		video("w2", monday.AddDate(0, 0, 9), 300),
		video("m", monday, 100),
		video("w1", monday.AddDate(0, 0, 2), 200),
	}

	got := PerformanceByDay(videos)
	require.Len(t, got, 2)
	require.Equal(t, "Mon", got[0].DayOfWeek)
	require.Equal(t, 1, got[0].VideoCount)
	require.Equal(t, 100.0, got[0].AvgViews)
	require.Equal(t, "Wed", got[1].DayOfWeek)
	require.Equal(t, 2, got[1].VideoCount)
	require.Equal(t, 250.0, got[1].AvgViews)
}

func TestPerformanceByDay_OrderIsMonToSun(t *testing.T) {
	var videos []model.Video
	for i := 6; i >= 0; i-- {
		videos = append(videos, video("v", monday.AddDate(0, 0, i), 1))
		videos = append(videos, video("v", monday.AddDate(0, 0, i+7), 1))
	}

	got := PerformanceByDay(videos)
	require.Len(t, got, 7)
	for i, want := range []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"} {
		require.Equal(t, want, got[i].DayOfWeek)
		require.Equal(t, 2, got[i].VideoCount)
	}
}

func TestEmptyInputs(t *testing.T) {
	require.Empty(t, PerformanceByDay(nil))
	require.Empty(t, PerformanceByMonth(nil))
	require.Empty(t, PerformanceByCategory(nil))
	require.Empty(t, PerformanceByLength(nil))
	require.Empty(t, ChannelGrowth(nil))
	require.Empty(t, TopVideos(nil, MetricViews, 10))
	require.Empty(t, TopCommenters(nil, 10))
	require.Empty(t, PerformanceByKeyword(nil, []string{"a"}, false))
	require.Equal(t, EngagementMetrics{}, Engagement(nil))
	require.Equal(t, ChannelSummary{}, SummarizeChannel(nil))
}

func TestStats_MeansIgnoreNullsAndRound(t *testing.T) {
	videos := []model.Video{
		{ViewCount: model.Int64(1), LikeCount: model.Int64(1), EngagementRate: 1.005},
		{ViewCount: model.Int64(2), EngagementRate: 2},
		{ViewCount: model.Int64(2), EngagementRate: 0},
	}
	s := summarize(videos)
	require.Equal(t, 3, s.VideoCount)
	require.Equal(t, 1.67, s.AvgViews)
	require.Equal(t, 1.0, s.AvgLikes, "null likes are excluded")
	require.Equal(t, 0.0, s.AvgComments)
	require.Equal(t, 1.0, s.AvgEngagement)
}

func TestLengthBucket_HalfOpenEdges(t *testing.T) {
	cases := map[int]string{
		0: BucketUnderMinute, 59: BucketUnderMinute,
		60: BucketOneToFive, 299: BucketOneToFive,
		300: BucketFiveToTen, 599: BucketFiveToTen,
		600: BucketTenToTwenty, 1199: BucketTenToTwenty,
		1200: BucketOverTwenty, 99999: BucketOverTwenty,
	}
	for seconds, want := range cases {
		require.Equal(t, want, LengthBucket(seconds), seconds)
	}
}

func TestPerformanceByLength_PartitionsEveryVideo(t *testing.T) {
	var videos []model.Video
	for _, s := range []int{1200, 5, 61, 301, 601, 3000, 10} {
		videos = append(videos, model.Video{DurationSeconds: s})
	}

	got := PerformanceByLength(videos)
	total := 0
	var order []string
	for _, b := range got {
		total += b.VideoCount
		order = append(order, b.DurationCategory)
	}
	require.Equal(t, len(videos), total)
	require.Equal(t, []string{BucketUnderMinute, BucketOneToFive, BucketFiveToTen, BucketTenToTwenty, BucketOverTwenty}, order)
	require.Equal(t, 2, got[0].VideoCount)
	require.Equal(t, 2, got[4].VideoCount)
}

func TestPerformanceByMonth_Chronological(t *testing.T) {
	videos := []model.Video{
		video("a", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), 10),
		video("b", time.Date(2023, 12, 5, 0, 0, 0, 0, time.UTC), 20),
		video("c", time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC), 30),
	}
	got := PerformanceByMonth(videos)
	require.Len(t, got, 2)
	require.Equal(t, "2023-12", got[0].YearMonth)
	require.Equal(t, "2024-03", got[1].YearMonth)
	require.Equal(t, 20.0, got[1].AvgViews)
}

func TestPerformanceByCategory_SortedByTotalViews(t *testing.T) {
	videos := []model.Video{
		{CategoryName: "Education", ViewCount: model.Int64(10)},
		{CategoryName: "Gaming", ViewCount: model.Int64(50)},
		{CategoryName: "Education", ViewCount: model.Int64(30)},
		{CategoryName: "Music", ViewCount: model.Int64(60)},
		{CategoryName: "Music"},
	}
	got := PerformanceByCategory(videos)
	require.Len(t, got, 3)
	require.Equal(t, "Music", got[0].CategoryName)
	require.Equal(t, int64(60), got[0].TotalViews)
	require.Equal(t, 60.0, got[0].AvgViews)
	require.Equal(t, "Gaming", got[1].CategoryName)
	require.Equal(t, "Education", got[2].CategoryName)
	require.Equal(t, int64(40), got[2].TotalViews)
	require.Equal(t, 2, got[2].VideoCount)
}

func TestChannelGrowth_RunningTotalsNonDecreasing(t *testing.T) {
	videos := []model.Video{
		{PublishedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), ViewCount: model.Int64(5), LikeCount: model.Int64(1)},
		{PublishedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), ViewCount: model.Int64(10), CommentCount: model.Int64(2)},
		{PublishedAt: time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC)},
		{PublishedAt: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), ViewCount: model.Int64(1)},
	}
	got := ChannelGrowth(videos)
	require.Len(t, got, 3)
	require.Equal(t, GrowthPoint{
		YearMonth: "2024-01", VideosPublished: 2, ViewsInMonth: 10, CommentsInMonth: 2,
		TotalVideos: 2, TotalViews: 10, TotalComments: 2,
	}, got[0])
	require.Equal(t, 4, got[2].TotalVideos)
	require.Equal(t, int64(16), got[2].TotalViews)

	for i := 1; i < len(got); i++ {
		require.GreaterOrEqual(t, got[i].TotalVideos, got[i-1].TotalVideos)
		require.GreaterOrEqual(t, got[i].TotalViews, got[i-1].TotalViews)
		require.GreaterOrEqual(t, got[i].TotalLikes, got[i-1].TotalLikes)
		require.GreaterOrEqual(t, got[i].TotalComments, got[i-1].TotalComments)
	}
}

func TestEngagement_MeansMediansTotals(t *testing.T) {
	videos := []model.Video{
		{ViewCount: model.Int64(100), LikeCount: model.Int64(10), CommentCount: model.Int64(1), EngagementRate: 11},
		{ViewCount: model.Int64(400), LikeCount: model.Int64(20), EngagementRate: 5},
		{ViewCount: model.Int64(200), LikeCount: model.Int64(30), CommentCount: model.Int64(3), EngagementRate: 16.5},
		{ViewCount: model.Int64(300), EngagementRate: 0},
	}
	m := Engagement(videos)
	require.Equal(t, 250.0, m.AvgViews)
	require.Equal(t, 20.0, m.AvgLikes)
	require.Equal(t, 2.0, m.AvgComments)
	require.Equal(t, 8.13, m.AvgEngagement)
	require.Equal(t, 200.0, m.MedianViews, "lower median for even counts")
	require.Equal(t, 20.0, m.MedianLikes)
	require.Equal(t, 1.0, m.MedianComments)
	require.Equal(t, 5.0, m.MedianEngagement)
	require.Equal(t, int64(1000), m.TotalViews)
	require.Equal(t, int64(60), m.TotalLikes)
	require.Equal(t, int64(4), m.TotalComments)
}

func TestTopVideos_OrderTiesAndNulls(t *testing.T) {
	videos := []model.Video{
		{VideoID: "null"},
		{VideoID: "a", ViewCount: model.Int64(5)},
		{VideoID: "b", ViewCount: model.Int64(9)},
		{VideoID: "c", ViewCount: model.Int64(5)},
	}
	got := TopVideos(videos, MetricViews, 10)
	ids := make([]string, 0, len(got))
	for _, v := range got {
		ids = append(ids, v.VideoID)
	}
	require.Equal(t, []string{"b", "a", "c", "null"}, ids)

	require.Len(t, TopVideos(videos, MetricViews, 2), 2)
	require.Equal(t, "null", videos[0].VideoID, "input is not reordered")
}

func TestParseMetric(t *testing.T) {
	m, err := ParseMetric("view_count")
	require.NoError(t, err)
	require.Equal(t, MetricViews, m)

	m, err = ParseMetric("Engagement")
	require.NoError(t, err)
	require.Equal(t, MetricEngagement, m)

	_, err = ParseMetric("dislikes")
	require.Error(t, err)
}

func TestTopCommenters(t *testing.T) {
	comments := []model.Comment{
		{AuthorName: "bob", AuthorChannelID: "UCb", LikeCount: model.Int64(1)},
		{AuthorName: "alice", AuthorChannelID: "UCa", LikeCount: model.Int64(2)},
		{AuthorName: "alice", AuthorChannelID: "UCa"},
		{AuthorName: "alice", AuthorChannelID: "UCother"},
		{AuthorName: "carol", AuthorChannelID: "UCc", LikeCount: model.Int64(7)},
	}
	got := TopCommenters(comments, 3)
	require.Equal(t, []Commenter{
		{AuthorName: "alice", AuthorChannelID: "UCa", CommentCount: 2, TotalLikes: 2},
		{AuthorName: "bob", AuthorChannelID: "UCb", CommentCount: 1, TotalLikes: 1},
		{AuthorName: "alice", AuthorChannelID: "UCother", CommentCount: 1},
	}, got)
}

func TestPerformanceByKeyword(t *testing.T) {
	var videos []model.Video
	for i := 0; i < 10; i++ {
		videos = append(videos, model.Video{Title: "a thing", ViewCount: model.Int64(10)})
	}
	for i := 0; i < 3; i++ {
		videos = append(videos, model.Video{Title: "x", Description: "about b", ViewCount: model.Int64(4)})
	}
	videos = append(videos, model.Video{Title: "Tutorial"})

	got := PerformanceByKeyword(videos, []string{"b", "zzz", "thing", "tutorial"}, false)
	require.Len(t, got, 2)
	require.Equal(t, "thing", got[0].Keyword)
	require.Equal(t, 10, got[0].VideoCount)
	require.Equal(t, "b", got[1].Keyword)
	require.Equal(t, 3, got[1].VideoCount)
	require.Equal(t, 4.0, got[1].AvgViews)

	folded := PerformanceByKeyword(videos, []string{"tutorial"}, true)
	require.Len(t, folded, 1)
	require.Equal(t, 1, folded[0].VideoCount)
}

type memReader struct {
	ds  *model.Dataset
	err error
}

func (m memReader) Load(context.Context) (*model.Dataset, error) { return m.ds, m.err }

func TestSession_ReportHasEveryResult(t *testing.T) {
	ds := &model.Dataset{
		Channels: []model.Channel{{ChannelID: "UC1", ChannelTitle: "Chan", SubscriberCount: model.Int64(3)}},
		Videos: []model.Video{
			video("m", monday, 100),
			video("w", monday.AddDate(0, 0, 2), 200),
		},
		Comments: []model.Comment{{AuthorName: "a"}},
	}
	ds.Videos[0].Title = "how to go"

	s, err := Open(context.Background(), memReader{ds: ds})
	require.NoError(t, err)
	defer s.Close()

	r, err := s.Report(context.Background(), ReportOptions{TopN: 1, Keywords: []string{"how to"}})
	require.NoError(t, err)
	require.Equal(t, "Chan", r.ChannelSummary.Title)
	require.Len(t, r.TopVideosByViews, 1)
	require.Equal(t, "w", r.TopVideosByViews[0].VideoID)
	require.Len(t, r.PerformanceByDay, 2)
	require.Len(t, r.KeywordPerformance, 1)
	require.Len(t, r.TopCommenters, 1)

	data, err := json.Marshal(r)
	require.NoError(t, err)
	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, len(ResultNames))
	for _, name := range ResultNames {
		require.Contains(t, decoded, name)
		_, ok := r.Result(name)
		require.True(t, ok, name)
	}
	_, ok := r.Result("nope")
	require.False(t, ok)
}

func TestSession_LoadErrorAndClose(t *testing.T) {
	_, err := Open(context.Background(), memReader{err: tables.ErrNoTable})
	require.True(t, errors.Is(err, tables.ErrNoTable))

	s := NewSession(&model.Dataset{})
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	_, err = s.Report(context.Background(), ReportOptions{})
	require.True(t, errors.Is(err, ErrSessionClosed))
}
