package analysis

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"thirdcoast.systems/tubestats/internal/model"
)

// Metric names a video column that videos can be ranked by.
type Metric string

const (
	MetricViews      Metric = "views"
	MetricLikes      Metric = "likes"
	MetricComments   Metric = "comments"
	MetricEngagement Metric = "engagement"
)

// Metrics lists every rankable metric in report order.
var Metrics = []Metric{MetricViews, MetricLikes, MetricComments, MetricEngagement}

// ParseMetric accepts the short names and the column names
// (view_count, like_count, comment_count, engagement_rate).
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "views", "view_count":
		return MetricViews, nil
	case "likes", "like_count":
		return MetricLikes, nil
	case "comments", "comment_count":
		return MetricComments, nil
	case "engagement", "engagement_rate":
		return MetricEngagement, nil
	}
	return "", fmt.Errorf("unknown metric %q", s)
}

// value returns the metric for v; ok is false when the count is null.
func (m Metric) value(v model.Video) (float64, bool) {
	var n *int64
	switch m {
	case MetricViews:
		n = v.ViewCount
	case MetricLikes:
		n = v.LikeCount
	case MetricComments:
		n = v.CommentCount
	case MetricEngagement:
		return v.EngagementRate, true
	}
	if n == nil {
		return 0, false
	}
	return float64(*n), true
}

// TopVideos returns the n videos with the highest metric. Null counts sort
// last; ties keep input order.
func TopVideos(videos []model.Video, metric Metric, n int) []model.Video {
	if n <= 0 {
		return []model.Video{}
	}
	ranked := append([]model.Video(nil), videos...)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, aok := metric.value(ranked[i])
		b, bok := metric.value(ranked[j])
		if aok != bok {
			return aok
		}
		return a > b
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	if ranked == nil {
		ranked = []model.Video{}
	}
	return ranked
}

// Commenter is one comment author with activity totals.
type Commenter struct {
	AuthorName      string `json:"author_name"`
	AuthorChannelID string `json:"author_channel_id"`
	CommentCount    int    `json:"comment_count"`
	TotalLikes      int64  `json:"total_likes"`
}

// TopCommenters groups comments by author name and ID and returns the n
// most active, ties in order of first appearance.
func TopCommenters(comments []model.Comment, n int) []Commenter {
	type key struct{ name, id string }
	index := make(map[key]int)
	out := []Commenter{}
	for _, c := range comments {
		k := key{c.AuthorName, c.AuthorChannelID}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, Commenter{AuthorName: c.AuthorName, AuthorChannelID: c.AuthorChannelID})
		}
		out[i].CommentCount++
		out[i].TotalLikes += model.Value(c.LikeCount)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].CommentCount > out[j].CommentCount })
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

type KeywordPerformance struct {
	Keyword string `json:"keyword"`
	Stats
}

// PerformanceByKeyword aggregates the videos whose title or description
// contains each keyword. Keywords without matches are dropped; the rest are
// ordered by match count, ties in keyword order.
func PerformanceByKeyword(videos []model.Video, keywords []string, caseInsensitive bool) []KeywordPerformance {
	match := strings.Contains
	if caseInsensitive {
		fold := cases.Fold()
		match = func(s, substr string) bool {
			return strings.Contains(fold.String(s), fold.String(substr))
		}
	}

	out := []KeywordPerformance{}
	for _, kw := range keywords {
		var acc statsAcc
		for _, v := range videos {
			if match(v.Title, kw) || match(v.Description, kw) {
				acc.add(v)
			}
		}
		if acc.count == 0 {
			continue
		}
		out = append(out, KeywordPerformance{Keyword: kw, Stats: acc.stats()})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].VideoCount > out[j].VideoCount })
	return out
}
