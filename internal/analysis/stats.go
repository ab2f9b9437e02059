package analysis

import (
	"math"
	"sort"

	"thirdcoast.systems/tubestats/internal/model"
)

// Stats is the aggregate set shared by every grouped result. Null counts
// are left out of the means, so a mean over only nulls is 0.
type Stats struct {
	VideoCount    int     `json:"video_count"`
	AvgViews      float64 `json:"avg_views"`
	AvgLikes      float64 `json:"avg_likes"`
	AvgComments   float64 `json:"avg_comments"`
	AvgEngagement float64 `json:"avg_engagement"`
}

type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v *int64) {
	if v != nil {
		m.sum += float64(*v)
		m.n++
	}
}

func (m *mean) addFloat(v float64) {
	m.sum += v
	m.n++
}

func (m mean) value() float64 {
	if m.n == 0 {
		return 0
	}
	return round2(m.sum / float64(m.n))
}

type statsAcc struct {
	count      int
	views      mean
	likes      mean
	comments   mean
	engagement mean
}

func (a *statsAcc) add(v model.Video) {
	a.count++
	a.views.add(v.ViewCount)
	a.likes.add(v.LikeCount)
	a.comments.add(v.CommentCount)
	a.engagement.addFloat(v.EngagementRate)
}

func (a *statsAcc) stats() Stats {
	return Stats{
		VideoCount:    a.count,
		AvgViews:      a.views.value(),
		AvgLikes:      a.likes.value(),
		AvgComments:   a.comments.value(),
		AvgEngagement: a.engagement.value(),
	}
}

func summarize(videos []model.Video) Stats {
	var acc statsAcc
	for _, v := range videos {
		acc.add(v)
	}
	return acc.stats()
}

// groupVideos buckets videos by key, remembering keys in first-seen order.
func groupVideos(videos []model.Video, key func(model.Video) string) ([]string, map[string]*statsAcc) {
	var order []string
	groups := make(map[string]*statsAcc)
	for _, v := range videos {
		k := key(v)
		acc, ok := groups[k]
		if !ok {
			acc = &statsAcc{}
			groups[k] = acc
			order = append(order, k)
		}
		acc.add(v)
	}
	return order, groups
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func sumCounts(videos []model.Video, field func(model.Video) *int64) int64 {
	var total int64
	for _, v := range videos {
		total += model.Value(field(v))
	}
	return total
}

// approxMedian mirrors percentile_approx(col, 0.5): the smallest value with
// at least half of the non-null values at or below it.
func approxMedian(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	idx := int(math.Ceil(0.5*float64(len(sorted)))) - 1
	return round2(sorted[max(idx, 0)])
}
