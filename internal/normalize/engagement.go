package normalize

// EngagementRate is (likes+comments)/views*100, and exactly 0 when views is 0.
func EngagementRate(likes, comments, views int64) float64 {
	if views == 0 {
		return 0
	}
	return float64(likes+comments) / float64(views) * 100
}
