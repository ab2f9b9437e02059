package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"thirdcoast.systems/tubestats/internal/model"
)

var fixedNow = time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)

func newTestExtractor() *Extractor {
	return New(WithClock(func() time.Time { return fixedNow }))
}

const channelJSON = `{
  "items": [{
    "id": "UC123",
    "snippet": {
      "title": "Test Channel",
      "description": "About",
      "customUrl": "@test",
      "publishedAt": "2015-03-04T05:06:07Z",
      "country": "US"
    },
    "statistics": {"viewCount": "1000", "subscriberCount": "50", "videoCount": "3"},
    "contentDetails": {"relatedPlaylists": {"uploads": "UU123"}}
  }]
}`

func TestChannels_FlattensFirstItem(t *testing.T) {
	rows, err := newTestExtractor().Channels([]byte(channelJSON), "channel_UC123_x.json")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	ch := rows[0]
	require.Equal(t, "UC123", ch.ChannelID)
	require.Equal(t, "Test Channel", ch.ChannelTitle)
	require.Equal(t, "@test", ch.CustomURL)
	require.Equal(t, "US", ch.Country)
	require.Equal(t, "UU123", ch.UploadsPlaylistID)
	require.Equal(t, int64(1000), *ch.ViewCount)
	require.Equal(t, int64(50), *ch.SubscriberCount)
	require.Equal(t, int64(3), *ch.VideoCount)
	require.NotNil(t, ch.PublishedAt)
	require.Equal(t, time.Date(2015, 3, 4, 5, 6, 7, 0, time.UTC), *ch.PublishedAt)
}

func TestChannels_EmptyAndCorrupt(t *testing.T) {
	rows, err := newTestExtractor().Channels([]byte(`{"items":[]}`), "c.json")
	require.NoError(t, err)
	require.Empty(t, rows)

	_, err = newTestExtractor().Channels([]byte(`{"items":[`), "c.json")
	require.Error(t, err)
}

const videosJSON = `{
  "items": [
    {
      "id": "v1",
      "snippet": {"channelId": "UC123", "title": "How to Go", "description": "d",
                  "publishedAt": "2024-01-15T10:00:00Z", "categoryId": "27", "tags": ["go", "tutorial"]},
      "contentDetails": {"duration": "PT1H30M15S"},
      "statistics": {"viewCount": "200", "likeCount": "10", "favoriteCount": "0", "commentCount": "10"}
    },
    {
      "id": "v2",
      "snippet": {"channelId": "UC123", "title": "No stats", "publishedAt": "2024-01-31T23:59:59.500Z", "categoryId": "999"},
      "contentDetails": {"duration": "bogus"},
      "statistics": {}
    },
    {
      "id": "v3",
      "snippet": {"channelId": "UC123", "title": "Bad date", "publishedAt": "not a date", "categoryId": "20"},
      "contentDetails": {"duration": "PT45S"},
      "statistics": {"viewCount": 0, "likeCount": 5, "commentCount": "n/a"}
    }
  ]
}`

func TestVideos_DerivedColumns(t *testing.T) {
	rows, err := newTestExtractor().Videos([]byte(videosJSON), "videos_details_x.json")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	v1 := rows[0]
	require.Equal(t, "v1", v1.VideoID)
	require.Equal(t, "Education", v1.CategoryName)
	require.Equal(t, 5415, v1.DurationSeconds)
	require.Equal(t, []string{"go", "tutorial"}, v1.Tags)
	require.Equal(t, "2024-01-15", v1.PublishDate)
	require.Equal(t, 17, v1.DaysSincePublished)
	require.Equal(t, int64(200), *v1.ViewCount)
	require.InDelta(t, 10.0, v1.EngagementRate, 1e-9)

	v2 := rows[1]
	require.Equal(t, []string{}, v2.Tags)
	require.Equal(t, "Unknown", v2.CategoryName)
	require.Equal(t, 0, v2.DurationSeconds, "malformed duration is clamped")
	require.Equal(t, "bogus", v2.Duration)
	require.Nil(t, v2.ViewCount)
	require.Nil(t, v2.LikeCount)
	require.Equal(t, 0.0, v2.EngagementRate)
	require.Equal(t, time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC), v2.PublishedAt)
	require.Equal(t, 1, v2.DaysSincePublished)

	v3 := rows[2]
	require.Equal(t, fixedNow, v3.PublishedAt, "unparseable timestamp falls back to now")
	require.Equal(t, 0, v3.DaysSincePublished)
	require.Equal(t, int64(0), *v3.ViewCount)
	require.Equal(t, int64(5), *v3.LikeCount)
	require.Nil(t, v3.CommentCount)
	require.Equal(t, 0.0, v3.EngagementRate, "zero views never divides")
}

func TestVideos_MissingItemsIsEmpty(t *testing.T) {
	rows, err := newTestExtractor().Videos([]byte(`{}`), "v.json")
	require.NoError(t, err)
	require.Empty(t, rows)
}

const commentsJSON = `{
  "items": [
    {"id": "c1", "snippet": {"topLevelComment": {"snippet": {
      "authorDisplayName": "Alice", "authorChannelId": {"value": "UCa"},
      "textDisplay": "great", "publishedAt": "2024-01-16T00:00:00Z",
      "updatedAt": "2024-01-17T00:00:00Z", "likeCount": 4}}}},
    {"id": "c2", "snippet": {"topLevelComment": {"snippet": {
      "authorDisplayName": "Bob", "textDisplay": "meh",
      "publishedAt": "2024-01-16T00:00:00Z", "updatedAt": "2024-01-16T00:00:00Z"}}}}
  ]
}`

func TestComments_VideoIDFromCaller(t *testing.T) {
	rows, err := newTestExtractor().Comments([]byte(commentsJSON), "v1", "comments_v1_x.json")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.Equal(t, "c1", rows[0].CommentID)
	require.Equal(t, "v1", rows[0].VideoID)
	require.Equal(t, "Alice", rows[0].AuthorName)
	require.Equal(t, "UCa", rows[0].AuthorChannelID)
	require.Equal(t, int64(4), *rows[0].LikeCount)
	require.Equal(t, time.Date(2024, 1, 17, 0, 0, 0, 0, time.UTC), rows[0].UpdatedAt)

	require.Equal(t, "v1", rows[1].VideoID)
	require.Equal(t, "", rows[1].AuthorChannelID)
	require.Nil(t, rows[1].LikeCount)
}

func TestComments_DropsSubSecondFractions(t *testing.T) {
	data := []byte(`{"items": [{"id": "c1", "snippet": {"topLevelComment": {"snippet": {
      "authorDisplayName": "Alice", "textDisplay": "hi",
      "publishedAt": "2024-01-16T08:00:01.250Z", "updatedAt": "2024-01-16T09:15:30.000001Z"}}}}]}`)

	rows, err := newTestExtractor().Comments(data, "v1", "comments_v1_x.json")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, time.Date(2024, 1, 16, 8, 0, 1, 0, time.UTC), rows[0].PublishedAt)
	require.Equal(t, time.Date(2024, 1, 16, 9, 15, 30, 0, time.UTC), rows[0].UpdatedAt)
}

func TestCount_Decoding(t *testing.T) {
	cases := []struct {
		in   string
		want *int64
	}{
		{`"42"`, model.Int64(42)},
		{`42`, model.Int64(42)},
		{`42.0`, model.Int64(42)},
		{`null`, nil},
		{`""`, nil},
		{`"abc"`, nil},
	}
	for _, tc := range cases {
		var c count
		require.NoError(t, c.UnmarshalJSON([]byte(tc.in)), tc.in)
		require.Equal(t, tc.want, c.ptr(), tc.in)
	}
}
