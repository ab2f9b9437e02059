package extract

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// API payload shapes (private - only the fields the transform reads)

type channelPayload struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			CustomURL   string `json:"customUrl"`
			PublishedAt string `json:"publishedAt"`
			Country     string `json:"country"`
		} `json:"snippet"`
		Statistics struct {
			ViewCount       count `json:"viewCount"`
			SubscriberCount count `json:"subscriberCount"`
			VideoCount      count `json:"videoCount"`
		} `json:"statistics"`
		ContentDetails struct {
			RelatedPlaylists struct {
				Uploads string `json:"uploads"`
			} `json:"relatedPlaylists"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type videoPayload struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			ChannelID   string   `json:"channelId"`
			Title       string   `json:"title"`
			Description string   `json:"description"`
			PublishedAt string   `json:"publishedAt"`
			CategoryID  string   `json:"categoryId"`
			Tags        []string `json:"tags"`
		} `json:"snippet"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
		Statistics struct {
			ViewCount     count `json:"viewCount"`
			LikeCount     count `json:"likeCount"`
			FavoriteCount count `json:"favoriteCount"`
			CommentCount  count `json:"commentCount"`
		} `json:"statistics"`
	} `json:"items"`
}

type commentThreadPayload struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			TopLevelComment struct {
				Snippet struct {
					AuthorDisplayName string `json:"authorDisplayName"`
					AuthorChannelID   struct {
						Value string `json:"value"`
					} `json:"authorChannelId"`
					TextDisplay string `json:"textDisplay"`
					PublishedAt string `json:"publishedAt"`
					UpdatedAt   string `json:"updatedAt"`
					LikeCount   count  `json:"likeCount"`
				} `json:"snippet"`
			} `json:"topLevelComment"`
		} `json:"snippet"`
	} `json:"items"`
}

// count decodes the API's counters, which arrive as decimal strings
// ("1234"), as plain numbers, or not at all. Anything that does not cast to
// an integer is null.
type count struct {
	v *int64
}

func (c *count) UnmarshalJSON(b []byte) error {
	c.v = nil
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}

	raw := string(b)
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		raw = strings.TrimSpace(s)
	}
	if raw == "" {
		return nil
	}

	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		c.v = &n
		return nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		n := int64(f)
		c.v = &n
	}
	return nil
}

func (c count) ptr() *int64 {
	return c.v
}
