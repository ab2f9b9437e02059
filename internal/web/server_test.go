package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"thirdcoast.systems/tubestats/internal/analysis"
	"thirdcoast.systems/tubestats/internal/model"
	"thirdcoast.systems/tubestats/internal/tables"
)

type memTables struct {
	ds *model.Dataset
}

func (m memTables) Load(context.Context) (*model.Dataset, error) {
	if m.ds == nil {
		return nil, tables.ErrNoTable
	}
	return m.ds, nil
}

func testDataset() *model.Dataset {
	monday := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	return &model.Dataset{
		Channels: []model.Channel{{ChannelID: "UC1", ChannelTitle: "Chan"}},
		Videos: []model.Video{
			{VideoID: "v1", Title: "how to one", PublishedAt: monday, ViewCount: model.Int64(100), LikeCount: model.Int64(50)},
			{VideoID: "v2", Title: "two", PublishedAt: monday.AddDate(0, 0, 2), ViewCount: model.Int64(200), LikeCount: model.Int64(1)},
		},
		Comments: []model.Comment{},
	}
}

func newTestServer(t *testing.T, ds *model.Dataset) *Webserver {
	t.Helper()
	s, err := NewWebserver(memTables{ds: ds}, analysis.ReportOptions{TopN: 5, Keywords: []string{"how to"}})
	require.NoError(t, err)
	return s
}

func get(t *testing.T, s *Webserver, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	rec := get(t, newTestServer(t, nil), "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestReport_Full(t *testing.T) {
	rec := get(t, newTestServer(t, testDataset()), "/api/report")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	for _, name := range analysis.ResultNames {
		require.Contains(t, body, name)
	}

	var days []analysis.DayPerformance
	require.NoError(t, json.Unmarshal(body["performance_by_day"], &days))
	require.Len(t, days, 2)
	require.Equal(t, "Mon", days[0].DayOfWeek)
}

func TestReport_NoDataIs404(t *testing.T) {
	rec := get(t, newTestServer(t, nil), "/api/report")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReportResult(t *testing.T) {
	s := newTestServer(t, testDataset())

	rec := get(t, s, "/api/report/keyword_performance")
	require.Equal(t, http.StatusOK, rec.Code)
	var kws []analysis.KeywordPerformance
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &kws))
	require.Len(t, kws, 1)
	require.Equal(t, "how to", kws[0].Keyword)

	rec = get(t, s, "/api/report/bogus")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTopVideos(t *testing.T) {
	s := newTestServer(t, testDataset())

	rec := get(t, s, "/api/videos/top?metric=likes&limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	var videos []model.Video
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &videos))
	require.Len(t, videos, 1)
	require.Equal(t, "v1", videos[0].VideoID)

	rec = get(t, s, "/api/videos/top")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &videos))
	require.Equal(t, "v2", videos[0].VideoID)

	require.Equal(t, http.StatusBadRequest, get(t, s, "/api/videos/top?metric=dislikes").Code)
	require.Equal(t, http.StatusBadRequest, get(t, s, "/api/videos/top?limit=0").Code)
	require.Equal(t, http.StatusBadRequest, get(t, s, "/api/videos/top?limit=abc").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, testDataset())
	get(t, s, "/api/report")

	rec := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "tubestats_api_request_duration_seconds"))
}
