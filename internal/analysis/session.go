// Package analysis computes the descriptive aggregates over the persisted
// tables. Every aggregate is a plain function over typed rows; a Session
// loads the tables once and hands them to those functions.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"thirdcoast.systems/tubestats/internal/model"
	"thirdcoast.systems/tubestats/internal/tables"
)

// ErrSessionClosed is returned by Report after Close.
var ErrSessionClosed = errors.New("analysis session closed")

// Session holds one loaded snapshot of the tables. It is read-only and safe
// for concurrent use until Close.
type Session struct {
	mu     sync.RWMutex
	ds     *model.Dataset
	closed bool
}

// Open loads every table from r. Callers must Close the session when the
// batch is done.
func Open(ctx context.Context, r tables.Reader) (*Session, error) {
	ds, err := r.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tables: %w", err)
	}
	return NewSession(ds), nil
}

// NewSession wraps an already loaded dataset.
func NewSession(ds *model.Dataset) *Session {
	if ds == nil {
		ds = &model.Dataset{}
	}
	return &Session{ds: ds}
}

// Close releases the dataset. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.ds = &model.Dataset{}
	return nil
}

func (s *Session) dataset() *model.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ds
}

func (s *Session) Channels() []model.Channel { return s.dataset().Channels }
func (s *Session) Videos() []model.Video     { return s.dataset().Videos }
func (s *Session) Comments() []model.Comment { return s.dataset().Comments }

func (s *Session) ChannelSummary() ChannelSummary {
	return SummarizeChannel(s.Channels())
}

func (s *Session) TopVideos(metric Metric, n int) []model.Video {
	return TopVideos(s.Videos(), metric, n)
}

func (s *Session) PerformanceByDay() []DayPerformance {
	return PerformanceByDay(s.Videos())
}

func (s *Session) PerformanceByMonth() []MonthPerformance {
	return PerformanceByMonth(s.Videos())
}

func (s *Session) CategoryPerformance() []CategoryPerformance {
	return PerformanceByCategory(s.Videos())
}

func (s *Session) LengthPerformance() []LengthPerformance {
	return PerformanceByLength(s.Videos())
}

func (s *Session) ChannelGrowth() []GrowthPoint {
	return ChannelGrowth(s.Videos())
}

func (s *Session) EngagementMetrics() EngagementMetrics {
	return Engagement(s.Videos())
}

func (s *Session) TopCommenters(n int) []Commenter {
	return TopCommenters(s.Comments(), n)
}

func (s *Session) KeywordPerformance(keywords []string, caseInsensitive bool) []KeywordPerformance {
	return PerformanceByKeyword(s.Videos(), keywords, caseInsensitive)
}
