// Package tables persists the typed datasets produced by a transform run and
// loads them back for analysis. Every write replaces the prior version of a
// table wholesale.
package tables

import (
	"context"
	"errors"

	"thirdcoast.systems/tubestats/internal/model"
)

// ErrNoTable is returned when a required table has never been written.
var ErrNoTable = errors.New("table not found")

// Table names as they appear on disk and in the database.
const (
	ChannelTable      = "channel"
	VideoTable        = "videos"
	CommentTable      = "comments"
	DenormalizedTable = "denormalized"
)

// Manifest describes the run that produced the current tables.
type Manifest struct {
	RunID string         `json:"run_id"`
	Rows  map[string]int `json:"rows"`
}

// Writer replaces all persisted tables with ds.
type Writer interface {
	Replace(ctx context.Context, ds *model.Dataset, manifest Manifest) error
}

// Reader loads the persisted tables. Missing comment data is an empty
// table, not an error.
type Reader interface {
	Load(ctx context.Context) (*model.Dataset, error)
}

// Store is a backend that can do both.
type Store interface {
	Writer
	Reader
}
