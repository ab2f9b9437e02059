package tables

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"thirdcoast.systems/tubestats/internal/model"
	"thirdcoast.systems/tubestats/internal/rawstore"
)

const (
	manifestFile = "_manifest.json"
	csvFile      = "denormalized.csv"
)

// DirStore keeps each table as a JSON Lines file in one directory.
type DirStore struct {
	dir       string
	csvExport bool
}

// DirOption configures a DirStore.
type DirOption func(*DirStore)

// WithCSVExport also writes the denormalized table as CSV for inspection.
func WithCSVExport(enabled bool) DirOption {
	return func(s *DirStore) {
		s.csvExport = enabled
	}
}

// NewDirStore returns a store rooted at dir.
func NewDirStore(dir string, opts ...DirOption) *DirStore {
	s := &DirStore{dir: dir}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the directory backing the store.
func (s *DirStore) Dir() string {
	return s.dir
}

// Path returns the file backing a table.
func (s *DirStore) Path(table string) string {
	return filepath.Join(s.dir, table+".jsonl")
}

// Replace writes every table. Each file is swapped in atomically; an empty
// comment table removes the previous one rather than leaving it stale.
func (s *DirStore) Replace(ctx context.Context, ds *model.Dataset, manifest Manifest) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create processed dir: %w", err)
	}

	if err := writeJSONL(s.Path(ChannelTable), ds.Channels); err != nil {
		return err
	}
	if err := writeJSONL(s.Path(VideoTable), ds.Videos); err != nil {
		return err
	}
	if len(ds.Comments) > 0 {
		if err := writeJSONL(s.Path(CommentTable), ds.Comments); err != nil {
			return err
		}
	} else if err := os.Remove(s.Path(CommentTable)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale comment table: %w", err)
	}
	if err := writeJSONL(s.Path(DenormalizedTable), ds.Denormalized); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if s.csvExport {
		data, err := EncodeDenormalizedCSV(ds.Denormalized)
		if err != nil {
			return err
		}
		if err := rawstore.WriteFileAtomic(filepath.Join(s.dir, csvFile), data, 0o644); err != nil {
			return err
		}
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return rawstore.WriteFileAtomic(filepath.Join(s.dir, manifestFile), data, 0o644)
}

// Load reads every table.
func (s *DirStore) Load(ctx context.Context) (*model.Dataset, error) {
	ds := &model.Dataset{}
	var err error

	if ds.Channels, err = readJSONL[model.Channel](s.Path(ChannelTable), true); err != nil {
		return nil, err
	}
	if ds.Videos, err = readJSONL[model.Video](s.Path(VideoTable), true); err != nil {
		return nil, err
	}
	if ds.Comments, err = readJSONL[model.Comment](s.Path(CommentTable), false); err != nil {
		return nil, err
	}
	if ds.Denormalized, err = readJSONL[model.DenormalizedVideo](s.Path(DenormalizedTable), true); err != nil {
		return nil, err
	}
	return ds, ctx.Err()
}

// Manifest reads the manifest of the current tables.
func (s *DirStore) Manifest() (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(filepath.Join(s.dir, manifestFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return m, fmt.Errorf("%w: %s", ErrNoTable, manifestFile)
		}
		return m, err
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("decode manifest: %w", err)
	}
	return m, nil
}

func writeJSONL[T any](path string, rows []T) error {
	var buf bytes.Buffer
	for i := range rows {
		line, err := json.Marshal(rows[i])
		if err != nil {
			return fmt.Errorf("encode %s row %d: %w", filepath.Base(path), i, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return rawstore.WriteFileAtomic(path, buf.Bytes(), 0o644)
}

func readJSONL[T any](path string, required bool) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if required {
				return nil, fmt.Errorf("%w: %s", ErrNoTable, path)
			}
			return []T{}, nil
		}
		return nil, err
	}
	defer f.Close()

	rows := []T{}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		var row T
		if err := json.Unmarshal(b, &row); err != nil {
			return nil, fmt.Errorf("decode %s line %d: %w", filepath.Base(path), line, err)
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}
