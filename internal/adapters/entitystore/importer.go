package entitystore

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/okian/hotboard/internal/domain/model"
)

// Import formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

const defaultImportBatch = 500

// Upserter is the write side of an entity store.
type Upserter interface {
	Upsert(ctx context.Context, entities ...model.Entity) error
}

// Import reads entities from r and upserts them into dst in batches of
// batch rows (500 when batch <= 0). It returns the number of rows written.
//
// JSON input is an array of {"id","title","author","created_at"} objects.
// CSV input has a header naming at least the id column; title, author and
// created_at (RFC3339) are optional.
func Import(ctx context.Context, dst Upserter, r io.Reader, format string, batch int) (int, error) {
	if batch <= 0 {
		batch = defaultImportBatch
	}
	var entities []model.Entity
	var err error
	switch strings.ToLower(format) {
	case FormatJSON:
		entities, err = decodeJSON(r)
	case FormatCSV:
		entities, err = decodeCSV(r)
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return 0, err
	}

	written := 0
	for start := 0; start < len(entities); start += batch {
		end := min(start+batch, len(entities))
		if err := dst.Upsert(ctx, entities[start:end]...); err != nil {
			return written, fmt.Errorf("upsert rows %d-%d: %w", start, end-1, err)
		}
		written = end
	}
	return written, nil
}

func decodeJSON(r io.Reader) ([]model.Entity, error) {
	var out []model.Entity
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadRecord, err)
	}
	for i, e := range out {
		if strings.TrimSpace(e.ID) == "" {
			return nil, fmt.Errorf("%w: element %d: %w", ErrBadRecord, i, ErrEmptyID)
		}
	}
	return out, nil
}

func decodeCSV(r io.Reader) ([]model.Entity, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrBadRecord, err)
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := col["id"]; !ok {
		return nil, fmt.Errorf("%w: header has no id column", ErrBadRecord)
	}
	cr.FieldsPerRecord = len(header)

	field := func(rec []string, name string) string {
		if i, ok := col[name]; ok {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	var out []model.Entity
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrBadRecord, line, err)
		}
		e := model.Entity{
			ID:     field(rec, "id"),
			Title:  field(rec, "title"),
			Author: field(rec, "author"),
		}
		if e.ID == "" {
			return nil, fmt.Errorf("%w: line %d: %w", ErrBadRecord, line, ErrEmptyID)
		}
		if raw := field(rec, "created_at"); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: created_at: %w", ErrBadRecord, line, err)
			}
			e.CreatedAt = t
		}
		out = append(out, e)
	}
}
