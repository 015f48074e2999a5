package mirror

import (
	"context"
	"fmt"
	"log/slog"
)

// RangeReader reads all data rows (row 2 onward) from the tabular sink.
// Implemented by *SheetSink; tests use fakes.
type RangeReader interface {
	ReadData(ctx context.Context) ([][]string, error)
}

// RowIndex maps entity identifiers to 1-based sheet row numbers, enabling
// O(1) routing of update and delete events after an O(rows) bootstrap scan.
// The map is advisory: external sheet edits can make it stale, and the only
// self-healing is the full rebuild at pipeline (re)start.
//
// Owned exclusively by the active pipeline session's event loop; no locking.
type RowIndex struct {
	rows map[string]int
}

// NewRowIndex returns an empty index.
func NewRowIndex() *RowIndex {
	return &RowIndex{rows: make(map[string]int)}
}

// Rebuild clears the index and repopulates it from one bulk read of the
// sink's data rows. Row 2 is scan position 2, incrementing; rows whose
// identifier cell is blank are skipped.
func (x *RowIndex) Rebuild(ctx context.Context, reader RangeReader, schema Schema, logger *slog.Logger) error {
	offset, ok := schema.IDOffset()
	if !ok {
		return fmt.Errorf("mirror: schema has no column for id key %q", schema.IDKey)
	}

	rows, err := reader.ReadData(ctx)
	if err != nil {
		return fmt.Errorf("mirror: rebuilding row index: %w", err)
	}

	x.rows = make(map[string]int, len(rows))

	for i, row := range rows {
		rowNum := headerRow + 1 + i

		if offset >= len(row) || row[offset] == "" {
			continue
		}

		x.rows[row[offset]] = rowNum
	}

	logger.Info("row index rebuilt",
		slog.Int("scanned_rows", len(rows)),
		slog.Int("indexed", len(x.rows)),
	)

	return nil
}

// Get returns the row number for an entity, and false when not indexed.
func (x *RowIndex) Get(id string) (int, bool) {
	row, ok := x.rows[id]
	return row, ok
}

// Set records the row number for an entity.
func (x *RowIndex) Set(id string, row int) {
	x.rows[id] = row
}

// Delete removes an entity from the index.
func (x *RowIndex) Delete(id string) {
	delete(x.rows, id)
}

// Len returns the number of indexed entities.
func (x *RowIndex) Len() int {
	return len(x.rows)
}
