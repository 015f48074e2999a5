package mirror

import (
	"context"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/talvikko/sheetsync/internal/retry"
	"github.com/talvikko/sheetsync/internal/sheets"
)

// sheetAPI is the slice of the sheets client the sink uses.
// Tests substitute fakes.
type sheetAPI interface {
	GetRange(ctx context.Context, sheetName, cells string) ([][]string, error)
	UpdateRange(ctx context.Context, sheetName, cells string, values [][]string) error
	Append(ctx context.Context, sheetName, cells string, values [][]string) (string, error)
	ClearRange(ctx context.Context, sheetName, cells string) error
}

// SheetSink applies row mutations to the tabular sink. Every call goes
// through the retry executor; the event-path operations (AppendRow,
// UpdateRow, ClearRow) are best-effort and log rather than return their
// failures, while the bootstrap-path operations return errors so the
// orchestrator can restart the pipeline.
type SheetSink struct {
	api       sheetAPI
	sheetName string
	schema    Schema
	exec      *retry.Executor
	retryCfg  retry.Config
	logger    *slog.Logger
}

// NewSheetSink creates a sink over the given sheets client.
func NewSheetSink(api sheetAPI, sheetName string, schema Schema, exec *retry.Executor, retryCfg retry.Config, logger *slog.Logger) *SheetSink {
	return &SheetSink{
		api:       api,
		sheetName: sheetName,
		schema:    schema,
		exec:      exec,
		retryCfg:  retryCfg,
		logger:    logger,
	}
}

// WriteHeader overwrites row 1 with the ordered header labels. Idempotent.
func (s *SheetSink) WriteHeader(ctx context.Context) error {
	cells := sheets.RangeForRow(headerRow, s.schema.ColumnCount())

	return s.exec.Do(ctx, "write header", s.retryCfg, func(ctx context.Context) error {
		return s.api.UpdateRange(ctx, s.sheetName, cells, [][]string{s.schema.Headers()})
	})
}

// AppendRow encodes the document, appends it at the sink's next free row,
// and records the concretely assigned row number in the index. When the
// assigned range cannot be parsed the index is left un-updated for this
// entity — a later event for it falls back to append. That inconsistency
// window is accepted; a restart's full re-index heals it.
func (s *SheetSink) AppendRow(ctx context.Context, id string, doc bson.M, index *RowIndex) {
	row := EncodeRow(doc, s.schema)
	tableRange := sheets.RangeForRow(headerRow, s.schema.ColumnCount())

	var assigned string

	err := s.exec.Do(ctx, "append row", s.retryCfg, func(ctx context.Context) error {
		var apErr error
		assigned, apErr = s.api.Append(ctx, s.sheetName, tableRange, [][]string{row})

		return apErr
	})
	if err != nil {
		return
	}

	rowNum, err := sheets.RowFromRange(assigned)
	if err != nil {
		s.logger.Warn("cannot parse appended range, row not indexed",
			slog.String("entity", id),
			slog.String("range", assigned),
		)

		return
	}

	index.Set(id, rowNum)
	s.logger.Info("row appended", slog.String("entity", id), slog.Int("row", rowNum))
}

// UpdateRow overwrites the exact range of one data row in place. The index
// is untouched: the row number does not change on update.
func (s *SheetSink) UpdateRow(ctx context.Context, rowNum int, doc bson.M) {
	row := EncodeRow(doc, s.schema)
	cells := sheets.RangeForRow(rowNum, s.schema.ColumnCount())

	err := s.exec.Do(ctx, "update row", s.retryCfg, func(ctx context.Context) error {
		return s.api.UpdateRange(ctx, s.sheetName, cells, [][]string{row})
	})
	if err == nil {
		s.logger.Info("row updated", slog.Int("row", rowNum))
	}
}

// ClearRow blanks one data row. The row stays reserved rather than being
// removed, which keeps every other indexed row number valid.
func (s *SheetSink) ClearRow(ctx context.Context, rowNum int) {
	cells := sheets.RangeForRow(rowNum, s.schema.ColumnCount())

	err := s.exec.Do(ctx, "clear row", s.retryCfg, func(ctx context.Context) error {
		return s.api.ClearRange(ctx, s.sheetName, cells)
	})
	if err == nil {
		s.logger.Info("row cleared", slog.Int("row", rowNum))
	}
}

// ClearAll blanks the entire data region below the header. Bootstrap path.
func (s *SheetSink) ClearAll(ctx context.Context) error {
	return s.exec.Do(ctx, "clear sheet", s.retryCfg, func(ctx context.Context) error {
		return s.api.ClearRange(ctx, s.sheetName, sheets.DataRange(s.schema.ColumnCount()))
	})
}

// BulkWrite encodes the documents and writes them as rows 2..n+1 in order.
// Bootstrap path: combined with ClearAll it gives snapshot replace
// semantics, discarding any external drift.
func (s *SheetSink) BulkWrite(ctx context.Context, docs []bson.M) error {
	if len(docs) == 0 {
		return nil
	}

	values := make([][]string, len(docs))
	for i, doc := range docs {
		values[i] = EncodeRow(doc, s.schema)
	}

	cells := sheets.RangeSpan(headerRow+1, headerRow+len(docs), s.schema.ColumnCount())

	return s.exec.Do(ctx, "bulk write", s.retryCfg, func(ctx context.Context) error {
		return s.api.UpdateRange(ctx, s.sheetName, cells, values)
	})
}

// ReadData reads all data rows for the index rebuild.
func (s *SheetSink) ReadData(ctx context.Context) ([][]string, error) {
	var rows [][]string

	err := s.exec.Do(ctx, "read data rows", s.retryCfg, func(ctx context.Context) error {
		var rdErr error
		rows, rdErr = s.api.GetRange(ctx, s.sheetName, sheets.DataRange(s.schema.ColumnCount()))

		return rdErr
	})
	if err != nil {
		return nil, err
	}

	return rows, nil
}
