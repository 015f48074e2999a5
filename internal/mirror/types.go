// Package mirror implements the change-propagation core: it consumes the
// primary store's change stream and applies equivalent mutations to the
// tabular and profile sinks, routing update and delete events through an
// in-memory row index. Delivery is at-least-once with idempotent row
// addressing; each sink is updated independently and best-effort.
package mirror

import (
	"github.com/talvikko/sheetsync/internal/config"
)

// headerRow is the sheet row reserved for column headers. Data rows start
// at headerRow+1.
const headerRow = 1

// Column maps a document field key to its display header.
type Column struct {
	Key    string
	Header string
}

// Schema is the ordered column layout of the tabular sink. Order is fixed
// for the lifetime of a sheet: positional row writes rely on column position
// matching header position.
type Schema struct {
	Columns []Column
	IDKey   string
}

// SchemaFromConfig builds a Schema from the validated sheet config.
func SchemaFromConfig(cfg config.SheetConfig) Schema {
	cols := make([]Column, 0, len(cfg.Columns))
	for _, c := range cfg.Columns {
		cols = append(cols, Column{Key: c.Key, Header: c.Header})
	}

	return Schema{Columns: cols, IDKey: cfg.IDColumn}
}

// Headers returns the ordered display labels for the header row.
func (s Schema) Headers() []string {
	h := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		h[i] = c.Header
	}

	return h
}

// ColumnCount returns the number of configured columns.
func (s Schema) ColumnCount() int {
	return len(s.Columns)
}

// IDOffset returns the 0-based position of the identifier column, and false
// when the schema does not contain it.
func (s Schema) IDOffset() (int, bool) {
	for i, c := range s.Columns {
		if c.Key == s.IDKey {
			return i, true
		}
	}

	return 0, false
}
