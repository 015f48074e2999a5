package mirror

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/talvikko/sheetsync/internal/crm"
	"github.com/talvikko/sheetsync/internal/store"
	"github.com/talvikko/sheetsync/internal/sheets"
)

// openEndedRange matches a data range with no trailing row bound ("A2:E").
var openEndedRange = regexp.MustCompile(`:[A-Z]+$`)

// fakeSheet is an in-memory stand-in for the sheets client. It models the
// sink at row granularity: updates write rows in place, appends assign the
// next free row and report the assigned range, clears blank rows without
// removing them.
type fakeSheet struct {
	rows map[int][]string
	max  int

	updateErr error
	appendErr error
	clearErr  error
	getErr    error

	// appendRange, when set, overrides the reported assigned range to
	// simulate a response the row parser cannot handle.
	appendRange string

	appendCalls int
	updateCalls int
	clearCalls  int
}

func newFakeSheet() *fakeSheet {
	return &fakeSheet{rows: make(map[int][]string)}
}

func (f *fakeSheet) setRow(n int, vals []string) {
	f.rows[n] = append([]string(nil), vals...)
	if n > f.max {
		f.max = n
	}
}

func (f *fakeSheet) UpdateRange(_ context.Context, _ string, cells string, values [][]string) error {
	f.updateCalls++

	if f.updateErr != nil {
		return f.updateErr
	}

	start, err := sheets.RowFromRange(cells)
	if err != nil {
		return err
	}

	for i, row := range values {
		f.setRow(start+i, row)
	}

	return nil
}

func (f *fakeSheet) Append(_ context.Context, sheetName, _ string, values [][]string) (string, error) {
	f.appendCalls++

	if f.appendErr != nil {
		return "", f.appendErr
	}

	n := f.max + 1
	if n <= headerRow+1 {
		n = headerRow + 1
	}

	f.setRow(n, values[0])

	if f.appendRange != "" {
		return f.appendRange, nil
	}

	return fmt.Sprintf("%s!A%d:%s%d", sheetName, n, sheets.ColumnLabel(len(values[0])), n), nil
}

func (f *fakeSheet) ClearRange(_ context.Context, _ string, cells string) error {
	f.clearCalls++

	if f.clearErr != nil {
		return f.clearErr
	}

	if openEndedRange.MatchString(cells) {
		for n := range f.rows {
			if n > headerRow {
				delete(f.rows, n)
			}
		}

		f.max = 0
		if _, ok := f.rows[headerRow]; ok {
			f.max = headerRow
		}

		return nil
	}

	n, err := sheets.RowFromRange(cells)
	if err != nil {
		return err
	}

	// Blank, not remove: the row number stays reserved.
	f.rows[n] = []string{}

	return nil
}

func (f *fakeSheet) GetRange(_ context.Context, _ string, _ string) ([][]string, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}

	var out [][]string
	for n := headerRow + 1; n <= f.max; n++ {
		out = append(out, f.rows[n])
	}

	return out, nil
}

// fakeProfiles records profile pushes.
type fakeProfiles struct {
	mu      sync.Mutex
	pushed  []crm.Profile
	pushErr error
}

func (f *fakeProfiles) Upsert(_ context.Context, p crm.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.pushErr != nil {
		return f.pushErr
	}

	f.pushed = append(f.pushed, p)

	return nil
}

// fakeStream replays canned change events, then terminates with err (or a
// clean close when err is nil).
type fakeStream struct {
	events []store.ChangeEvent
	pos    int
	cur    store.ChangeEvent
	err    error
	closed bool
}

func (s *fakeStream) Next(ctx context.Context) bool {
	if ctx.Err() != nil || s.pos >= len(s.events) {
		return false
	}

	s.cur = s.events[s.pos]
	s.pos++

	return true
}

func (s *fakeStream) Decode(val any) error {
	ev, ok := val.(*store.ChangeEvent)
	if !ok {
		return fmt.Errorf("unexpected decode target %T", val)
	}

	*ev = s.cur

	return nil
}

func (s *fakeStream) Err() error { return s.err }

func (s *fakeStream) Close(context.Context) error {
	s.closed = true
	return nil
}

// fakeStoreSession serves a canned snapshot and change stream.
type fakeStoreSession struct {
	docs        []bson.M
	stream      ChangeStream
	snapshotErr error
	watchErr    error
	closeCalls  int
}

func (f *fakeStoreSession) SnapshotAll(context.Context) ([]bson.M, error) {
	if f.snapshotErr != nil {
		return nil, f.snapshotErr
	}

	return f.docs, nil
}

func (f *fakeStoreSession) Watch(context.Context) (ChangeStream, error) {
	if f.watchErr != nil {
		return nil, f.watchErr
	}

	return f.stream, nil
}

func (f *fakeStoreSession) Close(context.Context) error {
	f.closeCalls++
	return nil
}
