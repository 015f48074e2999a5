package mirror

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/talvikko/sheetsync/internal/retry"
	"github.com/talvikko/sheetsync/internal/store"
)

func event(op, id string, doc bson.M) store.ChangeEvent {
	var ev store.ChangeEvent
	ev.OperationType = op
	ev.DocumentKey.ID = id
	ev.FullDocument = doc

	return ev
}

type consumerFixture struct {
	sheet    *fakeSheet
	profiles *fakeProfiles
	index    *RowIndex
	consumer *Consumer
	stream   *fakeStream
}

func newConsumerFixture(events ...store.ChangeEvent) *consumerFixture {
	sheet := newFakeSheet()
	profiles := &fakeProfiles{}
	index := NewRowIndex()
	stream := &fakeStream{events: events}

	exec := retry.New(discardLogger())
	cfg := retry.Config{MaxRetries: 0, InitialDelay: time.Millisecond}
	sink := NewSheetSink(sheet, "Leads", testSchema(), exec, cfg, discardLogger())
	profileSink := NewProfileSink(profiles, testSchema(), "phone", exec, cfg, discardLogger())

	return &consumerFixture{
		sheet:    sheet,
		profiles: profiles,
		index:    index,
		stream:   stream,
		consumer: NewConsumer(stream, sink, profileSink, index, nil, discardLogger()),
	}
}

func TestInsertAppendsAndIndexes(t *testing.T) {
	f := newConsumerFixture(
		event(store.OpInsert, "aa11", bson.M{"_id": "aa11", "name": "Ada", "phone": "+15551234567"}),
	)

	err := f.consumer.Run(context.Background())
	require.ErrorIs(t, err, ErrStreamClosed)

	row, ok := f.index.Get("aa11")
	require.True(t, ok)
	assert.Equal(t, 2, row)
	assert.Equal(t, "Ada", f.sheet.rows[2][1])

	require.Len(t, f.profiles.pushed, 1)
	assert.Equal(t, "aa11", f.profiles.pushed[0].ID)
	assert.Equal(t, "+15551234567", f.profiles.pushed[0].Phone)
}

func TestUpdateIndexedEntityOverwritesInPlace(t *testing.T) {
	f := newConsumerFixture(
		event(store.OpInsert, "aa11", bson.M{"_id": "aa11", "name": "Ada"}),
		event(store.OpUpdate, "aa11", bson.M{"_id": "aa11", "name": "Ada 2"}),
	)

	err := f.consumer.Run(context.Background())
	require.ErrorIs(t, err, ErrStreamClosed)

	row, ok := f.index.Get("aa11")
	require.True(t, ok)
	assert.Equal(t, 2, row)
	assert.Equal(t, "Ada 2", f.sheet.rows[2][1])
	assert.Equal(t, 1, f.sheet.appendCalls)
}

func TestUpdateUnindexedEntityFallsBackToAppend(t *testing.T) {
	f := newConsumerFixture(
		event(store.OpUpdate, "bb22", bson.M{"_id": "bb22", "name": "Brin"}),
	)

	err := f.consumer.Run(context.Background())
	require.ErrorIs(t, err, ErrStreamClosed)

	row, ok := f.index.Get("bb22")
	require.True(t, ok)
	assert.Equal(t, 2, row)
	assert.Equal(t, 1, f.sheet.appendCalls)
}

func TestReplaceBehavesLikeUpdate(t *testing.T) {
	f := newConsumerFixture(
		event(store.OpInsert, "aa11", bson.M{"_id": "aa11", "name": "Ada"}),
		event(store.OpReplace, "aa11", bson.M{"_id": "aa11", "name": "Replaced"}),
	)

	err := f.consumer.Run(context.Background())
	require.ErrorIs(t, err, ErrStreamClosed)

	assert.Equal(t, "Replaced", f.sheet.rows[2][1])
}

func TestUpdateWithoutFullDocumentIsSkipped(t *testing.T) {
	f := newConsumerFixture(
		event(store.OpUpdate, "aa11", nil),
	)

	err := f.consumer.Run(context.Background())
	require.ErrorIs(t, err, ErrStreamClosed)

	assert.Equal(t, 0, f.sheet.appendCalls)
	assert.Equal(t, 0, f.sheet.updateCalls)
}

func TestDeleteClearsRowAndIndex(t *testing.T) {
	f := newConsumerFixture(
		event(store.OpInsert, "aa11", bson.M{"_id": "aa11", "name": "Ada"}),
		event(store.OpDelete, "aa11", nil),
		event(store.OpDelete, "aa11", nil), // second delete is a no-op
	)

	err := f.consumer.Run(context.Background())
	require.ErrorIs(t, err, ErrStreamClosed)

	assert.Empty(t, f.sheet.rows[2])
	assert.Equal(t, 0, f.index.Len())
	assert.Equal(t, 1, f.sheet.clearCalls)
}

func TestDeleteUnindexedEntityIsNoOp(t *testing.T) {
	f := newConsumerFixture(
		event(store.OpDelete, "ghost", nil),
	)

	err := f.consumer.Run(context.Background())
	require.ErrorIs(t, err, ErrStreamClosed)

	assert.Equal(t, 0, f.sheet.clearCalls)
}

func TestUnknownOperationIgnored(t *testing.T) {
	f := newConsumerFixture(
		event("invalidate", "", nil),
		event(store.OpInsert, "aa11", bson.M{"_id": "aa11"}),
	)

	err := f.consumer.Run(context.Background())
	require.ErrorIs(t, err, ErrStreamClosed)

	assert.Equal(t, 1, f.index.Len())
}

func TestHandlerPanicDoesNotKillSubscription(t *testing.T) {
	f := newConsumerFixture(
		event(store.OpInsert, "aa11", bson.M{"_id": "aa11"}),
		event(store.OpInsert, "bb22", bson.M{"_id": "bb22"}),
	)

	// A nil index map makes the first append's index.Set panic.
	f.consumer.index = &RowIndex{}
	f.index = f.consumer.index

	err := f.consumer.Run(context.Background())
	require.ErrorIs(t, err, ErrStreamClosed)

	// Both events were attempted despite the panics.
	assert.Equal(t, 2, f.sheet.appendCalls)
}

func TestStreamErrorPropagates(t *testing.T) {
	f := newConsumerFixture()
	f.stream.err = errors.New("network reset")

	err := f.consumer.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network reset")
	assert.True(t, f.stream.closed)
}

func TestCanceledContextReturnsNil(t *testing.T) {
	f := newConsumerFixture(
		event(store.OpInsert, "aa11", bson.M{"_id": "aa11"}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.consumer.Run(ctx)
	assert.NoError(t, err)
}
