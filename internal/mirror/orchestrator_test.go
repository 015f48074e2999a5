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

func newTestSession(storeSess storeSession, sheet *fakeSheet) *Session {
	exec := retry.New(discardLogger())
	cfg := retry.Config{MaxRetries: 0, InitialDelay: time.Millisecond}

	return &Session{
		ID:      "session-test",
		Schema:  testSchema(),
		Store:   storeSess,
		Sheet:   NewSheetSink(sheet, "Leads", testSchema(), exec, cfg, discardLogger()),
		Profile: NewProfileSink(nil, testSchema(), "phone", exec, cfg, discardLogger()),
		Index:   NewRowIndex(),
		logger:  discardLogger(),
	}
}

// runUntilRestart runs the orchestrator with a sleep func that records the
// restart delay and cancels the context, so Run returns after one pipeline
// lifetime.
func runUntilRestart(t *testing.T, orch *Orchestrator) time.Duration {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var delay time.Duration

	orch.sleepFunc = func(_ context.Context, d time.Duration) error {
		delay = d
		cancel()

		return context.Canceled
	}

	require.NoError(t, orch.Run(ctx))

	return delay
}

func TestBootstrapSnapshotExport(t *testing.T) {
	docs := []bson.M{
		{"_id": "aa11", "name": "Ada"},
		{"_id": "bb22", "name": "Brin"},
		{"_id": "cc33", "name": "Cleo"},
	}

	sheet := newFakeSheet()
	// Pre-existing drift that the snapshot replace must discard.
	sheet.setRow(2, []string{"stale", "Stale"})
	sheet.setRow(5, []string{"gone", "Gone"})

	storeSess := &fakeStoreSession{docs: docs, stream: &fakeStream{}}

	var sess *Session

	orch := NewOrchestrator(OrchestratorConfig{
		Snapshot:             true,
		StreamRestartDelay:   time.Second,
		PipelineRestartDelay: 3 * time.Second,
		Logger:               discardLogger(),
	}, func(context.Context) (*Session, error) {
		sess = newTestSession(storeSess, sheet)
		return sess, nil
	})

	runUntilRestart(t, orch)

	// Row 1 is the header, rows 2-4 the snapshot in store iteration order.
	assert.Equal(t, testSchema().Headers(), sheet.rows[1])
	assert.Equal(t, "aa11", sheet.rows[2][0])
	assert.Equal(t, "bb22", sheet.rows[3][0])
	assert.Equal(t, "cc33", sheet.rows[4][0])
	_, drift := sheet.rows[5]
	assert.False(t, drift)

	// The index maps each entity to its row.
	for i, id := range []string{"aa11", "bb22", "cc33"} {
		row, ok := sess.Index.Get(id)
		require.True(t, ok, id)
		assert.Equal(t, 2+i, row, id)
	}

	assert.Equal(t, 1, storeSess.closeCalls)
}

func TestNoSnapshotSkipsExport(t *testing.T) {
	sheet := newFakeSheet()
	sheet.setRow(2, []string{"aa11", "Ada"})

	storeSess := &fakeStoreSession{
		docs:   []bson.M{{"_id": "zz99"}},
		stream: &fakeStream{},
	}

	var sess *Session

	orch := NewOrchestrator(OrchestratorConfig{
		Snapshot:             false,
		StreamRestartDelay:   time.Second,
		PipelineRestartDelay: 3 * time.Second,
		Logger:               discardLogger(),
	}, func(context.Context) (*Session, error) {
		sess = newTestSession(storeSess, sheet)
		return sess, nil
	})

	runUntilRestart(t, orch)

	// Existing rows survive and are indexed; no snapshot rows written.
	row, ok := sess.Index.Get("aa11")
	require.True(t, ok)
	assert.Equal(t, 2, row)

	_, ok = sess.Index.Get("zz99")
	assert.False(t, ok)
}

func TestStreamLossUsesStreamDelay(t *testing.T) {
	storeSess := &fakeStoreSession{
		stream: &fakeStream{err: errors.New("connection reset")},
	}

	orch := NewOrchestrator(OrchestratorConfig{
		StreamRestartDelay:   time.Second,
		PipelineRestartDelay: 3 * time.Second,
		Logger:               discardLogger(),
	}, func(context.Context) (*Session, error) {
		return newTestSession(storeSess, newFakeSheet()), nil
	})

	delay := runUntilRestart(t, orch)
	assert.Equal(t, time.Second, delay)
}

func TestUnsolicitedCloseUsesStreamDelay(t *testing.T) {
	storeSess := &fakeStoreSession{stream: &fakeStream{}}

	orch := NewOrchestrator(OrchestratorConfig{
		StreamRestartDelay:   time.Second,
		PipelineRestartDelay: 3 * time.Second,
		Logger:               discardLogger(),
	}, func(context.Context) (*Session, error) {
		return newTestSession(storeSess, newFakeSheet()), nil
	})

	delay := runUntilRestart(t, orch)
	assert.Equal(t, time.Second, delay)
}

func TestStartupFailureUsesPipelineDelay(t *testing.T) {
	orch := NewOrchestrator(OrchestratorConfig{
		StreamRestartDelay:   time.Second,
		PipelineRestartDelay: 3 * time.Second,
		Logger:               discardLogger(),
	}, func(context.Context) (*Session, error) {
		return nil, errors.New("store unreachable")
	})

	delay := runUntilRestart(t, orch)
	assert.Equal(t, 3*time.Second, delay)
}

func TestSnapshotFailureUsesPipelineDelay(t *testing.T) {
	storeSess := &fakeStoreSession{snapshotErr: errors.New("cursor timeout")}

	orch := NewOrchestrator(OrchestratorConfig{
		Snapshot:             true,
		StreamRestartDelay:   time.Second,
		PipelineRestartDelay: 3 * time.Second,
		Logger:               discardLogger(),
	}, func(context.Context) (*Session, error) {
		return newTestSession(storeSess, newFakeSheet()), nil
	})

	delay := runUntilRestart(t, orch)
	assert.Equal(t, 3*time.Second, delay)
	assert.Equal(t, 1, storeSess.closeCalls)
}

func TestRestartBuildsFreshSession(t *testing.T) {
	sessions := 0

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	orch := NewOrchestrator(OrchestratorConfig{
		StreamRestartDelay:   time.Millisecond,
		PipelineRestartDelay: time.Millisecond,
		Logger:               discardLogger(),
	}, func(context.Context) (*Session, error) {
		sessions++
		if sessions >= 3 {
			cancel()
		}

		return newTestSession(&fakeStoreSession{stream: &fakeStream{}}, newFakeSheet()), nil
	})

	orch.sleepFunc = func(context.Context, time.Duration) error { return nil }

	require.NoError(t, orch.Run(ctx))
	assert.GreaterOrEqual(t, sessions, 3)
}

func TestConsumerEventsFlowAfterBootstrap(t *testing.T) {
	stream := &fakeStream{events: []store.ChangeEvent{
		event(store.OpInsert, "dd44", bson.M{"_id": "dd44", "name": "Dee"}),
	}}

	storeSess := &fakeStoreSession{
		docs:   []bson.M{{"_id": "aa11", "name": "Ada"}},
		stream: stream,
	}

	sheet := newFakeSheet()

	var sess *Session

	orch := NewOrchestrator(OrchestratorConfig{
		Snapshot:             true,
		StreamRestartDelay:   time.Second,
		PipelineRestartDelay: 3 * time.Second,
		Logger:               discardLogger(),
	}, func(context.Context) (*Session, error) {
		sess = newTestSession(storeSess, sheet)
		return sess, nil
	})

	runUntilRestart(t, orch)

	// Snapshot row plus the streamed insert.
	row, ok := sess.Index.Get("dd44")
	require.True(t, ok)
	assert.Equal(t, 3, row)
	assert.Equal(t, "Dee", sheet.rows[3][1])
}
