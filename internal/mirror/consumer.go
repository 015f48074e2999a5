package mirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/talvikko/sheetsync/internal/store"
)

// ErrStreamClosed indicates the change stream ended without reporting an
// error (unsolicited close). The orchestrator treats it exactly like a
// stream error: whole-pipeline restart after the stream backoff delay.
var ErrStreamClosed = errors.New("mirror: change stream closed")

// ChangeStream is the transport-level feed the consumer drains.
// *mongo.ChangeStream satisfies it; tests use fakes.
type ChangeStream interface {
	Next(ctx context.Context) bool
	Decode(val any) error
	Err() error
	Close(ctx context.Context) error
}

// Consumer drains the change stream and dispatches each event to the sinks
// through the row index. Events are processed strictly one at a time, end
// to end, which preserves per-entity mutation order without any locking.
type Consumer struct {
	stream  ChangeStream
	sheet   *SheetSink
	profile *ProfileSink
	index   *RowIndex
	journal *Journal
	logger  *slog.Logger
}

// NewConsumer wires a consumer over an open change stream. journal may be
// nil (journaling disabled).
func NewConsumer(stream ChangeStream, sheet *SheetSink, profile *ProfileSink, index *RowIndex, journal *Journal, logger *slog.Logger) *Consumer {
	return &Consumer{
		stream:  stream,
		sheet:   sheet,
		profile: profile,
		index:   index,
		journal: journal,
		logger:  logger,
	}
}

// Run processes events until the context is canceled or the stream
// terminates. It returns nil on cancellation, the stream's error on
// transport failure, and ErrStreamClosed when the stream ends cleanly —
// both non-nil cases signal the orchestrator to restart the pipeline.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.stream.Close(context.WithoutCancel(ctx))

	for c.stream.Next(ctx) {
		var ev store.ChangeEvent
		if err := c.stream.Decode(&ev); err != nil {
			c.logger.Error("cannot decode change event", slog.String("error", err.Error()))
			continue
		}

		c.handle(ctx, &ev)
	}

	if ctx.Err() != nil {
		return nil
	}

	if err := c.stream.Err(); err != nil {
		return fmt.Errorf("mirror: change stream failed: %w", err)
	}

	return ErrStreamClosed
}

// handle applies one event. It is best-effort and self-contained: a panic
// inside a handler is recovered and logged so one bad event cannot kill
// the subscription.
func (c *Consumer) handle(ctx context.Context, ev *store.ChangeEvent) {
	id := ev.EntityID()

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("event handler panicked",
				slog.String("entity", id),
				slog.String("op", ev.OperationType),
				slog.Any("panic", r),
			)
		}
	}()

	c.logger.Debug("change event received",
		slog.String("entity", id),
		slog.String("op", ev.OperationType),
	)

	var (
		outcome string
		rowNum  int
	)

	switch ev.OperationType {
	case store.OpInsert:
		c.sheet.AppendRow(ctx, id, ev.FullDocument, c.index)
		c.profile.Push(ctx, id, ev.FullDocument)
		rowNum, _ = c.index.Get(id)
		outcome = outcomeAppended

	case store.OpUpdate, store.OpReplace:
		if ev.FullDocument == nil {
			// Lookup raced a delete; the delete event will follow.
			c.logger.Debug("update without full document, skipping", slog.String("entity", id))
			outcome = outcomeSkipped

			break
		}

		if row, ok := c.index.Get(id); ok {
			c.sheet.UpdateRow(ctx, row, ev.FullDocument)
			rowNum = row
			outcome = outcomeUpdated
		} else {
			// Self-healing fallback for entities the index never saw.
			c.sheet.AppendRow(ctx, id, ev.FullDocument, c.index)
			rowNum, _ = c.index.Get(id)
			outcome = outcomeAppended
		}

		c.profile.Push(ctx, id, ev.FullDocument)

	case store.OpDelete:
		row, ok := c.index.Get(id)
		if !ok {
			c.logger.Debug("delete for unindexed entity, ignoring", slog.String("entity", id))
			outcome = outcomeSkipped

			break
		}

		c.sheet.ClearRow(ctx, row)
		c.index.Delete(id)
		rowNum = row
		outcome = outcomeCleared

	default:
		c.logger.Debug("ignoring change event",
			slog.String("entity", id),
			slog.String("op", ev.OperationType),
		)

		return
	}

	c.journal.Record(ctx, Entry{
		EntityID: id,
		Op:       ev.OperationType,
		RowNum:   rowNum,
		Outcome:  outcome,
	})
}
