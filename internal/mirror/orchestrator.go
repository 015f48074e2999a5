package mirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/talvikko/sheetsync/internal/retry"
)

// errStartup marks failures in the bootstrap sequence (steps before the
// consumer runs). They restart the pipeline after the longer delay, since
// this path also re-establishes the store connection.
var errStartup = errors.New("mirror: pipeline startup failed")

// SessionFactory constructs a fresh pipeline session. The real factory is
// NewSession closed over the config; tests inject fakes.
type SessionFactory func(ctx context.Context) (*Session, error)

// OrchestratorConfig holds the inputs for creating an Orchestrator.
type OrchestratorConfig struct {
	Snapshot             bool
	StreamRestartDelay   time.Duration
	PipelineRestartDelay time.Duration
	Logger               *slog.Logger
}

// Orchestrator supervises the pipeline: it bootstraps a session, runs the
// consumer, and restarts the whole pipeline on any failure. It is the
// outermost failure boundary — nothing above it may crash the process.
type Orchestrator struct {
	cfg        OrchestratorConfig
	newSession SessionFactory
	logger     *slog.Logger

	// sleepFunc waits between restarts. Tests override this.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator creates an orchestrator around the given session factory.
func NewOrchestrator(cfg OrchestratorConfig, newSession SessionFactory) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		cfg:        cfg,
		newSession: newSession,
		logger:     logger,
		sleepFunc:  retry.Sleep,
	}
}

// Run supervises pipeline instances until the context is canceled. Every
// failure — startup or stream — is logged and answered with a full restart
// after a fixed delay; Run itself only ever returns nil.
func (o *Orchestrator) Run(ctx context.Context) error {
	for {
		err := o.runPipeline(ctx)

		if ctx.Err() != nil {
			o.logger.Info("orchestrator stopping")
			return nil
		}

		delay := o.cfg.StreamRestartDelay
		if errors.Is(err, errStartup) {
			delay = o.cfg.PipelineRestartDelay
		}

		o.logger.Error("pipeline terminated, scheduling restart",
			slog.String("error", err.Error()),
			slog.Duration("delay", delay),
		)

		if sleepErr := o.sleepFunc(ctx, delay); sleepErr != nil {
			return nil
		}
	}
}

// runPipeline executes one full pipeline lifetime: connect, bootstrap,
// consume. It always returns a non-nil error unless the context was
// canceled mid-flight.
func (o *Orchestrator) runPipeline(ctx context.Context) error {
	sess, err := o.newSession(ctx)
	if err != nil {
		return fmt.Errorf("%w: creating session: %w", errStartup, err)
	}
	defer sess.Close(context.WithoutCancel(ctx))

	o.logger.Info("pipeline session starting",
		slog.String("session", sess.ID),
		slog.Bool("snapshot", o.cfg.Snapshot),
	)

	if err := o.bootstrap(ctx, sess); err != nil {
		return fmt.Errorf("%w: %w", errStartup, err)
	}

	stream, err := sess.Store.Watch(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", errStartup, err)
	}

	consumer := NewConsumer(stream, sess.Sheet, sess.Profile, sess.Index, sess.Journal, o.logger)

	o.logger.Info("change stream consumer running", slog.String("session", sess.ID))

	err = consumer.Run(ctx)
	if err == nil {
		// Context canceled; report it so Run's ctx check fires.
		return ctx.Err()
	}

	return err
}

// bootstrap runs the linear startup sequence: optional snapshot replace,
// header write, index rebuild. Any failure aborts the whole sequence.
func (o *Orchestrator) bootstrap(ctx context.Context, sess *Session) error {
	if o.cfg.Snapshot {
		docs, err := sess.Store.SnapshotAll(ctx)
		if err != nil {
			return err
		}

		if err := sess.Sheet.ClearAll(ctx); err != nil {
			return err
		}

		if err := sess.Sheet.BulkWrite(ctx, docs); err != nil {
			return err
		}

		o.logger.Info("snapshot exported",
			slog.String("session", sess.ID),
			slog.Int("documents", len(docs)),
		)
	}

	if err := sess.Sheet.WriteHeader(ctx); err != nil {
		return err
	}

	return sess.Index.Rebuild(ctx, sess.Sheet, sess.Schema, o.logger)
}
