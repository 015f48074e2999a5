package mirror

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/talvikko/sheetsync/internal/config"
	"github.com/talvikko/sheetsync/internal/crm"
	"github.com/talvikko/sheetsync/internal/retry"
	"github.com/talvikko/sheetsync/internal/sheets"
	"github.com/talvikko/sheetsync/internal/store"
)

// sinkHTTPTimeout bounds a single sink HTTP call.
const sinkHTTPTimeout = 30 * time.Second

// storeSession is the slice of the primary store a session uses.
// Tests substitute fakes; the real implementation wraps *store.Store.
type storeSession interface {
	SnapshotAll(ctx context.Context) ([]bson.M, error)
	Watch(ctx context.Context) (ChangeStream, error)
	Close(ctx context.Context) error
}

// Session bundles everything one pipeline instance owns: the store
// connection, both sinks, the row index, and the journal handle. A restart
// discards the whole session and constructs a fresh one; nothing is shared
// with a still-draining predecessor.
type Session struct {
	ID      string
	Schema  Schema
	Store   storeSession
	Sheet   *SheetSink
	Profile *ProfileSink
	Index   *RowIndex
	Journal *Journal

	logger *slog.Logger
}

// Close releases the session's store connection and journal handle.
func (s *Session) Close(ctx context.Context) {
	if err := s.Store.Close(ctx); err != nil {
		s.logger.Warn("closing store connection", slog.String("error", err.Error()))
	}

	if err := s.Journal.Close(); err != nil {
		s.logger.Warn("closing journal", slog.String("error", err.Error()))
	}
}

// storeAdapter narrows *store.Store to the storeSession interface
// (Watch returns the ChangeStream interface rather than the driver type).
type storeAdapter struct {
	*store.Store
}

func (a storeAdapter) Watch(ctx context.Context) (ChangeStream, error) {
	return a.Store.Watch(ctx)
}

// NewSession connects to the primary store and wires up sinks, index, and
// journal from the validated config. It is the real session factory handed
// to the orchestrator.
func NewSession(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Session, error) {
	id := uuid.New().String()
	schema := SchemaFromConfig(cfg.Sheet)

	st, err := store.Connect(ctx, store.Config{
		URI:            cfg.Store.URI,
		Database:       cfg.Store.Database,
		Collection:     cfg.Store.Collection,
		ConnectTimeout: config.Duration(cfg.Store.ConnectTimeout),
	}, logger)
	if err != nil {
		return nil, err
	}

	retryCfg := retry.Config{
		MaxRetries:   cfg.Sync.RetryMax,
		InitialDelay: config.Duration(cfg.Sync.RetryInitialDelay),
	}
	exec := retry.New(logger)

	// One client per sink; a hard timeout keeps a hung sink call from
	// stalling the event loop longer than a retry round.
	httpClient := &http.Client{Timeout: sinkHTTPTimeout}

	sheetClient := sheets.NewClient(
		cfg.Sheet.BaseURL, cfg.Sheet.SpreadsheetID,
		httpClient, sheets.StaticTokenSource(cfg.Sheet.Token), logger,
	)
	sheetSink := NewSheetSink(sheetClient, cfg.Sheet.SheetName, schema, exec, retryCfg, logger)

	var profiles profileAPI
	if cfg.CRM.Enabled {
		profiles = crm.NewClient(cfg.CRM.BaseURL, cfg.CRM.SiteID, cfg.CRM.APIKey, httpClient, logger)
	}

	profileSink := NewProfileSink(profiles, schema, cfg.CRM.PhoneField, exec, retryCfg, logger)

	var journal *Journal
	if cfg.Sync.JournalPath != "" {
		journal, err = OpenJournal(ctx, cfg.Sync.JournalPath, id, logger)
		if err != nil {
			// Advisory facility: a broken journal must not stop the mirror.
			logger.Warn("journal unavailable, continuing without it",
				slog.String("error", err.Error()),
			)
			journal = nil
		}
	}

	return &Session{
		ID:      id,
		Schema:  schema,
		Store:   storeAdapter{st},
		Sheet:   sheetSink,
		Profile: profileSink,
		Index:   NewRowIndex(),
		Journal: journal,
		logger:  logger,
	}, nil
}
