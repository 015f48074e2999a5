package mirror

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// Journal outcome values for the events table.
const (
	outcomeAppended = "appended"
	outcomeUpdated  = "updated"
	outcomeCleared  = "cleared"
	outcomeSkipped  = "skipped"
)

// Entry is one applied change event as recorded in the journal.
type Entry struct {
	SessionID string
	EntityID  string
	Op        string
	RowNum    int
	Outcome   string
	CreatedAt time.Time
}

// Journal records applied events in a local SQLite database for
// observability (the history command). It is advisory only: write failures
// are logged and never block event application. A nil *Journal is valid
// and disables recording.
type Journal struct {
	db        *sql.DB
	sessionID string
	logger    *slog.Logger
}

// OpenJournal opens (creating if needed) the journal database at path and
// applies pending schema migrations. Entries recorded through the returned
// journal are stamped with sessionID.
func OpenJournal(ctx context.Context, path, sessionID string, logger *slog.Logger) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("mirror: opening journal %s: %w", path, err)
	}

	// Sole writer; avoids SQLITE_BUSY between the consumer and history reads.
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	return &Journal{db: db, sessionID: sessionID, logger: logger}, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}

	return j.db.Close()
}

// Record inserts one entry, best-effort.
func (j *Journal) Record(ctx context.Context, e Entry) {
	if j == nil {
		return
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO events (session_id, entity_id, op, row_num, outcome, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		j.sessionID, e.EntityID, e.Op, e.RowNum, e.Outcome,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		j.logger.Warn("journal write failed",
			slog.String("entity", e.EntityID),
			slog.String("error", err.Error()),
		)
	}
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT session_id, entity_id, op, row_num, outcome, created_at
		 FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("mirror: reading journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry

	for rows.Next() {
		var (
			e  Entry
			ts string
		)

		if err := rows.Scan(&e.SessionID, &e.EntityID, &e.Op, &e.RowNum, &e.Outcome, &ts); err != nil {
			return nil, fmt.Errorf("mirror: scanning journal row: %w", err)
		}

		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, ts)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("mirror: reading journal: %w", err)
	}

	return entries, nil
}
