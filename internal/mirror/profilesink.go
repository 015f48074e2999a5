package mirror

import (
	"context"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/talvikko/sheetsync/internal/crm"
	"github.com/talvikko/sheetsync/internal/retry"
)

// profileAPI is the slice of the crm client the sink uses.
type profileAPI interface {
	Upsert(ctx context.Context, p crm.Profile) error
}

// ProfileSink pushes the full trait set of a document to the profile sink
// on every mutation. The integration is stateless on this side: no profile
// key is retained locally, and duplicate pushes rely on the sink's
// idempotent upsert.
type ProfileSink struct {
	api      profileAPI
	schema   Schema
	phoneKey string
	exec     *retry.Executor
	retryCfg retry.Config
	logger   *slog.Logger
}

// NewProfileSink creates a sink over the given crm client. A nil api
// disables profile pushes entirely.
func NewProfileSink(api profileAPI, schema Schema, phoneKey string, exec *retry.Executor, retryCfg retry.Config, logger *slog.Logger) *ProfileSink {
	return &ProfileSink{
		api:      api,
		schema:   schema,
		phoneKey: phoneKey,
		exec:     exec,
		retryCfg: retryCfg,
		logger:   logger,
	}
}

// Push upserts the document's profile, best-effort. Documents without a
// usable phone number are skipped for this sink — they are still mirrored
// to the sheet — under one uniform rule: the phone field must be present
// and normalize to a valid number.
func (p *ProfileSink) Push(ctx context.Context, id string, doc bson.M) {
	if p.api == nil {
		return
	}

	raw, _ := doc[p.phoneKey].(string)

	phone, err := crm.NormalizePhone(raw)
	if err != nil {
		p.logger.Debug("skipping profile push, no usable phone",
			slog.String("entity", id),
		)

		return
	}

	profile := crm.Profile{
		ID:     id,
		Phone:  phone,
		Traits: Traits(doc, p.schema, p.phoneKey),
	}

	_ = p.exec.Do(ctx, "profile upsert", p.retryCfg, func(ctx context.Context) error {
		return p.api.Upsert(ctx, profile)
	})
}
