package store

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Operation types emitted by the change stream.
const (
	OpInsert  = "insert"
	OpUpdate  = "update"
	OpReplace = "replace"
	OpDelete  = "delete"
)

// ChangeEvent is the decoded shape of one change stream notification.
// FullDocument is nil for deletes, and can be nil for updates when the
// document was deleted again before the lookup ran.
type ChangeEvent struct {
	OperationType string `bson:"operationType"`
	DocumentKey   struct {
		ID any `bson:"_id"`
	} `bson:"documentKey"`
	FullDocument bson.M `bson:"fullDocument"`
}

// EntityID renders the document key as a stable string. Object IDs use
// their hex form so the value round-trips through the sheet's ID column.
func (e *ChangeEvent) EntityID() string {
	return FormatID(e.DocumentKey.ID)
}

// FormatID renders a document _id value as its canonical string form.
func FormatID(id any) string {
	switch v := id.(type) {
	case primitive.ObjectID:
		return v.Hex()
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
