package mirror

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EncodeRow maps a document to its ordered display values, one per schema
// column. The mapping is total: absent or null fields become empty strings,
// timestamps become RFC 3339, and composite values fall back to their JSON
// form. It never fails — a malformed field degrades to a printable string,
// not an error.
func EncodeRow(doc bson.M, schema Schema) []string {
	row := make([]string, len(schema.Columns))

	for i, col := range schema.Columns {
		row[i] = encodeValue(doc[col.Key])
	}

	return row
}

func encodeValue(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case primitive.ObjectID:
		return c.Hex()
	case primitive.DateTime:
		return c.Time().UTC().Format(time.RFC3339)
	case time.Time:
		return c.UTC().Format(time.RFC3339)
	case bool:
		return strconv.FormatBool(c)
	case int:
		return strconv.Itoa(c)
	case int32:
		return strconv.FormatInt(int64(c), 10)
	case int64:
		return strconv.FormatInt(c, 10)
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	case primitive.Decimal128:
		return c.String()
	default:
		b, err := json.Marshal(c)
		if err != nil {
			return fmt.Sprintf("%v", c)
		}

		return string(b)
	}
}

// Traits flattens a document into the free-form attribute bag pushed to the
// profile sink. The identifier and phone fields are carried separately, so
// they are excluded here; composite values are sent as their encoded string
// form to keep the payload flat.
func Traits(doc bson.M, schema Schema, phoneKey string) map[string]any {
	traits := make(map[string]any, len(schema.Columns))

	for _, col := range schema.Columns {
		if col.Key == schema.IDKey || col.Key == phoneKey {
			continue
		}

		if v, ok := doc[col.Key]; ok && v != nil {
			traits[col.Key] = encodeValue(v)
		}
	}

	return traits
}
