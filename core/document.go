package core

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/pkg/errors"
)

// Document is a schema-less JSON object persisted as JSONB. The shape is only
// interpreted at the edges that need it (e.g. trip normalization); everywhere
// else the blob is carried opaquely.
type Document map[string]interface{}

var _ driver.Valuer = (Document)(nil)

func (d Document) Value() (driver.Value, error) {
	if d == nil {
		d = Document{}
	}
	b, err := json.Marshal(d)
	return b, errors.Wrap(err, "marshaling document")
}

func (d *Document) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = Document{}
		return nil
	case []byte:
		return errors.Wrap(json.Unmarshal(v, d), "unmarshaling document")
	case string:
		return errors.Wrap(json.Unmarshal([]byte(v), d), "unmarshaling document")
	default:
		return errors.Errorf("unsupported document source %T", src)
	}
}

// IsEmpty reports whether the document has no keys. A nil Document is empty.
func (d Document) IsEmpty() bool { return len(d) == 0 }
