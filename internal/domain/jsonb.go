package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONBMap maps a Postgres JSONB column onto map[string]any. Job records use
// it for their per-job config overrides, which are merged over the configured
// defaults at run time.
type JSONBMap map[string]any

// Scan implements sql.Scanner, accepting the byte and text forms drivers
// hand back for JSONB columns.
func (j *JSONBMap) Scan(value any) error {
	if value == nil {
		*j = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into JSONBMap", value)
	}

	if len(data) == 0 {
		*j = JSONBMap{}
		return nil
	}

	return json.Unmarshal(data, j)
}

// Value implements driver.Valuer. A nil or empty map stores as an empty JSON
// object rather than NULL, so readers never need a null check.
func (j JSONBMap) Value() (driver.Value, error) {
	if len(j) == 0 {
		return []byte("{}"), nil
	}

	return json.Marshal(j)
}
