package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/JasonAskew/knowledge-sub001/internal/errs"
)

// Metadata is the free-form JSONB bag attached to a Document or Chunk —
// source-specific fields (division, category, page labels, ...) that
// don't earn a first-class column (spec.md §3).
type Metadata map[string]interface{}

// Value implements driver.Valuer so a Document/Chunk can be inserted
// directly into a JSONB column.
func (m Metadata) Value() (driver.Value, error) {
	return m.Marshal()
}

// Scan implements sql.Scanner for reading a JSONB column back out.
func (m *Metadata) Scan(value interface{}) error {
	return m.Unmarshal(value)
}

// Marshal converts Metadata to JSON bytes.
func (m Metadata) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// Unmarshal accepts either raw JSON bytes (from a driver.Scanner) or
// another Metadata value (from in-process stores that skip the JSONB
// round trip entirely) and normalizes both into *m.
func (m *Metadata) Unmarshal(value interface{}) error {
	if value == nil {
		*m = Metadata{}
		return nil
	}

	if s, ok := value.(Metadata); ok {
		*m = s
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return errs.New("metadata scan", fmt.Errorf("expected []byte, got %T", value))
	}

	return json.Unmarshal(b, m)
}
