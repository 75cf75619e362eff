package models

import (
	"encoding/json"
	"time"
)

type Plant struct {
	ID             int64     `json:"id"`
	CommonName     string    `json:"common_name"`
	ScientificName string    `json:"scientific_name"`
	Description    string    `json:"description,omitempty"`
	Color          *string   `json:"color,omitempty"`
	Height         *string   `json:"height,omitempty"`
	Edibilities    []string  `json:"edibilities"`
	SunPreferences []string  `json:"sun_preferences"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Record is an entity read as a column -> JSON value map. Revisions snapshot
// their old_value from it.
type Record map[string]json.RawMessage

// Value returns the raw value of field, or nil when the field is absent.
func (r Record) Value(field string) json.RawMessage {
	if r == nil {
		return nil
	}
	return r[field]
}
