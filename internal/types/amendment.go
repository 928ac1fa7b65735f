package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// EntityType identifies the kind of domain entity an amendment applies to
type EntityType string

const (
	EntityRawMaterial    EntityType = "raw_material"
	EntityVendorResource EntityType = "vendor_resource"
)

// AmendmentRecord represents one edit event applied to a domain entity.
// Records are written once at edit time and never mutated afterwards.
type AmendmentRecord struct {
	ID          string     `json:"id"`
	EntityID    string     `json:"entity_id" validate:"required"`
	EntityType  EntityType `json:"entity_type" validate:"required,oneof=raw_material vendor_resource"`
	EntityLabel string     `json:"entity_label" validate:"required"`
	Changes     ChangeSet  `json:"changes" validate:"required,min=1"`
	AmendedBy   string     `json:"amended_by" validate:"required"`
	AmendedAt   time.Time  `json:"amended_at" validate:"required"`
	CreatedAt   time.Time  `json:"created_at,omitempty"`
}

// ChangePair holds one field change descriptor as received from producers.
// The descriptor is a single string of the form "<from> → <to>".
type ChangePair struct {
	Field      string
	Descriptor string
}

// ChangeSet is an ordered list of field change descriptors. It serializes as
// a JSON object for compatibility with the upstream producers, and decodes
// preserving the key order of the incoming document.
type ChangeSet []ChangePair

// Get returns the descriptor for a field
func (cs ChangeSet) Get(field string) (string, bool) {
	for _, p := range cs {
		if p.Field == field {
			return p.Descriptor, true
		}
	}
	return "", false
}

// MarshalJSON encodes the change set as a JSON object in pair order
func (cs ChangeSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range cs {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(p.Field)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(p.Descriptor)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object into ordered pairs. Values that are not
// strings are skipped rather than failing the whole record.
func (cs *ChangeSet) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("changes must be a JSON object")
	}

	pairs := make(ChangeSet, 0, 4)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected key token %v", keyTok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}

		var val string
		if err := json.Unmarshal(raw, &val); err != nil {
			// Non-string descriptor, skip the entry
			continue
		}
		pairs = append(pairs, ChangePair{Field: key, Descriptor: val})
	}

	*cs = pairs
	return nil
}

// PresentedChange is the display-ready rendering of one real field change
type PresentedChange struct {
	FieldName   string `json:"field_name"`
	DisplayFrom string `json:"display_from"`
	DisplayTo   string `json:"display_to"`
}

// DisplayEntry pairs an amendment record with its surviving presented changes.
// Entries with zero presented changes are never emitted.
type DisplayEntry struct {
	Record  *AmendmentRecord  `json:"record"`
	Changes []PresentedChange `json:"changes"`
}
