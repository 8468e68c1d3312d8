package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Thumbnail is a single image reference as returned by the external catalog
// client. Width/height are optional because some upstream endpoints omit
// them for certain image kinds.
type Thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Thumbnails is a JSON-encoded ordered list of Thumbnail, stored as TEXT.
type Thumbnails []Thumbnail

func (t Thumbnails) Value() (driver.Value, error) {
	if len(t) == 0 {
		return "[]", nil
	}
	return json.Marshal(t)
}

func (t *Thumbnails) Scan(value any) error {
	data, ok, err := scanJSONBytes(value)
	if err != nil || !ok {
		*t = nil
		return err
	}
	return json.Unmarshal(data, t)
}

// ArtistRef is an embedded reference to an artist by id/name, used on Track
// and Album rows where the full Artist entity is not owned by that row.
type ArtistRef struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// ArtistRefs is a JSON-encoded ordered list of ArtistRef, stored as TEXT.
type ArtistRefs []ArtistRef

func (a ArtistRefs) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	return json.Marshal(a)
}

func (a *ArtistRefs) Scan(value any) error {
	data, ok, err := scanJSONBytes(value)
	if err != nil || !ok {
		*a = nil
		return err
	}
	return json.Unmarshal(data, a)
}

// JSONMap is a generic JSON object column, used for Job.Payload and
// Job.Result, whose shape varies by job type.
type JSONMap map[string]any

func (m JSONMap) Value() (driver.Value, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(value any) error {
	data, ok, err := scanJSONBytes(value)
	if err != nil {
		return err
	}
	if !ok {
		*m = nil
		return nil
	}
	return json.Unmarshal(data, m)
}

// scanJSONBytes normalizes a database/sql scan source into raw JSON bytes,
// reporting ok=false for NULL/empty values so callers can leave the
// destination zeroed instead of unmarshalling.
func scanJSONBytes(value any) ([]byte, bool, error) {
	if value == nil {
		return nil, false, nil
	}
	switch v := value.(type) {
	case []byte:
		if len(v) == 0 || string(v) == "null" {
			return nil, false, nil
		}
		return v, true, nil
	case string:
		if v == "" || v == "null" {
			return nil, false, nil
		}
		return []byte(v), true, nil
	default:
		return nil, false, fmt.Errorf("unsupported scan source %T", value)
	}
}
