package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

const (
	songIDKey          = "id"
	songOwnerKey       = "owner"
	songLastSavedAtKey = "lastSavedAt"
	songMetadataKey    = "metadata"
	songElementsKey    = "elements"
)

// SongSummary is the subset of a [Song] used for listings and ownership checks.
type SongSummary struct {
	ID          string         `json:"id"`
	Owner       string         `json:"owner"`
	LastSavedAt *time.Time     `json:"lastSavedAt"`
	Metadata    map[string]any `json:"metadata"`
}

// Song is a persisted user project document.
//
// The JSON representation is canonical: summary fields and elements sit at the top level next to any
// attribute the service does not know about, which is kept in Extra.
type Song struct {
	SongSummary
	Elements []any
	Extra    map[string]any
}

// IsNew reports whether the song has not been created yet.
func (s Song) IsNew() bool {
	return s.ID == ""
}

// Summary returns the summary projection of the song.
func (s Song) Summary() SongSummary {
	return s.SongSummary
}

// MarshalJSON flattens the song into a single JSON object.
func (s Song) MarshalJSON() ([]byte, error) {
	obj := make(map[string]any, len(s.Extra)+5)
	for k, v := range s.Extra {
		obj[k] = v
	}

	metadata := s.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	elements := s.Elements
	if elements == nil {
		elements = []any{}
	}

	obj[songIDKey] = s.ID
	obj[songOwnerKey] = s.Owner
	obj[songMetadataKey] = metadata
	obj[songElementsKey] = elements
	if s.LastSavedAt != nil {
		obj[songLastSavedAtKey] = s.LastSavedAt.UTC().Format(time.RFC3339Nano)
	} else {
		obj[songLastSavedAtKey] = nil
	}

	return json.Marshal(obj)
}

// UnmarshalJSON decodes a flat song object, keeping unknown attributes in Extra.
func (s *Song) UnmarshalJSON(data []byte) error {
	obj, err := DecodeObject(data)
	if err != nil {
		return fmt.Errorf("song is not a JSON object: %w", err)
	}

	var song Song

	if song.ID, err = optionalString(obj, songIDKey); err != nil {
		return err
	}
	if song.Owner, err = optionalString(obj, songOwnerKey); err != nil {
		return err
	}
	if song.LastSavedAt, err = optionalTime(obj, songLastSavedAtKey); err != nil {
		return err
	}

	if raw, ok := obj[songMetadataKey]; ok && raw != nil {
		metadata, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("song %s must be an object", songMetadataKey)
		}
		song.Metadata = metadata
	}

	if raw, ok := obj[songElementsKey]; ok && raw != nil {
		elements, ok := raw.([]any)
		if !ok {
			return fmt.Errorf("song %s must be an array", songElementsKey)
		}
		song.Elements = elements
	}

	for _, key := range []string{songIDKey, songOwnerKey, songLastSavedAtKey, songMetadataKey, songElementsKey} {
		delete(obj, key)
	}
	song.Extra = obj

	*s = song
	return nil
}

// DecodeObject decodes a JSON object keeping numbers as [json.Number] so opaque content round-trips exactly.
func DecodeObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("null document")
	}
	return obj, nil
}

func optionalString(obj map[string]any, key string) (string, error) {
	raw, ok := obj[key]
	if !ok || raw == nil {
		return "", nil
	}
	str, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("field %s must be a string", key)
	}
	return str, nil
}

func optionalTime(obj map[string]any, key string) (*time.Time, error) {
	str, err := optionalString(obj, key)
	if err != nil || str == "" {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, str)
	if err != nil {
		return nil, fmt.Errorf("field %s must be an RFC 3339 timestamp: %w", key, err)
	}
	return &t, nil
}
