package content

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Decode parses a fetched body into a network-sourced ResolvedMetadata.
// The body must be a single JSON object. Unknown fields, and recognized
// fields whose value has the wrong type, are preserved in Extra.
func Decode(body []byte) (ResolvedMetadata, *ContentError) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ResolvedMetadata{}, &ContentError{
			Message:   "no content",
			Retryable: true,
			Cause:     ErrCauseEmptyBody,
		}
	}
	if trimmed[0] != '{' {
		if !json.Valid(trimmed) {
			return ResolvedMetadata{}, &ContentError{
				Message:   "body is not JSON",
				Retryable: true,
				Cause:     ErrCauseNotJSON,
			}
		}
		return ResolvedMetadata{}, &ContentError{
			Message:   fmt.Sprintf("expected an object, got %q...", preview(trimmed)),
			Retryable: false,
			Cause:     ErrCauseNotObject,
		}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return ResolvedMetadata{}, &ContentError{
			Message:   err.Error(),
			Retryable: true,
			Cause:     ErrCauseNotJSON,
		}
	}

	result := ResolvedMetadata{Source: SourceNetwork}
	for key, raw := range fields {
		switch key {
		case keyName:
			if result.Name = decodeString(raw); result.Name != "" {
				continue
			}
		case keyLocation:
			if result.Location = decodeString(raw); result.Location != "" {
				continue
			}
		case keyDescription:
			if result.Description = decodeString(raw); result.Description != "" {
				continue
			}
		case keyImages:
			if result.Images = decodeStrings(raw); result.Images != nil {
				continue
			}
		case keyAmenities:
			if result.Amenities = decodeStrings(raw); result.Amenities != nil {
				continue
			}
		}
		if result.Extra == nil {
			result.Extra = make(map[string]json.RawMessage)
		}
		result.Extra[key] = raw
	}
	return result, nil
}

// MarshalJSON writes the document back as a flat object: Extra, then the
// recognized fields, then "source". Keys are emitted in sorted order.
func (m ResolvedMetadata) MarshalJSON() ([]byte, error) {
	fields := make(map[string]any, len(m.Extra)+6)
	for key, raw := range m.Extra {
		fields[key] = raw
	}
	if m.Name != "" {
		fields[keyName] = m.Name
	}
	if m.Location != "" {
		fields[keyLocation] = m.Location
	}
	if m.Description != "" {
		fields[keyDescription] = m.Description
	}
	if m.Images != nil {
		fields[keyImages] = m.Images
	}
	if m.Amenities != nil {
		fields[keyAmenities] = m.Amenities
	}
	fields[keySource] = m.Source
	return json.Marshal(fields)
}

func decodeString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// decodeStrings returns nil unless raw is an array of strings.
func decodeStrings(raw json.RawMessage) []string {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil
	}
	if values == nil {
		values = []string{}
	}
	return values
}

func preview(b []byte) string {
	if len(b) > 16 {
		return string(b[:16])
	}
	return string(b)
}
