package schema

import (
	"encoding/json"
	"fmt"
	"sort"
)

// IssueType is one entry of the project's creatable issue types.
type IssueType struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Subtask bool   `json:"subtask"`
}

// issueTypesPage covers both the "issueTypes" and the paginated "values"
// envelopes returned by different tracker versions.
type issueTypesPage struct {
	IssueTypes []IssueType `json:"issueTypes"`
	Values     []IssueType `json:"values"`
}

func decodeIssueTypes(raw json.RawMessage) ([]IssueType, error) {
	var page issueTypesPage
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("decode issue types: %w", err)
	}
	if len(page.IssueTypes) > 0 {
		return page.IssueTypes, nil
	}
	return page.Values, nil
}

// fieldMeta is the create-time metadata of one field for one issue type.
// Pointers distinguish "absent" from zero values so the catalogue can fill gaps.
type fieldMeta struct {
	FieldID       string      `json:"fieldId"`
	Key           string      `json:"key"`
	Name          string      `json:"name"`
	Required      *bool       `json:"required"`
	Schema        *Descriptor `json:"schema"`
	AllowedValues []any       `json:"allowedValues"`
}

func (m fieldMeta) id() string {
	if m.FieldID != "" {
		return m.FieldID
	}
	return m.Key
}

// decodeFieldMetas normalizes the two create-meta shapes into one list:
//
//	{"fields": {"summary": {...}, ...}}            map keyed by field id
//	{"fields": [{"fieldId": "summary", ...}, ...]}  list of records
//	{"values": [{"fieldId": "summary", ...}, ...]}  paginated list
//
// The result is sorted by field id so downstream iteration is stable.
func decodeFieldMetas(raw json.RawMessage) ([]fieldMeta, error) {
	var envelope struct {
		Fields json.RawMessage `json:"fields"`
		Values json.RawMessage `json:"values"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode create metadata: %w", err)
	}

	body := envelope.Fields
	if len(body) == 0 || string(body) == "null" {
		body = envelope.Values
	}
	if len(body) == 0 || string(body) == "null" {
		return nil, nil
	}

	var metas []fieldMeta
	switch body[0] {
	case '{':
		var byID map[string]fieldMeta
		if err := json.Unmarshal(body, &byID); err != nil {
			return nil, fmt.Errorf("decode field map: %w", err)
		}
		for id, m := range byID {
			if m.id() == "" {
				m.FieldID = id
			}
			metas = append(metas, m)
		}
	case '[':
		if err := json.Unmarshal(body, &metas); err != nil {
			return nil, fmt.Errorf("decode field list: %w", err)
		}
	default:
		return nil, fmt.Errorf("decode create metadata: unexpected fields shape %q", string(body[:1]))
	}

	kept := metas[:0]
	for _, m := range metas {
		if m.id() != "" {
			kept = append(kept, m)
		}
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].id() < kept[j].id() })
	return kept, nil
}

// catalogueEntry is one element of the global field catalogue.
type catalogueEntry struct {
	ID            string      `json:"id"`
	Key           string      `json:"key"`
	Name          string      `json:"name"`
	Custom        bool        `json:"custom"`
	Schema        *Descriptor `json:"schema"`
	AllowedValues []any       `json:"allowedValues"`
}

func decodeCatalogue(raw json.RawMessage) (map[string]catalogueEntry, error) {
	var entries []catalogueEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode field catalogue: %w", err)
	}
	out := make(map[string]catalogueEntry, len(entries))
	for _, e := range entries {
		id := e.ID
		if id == "" {
			id = e.Key
		}
		if id != "" {
			out[id] = e
		}
	}
	return out, nil
}

// buildFieldSpecs merges type-specific metadata with the catalogue. Type
// metadata wins for required/schema/allowed values; the catalogue fills what
// the metadata omits and supplies names for fields referenced only by id.
//
// Two fields that canonicalize to the same name are resolved in favour of the
// required one, then the lexically smaller remote id.
func buildFieldSpecs(metas []fieldMeta, catalogue map[string]catalogueEntry) map[string]FieldSpec {
	out := make(map[string]FieldSpec, len(metas))
	for _, m := range metas {
		id := m.id()
		full := catalogue[id]

		spec := FieldSpec{RemoteID: id, Name: firstNonEmpty(m.Name, full.Name, id)}
		if m.Required != nil {
			spec.Required = *m.Required
		}
		switch {
		case m.Schema != nil:
			spec.Schema = *m.Schema
		case full.Schema != nil:
			spec.Schema = *full.Schema
		}
		if m.AllowedValues != nil {
			spec.AllowedValues = m.AllowedValues
		} else {
			spec.AllowedValues = full.AllowedValues
		}

		key := spec.Canonical()
		if prev, exists := out[key]; exists && !preferSpec(spec, prev) {
			continue
		}
		out[key] = spec
	}
	return out
}

func preferSpec(candidate, current FieldSpec) bool {
	if candidate.Required != current.Required {
		return candidate.Required
	}
	return candidate.RemoteID < current.RemoteID
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
