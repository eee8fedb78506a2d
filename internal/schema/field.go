package schema

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// Descriptor is the tracker's value schema for a field, e.g.
// {"type":"array","items":"string","system":"labels"}.
type Descriptor struct {
	Type     string `json:"type,omitempty" yaml:"type,omitempty"`
	Items    string `json:"items,omitempty" yaml:"items,omitempty"`
	System   string `json:"system,omitempty" yaml:"system,omitempty"`
	Custom   string `json:"custom,omitempty" yaml:"custom,omitempty"`
	CustomID int64  `json:"customId,omitempty" yaml:"custom_id,omitempty"`
}

// IsZero reports whether the descriptor carries no information.
func (d Descriptor) IsZero() bool {
	return d == Descriptor{}
}

// OpenAPI translates the descriptor into an OpenAPI schema used to check
// mapped values. Types the tracker wraps in an object ({"id": ...},
// {"name": ...}, {"value": ...}) become objects; unknown types accept anything.
func (d Descriptor) OpenAPI() *openapi3.Schema {
	return schemaForType(d.Type, d.Items)
}

func schemaForType(typ, items string) *openapi3.Schema {
	switch typ {
	case "string", "date", "datetime":
		return openapi3.NewStringSchema()
	case "number":
		return openapi3.NewFloat64Schema()
	case "array":
		s := openapi3.NewArraySchema()
		if items != "" {
			s.Items = openapi3.NewSchemaRef("", schemaForType(items, ""))
		}
		return s
	case "option", "priority", "user", "project", "issuetype", "version",
		"component", "securitylevel", "resolution", "issuelink", "option-with-child":
		return openapi3.NewObjectSchema()
	default:
		return &openapi3.Schema{}
	}
}

// FieldSpec is the resolved, read-only description of one creatable field.
type FieldSpec struct {
	RemoteID      string     `json:"id" yaml:"id"`
	Name          string     `json:"name" yaml:"name"`
	Required      bool       `json:"required" yaml:"required"`
	Schema        Descriptor `json:"schema" yaml:"schema"`
	AllowedValues []any      `json:"allowedValues,omitempty" yaml:"allowed_values,omitempty"`
}

// Canonical returns the field's join key.
func (f FieldSpec) Canonical() string {
	return Canonicalize(f.Name)
}

// Check validates a mapped payload value against the field's schema and, when
// the tracker enumerates them, its allowed values.
func (f FieldSpec) Check(value any) error {
	normalized, err := toJSONValue(value)
	if err != nil {
		return fmt.Errorf("value is not JSON-encodable: %w", err)
	}
	if normalized == nil {
		return fmt.Errorf("value is null")
	}

	if err := f.Schema.OpenAPI().VisitJSON(normalized); err != nil {
		return fmt.Errorf("expected %s: %w", f.describeType(), err)
	}

	if len(f.AllowedValues) == 0 {
		return nil
	}
	allowed := allowedLabels(f.AllowedValues)
	if len(allowed) == 0 {
		return nil
	}
	for _, candidate := range valueLabels(normalized) {
		if _, ok := allowed[candidate]; !ok {
			return fmt.Errorf("%q is not one of the allowed values [%s]", candidate, joinSorted(allowed))
		}
	}
	return nil
}

func (f FieldSpec) describeType() string {
	if f.Schema.Type == "" {
		return "any value"
	}
	if f.Schema.Items != "" {
		return f.Schema.Type + " of " + f.Schema.Items
	}
	return f.Schema.Type
}

// toJSONValue round-trips v through encoding/json so Go-native types such as
// int or []string become the float64 / []any shapes the validator expects.
func toJSONValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// labelKeys are the properties the tracker uses to name an enumerated value.
var labelKeys = []string{"value", "name", "id", "key"}

func allowedLabels(values []any) map[string]struct{} {
	out := make(map[string]struct{})
	for _, v := range values {
		switch tv := v.(type) {
		case string:
			out[tv] = struct{}{}
		case map[string]any:
			for _, k := range labelKeys {
				if s, ok := tv[k].(string); ok && s != "" {
					out[s] = struct{}{}
				}
			}
		}
	}
	return out
}

func valueLabels(v any) []string {
	switch tv := v.(type) {
	case string:
		return []string{tv}
	case map[string]any:
		for _, k := range labelKeys {
			if s, ok := tv[k].(string); ok && s != "" {
				return []string{s}
			}
		}
	case []any:
		var out []string
		for _, item := range tv {
			out = append(out, valueLabels(item)...)
		}
		return out
	}
	return nil
}

func joinSorted(set map[string]struct{}) string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}

// FieldSet is the resolved schema for one (project, issue type) pair. Fields
// is keyed by canonical display name. A FieldSet is never mutated after the
// resolver returns it.
type FieldSet struct {
	ProjectKey  string               `json:"project" yaml:"project"`
	IssueType   string               `json:"issueType" yaml:"issue_type"`
	IssueTypeID string               `json:"issueTypeId" yaml:"issue_type_id"`
	Fields      map[string]FieldSpec `json:"fields" yaml:"fields"`
}

// Lookup finds a field by any spelling of its display name.
func (s *FieldSet) Lookup(name string) (FieldSpec, bool) {
	if s == nil {
		return FieldSpec{}, false
	}
	f, ok := s.Fields[Canonicalize(name)]
	return f, ok
}

// ByRemoteID finds a field by its tracker identifier.
func (s *FieldSet) ByRemoteID(id string) (FieldSpec, bool) {
	if s == nil {
		return FieldSpec{}, false
	}
	for _, f := range s.Fields {
		if f.RemoteID == id {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Names returns the canonical field names in sorted order.
func (s *FieldSet) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.Fields))
	for n := range s.Fields {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Required returns the required fields sorted by canonical name.
func (s *FieldSet) Required() []FieldSpec {
	var out []FieldSpec
	for _, n := range s.Names() {
		if f := s.Fields[n]; f.Required {
			out = append(out, f)
		}
	}
	return out
}
