package projectctx

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/backlog/internal/schema"
)

// maxAllowedShown caps how many allowed values are listed per field.
const maxAllowedShown = 8

// NoFieldConstraints is the guide returned when no field sets are known.
const NoFieldConstraints = "No field constraints provided."

// FieldsGuide describes the required fields of each issue type so generated
// content can fill them. Nil sets are skipped.
func FieldsGuide(sets ...*schema.FieldSet) string {
	var sections []string
	for _, fs := range sets {
		if fs == nil {
			continue
		}
		sections = append(sections, fieldSection(fs))
	}
	if len(sections) == 0 {
		return NoFieldConstraints
	}
	return strings.Join(sections, "\n\n")
}

func fieldSection(fs *schema.FieldSet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s) required fields:", fs.IssueType, fs.ProjectKey)
	required := fs.Required()
	if len(required) == 0 {
		b.WriteString(" none")
	}
	for _, f := range required {
		b.WriteString("\n- ")
		b.WriteString(DescribeField(f))
	}
	return b.String()
}

// DescribeField renders one field as `Name (type) one of: a, b`.
func DescribeField(f schema.FieldSpec) string {
	var b strings.Builder
	b.WriteString(f.Name)
	if t := f.Schema.Type; t != "" {
		if f.Schema.Items != "" {
			t += " of " + f.Schema.Items
		}
		fmt.Fprintf(&b, " (%s)", t)
	}
	if names := allowedNames(f.AllowedValues); len(names) > 0 {
		shown := names[:min(maxAllowedShown, len(names))]
		b.WriteString(" one of: ")
		b.WriteString(strings.Join(shown, ", "))
		if len(names) > len(shown) {
			fmt.Fprintf(&b, " (+%d more)", len(names)-len(shown))
		}
	}
	return b.String()
}

func allowedNames(values []any) []string {
	var out []string
	for _, v := range values {
		switch tv := v.(type) {
		case string:
			out = append(out, tv)
		case map[string]any:
			for _, k := range []string{"value", "name"} {
				if s, ok := tv[k].(string); ok && s != "" {
					out = append(out, s)
					break
				}
			}
		}
	}
	return out
}
