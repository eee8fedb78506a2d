package plan

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// JSONSchema describes the plan document. The generator hands it to the model
// as the required output shape and validates replies against it.
func JSONSchema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		ExpandedStruct: true,
		Anonymous:      true,
	}
	s := r.Reflect(&Plan{})
	s.Title = "Backlog plan"
	s.Description = "Initiative, epic, story and task tree to publish into an issue tracker"
	return s
}

// JSONSchemaBytes returns JSONSchema rendered as indented JSON.
func JSONSchemaBytes() ([]byte, error) {
	return json.MarshalIndent(JSONSchema(), "", "  ")
}
