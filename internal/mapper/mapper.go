// Package mapper turns loosely keyed generated content into tracker create
// payloads for a resolved field schema.
package mapper

import (
	"fmt"
	"sort"

	"github.com/felixgeelhaar/backlog/internal/schema"
)

// Payload is a create-issue "fields" object keyed by remote field ID.
type Payload map[string]any

// Mapper builds the payload for one issue kind. Implementations are pure:
// they never mutate their inputs and return deep-equal results for equal
// inputs.
type Mapper interface {
	Map(content map[string]any, fields *schema.FieldSet, accountID, projectKey, parentKey string) (Payload, error)
}

// Canonical names with special handling.
const (
	fieldPriority    = "priority"
	fieldDescription = "description"
	fieldStoryPoints = "story points"
	fieldEpicLink    = "epic link"

	// storyPointsKey is the raw generator key consulted when the tracker
	// requires story points under a display name the content did not use.
	storyPointsKey = "story_points"
)

// DefaultExempt are the required fields never reported missing because the
// pipeline always supplies them.
var DefaultExempt = []string{"summary", "description", "project", "issuetype", "work type", "reporter"}

// Options tune every mapper.
type Options struct {
	// Exempt lists field names or remote IDs that are never reported as
	// missing. Nil means DefaultExempt.
	Exempt []string
	// StrictTypes checks copied values against each field's schema and
	// allowed values.
	StrictTypes bool
}

func (o Options) exemptSet() map[string]bool {
	names := o.Exempt
	if names == nil {
		names = DefaultExempt
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[schema.Canonicalize(n)] = true
	}
	return set
}

// build holds the state of one Map call.
type build struct {
	kind    string
	fields  *schema.FieldSet
	lookup  map[string]any
	payload Payload
	// copied records remote IDs whose value came from content and is
	// eligible for strict type checks.
	copied map[string]bool
}

// newBuild runs the shared first steps: canonicalize content and copy every
// value whose canonical name matches a field, keyed by remote ID.
func newBuild(kind string, content map[string]any, fields *schema.FieldSet, richDescription bool) *build {
	b := &build{
		kind:    kind,
		fields:  fields,
		lookup:  schema.CanonicalizeKeys(content),
		payload: make(Payload),
		copied:  make(map[string]bool),
	}
	if fields == nil {
		return b
	}

	for _, name := range fields.Names() {
		value, ok := b.lookup[name]
		if !ok {
			continue
		}
		spec := fields.Fields[name]
		switch {
		case name == fieldPriority:
			b.payload[spec.RemoteID] = map[string]any{"name": value}
			b.copied[spec.RemoteID] = true
		case name == fieldDescription && richDescription:
			b.payload[spec.RemoteID] = ADFDocument(value)
		default:
			b.payload[spec.RemoteID] = value
			b.copied[spec.RemoteID] = true
		}
	}
	return b
}

// inject sets the structural fields every issue carries.
func (b *build) inject(accountID, projectKey string) {
	b.payload["reporter"] = map[string]any{"id": accountID}
	b.payload["project"] = map[string]any{"key": projectKey}
}

func (b *build) setParent(parentKey string) {
	b.payload["parent"] = map[string]any{"key": parentKey}
}

// finish runs required-field and optional type validation.
func (b *build) finish(opts Options) (Payload, error) {
	if b.fields == nil {
		return b.payload, nil
	}

	exempt := opts.exemptSet()
	var missing []schema.FieldSpec
	for _, spec := range b.fields.Required() {
		if _, ok := b.payload[spec.RemoteID]; ok {
			continue
		}
		if exempt[spec.Canonical()] || exempt[schema.Canonicalize(spec.RemoteID)] {
			continue
		}
		missing = append(missing, spec)
	}
	if len(missing) > 0 {
		return nil, newMissingRequiredFieldsError(b.kind, missing)
	}

	if opts.StrictTypes {
		if err := b.checkTypes(); err != nil {
			return nil, err
		}
	}
	return b.payload, nil
}

func (b *build) checkTypes() error {
	ids := make([]string, 0, len(b.copied))
	for id := range b.copied {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var problems []FieldProblem
	for _, id := range ids {
		spec, ok := b.fields.ByRemoteID(id)
		if !ok {
			continue
		}
		if err := spec.Check(b.payload[id]); err != nil {
			problems = append(problems, FieldProblem{Field: spec.Canonical(), RemoteID: id, Reason: err.Error()})
		}
	}
	if len(problems) > 0 {
		return &InvalidFieldValuesError{Kind: b.kind, Problems: problems}
	}
	return nil
}

// ADFDocument wraps text in an Atlassian Document Format document with a
// single paragraph. Line breaks and markup are kept as literal text, so
// multi-paragraph input is flattened into one paragraph.
func ADFDocument(value any) map[string]any {
	var text string
	switch v := value.(type) {
	case nil:
	case string:
		text = v
	default:
		text = fmt.Sprint(v)
	}
	paragraph := map[string]any{"type": "paragraph"}
	if text != "" {
		paragraph["content"] = []any{map[string]any{"type": "text", "text": text}}
	}
	return map[string]any{
		"type":    "doc",
		"version": 1,
		"content": []any{paragraph},
	}
}
