package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldSpecCheck(t *testing.T) {
	tests := []struct {
		name    string
		spec    FieldSpec
		value   any
		wantErr string
	}{
		{
			name:  "string ok",
			spec:  FieldSpec{Name: "Summary", Schema: Descriptor{Type: "string"}},
			value: "Login page",
		},
		{
			name:    "string rejects number",
			spec:    FieldSpec{Name: "Summary", Schema: Descriptor{Type: "string"}},
			value:   5,
			wantErr: "expected string",
		},
		{
			name:  "number accepts int",
			spec:  FieldSpec{Name: "Story Points", Schema: Descriptor{Type: "number"}},
			value: 3,
		},
		{
			name:    "number rejects string",
			spec:    FieldSpec{Name: "Story Points", Schema: Descriptor{Type: "number"}},
			value:   "three",
			wantErr: "expected number",
		},
		{
			name:  "array of strings",
			spec:  FieldSpec{Name: "Labels", Schema: Descriptor{Type: "array", Items: "string"}},
			value: []string{"auth", "ui"},
		},
		{
			name:    "array items checked",
			spec:    FieldSpec{Name: "Labels", Schema: Descriptor{Type: "array", Items: "string"}},
			value:   []any{"auth", 7},
			wantErr: "expected array of string",
		},
		{
			name:  "option object",
			spec:  FieldSpec{Name: "Priority", Schema: Descriptor{Type: "priority"}},
			value: map[string]string{"name": "High"},
		},
		{
			name:    "option rejects bare string",
			spec:    FieldSpec{Name: "Priority", Schema: Descriptor{Type: "priority"}},
			value:   "High",
			wantErr: "expected priority",
		},
		{
			name:  "unknown type accepts anything",
			spec:  FieldSpec{Name: "Team", Schema: Descriptor{Type: "team"}},
			value: map[string]any{"id": 1},
		},
		{
			name:    "null rejected",
			spec:    FieldSpec{Name: "Team"},
			value:   nil,
			wantErr: "null",
		},
		{
			name: "allowed value ok",
			spec: FieldSpec{
				Name:          "Priority",
				Schema:        Descriptor{Type: "priority"},
				AllowedValues: []any{map[string]any{"name": "High"}, map[string]any{"name": "Low"}},
			},
			value: map[string]any{"name": "High"},
		},
		{
			name: "allowed value violated",
			spec: FieldSpec{
				Name:          "Priority",
				Schema:        Descriptor{Type: "priority"},
				AllowedValues: []any{map[string]any{"name": "High"}, map[string]any{"name": "Low"}},
			},
			value:   map[string]any{"name": "Urgent"},
			wantErr: `"Urgent" is not one of the allowed values [High, Low]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Check(tt.value)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFieldSetLookups(t *testing.T) {
	fs := &FieldSet{
		ProjectKey: "ABC",
		IssueType:  "Story",
		Fields: map[string]FieldSpec{
			"summary":      {RemoteID: "summary", Name: "Summary", Required: true},
			"story points": {RemoteID: "customfield_10016", Name: "Story Points", Required: true},
			"labels":       {RemoteID: "labels", Name: "Labels"},
		},
	}

	f, ok := fs.Lookup("  STORY points")
	require.True(t, ok)
	assert.Equal(t, "customfield_10016", f.RemoteID)

	f, ok = fs.ByRemoteID("labels")
	require.True(t, ok)
	assert.Equal(t, "Labels", f.Name)

	_, ok = fs.ByRemoteID("customfield_1")
	assert.False(t, ok)

	assert.Equal(t, []string{"labels", "story points", "summary"}, fs.Names())

	var required []string
	for _, r := range fs.Required() {
		required = append(required, r.RemoteID)
	}
	assert.Equal(t, []string{"customfield_10016", "summary"}, required)
}

func TestNilFieldSet(t *testing.T) {
	var fs *FieldSet
	_, ok := fs.Lookup("summary")
	assert.False(t, ok)
	assert.Nil(t, fs.Names())
	assert.Empty(t, fs.Required())
}
