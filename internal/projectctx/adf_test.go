package projectctx

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestADFText(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"null", `null`, ""},
		{"empty", ``, ""},
		{"v2 string", `"  plain text  "`, "plain text"},
		{"not json", `{`, ""},
		{
			name: "paragraphs and heading",
			raw: `{"type":"doc","version":1,"content":[
				{"type":"heading","attrs":{"level":2},"content":[{"type":"text","text":"Goal"}]},
				{"type":"paragraph","content":[{"type":"text","text":"Ship "},{"type":"text","text":"checkout","marks":[{"type":"strong"}]}]},
				{"type":"paragraph","content":[]}
			]}`,
			want: "## Goal Ship checkout",
		},
		{
			name: "lists and breaks",
			raw: `{"type":"doc","content":[
				{"type":"bulletList","content":[
					{"type":"listItem","content":[{"type":"paragraph","content":[{"type":"text","text":"one"}]}]},
					{"type":"listItem","content":[{"type":"paragraph","content":[{"type":"text","text":"two"},{"type":"hardBreak"},{"type":"text","text":"lines"}]}]}
				]},
				{"type":"mediaSingle","content":[{"type":"media"}]},
				{"type":"paragraph","content":[{"type":"mention","attrs":{"text":"@ann"}}]}
			]}`,
			want: "one two lines @ann",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ADFText(json.RawMessage(tt.raw)))
		})
	}
}
