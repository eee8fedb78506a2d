package projectctx

import (
	"encoding/json"
	"strings"
)

// adfNode is one node of an Atlassian Document Format tree.
type adfNode struct {
	Type    string         `json:"type"`
	Text    string         `json:"text"`
	Attrs   map[string]any `json:"attrs"`
	Content []adfNode      `json:"content"`
}

// ADFText flattens a description into plain text. raw may be an ADF document
// (API v3), a JSON string (API v2) or null. Block nodes are joined with a
// single space; headings keep a markdown-style "#" prefix. Marks, media and
// tables are dropped.
func ADFText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var doc adfNode
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ""
	}
	var blocks []string
	collectBlocks(doc.Content, &blocks)
	return strings.Join(blocks, " ")
}

func collectBlocks(nodes []adfNode, out *[]string) {
	for _, n := range nodes {
		switch n.Type {
		case "paragraph":
			if t := inlineText(n.Content); t != "" {
				*out = append(*out, t)
			}
		case "heading":
			level := 1
			if l, ok := n.Attrs["level"].(float64); ok && l >= 1 {
				level = int(l)
			}
			*out = append(*out, strings.Repeat("#", level)+" "+inlineText(n.Content))
		case "bulletList", "orderedList", "listItem", "blockquote", "panel":
			collectBlocks(n.Content, out)
		case "codeBlock":
			if t := inlineText(n.Content); t != "" {
				*out = append(*out, t)
			}
		}
	}
}

func inlineText(nodes []adfNode) string {
	var b strings.Builder
	for _, n := range nodes {
		switch n.Type {
		case "text":
			b.WriteString(n.Text)
		case "hardBreak":
			b.WriteByte(' ')
		case "mention", "emoji":
			if t, ok := n.Attrs["text"].(string); ok {
				b.WriteString(t)
			}
		}
	}
	return strings.TrimSpace(b.String())
}
