package projectctx

import (
	"fmt"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/felixgeelhaar/backlog/internal/jira"
)

const (
	maxExamples  = 3
	exampleWidth = 200
	topLabels    = 5
)

// NoHistory is the guide returned for a project without prior issues.
const NoHistory = "No prior issues found; follow standard Jira defaults."

// Sample is the light projection of an existing issue used for style analysis.
type Sample struct {
	Key         string   `json:"key" yaml:"key"`
	IssueType   string   `json:"issueType" yaml:"issue_type"`
	Summary     string   `json:"summary" yaml:"summary"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Labels      []string `json:"labels,omitempty" yaml:"labels,omitempty"`
}

// SampleOf projects a search hit, flattening its description to text.
func SampleOf(is jira.Issue) Sample {
	return Sample{
		Key:         is.Key,
		IssueType:   is.Fields.IssueType.Name,
		Summary:     is.Fields.Summary,
		Description: ADFText(is.Fields.Description),
		Labels:      slices.Clone(is.Fields.Labels),
	}
}

// StyleGuide condenses existing issues into a short house-style description:
// summary length, common labels, summary tone and a few representative epics
// and stories.
func StyleGuide(samples []Sample) string {
	if len(samples) == 0 {
		return NoHistory
	}
	var b strings.Builder
	b.WriteString("=== Jira Ticket Style Guide ===\n")
	b.WriteString(statsSection(samples))
	b.WriteString("\n\n=== Representative Examples ===\n")
	b.WriteString(examplesSection(samples))
	return b.String()
}

func statsSection(samples []Sample) string {
	var words, summaries, titled int
	for _, s := range samples {
		fields := strings.Fields(s.Summary)
		if len(fields) == 0 {
			continue
		}
		summaries++
		words += len(fields)
		if isTitle(fields[0]) {
			titled++
		}
	}
	avg := 0.0
	if summaries > 0 {
		avg = float64(words) / float64(summaries)
	}
	tone := "mixed phrasing"
	if summaries > 0 && float64(titled)/float64(summaries) > 0.5 {
		tone = "imperative-style summaries"
	}

	labels := "none"
	if top := topLabelCounts(samples, topLabels); len(top) > 0 {
		labels = strings.Join(top, ", ")
	}

	return fmt.Sprintf("- Avg summary length: %.1f words\n- Top project labels: %s\n- Summary tone: %s",
		avg, labels, tone)
}

// topLabelCounts returns "label (n)" entries, most frequent first; ties keep
// first-seen order.
func topLabelCounts(samples []Sample, n int) []string {
	counts := map[string]int{}
	var order []string
	for _, s := range samples {
		for _, l := range s.Labels {
			if counts[l] == 0 {
				order = append(order, l)
			}
			counts[l]++
		}
	}
	slices.SortStableFunc(order, func(a, b string) int { return counts[b] - counts[a] })
	out := make([]string, 0, min(n, len(order)))
	for _, l := range order[:min(n, len(order))] {
		out = append(out, fmt.Sprintf("%s (%d)", l, counts[l]))
	}
	return out
}

func examplesSection(samples []Sample) string {
	var chosen []Sample
	for _, kind := range []string{"epic", "story"} {
		var group []Sample
		for _, s := range samples {
			if strings.EqualFold(s.IssueType, kind) {
				group = append(group, s)
			}
		}
		slices.SortStableFunc(group, func(a, b Sample) int {
			return len(b.Description) - len(a.Description)
		})
		chosen = append(chosen, group[:min(maxExamples, len(group))]...)
	}

	entries := make([]string, 0, len(chosen))
	for _, s := range chosen {
		desc := s.Description
		if desc == "" {
			desc = "<no description>"
		}
		entries = append(entries, fmt.Sprintf("[%s] %s\n%s", s.IssueType, s.Summary, Shorten(desc, exampleWidth)))
	}
	if len(entries) == 0 {
		return "No epics or stories to show."
	}
	return strings.Join(entries, "\n\n")
}

// Shorten collapses whitespace and truncates text to at most width runes at a
// word boundary, ending in an ellipsis when anything was cut.
func Shorten(text string, width int) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= width {
		return text
	}
	const ellipsis = "…"
	var b strings.Builder
	for _, w := range strings.Fields(text) {
		next := utf8.RuneCountInString(w)
		if b.Len() > 0 {
			next++
		}
		if utf8.RuneCountInString(b.String())+next+1 > width {
			break
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(w)
	}
	if b.Len() == 0 {
		return ellipsis
	}
	return b.String() + ellipsis
}

// isTitle reports whether word starts with an upper-case letter and has no
// other upper-case letters, e.g. "Add" but not "API" or "add".
func isTitle(word string) bool {
	first, size := utf8.DecodeRuneInString(word)
	if !unicode.IsUpper(first) {
		return false
	}
	for _, r := range word[size:] {
		if unicode.IsUpper(r) {
			return false
		}
	}
	return true
}
