package domain

import (
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func genStandardPriority() *rapid.Generator[Priority] {
	return rapid.SampledFrom(StandardPriorities)
}

func genCasing(s string) *rapid.Generator[string] {
	return rapid.Custom(func(t *rapid.T) string {
		var b strings.Builder
		for _, r := range s {
			if rapid.Bool().Draw(t, "upper") {
				b.WriteString(strings.ToUpper(string(r)))
			} else {
				b.WriteString(strings.ToLower(string(r)))
			}
		}
		return b.String()
	})
}

// Any casing of a standard label resolves to the canonical spelling.
func TestPriority_CasingNormalizes(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		want := genStandardPriority().Draw(t, "priority")
		input := genCasing(string(want)).Draw(t, "input")

		got, err := NewPriority(input, StandardPriorities...)
		if err != nil {
			t.Fatalf("NewPriority(%q) failed: %v", input, err)
		}
		if got != want {
			t.Fatalf("NewPriority(%q) = %q, want %q", input, got, want)
		}
	})
}

func TestPriority_UnknownLabelsRejected(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		label := rapid.StringMatching(`[A-Za-z]{1,10}`).Filter(func(s string) bool {
			return priorityRank(Priority(s)) == 0
		}).Draw(t, "label")

		if _, err := NewPriority(label, StandardPriorities...); err == nil {
			t.Fatalf("NewPriority(%q) should fail", label)
		}
	})
}

// IsHigherThan is a strict order on the standard scale.
func TestPriority_Ordering(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := genStandardPriority().Draw(t, "a")
		b := genStandardPriority().Draw(t, "b")

		if a.IsHigherThan(b) && b.IsHigherThan(a) {
			t.Fatalf("%s and %s are both higher than each other", a, b)
		}
		if a == b && a.IsHigherThan(b) {
			t.Fatalf("%s is higher than itself", a)
		}
	})
}
