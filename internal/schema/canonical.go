package schema

import (
	"strings"

	"golang.org/x/text/cases"
)

// Canonicalize normalizes a field display name into the join key shared by
// the resolver and the mappers: Unicode case-folded, trimmed, and with every
// run of internal whitespace collapsed to a single space.
//
// Canonicalize is idempotent: Canonicalize(Canonicalize(n)) == Canonicalize(n).
func Canonicalize(name string) string {
	// cases.Caser is stateful, so each call gets its own.
	folded := cases.Fold().String(name)
	return strings.Join(strings.Fields(folded), " ")
}

// CanonicalizeKeys returns a copy of content keyed by canonical name. When two
// keys collide, the one that sorts first in its original spelling wins so the
// result does not depend on map iteration order.
func CanonicalizeKeys(content map[string]any) map[string]any {
	out := make(map[string]any, len(content))
	winners := make(map[string]string, len(content))
	for k, v := range content {
		ck := Canonicalize(k)
		if prev, seen := winners[ck]; seen && prev < k {
			continue
		}
		winners[ck] = k
		out[ck] = v
	}
	return out
}
