package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Summary", "summary"},
		{"  Story   Points ", "story points"},
		{"STORY\tPOINTS", "story points"},
		{"Epic Link", "epic link"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Canonicalize(tt.in))
		})
	}
}

func TestCanonicalizeIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		name := rapid.String().Draw(t, "name")
		once := Canonicalize(name)
		if twice := Canonicalize(once); twice != once {
			t.Fatalf("Canonicalize not idempotent: %q -> %q -> %q", name, once, twice)
		}
	})
}

func TestCanonicalizeIgnoresCaseAndSpacing(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		words := rapid.SliceOfN(rapid.StringMatching(`[A-Za-z]{1,8}`), 1, 4).Draw(t, "words")
		sep := rapid.SampledFrom([]string{" ", "  ", "\t", " \n "}).Draw(t, "sep")

		plain := ""
		spaced := "  "
		for i, w := range words {
			if i > 0 {
				plain += " "
				spaced += sep
			}
			plain += w
			spaced += w
		}
		spaced += " "

		if Canonicalize(plain) != Canonicalize(spaced) {
			t.Fatalf("%q and %q canonicalize differently", plain, spaced)
		}
	})
}

func TestCanonicalizeKeys(t *testing.T) {
	got := CanonicalizeKeys(map[string]any{
		"Summary":       "A",
		"Story  Points": 3,
	})
	assert.Equal(t, map[string]any{"summary": "A", "story points": 3}, got)
}

func TestCanonicalizeKeysCollision(t *testing.T) {
	content := map[string]any{
		"summary": "lower",
		"SUMMARY": "upper",
		"Summary": "title",
	}
	// "SUMMARY" sorts first in byte order.
	for range 20 {
		got := CanonicalizeKeys(content)
		assert.Equal(t, "upper", got["summary"])
	}
}
