package agent

import (
	"strings"
	"testing"

	"pgregory.net/rapid"
)

// Property: stripping chart references is idempotent, for any composition
// of prose and reference forms.
func TestProperty_StripIdempotent(t *testing.T) {
	e := NewArtifactExtractor("/tmp")
	fragments := []string{
		"The mean age is 29.7.",
		"/tmp/plot_ab12cd.png",
		"sandbox:/tmp/plot_ab12cd.png",
		"![chart](/tmp/plot_1a.png)",
		"![age distribution](sandbox:/tmp/plot_2b.png)",
		"See below.",
		"\n\n",
		"",
	}

	rapid.Check(t, func(t *rapid.T) {
		parts := rapid.SliceOfN(rapid.SampledFrom(fragments), 0, 8).Draw(t, "parts")
		text := strings.Join(parts, " ")

		once := e.Strip(text)
		twice := e.Strip(once)
		if once != twice {
			t.Fatalf("strip not idempotent on %q: %q vs %q", text, once, twice)
		}
		if e.path.MatchString(once) {
			t.Fatalf("stripped text still contains a reference: %q", once)
		}
	})
}

// Property: First agrees with the head of All whenever references exist.
func TestProperty_FirstMatchesAll(t *testing.T) {
	e := NewArtifactExtractor("/tmp")
	fragments := []string{
		"some text",
		"/tmp/plot_aa.png",
		"/tmp/plot_bb.png",
		"![x](/tmp/plot_cc.png)",
		"sandbox:/tmp/plot_dd.png",
	}

	rapid.Check(t, func(t *rapid.T) {
		parts := rapid.SliceOfN(rapid.SampledFrom(fragments), 0, 6).Draw(t, "parts")
		text := strings.Join(parts, " ")

		first, ok := e.First(text)
		all := e.All(text)
		if !ok {
			if len(all) != 0 {
				t.Fatalf("First found nothing but All returned %v", all)
			}
			return
		}
		if len(all) == 0 || all[0] != first {
			t.Fatalf("First %q disagrees with All %v", first, all)
		}
	})
}
