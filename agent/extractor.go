package agent

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// FallbackCaption replaces a reply that contained nothing but chart
// references once those are stripped.
const FallbackCaption = "I generated a plot for you. See below."

// ArtifactExtractor finds chart file references embedded in planner prose
// and strips them out of the displayed reply. The chart operation already
// reports its file through a structured result field; the extractor covers
// the paths the planner chooses to repeat in text, in any of three forms:
//
//	raw:      /tmp/plot_ab12cd.png
//	sandbox:  sandbox:/tmp/plot_ab12cd.png
//	markdown: ![chart](/tmp/plot_ab12cd.png) or ![chart](sandbox:/tmp/...)
type ArtifactExtractor struct {
	dir      string
	path     *regexp.Regexp
	sandbox  *regexp.Regexp
	markdown *regexp.Regexp
	logger   func(string)
}

var (
	spaceRuns   = regexp.MustCompile(`[ \t]{2,}`)
	newlineRuns = regexp.MustCompile(`\n{3,}`)
)

// NewArtifactExtractor compiles patterns anchored on the artifact directory,
// so only files this application could have written are treated as chart
// references. An empty dir means the system temp directory.
func NewArtifactExtractor(dir string) *ArtifactExtractor {
	d := strings.TrimSpace(dir)
	if d == "" {
		d = os.TempDir()
	}
	d = strings.TrimRight(d, "/")
	quoted := regexp.QuoteMeta(d)

	pathExpr := quoted + `/plot_[a-f0-9]+\.png`
	return &ArtifactExtractor{
		dir:      d,
		path:     regexp.MustCompile(pathExpr),
		sandbox:  regexp.MustCompile(`sandbox:` + pathExpr),
		markdown: regexp.MustCompile(`!\[[^\]]*\]\(\s*(?:sandbox:)?` + pathExpr + `\s*\)`),
	}
}

// Dir returns the artifact directory the patterns are anchored on.
func (e *ArtifactExtractor) Dir() string {
	return e.dir
}

// SetLogger sets an optional debug log callback.
func (e *ArtifactExtractor) SetLogger(logger func(string)) {
	e.logger = logger
}

func (e *ArtifactExtractor) log(msg string) {
	if e.logger != nil {
		e.logger(msg)
	}
}

// First returns the first chart path mentioned in text. The raw pattern
// also matches inside sandbox and markdown forms, so scan order is simply
// text order.
func (e *ArtifactExtractor) First(text string) (string, bool) {
	m := e.path.FindString(text)
	if m == "" {
		return "", false
	}
	e.log(fmt.Sprintf("extracted chart reference %s", m))
	return m, true
}

// All returns every chart path mentioned in text, in order of appearance,
// without duplicates.
func (e *ArtifactExtractor) All(text string) []string {
	matches := e.path.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

// Strip removes chart references from text so the user never sees raw file
// paths. Text without references passes through untouched. When stripping
// leaves nothing, the fallback caption is returned instead of an empty
// reply. Strip is idempotent.
func (e *ArtifactExtractor) Strip(text string) string {
	if !e.path.MatchString(text) {
		return text
	}
	cleaned := e.markdown.ReplaceAllString(text, "")
	cleaned = e.sandbox.ReplaceAllString(cleaned, "")
	cleaned = e.path.ReplaceAllString(cleaned, "")
	cleaned = tidy(cleaned)
	if cleaned == "" {
		return FallbackCaption
	}
	return cleaned
}

// tidy collapses the whitespace gaps stripping leaves behind.
func tidy(s string) string {
	s = spaceRuns.ReplaceAllString(s, " ")
	s = newlineRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
