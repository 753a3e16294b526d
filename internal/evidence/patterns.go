// Package evidence implements the grounding-evidence gate: loading
// pre-retrieved snippet caches, filtering QA-format artifacts, and formatting
// bounded evidence context for prompt injection. The artifact patterns here
// are shared between the runtime gate and the offline audit/filter commands
// so measured leakage rates reflect exactly what the runtime would filter.
package evidence

import "regexp"

// ArtifactPattern is one named textual signature indicating a snippet was
// extracted from an already-answered QA item.
type ArtifactPattern struct {
	Name string
	Re   *regexp.Regexp
}

// QAArtifactPatterns are the signatures of QA-format leakage in evidence
// snippets: option labels, answer/explanation headers, parenthesized letter
// choices, and lines starting with a bare letter choice marker.
var QAArtifactPatterns = []ArtifactPattern{
	{"option_label", regexp.MustCompile(`(?i)\bOption\s*[A-E]\s*:`)},
	{"options_header", regexp.MustCompile(`(?i)\bOptions?\s*:`)},
	{"answer_header", regexp.MustCompile(`(?i)\bAnswer\s*:`)},
	{"correct_answer_header", regexp.MustCompile(`(?i)\bCorrect\s*answer\s*:`)},
	{"explanation_header", regexp.MustCompile(`(?i)\bExplanation\s*:`)},
	{"paren_choice", regexp.MustCompile(`\([A-E]\)`)},
	{"choice_line", regexp.MustCompile(`(?im)^\s*[A-E]\s*[.)]\s+`)},
}

// HasArtifact reports whether text matches any QA-artifact pattern.
func HasArtifact(text string) bool {
	for _, p := range QAArtifactPatterns {
		if p.Re.MatchString(text) {
			return true
		}
	}
	return false
}

// ArtifactHits returns the names of all QA-artifact patterns matching text.
func ArtifactHits(text string) []string {
	var hits []string
	for _, p := range QAArtifactPatterns {
		if p.Re.MatchString(text) {
			hits = append(hits, p.Name)
		}
	}
	return hits
}

// MatchesAny reports whether text matches any of the given patterns.
func MatchesAny(text string, patterns []ArtifactPattern) bool {
	for _, p := range patterns {
		if p.Re.MatchString(text) {
			return true
		}
	}
	return false
}
