// Package report parses and composes synthesized deliberation reports.
// Parsing is deliberately tolerant: generation output drifts, and a missing
// section header must degrade to whole-text fallback instead of failing.
package report

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/medquorum/medquorum/internal/core"
)

// NoReport is the total-analysis text substituted when generation failed.
const NoReport = "There is no synthesized report."

var (
	keyKnowledgeRe  = regexp.MustCompile(`(?is)key\s*knowledge\s*:\s*(.*?)(?:\n\s*total\s*analysis\s*:|$)`)
	totalAnalysisRe = regexp.MustCompile(`(?is)total\s*analysis\s*:\s*(.*)$`)
)

// Parse extracts the key-knowledge and total-analysis sections from a raw
// synthesis response.
//
// The failure sentinel yields ("", NoReport). A missing "total analysis:"
// header yields the whole trimmed input as total analysis. Section matching
// is case-insensitive.
func Parse(raw string) (keyKnowledge, totalAnalysis string) {
	if core.IsFailure(raw) {
		return "", NoReport
	}

	if m := keyKnowledgeRe.FindStringSubmatch(raw); m != nil {
		keyKnowledge = strings.TrimSpace(m[1])
	}
	if m := totalAnalysisRe.FindStringSubmatch(raw); m != nil {
		totalAnalysis = strings.TrimSpace(m[1])
	} else {
		totalAnalysis = strings.TrimSpace(raw)
	}
	return keyKnowledge, totalAnalysis
}

// Compose builds the canonical synthesized-report string: the question and
// options restated verbatim, then the key-knowledge block (when present),
// then the total-analysis block, in that fixed order.
func Compose(question, options, keyKnowledge, totalAnalysis string) string {
	if keyKnowledge != "" {
		return fmt.Sprintf("Question: %s \nOptions: %s \nKey Knowledge: %s \nTotal Analysis: %s \n",
			question, options, keyKnowledge, totalAnalysis)
	}
	return fmt.Sprintf("Question: %s \nOptions: %s \nTotal Analysis: %s \n",
		question, options, totalAnalysis)
}

// ParseAndCompose parses a raw synthesis response and composes the report
// for a question in one step.
func ParseAndCompose(q core.Question, raw string) string {
	key, total := Parse(raw)
	return Compose(q.Text, q.OptionsText(), key, total)
}
