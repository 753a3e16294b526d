package evidence

import (
	"fmt"
	"regexp"
	"strings"
)

// FilterMode controls runtime snippet filtering.
type FilterMode string

const (
	FilterOff          FilterMode = "off"
	FilterArtifactOnly FilterMode = "artifact_only"
)

// ValidFilterMode reports whether m is a recognized filter mode.
func ValidFilterMode(m FilterMode) bool {
	return m == FilterOff || m == FilterArtifactOnly
}

// FormatConfig controls evidence context formatting.
type FormatConfig struct {
	TopK         int        // max snippets considered; <= 0 means all
	MaxChars     int        // hard cap on formatted length
	MinSnipChars int        // minimum normalized snippet length to keep
	FilterMode   FilterMode // off | artifact_only
}

// DefaultFormatConfig returns the default gate configuration.
func DefaultFormatConfig() FormatConfig {
	return FormatConfig{
		TopK:         5,
		MaxChars:     2500,
		MinSnipChars: 80,
		FilterMode:   FilterArtifactOnly,
	}
}

var wsRe = regexp.MustCompile(`\s+`)

// NormalizeWS collapses all whitespace runs to single spaces and trims.
func NormalizeWS(s string) string {
	return wsRe.ReplaceAllString(strings.TrimSpace(s), " ")
}

func shouldDrop(snippet string, cfg FormatConfig) bool {
	if len(NormalizeWS(snippet)) < cfg.MinSnipChars {
		return true
	}
	if cfg.FilterMode == FilterOff {
		return false
	}
	return HasArtifact(snippet)
}

// FormatContext renders a record's snippets as a prompt-insertable block:
//
//	[E1] ...
//	[E2] ...
//
// Surviving snippets are numbered from 1. Lines accumulate until the next
// one would push the total past MaxChars; a partial line is never emitted.
// Returns "" when nothing survives, which callers treat as "no grounding
// available", not an error. Pure function of its inputs.
func FormatContext(rec Record, cfg FormatConfig) string {
	snips := rec.Snippets
	if cfg.TopK > 0 && len(snips) > cfg.TopK {
		snips = snips[:cfg.TopK]
	}

	kept := make([]string, 0, len(snips))
	for _, s := range snips {
		if shouldDrop(s, cfg) {
			continue
		}
		kept = append(kept, NormalizeWS(s))
	}
	if len(kept) == 0 {
		return ""
	}

	var b strings.Builder
	total := 0
	for i, s := range kept {
		line := fmt.Sprintf("[E%d] %s", i+1, s)
		if total+len(line)+1 > cfg.MaxChars {
			break
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		total += len(line) + 1
	}
	return strings.TrimSpace(b.String())
}
