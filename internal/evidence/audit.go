package evidence

import (
	"strings"

	"github.com/medquorum/medquorum/internal/core"
)

// minLeakTextChars is the shortest normalized text considered meaningful for
// gold-answer / option-text containment checks. Very short strings match too
// freely to be a leak signal.
const minLeakTextChars = 8

// LeakSignals summarizes leakage indicators for one question's snippets.
type LeakSignals struct {
	HasArtifact       bool
	HasGoldAnswerText bool
	HasAnyOptionText  bool
}

func optionTexts(q core.Question) []string {
	out := make([]string, 0, len(q.Options))
	for _, o := range q.Options {
		t := NormalizeWS(o.Text)
		if len(t) >= minLeakTextChars {
			out = append(out, t)
		}
	}
	return out
}

// SignalsForSnippets computes leak signals across a question's snippets,
// using the same artifact patterns as the runtime gate.
func SignalsForSnippets(snips []string, q core.Question) LeakSignals {
	gold := NormalizeWS(q.GoldText)
	opts := optionTexts(q)

	var sig LeakSignals
	for _, s := range snips {
		if HasArtifact(s) {
			sig.HasArtifact = true
		}
		if len(gold) >= minLeakTextChars && strings.Contains(strings.ToLower(s), strings.ToLower(gold)) {
			sig.HasGoldAnswerText = true
		}
		if !sig.HasAnyOptionText {
			for _, opt := range opts {
				if strings.Contains(strings.ToLower(s), strings.ToLower(opt)) {
					sig.HasAnyOptionText = true
					break
				}
			}
		}
	}
	return sig
}

// FilterCfgMode controls offline filtering strictness.
type FilterCfgMode string

const (
	// FilterModeArtifactOnly drops snippets matching QA-artifact patterns.
	FilterModeArtifactOnly FilterCfgMode = "artifact_only"
	// FilterModeStrict additionally drops snippets containing the gold
	// answer text or any option text.
	FilterModeStrict FilterCfgMode = "strict"
)

// OfflineFilterConfig configures the offline leakage filter.
type OfflineFilterConfig struct {
	Mode         FilterCfgMode
	MinSnipChars int
}

// LeakReasons returns every reason a snippet should be dropped offline, in a
// stable order. An empty slice means the snippet is clean.
func LeakReasons(snippet string, q core.Question, cfg OfflineFilterConfig) []string {
	reasons := ArtifactHits(snippet)

	if cfg.Mode == FilterModeStrict {
		gold := NormalizeWS(q.GoldText)
		if len(gold) >= minLeakTextChars && strings.Contains(strings.ToLower(snippet), strings.ToLower(gold)) {
			reasons = append(reasons, "contains_gold_answer_text")
		}
		for _, opt := range optionTexts(q) {
			if strings.Contains(strings.ToLower(snippet), strings.ToLower(opt)) {
				reasons = append(reasons, "contains_option_text")
				break
			}
		}
	}

	if len(NormalizeWS(snippet)) < cfg.MinSnipChars {
		reasons = append(reasons, "too_short")
	}
	return reasons
}
