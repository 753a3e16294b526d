package deliberate

import (
	"context"
	"regexp"
	"strings"

	"github.com/medquorum/medquorum/internal/core"
	"github.com/medquorum/medquorum/internal/logging"
)

const decisionMaxTokens = 2500

// Decider implements Stage 5: extracting a final answer from the
// consensus report.
type Decider struct {
	gen     core.Generator
	prompts *PromptRenderer
	log     *logging.Logger
}

func NewDecider(gen core.Generator, prompts *PromptRenderer, log *logging.Logger) *Decider {
	return &Decider{gen: gen, prompts: prompts, log: log}
}

// Decision is the outcome of the final stage. Answer is a single option
// label, or empty when none could be extracted. Raw carries the full
// model output for auditing.
type Decision struct {
	Answer string
	Raw    string
}

var (
	answerHeaderRe = regexp.MustCompile(`(?i)answer\s*:?\s*\(?\s*([A-E])\b`)
	parenChoiceRe  = regexp.MustCompile(`\(([A-E])\)`)
)

// parseAnswer extracts the chosen option label from a decision response.
// The labeled "Answer:" form wins; a bare parenthesized letter is accepted
// only when it is unambiguous. Anything else yields an empty label.
func parseAnswer(raw string) string {
	if m := answerHeaderRe.FindStringSubmatch(raw); m != nil {
		return strings.ToUpper(m[1])
	}
	matches := parenChoiceRe.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return ""
	}
	label := strings.ToUpper(matches[0][1])
	for _, m := range matches[1:] {
		if strings.ToUpper(m[1]) != label {
			return ""
		}
	}
	return label
}

// Decide asks for the final answer given the settled report. A failed call
// produces an empty answer with the sentinel preserved in Raw.
func (d *Decider) Decide(ctx context.Context, q core.Question, settled string) Decision {
	prompt, err := d.prompts.Render("decision", map[string]any{
		"Report": settled,
	})
	if err != nil {
		d.log.Error("rendering decision prompt", "error", err)
		return Decision{}
	}

	raw := d.gen.Call(ctx, core.CallOptions{
		Stage:     core.StageDecision,
		UserInput: prompt,
		MaxTokens: decisionMaxTokens,
	})
	if core.IsFailure(raw) {
		d.log.Warn("decision call failed", "idx", q.Idx)
		return Decision{Raw: raw}
	}

	answer := parseAnswer(raw)
	if answer == "" {
		d.log.Warn("no answer label in decision output", "idx", q.Idx)
	}
	return Decision{Answer: answer, Raw: strings.TrimSpace(raw)}
}
