package deliberate

import (
	"context"
	"strings"

	"github.com/medquorum/medquorum/internal/core"
	"github.com/medquorum/medquorum/internal/logging"
)

// DefaultDomain substitutes for a routed specialty when the classifier call
// fails; the pipeline proceeds with generalists rather than aborting.
const DefaultDomain = "General Medicine"

const (
	domainsMaxTokens   = 50
	domainsTemperature = 0
)

// Router implements Stage 1: one classification call for the question and
// one for the options, each yielding an ordered DomainSet.
type Router struct {
	gen      core.Generator
	prompts  *PromptRenderer
	numQD    int
	numOD    int
	fallback string
	log      *logging.Logger
}

// NewRouter creates a Stage 1 router.
func NewRouter(gen core.Generator, prompts *PromptRenderer, numQD, numOD int, log *logging.Logger) *Router {
	return &Router{
		gen:      gen,
		prompts:  prompts,
		numQD:    numQD,
		numOD:    numOD,
		fallback: DefaultDomain,
		log:      log,
	}
}

// parseDomains extracts the domain list from a classifier response shaped
// like "Medical Field: A | B | C". Everything after the last colon is split
// on " | "; order and duplicates are preserved as-is. Whatever grammar
// changes come later are confined to this function.
func parseDomains(raw string) core.DomainSet {
	tail := raw
	if i := strings.LastIndex(raw, ":"); i >= 0 {
		tail = raw[i+1:]
	}
	parts := strings.Split(strings.TrimSpace(tail), " | ")
	out := make(core.DomainSet, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

func fallbackDomains(name string, n int) core.DomainSet {
	out := make(core.DomainSet, n)
	for i := range out {
		out[i] = name
	}
	return out
}

// QuestionDomains routes the question text to its specialties.
// On generation failure it substitutes numQD copies of the default domain.
func (r *Router) QuestionDomains(ctx context.Context, q core.Question) core.DomainSet {
	prompt, err := r.prompts.Render("question_domains", map[string]any{
		"Question":   q.Text,
		"NumDomains": r.numQD,
	})
	if err != nil {
		r.log.Error("rendering question-domains prompt", "error", err)
		return fallbackDomains(r.fallback, r.numQD)
	}

	raw := r.gen.Call(ctx, core.CallOptions{
		Stage:       core.StageQuestionDomains,
		SystemRole:  roleQuestionClassifier,
		UserInput:   prompt,
		MaxTokens:   domainsMaxTokens,
		Temperature: domainsTemperature,
	})
	if core.IsFailure(raw) {
		r.log.Warn("question-domain routing failed, using default domains", "idx", q.Idx)
		return fallbackDomains(r.fallback, r.numQD)
	}
	return parseDomains(raw)
}

// OptionDomains routes the candidate answers to their specialties.
// On generation failure it substitutes numOD copies of the default domain.
func (r *Router) OptionDomains(ctx context.Context, q core.Question) core.DomainSet {
	prompt, err := r.prompts.Render("option_domains", map[string]any{
		"Question":   q.Text,
		"Options":    q.OptionsText(),
		"NumDomains": r.numOD,
	})
	if err != nil {
		r.log.Error("rendering option-domains prompt", "error", err)
		return fallbackDomains(r.fallback, r.numOD)
	}

	raw := r.gen.Call(ctx, core.CallOptions{
		Stage:       core.StageOptionDomains,
		SystemRole:  roleOptionClassifier,
		UserInput:   prompt,
		MaxTokens:   domainsMaxTokens,
		Temperature: domainsTemperature,
	})
	if core.IsFailure(raw) {
		r.log.Warn("option-domain routing failed, using default domains", "idx", q.Idx)
		return fallbackDomains(r.fallback, r.numOD)
	}
	return parseDomains(raw)
}
