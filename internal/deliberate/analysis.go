package deliberate

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/medquorum/medquorum/internal/core"
	"github.com/medquorum/medquorum/internal/logging"
)

const analysisMaxTokens = 300

// Analyzer implements Stage 2: one analysis call per routed domain, with the
// formatted evidence context injected into each prompt when non-empty.
type Analyzer struct {
	gen     core.Generator
	prompts *PromptRenderer
	workers int
	log     *logging.Logger
}

// NewAnalyzer creates a Stage 2 analyzer. workers bounds the per-domain
// fan-out; 1 means strictly sequential calls.
func NewAnalyzer(gen core.Generator, prompts *PromptRenderer, workers int, log *logging.Logger) *Analyzer {
	if workers < 1 {
		workers = 1
	}
	return &Analyzer{gen: gen, prompts: prompts, workers: workers, log: log}
}

// fanOut runs fn once per domain, at most workers at a time, and returns the
// outputs indexed by domain position so the result order always follows the
// DomainSet order regardless of completion order.
func (a *Analyzer) fanOut(ctx context.Context, domains core.DomainSet, fn func(ctx context.Context, i int, domain string) string) []string {
	results := make([]string, len(domains))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, domain := range domains {
		i, domain := i, domain
		g.Go(func() error {
			results[i] = fn(gctx, i, domain)
			return nil
		})
	}
	// fn never returns an error: a failed call yields the sentinel, which the
	// caller handles per stage.
	_ = g.Wait()
	return results
}

// QuestionAnalyses produces one analysis per question domain, in DomainSet
// order, including duplicate domains.
func (a *Analyzer) QuestionAnalyses(ctx context.Context, q core.Question, domains core.DomainSet, evidence string) core.AnalysisMap {
	raws := a.fanOut(ctx, domains, func(ctx context.Context, i int, domain string) string {
		prompt, err := a.prompts.Render("question_analysis", map[string]any{
			"Question": q.Text,
			"Domain":   domain,
			"Evidence": evidence,
		})
		if err != nil {
			a.log.Error("rendering question-analysis prompt", "domain", domain, "error", err)
			return core.FailureSentinel
		}
		return a.gen.Call(ctx, core.CallOptions{
			Stage:      core.StageQuestionAnalysis,
			SystemRole: fmt.Sprintf(roleDomainAnalyst, domain),
			UserInput:  prompt,
			MaxTokens:  analysisMaxTokens,
		})
	})
	return zipAnalyses(domains, raws)
}

// OptionAnalyses produces one analysis per option domain, in DomainSet
// order. Each prompt carries the question analyses so the option experts see
// what the question experts concluded.
func (a *Analyzer) OptionAnalyses(ctx context.Context, q core.Question, domains core.DomainSet, questionAnalyses core.AnalysisMap, evidence string) core.AnalysisMap {
	qaText := renderAnalysesText("question", q.Text, questionAnalyses)
	raws := a.fanOut(ctx, domains, func(ctx context.Context, i int, domain string) string {
		prompt, err := a.prompts.Render("option_analysis", map[string]any{
			"Question":         q.Text,
			"Options":          q.OptionsText(),
			"Domain":           domain,
			"QuestionAnalyses": qaText,
			"Evidence":         evidence,
		})
		if err != nil {
			a.log.Error("rendering option-analysis prompt", "domain", domain, "error", err)
			return core.FailureSentinel
		}
		return a.gen.Call(ctx, core.CallOptions{
			Stage:      core.StageOptionAnalysis,
			SystemRole: fmt.Sprintf(roleDomainAnalyst, domain),
			UserInput:  prompt,
			MaxTokens:  analysisMaxTokens,
		})
	})
	return zipAnalyses(domains, raws)
}

// zipAnalyses pairs domains with their raw analyses. A failed call keeps its
// entry with empty analysis text so the AnalysisMap invariant (one entry per
// DomainSet entry) holds.
func zipAnalyses(domains core.DomainSet, raws []string) core.AnalysisMap {
	out := make(core.AnalysisMap, 0, len(domains))
	for i, domain := range domains {
		text := raws[i]
		if core.IsFailure(text) {
			text = ""
		}
		out = append(out, core.DomainAnalysis{Domain: domain, Analysis: text})
	}
	return out
}
