package deliberate

import (
	"context"

	"github.com/medquorum/medquorum/internal/core"
	"github.com/medquorum/medquorum/internal/logging"
	"github.com/medquorum/medquorum/internal/report"
)

const synthesisMaxTokens = 2500

// Synthesizer implements Stage 3: one call combining both AnalysisMaps into
// a draft report, passed through the report parser.
type Synthesizer struct {
	gen     core.Generator
	prompts *PromptRenderer
	log     *logging.Logger
}

// NewSynthesizer creates a Stage 3 synthesizer.
func NewSynthesizer(gen core.Generator, prompts *PromptRenderer, log *logging.Logger) *Synthesizer {
	return &Synthesizer{gen: gen, prompts: prompts, log: log}
}

// Synthesize produces version 0 of the synthesized report. A failed call
// still yields a well-formed report carrying the no-report marker, so
// downstream stages never see the sentinel directly.
func (s *Synthesizer) Synthesize(ctx context.Context, q core.Question, questionAnalyses, optionAnalyses core.AnalysisMap) string {
	prompt, err := s.prompts.Render("synthesis", map[string]any{
		"QuestionAnalyses": renderAnalysesText("question", q.Text, questionAnalyses),
		"OptionAnalyses":   renderAnalysesText("options", q.OptionsText(), optionAnalyses),
	})
	if err != nil {
		s.log.Error("rendering synthesis prompt", "error", err)
		return report.ParseAndCompose(q, core.FailureSentinel)
	}

	raw := s.gen.Call(ctx, core.CallOptions{
		Stage:      core.StageSynthesis,
		SystemRole: roleSynthesizer,
		UserInput:  prompt,
		MaxTokens:  synthesisMaxTokens,
	})
	return report.ParseAndCompose(q, raw)
}
