package deliberate

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/medquorum/medquorum/internal/core"
	"github.com/medquorum/medquorum/internal/evidence"
	"github.com/medquorum/medquorum/internal/logging"
)

// scriptedHandler plays a cooperative full deliberation: routing succeeds,
// every analysis succeeds, the panel approves on the first round, and the
// decision picks A.
func scriptedHandler(opts core.CallOptions) string {
	switch opts.Stage {
	case core.StageQuestionDomains:
		return "Medical Field: Cardiology | Emergency Medicine"
	case core.StageOptionDomains:
		return "Medical Field: Pharmacology | Cardiology"
	case core.StageQuestionAnalysis, core.StageOptionAnalysis:
		return "specialist analysis text"
	case core.StageSynthesis:
		return "Key Knowledge: aspirin facts\nTotal Analysis: aspirin is first line"
	case core.StageVote:
		return "yes"
	case core.StageDecision:
		return "Answer: (A)\nRationale: antiplatelet therapy."
	}
	return core.FailureSentinel
}

func TestPipelineFullRun(t *testing.T) {
	gen := &fakeGen{handler: scriptedHandler}
	p := NewPipeline(gen, newTestPrompts(t), Config{
		NumQuestionDomains: 2,
		NumOptionDomains:   2,
		MaxAttemptVote:     3,
		Workers:            1,
	}, nil, evidence.DefaultFormatConfig(), "run-123", logging.NewNop())
	q := testQuestion()

	rec := p.Run(context.Background(), q)

	if rec.Idx != q.Idx || rec.Question != q.Text || rec.GoldAnswer != "A" || rec.MetaInfo != "step1" {
		t.Errorf("identity fields wrong: %+v", rec)
	}
	if rec.RunID != "run-123" {
		t.Errorf("RunID = %q", rec.RunID)
	}
	if !reflect.DeepEqual(rec.QuestionDomains, core.DomainSet{"Cardiology", "Emergency Medicine"}) {
		t.Errorf("QuestionDomains = %v", rec.QuestionDomains)
	}
	if !reflect.DeepEqual(rec.OptionDomains, core.DomainSet{"Pharmacology", "Cardiology"}) {
		t.Errorf("OptionDomains = %v", rec.OptionDomains)
	}
	if len(rec.QuestionAnalyses) != 2 || len(rec.OptionAnalyses) != 2 {
		t.Errorf("analyses: %d question, %d option",
			len(rec.QuestionAnalyses), len(rec.OptionAnalyses))
	}
	if !strings.Contains(rec.SynReport, "Key Knowledge: aspirin facts") {
		t.Errorf("SynReport = %q", rec.SynReport)
	}
	if rec.Consensus != core.ConsensusConverged {
		t.Errorf("Consensus = %v", rec.Consensus)
	}
	if len(rec.VoteHistory) != 1 {
		t.Errorf("VoteHistory len = %d", len(rec.VoteHistory))
	}
	// all four domain occurrences vote, folded to three keys
	if len(rec.VoteHistory[0]) != 3 {
		t.Errorf("vote record = %v", rec.VoteHistory[0])
	}
	if rec.PredAnswer != "A" {
		t.Errorf("PredAnswer = %q", rec.PredAnswer)
	}
	if !rec.Correct() {
		t.Error("record should score correct")
	}
	if rec.Evidence != nil {
		t.Error("no evidence cache: audit block should be nil")
	}
	if n := len(gen.callsFor(core.StageVote)); n != 4 {
		t.Errorf("vote calls = %d, want one per domain occurrence", n)
	}
}

func TestPipelineEverythingFails(t *testing.T) {
	gen := &fakeGen{} // every call fails
	p := NewPipeline(gen, newTestPrompts(t), DefaultConfig(), nil,
		evidence.DefaultFormatConfig(), "", logging.NewNop())

	rec := p.Run(context.Background(), testQuestion())

	// dead service: defaults everywhere, but a complete record
	want := core.DomainSet{DefaultDomain, DefaultDomain, DefaultDomain, DefaultDomain, DefaultDomain}
	if !reflect.DeepEqual(rec.QuestionDomains, want) {
		t.Errorf("QuestionDomains = %v", rec.QuestionDomains)
	}
	if !strings.Contains(rec.SynReport, "There is no synthesized report.") {
		t.Errorf("SynReport = %q", rec.SynReport)
	}
	// unclassifiable votes default to yes, so the loop closes immediately
	if rec.Consensus != core.ConsensusConverged {
		t.Errorf("Consensus = %v", rec.Consensus)
	}
	if rec.PredAnswer != "" {
		t.Errorf("PredAnswer = %q, want empty", rec.PredAnswer)
	}
	if rec.Correct() {
		t.Error("empty prediction must not score correct")
	}
}

func TestPipelineEvidenceGate(t *testing.T) {
	cache, err := evidence.ParseCache([]byte(`[
		{"evidence": ["Aspirin irreversibly inhibits cyclooxygenase, reducing thromboxane A2 production and platelet aggregation."]}
	]`))
	if err != nil {
		t.Fatalf("ParseCache: %v", err)
	}

	gen := &fakeGen{handler: scriptedHandler}
	p := NewPipeline(gen, newTestPrompts(t), Config{
		NumQuestionDomains: 1, NumOptionDomains: 1, MaxAttemptVote: 1, Workers: 1,
	}, cache, evidence.DefaultFormatConfig(), "", logging.NewNop())

	q := testQuestion()
	q.Idx = 0
	rec := p.Run(context.Background(), q)

	if rec.Evidence == nil || !rec.Evidence.Enabled || !rec.Evidence.Injected {
		t.Fatalf("evidence audit = %+v", rec.Evidence)
	}
	if !strings.HasPrefix(rec.Evidence.Used, "[E1] Aspirin") {
		t.Errorf("Used = %q", rec.Evidence.Used)
	}

	calls := gen.callsFor(core.StageQuestionAnalysis)
	if len(calls) == 0 || !strings.Contains(calls[0].UserInput, "[E1] Aspirin") {
		t.Error("evidence context should reach the analysis prompt")
	}

	// out-of-range index: gate closes, audit shows enabled but not injected
	q.Idx = 99
	rec = p.Run(context.Background(), q)
	if rec.Evidence == nil || rec.Evidence.Injected {
		t.Errorf("audit for missing evidence = %+v", rec.Evidence)
	}
}
