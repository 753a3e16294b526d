package deliberate

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/medquorum/medquorum/internal/core"
	"github.com/medquorum/medquorum/internal/logging"
)

func TestQuestionAnalysesKeepDomainOrder(t *testing.T) {
	gen := &fakeGen{handler: func(opts core.CallOptions) string {
		// echo the domain so the pairing is observable
		return "analysis by " + opts.SystemRole
	}}
	a := NewAnalyzer(gen, newTestPrompts(t), 4, logging.NewNop())
	domains := core.DomainSet{"Cardiology", "Neurology", "Cardiology"}

	got := a.QuestionAnalyses(context.Background(), testQuestion(), domains, "")
	if !reflect.DeepEqual(got.Domains(), domains) {
		t.Fatalf("domains out of order: %v", got.Domains())
	}
	for i, e := range got {
		want := fmt.Sprintf("analysis by "+roleDomainAnalyst, domains[i])
		if e.Analysis != want {
			t.Errorf("entry %d analysis = %q, want %q", i, e.Analysis, want)
		}
	}
}

func TestAnalysesFailureKeepsEntry(t *testing.T) {
	gen := &fakeGen{handler: func(opts core.CallOptions) string {
		if strings.Contains(opts.SystemRole, "Neurology") {
			return core.FailureSentinel
		}
		return "fine"
	}}
	a := NewAnalyzer(gen, newTestPrompts(t), 1, logging.NewNop())
	domains := core.DomainSet{"Cardiology", "Neurology"}

	got := a.QuestionAnalyses(context.Background(), testQuestion(), domains, "")
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].Analysis != "fine" {
		t.Errorf("entry 0 = %q", got[0].Analysis)
	}
	if got[1].Analysis != "" {
		t.Errorf("failed call should leave empty analysis, got %q", got[1].Analysis)
	}
}

func TestAnalysisPromptCarriesEvidence(t *testing.T) {
	gen := &fakeGen{handler: func(core.CallOptions) string { return "ok" }}
	a := NewAnalyzer(gen, newTestPrompts(t), 1, logging.NewNop())

	a.QuestionAnalyses(context.Background(), testQuestion(), core.DomainSet{"Cardiology"}, "[E1] aspirin inhibits platelet aggregation")
	calls := gen.callsFor(core.StageQuestionAnalysis)
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if !strings.Contains(calls[0].UserInput, "[E1] aspirin inhibits platelet aggregation") {
		t.Error("evidence block missing from prompt")
	}
	if !strings.Contains(calls[0].UserInput, "cite it by its id") {
		t.Error("citation instruction missing when evidence present")
	}

	// without evidence the block is omitted entirely
	gen.calls = nil
	a.QuestionAnalyses(context.Background(), testQuestion(), core.DomainSet{"Cardiology"}, "")
	calls = gen.callsFor(core.StageQuestionAnalysis)
	if strings.Contains(calls[0].UserInput, "Evidence:") {
		t.Error("evidence block should be omitted when empty")
	}
}

func TestOptionAnalysesSeeQuestionAnalyses(t *testing.T) {
	gen := &fakeGen{handler: func(core.CallOptions) string { return "ok" }}
	a := NewAnalyzer(gen, newTestPrompts(t), 1, logging.NewNop())
	qa := core.AnalysisMap{{Domain: "Cardiology", Analysis: "ischemic features dominate"}}

	a.OptionAnalyses(context.Background(), testQuestion(), core.DomainSet{"Pharmacology"}, qa, "")
	calls := gen.callsFor(core.StageOptionAnalysis)
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if !strings.Contains(calls[0].UserInput, "[question analysis, Cardiology]:") {
		t.Errorf("question analyses block missing: %q", calls[0].UserInput)
	}
	if !strings.Contains(calls[0].UserInput, "ischemic features dominate") {
		t.Error("question analysis text missing from option prompt")
	}
}
