package evidence

import (
	"strings"
	"testing"

	"github.com/medquorum/medquorum/internal/core"
)

func auditQuestion() core.Question {
	return core.Question{
		Idx:      0,
		Text:     "Which drug is first line for this patient?",
		GoldText: "metoprolol succinate",
		Options: []core.Option{
			{Label: "A", Text: "metoprolol succinate"},
			{Label: "B", Text: "amlodipine besylate"},
			{Label: "C", Text: "ok"}, // too short to be a containment signal
		},
	}
}

func TestSignalsForSnippets(t *testing.T) {
	q := auditQuestion()

	sig := SignalsForSnippets([]string{"Beta blockers reduce mortality in heart failure."}, q)
	if sig.HasArtifact || sig.HasGoldAnswerText || sig.HasAnyOptionText {
		t.Errorf("clean snippet flagged: %+v", sig)
	}

	sig = SignalsForSnippets([]string{"Answer: A, because of mortality benefit"}, q)
	if !sig.HasArtifact {
		t.Error("answer header should flag artifact")
	}

	sig = SignalsForSnippets([]string{"patients on Metoprolol Succinate showed benefit"}, q)
	if !sig.HasGoldAnswerText {
		t.Error("gold answer text containment is case-insensitive")
	}
	if !sig.HasAnyOptionText {
		t.Error("gold text is also option A's text")
	}

	sig = SignalsForSnippets([]string{"compared against amlodipine besylate in trial"}, q)
	if sig.HasGoldAnswerText {
		t.Error("option B text is not the gold answer")
	}
	if !sig.HasAnyOptionText {
		t.Error("option text containment should flag")
	}

	sig = SignalsForSnippets([]string{"the ok group did fine"}, q)
	if sig.HasAnyOptionText {
		t.Error("options below the length floor must not match")
	}
}

func TestLeakReasonsArtifactOnly(t *testing.T) {
	q := auditQuestion()
	cfg := OfflineFilterConfig{Mode: FilterModeArtifactOnly, MinSnipChars: 10}

	reasons := LeakReasons("patients on metoprolol succinate improved substantially", q, cfg)
	if len(reasons) != 0 {
		t.Errorf("artifact_only must ignore gold text containment, got %v", reasons)
	}

	reasons = LeakReasons("Explanation: the answer is (A)", q, cfg)
	if len(reasons) == 0 {
		t.Fatal("artifact snippet should have reasons")
	}
	for _, r := range reasons {
		if r != "explanation_header" && r != "paren_choice" {
			t.Errorf("unexpected reason %q", r)
		}
	}
}

func TestLeakReasonsStrict(t *testing.T) {
	q := auditQuestion()
	cfg := OfflineFilterConfig{Mode: FilterModeStrict, MinSnipChars: 10}

	reasons := LeakReasons("patients on metoprolol succinate improved substantially", q, cfg)
	found := false
	for _, r := range reasons {
		if r == "contains_gold_answer_text" {
			found = true
		}
	}
	if !found {
		t.Errorf("strict mode should flag gold text, got %v", reasons)
	}

	reasons = LeakReasons("short", q, cfg)
	if len(reasons) != 1 || reasons[0] != "too_short" {
		t.Errorf("want [too_short], got %v", reasons)
	}
}

func TestLeakReasonsStableOrder(t *testing.T) {
	q := auditQuestion()
	cfg := OfflineFilterConfig{Mode: FilterModeStrict, MinSnipChars: 200}
	snip := "Answer: (A) metoprolol succinate beats amlodipine besylate"

	first := strings.Join(LeakReasons(snip, q, cfg), ",")
	for i := 0; i < 5; i++ {
		if got := strings.Join(LeakReasons(snip, q, cfg), ","); got != first {
			t.Fatalf("reason order unstable: %q vs %q", got, first)
		}
	}
}
