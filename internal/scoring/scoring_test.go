package scoring

import (
	"testing"

	"github.com/medquorum/medquorum/internal/core"
)

func rec(idx int, pred, gold, meta string, state core.ConsensusState) core.ResultRecord {
	return core.ResultRecord{
		Idx:        idx,
		PredAnswer: pred,
		GoldAnswer: gold,
		MetaInfo:   meta,
		Consensus:  state,
	}
}

func TestSummarize(t *testing.T) {
	recs := []core.ResultRecord{
		rec(0, "A", "A", "step1", core.ConsensusConverged),
		rec(1, "B", "A", "step1", core.ConsensusConverged),
		rec(2, "(C)", "C", "step2&3", core.ConsensusExhausted), // containment counts
		rec(3, "", "D", "step2&3", core.ConsensusConverged),    // no answer is wrong
	}
	s := Summarize(recs)

	if s.Total != 4 || s.Correct != 2 {
		t.Errorf("total/correct = %d/%d", s.Total, s.Correct)
	}
	if s.Acc != 0.5 {
		t.Errorf("Acc = %v", s.Acc)
	}
	if s.NoAnswer != 1 {
		t.Errorf("NoAnswer = %d", s.NoAnswer)
	}
	if s.Converged != 3 || s.Exhausted != 1 {
		t.Errorf("consensus counts = %d/%d", s.Converged, s.Exhausted)
	}

	if len(s.Splits) != 2 {
		t.Fatalf("splits = %v", s.Splits)
	}
	// sorted by name
	if s.Splits[0].Name != "step1" || s.Splits[1].Name != "step2&3" {
		t.Errorf("split order: %v", s.Splits)
	}
	if s.Splits[0].Correct != 1 || s.Splits[0].Total != 2 || s.Splits[0].Acc != 0.5 {
		t.Errorf("step1 stats: %+v", s.Splits[0])
	}
	if s.Splits[1].Correct != 1 || s.Splits[1].Total != 2 {
		t.Errorf("step2&3 stats: %+v", s.Splits[1])
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s.Total != 0 || s.Acc != 0 || len(s.Splits) != 0 {
		t.Errorf("empty summary = %+v", s)
	}
}

func TestSummarizeNoMetaInfoMeansNoSplits(t *testing.T) {
	s := Summarize([]core.ResultRecord{rec(0, "A", "A", "", core.ConsensusConverged)})
	if len(s.Splits) != 0 {
		t.Errorf("splits = %v", s.Splits)
	}
}
