package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/medquorum/medquorum/internal/adapters/results"
	"github.com/medquorum/medquorum/internal/dataset"
	"github.com/medquorum/medquorum/internal/evidence"
)

var (
	auditDataset     string
	auditKind        string
	auditEvidence    string
	auditPredictions string
	auditMaxExamples int
	auditVerifyAlign bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit an evidence cache for answer leakage",
	Long: `Audit scans an evidence cache against its dataset and reports how many
questions have snippets that look like QA artifacts, contain the gold
answer text, or contain an option text. It uses the same artifact
patterns as the runtime injection gate.

With --predictions, the audit is scoped to the question indices present
in that results file. With --verify-alignment, the cache and dataset are
also checked for length and per-index shape mismatches.`,
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().StringVar(&auditDataset, "dataset", "", "dataset file (JSONL)")
	auditCmd.Flags().StringVar(&auditKind, "dataset-kind", "medqa", "dataset kind")
	auditCmd.Flags().StringVar(&auditEvidence, "evidence", "", "evidence cache file")
	auditCmd.Flags().StringVar(&auditPredictions, "predictions", "", "results file limiting the audited indices")
	auditCmd.Flags().IntVar(&auditMaxExamples, "max-examples", 10, "example indices listed per signal")
	auditCmd.Flags().BoolVar(&auditVerifyAlign, "verify-alignment", false, "check dataset/evidence length and shape alignment")
	_ = auditCmd.MarkFlagRequired("dataset")
	_ = auditCmd.MarkFlagRequired("evidence")
}

func capExamples(idxs []int, max int) []int {
	if len(idxs) <= max {
		return idxs
	}
	return idxs[:max]
}

func runAudit(cmd *cobra.Command, _ []string) error {
	questions, err := dataset.Load(auditDataset, dataset.Kind(auditKind))
	if err != nil {
		return err
	}
	cache, err := evidence.LoadCache(auditEvidence)
	if err != nil {
		return err
	}

	var scope map[int]bool
	if auditPredictions != "" {
		recs, err := results.ReadFile(auditPredictions)
		if err != nil {
			return err
		}
		scope = make(map[int]bool, len(recs))
		for _, rec := range recs {
			scope[rec.Idx] = true
		}
	}

	out := cmd.OutOrStdout()

	if auditVerifyAlign {
		if cache.Len() != len(questions) {
			fmt.Fprintf(out, "ALIGNMENT: length mismatch: dataset %d, evidence %d\n",
				len(questions), cache.Len())
		} else {
			fmt.Fprintf(out, "ALIGNMENT: lengths match (%d)\n", len(questions))
		}
	}

	var audited, withEvidence, provenance int
	var artifactIdx, goldIdx, optionIdx []int

	records := cache.Records()
	for i, q := range questions {
		if scope != nil && !scope[q.Idx] {
			continue
		}
		audited++
		if i >= len(records) {
			continue
		}
		rec := records[i]
		if rec.ProvenanceInput != "" {
			provenance++
		}
		if len(rec.Snippets) == 0 {
			continue
		}
		withEvidence++

		sig := evidence.SignalsForSnippets(rec.Snippets, q)
		if sig.HasArtifact {
			artifactIdx = append(artifactIdx, q.Idx)
		}
		if sig.HasGoldAnswerText {
			goldIdx = append(goldIdx, q.Idx)
		}
		if sig.HasAnyOptionText {
			optionIdx = append(optionIdx, q.Idx)
		}
	}

	sort.Ints(artifactIdx)
	sort.Ints(goldIdx)
	sort.Ints(optionIdx)

	rate := func(n int) float64 {
		if withEvidence == 0 {
			return 0
		}
		return float64(n) / float64(withEvidence)
	}

	fmt.Fprintf(out, "audited %d questions, %d with evidence\n", audited, withEvidence)
	fmt.Fprintf(out, "  qa_artifact:       %d (%.4f)  examples %v\n",
		len(artifactIdx), rate(len(artifactIdx)), capExamples(artifactIdx, auditMaxExamples))
	fmt.Fprintf(out, "  gold_answer_text:  %d (%.4f)  examples %v\n",
		len(goldIdx), rate(len(goldIdx)), capExamples(goldIdx, auditMaxExamples))
	fmt.Fprintf(out, "  option_text:       %d (%.4f)  examples %v\n",
		len(optionIdx), rate(len(optionIdx)), capExamples(optionIdx, auditMaxExamples))

	if provenance > 0 {
		fmt.Fprintf(out, "WARNING: %d cache entries carry instances.input (verbatim question text); "+
			"it is never injected, but the cache was built with the questions in hand\n", provenance)
	}
	return nil
}
