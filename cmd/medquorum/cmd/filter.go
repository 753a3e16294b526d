package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/google/renameio/v2"
	"github.com/spf13/cobra"

	"github.com/medquorum/medquorum/internal/core"
	"github.com/medquorum/medquorum/internal/dataset"
	"github.com/medquorum/medquorum/internal/evidence"
)

var (
	filterDataset      string
	filterKind         string
	filterEvidence     string
	filterOut          string
	filterMode         string
	filterTopK         int
	filterMinSnipChars int
	filterDisable      bool
	filterOverwrite    bool
)

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Filter an evidence cache, dropping leaky snippets",
	Long: `Filter rewrites an evidence cache with leaky snippets removed.
artifact_only drops snippets matching QA-artifact patterns; strict also
drops snippets containing the gold answer text or any option text.
The output keeps one entry per dataset index so alignment is preserved.`,
	RunE: runFilter,
}

func init() {
	rootCmd.AddCommand(filterCmd)

	filterCmd.Flags().StringVar(&filterDataset, "dataset", "", "dataset file (JSONL)")
	filterCmd.Flags().StringVar(&filterKind, "dataset-kind", "medqa", "dataset kind")
	filterCmd.Flags().StringVar(&filterEvidence, "evidence", "", "evidence cache file to filter")
	filterCmd.Flags().StringVar(&filterOut, "out", "", "output path for the filtered cache")
	filterCmd.Flags().StringVar(&filterMode, "mode", "artifact_only", "filter mode (artifact_only, strict)")
	filterCmd.Flags().IntVar(&filterTopK, "topk", 0, "keep at most this many snippets per entry (0 = all)")
	filterCmd.Flags().IntVar(&filterMinSnipChars, "min-snip-chars", 80, "drop snippets shorter than this after whitespace normalization")
	filterCmd.Flags().BoolVar(&filterDisable, "disable-filter", false, "pass snippets through unfiltered (still applies topk)")
	filterCmd.Flags().BoolVar(&filterOverwrite, "overwrite", false, "allow overwriting an existing output file")
	_ = filterCmd.MarkFlagRequired("dataset")
	_ = filterCmd.MarkFlagRequired("evidence")
	_ = filterCmd.MarkFlagRequired("out")
}

type filteredEntry struct {
	Evidence []string `json:"evidence"`
}

func runFilter(cmd *cobra.Command, _ []string) error {
	mode := evidence.FilterCfgMode(filterMode)
	if mode != evidence.FilterModeArtifactOnly && mode != evidence.FilterModeStrict {
		return core.ErrValidation(core.CodeInvalidConfig, "unknown filter mode: "+filterMode)
	}
	if !filterOverwrite {
		if _, err := os.Stat(filterOut); err == nil {
			return core.ErrValidation(core.CodeAlreadyExists,
				filterOut+" exists; pass --overwrite to replace it")
		}
	}

	questions, err := dataset.Load(filterDataset, dataset.Kind(filterKind))
	if err != nil {
		return err
	}
	cache, err := evidence.LoadCache(filterEvidence)
	if err != nil {
		return err
	}
	records := cache.Records()
	if len(records) != len(questions) {
		return core.ErrValidation(core.CodeEvidenceShape,
			fmt.Sprintf("dataset has %d questions but cache has %d entries", len(questions), len(records)))
	}

	cfg := evidence.OfflineFilterConfig{Mode: mode, MinSnipChars: filterMinSnipChars}
	dropCounts := map[string]int{}
	kept, dropped := 0, 0

	out := make([]filteredEntry, len(records))
	for i, rec := range records {
		snips := rec.Snippets
		if filterTopK > 0 && len(snips) > filterTopK {
			snips = snips[:filterTopK]
		}

		entry := filteredEntry{Evidence: []string{}}
		for _, snip := range snips {
			if !filterDisable {
				reasons := evidence.LeakReasons(snip, questions[i], cfg)
				if len(reasons) > 0 {
					dropped++
					for _, reason := range reasons {
						dropCounts[reason]++
					}
					continue
				}
			}
			entry.Evidence = append(entry.Evidence, snip)
			kept++
		}
		out[i] = entry
	}

	data, err := json.MarshalIndent(out, "", " ")
	if err != nil {
		return fmt.Errorf("encoding filtered cache: %w", err)
	}
	if err := renameio.WriteFile(filterOut, data, 0o644); err != nil {
		return fmt.Errorf("writing filtered cache: %w", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "wrote %s: kept %d snippets, dropped %d\n", filterOut, kept, dropped)
	reasons := make([]string, 0, len(dropCounts))
	for reason := range dropCounts {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		fmt.Fprintf(w, "  %s: %d\n", reason, dropCounts[reason])
	}
	return nil
}
