package cmd

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/medquorum/medquorum/internal/adapters/results"
	"github.com/medquorum/medquorum/internal/core"
	"github.com/medquorum/medquorum/internal/dataset"
	"github.com/medquorum/medquorum/internal/deliberate"
	"github.com/medquorum/medquorum/internal/evidence"
	"github.com/medquorum/medquorum/internal/scoring"
)

var (
	runStart       int
	runEnd         int
	runTag         string
	runOut         string
	runDryRun      bool
	runLogEvidence bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Deliberate over a dataset slice and persist one record per question",
	RunE:  runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("dataset", "", "dataset file (JSONL)")
	runCmd.Flags().String("dataset-kind", "", "dataset kind (medqa, pubmedqa, medmcqa, medicationqa)")
	runCmd.Flags().IntVar(&runStart, "start", 0, "first question index to run")
	runCmd.Flags().IntVar(&runEnd, "end", -1, "one past the last question index (-1 = all)")
	runCmd.Flags().StringVar(&runTag, "tag", "", "tag appended to the derived output filename")
	runCmd.Flags().StringVar(&runOut, "out", "", "output path (default derived from dataset and range)")
	runCmd.Flags().String("backend", "", "results backend (jsonl, sqlite)")
	runCmd.Flags().String("evidence", "", "evidence cache file (enables evidence injection)")
	runCmd.Flags().Int("workers", 0, "parallel calls within a stage")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "emit stub records without calling the generation service")
	runCmd.Flags().BoolVar(&runLogEvidence, "log-evidence", false, "store candidate and injected evidence text in each record")

	_ = viper.BindPFlag("dataset.path", runCmd.Flags().Lookup("dataset"))
	_ = viper.BindPFlag("dataset.kind", runCmd.Flags().Lookup("dataset-kind"))
	_ = viper.BindPFlag("results.backend", runCmd.Flags().Lookup("backend"))
	_ = viper.BindPFlag("evidence.path", runCmd.Flags().Lookup("evidence"))
	_ = viper.BindPFlag("pipeline.workers", runCmd.Flags().Lookup("workers"))
}

// derivedOutPath builds the default output filename from the dataset name,
// the slice, and the optional tag.
func derivedOutPath(datasetPath string, start, end int, tag string) string {
	base := strings.TrimSuffix(filepath.Base(datasetPath), filepath.Ext(datasetPath))
	name := fmt.Sprintf("results_%s_%d_%d", base, start, end)
	if tag != "" {
		name += "_" + tag
	}
	return filepath.Join(".medquorum", name+".jsonl")
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("evidence") {
		cfg.Evidence.Enabled = cfg.Evidence.Path != ""
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Dataset.Path == "" {
		return core.ErrValidation(core.CodeInvalidConfig, "dataset path is required (--dataset)")
	}

	log := newLogger(cfg)

	questions, err := dataset.Load(cfg.Dataset.Path, dataset.Kind(cfg.Dataset.Kind))
	if err != nil {
		return err
	}

	start, end := runStart, runEnd
	if end < 0 || end > len(questions) {
		end = len(questions)
	}
	if start < 0 {
		start = 0
	}
	if start > end {
		return core.ErrValidation(core.CodeInvalidConfig,
			fmt.Sprintf("empty slice: start %d past end %d", start, end))
	}
	slice := questions[start:end]

	var evCache *evidence.Cache
	if cfg.Evidence.Enabled {
		evCache, err = evidence.LoadCache(cfg.Evidence.Path)
		if err != nil {
			return err
		}
		if evCache.Len() != len(questions) {
			log.Warn("evidence cache length differs from dataset",
				"cache", evCache.Len(), "dataset", len(questions))
		}
	}

	outPath := runOut
	if outPath == "" {
		outPath = derivedOutPath(cfg.Dataset.Path, start, end, runTag)
	}
	store, err := results.NewStore(cfg.Results.Backend, outPath)
	if err != nil {
		return err
	}
	defer func() { _ = results.CloseStore(store) }()

	runID := uuid.NewString()
	log = log.WithRun(runID)
	log.Info("starting run",
		"dataset", cfg.Dataset.Path,
		"kind", cfg.Dataset.Kind,
		"questions", len(slice),
		"out", outPath,
		"evidence", cfg.Evidence.Enabled,
		"dry_run", runDryRun,
	)

	gen := newGenerator(cfg, log)
	prompts, err := deliberate.NewPromptRenderer()
	if err != nil {
		return err
	}
	pipeline := deliberate.NewPipeline(gen, prompts, deliberate.Config{
		NumQuestionDomains: cfg.Pipeline.NumQuestionDomains,
		NumOptionDomains:   cfg.Pipeline.NumOptionDomains,
		MaxAttemptVote:     cfg.Pipeline.MaxAttemptVote,
		Workers:            cfg.Pipeline.Workers,
	}, evCache, cfg.Evidence.FormatConfig(), runID, log)

	ctx := cmd.Context()
	started := time.Now()
	var recs []core.ResultRecord
	for i, q := range slice {
		var rec core.ResultRecord
		if runDryRun {
			rec = stubRecord(q, runID)
		} else {
			rec = pipeline.Run(ctx, q)
		}
		if !runLogEvidence && rec.Evidence != nil {
			rec.Evidence.Candidate = ""
			rec.Evidence.Used = ""
		}
		if err := store.Append(ctx, rec); err != nil {
			return err
		}
		recs = append(recs, rec)
		log.Info("question done", "idx", q.Idx, "progress", fmt.Sprintf("%d/%d", i+1, len(slice)))
	}

	sum := scoring.Summarize(recs)
	stats := gen.Stats()
	log.Info("run finished",
		"questions", sum.Total,
		"correct", sum.Correct,
		"accuracy", fmt.Sprintf("%.4f", sum.Acc),
		"calls", stats.Calls,
		"total_tokens", stats.TotalTokens,
		"elapsed", time.Since(started).Round(time.Second),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d records to %s (accuracy %.4f)\n",
		sum.Total, outPath, sum.Acc)
	return nil
}

// stubRecord builds the record a dry run emits: complete identity fields,
// no deliberation content.
func stubRecord(q core.Question, runID string) core.ResultRecord {
	return core.ResultRecord{
		Idx:        q.Idx,
		RunID:      runID,
		Question:   q.Text,
		Options:    q.Options,
		GoldAnswer: q.Gold,
		MetaInfo:   q.MetaInfo,
		CreatedAt:  time.Now().UTC(),
	}
}
