package cmd

import (
	"fmt"
	"os"

	"github.com/google/renameio/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/medquorum/medquorum/internal/core"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter .medquorum.yaml in the current directory",
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
}

func runInit(cmd *cobra.Command, _ []string) error {
	const path = ".medquorum.yaml"
	if !initForce {
		if _, err := os.Stat(path); err == nil {
			return core.ErrValidation(core.CodeAlreadyExists,
				path+" exists; pass --force to replace it")
		}
	}

	starter := map[string]any{
		"llm": map[string]any{
			"base_url":    "https://api.openai.com/v1",
			"model":       "gpt-4o-mini",
			"timeout":     "120s",
			"max_retries": 3,
			"temperature": 0.0,
		},
		"pipeline": map[string]any{
			"num_question_domains": 5,
			"num_option_domains":   5,
			"max_attempt_vote":     3,
			"workers":              1,
		},
		"dataset": map[string]any{
			"kind": "medqa",
			"path": "data/medqa_test.jsonl",
		},
		"evidence": map[string]any{
			"enabled":        false,
			"path":           "",
			"topk":           5,
			"max_chars":      2500,
			"min_snip_chars": 80,
			"filter_mode":    "artifact_only",
		},
		"results": map[string]any{
			"backend": "jsonl",
			"path":    ".medquorum/results.jsonl",
		},
		"server": map[string]any{
			"addr": "127.0.0.1:8714",
		},
		"log": map[string]any{
			"level":  "info",
			"format": "auto",
		},
	}

	data, err := yaml.Marshal(starter)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	fmt.Fprintln(cmd.OutOrStdout(), "set MEDQUORUM_LLM_API_KEY to authenticate against the generation service")
	return nil
}
