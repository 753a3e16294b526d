package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/medquorum/medquorum/internal/adapters/results"
	"github.com/medquorum/medquorum/internal/scoring"
)

var (
	scoreTitleStyle = lipgloss.NewStyle().Bold(true)
	scoreGoodStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	scoreBadStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	scoreDimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

var scoreCmd = &cobra.Command{
	Use:   "score <results.jsonl>",
	Short: "Score a results file against its gold labels",
	Long: `Score reads a results JSONL file and reports overall accuracy plus a
per-split breakdown when records carry meta_info. Records are
self-contained, so any results file can be scored without the dataset.`,
	Args: cobra.ExactArgs(1),
	RunE: runScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)
}

func accuracyStyle(acc float64) lipgloss.Style {
	if acc >= 0.5 {
		return scoreGoodStyle
	}
	return scoreBadStyle
}

func runScore(cmd *cobra.Command, args []string) error {
	recs, err := results.ReadFile(args[0])
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no records found")
		return nil
	}

	sum := scoring.Summarize(recs)
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, scoreTitleStyle.Render(fmt.Sprintf("Scored %d records", sum.Total)))
	fmt.Fprintf(out, "  accuracy: %s (%d/%d)\n",
		accuracyStyle(sum.Acc).Render(fmt.Sprintf("%.4f", sum.Acc)),
		sum.Correct, sum.Total)
	fmt.Fprintf(out, "  no answer: %d\n", sum.NoAnswer)
	fmt.Fprintf(out, "  consensus: %d converged, %d exhausted\n", sum.Converged, sum.Exhausted)

	if len(sum.Splits) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, scoreTitleStyle.Render("By split"))
		for _, split := range sum.Splits {
			fmt.Fprintf(out, "  %s %s (%d/%d)\n",
				scoreDimStyle.Render(split.Name+":"),
				accuracyStyle(split.Acc).Render(fmt.Sprintf("%.4f", split.Acc)),
				split.Correct, split.Total)
		}
	}
	return nil
}
