package cmd

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/spf13/cobra"
)

var (
	doctorOkStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	doctorFailStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	doctorSkipStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

var doctorSkipPing bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration and generation-service connectivity",
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorSkipPing, "skip-ping", false, "skip the live connectivity check")
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	ok := doctorOkStyle.Render("✓")
	fail := doctorFailStyle.Render("✗")
	skip := doctorSkipStyle.Render("○")

	failed := false

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(out, "%s config load: %v\n", fail, err)
		return err
	}
	fmt.Fprintf(out, "%s config loaded\n", ok)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(out, "%s config validation: %v\n", fail, err)
		failed = true
	} else {
		fmt.Fprintf(out, "%s config valid (model %s)\n", ok, cfg.LLM.Model)
	}

	if cfg.LLM.APIKey == "" {
		fmt.Fprintf(out, "%s api key not set (MEDQUORUM_LLM_API_KEY)\n", skip)
	} else {
		fmt.Fprintf(out, "%s api key present\n", ok)
	}

	if doctorSkipPing {
		fmt.Fprintf(out, "%s connectivity check skipped\n", skip)
	} else {
		log := newLogger(cfg)
		gen := newGenerator(cfg, log)
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		err := gen.Ping(ctx)
		cancel()
		if err != nil {
			fmt.Fprintf(out, "%s generation service: %v\n", fail, err)
			failed = true
		} else {
			fmt.Fprintf(out, "%s generation service reachable (%s)\n", ok, cfg.LLM.BaseURL)
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "host: %s/%s, %d cpus", runtime.GOOS, runtime.GOARCH, runtime.NumCPU())
	if info, err := host.Info(); err == nil {
		fmt.Fprintf(out, ", %s %s", info.Platform, info.PlatformVersion)
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		fmt.Fprintf(out, ", %.1f GiB memory", float64(vm.Total)/(1<<30))
	}
	fmt.Fprintln(out)

	if failed {
		return fmt.Errorf("doctor found problems")
	}
	return nil
}
