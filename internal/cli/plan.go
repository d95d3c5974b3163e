package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lodestone-games/stride/internal/scenario"
)

var planCmd = &cobra.Command{
	Use:   "plan <scenario.toml>",
	Short: "Stage a scenario's systems and project frame times",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlan,
}

func init() {
	planCmd.Flags().Bool("json", false, "output the plan as JSON to stdout")
	planCmd.Flags().Int("workers", 0, "worker count for the projection (default: scenario's max_workers)")
	planCmd.Flags().Bool("watch", false, "re-render whenever the scenario file changes")

	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	path := args[0]
	jsonFlag, _ := cmd.Flags().GetBool("json")
	workers, _ := cmd.Flags().GetInt("workers")
	watchFlag, _ := cmd.Flags().GetBool("watch")

	if err := renderPlan(cmd.OutOrStdout(), path, workers, jsonFlag); err != nil {
		return err
	}
	if !watchFlag {
		return nil
	}
	return watchPlan(cmd, path, workers, jsonFlag)
}

// renderPlan loads the scenario fresh and writes the staged plan plus the
// cost-model projection. Loading fresh on every call is what makes watch
// mode a plain re-render loop.
func renderPlan(w io.Writer, path string, workers int, asJSON bool) error {
	s, err := scenario.Load(path)
	if err != nil {
		return err
	}
	est, err := s.Estimate(workers)
	if err != nil {
		return err
	}

	if asJSON {
		return writePlanJSON(w, s, est)
	}

	plan, err := s.Plan()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "scenario %s: %d entities, %d components, %d systems\n",
		s.Name, s.Entities, len(s.Components), len(s.Systems))
	fmt.Fprint(w, plan.Describe())
	fmt.Fprintf(w, "\nprojection at %d workers:\n", est.Workers)
	for _, st := range est.Stages {
		label := fmt.Sprintf("stage %d", st.Number)
		if st.Exclusive {
			label += " (exclusive)"
		}
		fmt.Fprintf(w, "  %-22s %10s  %s\n", label, st.Span, strings.Join(st.Systems, ", "))
	}
	fmt.Fprintf(w, "sequential %s, staged %s, speedup %.2fx\n",
		est.Sequential, est.Staged, est.Speedup)
	return nil
}

// planReport is the JSON shape of a staged plan. Durations are serialized
// in nanoseconds, matching the telemetry event format.
type planReport struct {
	Scenario   string        `json:"scenario"`
	Entities   int           `json:"entities"`
	Workers    int           `json:"workers"`
	Stages     []stageReport `json:"stages"`
	Sequential time.Duration `json:"sequential_ns"`
	Staged     time.Duration `json:"staged_ns"`
	Speedup    float64       `json:"speedup"`
}

type stageReport struct {
	Number    int           `json:"number"`
	Exclusive bool          `json:"exclusive,omitempty"`
	Systems   []string      `json:"systems"`
	Span      time.Duration `json:"span_ns"`
}

func writePlanJSON(w io.Writer, s *scenario.Scenario, est *scenario.Estimate) error {
	report := planReport{
		Scenario:   s.Name,
		Entities:   s.Entities,
		Workers:    est.Workers,
		Sequential: est.Sequential,
		Staged:     est.Staged,
		Speedup:    est.Speedup,
	}
	for _, st := range est.Stages {
		report.Stages = append(report.Stages, stageReport{
			Number:    st.Number,
			Exclusive: st.Exclusive,
			Systems:   st.Systems,
			Span:      st.Span,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encoding plan JSON: %w", err)
	}
	return nil
}

// watchPlan blocks, re-rendering the plan on every scenario change until
// interrupted. Parse errors mid-edit are reported and watching continues;
// the next save gets another chance.
func watchPlan(cmd *cobra.Command, path string, workers int, asJSON bool) error {
	w, err := newScenarioWatcher(path)
	if err != nil {
		return fmt.Errorf("watching %s: %w", path, err)
	}
	defer w.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	fmt.Fprintf(cmd.ErrOrStderr(), "watching %s for changes...\n", path)
	for {
		select {
		case <-sigCh:
			return nil
		case <-w.Changes():
			fmt.Fprintf(cmd.ErrOrStderr(), "\n%s changed\n", path)
			if err := renderPlan(cmd.OutOrStdout(), path, workers, asJSON); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
			}
		}
	}
}
