package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lodestone-games/stride/internal/config"
	"github.com/lodestone-games/stride/internal/scenario"
	"github.com/lodestone-games/stride/telemetry"
)

// errOverBudget signals a non-zero exit when the measured average frame
// exceeds the configured frame budget.
var errOverBudget = errors.New("average frame time over budget")

var simulateCmd = &cobra.Command{
	Use:   "simulate <scenario.toml>",
	Short: "Run a scenario against the live engine and measure frame times",
	Args:  cobra.ExactArgs(1),
	RunE:  runSimulate,
}

func init() {
	simulateCmd.Flags().Int("frames", 60, "number of frames to run")
	simulateCmd.Flags().Int("workers", 0, "worker pool size (default: scenario's max_workers)")
	simulateCmd.Flags().Bool("sequential", false, "run systems one at a time for comparison")

	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	s, err := scenario.Load(args[0])
	if err != nil {
		return err
	}

	frames, _ := cmd.Flags().GetInt("frames")
	workers, _ := cmd.Flags().GetInt("workers")
	sequential, _ := cmd.Flags().GetBool("sequential")

	if workers < 1 {
		workers = s.EffectiveWorkers()
	}
	if cfg.MaxWorkers > 0 && workers > cfg.MaxWorkers {
		workers = cfg.MaxWorkers
	}

	var emitter *telemetry.Emitter
	if cfg.TelemetryPath != "" {
		emitter, err = telemetry.NewEmitter(cfg.TelemetryPath)
		if err != nil {
			return err
		}
		defer emitter.Close()
	}

	var logw io.Writer
	if cfg.Verbose {
		logw = cmd.ErrOrStderr()
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		cancel()
	}()

	est, err := s.Estimate(workers)
	if err != nil {
		return err
	}

	res, err := s.Run(ctx, scenario.RunOptions{
		Frames:   frames,
		Workers:  workers,
		Parallel: !sequential && cfg.Parallel,
		Logw:     logw,
		Emitter:  emitter,
	})
	if err != nil {
		return err
	}

	return renderRunResult(cmd.OutOrStdout(), s, est, res, workers, cfg.FrameBudgetMS)
}

// renderRunResult prints the projection next to the measurement so drift
// between the cost model and the real pool is visible at a glance.
func renderRunResult(w io.Writer, s *scenario.Scenario, est *scenario.Estimate, res *scenario.RunResult, workers int, budgetMS float64) error {
	fmt.Fprintf(w, "scenario %s: %d entities, %d workers, %d frames\n",
		s.Name, s.Entities, workers, res.Frames)
	fmt.Fprint(w, res.Plan)
	fmt.Fprintf(w, "\nprojected  sequential %s, staged %s, speedup %.2fx\n",
		est.Sequential, est.Staged, est.Speedup)
	fmt.Fprintf(w, "measured   avg %s, min %s, max %s, total %s\n",
		res.Avg, res.Min, res.Max, res.Total)

	names := make([]string, 0, len(res.Samples))
	for name := range res.Samples {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(w, "\n%-24s %6s %7s %12s %12s\n", "system", "runs", "errors", "avg", "max")
	for _, name := range names {
		sm := res.Samples[name]
		fmt.Fprintf(w, "%-24s %6d %7d %12s %12s\n", name, sm.Count, sm.Errors, sm.Avg(), sm.Max)
	}

	if budgetMS <= 0 {
		return nil
	}
	budget := time.Duration(budgetMS * float64(time.Millisecond))
	if res.Avg > budget {
		fmt.Fprintf(w, "\nframe budget %s: over by %s\n", budget, res.Avg-budget)
		return errOverBudget
	}
	fmt.Fprintf(w, "\nframe budget %s: ok (%.1f%% used)\n",
		budget, 100*float64(res.Avg)/float64(budget))
	return nil
}
