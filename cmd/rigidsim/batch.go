package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/rigidsim/internal/experiment"
	"github.com/san-kum/rigidsim/internal/rollout"
	"github.com/san-kum/rigidsim/internal/scenario"
	"github.com/san-kum/rigidsim/internal/storage"
	"github.com/san-kum/rigidsim/internal/tui"
)

var (
	sweepParam  string
	sweepMin    float64
	sweepMax    float64
	sweepN      int
	sweepMetric string

	trials       int
	perturbation float64
)

func batchOptions() []rollout.BatchOption {
	return []rollout.BatchOption{
		rollout.WithWorkers(workers),
		rollout.WithBatchLogger(logger),
	}
}

func runBatch(cmd *cobra.Command, args []string) error {
	s, err := scenario.Load(args[0])
	if err != nil {
		return err
	}
	reg := experiment.NewRegistry()
	jobs, err := s.Jobs(reg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	title := s.Name
	if title == "" {
		title = args[0]
	}
	results, err := tui.RunBatch(ctx, title, jobs, batchOptions(), os.Stdin, os.Stdout)
	if err != nil {
		return err
	}

	var st *storage.Store
	if saveBatch {
		st = storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
	}
	for i, res := range results {
		if st != nil {
			cfg := s.Runs[i].Config
			sys := jobs[i].System
			runID, err := st.Save(cfg, sys, res, nil)
			if err != nil {
				return err
			}
			fmt.Printf("%s: run id %s\n", jobs[i].Name, runID)
		}
		fmt.Println(tui.Summary(jobs[i].Name, res.Metrics))
	}
	return nil
}

func newSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep [fixture]",
		Short: "vary one system parameter and compare metrics",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	addRunFlags(cmd)
	cmd.Flags().StringVar(&sweepParam, "param", "solver_iterations", "override to vary")
	cmd.Flags().Float64Var(&sweepMin, "min", 1, "first value")
	cmd.Flags().Float64Var(&sweepMax, "max", 10, "last value")
	cmd.Flags().IntVarP(&sweepN, "num", "n", 10, "number of values")
	cmd.Flags().StringVar(&sweepMetric, "metric", "energy_drift", "metric to plot")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel runs (0 uses GOMAXPROCS)")
	return cmd
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	sweep := &scenario.ParameterSweep{
		Base:      cfg,
		ParamName: sweepParam,
		ParamMin:  sweepMin,
		ParamMax:  sweepMax,
		NumSteps:  sweepN,
	}
	results, err := scenario.RunSweep(ctx, sweep, experiment.NewRegistry(), rollout.NewBatch(batchOptions()...), logger)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(results[0].Metrics))
	for name := range results[0].Metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprint(w, sweepParam)
	for _, name := range names {
		fmt.Fprintf(w, "\t%s", name)
	}
	fmt.Fprintln(w)
	plot := make([]float64, len(results))
	for i, r := range results {
		fmt.Fprintf(w, "%g", r.ParamValue)
		for _, name := range names {
			fmt.Fprintf(w, "\t%.6g", r.Metrics[name])
		}
		fmt.Fprintln(w)
		plot[i] = r.Metrics[sweepMetric]
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(asciigraph.Plot(plot,
		asciigraph.Height(10),
		asciigraph.Caption(fmt.Sprintf("%s vs %s", sweepMetric, sweepParam)),
	))
	return nil
}

func newMonteCarloCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "montecarlo [fixture]",
		Short: "run randomly perturbed initial conditions",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runMonteCarlo,
	}
	addRunFlags(cmd)
	cmd.Flags().IntVar(&trials, "trials", 20, "number of trials")
	cmd.Flags().Float64Var(&perturbation, "perturb", 0.1, "largest perturbation of each coordinate")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel runs (0 uses GOMAXPROCS)")
	return cmd
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	mc := &scenario.MonteCarloConfig{
		Base:         cfg,
		Perturbation: perturbation,
		NumTrials:    trials,
		Seed:         cfg.Seed,
	}
	results, err := scenario.RunMonteCarlo(ctx, mc, experiment.NewRegistry(), rollout.NewBatch(batchOptions()...), logger)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TRIAL\tQ0\tSTABLE\tENERGY_DRIFT")
	for _, r := range results {
		fmt.Fprintf(w, "%d\t%s\t%v\t%.4g\n", r.TrialID, fmtFloats(r.Q), r.Stable, r.Result.Metrics["energy_drift"])
	}
	if err := w.Flush(); err != nil {
		return err
	}

	stable, unstable := scenario.MonteCarloStats(results)
	fmt.Println(tui.Summary("monte carlo", map[string]float64{
		"stable":   float64(stable),
		"unstable": float64(unstable),
	}))
	return nil
}

func fmtFloats(v []float64) string {
	s := "["
	for i, x := range v {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%.3f", x)
	}
	return s + "]"
}
