package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/san-kum/rigidsim/internal/analysis"
	"github.com/san-kum/rigidsim/internal/experiment"
	"github.com/san-kum/rigidsim/internal/scenario"
	"github.com/san-kum/rigidsim/internal/storage"
	"github.com/san-kum/rigidsim/internal/system"
	"github.com/san-kum/rigidsim/internal/tui"
)

var (
	phaseCoord    int
	poincareCoord int
	lyapPerturb   float64
	lyapSpectrum  bool

	bifParam     string
	bifMin       float64
	bifMax       float64
	bifN         int
	bifCoord     int
	bifTransient int
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "spectral and phase space analysis of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	cmd.Flags().IntVar(&phaseCoord, "phase", 0, "coordinate for the phase portrait (q vs qd)")
	cmd.Flags().IntVar(&poincareCoord, "poincare", -1, "velocity index whose upward zero crossings define a Poincare section")
	return cmd
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	tr, err := st.LoadTrajectory(runID)
	if err != nil {
		return err
	}
	if len(tr.Rows) < 2 {
		return fmt.Errorf("not enough samples to analyze")
	}
	dt := tr.Times[1] - tr.Times[0]

	fmt.Printf("run: %s (%s, %s)\n\n", meta.ID, meta.Fixture, meta.Pipeline)

	freqs := make(map[string]float64)
	for _, h := range tr.Header {
		if !strings.HasPrefix(h, "q") || strings.HasPrefix(h, "qd") {
			continue
		}
		col, _ := tr.Column(h)
		freqs[h+" Hz"] = analysis.DominantFrequency(col, dt)
	}
	fmt.Println(tui.Summary("dominant frequency", freqs))
	fmt.Println()

	xName, yName := fmt.Sprintf("q%d", phaseCoord), fmt.Sprintf("qd%d", phaseCoord)
	x, okX := tr.Column(xName)
	y, okY := tr.Column(yName)
	if !okX || !okY {
		return fmt.Errorf("run has no %s/%s columns", xName, yName)
	}

	var portrait *analysis.PhasePortrait
	if poincareCoord >= 0 {
		cross, ok := tr.Column(fmt.Sprintf("qd%d", poincareCoord))
		if !ok {
			return fmt.Errorf("run has no qd%d column", poincareCoord)
		}
		portrait, err = analysis.NewPoincareSection(cross, 0, xName, x, yName, y)
	} else {
		portrait, err = analysis.NewPhasePortrait(xName, x, yName, y)
	}
	if err != nil {
		return err
	}
	fmt.Print(portrait.ASCII(60, 20))
	return nil
}

func newLyapunovCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lyapunov [fixture]",
		Short: "estimate the largest Lyapunov exponent",
		Args:  cobra.MaximumNArgs(1),
		RunE:  lyapunov,
	}
	addRunFlags(cmd)
	cmd.Flags().Float64Var(&lyapPerturb, "perturb", 1e-8, "initial separation")
	cmd.Flags().BoolVar(&lyapSpectrum, "spectrum", false, "perturb every coordinate in turn")
	return cmd
}

func lyapunov(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	reg := experiment.NewRegistry()
	sys, err := cfg.System()
	if err != nil {
		return err
	}
	p, err := reg.GetPipeline(cfg.Pipeline, cfg.Integrator)
	if err != nil {
		return err
	}
	q, qd := cfg.InitState(sys)

	ctx, cancel := signalContext()
	defer cancel()

	rows := make(map[string]float64)
	if lyapSpectrum {
		spectrum, err := analysis.LyapunovSpectrum(ctx, p, sys, q, qd, cfg.Steps, lyapPerturb)
		if err != nil {
			return err
		}
		for i, c := range analysis.PerturbableCoords(sys) {
			rows[fmt.Sprintf("q%d", c)] = spectrum[i]
		}
	} else {
		coord := analysis.PerturbableCoords(sys)[0]
		lambda, err := analysis.LyapunovExponent(ctx, p, sys, q, qd, coord, cfg.Steps, lyapPerturb)
		if err != nil {
			return err
		}
		rows["lambda"] = lambda
	}
	fmt.Println(tui.Summary(fmt.Sprintf("lyapunov %s (%s)", cfg.Fixture, p.Name()), rows))
	return nil
}

func newBifurcationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bifurcation [fixture]",
		Short: "peak values of a coordinate while sweeping a system override",
		Long:  "Runs the fixture once per parameter value with zero action, discards --transient steps and records the peaks of q[--coord] over the following --steps.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  bifurcation,
	}
	addRunFlags(cmd)
	cmd.Flags().StringVar(&bifParam, "param", "ang_damping", "override to vary")
	cmd.Flags().Float64Var(&bifMin, "min", 0, "first value")
	cmd.Flags().Float64Var(&bifMax, "max", 1, "last value")
	cmd.Flags().IntVarP(&bifN, "num", "n", 20, "number of values")
	cmd.Flags().IntVar(&bifCoord, "coord", 0, "coordinate to record")
	cmd.Flags().IntVar(&bifTransient, "transient", 1000, "steps discarded before recording")
	return cmd
}

func bifurcation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	p, err := experiment.NewRegistry().GetPipeline(cfg.Pipeline, cfg.Integrator)
	if err != nil {
		return err
	}
	sys, err := cfg.System()
	if err != nil {
		return err
	}
	q, qd := cfg.InitState(sys)

	build := func(v float64) (*system.System, error) {
		c := cfg.Clone()
		if err := scenario.SetOverride(&c.Overrides, bifParam, v); err != nil {
			return nil, err
		}
		return c.System()
	}

	ctx, cancel := signalContext()
	defer cancel()

	diagram, err := analysis.BifurcationDiagram(ctx, p, build, bifMin, bifMax, bifN, bifCoord, q, qd, bifTransient, cfg.Steps)
	if err != nil {
		return err
	}
	fmt.Printf("bifurcation of %s over %s (%s)\n\n", cfg.Fixture, bifParam, p.Name())
	fmt.Print(analysis.BifurcationPortrait(bifParam, fmt.Sprintf("q%d peaks", bifCoord), diagram).ASCII(60, 20))
	return nil
}
