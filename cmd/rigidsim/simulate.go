package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/rigidsim/internal/experiment"
	"github.com/san-kum/rigidsim/internal/rollout"
	"github.com/san-kum/rigidsim/internal/storage"
	"github.com/san-kum/rigidsim/internal/system"
	"github.com/san-kum/rigidsim/internal/tui"
)

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	exp, err := experiment.New(cfg, experiment.NewRegistry(), logger)
	if err != nil {
		return err
	}

	var renderer *tui.LiveRenderer
	if live {
		renderer = tui.NewLiveRenderer(cfg.Fixture, exp.System(), os.Stdout, frameRate)
		exp.Runner().AddObserver(renderer)
		renderer.Start()
	}

	ctx, cancel := signalContext()
	defer cancel()

	if !live {
		fmt.Printf("running %s with the %s pipeline...\n", cfg.Fixture, exp.Pipeline().Name())
	}
	start := time.Now()
	result, runErr := exp.Run(ctx)
	elapsed := time.Since(start)
	if renderer != nil {
		renderer.Stop()
	}
	if result == nil {
		return runErr
	}

	if save {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(exp.Config(), exp.System(), result, runErr)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}
	if jsonOut != "" {
		if err := writeJSON(jsonOut, result); err != nil {
			return err
		}
	}

	fmt.Printf("completed %d steps in %v\n", result.StepsTaken, elapsed)
	fmt.Println(tui.Summary("metrics", result.Metrics))
	return runErr
}

func writeJSON(path string, result *rollout.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := storage.ExportJSON(f, nil, result); err != nil {
		return err
	}
	return f.Close()
}

func comparePipelines(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	reg := experiment.NewRegistry()

	sys, err := cfg.System()
	if err != nil {
		return err
	}
	gen, err := reg.GetPipeline("generalized", cfg.Integrator)
	if err != nil {
		return err
	}
	pos, err := reg.GetPipeline("positional", "")
	if err != nil {
		return err
	}
	ctrl, err := reg.GetController(cfg.Controller, sys, cfg.ControllerParams, cfg.Seed)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	q, qd := cfg.InitState(sys)
	cmp, err := rollout.Compare(ctx, gen, pos, sys, ctrl, q, qd, cfg.Steps, logger)
	if err != nil {
		return err
	}

	fmt.Printf("comparing %s and %s on %s (dt=%.4f, steps=%d)\n\n", cmp.A, cmp.B, cfg.Fixture, sys.Dt(), cfg.Steps)
	fmt.Println(asciigraph.Plot(cmp.Position,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("link position divergence"),
	))
	fmt.Println()
	fmt.Println(asciigraph.Plot(cmp.Rotation,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("link rotation divergence"),
	))
	fmt.Println()
	fmt.Println(tui.Summary("divergence", map[string]float64{
		"max_position": cmp.MaxPosition(),
		"max_rotation": cmp.MaxRotation(),
	}))
	return nil
}

func benchFixture(cmd *cobra.Command, args []string) error {
	fixture := args[0]
	sys, err := system.Fixture(fixture)
	if err != nil {
		return err
	}
	reg := experiment.NewRegistry()

	type entry struct{ pipeline, integrator string }
	entries := []entry{{"positional", ""}}
	for _, name := range reg.ListIntegrators() {
		entries = append(entries, entry{"generalized", name})
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("benchmarking %s (%d steps)\n\n", fixture, benchSteps)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PIPELINE\tINTEGRATOR\tSTEPS\tTIME\tSTEPS/SEC")

	q, qd := sys.InitQ(), make([]float64, sys.QdSize())
	for _, e := range entries {
		p, err := reg.GetPipeline(e.pipeline, e.integrator)
		if err != nil {
			return err
		}
		runner := rollout.New(p, sys, nil, rollout.WithLogger(logger.With(zap.String("bench", p.Name()))))

		start := time.Now()
		result, err := runner.Run(ctx, q, qd, benchSteps)
		elapsed := time.Since(start)
		if err != nil {
			fmt.Fprintf(w, "%s\t%s\terror: %v\t\t\n", e.pipeline, e.integrator, err)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%v\t%.0f\n",
			e.pipeline, e.integrator, result.StepsTaken, elapsed, float64(result.StepsTaken)/elapsed.Seconds())
	}
	return w.Flush()
}

func viewFixture(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	exp, err := experiment.New(cfg, experiment.NewRegistry(), logger)
	if err != nil {
		return err
	}
	q, qd := cfg.InitState(exp.System())
	viewer, err := tui.NewViewer(cfg.Fixture, exp.Pipeline(), exp.System(), exp.Controller(), q, qd)
	if err != nil {
		return err
	}
	if _, err := tea.NewProgram(viewer, tea.WithAltScreen()).Run(); err != nil {
		return err
	}
	return viewer.Err()
}
