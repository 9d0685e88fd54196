package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/san-kum/rigidsim/internal/config"
	"github.com/san-kum/rigidsim/internal/experiment"
)

var (
	dataDir string
	verbose bool
	logger  = zap.NewNop()

	configFile string
	preset     string
	pipe       string
	integrator string
	controller string
	steps      int
	benchSteps int
	seed       int64
	kp         float64
	ki         float64
	kd         float64
	targets    []float64
	q0         []float64
	qd0        []float64
	live       bool
	frameRate  int
	save       bool
	saveBatch  bool
	jsonOut    string

	workers int
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "rigidsim",
		Short:         "rigid-body simulation with generalized and positional pipelines",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := zap.NewProductionConfig()
			cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
			if verbose {
				cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			l, err := cfg.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".rigidsim", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run [fixture]",
		Short: "run a simulation",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addRunFlags(runCmd)
	runCmd.Flags().BoolVar(&live, "live", false, "draw the system in the terminal while running")
	runCmd.Flags().IntVar(&frameRate, "fps", 30, "live view frame rate (0 draws every step)")
	runCmd.Flags().BoolVar(&save, "save", true, "store the run under the data directory")
	runCmd.Flags().StringVar(&jsonOut, "json", "", "also write the full trajectory as JSON to this file")

	viewCmd := &cobra.Command{
		Use:   "view [fixture]",
		Short: "interactive real-time view with pause, replay and live gain tuning",
		Args:  cobra.MaximumNArgs(1),
		RunE:  viewFixture,
	}
	addRunFlags(viewCmd)

	compareCmd := &cobra.Command{
		Use:   "compare [fixture]",
		Short: "step the generalized and positional pipelines side by side",
		Args:  cobra.MaximumNArgs(1),
		RunE:  comparePipelines,
	}
	addRunFlags(compareCmd)

	benchCmd := &cobra.Command{
		Use:   "bench [fixture]",
		Short: "time both pipelines on a fixture",
		Args:  cobra.ExactArgs(1),
		RunE:  benchFixture,
	}
	benchCmd.Flags().IntVar(&benchSteps, "steps", 2000, "steps per measurement")

	batchCmd := &cobra.Command{
		Use:   "batch [scenario.yaml]",
		Short: "run every configuration of a scenario file in parallel",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}
	batchCmd.Flags().IntVar(&workers, "workers", 0, "parallel runs (0 uses GOMAXPROCS)")
	batchCmd.Flags().BoolVar(&saveBatch, "save", false, "store every run under the data directory")

	sweepCmd := newSweepCmd()
	montecarloCmd := newMonteCarloCmd()
	analyzeCmd := newAnalyzeCmd()
	lyapunovCmd := newLyapunovCmd()
	bifurcationCmd := newBifurcationCmd()
	tuneCmd := newTuneCmd()

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot trajectory columns of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringSliceVarP(&plotColumns, "column", "c", nil, "columns to plot (default: generalized coordinates)")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "print the metadata of a stored run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "write the trajectory of a stored run as CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default stdout)")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "draw the link paths of a stored run as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default stdout)")

	fixturesCmd := &cobra.Command{
		Use:   "fixtures",
		Short: "list built-in systems",
		Run: func(cmd *cobra.Command, args []string) {
			reg := experiment.NewRegistry()
			fmt.Println("fixtures:")
			for _, name := range reg.ListFixtures() {
				fmt.Printf("  %s\n", name)
			}
			fmt.Println("pipelines:")
			for _, name := range reg.ListPipelines() {
				fmt.Printf("  %s\n", name)
			}
			fmt.Println("integrators:")
			for _, name := range reg.ListIntegrators() {
				fmt.Printf("  %s\n", name)
			}
			fmt.Println("controllers:")
			for _, name := range reg.ListControllers() {
				fmt.Printf("  %s\n", name)
			}
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [fixture]",
		Short: "list presets for a fixture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, viewCmd, compareCmd, benchCmd, batchCmd, sweepCmd, montecarloCmd,
		analyzeCmd, lyapunovCmd, bifurcationCmd, tuneCmd, listCmd, plotCmd, exportCmd, exportCSVCmd, exportSVGCmd, fixturesCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "YAML run configuration")
	f.StringVar(&preset, "preset", "", "named preset for the fixture")
	f.StringVar(&pipe, "pipeline", config.DefaultPipeline, "generalized or positional")
	f.StringVar(&integrator, "integrator", config.DefaultIntegrator, "integrator for the generalized pipeline")
	f.StringVar(&controller, "controller", config.DefaultController, "controller")
	f.IntVar(&steps, "steps", config.DefaultSteps, "number of steps")
	f.Int64Var(&seed, "seed", 0, "random seed")
	f.Float64Var(&kp, "kp", config.DefaultKp, "proportional gain")
	f.Float64Var(&ki, "ki", config.DefaultKi, "integral gain")
	f.Float64Var(&kd, "kd", config.DefaultKd, "derivative gain")
	f.Float64SliceVar(&targets, "target", nil, "controller targets, one per actuator")
	f.Float64SliceVar(&q0, "q", nil, "initial generalized coordinates")
	f.Float64SliceVar(&qd0, "qd", nil, "initial generalized velocities")
}

// loadConfig layers defaults, preset, config file and explicitly set flags,
// in that order.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	fixture := config.DefaultFixture
	if len(args) > 0 {
		fixture = args[0]
	}

	if preset != "" {
		p := config.GetPreset(fixture, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(fixture))
		}
		cfg = p
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	if len(args) > 0 {
		cfg.Fixture = args[0]
	}

	flags := cmd.Flags()
	if flags.Changed("pipeline") {
		cfg.Pipeline = pipe
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("controller") {
		cfg.Controller = controller
	}
	if flags.Changed("steps") {
		cfg.Steps = steps
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("kp") {
		cfg.ControllerParams.Kp = kp
	}
	if flags.Changed("ki") {
		cfg.ControllerParams.Ki = ki
	}
	if flags.Changed("kd") {
		cfg.ControllerParams.Kd = kd
	}
	if flags.Changed("target") {
		cfg.ControllerParams.Targets = targets
	}
	if flags.Changed("q") {
		cfg.Q = q0
	}
	if flags.Changed("qd") {
		cfg.Qd = qd0
	}
	return cfg, cfg.Validate()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}
