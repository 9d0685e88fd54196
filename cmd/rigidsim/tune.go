package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/rigidsim/internal/experiment"
	"github.com/san-kum/rigidsim/internal/optim"
	"github.com/san-kum/rigidsim/internal/rollout"
	"github.com/san-kum/rigidsim/internal/tui"
)

var (
	gridSpecs  []string
	tuneMetric string
)

func newTuneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tune [fixture]",
		Short:   "grid search over controller gains or system overrides",
		Example: "  rigidsim tune pendulum --controller pid --grid kp=5,10,20 --grid kd=0,1,2 --metric control_effort",
		Args:    cobra.MaximumNArgs(1),
		RunE:    tune,
	}
	addRunFlags(cmd)
	cmd.Flags().StringArrayVar(&gridSpecs, "grid", nil, "name=v1,v2,... (repeatable)")
	cmd.Flags().StringVar(&tuneMetric, "metric", "energy_drift", "metric to minimise")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel runs (0 uses GOMAXPROCS)")
	return cmd
}

func parseGrid(flags []string) ([]string, [][]float64, error) {
	names := make([]string, 0, len(flags))
	ranges := make([][]float64, 0, len(flags))
	for _, flag := range flags {
		name, list, ok := strings.Cut(flag, "=")
		if !ok {
			return nil, nil, fmt.Errorf("grid %q: expected name=v1,v2", flag)
		}
		var values []float64
		for _, field := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("grid %s: %w", name, err)
			}
			values = append(values, v)
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}
	return names, ranges, nil
}

func tune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	names, ranges, err := parseGrid(gridSpecs)
	if err != nil {
		return err
	}
	g, err := optim.NewGridSearch(names, ranges)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	best, all, err := g.Search(ctx, cfg, experiment.NewRegistry(), rollout.NewBatch(batchOptions()...), tuneMetric, logger)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\n", strings.Join(names, "\t"), strings.ToUpper(tuneMetric))
	for _, c := range all {
		for _, name := range names {
			fmt.Fprintf(w, "%g\t", c.Params[name])
		}
		if c.Err != nil {
			fmt.Fprintln(w, "failed")
			continue
		}
		fmt.Fprintf(w, "%.6g\n", c.Value)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	rows := make(map[string]float64, len(best.Params)+1)
	for k, v := range best.Params {
		rows[k] = v
	}
	rows[tuneMetric] = best.Value
	fmt.Println(tui.Summary("best", rows))
	return nil
}
