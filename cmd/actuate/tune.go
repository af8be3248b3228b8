package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/actuate/internal/experiment"
	"github.com/san-kum/actuate/internal/optim"
)

var (
	tuneController string
	tuneTarget     []float64
	tuneLevels     int
)

func newTuneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tune [config.yaml]",
		Short: "grid-search synergy excitations that reproduce target controls",
		Args:  cobra.MaximumNArgs(1),
		RunE:  tune,
	}
	addStudyFlags(cmd)
	cmd.Flags().StringVar(&tuneController, "controller", "", "synergy controller to tune")
	cmd.Flags().Float64SliceVar(&tuneTarget, "target", nil, "target control per actuator")
	cmd.Flags().IntVar(&tuneLevels, "levels", 11, "levels per excitation")
	_ = cmd.MarkFlagRequired("controller")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func tune(cmd *cobra.Command, args []string) error {
	cfg, baseDir, err := loadStudy(cmd, args)
	if err != nil {
		return err
	}
	opts, closeStore, err := studyOptions(cfg, baseDir)
	if err != nil {
		return err
	}
	defer closeStore()

	exp, err := experiment.New(cfg, append(opts, experiment.WithLogger(logger))...)
	if err != nil {
		return err
	}
	best, err := optim.TuneExcitations(context.Background(), exp, tuneController, tuneTarget, tuneLevels, logger)
	if err != nil {
		return err
	}

	syn := exp.Study().Synergy(tuneController)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INPUT\tEXCITATION")
	for _, name := range syn.InputNames() {
		fmt.Fprintf(w, "%s\t%.4f\n", name, best.Params[name])
	}
	w.Flush()
	fmt.Printf("\ntracking error: %.6g (%d points, %d failed)\n", best.Value, best.Evaluated, best.Failed)
	return nil
}
