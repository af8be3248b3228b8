package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/actuate/internal/nmf"
	"github.com/san-kum/actuate/internal/storage"
	"github.com/san-kum/actuate/internal/table"
	"github.com/san-kum/actuate/internal/viz"
)

var (
	rank      int
	maxIters  int
	tolerance float64
	nmfSeed   int64
	columns   []string
	suffix    string
	saveAs    string
	pngDir    string
	showPlot  bool
	normalize bool
)

func newFactorizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "factorize [table.csv]",
		Short: "extract synergy vectors from tabulated excitations",
		Args:  cobra.ExactArgs(1),
		RunE:  factorize,
	}
	cmd.Flags().IntVar(&rank, "rank", 2, "number of synergies")
	cmd.Flags().IntVar(&maxIters, "iters", nmf.DefaultMaxIterations, "maximum iterations")
	cmd.Flags().Float64Var(&tolerance, "tol", nmf.DefaultTolerance, "relative error decrease tolerance")
	cmd.Flags().Int64Var(&nmfSeed, "seed", 1, "seed for the initial factors")
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "columns to factorize (default: all)")
	cmd.Flags().StringVar(&suffix, "suffix", "", "keep columns ending with this suffix, e.g. _r")
	cmd.Flags().StringVar(&saveAs, "save", "", "store the synergy set under this name")
	cmd.Flags().StringVar(&pngDir, "png", "", "write convergence and weight figures to this directory")
	cmd.Flags().BoolVar(&showPlot, "plot", false, "plot the error history")
	cmd.Flags().BoolVar(&normalize, "normalize", false, "scale each synergy vector to a peak of 1")
	return cmd
}

func factorize(cmd *cobra.Command, args []string) error {
	tbl, err := table.Load(args[0])
	if err != nil {
		return err
	}
	switch {
	case len(columns) > 0:
		if tbl, err = tbl.Select(columns...); err != nil {
			return err
		}
	case suffix != "":
		tbl = tbl.SelectSuffix(suffix)
	}

	v, err := tbl.Matrix()
	if err != nil {
		return err
	}
	res, err := nmf.Factorize(v, nmf.Options{
		Rank:          rank,
		MaxIterations: maxIters,
		Tolerance:     tolerance,
		Seed:          nmfSeed,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	if normalize {
		res.Normalize()
	}

	status := viz.StatusRunning.Render("converged")
	if !res.Converged {
		status = viz.StatusPaused.Render("iteration cap reached")
	}
	fmt.Printf("%s after %d iterations\n", status, res.Iterations)
	fmt.Printf("relative error: %.6g\n", res.RelativeError)
	fmt.Printf("VAF: %.4f\n\n", res.VAF(v))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SYNERGY\t"+strings.Join(tbl.Labels, "\t"))
	for k := 0; k < rank; k++ {
		row := make([]string, len(tbl.Labels))
		for j := range row {
			row[j] = fmt.Sprintf("%.4f", res.H.At(k, j))
		}
		fmt.Fprintf(w, "%d\t%s\n", k, strings.Join(row, "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if showPlot {
		fmt.Println()
		fmt.Println(viz.PlotHistory(res.History))
	}

	vectors := make([][]float64, rank)
	for k := range vectors {
		vectors[k] = append([]float64(nil), res.H.RawRowView(k)...)
	}

	if pngDir != "" {
		if err := viz.SaveHistoryPNG(res.History, filepath.Join(pngDir, "convergence.png")); err != nil {
			return err
		}
		if err := viz.SaveSynergiesPNG(tbl.Labels, vectors, filepath.Join(pngDir, "synergies.png")); err != nil {
			return err
		}
		fmt.Printf("\nwrote figures to %s\n", pngDir)
	}

	if saveAs != "" {
		ctx := context.Background()
		store, err := openSynergyStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		id, err := store.SaveSynergySet(ctx, storage.SynergySet{
			Name:          saveAs,
			Source:        args[0],
			Actuators:     tbl.Labels,
			Vectors:       vectors,
			Iterations:    res.Iterations,
			RelativeError: res.RelativeError,
			VAF:           res.VAF(v),
			Converged:     res.Converged,
		})
		if err != nil {
			return err
		}
		fmt.Printf("\nsaved synergy set %s (%s)\n", saveAs, id)
	}
	return nil
}

func openSynergyStore(ctx context.Context) (*storage.SQLiteStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}
	store := storage.NewSQLiteStore(filepath.Join(dataDir, "synergies.db"))
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func newSynergiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "synergies",
		Short: "list stored synergy sets",
		Args:  cobra.NoArgs,
		RunE:  listSynergies,
	}
	showCmd := &cobra.Command{
		Use:   "show [id|name]",
		Short: "print the vectors of a stored synergy set",
		Args:  cobra.ExactArgs(1),
		RunE:  showSynergies,
	}
	deleteCmd := &cobra.Command{
		Use:   "delete [id]",
		Short: "delete a stored synergy set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			store, err := openSynergyStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()
			ok, err := store.DeleteSynergySet(ctx, args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no synergy set %s", args[0])
			}
			fmt.Printf("deleted %s\n", args[0])
			return nil
		},
	}
	cmd.AddCommand(showCmd, deleteCmd)
	return cmd
}

func listSynergies(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	store, err := openSynergyStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	sets, err := store.ListSynergySets(ctx)
	if err != nil {
		return err
	}
	if len(sets) == 0 {
		fmt.Println("no synergy sets found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCREATED\tRANK\tACTUATORS\tVAF\tCONVERGED")
	for _, s := range sets {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%.4f\t%v\n",
			s.ID, s.Name, s.CreatedAt.Format("2006-01-02 15:04:05"),
			s.Rank(), len(s.Actuators), s.VAF, s.Converged)
	}
	return w.Flush()
}

func showSynergies(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	store, err := openSynergyStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	set, ok, err := store.GetSynergySet(ctx, args[0])
	if err != nil {
		return err
	}
	if !ok {
		if set, ok, err = store.FindSynergySet(ctx, args[0]); err != nil {
			return err
		}
	}
	if !ok {
		return fmt.Errorf("no synergy set %s", args[0])
	}

	fmt.Println(viz.HeaderStyle.Render(fmt.Sprintf("%s (%s)", set.Name, set.ID)))
	fmt.Printf("source: %s  iterations: %d  relative error: %.6g  VAF: %.4f\n\n",
		set.Source, set.Iterations, set.RelativeError, set.VAF)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SYNERGY\t"+strings.Join(set.Actuators, "\t"))
	for k, v := range set.Vectors {
		row := make([]string, len(v))
		for j, x := range v {
			row[j] = fmt.Sprintf("%.4f", x)
		}
		fmt.Fprintf(w, "%d\t%s\n", k, strings.Join(row, "\t"))
	}
	return w.Flush()
}
