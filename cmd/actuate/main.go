package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/actuate/internal/config"
	"github.com/san-kum/actuate/internal/dynamo"
	"github.com/san-kum/actuate/internal/experiment"
	"github.com/san-kum/actuate/internal/sim"
	"github.com/san-kum/actuate/internal/storage"
	"github.com/san-kum/actuate/internal/viz"
)

var (
	dataDir string
	verbose bool
	logger  *zap.Logger

	dt       float64
	duration float64
	seed     int64
	preset   string
	strict   bool
	excite   []string
	jsonOut  bool
	noSave   bool

	showForces bool
	overlay    bool
	outDir     string
	svgOut     bool
	jsonPath   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "actuate",
		Short: "actuator control and muscle synergy toolkit",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := newLogger(verbose)
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".actuate", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run [config.yaml]",
		Short: "evaluate a study over its time grid",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runStudy,
	}
	addStudyFlags(runCmd)
	runCmd.Flags().BoolVar(&jsonOut, "json", false, "write the run as JSON to stdout")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run controls in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().BoolVar(&showForces, "forces", false, "plot forces instead of controls")
	plotCmd.Flags().BoolVar(&overlay, "overlay", false, "draw all actuators on one graph")

	exportPNGCmd := &cobra.Command{
		Use:   "export-png [run_id]",
		Short: "render run controls and forces to PNG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportPNG,
	}
	exportPNGCmd.Flags().StringVar(&outDir, "out", "", "output directory (default: run directory)")
	exportPNGCmd.Flags().BoolVar(&svgOut, "svg", false, "write SVG instead of PNG")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVar(&jsonPath, "out", "", "write to file instead of stdout")

	liveCmd := &cobra.Command{
		Use:   "live [config.yaml]",
		Short: "evaluate a study live and adjust synergy excitations",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addStudyFlags(liveCmd)

	presetsCmd := &cobra.Command{
		Use:   "presets [group]",
		Short: "list preset studies",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				for _, g := range config.ListGroups() {
					fmt.Printf("%s: %s\n", g, strings.Join(config.ListPresets(g), ", "))
				}
				return nil
			}
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for group: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportPNGCmd, exportJSONCmd, liveCmd, presetsCmd,
		newFactorizeCmd(), newSynergiesCmd(), newTuneCmd(), newScenarioCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	cfg.EncoderConfig.TimeKey = ""
	return cfg.Build()
}

func addStudyFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&dt, "dt", 0, "sample interval (overrides config)")
	cmd.Flags().Float64Var(&duration, "time", 0, "duration (overrides config)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "factorization seed (overrides config)")
	cmd.Flags().StringVar(&preset, "preset", "", "preset study as group/name")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail on unresolved references")
	cmd.Flags().StringSliceVar(&excite, "excite", nil, "hold a synergy excitation, as controller:k=value")
}

// loadStudy resolves the config from a file argument or --preset and applies
// flag overrides. It returns the config and the directory relative paths
// resolve against.
func loadStudy(cmd *cobra.Command, args []string) (*config.Config, string, error) {
	var (
		cfg     *config.Config
		baseDir string
	)
	switch {
	case len(args) == 1:
		c, err := config.Load(args[0])
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config: %w", err)
		}
		cfg, baseDir = c, filepath.Dir(args[0])
	case preset != "":
		group, name, ok := strings.Cut(preset, "/")
		if !ok {
			return nil, "", fmt.Errorf("preset must be group/name, got %q", preset)
		}
		cfg = config.GetPreset(group, name)
		if cfg == nil {
			return nil, "", fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(group))
		}
	default:
		return nil, "", fmt.Errorf("a config file or --preset is required")
	}

	if cmd.Flags().Changed("dt") {
		cfg.Dt = dt
	}
	if cmd.Flags().Changed("time") {
		cfg.Duration = duration
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = seed
	}
	if strict {
		cfg.Strict = true
	}
	return cfg, baseDir, nil
}

// studyOptions opens the synergy store only when a controller references a
// stored set.
func studyOptions(cfg *config.Config, baseDir string) ([]experiment.Option, func(), error) {
	opts := []experiment.Option{experiment.WithBaseDir(baseDir)}
	for _, cc := range cfg.Controllers {
		if cc.SynergySet == "" {
			continue
		}
		store, err := openSynergyStore(context.Background())
		if err != nil {
			return nil, nil, err
		}
		return append(opts, experiment.WithSynergySource(store)), func() { store.Close() }, nil
	}
	return opts, func() {}, nil
}

// parseExcitations turns controller:k=value flags into input values.
func parseExcitations(study *experiment.Study, flags []string) (sim.ConstantInputs, error) {
	in := sim.ConstantInputs{}
	for _, f := range flags {
		lhs, value, ok := strings.Cut(f, "=")
		if !ok {
			return nil, fmt.Errorf("bad excitation %q: want controller:k=value", f)
		}
		name, index, ok := strings.Cut(lhs, ":")
		if !ok {
			return nil, fmt.Errorf("bad excitation %q: want controller:k=value", f)
		}
		syn := study.Synergy(name)
		if syn == nil {
			return nil, fmt.Errorf("no synergy controller %q", name)
		}
		k, err := config.ExcitationIndex(index)
		if err != nil {
			return nil, err
		}
		if k >= syn.NumSynergies() {
			return nil, fmt.Errorf("controller %s has %d synergies", name, syn.NumSynergies())
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("bad excitation value %q: %w", value, err)
		}
		in[syn.InputName(k)] = v
	}
	return in, nil
}

func actuatorNames(study *experiment.Study) []string {
	m := study.Model
	names := make([]string, m.NumActuators())
	for i := range names {
		names[i] = m.ActuatorName(i)
	}
	return names
}

func controllerNames(study *experiment.Study) []string {
	names := make([]string, len(study.Controllers))
	for i, c := range study.Controllers {
		names[i] = c.Name()
	}
	return names
}

func runStudy(cmd *cobra.Command, args []string) error {
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
	study := exp.Study()
	held, err := parseExcitations(study, excite)
	if err != nil {
		return err
	}
	if len(held) > 0 {
		exp.GetSimulator().AddInputs(held)
	}

	if !jsonOut {
		fmt.Printf("running %s...\n", cfg.Name)
	}
	start := time.Now()
	result, err := exp.Run(context.Background())
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	meta := storage.RunMetadata{
		Study:       cfg.Name,
		Seed:        cfg.Seed,
		Dt:          cfg.Dt,
		Duration:    cfg.Duration,
		Actuators:   actuatorNames(study),
		Controllers: controllerNames(study),
	}
	if jsonOut {
		return storage.WriteJSON(os.Stdout, meta, result)
	}

	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(meta, result)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("samples: %d\n", result.StepsTaken)
	if n := len(study.Warnings); n > 0 {
		fmt.Printf("setup warnings: %d\n", n)
	}
	if n := len(result.Reports); n > 0 {
		fmt.Printf("reported conditions: %d (first: %v)\n", n, result.Reports[0])
	}

	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Println("\nmetrics:")
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, result.Metrics[name])
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTUDY\tTIME\tDURATION\tDT\tACTUATORS\tREPORTS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%.4fs\t%d\t%d\n",
			run.ID,
			run.Study,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			len(run.Actuators),
			len(run.Reports),
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	load, what := st.LoadControls, "controls"
	if showForces {
		load, what = st.LoadForces, "forces"
	}
	tbl, err := load(args[0])
	if err != nil {
		return err
	}

	fmt.Println(viz.HeaderStyle.Render(fmt.Sprintf("%s: %s", meta.Study, what)))
	var out string
	if overlay {
		out, err = viz.PlotOverlay(tbl, what)
	} else {
		out, err = viz.PlotColumns(tbl)
	}
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

func exportPNG(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	dir := outDir
	if dir == "" {
		dir = filepath.Join(dataDir, runID)
	}

	controls, err := st.LoadControls(runID)
	if err != nil {
		return err
	}
	ext := ".png"
	if svgOut {
		ext = ".svg"
	}
	controlsPath := filepath.Join(dir, "controls"+ext)
	forcesPath := filepath.Join(dir, "forces"+ext)
	if err := viz.SaveTablePNG(controls, meta.Study+" controls", "control", controlsPath); err != nil {
		return err
	}
	forces, err := st.LoadForces(runID)
	if err != nil {
		return err
	}
	if err := viz.SaveTablePNG(forces, meta.Study+" forces", "force", forcesPath); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", controlsPath)
	fmt.Printf("wrote %s\n", forcesPath)
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	controls, err := st.LoadControls(runID)
	if err != nil {
		return err
	}
	forces, err := st.LoadForces(runID)
	if err != nil {
		return err
	}

	result := &sim.Result{
		Times:      controls.Times,
		Metrics:    meta.Metrics,
		StepsTaken: meta.Steps,
	}
	for i := range controls.Times {
		result.Controls = append(result.Controls, dynamo.Control(controls.Row(i)))
	}
	for i := range forces.Times {
		result.Forces = append(result.Forces, forces.Row(i))
	}
	if jsonPath != "" {
		if err := storage.ExportJSON(jsonPath, *meta, result); err != nil {
			return err
		}
		fmt.Printf("exported %s\n", jsonPath)
		return nil
	}
	return storage.WriteJSON(os.Stdout, *meta, result)
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, baseDir, err := loadStudy(cmd, args)
	if err != nil {
		return err
	}
	opts, closeStore, err := studyOptions(cfg, baseDir)
	if err != nil {
		return err
	}
	defer closeStore()

	exp, err := experiment.New(cfg, append(opts, experiment.WithLogger(zap.NewNop()))...)
	if err != nil {
		return err
	}
	study := exp.Study()

	// Every excitation becomes a knob, starting from its value at t=0.
	first, err := exp.GetSimulator().Evaluate(0)
	if err != nil {
		return err
	}
	knobs := sim.ConstantInputs{}
	for _, c := range study.Controllers {
		syn := study.Synergy(c.Name())
		if syn == nil {
			continue
		}
		for k := 0; k < syn.NumSynergies(); k++ {
			knobs[syn.InputName(k)] = syn.Excitation(first, k)
		}
	}
	held, err := parseExcitations(study, excite)
	if err != nil {
		return err
	}
	for name, v := range held {
		knobs[name] = v
	}
	exp.GetSimulator().AddInputs(knobs)

	m := viz.NewLiveModel(exp.GetSimulator(), actuatorNames(study), knobs, cfg.Dt, cfg.Duration)
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
