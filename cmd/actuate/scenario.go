package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/san-kum/actuate/internal/automation"
	"github.com/san-kum/actuate/internal/experiment"
	"github.com/san-kum/actuate/internal/storage"
)

func newScenarioCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario [scenario.yaml]",
		Short: "run a scripted sequence of studies and store each run",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the runs")
	return cmd
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, err := openSynergyStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	results, runErr := automation.RunScenario(ctx, sc, filepath.Dir(args[0]), logger, experiment.WithSynergySource(store))

	st := storage.New(dataDir)
	if !noSave {
		if err := st.Init(); err != nil {
			return err
		}
	}
	for i, r := range results {
		fmt.Printf("step %d: %s (%d samples)\n", i+1, r.Name, r.Result.StepsTaken)
		if noSave {
			continue
		}
		meta := storage.RunMetadata{
			Study:       r.Name,
			Seed:        r.Config.Seed,
			Dt:          r.Config.Dt,
			Duration:    r.Config.Duration,
			Actuators:   actuatorNames(r.Study),
			Controllers: controllerNames(r.Study),
		}
		runID, err := st.Save(meta, r.Result)
		if err != nil {
			return err
		}
		fmt.Printf("  run id: %s\n", runID)
	}
	return runErr
}
