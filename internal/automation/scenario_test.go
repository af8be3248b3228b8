package automation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/san-kum/actuate/internal/config"
)

const scenarioYAML = `
name: elbow-then-gait
steps:
  - study: elbow.yaml
    save_as: elbow-strong
    excitations:
      elbow:
        synergy_excitation_0: 1.0
  - preset: leg/gait
    duration: 0.1
    dt: 0.05
`

func writeScenario(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, config.Save(filepath.Join(dir, "elbow.yaml"), config.GetPreset("arm", "cocontraction")))
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(scenarioYAML), 0o644))
	return path
}

func TestRunScenario(t *testing.T) {
	path := writeScenario(t)
	sc, err := LoadScenario(path)
	require.NoError(t, err)
	require.Equal(t, "elbow-then-gait", sc.Name)

	results, err := RunScenario(context.Background(), sc, filepath.Dir(path), nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	require.Equal(t, "elbow-strong", results[0].Name)
	// excitation overridden from 0.5 to 1.0
	require.InDelta(t, 1.0, results[0].Result.Controls[0][0], 1e-12)
	require.InDelta(t, 0.8, results[0].Result.Controls[0][1], 1e-12)

	require.Equal(t, "leg-gait", results[1].Name)
	require.Len(t, results[1].Result.Times, 3)
}

func TestRunScenarioStepErrors(t *testing.T) {
	tests := []struct {
		name string
		step Step
	}{
		{"no source", Step{}},
		{"both sources", Step{Study: "a.yaml", Preset: "leg/gait"}},
		{"bad preset", Step{Preset: "leg"}},
		{"unknown preset", Step{Preset: "leg/none"}},
		{"unknown controller", Step{Preset: "leg/gait", Excitations: map[string]map[string]float64{"left": {"0": 1}}}},
		{"excitation range", Step{Preset: "leg/gait", Excitations: map[string]map[string]float64{"right": {"2": 1}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := &Scenario{Name: "bad", Steps: []Step{{Preset: "arm/cocontraction"}, tt.step}}
			results, err := RunScenario(context.Background(), sc, t.TempDir(), nil)
			require.Error(t, err)
			require.Len(t, results, 1)
		})
	}
}

func TestLoadScenarioEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: empty\n"), 0o644))
	_, err := LoadScenario(path)
	require.Error(t, err)
}
