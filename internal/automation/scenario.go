// Package automation runs scripted sequences of studies.
package automation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/actuate/internal/config"
	"github.com/san-kum/actuate/internal/experiment"
	"github.com/san-kum/actuate/internal/sim"
)

// Scenario defines a scripted sequence of studies.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Steps       []Step `yaml:"steps"`
}

// Step runs one study. Exactly one of Study and Preset is set.
type Step struct {
	// Study is a config file, relative to the scenario file.
	Study string `yaml:"study,omitempty"`
	// Preset is "group/name".
	Preset   string  `yaml:"preset,omitempty"`
	Duration float64 `yaml:"duration,omitempty"`
	Dt       float64 `yaml:"dt,omitempty"`
	// Excitations holds constant excitations per synergy controller,
	// overriding the study's own.
	Excitations map[string]map[string]float64 `yaml:"excitations,omitempty"`
	SaveAs      string                        `yaml:"save_as,omitempty"`
}

// StepResult pairs a step with the study it ran and its result.
type StepResult struct {
	Name   string
	Config *config.Config
	Study  *experiment.Study
	Result *sim.Result
}

// LoadScenario loads a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s has no steps", path)
	}
	return &scenario, nil
}

func (s Step) config(baseDir string) (*config.Config, string, error) {
	switch {
	case s.Study != "" && s.Preset != "":
		return nil, "", fmt.Errorf("study and preset are mutually exclusive")
	case s.Study != "":
		path := s.Study
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		cfg, err := config.Load(path)
		return cfg, filepath.Dir(path), err
	case s.Preset != "":
		group, name, ok := strings.Cut(s.Preset, "/")
		if !ok {
			return nil, "", fmt.Errorf("preset must be group/name, got %q", s.Preset)
		}
		cfg := config.GetPreset(group, name)
		if cfg == nil {
			return nil, "", fmt.Errorf("preset not found: %s", s.Preset)
		}
		return cfg, baseDir, nil
	default:
		return nil, "", fmt.Errorf("step needs a study or a preset")
	}
}

// RunScenario executes every step in order and stops at the first failure,
// returning the results gathered so far. baseDir resolves relative study
// paths; opts are passed to every experiment.
func RunScenario(ctx context.Context, scenario *Scenario, baseDir string, logger *zap.Logger, opts ...experiment.Option) ([]StepResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		cfg, dir, err := step.config(baseDir)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		if step.Duration > 0 {
			cfg.Duration = step.Duration
		}
		if step.Dt > 0 {
			cfg.Dt = step.Dt
		}

		name := step.SaveAs
		if name == "" {
			name = cfg.Name
		}
		logger.Info("running scenario step",
			zap.String("scenario", scenario.Name),
			zap.Int("step", i+1),
			zap.Int("steps", len(scenario.Steps)),
			zap.String("study", name))

		stepOpts := append([]experiment.Option{experiment.WithBaseDir(dir), experiment.WithLogger(logger)}, opts...)
		exp, err := experiment.New(cfg, stepOpts...)
		if err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}
		held, err := excitations(exp.Study(), step.Excitations)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		if len(held) > 0 {
			exp.GetSimulator().AddInputs(held)
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}
		results = append(results, StepResult{Name: name, Config: cfg, Study: exp.Study(), Result: result})
	}

	return results, nil
}

func excitations(study *experiment.Study, byController map[string]map[string]float64) (sim.ConstantInputs, error) {
	held := sim.ConstantInputs{}
	for ctrl, values := range byController {
		syn := study.Synergy(ctrl)
		if syn == nil {
			return nil, fmt.Errorf("no synergy controller %q", ctrl)
		}
		for key, v := range values {
			k, err := config.ExcitationIndex(key)
			if err != nil {
				return nil, err
			}
			if k >= syn.NumSynergies() {
				return nil, fmt.Errorf("controller %s has %d synergies, index %d", ctrl, syn.NumSynergies(), k)
			}
			held[syn.InputName(k)] = v
		}
	}
	return held, nil
}
