// Package experiment turns a study config into a runnable simulation.
package experiment

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/san-kum/actuate/internal/config"
	"github.com/san-kum/actuate/internal/sim"
)

type Experiment struct {
	cfg       *config.Config
	study     *Study
	simulator *sim.Simulator
	logger    *zap.Logger
}

type Option func(*options)

type options struct {
	baseDir   string
	logger    *zap.Logger
	metrics   []string
	synergies SynergySource
}

// WithBaseDir sets the directory relative file references resolve against.
func WithBaseDir(dir string) Option { return func(o *options) { o.baseDir = dir } }

func WithLogger(l *zap.Logger) Option { return func(o *options) { o.logger = l } }

// WithSynergySource resolves synergy_set references.
func WithSynergySource(src SynergySource) Option { return func(o *options) { o.synergies = src } }

// WithMetrics selects metrics by registry name instead of the defaults.
func WithMetrics(names ...string) Option { return func(o *options) { o.metrics = names } }

func New(cfg *config.Config, opts ...Option) (*Experiment, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	study, err := Build(cfg, o.baseDir, o.synergies, o.logger)
	if err != nil {
		return nil, err
	}

	s := sim.New(study.Model)
	s.SetLogger(o.logger)
	for _, in := range study.Inputs {
		s.AddInputs(in)
	}

	reg := NewRegistry()
	if len(o.metrics) == 0 {
		for _, m := range reg.DefaultMetrics(study.Model) {
			s.AddMetric(m)
		}
	} else {
		for _, name := range o.metrics {
			m, err := reg.GetMetric(name, study.Model)
			if err != nil {
				return nil, err
			}
			s.AddMetric(m)
		}
	}

	return &Experiment{cfg: cfg, study: study, simulator: s, logger: o.logger}, nil
}

func (e *Experiment) SimConfig() sim.Config {
	return sim.Config{
		Dt:       e.cfg.Dt,
		Duration: e.cfg.Duration,
	}
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	e.logger.Debug("running study", zap.String("study", e.cfg.Name),
		zap.Float64("dt", e.cfg.Dt), zap.Float64("duration", e.cfg.Duration))
	return e.simulator.Run(ctx, e.SimConfig())
}

func (e *Experiment) Study() *Study { return e.study }

// GetSimulator returns the underlying simulator for adding observers.
func (e *Experiment) GetSimulator() *sim.Simulator {
	return e.simulator
}

// Sweep runs the study once per level with excitation k of the named
// synergy controller held at that level. Every run gets its own model, so
// runs execute concurrently.
func Sweep(ctx context.Context, cfg *config.Config, controllerName string, k int, levels []float64, opts ...Option) ([]*sim.Result, error) {
	exps := make([]*Experiment, len(levels))
	for i, level := range levels {
		e, err := New(cfg, opts...)
		if err != nil {
			return nil, err
		}
		syn := e.study.Synergy(controllerName)
		if syn == nil {
			return nil, fmt.Errorf("no synergy controller %q", controllerName)
		}
		if k < 0 || k >= syn.NumSynergies() {
			return nil, fmt.Errorf("controller %s has %d synergies, index %d", controllerName, syn.NumSynergies(), k)
		}
		e.simulator.AddInputs(sim.ConstantInputs{syn.InputName(k): level})
		exps[i] = e
	}

	ens := sim.NewEnsemble(func(i int) (*sim.Simulator, sim.Config, error) {
		return exps[i].simulator, exps[i].SimConfig(), nil
	}, len(exps))
	return ens.Run(ctx)
}
