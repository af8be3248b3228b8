package experiment

import (
	"context"
	"fmt"
	"maps"
	"path/filepath"
	"slices"

	"go.uber.org/zap"

	"github.com/san-kum/actuate/internal/actuator"
	"github.com/san-kum/actuate/internal/config"
	"github.com/san-kum/actuate/internal/controller"
	"github.com/san-kum/actuate/internal/dynamo"
	"github.com/san-kum/actuate/internal/function"
	"github.com/san-kum/actuate/internal/model"
	"github.com/san-kum/actuate/internal/nmf"
	"github.com/san-kum/actuate/internal/sim"
	"github.com/san-kum/actuate/internal/storage"
	"github.com/san-kum/actuate/internal/table"
)

// Study is a model assembled from a config, with the inputs that drive its
// controllers.
type Study struct {
	Config      *config.Config
	Model       *model.Model
	Controllers []controller.Controller
	Inputs      []sim.Inputs
	// Factorizations holds the synergy extraction result per controller
	// name, for controllers configured with factorize.
	Factorizations map[string]*nmf.Result
	// Warnings collects problems tolerated because the study is not strict.
	Warnings []error
}

// Synergy returns the named synergy controller, or nil.
func (s *Study) Synergy(name string) *controller.Synergy {
	for _, c := range s.Controllers {
		if syn, ok := c.(*controller.Synergy); ok && syn.Name() == name {
			return syn
		}
	}
	return nil
}

// SynergySource looks up stored synergy sets by ID or name.
type SynergySource interface {
	GetSynergySet(ctx context.Context, id string) (storage.SynergySet, bool, error)
	FindSynergySet(ctx context.Context, name string) (storage.SynergySet, bool, error)
}

type builder struct {
	cfg       *config.Config
	baseDir   string
	logger    *zap.Logger
	synergies SynergySource
	study     *Study
}

// Build assembles the model and controllers described by cfg. Relative
// file references are resolved against baseDir; synergy_set references
// are looked up in synergies, which may be nil when none are used.
func Build(cfg *config.Config, baseDir string, synergies SynergySource, logger *zap.Logger) (*Study, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	b := &builder{
		cfg:       cfg,
		baseDir:   baseDir,
		logger:    logger,
		synergies: synergies,
		study: &Study{
			Config:         cfg,
			Factorizations: make(map[string]*nmf.Result),
		},
	}
	if err := b.buildModel(); err != nil {
		return nil, err
	}
	if err := b.loadKinematics(); err != nil {
		return nil, err
	}
	for i := range cfg.Controllers {
		cc := &cfg.Controllers[i]
		build, err := controllerBuilder(cc.Kind)
		if err != nil {
			return nil, err
		}
		c, err := build(b, cc)
		if err != nil {
			return nil, fmt.Errorf("controller %s: %w", cc.Name, err)
		}
		if err := b.study.Model.AddController(c); err != nil {
			return nil, err
		}
		b.study.Controllers = append(b.study.Controllers, c)
	}
	return b.study, nil
}

func (b *builder) path(p string) string {
	if p == "" || filepath.IsAbs(p) || b.baseDir == "" {
		return p
	}
	return filepath.Join(b.baseDir, p)
}

// tolerate records err as a warning unless the study is strict.
func (b *builder) tolerate(err error, msg string, fields ...zap.Field) error {
	if err == nil {
		return nil
	}
	if b.cfg.Strict {
		return err
	}
	b.logger.Warn(msg, append(fields, zap.Error(err))...)
	b.study.Warnings = append(b.study.Warnings, err)
	return nil
}

func (b *builder) buildModel() error {
	m := model.New(b.cfg.Name,
		model.WithOptions(model.Options{Strict: b.cfg.Strict, Lazy: b.cfg.Lazy}),
		model.WithLogger(b.logger))
	b.study.Model = m

	for _, c := range b.cfg.Coordinates {
		if _, err := m.AddCoordinate(c.Name, c.Constrained); err != nil {
			return err
		}
	}
	for _, ac := range b.cfg.Actuators {
		a := actuator.NewCoordinateActuator(ac.Name, ac.Coordinate, actuator.WithLogger(b.logger))
		if err := a.SetOptimalForce(ac.OptimalForce); err != nil {
			return fmt.Errorf("actuator %s: %w", ac.Name, err)
		}
		_, err := m.AddActuator(a)
		if err := b.tolerate(err, "actuator not connected", zap.String("actuator", ac.Name)); err != nil {
			return err
		}
	}
	if ca := b.cfg.CoordinateActuators; ca.Enabled {
		if _, err := m.CreateCoordinateActuators(ca.OptimalForce, ca.IncludeConstrained); err != nil {
			return err
		}
	}
	return nil
}

// loadKinematics prescribes coordinate values and speeds from the
// kinematics file. Every column must name a coordinate.
func (b *builder) loadKinematics() error {
	if b.cfg.KinematicsFile == "" {
		return nil
	}
	tbl, err := table.Load(b.path(b.cfg.KinematicsFile))
	if err != nil {
		return err
	}
	in, err := sim.NewCoordinateInputs(b.study.Model, tbl)
	if err != nil {
		return fmt.Errorf("kinematics %s: %w", b.cfg.KinematicsFile, err)
	}
	b.study.Inputs = append(b.study.Inputs, in)
	b.logger.Debug("kinematics loaded",
		zap.String("file", b.cfg.KinematicsFile), zap.Strings("coordinates", tbl.Labels))
	return nil
}

func buildPrescribed(b *builder, cc *config.ControllerConfig) (controller.Controller, error) {
	p := controller.NewPrescribed(cc.Name, controller.WithLogger(b.logger))
	m := b.study.Model
	order := function.Order(cc.Interpolation)

	for _, label := range cc.Actuators {
		if _, err := p.AddActuator(m, label); err != nil {
			return nil, err
		}
	}
	for _, fc := range cc.Functions {
		f, err := function.New(fc.Actuator, fc.Times, fc.Values, order)
		if err != nil {
			return nil, fmt.Errorf("function for %s: %w", fc.Actuator, err)
		}
		if err := p.Prescribe(fc.Actuator, f); err != nil {
			return nil, err
		}
	}
	if err := b.tolerate(p.Connect(m), "prescribed labels not resolved", zap.String("controller", cc.Name)); err != nil {
		return nil, err
	}

	if cc.ControlsFile != "" {
		tbl, err := table.Load(b.path(cc.ControlsFile))
		if err != nil {
			return nil, err
		}
		err = p.FromTable(m, tbl, order)
		if err := b.tolerate(err, "controls file not fully applied",
			zap.String("controller", cc.Name), zap.String("file", cc.ControlsFile)); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func buildSynergy(b *builder, cc *config.ControllerConfig) (controller.Controller, error) {
	syn := controller.NewSynergy(cc.Name, controller.WithLogger(b.logger))
	m := b.study.Model

	var activations *table.Table
	if f := cc.Factorize; f != nil {
		tbl, err := b.excitationTable(cc)
		if err != nil {
			return nil, err
		}
		for _, label := range tbl.Labels {
			if _, err := syn.AddActuator(m, label); err != nil {
				return nil, err
			}
		}
		v, err := tbl.Matrix()
		if err != nil {
			return nil, err
		}
		res, err := nmf.Factorize(v, nmf.Options{
			Rank:          f.Rank,
			MaxIterations: f.MaxIterations,
			Tolerance:     f.Tolerance,
			Seed:          b.cfg.Seed,
			Logger:        b.logger.With(zap.String("controller", cc.Name)),
		})
		if err != nil {
			return nil, fmt.Errorf("factorize %s: %w", f.Source, err)
		}
		if err := syn.FromFactorization(res.H); err != nil {
			return nil, err
		}
		b.study.Factorizations[cc.Name] = res
		activations, err = table.FromMatrix(tbl.Times, syn.InputNames(), res.W)
		if err != nil {
			return nil, err
		}
	} else if cc.SynergySet != "" {
		set, err := b.storedSynergies(cc.SynergySet)
		if err != nil {
			return nil, err
		}
		labels := set.Actuators
		if len(cc.Actuators) > 0 {
			labels = cc.Actuators
		}
		for _, label := range labels {
			if _, err := syn.AddActuator(m, label); err != nil {
				return nil, err
			}
		}
		if err := addStoredVectors(syn, labels, set); err != nil {
			return nil, err
		}
	} else {
		for _, label := range cc.Actuators {
			if _, err := syn.AddActuator(m, label); err != nil {
				return nil, err
			}
		}
		for _, v := range cc.Vectors {
			if _, err := syn.AddSynergyVector(v); err != nil {
				return nil, err
			}
		}
	}

	switch {
	case cc.ExcitationsFile != "":
		in, err := b.excitationsFromFile(syn, cc.ExcitationsFile)
		if err != nil {
			return nil, err
		}
		b.study.Inputs = append(b.study.Inputs, in)
	case len(cc.Excitations) > 0:
		in := sim.ConstantInputs{}
		for key, v := range cc.Excitations {
			k, err := config.ExcitationIndex(key)
			if err != nil {
				return nil, err
			}
			if k >= syn.NumSynergies() {
				return nil, fmt.Errorf("%w: excitation %d for %d synergies",
					dynamo.ErrDimensionMismatch, k, syn.NumSynergies())
			}
			in[syn.InputName(k)] = v
		}
		b.study.Inputs = append(b.study.Inputs, in)
	case activations != nil:
		// Replay the extracted activations so the study reproduces the
		// source excitations.
		in, err := sim.NewTableInputs(activations, function.Linear)
		if err != nil {
			return nil, err
		}
		b.study.Inputs = append(b.study.Inputs, in)
	}
	return syn, nil
}

func (b *builder) storedSynergies(ref string) (storage.SynergySet, error) {
	if b.synergies == nil {
		return storage.SynergySet{}, fmt.Errorf("synergy set %q: no synergy store configured", ref)
	}
	ctx := context.Background()
	set, ok, err := b.synergies.GetSynergySet(ctx, ref)
	if err == nil && !ok {
		set, ok, err = b.synergies.FindSynergySet(ctx, ref)
	}
	if err != nil {
		return storage.SynergySet{}, err
	}
	if !ok {
		return storage.SynergySet{}, fmt.Errorf("%w: synergy set %q not found", dynamo.ErrUnresolvedReference, ref)
	}
	return set, nil
}

// addStoredVectors adds the stored vectors reordered to labels, which must
// name the same actuators as the set.
func addStoredVectors(syn *controller.Synergy, labels []string, set storage.SynergySet) error {
	pos := make(map[string]int, len(set.Actuators))
	for j, a := range set.Actuators {
		pos[a] = j
	}
	if len(labels) != len(set.Actuators) {
		return fmt.Errorf("%w: synergy set %s covers %d actuators, controller lists %d",
			dynamo.ErrDimensionMismatch, set.Name, len(set.Actuators), len(labels))
	}
	for _, v := range set.Vectors {
		w := make([]float64, len(labels))
		for j, label := range labels {
			src, ok := pos[label]
			if !ok {
				return fmt.Errorf("%w: actuator %s not in synergy set %s", dynamo.ErrDimensionMismatch, label, set.Name)
			}
			w[j] = v[src]
		}
		if _, err := syn.AddSynergyVector(w); err != nil {
			return err
		}
	}
	return nil
}

// excitationTable loads the factorization source and keeps the columns
// named by the controller: explicit columns, else its actuators, else a
// name suffix, else everything.
func (b *builder) excitationTable(cc *config.ControllerConfig) (*table.Table, error) {
	f := cc.Factorize
	tbl, err := table.Load(b.path(f.Source))
	if err != nil {
		return nil, err
	}
	switch {
	case len(f.Columns) > 0:
		tbl, err = tbl.Select(f.Columns...)
	case len(cc.Actuators) > 0:
		tbl, err = tbl.Select(cc.Actuators...)
	case f.Suffix != "":
		tbl = tbl.SelectSuffix(f.Suffix)
	}
	if err != nil {
		return nil, err
	}

	if f.Scale > 0 && f.Scale != 1 {
		tbl.Scale(f.Scale)
	}
	for _, col := range slices.Sorted(maps.Keys(f.ColumnScale)) {
		if err := tbl.ScaleColumn(col, f.ColumnScale[col]); err != nil {
			return nil, fmt.Errorf("factorize %s: %w", f.Source, err)
		}
	}
	return tbl, nil
}

func (b *builder) excitationsFromFile(syn *controller.Synergy, path string) (*sim.TableInputs, error) {
	tbl, err := table.Load(b.path(path))
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(tbl.Labels))
	for _, label := range tbl.Labels {
		k, err := config.ExcitationIndex(label)
		if err != nil {
			return nil, &dynamo.ColumnError{Column: label, Wrapped: fmt.Errorf("%w: %v", dynamo.ErrUnmatchedColumn, err)}
		}
		if k >= syn.NumSynergies() {
			return nil, &dynamo.ColumnError{Column: label, Wrapped: dynamo.ErrUnmatchedColumn}
		}
		names[label] = syn.InputName(k)
	}
	in, err := sim.NewTableInputs(tbl, function.Linear)
	if err != nil {
		return nil, err
	}
	in.Rename(names)
	return in, nil
}
