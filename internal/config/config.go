package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/actuate/internal/dynamo"
	"github.com/san-kum/actuate/internal/function"
)

const (
	DefaultDt            = 0.01
	DefaultDuration      = 1.0
	DefaultOptimalForce  = 1.0
	DefaultRank          = 2
	DefaultMaxIterations = 1000
	DefaultTolerance     = 1e-6

	KindPrescribed = "prescribed"
	KindSynergy    = "synergy"

	// ExcitationPrefix is the key prefix of synergy excitation entries.
	ExcitationPrefix = "synergy_excitation_"
)

// Config describes one study: the mechanism's coordinates, the actuators
// acting on them and the controllers driving the actuators.
type Config struct {
	Name     string  `yaml:"name"`
	Duration float64 `yaml:"duration"`
	Dt       float64 `yaml:"dt"`
	Seed     int64   `yaml:"seed"`
	// Strict turns the first unresolved reference met during evaluation
	// into an error instead of a report.
	Strict bool `yaml:"strict"`
	// Lazy defers coordinate resolution failures at setup to evaluation
	// time.
	Lazy bool `yaml:"lazy"`
	// KinematicsFile is a table of coordinate values over time, one column
	// per coordinate. Coordinate speeds are derived from it.
	KinematicsFile string `yaml:"kinematics_file,omitempty"`

	Coordinates         []CoordinateConfig        `yaml:"coordinates"`
	Actuators           []ActuatorConfig          `yaml:"actuators"`
	CoordinateActuators CoordinateActuatorsConfig `yaml:"coordinate_actuators"`
	Controllers         []ControllerConfig        `yaml:"controllers"`
}

type CoordinateConfig struct {
	Name        string `yaml:"name"`
	Constrained bool   `yaml:"constrained"`
}

type ActuatorConfig struct {
	Name         string  `yaml:"name"`
	Coordinate   string  `yaml:"coordinate"`
	OptimalForce float64 `yaml:"optimal_force"`
}

// CoordinateActuatorsConfig adds one actuator per coordinate.
type CoordinateActuatorsConfig struct {
	Enabled            bool    `yaml:"enabled"`
	OptimalForce       float64 `yaml:"optimal_force"`
	IncludeConstrained bool    `yaml:"include_constrained"`
}

type ControllerConfig struct {
	Name      string   `yaml:"name"`
	Kind      string   `yaml:"kind"`
	Actuators []string `yaml:"actuators,omitempty"`

	// Prescribed.
	ControlsFile  string           `yaml:"controls_file,omitempty"`
	Interpolation int              `yaml:"interpolation,omitempty"`
	Functions     []FunctionConfig `yaml:"functions,omitempty"`

	// Synergy.
	Vectors         [][]float64        `yaml:"vectors,omitempty"`
	SynergySet      string             `yaml:"synergy_set,omitempty"`
	Factorize       *FactorizeConfig   `yaml:"factorize,omitempty"`
	Excitations     map[string]float64 `yaml:"excitations,omitempty"`
	ExcitationsFile string             `yaml:"excitations_file,omitempty"`
}

// FunctionConfig is an inline prescribed control.
type FunctionConfig struct {
	Actuator string    `yaml:"actuator"`
	Times    []float64 `yaml:"times"`
	Values   []float64 `yaml:"values"`
}

// FactorizeConfig extracts synergy vectors from tabulated excitations.
type FactorizeConfig struct {
	Source        string   `yaml:"source"`
	Columns       []string `yaml:"columns,omitempty"`
	Suffix        string   `yaml:"suffix,omitempty"`
	Rank          int      `yaml:"rank"`
	MaxIterations int      `yaml:"max_iterations"`
	Tolerance     float64  `yaml:"tolerance"`
	// Scale multiplies every selected column before factorizing; zero
	// means 1. ColumnScale applies per column on top of it.
	Scale       float64            `yaml:"scale,omitempty"`
	ColumnScale map[string]float64 `yaml:"column_scale,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Name:     "study",
		Dt:       DefaultDt,
		Duration: DefaultDuration,
		CoordinateActuators: CoordinateActuatorsConfig{
			OptimalForce: DefaultOptimalForce,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML on top of DefaultConfig, fills per-entry defaults
// and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) applyDefaults() {
	for i := range c.Actuators {
		if c.Actuators[i].OptimalForce == 0 {
			c.Actuators[i].OptimalForce = DefaultOptimalForce
		}
	}
	if c.CoordinateActuators.OptimalForce == 0 {
		c.CoordinateActuators.OptimalForce = DefaultOptimalForce
	}
	for i := range c.Controllers {
		f := c.Controllers[i].Factorize
		if f == nil {
			continue
		}
		if f.Rank == 0 {
			f.Rank = DefaultRank
		}
		if f.MaxIterations == 0 {
			f.MaxIterations = DefaultMaxIterations
		}
		if f.Tolerance == 0 {
			f.Tolerance = DefaultTolerance
		}
		if f.Scale == 0 {
			f.Scale = 1
		}
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", dynamo.ErrInvalidParameter, fmt.Sprintf(format, args...))
}

// Validate checks the study for problems that can be detected without
// reading any referenced files. All problems are returned joined.
func (c *Config) Validate() error {
	var errs []error
	if !(c.Dt > 0) {
		errs = append(errs, invalid("dt must be positive, got %g", c.Dt))
	}
	if !(c.Duration > 0) {
		errs = append(errs, invalid("duration must be positive, got %g", c.Duration))
	}

	coords := make(map[string]bool, len(c.Coordinates))
	for i, co := range c.Coordinates {
		switch {
		case co.Name == "":
			errs = append(errs, invalid("coordinate %d has no name", i))
		case coords[co.Name]:
			errs = append(errs, invalid("duplicate coordinate %q", co.Name))
		}
		coords[co.Name] = true
	}

	actuators := make(map[string]bool, len(c.Actuators))
	for i, a := range c.Actuators {
		if a.Name == "" {
			errs = append(errs, invalid("actuator %d has no name", i))
		} else if actuators[a.Name] {
			errs = append(errs, invalid("duplicate actuator %q", a.Name))
		}
		actuators[a.Name] = true
		if a.Coordinate == "" {
			errs = append(errs, invalid("actuator %q has no coordinate", a.Name))
		}
		if !(a.OptimalForce > 0) {
			errs = append(errs, invalid("actuator %q: optimal force must be positive, got %g", a.Name, a.OptimalForce))
		}
	}
	if c.CoordinateActuators.Enabled && !(c.CoordinateActuators.OptimalForce > 0) {
		errs = append(errs, invalid("coordinate actuators: optimal force must be positive, got %g", c.CoordinateActuators.OptimalForce))
	}

	names := make(map[string]bool, len(c.Controllers))
	for i := range c.Controllers {
		ctrl := &c.Controllers[i]
		if ctrl.Name == "" {
			errs = append(errs, invalid("controller %d has no name", i))
		} else if names[ctrl.Name] {
			errs = append(errs, invalid("duplicate controller %q", ctrl.Name))
		}
		names[ctrl.Name] = true
		if err := ctrl.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("controller %q: %w", ctrl.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (c *ControllerConfig) Validate() error {
	switch c.Kind {
	case KindPrescribed:
		return c.validatePrescribed()
	case KindSynergy:
		return c.validateSynergy()
	default:
		return invalid("unknown controller kind %q", c.Kind)
	}
}

func (c *ControllerConfig) validatePrescribed() error {
	switch function.Order(c.Interpolation) {
	case function.Constant, function.Linear, function.Cubic, function.Quintic:
	default:
		return invalid("interpolation must be 0, 1, 3 or 5, got %d", c.Interpolation)
	}
	if len(c.Vectors) > 0 || c.Factorize != nil || c.SynergySet != "" || len(c.Excitations) > 0 || c.ExcitationsFile != "" {
		return invalid("synergy settings on a prescribed controller")
	}
	for _, f := range c.Functions {
		if f.Actuator == "" {
			return invalid("prescribed function without actuator")
		}
		if len(f.Times) != len(f.Values) {
			return fmt.Errorf("%w: function for %q has %d times and %d values",
				dynamo.ErrDimensionMismatch, f.Actuator, len(f.Times), len(f.Values))
		}
	}
	return nil
}

func (c *ControllerConfig) validateSynergy() error {
	if c.ControlsFile != "" || len(c.Functions) > 0 {
		return invalid("prescribed settings on a synergy controller")
	}
	sources := 0
	for _, set := range []bool{len(c.Vectors) > 0, c.Factorize != nil, c.SynergySet != ""} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return invalid("synergy controller needs exactly one of vectors, factorize or synergy_set")
	}
	for k, v := range c.Vectors {
		if len(c.Actuators) > 0 && len(v) != len(c.Actuators) {
			return fmt.Errorf("%w: vector %d has %d weights for %d actuators",
				dynamo.ErrDimensionMismatch, k, len(v), len(c.Actuators))
		}
		for j, w := range v {
			if w < 0 {
				return invalid("vector %d weight %d is negative", k, j)
			}
		}
	}
	if f := c.Factorize; f != nil {
		if f.Source == "" {
			return invalid("factorize needs a source table")
		}
		if f.Rank < 1 || f.MaxIterations < 1 || !(f.Tolerance > 0) {
			return invalid("factorize: rank %d, max_iterations %d, tolerance %g", f.Rank, f.MaxIterations, f.Tolerance)
		}
		if f.Scale < 0 || math.IsNaN(f.Scale) || math.IsInf(f.Scale, 0) {
			return invalid("factorize: scale must be non-negative, got %g", f.Scale)
		}
		for col, v := range f.ColumnScale {
			if !(v >= 0) || math.IsInf(v, 0) {
				return invalid("factorize: column_scale[%s] must be non-negative, got %g", col, v)
			}
		}
	}
	for key := range c.Excitations {
		if _, err := ExcitationIndex(key); err != nil {
			return err
		}
	}
	return nil
}

// ExcitationIndex parses "synergy_excitation_<k>" (or a bare "<k>").
func ExcitationIndex(key string) (int, error) {
	k, err := strconv.Atoi(strings.TrimPrefix(key, ExcitationPrefix))
	if err != nil || k < 0 {
		return -1, invalid("bad excitation key %q", key)
	}
	return k, nil
}
