package sim

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/san-kum/actuate/internal/dynamo"
)

// Simulator evaluates a model on a fixed time grid. It stands in for the
// dynamics driver: every sample gets one controller and actuator
// evaluation, and no state is integrated between samples.
type Simulator struct {
	model     Realizer
	inputs    []Inputs
	metrics   []dynamo.Metric
	observers []dynamo.Observer
	logger    *zap.Logger
}

func New(m Realizer) *Simulator {
	return &Simulator{
		model:     m,
		inputs:    make([]Inputs, 0),
		metrics:   make([]dynamo.Metric, 0),
		observers: make([]dynamo.Observer, 0),
		logger:    zap.NewNop(),
	}
}

func (s *Simulator) AddInputs(in Inputs)           { s.inputs = append(s.inputs, in) }
func (s *Simulator) AddMetric(m dynamo.Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o dynamo.Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) SetLogger(l *zap.Logger) {
	if l != nil {
		s.logger = l
	}
}

func (s *Simulator) validateConfig(cfg Config) error {
	if !(cfg.Dt > 0) {
		return fmt.Errorf("dt must be positive, got %f", cfg.Dt)
	}
	if !(cfg.Duration > 0) {
		return fmt.Errorf("duration must be positive, got %f", cfg.Duration)
	}
	if math.IsNaN(cfg.Start) || math.IsInf(cfg.Start, 0) {
		return fmt.Errorf("start must be finite, got %f", cfg.Start)
	}
	return nil
}

// Steps returns the number of intervals on the grid; the run evaluates
// Steps+1 samples including both ends.
func (cfg Config) Steps() int {
	return int(math.Round(cfg.Duration / cfg.Dt))
}

// Evaluate fills and realizes a single state at time t.
func (s *Simulator) Evaluate(t float64) (*dynamo.State, error) {
	st := s.model.NewState(t)
	for _, in := range s.inputs {
		if err := in.Fill(st); err != nil {
			return nil, err
		}
	}
	if _, err := s.model.Realize(st); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Simulator) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}

	steps := cfg.Steps()
	result := &Result{
		Times:    make([]float64, 0, steps+1),
		Controls: make([]dynamo.Control, 0, steps+1),
		Forces:   make([][]float64, 0, steps+1),
		Mobility: make([][]float64, 0, steps+1),
		Metrics:  make(map[string]float64),
		Reports:  make([]error, 0),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	for i := 0; i <= steps; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		t := cfg.Start + float64(i)*cfg.Dt
		st := s.model.NewState(t)
		for _, in := range s.inputs {
			if err := in.Fill(st); err != nil {
				return result, &StepError{Step: i, Time: t, Wrapped: err}
			}
		}

		r, err := s.model.Realize(st)
		if err != nil {
			return result, &StepError{Step: i, Time: t, Wrapped: err}
		}

		for _, m := range s.metrics {
			m.Observe(st, r.Controls, r.Forces)
		}
		for _, obs := range s.observers {
			obs.OnStep(st, r.Controls, r.Forces)
		}

		result.Times = append(result.Times, t)
		result.Controls = append(result.Controls, r.Controls)
		result.Forces = append(result.Forces, r.Forces)
		result.Mobility = append(result.Mobility, r.Mobility)
		result.StepsTaken++

		if len(r.Reports) > 0 {
			result.Reports = append(result.Reports, r.Reports...)
			if cfg.StopOnReport {
				s.logger.Warn("stopping on reported condition",
					zap.Int("step", i), zap.Float64("time", t), zap.Errors("reports", r.Reports))
				break
			}
		}
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	if len(result.Reports) > 0 {
		s.logger.Warn("run finished with reported conditions", zap.Int("reports", len(result.Reports)))
	}
	return result, nil
}

// RunWithCallback evaluates the grid and hands each state to callback until
// it returns false.
func (s *Simulator) RunWithCallback(ctx context.Context, cfg Config, callback func(*dynamo.State, dynamo.Control, float64) bool) error {
	if err := s.validateConfig(cfg); err != nil {
		return err
	}

	steps := cfg.Steps()
	for i := 0; i <= steps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		t := cfg.Start + float64(i)*cfg.Dt
		st, err := s.Evaluate(t)
		if err != nil {
			return &StepError{Step: i, Time: t, Wrapped: err}
		}
		if !callback(st, st.Controls, t) {
			return nil
		}
	}
	return nil
}
