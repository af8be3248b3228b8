package controller

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/san-kum/actuate/internal/dynamo"
	"github.com/san-kum/actuate/internal/function"
	"github.com/san-kum/actuate/internal/table"
)

// Prescribed assigns each controlled actuator an independent function of
// time. Actuators without a function receive a zero control.
type Prescribed struct {
	base
	functions []*function.Function
	// pending holds functions prescribed by label before the actuator was
	// attached, in prescription order.
	pending []labeledFunction
}

type labeledFunction struct {
	label string
	fn    *function.Function
}

func NewPrescribed(name string, opts ...Option) *Prescribed {
	return &Prescribed{base: newBase(name, opts)}
}

func (p *Prescribed) Kind() Kind { return KindPrescribed }

func (p *Prescribed) Status() Status {
	if len(p.index) == 0 {
		return Unconfigured
	}
	for _, f := range p.functions {
		if f == nil {
			return Attached
		}
	}
	return Ready
}

// AddActuator attaches the actuator named by label. A function prescribed
// earlier for that label is bound now.
func (p *Prescribed) AddActuator(r dynamo.ActuatorResolver, label string) (int, error) {
	k, added, err := p.attach(r, label)
	if err != nil {
		return -1, err
	}
	if added {
		p.functions = append(p.functions, nil)
	}
	p.bindPending()
	return k, nil
}

func (p *Prescribed) bindPending() {
	kept := p.pending[:0]
	for _, lf := range p.pending {
		if k := p.lookup(lf.label); k >= 0 {
			p.functions[k] = lf.fn
			continue
		}
		kept = append(kept, lf)
	}
	p.pending = kept
}

// PrescribeIndex assigns f to the actuator in slot k, replacing any
// previous function.
func (p *Prescribed) PrescribeIndex(k int, f *function.Function) error {
	if f == nil {
		return fmt.Errorf("%w: nil function", dynamo.ErrInvalidParameter)
	}
	if k < 0 || k >= len(p.index) {
		return fmt.Errorf("%w: controller %s has %d actuators, index %d",
			dynamo.ErrInvalidParameter, p.name, len(p.index), k)
	}
	p.functions[k] = f
	return nil
}

// Prescribe assigns f to the actuator with the given name or absolute path,
// replacing any previous function. If no attached actuator matches, the
// function is held until an actuator with that label is attached or
// Connect is called.
func (p *Prescribed) Prescribe(label string, f *function.Function) error {
	if f == nil {
		return fmt.Errorf("%w: nil function", dynamo.ErrInvalidParameter)
	}
	if k := p.lookup(label); k >= 0 {
		p.functions[k] = f
		return nil
	}
	for i := range p.pending {
		if p.pending[i].label == label {
			p.pending[i].fn = f
			return nil
		}
	}
	p.pending = append(p.pending, labeledFunction{label: label, fn: f})
	return nil
}

// Pending returns the labels prescribed but not yet attached.
func (p *Prescribed) Pending() []string {
	labels := make([]string, len(p.pending))
	for i, lf := range p.pending {
		labels[i] = lf.label
	}
	return labels
}

// Connect attaches every pending label. Labels that do not resolve are
// returned joined; the others are attached regardless.
func (p *Prescribed) Connect(r dynamo.ActuatorResolver) error {
	var errs []error
	for _, label := range p.Pending() {
		if _, err := p.AddActuator(r, label); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Function returns the function for slot k, or nil.
func (p *Prescribed) Function(k int) *function.Function {
	if k < 0 || k >= len(p.functions) {
		return nil
	}
	return p.functions[k]
}

// FromTable builds one function per table column. Columns are matched to
// actuators by name or absolute path and the actuators are attached if
// needed. Each unmatched column yields one *dynamo.ColumnError wrapping
// dynamo.ErrUnmatchedColumn; the remaining columns are still processed.
func (p *Prescribed) FromTable(r dynamo.ActuatorResolver, tbl *table.Table, order function.Order) error {
	if err := tbl.Validate(); err != nil {
		return err
	}

	var errs []error
	for j, label := range tbl.Labels {
		if _, err := r.ActuatorIndex(label); err != nil {
			cerr := &dynamo.ColumnError{Column: label, Wrapped: fmt.Errorf("%w: %v", dynamo.ErrUnmatchedColumn, err)}
			p.logger.Warn("column has no matching actuator",
				zap.String("controller", p.name), zap.String("column", label))
			errs = append(errs, cerr)
			continue
		}

		f, err := function.New(label, tbl.Times, tbl.Columns[j], order)
		if err != nil {
			errs = append(errs, &dynamo.ColumnError{Column: label, Wrapped: err})
			continue
		}

		k, err := p.AddActuator(r, label)
		if err != nil {
			errs = append(errs, &dynamo.ColumnError{Column: label, Wrapped: err})
			continue
		}
		p.functions[k] = f
	}
	return errors.Join(errs...)
}

// Missing returns the names of attached actuators that have no function.
func (p *Prescribed) Missing() []string {
	var names []string
	for k, f := range p.functions {
		if f == nil {
			names = append(names, p.names[k])
		}
	}
	return names
}

// ComputeControls evaluates each function at s.Time in attachment order.
// Actuators without a function get zero and are logged at warn level once
// per call.
func (p *Prescribed) ComputeControls(s *dynamo.State) (dynamo.Control, error) {
	u := make(dynamo.Control, len(p.index))
	for k, f := range p.functions {
		if f != nil {
			u[k] = f.Evaluate(s.Time)
		}
	}
	if missing := p.Missing(); len(missing) > 0 {
		p.logger.Warn("actuators without prescribed function",
			zap.String("controller", p.name),
			zap.Float64("time", s.Time),
			zap.Strings("actuators", missing))
	}
	return u, nil
}
