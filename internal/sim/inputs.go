package sim

import (
	"fmt"

	"github.com/san-kum/actuate/internal/dynamo"
	"github.com/san-kum/actuate/internal/function"
	"github.com/san-kum/actuate/internal/table"
)

// Inputs supplies the externally driven part of a state, such as synergy
// excitations or prescribed coordinate values.
type Inputs interface {
	Fill(s *dynamo.State) error
}

// ConstantInputs sets the same input values at every time.
type ConstantInputs map[string]float64

func (c ConstantInputs) Fill(s *dynamo.State) error {
	for k, v := range c {
		s.SetInput(k, v)
	}
	return nil
}

// TableInputs interpolates input values from table columns. Each column
// label is the input name it drives.
type TableInputs struct {
	names []string
	fns   []*function.Function
}

func NewTableInputs(tbl *table.Table, order function.Order) (*TableInputs, error) {
	ti := &TableInputs{}
	for j, label := range tbl.Labels {
		f, err := function.New(label, tbl.Times, tbl.Columns[j], order)
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", label, err)
		}
		ti.names = append(ti.names, label)
		ti.fns = append(ti.fns, f)
	}
	return ti, nil
}

// Rename maps column labels to input names, e.g. W columns to synergy
// excitation inputs.
func (ti *TableInputs) Rename(names map[string]string) {
	for i, n := range ti.names {
		if to, ok := names[n]; ok {
			ti.names[i] = to
		}
	}
}

func (ti *TableInputs) Names() []string { return append([]string(nil), ti.names...) }

func (ti *TableInputs) Fill(s *dynamo.State) error {
	for i, f := range ti.fns {
		s.SetInput(ti.names[i], f.Evaluate(s.Time))
	}
	return nil
}

// CoordinateInputs prescribes coordinate values and speeds from tabulated
// kinematics. Columns are matched to coordinate indices up front.
type CoordinateInputs struct {
	index []int
	fns   []*function.Function
}

func NewCoordinateInputs(r dynamo.CoordinateResolver, tbl *table.Table) (*CoordinateInputs, error) {
	ci := &CoordinateInputs{}
	for j, label := range tbl.Labels {
		idx, err := r.CoordinateIndex(label)
		if err != nil {
			return nil, &dynamo.ColumnError{Column: label, Wrapped: err}
		}
		f, err := function.New(label, tbl.Times, tbl.Columns[j], function.Quintic)
		if err != nil {
			return nil, &dynamo.ColumnError{Column: label, Wrapped: err}
		}
		ci.index = append(ci.index, idx)
		ci.fns = append(ci.fns, f)
	}
	return ci, nil
}

const speedStep = 1e-6

func (ci *CoordinateInputs) Fill(s *dynamo.State) error {
	for i, f := range ci.fns {
		idx := ci.index[i]
		if idx >= len(s.Q) {
			return fmt.Errorf("%w: coordinate %d, state has %d", dynamo.ErrDimensionMismatch, idx, len(s.Q))
		}
		s.Q[idx] = f.Evaluate(s.Time)
		s.U[idx] = (f.Evaluate(s.Time+speedStep) - f.Evaluate(s.Time-speedStep)) / (2 * speedStep)
	}
	return nil
}
