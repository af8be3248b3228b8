// Package table holds tabulated time series: a time column plus labeled
// value columns. It is the adapter between controls or excitation files and
// the control-allocation core.
package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/actuate/internal/dynamo"
)

type Table struct {
	Times   []float64
	Labels  []string
	Columns [][]float64
}

func New(times []float64) *Table {
	return &Table{Times: append([]float64(nil), times...)}
}

// FromMatrix builds a table whose rows are time samples of m.
func FromMatrix(times []float64, labels []string, m mat.Matrix) (*Table, error) {
	r, c := m.Dims()
	if r != len(times) || c != len(labels) {
		return nil, fmt.Errorf("%w: matrix is %dx%d, have %d times and %d labels",
			dynamo.ErrDimensionMismatch, r, c, len(times), len(labels))
	}
	t := New(times)
	for j, label := range labels {
		col := make([]float64, r)
		mat.Col(col, j, m)
		if err := t.AddColumn(label, col); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Table) NumRows() int    { return len(t.Times) }
func (t *Table) NumColumns() int { return len(t.Labels) }

func (t *Table) AddColumn(label string, values []float64) error {
	if len(values) != len(t.Times) {
		return fmt.Errorf("%w: column %q has %d rows, table has %d",
			dynamo.ErrDimensionMismatch, label, len(values), len(t.Times))
	}
	if t.ColumnIndex(label) >= 0 {
		return fmt.Errorf("%w: duplicate column %q", dynamo.ErrInvalidParameter, label)
	}
	t.Labels = append(t.Labels, label)
	t.Columns = append(t.Columns, append([]float64(nil), values...))
	return nil
}

func (t *Table) ColumnIndex(label string) int {
	for i, l := range t.Labels {
		if l == label {
			return i
		}
	}
	return -1
}

func (t *Table) Column(label string) ([]float64, bool) {
	i := t.ColumnIndex(label)
	if i < 0 {
		return nil, false
	}
	return t.Columns[i], true
}

// Validate checks that times are strictly increasing and every column
// matches the time column length.
func (t *Table) Validate() error {
	for i := 1; i < len(t.Times); i++ {
		if !(t.Times[i] > t.Times[i-1]) {
			return fmt.Errorf("%w: row %d (t=%g)", dynamo.ErrNotIncreasing, i, t.Times[i])
		}
	}
	for i, col := range t.Columns {
		if len(col) != len(t.Times) {
			return fmt.Errorf("%w: column %q", dynamo.ErrDimensionMismatch, t.Labels[i])
		}
	}
	return nil
}

// Select returns a new table restricted to the given columns, in order.
func (t *Table) Select(labels ...string) (*Table, error) {
	out := New(t.Times)
	for _, label := range labels {
		col, ok := t.Column(label)
		if !ok {
			return nil, fmt.Errorf("%w: column %q not in table", dynamo.ErrInvalidParameter, label)
		}
		if err := out.AddColumn(label, col); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// SelectFunc returns a new table with the columns whose label satisfies keep.
func (t *Table) SelectFunc(keep func(label string) bool) *Table {
	out := New(t.Times)
	for i, label := range t.Labels {
		if keep(label) {
			out.Labels = append(out.Labels, label)
			out.Columns = append(out.Columns, append([]float64(nil), t.Columns[i]...))
		}
	}
	return out
}

// SelectSuffix keeps the columns whose label ends with suffix, e.g. "_r"
// for the right leg.
func (t *Table) SelectSuffix(suffix string) *Table {
	return t.SelectFunc(func(label string) bool { return strings.HasSuffix(label, suffix) })
}

// Scale multiplies every column by factor.
func (t *Table) Scale(factor float64) {
	for _, col := range t.Columns {
		floats.Scale(factor, col)
	}
}

// ScaleColumn multiplies one column by factor.
func (t *Table) ScaleColumn(label string, factor float64) error {
	col, ok := t.Column(label)
	if !ok {
		return fmt.Errorf("%w: column %q not in table", dynamo.ErrInvalidParameter, label)
	}
	floats.Scale(factor, col)
	return nil
}

// Matrix returns the values as a dense matrix with one row per time sample
// and one column per label.
func (t *Table) Matrix() (*mat.Dense, error) {
	if len(t.Times) == 0 || len(t.Labels) == 0 {
		return nil, fmt.Errorf("%w: table has %d rows and %d columns",
			dynamo.ErrInvalidParameter, len(t.Times), len(t.Labels))
	}
	m := mat.NewDense(len(t.Times), len(t.Labels), nil)
	for j, col := range t.Columns {
		m.SetCol(j, col)
	}
	return m, nil
}

// Row returns the values at row i.
func (t *Table) Row(i int) []float64 {
	row := make([]float64, len(t.Columns))
	for j, col := range t.Columns {
		row[j] = col[i]
	}
	return row
}

// Read parses CSV data whose first column is time and whose header row
// carries the column labels.
func Read(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty table", dynamo.ErrInvalidParameter)
	}

	header := records[0]
	if len(header) < 1 {
		return nil, fmt.Errorf("%w: missing time column", dynamo.ErrInvalidParameter)
	}

	t := &Table{
		Labels:  append([]string(nil), header[1:]...),
		Columns: make([][]float64, len(header)-1),
	}
	for i, record := range records[1:] {
		row := i + 2
		v, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: time: %w", row, err)
		}
		t.Times = append(t.Times, v)
		for j := 1; j < len(record); j++ {
			v, err := strconv.ParseFloat(record[j], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: column %q: %w", row, header[j], err)
			}
			t.Columns[j-1] = append(t.Columns[j-1], v)
		}
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read table %s: %w", path, err)
	}
	return t, nil
}

func (t *Table) Write(w io.Writer) error {
	cw := csv.NewWriter(w)

	header := append([]string{"time"}, t.Labels...)
	if err := cw.Write(header); err != nil {
		return err
	}
	for i, tm := range t.Times {
		row := make([]string, 0, len(t.Columns)+1)
		row = append(row, strconv.FormatFloat(tm, 'f', 6, 64))
		for _, col := range t.Columns {
			row = append(row, strconv.FormatFloat(col[i], 'g', -1, 64))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (t *Table) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return t.Write(f)
}
