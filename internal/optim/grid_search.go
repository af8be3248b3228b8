// Package optim searches synergy excitations for the levels that best
// meet an objective.
package optim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/actuate/internal/dynamo"
)

// Objective scores one assignment of parameters; lower is better.
type Objective func(ctx context.Context, params map[string]float64) (float64, error)

// Best is the lowest-scoring assignment found.
type Best struct {
	Params map[string]float64
	Value  float64
	// Evaluated counts grid points scored successfully; Failed counts the
	// rest.
	Evaluated int
	Failed    int
}

// GridSearch evaluates every combination of parameter levels.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) != len(ranges) {
		return nil, fmt.Errorf("%w: %d parameters, %d ranges", dynamo.ErrDimensionMismatch, len(params), len(ranges))
	}
	for i, r := range ranges {
		if len(r) == 0 {
			return nil, fmt.Errorf("%w: parameter %s has no levels", dynamo.ErrInvalidParameter, params[i])
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges}, nil
}

// Size is the number of grid points.
func (g *GridSearch) Size() int {
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

// Search scores every grid point. Points whose objective fails are skipped;
// if all fail the last error is returned. Cancellation stops the search.
func (g *GridSearch) Search(ctx context.Context, objective Objective) (Best, error) {
	best := Best{Value: math.Inf(1)}
	var lastErr error
	err := g.searchRecursive(ctx, 0, make(map[string]float64, len(g.paramNames)), objective, &best, &lastErr)
	if err != nil {
		return best, err
	}
	if best.Params == nil {
		if lastErr == nil {
			lastErr = errors.New("empty grid")
		}
		return best, fmt.Errorf("no grid point could be scored: %w", lastErr)
	}
	return best, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	objective Objective,
	best *Best,
	lastErr *error,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth == len(g.paramNames) {
		val, err := objective(ctx, current)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			best.Failed++
			*lastErr = err
			return nil
		}
		best.Evaluated++
		if val < best.Value {
			best.Value = val
			best.Params = make(map[string]float64, len(current))
			for k, v := range current {
				best.Params[k] = v
			}
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		current[paramName] = val
		if err := g.searchRecursive(ctx, depth+1, current, objective, best, lastErr); err != nil {
			return err
		}
	}
	delete(current, paramName)
	return nil
}

// Levels returns n evenly spaced values from lower to upper inclusive.
func Levels(lower, upper float64, n int) []float64 {
	if n <= 1 {
		return []float64{lower}
	}
	return floats.Span(make([]float64, n), lower, upper)
}
