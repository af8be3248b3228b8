package viz

import (
	"fmt"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/actuate/internal/table"
)

const (
	plotWidth  = 80
	plotHeight = 10
)

// PlotColumns draws one terminal graph per selected column. With no labels
// every column is drawn.
func PlotColumns(tbl *table.Table, labels ...string) (string, error) {
	if len(labels) == 0 {
		labels = tbl.Labels
	}
	var b strings.Builder
	for _, label := range labels {
		col, ok := tbl.Column(label)
		if !ok {
			return "", fmt.Errorf("column %q not in table", label)
		}
		if len(col) == 0 {
			continue
		}
		b.WriteString(asciigraph.Plot(col,
			asciigraph.Height(plotHeight),
			asciigraph.Width(plotWidth),
			asciigraph.Caption(label),
		))
		b.WriteString("\n\n")
	}
	return b.String(), nil
}

// PlotOverlay draws the selected columns on one graph, one color each.
func PlotOverlay(tbl *table.Table, caption string, labels ...string) (string, error) {
	if len(labels) == 0 {
		labels = tbl.Labels
	}
	series := make([][]float64, 0, len(labels))
	for _, label := range labels {
		col, ok := tbl.Column(label)
		if !ok {
			return "", fmt.Errorf("column %q not in table", label)
		}
		series = append(series, col)
	}
	if len(series) == 0 || len(series[0]) == 0 {
		return "", fmt.Errorf("nothing to plot")
	}

	colors := []asciigraph.AnsiColor{asciigraph.Green, asciigraph.Blue, asciigraph.Red, asciigraph.Yellow, asciigraph.Cyan, asciigraph.Magenta}
	seriesColors := make([]asciigraph.AnsiColor, len(series))
	for i := range series {
		seriesColors[i] = colors[i%len(colors)]
	}
	return asciigraph.PlotMany(series,
		asciigraph.Height(plotHeight),
		asciigraph.Width(plotWidth),
		asciigraph.SeriesColors(seriesColors...),
		asciigraph.SeriesLegends(labels...),
		asciigraph.Caption(caption),
	), nil
}

// PlotHistory draws a factorization error history.
func PlotHistory(history []float64) string {
	if len(history) == 0 {
		return ""
	}
	return asciigraph.Plot(history,
		asciigraph.Height(plotHeight),
		asciigraph.Width(plotWidth),
		asciigraph.Caption("reconstruction error vs iteration"),
	)
}
