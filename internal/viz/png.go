package viz

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"gonum.org/v1/plot/vg/vgsvg"

	"github.com/san-kum/actuate/internal/table"
)

const pngDPI = 150

func limitedTicker(maxLabels int, labelFmt string) plot.Ticker {
	if maxLabels < 2 {
		maxLabels = 2
	}
	return plot.TickerFunc(func(min, max float64) []plot.Tick {
		if math.IsNaN(min) || math.IsNaN(max) || math.IsInf(min, 0) || math.IsInf(max, 0) {
			return nil
		}
		if min == max {
			return []plot.Tick{{Value: min, Label: fmt.Sprintf(labelFmt, min)}}
		}
		step := (max - min) / float64(maxLabels-1)
		ticks := make([]plot.Tick, 0, maxLabels)
		for i := 0; i < maxLabels; i++ {
			v := min + float64(i)*step
			ticks = append(ticks, plot.Tick{Value: v, Label: fmt.Sprintf(labelFmt, v)})
		}
		return ticks
	})
}

func newPlot(title, xlabel, ylabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel

	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.Title.Padding = vg.Points(8)
	p.X.Label.TextStyle.Font.Size = vg.Points(12)
	p.Y.Label.TextStyle.Font.Size = vg.Points(12)
	p.X.Tick.Label.Font.Size = vg.Points(10)
	p.Y.Tick.Label.Font.Size = vg.Points(10)
	p.Y.Tick.Marker = limitedTicker(8, "%.2f")
	p.Legend.Top = true
	return p
}

// savePlotPNG writes p as PNG, or as SVG when filename ends in .svg.
func savePlotPNG(p *plot.Plot, widthIn, heightIn float64, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("cannot create directory: %w", err)
	}
	w := vg.Length(widthIn) * vg.Inch
	h := vg.Length(heightIn) * vg.Inch

	var out io.WriterTo
	if strings.EqualFold(filepath.Ext(filename), ".svg") {
		c := vgsvg.New(w, h)
		p.Draw(draw.New(c))
		out = c
	} else {
		c := vgimg.NewWith(
			vgimg.UseWH(w, h),
			vgimg.UseDPI(pngDPI),
		)
		p.Draw(draw.New(c))
		out = vgimg.PngCanvas{Canvas: c}
	}

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("cannot create figure: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if _, err := out.WriteTo(bw); err != nil {
		return fmt.Errorf("cannot write figure: %w", err)
	}
	return bw.Flush()
}

// SaveTablePNG plots every column of tbl against time.
func SaveTablePNG(tbl *table.Table, title, ylabel, filename string) error {
	if tbl.NumRows() == 0 || tbl.NumColumns() == 0 {
		return fmt.Errorf("plot data invalid")
	}
	p := newPlot(title, "time (s)", ylabel)

	lines := make([]interface{}, 0, 2*tbl.NumColumns())
	for j, label := range tbl.Labels {
		pts := make(plotter.XYs, tbl.NumRows())
		for i, t := range tbl.Times {
			pts[i].X = t
			pts[i].Y = tbl.Columns[j][i]
		}
		lines = append(lines, label, pts)
	}
	if err := plotutil.AddLines(p, lines...); err != nil {
		return err
	}
	return savePlotPNG(p, 8.0, 5.0, filename)
}

// SaveHistoryPNG plots a factorization error history.
func SaveHistoryPNG(history []float64, filename string) error {
	if len(history) == 0 {
		return fmt.Errorf("plot data invalid")
	}
	p := newPlot("Factorization convergence", "iteration", "||V - WH||")

	pts := make(plotter.XYs, len(history))
	for i, e := range history {
		pts[i].X = float64(i)
		pts[i].Y = e
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.LineStyle.Width = vg.Points(2)
	p.Add(line)
	return savePlotPNG(p, 8.0, 5.0, filename)
}

// SaveSynergiesPNG draws the weights of each synergy vector as a group of
// bars over the actuators.
func SaveSynergiesPNG(actuators []string, vectors [][]float64, filename string) error {
	if len(actuators) == 0 || len(vectors) == 0 {
		return fmt.Errorf("plot data invalid")
	}
	p := newPlot("Synergy vectors", "actuator", "weight")

	barWidth := vg.Points(60 / float64(len(vectors)))
	for k, v := range vectors {
		if len(v) != len(actuators) {
			return fmt.Errorf("synergy %d has %d weights for %d actuators", k, len(v), len(actuators))
		}
		bars, err := plotter.NewBarChart(plotter.Values(v), barWidth)
		if err != nil {
			return err
		}
		bars.LineStyle.Width = vg.Length(0)
		bars.Color = plotutil.Color(k)
		bars.Offset = barWidth * vg.Length(float64(k)-float64(len(vectors)-1)/2)
		p.Add(bars)
		p.Legend.Add(fmt.Sprintf("synergy %d", k), bars)
	}
	p.NominalX(actuators...)
	return savePlotPNG(p, 8.0, 5.0, filename)
}
