package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gonum.org/v1/gonum/floats"
)

func fg(hex string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(hex))
}

var (
	Subtle        = fg("#6b6f80")
	StatusRunning = fg("#3ddc84").Bold(true)
	StatusPaused  = fg("#f2b134").Bold(true)
	MetricValue   = fg("#4fc3f7").Bold(true)
	MetricLabel   = fg("#9a9cab").Width(18)
	KeyHint       = fg("#6b6f80").Italic(true)
	WarningStyle  = fg("#ef5350")
)

// HeaderStyle underlines report titles.
var HeaderStyle = fg("#f5f5f5").Bold(true).BorderStyle(lipgloss.NormalBorder()).
	BorderBottom(true).BorderForeground(lipgloss.Color("#3c3f52"))

var sparkLevels = []rune("▁▂▃▄▅▆▇█")

// ControlBar renders u with the default palette.
func ControlBar(u float64, width int) string {
	return Palettes[0].ControlBar(u, width)
}

// SparklineChart draws the last width values. The scale always covers
// [0, 1] so traces of different actuators line up; values outside it
// stretch the scale.
func SparklineChart(values []float64, width int) string {
	if len(values) == 0 {
		return strings.Repeat("─", width)
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}
	lo := min(0, floats.Min(values))
	hi := max(1, floats.Max(values))

	top := len(sparkLevels) - 1
	var b strings.Builder
	for _, v := range values {
		i := int((v - lo) / (hi - lo) * float64(top))
		b.WriteRune(sparkLevels[max(0, min(i, top))])
	}
	return b.String()
}

// Separator is a horizontal rule of the given width.
func Separator(width int) string {
	half := max(width-3, 0) / 2
	return Subtle.Render(strings.Repeat("─", half) + " · " + strings.Repeat("─", max(width-3, 0)-half))
}
