package viz

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Palette colors the live view. Control bars shade from Low through High as
// a control approaches 1 and turn Saturated outside [0, 1].
type Palette struct {
	Name      string
	Title     lipgloss.Color
	Knob      lipgloss.Color
	Muted     lipgloss.Color
	Low       lipgloss.Color
	Mid       lipgloss.Color
	High      lipgloss.Color
	Saturated lipgloss.Color
}

var Palettes = []Palette{
	{
		Name:      "effort",
		Title:     lipgloss.Color("#ff00ff"),
		Knob:      lipgloss.Color("#ffff00"),
		Muted:     lipgloss.Color("#666666"),
		Low:       lipgloss.Color("#00ff88"),
		Mid:       lipgloss.Color("#ffcc00"),
		High:      lipgloss.Color("#ff8800"),
		Saturated: lipgloss.Color("#ff4444"),
	},
	{
		Name:      "phosphor",
		Title:     lipgloss.Color("#00ff00"),
		Knob:      lipgloss.Color("#88ff88"),
		Muted:     lipgloss.Color("#005500"),
		Low:       lipgloss.Color("#006600"),
		Mid:       lipgloss.Color("#00aa00"),
		High:      lipgloss.Color("#00ff00"),
		Saturated: lipgloss.Color("#ffff00"),
	},
	{
		Name:      "mono",
		Title:     lipgloss.Color("#ffffff"),
		Knob:      lipgloss.Color("#0088ff"),
		Muted:     lipgloss.Color("#888888"),
		Low:       lipgloss.Color("#aaaaaa"),
		Mid:       lipgloss.Color("#cccccc"),
		High:      lipgloss.Color("#ffffff"),
		Saturated: lipgloss.Color("#ff0000"),
	},
}

// PaletteByName returns the named palette, or the first one.
func PaletteByName(name string) Palette {
	for _, p := range Palettes {
		if p.Name == name {
			return p
		}
	}
	return Palettes[0]
}

func PaletteNames() []string {
	names := make([]string, len(Palettes))
	for i, p := range Palettes {
		names[i] = p.Name
	}
	return names
}

// ControlBar renders a control value on a [0, 1] scale. Values outside the
// unit range fill or empty the bar and are marked with "!", since
// controllers do not clamp.
func (p Palette) ControlBar(u float64, width int) string {
	if math.IsNaN(u) {
		return lipgloss.NewStyle().Foreground(p.Muted).Render(strings.Repeat("?", width))
	}
	filled := int(math.Round(u * float64(width)))
	out := filled < 0 || filled > width
	filled = max(0, min(filled, width))

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	color := p.Low
	switch {
	case out:
		return lipgloss.NewStyle().Foreground(p.Saturated).Bold(true).Render(bar + "!")
	case u > 0.8:
		color = p.High
	case u > 0.4:
		color = p.Mid
	}
	return lipgloss.NewStyle().Foreground(color).Render(bar)
}
