package viz

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/actuate/internal/dynamo"
	"github.com/san-kum/actuate/internal/sim"
)

const (
	historyCapacity = 200
	knobStep        = 0.05
	frameRate       = 30
)

// Evaluator realizes the model at a single time.
type Evaluator interface {
	Evaluate(t float64) (*dynamo.State, error)
}

type TickMsg time.Time

// LiveModel steps a model on a wall-clock tick and shows the controls of
// every actuator. Knobs are input values shared with the evaluator, so
// editing one changes the next evaluation.
type LiveModel struct {
	eval      Evaluator
	actuators []string
	knobs     sim.ConstantInputs
	knobNames []string
	selected  int

	t, dt, duration float64
	running         bool
	controls        dynamo.Control
	history         [][]float64
	err             error
	palette         int
}

// NewLiveModel builds the view. knobs must be the same map the evaluator
// reads its inputs from; it may be nil.
func NewLiveModel(eval Evaluator, actuators []string, knobs sim.ConstantInputs, dt, duration float64) LiveModel {
	names := make([]string, 0, len(knobs))
	for k := range knobs {
		names = append(names, k)
	}
	sort.Strings(names)

	return LiveModel{
		eval:      eval,
		actuators: actuators,
		knobs:     knobs,
		knobNames: names,
		dt:        dt,
		duration:  duration,
		running:   true,
		history:   make([][]float64, len(actuators)),
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m LiveModel) Init() tea.Cmd {
	return tick()
}

func (m LiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		case "t":
			m.palette = (m.palette + 1) % len(Palettes)
		case "tab":
			if len(m.knobNames) > 0 {
				m.selected = (m.selected + 1) % len(m.knobNames)
			}
		case "+", "=":
			m.adjust(knobStep)
		case "-", "_":
			m.adjust(-knobStep)
		}
	case TickMsg:
		if m.running {
			m.step()
		}
		return m, tick()
	}
	return m, nil
}

func (m *LiveModel) adjust(delta float64) {
	if len(m.knobNames) == 0 {
		return
	}
	name := m.knobNames[m.selected]
	m.knobs[name] = math.Round((m.knobs[name]+delta)*100) / 100
}

func (m *LiveModel) reset() {
	m.t = 0
	m.err = nil
	for i := range m.history {
		m.history[i] = m.history[i][:0]
	}
}

func (m *LiveModel) step() {
	st, err := m.eval.Evaluate(m.t)
	if err != nil {
		m.err = err
		m.running = false
		return
	}
	m.controls = st.Controls.Clone()
	for i := range m.history {
		v := 0.0
		if i < len(m.controls) {
			v = m.controls[i]
		}
		m.history[i] = append(m.history[i], v)
		if len(m.history[i]) > historyCapacity {
			m.history[i] = m.history[i][1:]
		}
	}

	m.t += m.dt
	if m.t > m.duration+m.dt/2 {
		m.t = 0
	}
}

func (m LiveModel) View() string {
	palette := Palettes[m.palette]
	title := lipgloss.NewStyle().Bold(true).Foreground(palette.Title)
	accent := lipgloss.NewStyle().Foreground(palette.Knob)
	muted := lipgloss.NewStyle().Foreground(palette.Muted)

	var s strings.Builder
	status := StatusRunning.Render("RUNNING")
	if !m.running {
		status = StatusPaused.Render("PAUSED")
	}
	s.WriteString(title.Render("actuate live") + "  " + status + "\n")
	s.WriteString(MetricLabel.Render("time") + MetricValue.Render(fmt.Sprintf("%.3fs", m.t)) + "\n\n")

	for i, name := range m.actuators {
		u := 0.0
		if i < len(m.controls) {
			u = m.controls[i]
		}
		s.WriteString(MetricLabel.Render(name) + palette.ControlBar(u, 24) + " " +
			MetricValue.Render(fmt.Sprintf("%6.3f", u)) + "  " +
			muted.Render(SparklineChart(m.history[i], 30)) + "\n")
	}

	if len(m.history) > 0 && len(m.history[0]) > 1 {
		s.WriteString("\n" + asciigraph.PlotMany(m.history,
			asciigraph.Height(6),
			asciigraph.Width(60),
			asciigraph.Caption("controls"),
		) + "\n")
	}

	if len(m.knobNames) > 0 {
		s.WriteString("\n" + Separator(60) + "\n")
		for i, name := range m.knobNames {
			label := name
			if i == m.selected {
				label = accent.Render("> " + name)
			} else {
				label = "  " + label
			}
			s.WriteString(fmt.Sprintf("%s  %.2f\n", label, m.knobs[name]))
		}
	}

	if m.err != nil {
		s.WriteString("\n" + WarningStyle.Render(m.err.Error()) + "\n")
	}
	s.WriteString("\n" + KeyHint.Render("space pause  r restart  tab select  +/- adjust  t palette  q quit"))
	return s.String()
}

// Time returns the next evaluation time.
func (m LiveModel) Time() float64 { return m.t }

func (m LiveModel) Controls() dynamo.Control { return m.controls }
