package tui

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/rigidsim/internal/control"
	"github.com/san-kum/rigidsim/internal/metrics"
	"github.com/san-kum/rigidsim/internal/pipeline"
	"github.com/san-kum/rigidsim/internal/system"
)

const historyCapacity = 600

var (
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(0, 2).Width(40)
	activeParam = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
)

type frameMsg time.Time

func frame() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return frameMsg(t) })
}

type snapshot struct {
	state  *pipeline.State
	t      float64
	energy float64
}

// Viewer is an interactive bubbletea model that steps a pipeline in real
// time. It can pause, single-step, replay recent history and adjust the
// controller's parameters while running.
type Viewer struct {
	name     string
	pipeline pipeline.Pipeline
	sys      *system.System
	ctrl     control.Controller
	renderer *LiveRenderer

	q0, qd0 []float64
	state   *pipeline.State
	t       float64
	err     error

	running      bool
	stepsPerTick int
	history      []snapshot
	playHead     int

	paramKeys     []string
	selected      int
	initialParams map[string]float64
	showHelp      bool
}

func NewViewer(name string, p pipeline.Pipeline, sys *system.System, ctrl control.Controller, q, qd []float64) (*Viewer, error) {
	if ctrl == nil {
		ctrl = control.NewNone(sys)
	}
	st, err := p.Init(sys, q, qd)
	if err != nil {
		return nil, err
	}
	v := &Viewer{
		name:          name,
		pipeline:      p,
		sys:           sys,
		ctrl:          ctrl,
		renderer:      NewLiveRenderer(name, sys, io.Discard, 0),
		q0:            append([]float64(nil), q...),
		qd0:           append([]float64(nil), qd...),
		state:         st,
		running:       true,
		stepsPerTick:  1,
		history:       make([]snapshot, 0, historyCapacity),
		playHead:      -1,
		initialParams: map[string]float64{},
	}
	if c, ok := ctrl.(control.Configurable); ok {
		for k, val := range c.GetParams() {
			v.paramKeys = append(v.paramKeys, k)
			v.initialParams[k] = val
		}
		sort.Strings(v.paramKeys)
	}
	v.record()
	return v, nil
}

func (v *Viewer) Init() tea.Cmd { return frame() }

func (v *Viewer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return v, tea.Quit
		case " ":
			v.running = !v.running
		case "n":
			if !v.running {
				v.playHead = -1
				v.step()
			}
		case "r":
			v.reset()
		case "[":
			v.scrub(-1)
		case "]":
			v.scrub(1)
		case "+", "=":
			v.stepsPerTick = min(v.stepsPerTick*2, 64)
		case "-", "_":
			v.stepsPerTick = max(v.stepsPerTick/2, 1)
		case "tab":
			if len(v.paramKeys) > 0 {
				v.selected = (v.selected + 1) % len(v.paramKeys)
			}
		case "up", "k":
			v.adjustParam(1.05)
		case "down", "j":
			v.adjustParam(0.95)
		case "?":
			v.showHelp = !v.showHelp
		}
	case frameMsg:
		if v.running {
			if v.playHead == -1 {
				for i := 0; i < v.stepsPerTick && v.err == nil; i++ {
					v.step()
				}
			} else {
				v.playHead++
				if v.playHead >= len(v.history) {
					v.playHead = -1
				}
			}
		}
		return v, frame()
	}
	return v, nil
}

// step advances the live state by one timestep. A failed step pauses the
// viewer and keeps the last good state.
func (v *Viewer) step() {
	if v.err != nil {
		return
	}
	u := v.ctrl.Compute(v.state, v.t)
	next, err := v.pipeline.Step(v.sys, v.state, u)
	if err == nil && !next.IsFinite() {
		err = &system.NumericalError{Stage: "state", Reason: "non-finite value after step"}
	}
	if err != nil {
		v.err = err
		v.running = false
		return
	}
	v.state = next
	v.t += v.sys.Dt()
	v.record()
}

func (v *Viewer) record() {
	v.history = append(v.history, snapshot{state: v.state, t: v.t, energy: metrics.Mechanical(v.sys, v.state)})
	if len(v.history) > historyCapacity {
		v.history = v.history[1:]
	}
}

func (v *Viewer) scrub(dir int) {
	if v.playHead == -1 {
		if len(v.history) == 0 {
			return
		}
		v.playHead = len(v.history) - 1
		v.running = false
	}
	v.playHead += dir
	if v.playHead < 0 {
		v.playHead = 0
	}
	if v.playHead >= len(v.history) {
		v.playHead = -1
	}
}

func (v *Viewer) adjustParam(factor float64) {
	c, ok := v.ctrl.(control.Configurable)
	if !ok || len(v.paramKeys) == 0 {
		return
	}
	key := v.paramKeys[v.selected]
	val := c.GetParams()[key]
	if val == 0 {
		val = 1e-3
	}
	if err := c.SetParam(key, val*factor); err != nil {
		v.err = fmt.Errorf("set %s: %w", key, err)
		v.running = false
	}
}

func (v *Viewer) reset() {
	st, err := v.pipeline.Init(v.sys, v.q0, v.qd0)
	if err != nil {
		v.err = err
		return
	}
	v.state, v.t, v.err = st, 0, nil
	v.history = v.history[:0]
	v.playHead = -1
	if r, ok := v.ctrl.(control.Resetter); ok {
		r.Reset()
	}
	if c, ok := v.ctrl.(control.Configurable); ok {
		for k, val := range v.initialParams {
			if err := c.SetParam(k, val); err != nil {
				v.err = fmt.Errorf("restore %s: %w", k, err)
				v.running = false
			}
		}
	}
	v.renderer = NewLiveRenderer(v.name, v.sys, io.Discard, 0)
	v.record()
}

// Time returns the simulated time of the live state.
func (v *Viewer) Time() float64 { return v.t }

// State returns the live state, ignoring any replay position.
func (v *Viewer) State() *pipeline.State { return v.state }

func (v *Viewer) Err() error { return v.err }

func (v *Viewer) View() string {
	shown := snapshot{state: v.state, t: v.t}
	status := StatusOK.Render("RUNNING")
	switch {
	case v.err != nil:
		status = StatusFail.Render("FAILED")
	case v.playHead >= 0 && v.playHead < len(v.history):
		shown = v.history[v.playHead]
		status = Subtle.Render(fmt.Sprintf("REPLAY (%.2fs)", shown.t-v.t))
	case !v.running:
		status = Subtle.Render("PAUSED")
	}

	var stats strings.Builder
	stats.WriteString(Title.Render(strings.ToUpper(v.name)) + "\n\n")
	fmt.Fprintf(&stats, "%s %s\n", MetricLabel.Render("status  "), status)
	fmt.Fprintf(&stats, "%s %s\n", MetricLabel.Render("pipeline"), MetricValue.Render(v.pipeline.Name()))
	fmt.Fprintf(&stats, "%s %s\n", MetricLabel.Render("speed   "), MetricValue.Render(fmt.Sprintf("%dx", v.stepsPerTick)))
	fmt.Fprintf(&stats, "%s %s\n", MetricLabel.Render("energy  "), MetricValue.Render(fmt.Sprintf("%.4f", metrics.Mechanical(v.sys, shown.state))))

	if c, ok := v.ctrl.(control.Configurable); ok && len(v.paramKeys) > 0 {
		stats.WriteString("\n" + Title.Render(v.ctrl.Name()) + "\n")
		params := c.GetParams()
		for i, k := range v.paramKeys {
			line := fmt.Sprintf("%-8s %.4g", k, params[k])
			if i == v.selected {
				line = activeParam.Render("> " + line)
			} else {
				line = "  " + line
			}
			stats.WriteString(line + "\n")
		}
	}

	if len(v.history) > 1 {
		energy := make([]float64, len(v.history))
		for i, s := range v.history {
			energy[i] = s.energy
		}
		stats.WriteString("\n" + asciigraph.Plot(energy, asciigraph.Height(6), asciigraph.Width(30), asciigraph.Caption("energy")) + "\n")
	}
	if v.err != nil {
		stats.WriteString("\n" + StatusFail.Render(v.err.Error()) + "\n")
	}

	help := "space pause · n step · [ ] replay · +/- speed · r reset · ? help · q quit"
	if v.showHelp {
		help = "space  pause or resume\nn      single step while paused\n[ ]    move through recent history\n+ -    steps per frame\ntab    select controller parameter\nup/dn  scale selected parameter\nr      reset\nq      quit"
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, v.renderer.Frame(shown.state, shown.t), statsStyle.Render(stats.String()))
	return body + "\n" + Subtle.Render(help) + "\n"
}
