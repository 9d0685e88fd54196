package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/rigidsim/internal/control"
	"github.com/san-kum/rigidsim/internal/pipeline"
	"github.com/san-kum/rigidsim/internal/positional"
	"github.com/san-kum/rigidsim/internal/system"
)

func key(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newPendulumViewer(t *testing.T) (*Viewer, *system.System) {
	t.Helper()
	sys, err := system.Fixture("pendulum")
	if err != nil {
		t.Fatal(err)
	}
	pid, err := control.NewPID(sys, 10, 0, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	v, err := NewViewer("pendulum", positional.New(), sys, pid, []float64{0.5}, []float64{0})
	if err != nil {
		t.Fatal(err)
	}
	return v, sys
}

func TestViewerSteps(t *testing.T) {
	v, sys := newPendulumViewer(t)
	if v.Init() == nil {
		t.Fatal("init should schedule the first frame")
	}

	_, cmd := v.Update(frameMsg(time.Now()))
	if cmd == nil {
		t.Error("frames should keep ticking")
	}
	if v.Time() != sys.Dt() {
		t.Errorf("expected one step, time %f", v.Time())
	}

	v.Update(key("+"))
	v.Update(frameMsg(time.Now()))
	if got, want := v.Time(), 3*sys.Dt(); got < want-1e-12 || got > want+1e-12 {
		t.Errorf("double speed should take two steps, time %f", got)
	}

	view := v.View()
	for _, want := range []string{"PENDULUM", "RUNNING", "positional", "2x", "Kp"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestViewerPauseAndStep(t *testing.T) {
	v, sys := newPendulumViewer(t)

	v.Update(key(" "))
	v.Update(frameMsg(time.Now()))
	if v.Time() != 0 {
		t.Errorf("paused viewer should not step, time %f", v.Time())
	}
	if !strings.Contains(v.View(), "PAUSED") {
		t.Error("view should show paused status")
	}

	v.Update(key("n"))
	if v.Time() != sys.Dt() {
		t.Errorf("n should take one step, time %f", v.Time())
	}
}

func TestViewerReplayAndReset(t *testing.T) {
	v, _ := newPendulumViewer(t)
	for i := 0; i < 5; i++ {
		v.Update(frameMsg(time.Now()))
	}
	live := v.State()

	v.Update(key("["))
	if !strings.Contains(v.View(), "REPLAY") {
		t.Error("scrubbing back should enter replay")
	}
	if v.State() != live {
		t.Error("replay must not change the live state")
	}

	v.Update(key("r"))
	if v.Time() != 0 || v.State().Q[0] != 0.5 {
		t.Errorf("reset should restore the initial state, got t=%f q=%v", v.Time(), v.State().Q)
	}
}

func TestViewerAdjustsParams(t *testing.T) {
	v, _ := newPendulumViewer(t)
	pid := v.ctrl.(*control.PID)

	v.Update(key("k"))
	if pid.Kd == 1 && pid.Kp == 10 {
		t.Error("up should scale the selected parameter")
	}
	v.Update(key("r"))
	if pid.Kp != 10 || pid.Kd != 1 {
		t.Errorf("reset should restore parameters, got kp=%f kd=%f", pid.Kp, pid.Kd)
	}
}

// cappedGain accepts gains up to 1.
type cappedGain struct{ k float64 }

var errTooHigh = errors.New("gain above 1")

func (c *cappedGain) Name() string { return "capped" }
func (c *cappedGain) Compute(st *pipeline.State, t float64) []float64 { return []float64{-c.k * st.Q[0]} }
func (c *cappedGain) GetParams() map[string]float64 { return map[string]float64{"K": c.k} }

func (c *cappedGain) SetParam(name string, value float64) error {
	if value > 1 {
		return errTooHigh
	}
	c.k = value
	return nil
}

func TestViewerReportsRejectedParams(t *testing.T) {
	sys, err := system.Fixture("pendulum")
	if err != nil {
		t.Fatal(err)
	}
	ctrl := &cappedGain{k: 0.99}
	v, err := NewViewer("pendulum", positional.New(), sys, ctrl, []float64{0.5}, []float64{0})
	if err != nil {
		t.Fatal(err)
	}

	v.Update(key("k"))
	if !errors.Is(v.Err(), errTooHigh) {
		t.Fatalf("expected the rejection to surface, got %v", v.Err())
	}
	if ctrl.k != 0.99 {
		t.Errorf("rejected value should not apply, got %f", ctrl.k)
	}
	v.Update(frameMsg(time.Now()))
	if v.Time() != 0 {
		t.Errorf("viewer should pause after a rejected parameter, time %f", v.Time())
	}
	if !strings.Contains(v.View(), "FAILED") {
		t.Error("view should show the failure")
	}

	v.Update(key("r"))
	if v.Err() != nil {
		t.Errorf("reset should clear the error, got %v", v.Err())
	}
}

func TestViewerQuits(t *testing.T) {
	v, _ := newPendulumViewer(t)
	_, cmd := v.Update(key("q"))
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}
