package tui

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/rigidsim/internal/generalized"
	"github.com/san-kum/rigidsim/internal/pipeline"
	"github.com/san-kum/rigidsim/internal/rollout"
	"github.com/san-kum/rigidsim/internal/system"
)

func TestFrameDrawsPendulum(t *testing.T) {
	sys, err := system.Fixture("pendulum")
	if err != nil {
		t.Fatal(err)
	}
	st, err := pipeline.NewState(sys, []float64{math.Pi / 2}, []float64{0})
	if err != nil {
		t.Fatal(err)
	}

	r := NewLiveRenderer("pendulum", sys, &bytes.Buffer{}, 0)
	frame := r.Frame(st, 0.5)
	lines := strings.Split(frame, "\n")
	if !strings.Contains(lines[0], "t=0.500s") {
		t.Errorf("missing time in header %q", lines[0])
	}
	// canvas rows start after the header and the rule; the pivot sits at
	// row height/3 and the bob 0.5 m below it
	pivot := lines[2+height/3]
	bob := lines[2+height/3+3]
	if pivot[2+width/2] != '+' {
		t.Errorf("expected pivot marker, got row %q", pivot)
	}
	if bob[2+width/2] != 'O' {
		t.Errorf("expected bob marker, got row %q", bob)
	}
}

func TestFrameDrawsFloor(t *testing.T) {
	sys, err := system.Fixture("box")
	if err != nil {
		t.Fatal(err)
	}
	st, err := pipeline.NewState(sys, sys.InitQ(), make([]float64, 6))
	if err != nil {
		t.Fatal(err)
	}
	frame := NewLiveRenderer("box", sys, &bytes.Buffer{}, 0).Frame(st, 0)
	if !strings.Contains(frame, strings.Repeat("=", 10)) {
		t.Error("expected a floor line")
	}
}

func TestObserverWritesFrames(t *testing.T) {
	sys, err := system.Fixture("double_pendulum")
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	r := NewLiveRenderer("double_pendulum", sys, &out, 0)
	_, err = rollout.New(generalized.New(), sys, nil, rollout.WithObserver(r)).
		Run(context.Background(), []float64{0.5, 0}, []float64{0, 0}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(out.String(), clearScreen); got != 3 {
		t.Errorf("expected 3 frames, got %d", got)
	}
}

func TestProgressModel(t *testing.T) {
	canceled := false
	m := newProgressModel("batch", 4, func() { canceled = true })

	next, _ := m.Update(ProgressMsg{Done: 2, Total: 4})
	m = next.(progressModel)
	if !strings.Contains(m.View(), "2/4") {
		t.Errorf("view should show progress, got %q", m.View())
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	m = next.(progressModel)
	if !canceled {
		t.Error("q should cancel the batch")
	}

	next, cmd := m.Update(finishedMsg{})
	m = next.(progressModel)
	if !m.finished || cmd == nil {
		t.Error("finishing should quit the program")
	}
	if !strings.Contains(m.View(), "✓") {
		t.Errorf("finished view should show success, got %q", m.View())
	}
}

func TestSummary(t *testing.T) {
	out := Summary("run", map[string]float64{"energy": 1.5, "stability": 1})
	if !strings.Contains(out, "energy") || !strings.Contains(out, "1.5") {
		t.Errorf("summary missing rows: %q", out)
	}
	if strings.Index(out, "energy") > strings.Index(out, "stability") {
		t.Error("rows should be sorted by name")
	}
}

func TestProgressBarBounds(t *testing.T) {
	for _, pct := range []float64{-1, 0, 0.5, 2} {
		bar := ProgressBar(pct, 10)
		if n := strings.Count(bar, "█") + strings.Count(bar, "░"); n != 10 {
			t.Errorf("ProgressBar(%v) has %d cells", pct, n)
		}
	}
}
