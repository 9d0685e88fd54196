package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/rigidsim/internal/rollout"
)

type ProgressMsg struct {
	Done, Total int
}

type finishedMsg struct {
	err error
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// progressModel shows how many batch jobs have finished.
type progressModel struct {
	title    string
	done     int
	total    int
	frame    int
	started  time.Time
	elapsed  time.Duration
	finished bool
	err      error
	cancel   context.CancelFunc
}

func newProgressModel(title string, total int, cancel context.CancelFunc) progressModel {
	return progressModel{title: title, total: total, started: time.Now(), cancel: cancel}
}

func (m progressModel) Init() tea.Cmd { return tick() }

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.cancel != nil {
				m.cancel()
			}
		}
		return m, nil
	case ProgressMsg:
		m.done, m.total = msg.Done, msg.Total
		return m, nil
	case finishedMsg:
		m.finished = true
		m.err = msg.err
		m.elapsed = time.Since(m.started)
		return m, tea.Quit
	case tickMsg:
		if m.finished {
			return m, nil
		}
		m.frame++
		m.elapsed = time.Since(m.started)
		return m, tick()
	}
	return m, nil
}

func (m progressModel) View() string {
	pct := 0.0
	if m.total > 0 {
		pct = float64(m.done) / float64(m.total)
	}

	var b strings.Builder
	status := Spinner(m.frame)
	switch {
	case m.finished && m.err != nil:
		status = StatusFail.Render("✗")
	case m.finished:
		status = StatusOK.Render("✓")
	}
	fmt.Fprintf(&b, "%s %s\n", status, Title.Render(m.title))
	fmt.Fprintf(&b, "%s %d/%d  %s\n", ProgressBar(pct, 40), m.done, m.total, Subtle.Render(m.elapsed.Round(time.Millisecond).String()))
	if m.err != nil {
		b.WriteString(StatusFail.Render(m.err.Error()) + "\n")
	} else if !m.finished {
		b.WriteString(Subtle.Render("q to cancel") + "\n")
	}
	return b.String()
}

// RunBatch runs jobs on a batch runner while a bubbletea program shows
// progress on out. Input is not read when in is nil.
func RunBatch(ctx context.Context, title string, jobs []rollout.Job, opts []rollout.BatchOption, in io.Reader, out io.Writer) ([]*rollout.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	teaOpts := []tea.ProgramOption{tea.WithOutput(out), tea.WithContext(ctx)}
	if in == nil {
		teaOpts = append(teaOpts, tea.WithInput(nil))
	} else {
		teaOpts = append(teaOpts, tea.WithInput(in))
	}
	p := tea.NewProgram(newProgressModel(title, len(jobs), cancel), teaOpts...)

	opts = append(opts, rollout.WithProgress(func(done, total int) {
		p.Send(ProgressMsg{Done: done, Total: total})
	}))

	var results []*rollout.Result
	var runErr error
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		results, runErr = rollout.NewBatch(opts...).Run(ctx, jobs)
		p.Send(finishedMsg{err: runErr})
	}()

	_, uiErr := p.Run()
	cancel()
	<-finished
	if runErr != nil {
		return results, runErr
	}
	if uiErr != nil && ctx.Err() == nil {
		return results, fmt.Errorf("progress display: %w", uiErr)
	}
	return results, nil
}
