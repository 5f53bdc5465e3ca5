// Package tui is the interactive front end: a live dashboard while the run
// is going, the result once it ends, and the run history.
package tui

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"clickload/internal/report"
	"clickload/internal/runner"
	"clickload/internal/storage"
	"clickload/internal/tui/history"
	"clickload/internal/tui/live"
	"clickload/internal/tui/result"
	"clickload/internal/tui/styles"
)

type view int

const (
	viewRun view = iota
	viewHistory
)

type runDoneMsg struct{ err error }

type Options struct {
	Store *storage.Store
	Log   *zap.Logger
}

type Model struct {
	Runner *runner.Runner
	opts   Options

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	started  time.Time
	running  bool
	quitting bool
	err      error
	summary  *report.Summary
	status   string

	current view
	Live    live.Model
	Result  result.Model
	History history.Model

	Width  int
	Height int
}

func NewModel(ctx context.Context, r *runner.Runner, opts Options) Model {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(ctx)
	return Model{
		Runner:  r,
		opts:    opts,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		Live:    live.NewModel(r.Cfg),
		History: history.NewModel(opts.Store),
	}
}

func (m *Model) Init() tea.Cmd {
	m.started = time.Now()
	m.running = true
	return tea.Batch(m.run(), waitForUpdate(m.Runner.Updates, m.done))
}

func (m *Model) run() tea.Cmd {
	r, ctx, done := m.Runner, m.ctx, m.done
	return func() tea.Msg {
		err := r.Run(ctx)
		close(done)
		return runDoneMsg{err: err}
	}
}

func waitForUpdate(updates runner.StatsUpdateChan, done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		select {
		case s := <-updates:
			return s
		case <-done:
			return nil
		}
	}
}

// Summary is the finished run, nil until it ends.
func (m *Model) Summary() *report.Summary {
	return m.summary
}

// Err is the error the run ended with, if any.
func (m *Model) Err() error {
	return m.err
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if !m.running {
				return m, tea.Quit
			}
			m.quitting = true
			m.cancel()
			return m, nil
		case "s":
			if m.running {
				m.status = "Stopping users..."
				m.cancel()
			}
			return m, nil
		case "tab":
			if m.current == viewRun {
				m.showHistory()
			} else {
				m.current = viewRun
			}
			return m, nil
		case "1":
			m.current = viewRun
			return m, nil
		case "2":
			m.showHistory()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		inner := tea.WindowSizeMsg{Width: msg.Width, Height: msg.Height - 4}
		m.Live, _ = m.Live.Update(inner)
		m.Result, _ = m.Result.Update(inner)
		m.History, _ = m.History.Update(inner)
		return m, nil

	case runner.StatsSnapshot:
		var cmd tea.Cmd
		m.Live, cmd = m.Live.Update(live.Update{Snapshot: msg, Entries: m.Runner.Stats.Entries()})
		return m, tea.Batch(cmd, waitForUpdate(m.Runner.Updates, m.done))

	case runDoneMsg:
		m.running = false
		m.err = msg.err
		if msg.err == nil {
			m.finish()
		}
		if m.quitting || msg.err != nil {
			return m, tea.Quit
		}
		return m, nil
	}

	var cmd tea.Cmd
	switch m.current {
	case viewRun:
		if m.running {
			m.Live, cmd = m.Live.Update(msg)
		}
	case viewHistory:
		m.History, cmd = m.History.Update(msg)
	}
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *Model) showHistory() {
	m.History.Refresh()
	m.current = viewHistory
}

// finish builds the summary, writes reports and records the run.
func (m *Model) finish() {
	log := m.opts.Log
	sum := report.NewSummary(uuid.NewString(), m.Runner.Cfg, m.started, m.Runner.Stats)
	m.summary = &sum
	m.Result = result.NewModel(sum)
	m.Result, _ = m.Result.Update(tea.WindowSizeMsg{Width: m.Width, Height: m.Height - 4})

	if prefix := sum.Config.OutPrefix; prefix != "" {
		paths, err := report.WriteAll(prefix, m.Runner.ResultsCopy(), sum)
		if err != nil {
			log.Error("report export failed", zap.Error(err))
			m.Result.Notes = append(m.Result.Notes, "Export failed: "+err.Error())
		} else {
			m.Result.Notes = append(m.Result.Notes, "Reports: "+strings.Join(paths, ", "))
		}
	}

	if m.opts.Store != nil {
		item, err := storage.NewHistoryItem(sum)
		if err == nil {
			err = m.opts.Store.Save(item)
		}
		if err != nil {
			log.Warn("history not saved", zap.Error(err))
		} else {
			m.Result.Notes = append(m.Result.Notes, "Saved to history as "+item.ID)
			m.History.Refresh()
		}
	}
	m.status = ""
}

func (m *Model) View() string {
	if m.quitting && !m.running {
		return ""
	}

	tabs := []string{"[1] Run", "[2] History"}
	var nav strings.Builder
	for i, t := range tabs {
		if view(i) == m.current {
			nav.WriteString(styles.TabActive.Render(t))
		} else {
			nav.WriteString(styles.TabBase.Render(t))
		}
	}

	var content string
	switch {
	case m.current == viewHistory:
		content = m.History.View()
	case m.running:
		content = m.Live.View()
	case m.summary != nil:
		content = m.Result.View()
	case m.err != nil:
		content = styles.Error.Render("Run failed: " + m.err.Error())
	}

	keys := []string{styles.RenderKey("tab", "switch view")}
	if m.running {
		keys = append(keys, styles.RenderKey("s", "stop"))
	}
	keys = append(keys, styles.RenderKey("q", "quit"))
	footer := strings.Join(keys, "   ")
	if m.status != "" {
		footer = styles.Warn.Render(m.status) + "   " + footer
	}

	return lipgloss.JoinVertical(lipgloss.Left, nav.String(), content, footer)
}
