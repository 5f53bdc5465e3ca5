package live

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"clickload/internal/runner"
	"clickload/internal/stats"
	"clickload/internal/tui/components"
	"clickload/internal/tui/styles"
)

// Update is one refresh of the dashboard.
type Update struct {
	Snapshot runner.StatsSnapshot
	Entries  []stats.Snapshot
}

type Model struct {
	Cfg      runner.Config
	Stats    runner.StatsSnapshot
	Progress progress.Model
	Table    table.Model

	RpsLine     components.Sparkline
	LatencyLine components.Sparkline

	lastElapsed time.Duration
	lastReqs    uint64

	Width  int
	Height int
}

func NewModel(cfg runner.Config) Model {
	t := table.New(
		table.WithColumns(columns(80)),
		table.WithHeight(8),
	)
	styles.Table(&t)

	return Model{
		Cfg:         cfg,
		Progress:    progress.New(progress.WithDefaultGradient()),
		Table:       t,
		RpsLine:     components.NewSparkline(40, "RPS", "req/s", styles.Active),
		LatencyLine: components.NewSparkline(40, "P90", "ms", styles.Warn),
	}
}

func columns(width int) []table.Column {
	name := max(width-62, 20)
	return []table.Column{
		{Title: "Type", Width: 6},
		{Title: "Name", Width: name},
		{Title: "# reqs", Width: 8},
		{Title: "# fails", Width: 8},
		{Title: "Avg", Width: 7},
		{Title: "Med", Width: 7},
		{Title: "P90", Width: 7},
		{Title: "Max", Width: 7},
		{Title: "req/s", Width: 8},
	}
}

func msText(d time.Duration) string {
	return strconv.FormatInt(d.Milliseconds(), 10)
}

func rows(entries []stats.Snapshot) []table.Row {
	out := make([]table.Row, 0, len(entries))
	for _, e := range entries {
		out = append(out, table.Row{
			e.Method,
			e.Name,
			strconv.FormatUint(e.Requests, 10),
			strconv.FormatUint(e.Failures, 10),
			msText(e.Mean),
			msText(e.P50),
			msText(e.P90),
			msText(e.Max),
			strconv.FormatFloat(e.RPS, 'f', 1, 64),
		})
	}
	return out
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case Update:
		s := msg.Snapshot

		// rate over the interval since the previous update
		dt := (s.Elapsed - m.lastElapsed).Seconds()
		if dt > 0 && s.Requests >= m.lastReqs {
			m.RpsLine.Add(float64(s.Requests-m.lastReqs) / dt)
		}
		m.LatencyLine.Add(s.P90Ms)

		m.Stats = s
		m.lastElapsed = s.Elapsed
		m.lastReqs = s.Requests
		m.Table.SetRows(rows(msg.Entries))

		if total := m.Cfg.TotalDuration(); total > 0 {
			return m, m.Progress.SetPercent(min(s.Elapsed.Seconds()/total.Seconds(), 1))
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Progress.Width = msg.Width - 4

		half := max(msg.Width/2-6, 10)
		m.RpsLine.Width = half
		m.LatencyLine.Width = half

		m.Table.SetColumns(columns(msg.Width - 4))
		m.Table.SetHeight(max(msg.Height-20, 4))
		return m, nil

	case progress.FrameMsg:
		prog, cmd := m.Progress.Update(msg)
		m.Progress = prog.(progress.Model)
		return m, cmd
	}

	var cmd tea.Cmd
	m.Table, cmd = m.Table.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	s := strings.Builder{}

	errRate := 0.0
	if m.Stats.Requests > 0 {
		errRate = float64(m.Stats.Fail) / float64(m.Stats.Requests) * 100
	}

	col1 := fmt.Sprintf("USERS: %d/%d\nINF:   %d", m.Stats.Users, m.Cfg.Users, m.Stats.Inflight)
	col2 := fmt.Sprintf("REQ:  %d\nFAIL: %d", m.Stats.Requests, m.Stats.Fail)
	col3 := styles.ErrorRate(errRate).Render(fmt.Sprintf("ERR: %.2f%%", errRate)) +
		fmt.Sprintf("\nKB:  %d", m.Stats.Bytes/1024)
	col4 := fmt.Sprintf("P50: %.0f ms\nP99: %.0f ms", m.Stats.P50Ms, m.Stats.P99Ms)

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		styles.Box.Render(col1),
		styles.Box.Render(col2),
		styles.Box.Render(col3),
		styles.Box.Render(col4),
	))
	s.WriteString("\n")

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		styles.Box.Render(m.RpsLine.View()),
		styles.Box.Render(m.LatencyLine.View()),
	))
	s.WriteString("\n")

	s.WriteString(styles.Box.Render(m.Table.View()))
	s.WriteString("\n\n")

	if m.Cfg.TotalDuration() > 0 {
		s.WriteString(m.Progress.View())
	} else {
		s.WriteString(styles.Subtle.Render("Elapsed " + m.Stats.Elapsed.Round(time.Second).String()))
	}

	return s.String()
}
