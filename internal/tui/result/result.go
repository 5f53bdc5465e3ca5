package result

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"clickload/internal/report"
	"clickload/internal/tui/styles"
)

// Model shows a finished run.
type Model struct {
	Summary report.Summary

	// Notes are extra lines such as report paths or the history id.
	Notes []string

	Width  int
	Height int
}

func NewModel(s report.Summary) Model {
	return Model{Summary: s}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
	}
	return m, nil
}

func ms(d time.Duration) string {
	return strconv.FormatFloat(float64(d)/float64(time.Millisecond), 'f', 0, 64)
}

// StatsTable renders one row per (method, name) and the aggregated row.
func StatsTable(s report.Summary) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(styles.Subtle).
		Headers("Type", "Name", "# reqs", "# fails", "Avg", "Min", "Max", "Med", "P90", "P99", "req/s").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.Active.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})

	for _, e := range append(s.Entries[:len(s.Entries):len(s.Entries)], s.Total) {
		t.Row(
			e.Method,
			e.Name,
			strconv.FormatUint(e.Requests, 10),
			fmt.Sprintf("%d(%.2f%%)", e.Failures, e.ErrorRate),
			ms(e.Mean), ms(e.Min), ms(e.Max), ms(e.P50), ms(e.P90), ms(e.P99),
			strconv.FormatFloat(e.RPS, 'f', 2, 64),
		)
	}
	return t.Render()
}

func (m Model) View() string {
	s := strings.Builder{}
	sum := m.Summary

	s.WriteString(styles.Title.Render("Test Complete"))
	s.WriteString("\n\n")

	overview := fmt.Sprintf(
		"Host:     %s\nDuration: %s\nRequests: %d\nFailures: %s\nRPS:      %.2f",
		sum.Config.Host,
		sum.Duration.Round(time.Second),
		sum.Total.Requests,
		styles.ErrorRate(sum.Total.ErrorRate).Render(fmt.Sprintf("%d (%.2f%%)", sum.Total.Failures, sum.Total.ErrorRate)),
		sum.Total.RPS,
	)
	s.WriteString(styles.Box.Render(overview))
	s.WriteString("\n\n")

	s.WriteString(StatsTable(sum))
	s.WriteString("\n")

	if len(sum.Failures) > 0 {
		s.WriteString("\n")
		s.WriteString(styles.Error.Render("Failures"))
		s.WriteString("\n")
		for _, f := range sum.Failures {
			s.WriteString(fmt.Sprintf("  %d x %s %s: %s\n", f.Count, f.Method, f.Name, f.Reason))
		}
	}

	for _, n := range m.Notes {
		s.WriteString("\n")
		s.WriteString(styles.Subtle.Render(n))
	}
	return s.String()
}
