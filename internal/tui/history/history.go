package history

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"clickload/internal/storage"
	"clickload/internal/tui/result"
	"clickload/internal/tui/styles"
)

type Model struct {
	Store *storage.Store
	Table table.Model

	items  []storage.HistoryItem
	detail *result.Model
	err    error

	Width  int
	Height int
}

func NewModel(store *storage.Store) Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Time", Width: 20},
			{Title: "Host", Width: 34},
			{Title: "Profiles", Width: 24},
			{Title: "Users", Width: 6},
			{Title: "Reqs", Width: 8},
			{Title: "Fail %", Width: 7},
			{Title: "P90 (ms)", Width: 9},
		}),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	styles.Table(&t)

	m := Model{Store: store, Table: t}
	m.Refresh()
	return m
}

// Refresh reloads the runs from the store.
func (m *Model) Refresh() {
	if m.Store == nil {
		return
	}
	m.items, m.err = m.Store.List()

	rows := make([]table.Row, len(m.items))
	for i, item := range m.items {
		sum := item.Summary
		profiles := "all"
		if len(sum.Config.Profiles) > 0 {
			profiles = strings.Join(sum.Config.Profiles, ",")
		}
		rows[i] = table.Row{
			item.Timestamp.Format("2006-01-02 15:04:05"),
			item.Label(),
			profiles,
			strconv.Itoa(sum.Config.Users),
			strconv.FormatUint(sum.Total.Requests, 10),
			fmt.Sprintf("%.2f", sum.Total.ErrorRate),
			strconv.FormatInt(sum.Total.P90.Milliseconds(), 10),
		}
	}
	m.Table.SetRows(rows)
}

// Selected returns the run under the cursor.
func (m Model) Selected() *storage.HistoryItem {
	i := m.Table.Cursor()
	if i < 0 || i >= len(m.items) {
		return nil
	}
	return &m.items[i]
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Table.SetWidth(msg.Width - 4)
		m.Table.SetHeight(max(msg.Height-6, 3))

	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			if item := m.Selected(); item != nil {
				d := result.NewModel(item.Summary)
				d.Notes = []string{"Run " + item.ID + "  <esc> back"}
				m.detail = &d
			}
			return m, nil
		case "esc":
			m.detail = nil
			return m, nil
		case "r":
			m.Refresh()
			return m, nil
		}
	}

	if m.detail != nil {
		return m, nil
	}
	var cmd tea.Cmd
	m.Table, cmd = m.Table.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.detail != nil {
		return m.detail.View()
	}
	if m.err != nil {
		return styles.Error.Render("history unavailable: " + m.err.Error())
	}
	if len(m.items) == 0 {
		return styles.Subtle.Render("No runs recorded yet.")
	}
	return styles.Box.Render(m.Table.View()) + "\n" +
		styles.RenderKey("enter", "details") + "  " + styles.RenderKey("r", "reload")
}
