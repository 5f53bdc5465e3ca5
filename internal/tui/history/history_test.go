package history

import (
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clickload/internal/report"
	"clickload/internal/runner"
	"clickload/internal/stats"
	"clickload/internal/storage"
)

func TestModel_ListAndDetail(t *testing.T) {
	store, err := storage.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer store.Close()

	for _, host := range []string{"http://old.example", "http://new.example"} {
		item, err := storage.NewHistoryItem(report.Summary{
			RunID:   host,
			Started: time.Now(),
			Config:  runner.Config{Host: host, Users: 4, Profiles: []string{"MenuOnlyUser"}},
			Total:   stats.Snapshot{Name: stats.TotalName, Requests: 12},
		})
		require.NoError(t, err)
		require.NoError(t, store.Save(item))
	}

	m := NewModel(store)
	require.Len(t, m.Table.Rows(), 2)
	assert.Equal(t, "http://new.example", m.Table.Rows()[0][1])
	assert.Equal(t, "MenuOnlyUser", m.Table.Rows()[0][2])

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, m.detail)
	assert.Contains(t, m.View(), "Test Complete")
	assert.Contains(t, m.View(), "http://new.example")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, m.detail)
}

func TestModel_Empty(t *testing.T) {
	m := NewModel(nil)
	assert.Nil(t, m.Selected())
	assert.Contains(t, m.View(), "No runs recorded yet.")
}
