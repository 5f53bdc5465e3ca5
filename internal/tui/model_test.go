package tui

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clickload/internal/runner"
	"clickload/internal/scenario"
	"clickload/internal/storage"
)

func newModel(t *testing.T, prefix string) (*Model, *storage.Store) {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := runner.Config{Host: "http://localhost:8080", Users: 1, RunTime: time.Second, OutPrefix: prefix}
	r := runner.NewRunner(cfg, scenario.Default(), nil, nil)
	r.Stats.Record("GET", "system health check", time.Now(), true, 10, 5*time.Millisecond, "")

	m := NewModel(context.Background(), r, Options{Store: store})
	m.running = true
	m.started = time.Now()
	return &m, store
}

func TestModel_FinishRecordsRun(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "run")
	m, store := newModel(t, prefix)

	_, cmd := m.Update(runDoneMsg{})
	assert.Nil(t, cmd)
	require.NotNil(t, m.Summary())
	assert.Equal(t, uint64(1), m.Summary().Total.Requests)
	assert.FileExists(t, prefix+"_summary.json")

	items, err := store.List()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Contains(t, m.View(), "Test Complete")
	assert.Contains(t, m.View(), "Saved to history as "+items[0].ID)
}

func TestModel_QuitStopsRunFirst(t *testing.T) {
	m, _ := newModel(t, "")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.Nil(t, cmd)
	assert.Error(t, m.ctx.Err(), "quit cancels the run")

	_, cmd = m.Update(runDoneMsg{})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModel_RunError(t *testing.T) {
	m, _ := newModel(t, "")
	boom := errors.New("boom")

	_, cmd := m.Update(runDoneMsg{err: boom})
	require.NotNil(t, cmd)
	assert.ErrorIs(t, m.Err(), boom)
	assert.Nil(t, m.Summary())
}

func TestModel_SwitchViews(t *testing.T) {
	m, _ := newModel(t, "")

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, viewHistory, m.current)
	assert.Contains(t, m.View(), "No runs recorded yet.")

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("1")})
	assert.Equal(t, viewRun, m.current)
	assert.Contains(t, m.View(), "USERS:")
}
