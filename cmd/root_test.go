package cmd

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"clickload/internal/dummy"
)

// resetFlags undoes flag values left over from a previous Execute.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	resetFlags(rootCmd)
	cfgFile = ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestProfilesCommand(t *testing.T) {
	out, err := execute(t, "profiles")
	require.NoError(t, err)

	for _, name := range []string{"HomeworkClickUser", "WebhookOnlyUser", "MenuOnlyUser", "BasicUser", "AdvancedUser"} {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "1s-3s")
}

func TestProfilesCommand_ExtraFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
profiles:
  - name: ProbeUser
    wait: {min: 100ms, max: 200ms}
    tasks:
      - weight: 1
        requests:
          - name: probe
            method: GET
            path: /webhook/health
`), 0644))

	out, err := execute(t, "profiles", "--profiles-file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "ProbeUser")
	assert.Contains(t, out, "MenuOnlyUser")

	_, err = execute(t, "profiles", "--profiles-file", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRunCommand_Headless(t *testing.T) {
	srv := httptest.NewServer(dummy.NewServer(dummy.ServerConfig{}, zap.NewNop()).Handler())
	defer srv.Close()

	prefix := filepath.Join(t.TempDir(), "ci")
	out, err := execute(t,
		"--headless",
		"--host", srv.URL,
		"--profile", "BasicUser",
		"--users", "2",
		"--spawn-rate", "0",
		"--run-time", "300ms",
		"--history=false",
		"--log-level", "error",
		"--out", prefix,
	)
	require.NoError(t, err)
	assert.Contains(t, out, "LOAD TEST RESULTS")
	assert.FileExists(t, prefix+"_summary.json")
}

func TestRunCommand_FailOnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := execute(t,
		"--headless",
		"--host", srv.URL,
		"--users", "1",
		"--spawn-rate", "0",
		"--run-time", "300ms",
		"--history=false",
		"--log-level", "error",
		"--fail-on-error",
	)
	assert.ErrorIs(t, err, ErrRequestsFailed)
}

func TestRunCommand_InvalidConfig(t *testing.T) {
	_, err := execute(t, "--headless", "--host", "not a url", "--history=false")
	assert.Error(t, err)
}
