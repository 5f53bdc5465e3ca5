package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.Host)
	assert.Equal(t, 10, cfg.Users)
	assert.Equal(t, 1.0, cfg.SpawnRate)
	assert.Equal(t, time.Minute, cfg.RunTime)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.True(t, cfg.History)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.Profiles)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileAndEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "clickload.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
host: https://homeworkclick.example.com/
profile: [MenuOnlyUser, WebhookOnlyUser]
users: 50
spawn-rate: 5
run-time: 2m30s
log-format: json
`), 0644))
	t.Setenv("CLICKLOAD_USERS", "75")
	t.Setenv("CLICKLOAD_FAIL_ON_ERROR", "true")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, []string{"MenuOnlyUser", "WebhookOnlyUser"}, cfg.Profiles)
	assert.Equal(t, 75, cfg.Users)
	assert.Equal(t, 5.0, cfg.SpawnRate)
	assert.Equal(t, 150*time.Second, cfg.RunTime)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.True(t, cfg.FailOnError)

	rc := cfg.Runner()
	assert.Equal(t, "https://homeworkclick.example.com", rc.Host)
	assert.Equal(t, 75, rc.Users)
}

func TestLoad_HomeFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.WriteFile(filepath.Join(home, ".clickload.yaml"), []byte("users: 3\n"), 0644))

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Users)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Config{Host: "http://localhost:8080", Users: 1, Timeout: time.Second}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no scheme", func(c *Config) { c.Host = "localhost:8080" }},
		{"ftp", func(c *Config) { c.Host = "ftp://localhost" }},
		{"no users", func(c *Config) { c.Users = 0 }},
		{"negative spawn rate", func(c *Config) { c.SpawnRate = -1 }},
		{"negative run time", func(c *Config) { c.RunTime = -time.Second }},
		{"no timeout", func(c *Config) { c.Timeout = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			assert.ErrorIs(t, c.Validate(), ErrInvalid)
		})
	}
}
