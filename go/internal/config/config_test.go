package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, Default().API.BaseURL, cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Sync.PollInterval)
	assert.Equal(t, time.Second, cfg.Sync.FreezeWindow)
	assert.Equal(t, 5, cfg.Sync.QueueLimit)
	assert.Equal(t, int64(50000), cfg.Ladder.Ceiling)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: https://auction.example.org/api
  timeout: 5s
realtime:
  transport: NATS
  nats_url: nats://broker:4222
  subject: auction.events.temple
  stream: AUCTION_EVENTS
viewer:
  team_id: team-7
sync:
  poll_interval: 15s
ladder:
  rungs: [500, 1000, 2000]
  ceiling: 5000
  ceiling_margin: 1000
  options: 2
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://auction.example.org/api", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, TransportNATS, cfg.Realtime.Transport)
	assert.Equal(t, "auction.events.temple", cfg.Realtime.Subject)
	assert.Equal(t, "AUCTION_EVENTS", cfg.Realtime.Stream)
	assert.Equal(t, "team-7", cfg.Viewer.TeamID)
	assert.Equal(t, 15*time.Second, cfg.Sync.PollInterval)
	assert.Equal(t, []int64{500, 1000, 2000}, cfg.Ladder.Rungs)
	assert.Equal(t, int64(5000), cfg.Ladder.Ceiling)
	assert.Equal(t, 2, cfg.Ladder.Options)
	assert.Equal(t, "debug", cfg.Log.Level)

	// untouched keys keep their defaults
	assert.Equal(t, time.Second, cfg.Sync.FreezeWindow)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "viewer:\n  team_id: from-file\n")
	t.Setenv("AUCTION_TEAM_ID", "from-env")
	t.Setenv("AUCTION_API_TOKEN", "tok")
	t.Setenv("AUCTION_POLL_INTERVAL", "45s")
	t.Setenv("AUCTION_QUEUE_LIMIT", "8")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Viewer.TeamID)
	assert.Equal(t, "tok", cfg.API.Token)
	assert.Equal(t, 45*time.Second, cfg.Sync.PollInterval)
	assert.Equal(t, 8, cfg.Sync.QueueLimit)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "api: [unclosed")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "empty base url", mutate: func(c *Config) { c.API.BaseURL = "" }, wantErr: "api.base_url is required"},
		{name: "zero poll interval", mutate: func(c *Config) { c.Sync.PollInterval = 0 }, wantErr: "sync.poll_interval"},
		{name: "negative freeze window", mutate: func(c *Config) { c.Sync.FreezeWindow = -time.Second }, wantErr: "sync.freeze_window"},
		{name: "unknown transport", mutate: func(c *Config) { c.Realtime.Transport = "carrier-pigeon" }, wantErr: "unknown realtime.transport"},
		{name: "descending ladder", mutate: func(c *Config) { c.Ladder.Rungs = []int64{3000, 2000} }, wantErr: "ascending"},
		{name: "no options", mutate: func(c *Config) { c.Ladder.Options = 0 }, wantErr: "ladder.options"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_LadderFileReplacesInlineLadder(t *testing.T) {
	dir := t.TempDir()
	ladderPath := filepath.Join(dir, "ladder.yaml")
	require.NoError(t, os.WriteFile(ladderPath, []byte(`
rungs: [100, 200, 400]
ceiling: 1000
ceiling_margin: 200
`), 0o600))

	cfg, err := Load(writeConfig(t, `
ladder:
  rungs: [500, 1000]
  ceiling: 5000
  file: `+ladderPath+`
  options: 2
`))
	require.NoError(t, err)

	assert.Equal(t, []int64{100, 200, 400}, cfg.Ladder.Rungs)
	assert.Equal(t, int64(1000), cfg.Ladder.Ceiling)
	assert.Equal(t, int64(200), cfg.Ladder.CeilingMargin)
	assert.Equal(t, 2, cfg.Ladder.Options)
}

func TestLoad_LadderFileFromEnv(t *testing.T) {
	ladderPath := filepath.Join(t.TempDir(), "ladder.yaml")
	require.NoError(t, os.WriteFile(ladderPath, []byte("rungs: [300, 600]\nceiling: 900\n"), 0o600))
	t.Setenv("AUCTION_LADDER_FILE", ladderPath)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, []int64{300, 600}, cfg.Ladder.Rungs)
}

func TestLoad_BadLadderFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.yaml")
	_, err := Load(writeConfig(t, "ladder:\n  file: "+missing+"\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ladder.file")

	unsorted := filepath.Join(t.TempDir(), "ladder.yaml")
	require.NoError(t, os.WriteFile(unsorted, []byte("rungs: [600, 300]\nceiling: 900\n"), 0o600))
	_, err = Load(writeConfig(t, "ladder:\n  file: "+unsorted+"\n"))
	require.Error(t, err)
}
