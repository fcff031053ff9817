package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
server:
  listenAddress: ":9000"
storage:
  dataDir: "/var/lib/napcat-email"
scheduler:
  tickInterval: "30s"
accounts:
  - id: "primary"
    host: "smtp.example.com"
    port: 465
    username: "bot@example.com"
    password: "secret"
    senderName: "Bot"
    subjectPrefix: "[bot] "
    secure: true
    isDefault: true
  - id: "relay"
    host: "smtp-relay.internal"
    port: 25
    username: "relay@internal"
    password: "secret"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.ListenAddress)
	assert.Equal(t, "/var/lib/napcat-email", cfg.Storage.DataDir)
	assert.Equal(t, 30*time.Second, cfg.TickInterval())
	require.Len(t, cfg.Accounts, 2)
	assert.Equal(t, "[bot] ", cfg.Accounts[0].SubjectPrefix)
	assert.True(t, cfg.Accounts[0].Secure)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_AppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "accounts: []\n"))
	require.NoError(t, err)

	assert.Equal(t, ":8199", cfg.Server.ListenAddress)
	assert.Equal(t, "./data", cfg.Storage.DataDir)
	assert.Equal(t, DefaultTickInterval, cfg.TickInterval())
}

func TestTickInterval_FallsBackOnGarbage(t *testing.T) {
	cfg := Config{Scheduler: Scheduler{TickInterval: "often"}}
	assert.Equal(t, DefaultTickInterval, cfg.TickInterval())

	cfg.Scheduler.TickInterval = "-5s"
	assert.Equal(t, DefaultTickInterval, cfg.TickInterval())
}

func TestAccountLookup(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	a, ok := cfg.Account("relay")
	require.True(t, ok)
	assert.Equal(t, "smtp-relay.internal", a.Host)

	_, ok = cfg.Account("missing")
	assert.False(t, ok)

	def, ok := cfg.DefaultAccount()
	require.True(t, ok)
	assert.Equal(t, "primary", def.ID)
}

func TestDefaultAccount_FallsBackToFirst(t *testing.T) {
	cfg := Config{Accounts: []MailAccount{{ID: "only"}}}
	def, ok := cfg.DefaultAccount()
	require.True(t, ok)
	assert.Equal(t, "only", def.ID)

	empty := Config{}
	_, ok = empty.DefaultAccount()
	assert.False(t, ok)
}
