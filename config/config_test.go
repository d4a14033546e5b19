package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
discord:
  token: abc
bot:
  prefix: "?"
  devs: ["1", "2"]
  testers: ["3"]
storage:
  errors_dir: logs/errors
retention:
  max_age: 72h
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "abc", cfg.Discord.Token)
	assert.Equal(t, "?", cfg.Bot.Prefix)
	assert.Equal(t, "logs/errors", cfg.Storage.ErrorsDir)
	assert.Equal(t, 72*time.Hour, cfg.Retention.MaxAge)
	// デフォルト値
	assert.Equal(t, "data/guilds.json", cfg.Storage.GuildsFile)
	assert.Equal(t, "@daily", cfg.Retention.Schedule)
	assert.Equal(t, 10, cfg.Log.MaxSize)
	require.NoError(t, cfg.Validate())
}

func TestLoadTokenFromEnv(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "from-env")
	cfg, err := Load(writeConfig(t, "bot:\n  prefix: \"!\"\n"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Discord.Token)
}

func TestValidate(t *testing.T) {
	cfg, err := Load(writeConfig(t, "bot:\n  prefix: \"!\"\n"))
	require.NoError(t, err)
	assert.ErrorIs(t, cfg.Validate(), ErrNoToken)

	cfg.Discord.Token = "YOUR_DISCORD_BOT_TOKEN_HERE"
	assert.ErrorIs(t, cfg.Validate(), ErrNoToken)
}

func TestPrivilegedUsers(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	tests := []struct {
		id     string
		dev    bool
		tester bool
	}{
		{"1", true, false},
		{"2", true, false},
		{"3", false, true},
		{"4", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.dev, cfg.IsDev(tt.id))
			assert.Equal(t, tt.tester, cfg.IsTester(tt.id))
		})
	}
}
