package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radventure/engine/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "radventure.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingFile_UsesDefaults(t *testing.T) {
	// GIVEN: No config file at the path
	// WHEN: Loading
	// THEN: Defaults apply without error

	cfg, err := config.Load("/nonexistent/radventure.toml")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "radventure.db", cfg.Database.Path)
	assert.Equal(t, 5, cfg.Tutor.RateLimitPerMinute)
	assert.Equal(t, 100, cfg.Challenge.FanOutBatchSize)
	assert.Equal(t, int64(5), cfg.Economy.DailyLoginBonus)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	// GIVEN: A TOML file setting a subset of fields
	// WHEN: Loading
	// THEN: Listed fields override, unlisted fields keep their defaults

	path := writeConfig(t, `
[server]
port = 9090

[tutor]
model = "gpt-4o"
rate_limit_per_minute = 10

[economy]
daily_login_bonus = 7
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "gpt-4o", cfg.Tutor.Model)
	assert.Equal(t, 10, cfg.Tutor.RateLimitPerMinute)
	assert.Equal(t, int64(7), cfg.Economy.DailyLoginBonus)

	// Untouched defaults survive.
	assert.Equal(t, "radventure.db", cfg.Database.Path)
	assert.Equal(t, "https://api.openai.com/v1", cfg.Tutor.BaseURL)
}

func TestLoad_InvalidPort_Rejected(t *testing.T) {
	path := writeConfig(t, `
[server]
port = 99999
`)

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestLoad_InvalidBatchSize_Rejected(t *testing.T) {
	path := writeConfig(t, `
[challenge]
fanout_batch_size = 0
`)

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestValidate_CatchesOverriddenValues(t *testing.T) {
	// GIVEN: A valid loaded config mutated afterwards (flag overrides)
	// WHEN: Re-validating
	// THEN: The same invariants apply to the final values

	cfg, err := config.Load("/nonexistent/radventure.toml")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	cfg.Server.Port = 99999
	assert.Error(t, cfg.Validate())
}

func TestLoad_MalformedTOML_Rejected(t *testing.T) {
	path := writeConfig(t, `this is not toml = = =`)

	_, err := config.Load(path)
	assert.Error(t, err)
}
