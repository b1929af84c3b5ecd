package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/verity-cli/internal/verr"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	cfg, err := Load(v, "", filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "chromium", cfg.Browser.Type)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.InitialDelay)
	assert.Equal(t, 1, cfg.Runner.Parallel)
	assert.NotEmpty(t, cfg.Session.Dir, "session dir falls back to the home directory")
}

func TestEnvironmentOverlayWins(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "config.yaml", `
browser:
  headless: true
  type: chromium
runner:
  parallel: 2
  retries: 1
`)
	writeFile(t, dir, "config.staging.yaml", `
runner:
  parallel: 8
`)

	v := viper.New()
	cfg, err := Load(v, "staging", base)
	require.NoError(t, err)

	// Overlay overrides the conflicting key...
	assert.Equal(t, 8, cfg.Runner.Parallel)
	// ...but sibling keys from the base survive the deep merge.
	assert.Equal(t, 1, cfg.Runner.Retries)
	assert.Equal(t, "chromium", cfg.Browser.Type)
	assert.Equal(t, "staging", cfg.Environment)
}

func TestOverlayIsolation(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "config.yaml", "runner:\n  parallel: 2\n")
	writeFile(t, dir, "config.dev.yaml", "runner:\n  parallel: 4\n")
	writeFile(t, dir, "config.prod.yaml", "runner:\n  parallel: 16\n")

	devCfg, err := Load(viper.New(), "dev", base)
	require.NoError(t, err)
	prodCfg, err := Load(viper.New(), "prod", base)
	require.NoError(t, err)

	// Loading one environment must not bleed into another.
	assert.Equal(t, 4, devCfg.Runner.Parallel)
	assert.Equal(t, 16, prodCfg.Runner.Parallel)
}

func TestEnvVarOverridesFile(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "config.yaml", "browser:\n  headless: true\n")
	t.Setenv("VERITY_BROWSER_HEADLESS", "false")

	cfg, err := Load(viper.New(), "", base)
	require.NoError(t, err)
	assert.False(t, cfg.Browser.Headless)
}

func TestMissingOverlayIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "config.yaml", "runner:\n  parallel: 2\n")

	cfg, err := Load(viper.New(), "nonexistent", base)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Runner.Parallel)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		v := viper.New()
		SetDefaults(v)
		var cfg Config
		require.NoError(t, v.Unmarshal(&cfg))
		return &cfg
	}

	t.Run("rejects unknown browser", func(t *testing.T) {
		cfg := valid()
		cfg.Browser.Type = "netscape"
		err := cfg.Validate()
		require.Error(t, err)
		assert.True(t, verr.IsKind(err, verr.KindConfig))
	})

	t.Run("rejects zero retry attempts", func(t *testing.T) {
		cfg := valid()
		cfg.Retry.MaxAttempts = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects unsupported report format", func(t *testing.T) {
		cfg := valid()
		cfg.Report.Formats = []string{"allure"}
		assert.Error(t, cfg.Validate())
	})

	t.Run("accepts defaults", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})
}

func TestLookup(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	val, ok := Lookup(v, "retry.max_attempts")
	require.True(t, ok)
	assert.Equal(t, 3, val)

	_, ok = Lookup(v, "no.such.key")
	assert.False(t, ok)
}
