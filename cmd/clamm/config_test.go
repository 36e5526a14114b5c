package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := loadConfig("", nil)
		require.NoError(t, err)
		assert.Equal(t, "info", cfg.LogLevel)
		assert.Empty(t, cfg.Out)
	})

	t.Run("flags take effect", func(t *testing.T) {
		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flags.String("out", "", "")
		flags.String("log-level", "info", "")
		require.NoError(t, flags.Parse([]string{"--out", "result.json", "--log-level", "debug"}))

		cfg, err := loadConfig("", flags)
		require.NoError(t, err)
		assert.Equal(t, "result.json", cfg.Out)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("environment overrides defaults", func(t *testing.T) {
		t.Setenv("CLAMM_LOG_LEVEL", "warn")
		cfg, err := loadConfig("", nil)
		require.NoError(t, err)
		assert.Equal(t, "warn", cfg.LogLevel)
	})

	t.Run("config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("log-level: error\nout: from-file.json\n"), 0o600))

		cfg, err := loadConfig(path, nil)
		require.NoError(t, err)
		assert.Equal(t, "error", cfg.LogLevel)
		assert.Equal(t, "from-file.json", cfg.Out)
	})

	t.Run("missing explicit config file", func(t *testing.T) {
		_, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"), nil)
		assert.Error(t, err)
	})
}
