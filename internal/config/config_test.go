package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "text", cfg.Format)
	assert.Equal(t, 2, cfg.Analysis.Rounds)
	assert.Equal(t, 10, cfg.Analysis.Tolerance)
	assert.NotEmpty(t, cfg.Analysis.Apps)
	assert.Contains(t, cfg.Analysis.Apps, "com.tencent.mm")
}

func TestLoadFromFile(t *testing.T) {
	t.Run("overrides defaults", func(t *testing.T) {
		path := writeConfig(t, `
format: ndjson
analysis:
  apps:
    - com.first.app
    - com.second.app
  rounds: 3
  tolerance: 5
  strict_pid_match: true
rules:
  kill_type_map:
    "0": "CUSTOM"
  min_score_map:
    "-1107296256": "NORMAL"
`)
		cfg, err := LoadFromFile(path)
		require.NoError(t, err)

		assert.Equal(t, "ndjson", cfg.Format)
		assert.Equal(t, []string{"com.first.app", "com.second.app"}, cfg.Analysis.Apps)
		assert.Equal(t, 3, cfg.Analysis.Rounds)
		assert.Equal(t, 5, cfg.Analysis.Tolerance)
		assert.True(t, cfg.Analysis.StrictPIDMatch)
		assert.Equal(t, "CUSTOM", cfg.Rules.KillTypeMap["0"])
	})

	t.Run("missing app list keeps the default set", func(t *testing.T) {
		path := writeConfig(t, "format: text\n")
		cfg, err := LoadFromFile(path)
		require.NoError(t, err)
		assert.NotEmpty(t, cfg.Analysis.Apps)
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})
}

func TestPatternOverrides(t *testing.T) {
	cfg := Default()
	cfg.Rules.Patterns = map[string]string{"lmk": "custom"}
	cfg.Rules.MinScoreMap = map[string]string{
		"-1107296256": "NORMAL",
		"not-a-number": "DROPPED",
	}

	ov := cfg.PatternOverrides()
	assert.Equal(t, "custom", ov.Patterns["lmk"])
	require.Len(t, ov.MinScoreMap, 1)
	assert.Equal(t, "NORMAL", ov.MinScoreMap[-1107296256])
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "akita.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
