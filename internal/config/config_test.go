package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "starpipe.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.hcl"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "default_pipeline.star", cfg.Pipeline.File)
	assert.Equal(t, 30*time.Second, cfg.Watch.Interval)
}

func TestLoadFullFile(t *testing.T) {
	path := writeConfig(t, `
pipeline {
  name    = "preprocessing"
  file    = "work/pipeline.star"
  job_dir = "work"
}

markers {
  dir = "work/.Nodes"
}

watch {
  interval = "5s"
  debounce = "250ms"
  paths    = ["work/Import", "work/MotionCorr"]
}

log {
  level  = "debug"
  format = "json"
}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "preprocessing", cfg.Pipeline.Name)
	assert.Equal(t, "work/pipeline.star", cfg.Pipeline.File)
	assert.Equal(t, "work", cfg.Pipeline.JobDir)
	assert.Equal(t, "work/.Nodes", cfg.Markers.Dir)
	assert.Equal(t, 5*time.Second, cfg.Watch.Interval)
	assert.Equal(t, 250*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, []string{"work/Import", "work/MotionCorr"}, cfg.Watch.Paths)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
pipeline {
  name = "session"
}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "session", cfg.Pipeline.Name)
	assert.Equal(t, "default_pipeline.star", cfg.Pipeline.File)
	assert.Equal(t, ".Nodes", cfg.Markers.Dir)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadEnvInterpolation(t *testing.T) {
	t.Setenv("STARPIPE_TEST_DIR", "/data/session42")
	path := writeConfig(t, `
pipeline {
  job_dir = env.STARPIPE_TEST_DIR
  file    = "${env.STARPIPE_TEST_DIR}/pipeline.star"
}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/session42", cfg.Pipeline.JobDir)
	assert.Equal(t, "/data/session42/pipeline.star", cfg.Pipeline.File)
}

func TestLoadErrors(t *testing.T) {
	t.Run("syntax error", func(t *testing.T) {
		path := writeConfig(t, `pipeline { name = `)
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("bad duration", func(t *testing.T) {
		path := writeConfig(t, `
watch {
  interval = "soon"
}
`)
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("negative duration", func(t *testing.T) {
		path := writeConfig(t, `
watch {
  interval = "-10s"
}
`)
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("unknown attribute", func(t *testing.T) {
		path := writeConfig(t, `
pipeline {
  frobnicate = true
}
`)
		_, err := Load(path)
		assert.Error(t, err)
	})
}
