package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/starpipe/internal/pipeline"
	"github.com/vk/starpipe/internal/testutil"
)

// newTestApp persists the sample pipeline into a temp job directory and
// returns an App configured for it, plus the paths involved.
func newTestApp(t *testing.T, command string, mutate func(*Config)) (*App, *bytes.Buffer, string, string) {
	t.Helper()
	jobDir := t.TempDir()
	pipelineFile := filepath.Join(jobDir, "default_pipeline.star")

	g := testutil.SamplePipeline(t)
	require.NoError(t, g.WriteFile(pipelineFile, pipeline.WriteOptions{}))

	configPath := filepath.Join(jobDir, "starpipe.hcl")
	require.NoError(t, os.WriteFile(configPath, []byte(`
pipeline {
  file    = "`+pipelineFile+`"
  job_dir = "`+jobDir+`"
}

markers {
  dir = "`+filepath.Join(jobDir, ".Nodes")+`"
}
`), 0o644))

	appCfg := &Config{Command: command, ConfigPath: configPath}
	if mutate != nil {
		mutate(appCfg)
	}
	var out bytes.Buffer
	a, err := NewApp(&out, &bytes.Buffer{}, appCfg)
	require.NoError(t, err)
	return a, &out, pipelineFile, jobDir
}

func TestNewAppOverrides(t *testing.T) {
	a, _, _, _ := newTestApp(t, CmdStatus, func(c *Config) {
		c.LogLevel = "debug"
		c.LogFormat = "json"
	})
	require.NotNil(t, a.Logger())
	assert.Equal(t, "debug", a.cfg.Log.Level)
	assert.Equal(t, "json", a.cfg.Log.Format)
}

func TestRunStatus(t *testing.T) {
	a, out, _, _ := newTestApp(t, CmdStatus, nil)
	require.NoError(t, a.Run(context.Background()))

	assert.Contains(t, out.String(), `pipeline "preprocessing": 4 processes, 4 nodes`)
	assert.Contains(t, out.String(), "MotionCorr/job002/")
	assert.Contains(t, out.String(), "running")
}

func TestRunStatusFreshPipeline(t *testing.T) {
	a, out, pipelineFile, _ := newTestApp(t, CmdStatus, nil)
	require.NoError(t, os.Remove(pipelineFile))

	require.NoError(t, a.Run(context.Background()))
	assert.Contains(t, out.String(), "0 processes, 0 nodes")
}

func TestRunCheck(t *testing.T) {
	a, out, pipelineFile, jobDir := newTestApp(t, CmdCheck, nil)

	// Only MotionCorr's output exists on disk; CtfFind stays running.
	artifact := filepath.Join(jobDir, "MotionCorr/job002/micrographs.star")
	require.NoError(t, os.MkdirAll(filepath.Dir(artifact), 0o755))
	require.NoError(t, os.WriteFile(artifact, []byte("table"), 0o644))

	require.NoError(t, a.Run(context.Background()))
	assert.Contains(t, out.String(), "finished: MotionCorr/job002/")
	assert.NotContains(t, out.String(), "finished: CtfFind")

	// The transition must have been persisted.
	g := pipeline.New()
	require.NoError(t, g.ReadFile(pipelineFile))
	h, ok := g.FindProcessByName("MotionCorr/job002/")
	require.True(t, ok)
	p, _ := g.Process(h)
	assert.Equal(t, pipeline.StatusFinished, p.Status)

	h, ok = g.FindProcessByName("CtfFind/job003/")
	require.True(t, ok)
	p, _ = g.Process(h)
	assert.Equal(t, pipeline.StatusRunning, p.Status)
}

func TestRunDelete(t *testing.T) {
	t.Run("cascade removes downstream", func(t *testing.T) {
		a, out, pipelineFile, _ := newTestApp(t, CmdDelete, func(c *Config) {
			c.JobName = "MotionCorr/job002/"
			c.Cascade = true
		})
		require.NoError(t, a.Run(context.Background()))
		assert.Contains(t, out.String(), "deleted MotionCorr/job002/")

		g := pipeline.New()
		require.NoError(t, g.ReadFile(pipelineFile))
		assert.Equal(t, 1, g.ProcessCount(), "only the import survives")
		_, ok := g.FindProcessByName("Import/job001/")
		assert.True(t, ok)
	})

	t.Run("unknown job", func(t *testing.T) {
		a, _, _, _ := newTestApp(t, CmdDelete, func(c *Config) {
			c.JobName = "Nope/job999/"
		})
		err := a.Run(context.Background())
		require.ErrorIs(t, err, pipeline.ErrNotFound)
	})
}

func TestRunGC(t *testing.T) {
	a, _, pipelineFile, _ := newTestApp(t, CmdGC, nil)

	// Cancel the terminal AutoPick stage first.
	g := pipeline.New()
	require.NoError(t, g.ReadFile(pipelineFile))
	h, ok := g.FindProcessByName("AutoPick/job004/")
	require.True(t, ok)
	p, _ := g.Process(h)
	p.Status = pipeline.StatusCancelled
	require.NoError(t, g.WriteFile(pipelineFile, pipeline.WriteOptions{}))

	require.NoError(t, a.Run(context.Background()))

	after := pipeline.New()
	require.NoError(t, after.ReadFile(pipelineFile))
	assert.Equal(t, 3, after.ProcessCount())
	assert.Equal(t, 3, after.NodeCount(), "the cancelled stage's unconsumed output goes too")
	_, ok = after.FindProcessByName("AutoPick/job004/")
	assert.False(t, ok)
}

func TestRunMarkers(t *testing.T) {
	a, _, _, jobDir := newTestApp(t, CmdMarkers, nil)
	require.NoError(t, a.Run(context.Background()))

	_, err := os.Stat(filepath.Join(jobDir, ".Nodes", "Import/job001/movies.star"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(jobDir, ".Nodes", "AutoPick/job004/coords.star"))
	assert.NoError(t, err)
}

func TestNewConfigValidation(t *testing.T) {
	_, err := NewConfig(Config{Command: "frob"})
	require.Error(t, err)

	_, err = NewConfig(Config{Command: CmdDelete})
	require.Error(t, err)

	cfg, err := NewConfig(Config{Command: CmdDelete, JobName: "A"})
	require.NoError(t, err)
	assert.Equal(t, "A", cfg.JobName)
}
