// Package app wires the configuration, logger and pipeline graph together
// and implements the CLI commands. Each command is a full
// read-modify-write cycle over the persisted pipeline file; the caller is
// expected to hold any external lock around an App invocation when other
// writers may exist.
package app

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/vk/starpipe/internal/config"
	"github.com/vk/starpipe/internal/pipeline"
)

// App encapsulates the application's dependencies and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	cfg    *config.Config
	appCfg *Config
}

// NewApp constructs the application: load the HCL config, apply CLI
// overrides, and build an isolated logger writing to errW.
func NewApp(outW, errW io.Writer, appCfg *Config) (*App, error) {
	cfg, err := config.Load(appCfg.ConfigPath)
	if err != nil {
		return nil, err
	}
	if appCfg.PipelineFile != "" {
		cfg.Pipeline.File = appCfg.PipelineFile
	}
	if appCfg.LogLevel != "" {
		cfg.Log.Level = appCfg.LogLevel
	}
	if appCfg.LogFormat != "" {
		cfg.Log.Format = appCfg.LogFormat
	}

	logger := newLogger(cfg.Log.Level, cfg.Log.Format, errW)
	logger.Debug("configuration loaded",
		"pipeline_file", cfg.Pipeline.File, "job_dir", cfg.Pipeline.JobDir)

	return &App{
		outW:   outW,
		logger: logger,
		cfg:    cfg,
		appCfg: appCfg,
	}, nil
}

// Logger returns the application's logger. Primarily for testing.
func (a *App) Logger() *slog.Logger { return a.logger }

// loadGraph reads the persisted pipeline. A file that does not exist yet
// is a fresh pipeline, not an error.
func (a *App) loadGraph() (*pipeline.Graph, error) {
	g := pipeline.New()
	g.SetName(a.cfg.Pipeline.Name)
	err := g.ReadFile(a.cfg.Pipeline.File)
	switch {
	case err == nil:
		return g, nil
	case errors.Is(err, os.ErrNotExist):
		a.logger.Info("no pipeline file yet, starting empty", "path", a.cfg.Pipeline.File)
		return g, nil
	default:
		return nil, fmt.Errorf("loading pipeline %s: %w", a.cfg.Pipeline.File, err)
	}
}

func (a *App) saveGraph(g *pipeline.Graph) error {
	return g.WriteFile(a.cfg.Pipeline.File, pipeline.WriteOptions{})
}
