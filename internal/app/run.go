package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/vk/starpipe/internal/ctxlog"
	"github.com/vk/starpipe/internal/markers"
	"github.com/vk/starpipe/internal/pipeline"
	"github.com/vk/starpipe/internal/watcher"
)

// Run dispatches the configured command.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	switch a.appCfg.Command {
	case CmdStatus:
		return a.runStatus()
	case CmdCheck:
		return a.runCheck(ctx)
	case CmdWatch:
		return a.runWatch(ctx)
	case CmdGC:
		return a.runGC()
	case CmdMarkers:
		return a.runMarkers()
	case CmdDelete:
		return a.runDelete(ctx)
	}
	return fmt.Errorf("unknown command %q", a.appCfg.Command)
}

// runStatus prints a one-line summary per process plus node totals.
func (a *App) runStatus() error {
	g, err := a.loadGraph()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.outW, "pipeline %q: %d processes, %d nodes\n",
		g.Name(), g.ProcessCount(), g.NodeCount())
	for _, p := range g.Processes() {
		fmt.Fprintf(a.outW, "  %-10s %-12s %s (in=%d out=%d)\n",
			p.Status, p.Type, p.Name, len(p.Inputs), len(p.Outputs))
	}
	return nil
}

// runCheck performs one completion pass and persists any transitions.
func (a *App) runCheck(ctx context.Context) error {
	g, err := a.loadGraph()
	if err != nil {
		return err
	}
	finished := g.CheckProcessCompletion(os.DirFS(a.cfg.Pipeline.JobDir))
	if len(finished) == 0 {
		a.logger.Debug("no running process completed")
		return nil
	}
	for _, h := range finished {
		p, _ := g.Process(h)
		fmt.Fprintf(a.outW, "finished: %s\n", p.Name)
	}
	a.logger.Info("processes finished", "count", len(finished))
	return a.saveGraph(g)
}

// runWatch re-checks completion on every filesystem change signal and on
// a regular interval until the context is cancelled.
func (a *App) runWatch(ctx context.Context) error {
	w, err := watcher.New(watcher.Config{
		Roots:    a.cfg.Watch.Paths,
		Debounce: a.cfg.Watch.Debounce,
		Logger:   a.logger,
	})
	if err != nil {
		return err
	}
	changes, err := w.Start()
	if err != nil {
		return err
	}
	defer w.Stop()

	ticker := time.NewTicker(a.cfg.Watch.Interval)
	defer ticker.Stop()

	a.logger.Info("watching for job output",
		"paths", a.cfg.Watch.Paths, "interval", a.cfg.Watch.Interval)
	for {
		if err := a.runCheck(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
		case <-ticker.C:
		}
	}
}

// runGC rewrites the pipeline file without cancelled processes. Output
// nodes of a dropped process are dropped with it unless a surviving
// process still consumes them.
func (a *App) runGC() error {
	g, err := a.loadGraph()
	if err != nil {
		return err
	}
	opts := pipeline.WriteOptions{
		ExcludeNodes:     make(map[pipeline.Handle]bool),
		ExcludeProcesses: make(map[pipeline.Handle]bool),
	}
	for i, p := range g.Processes() {
		if p.Status == pipeline.StatusCancelled {
			opts.ExcludeProcesses[pipeline.Handle(i)] = true
		}
	}
	for i, n := range g.Nodes() {
		if n.ProducedBy == pipeline.NoProducer || !opts.ExcludeProcesses[n.ProducedBy] {
			continue
		}
		wanted := false
		for _, c := range n.ConsumedBy {
			if !opts.ExcludeProcesses[c] {
				wanted = true
				break
			}
		}
		if !wanted {
			opts.ExcludeNodes[pipeline.Handle(i)] = true
		}
	}
	if len(opts.ExcludeProcesses) == 0 {
		a.logger.Info("nothing to collect")
		return nil
	}
	a.logger.Info("collecting cancelled processes",
		"processes", len(opts.ExcludeProcesses), "nodes", len(opts.ExcludeNodes))
	return g.WriteFile(a.cfg.Pipeline.File, opts)
}

// runMarkers refreshes the node marker mirror.
func (a *App) runMarkers() error {
	g, err := a.loadGraph()
	if err != nil {
		return err
	}
	m := markers.Mirror{Root: a.cfg.Pipeline.JobDir, Dir: a.cfg.Markers.Dir}
	if err := m.Sync(g.NodeNames()); err != nil {
		return err
	}
	a.logger.Info("marker mirror refreshed", "dir", a.cfg.Markers.Dir, "nodes", g.NodeCount())
	return nil
}

// runDelete removes one process by name, optionally cascading, then
// persists the graph and prunes stale markers.
func (a *App) runDelete(ctx context.Context) error {
	g, err := a.loadGraph()
	if err != nil {
		return err
	}
	h, ok := g.FindProcessByName(a.appCfg.JobName)
	if !ok {
		return fmt.Errorf("process %q: %w", a.appCfg.JobName, pipeline.ErrNotFound)
	}
	if err := g.DeleteProcess(ctx, h, a.appCfg.Cascade); err != nil {
		return err
	}
	if err := a.saveGraph(g); err != nil {
		return err
	}
	m := markers.Mirror{Root: a.cfg.Pipeline.JobDir, Dir: a.cfg.Markers.Dir}
	if err := m.Sync(g.NodeNames()); err != nil {
		a.logger.Warn("marker mirror not updated", "error", err)
	}
	fmt.Fprintf(a.outW, "deleted %s (cascade=%v)\n", a.appCfg.JobName, a.appCfg.Cascade)
	return nil
}
