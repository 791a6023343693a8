// Package config loads the starpipe configuration file. The file is HCL;
// values may reference the process environment through the `env` variable,
// e.g. `level = env.STARPIPE_LOG_LEVEL`.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// Config is the decoded configuration with defaults applied.
type Config struct {
	Pipeline Pipeline
	Markers  Markers
	Watch    Watch
	Log      Log
}

// Pipeline locates the persisted graph and the job directory its node
// names are relative to.
type Pipeline struct {
	Name   string
	File   string
	JobDir string
}

// Markers configures the node marker mirror.
type Markers struct {
	Dir string
}

// Watch configures watch mode: the poll interval, the event debounce
// window, and the directory trees to watch.
type Watch struct {
	Interval time.Duration
	Debounce time.Duration
	Paths    []string
}

// Log configures the logger.
type Log struct {
	Level  string
	Format string
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Pipeline: Pipeline{Name: "default", File: "default_pipeline.star", JobDir: "."},
		Markers:  Markers{Dir: ".Nodes"},
		Watch:    Watch{Interval: 30 * time.Second, Debounce: time.Second, Paths: []string{"."}},
		Log:      Log{Level: "info", Format: "text"},
	}
}

// hclFile mirrors the file structure for decoding. Every block and
// attribute is optional; absent values keep their defaults.
type hclFile struct {
	Pipeline *hclPipeline `hcl:"pipeline,block"`
	Markers  *hclMarkers  `hcl:"markers,block"`
	Watch    *hclWatch    `hcl:"watch,block"`
	Log      *hclLog      `hcl:"log,block"`
}

type hclPipeline struct {
	Name   *string `hcl:"name"`
	File   *string `hcl:"file"`
	JobDir *string `hcl:"job_dir"`
}

type hclMarkers struct {
	Dir *string `hcl:"dir"`
}

type hclWatch struct {
	Interval *string  `hcl:"interval"`
	Debounce *string  `hcl:"debounce"`
	Paths    []string `hcl:"paths,optional"`
}

type hclLog struct {
	Level  *string `hcl:"level"`
	Format *string `hcl:"format"`
}

// Load reads and decodes the configuration at path. A missing file is not
// an error: the defaults are returned unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing config %s: %w", path, diags)
	}

	var decoded hclFile
	diags = gohcl.DecodeBody(file.Body, evalContext(), &decoded)
	if diags.HasErrors() {
		return nil, fmt.Errorf("decoding config %s: %w", path, diags)
	}
	if err := cfg.apply(&decoded); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// evalContext exposes the process environment to config expressions as a
// cty map named env. An empty environment still yields a valid map value.
func evalContext() *hcl.EvalContext {
	envVars := map[string]cty.Value{}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			envVars[k] = cty.StringVal(v)
		}
	}
	env := cty.MapValEmpty(cty.String)
	if len(envVars) > 0 {
		env = cty.MapVal(envVars)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": env},
	}
}

func (c *Config) apply(d *hclFile) error {
	if d.Pipeline != nil {
		setString(&c.Pipeline.Name, d.Pipeline.Name)
		setString(&c.Pipeline.File, d.Pipeline.File)
		setString(&c.Pipeline.JobDir, d.Pipeline.JobDir)
	}
	if d.Markers != nil {
		setString(&c.Markers.Dir, d.Markers.Dir)
	}
	if d.Watch != nil {
		if err := setDuration(&c.Watch.Interval, d.Watch.Interval); err != nil {
			return fmt.Errorf("watch interval: %w", err)
		}
		if err := setDuration(&c.Watch.Debounce, d.Watch.Debounce); err != nil {
			return fmt.Errorf("watch debounce: %w", err)
		}
		if len(d.Watch.Paths) > 0 {
			c.Watch.Paths = d.Watch.Paths
		}
	}
	if d.Log != nil {
		setString(&c.Log.Level, d.Log.Level)
		setString(&c.Log.Format, d.Log.Format)
	}
	return nil
}

func setString(dst *string, src *string) {
	if src != nil && *src != "" {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *string) error {
	if src == nil || *src == "" {
		return nil
	}
	d, err := time.ParseDuration(*src)
	if err != nil {
		return err
	}
	if d <= 0 {
		return fmt.Errorf("must be positive, got %s", d)
	}
	*dst = d
	return nil
}
