package app

import "errors"

// Commands the application understands.
const (
	CmdStatus  = "status"
	CmdCheck   = "check"
	CmdWatch   = "watch"
	CmdGC      = "gc"
	CmdMarkers = "markers"
	CmdDelete  = "delete"
)

// Config holds everything an App instance needs to run, as assembled by
// the CLI layer.
type Config struct {
	Command string

	ConfigPath   string // HCL config file; missing file means defaults
	PipelineFile string // overrides the config's pipeline file when set

	// delete command only.
	JobName string
	Cascade bool

	LogFormat string
	LogLevel  string
}

// NewConfig validates a Config assembled by the caller.
func NewConfig(cfg Config) (*Config, error) {
	switch cfg.Command {
	case CmdStatus, CmdCheck, CmdWatch, CmdGC, CmdMarkers:
	case CmdDelete:
		if cfg.JobName == "" {
			return nil, errors.New("delete requires -job with the process name to remove")
		}
	default:
		return nil, errors.New("unknown command: " + cfg.Command)
	}
	return &cfg, nil
}
