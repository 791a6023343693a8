package pipeline

import "io/fs"

// CheckProcessCompletion reconciles process statuses against the
// filesystem: a RUNNING process whose declared output artifacts all exist
// in fsys becomes FINISHED. Node names are interpreted as paths within
// fsys (typically os.DirFS of the pipeline's job directory).
//
// This is a poll, not an event subscription. Calling it repeatedly on an
// unchanged filesystem yields the same statuses, and no status other than
// RUNNING is ever touched, so a FINISHED process can never regress. A file
// that is mid-write and not yet visible just delays the transition to the
// next poll.
//
// The handles of processes that transitioned are returned.
func (g *Graph) CheckProcessCompletion(fsys fs.FS) []Handle {
	var finished []Handle
	for i, p := range g.procs {
		if p.Status != StatusRunning {
			continue
		}
		done := true
		for _, nh := range p.Outputs {
			if _, err := fs.Stat(fsys, g.nodes[nh].Name); err != nil {
				done = false
				break
			}
		}
		if done {
			p.Status = StatusFinished
			finished = append(finished, Handle(i))
		}
	}
	return finished
}
