// Package markers maintains a scratch directory mirroring the live node
// set as empty placeholder files. External file browsers list this
// directory to offer pipeline artifacts for selection; the only
// obligation here is to keep the mirror consistent with the registry,
// pruning markers for nodes that no longer exist.
package markers

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Mirror names the two directories involved: Root is the pipeline's job
// directory, where the real artifacts live; Dir is the scratch directory
// holding one empty marker file per node, at the path of the node's name.
type Mirror struct {
	Root string
	Dir  string
}

// Sync refreshes the mirror for the given node names: a marker is touched
// for every name and any marker without a live node is removed, along
// with directories left empty.
func (m Mirror) Sync(names []string) error {
	live := make(map[string]bool, len(names))
	for _, name := range names {
		live[filepath.Clean(name)] = true
		if _, err := m.Touch(name, true); err != nil {
			return err
		}
	}
	return m.prune(live)
}

// Touch creates or refreshes the marker for one node. Unless force is
// set, the marker is only written when the node's artifact actually
// exists under Root; the return value reports whether it was written.
func (m Mirror) Touch(name string, force bool) (bool, error) {
	if !force {
		if _, err := os.Stat(filepath.Join(m.Root, name)); err != nil {
			return false, nil
		}
	}
	path := filepath.Join(m.Dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("marker for %q: %w", name, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return false, fmt.Errorf("marker for %q: %w", name, err)
	}
	return true, f.Close()
}

// prune removes markers without a live node, then deletes any directories
// that became empty, deepest first.
func (m Mirror) prune(live map[string]bool) error {
	var emptyCandidates []string
	err := filepath.WalkDir(m.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		rel, relErr := filepath.Rel(m.Dir, path)
		if relErr != nil || rel == "." {
			return nil
		}
		if d.IsDir() {
			emptyCandidates = append(emptyCandidates, path)
			return nil
		}
		if !live[rel] {
			return os.Remove(path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("pruning markers: %w", err)
	}

	// Deepest paths first so nested empty directories fall away in one pass.
	sort.Slice(emptyCandidates, func(i, j int) bool {
		return len(emptyCandidates[i]) > len(emptyCandidates[j])
	})
	for _, dir := range emptyCandidates {
		// Fails for non-empty directories; that is the filter.
		os.Remove(dir)
	}
	return nil
}
