package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vk/starpipe/internal/star"
)

// Block and column names of the persisted format.
const (
	blockGeneral   = "pipeline_general"
	blockNodes     = "pipeline_nodes"
	blockProcesses = "pipeline_processes"

	keyName        = "_pipelineName"
	keyNodeName    = "_nodeName"
	keyNodeType    = "_nodeType"
	keyProcName    = "_processName"
	keyProcType    = "_processType"
	keyProcStatus  = "_processStatus"
	keyProcInputs  = "_processInputs"
	keyProcOutputs = "_processOutputs"

	// emptyHandleList stands in for a handle list with no entries.
	emptyHandleList = "-"
)

// WriteOptions selects entries to leave out of a written file. Exclusion
// does not mutate the live graph; handles in the emitted records are
// remapped to the compacted positions the surviving entries will occupy
// on reload, and references to excluded entries are dropped. This lets a
// caller garbage-collect the persisted file in place.
type WriteOptions struct {
	ExcludeNodes     map[Handle]bool
	ExcludeProcesses map[Handle]bool
}

// Write emits the whole graph to w in the persisted STAR format. Only the
// forward edge lists (process inputs and outputs) are stored; the node
// back-references are derived again on Read, so the same fact is never
// persisted twice.
func (g *Graph) Write(w io.Writer, opts WriteOptions) error {
	nodeRemap := excludeRemap(len(g.nodes), opts.ExcludeNodes)
	procRemap := excludeRemap(len(g.procs), opts.ExcludeProcesses)

	sw := star.NewWriter(w)
	sw.Block(blockGeneral)
	sw.Item(keyName, g.name)

	sw.Block(blockNodes)
	sw.Loop(keyNodeName, keyNodeType)
	for i, n := range g.nodes {
		if nodeRemap[i] < 0 {
			continue
		}
		sw.Row(n.Name, strconv.Itoa(int(n.Type)))
	}

	sw.Block(blockProcesses)
	sw.Loop(keyProcName, keyProcType, keyProcStatus, keyProcInputs, keyProcOutputs)
	for i, p := range g.procs {
		if procRemap[i] < 0 {
			continue
		}
		sw.Row(p.Name,
			strconv.Itoa(int(p.Type)),
			strconv.Itoa(int(p.Status)),
			formatHandleList(p.Inputs, nodeRemap),
			formatHandleList(p.Outputs, nodeRemap))
	}
	return sw.Flush()
}

// Read parses a persisted graph from r and replaces g with it. The node
// back-references (ConsumedBy, ProducedBy) are rebuilt from the stored
// forward lists, and the §3 invariants are enforced on the parsed result
// before anything is swapped in: on any error g is left exactly as it
// was.
func (g *Graph) Read(r io.Reader) error {
	f, err := star.Parse(r)
	if err != nil {
		return corruptf("%v", err)
	}
	parsed, err := graphFromFile(f)
	if err != nil {
		return err
	}
	*g = *parsed
	return nil
}

// WriteFile writes the graph to path via a temp file and rename, so a
// crash mid-write never truncates the previous state.
func (g *Graph) WriteFile(path string, opts WriteOptions) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("writing pipeline: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := g.Write(tmp, opts); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing pipeline: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing pipeline: %w", err)
	}
	return nil
}

// ReadFile reads the graph from path, replacing g on success.
func (g *Graph) ReadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("reading pipeline: %w", err)
	}
	defer f.Close()
	return g.Read(f)
}

// excludeRemap maps each old handle to its compacted position, or -1 for
// excluded entries.
func excludeRemap(n int, exclude map[Handle]bool) []Handle {
	remap := make([]Handle, n)
	next := Handle(0)
	for i := range remap {
		if exclude[Handle(i)] {
			remap[i] = -1
			continue
		}
		remap[i] = next
		next++
	}
	return remap
}

func formatHandleList(hs []Handle, remap []Handle) string {
	var parts []string
	for _, h := range hs {
		if int(h) < len(remap) && remap[h] >= 0 {
			parts = append(parts, strconv.Itoa(int(remap[h])))
		}
	}
	if len(parts) == 0 {
		return emptyHandleList
	}
	return strings.Join(parts, ",")
}

func parseHandleList(s string, limit int) ([]Handle, error) {
	if s == emptyHandleList {
		return nil, nil
	}
	var hs []Handle
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("bad handle %q", part)
		}
		if v < 0 || v >= limit {
			return nil, fmt.Errorf("handle %d out of range [0,%d)", v, limit)
		}
		hs = append(hs, Handle(v))
	}
	return hs, nil
}

// graphFromFile translates a parsed document into a validated Graph.
func graphFromFile(f *star.File) (*Graph, error) {
	parsed := New()

	general, ok := f.Block(blockGeneral)
	if !ok {
		return nil, corruptf("missing %s block", blockGeneral)
	}
	if name, ok := general.Value(keyName); ok {
		parsed.name = name
	}

	nodeBlock, ok := f.Block(blockNodes)
	if !ok {
		return nil, corruptf("missing %s block", blockNodes)
	}
	if nodeBlock.Loop != nil {
		cols, err := columnIndex(nodeBlock.Loop.Keys, keyNodeName, keyNodeType)
		if err != nil {
			return nil, err
		}
		for _, row := range nodeBlock.Loop.Rows {
			name := row[cols[keyNodeName]]
			typ, err := strconv.Atoi(row[cols[keyNodeType]])
			if err != nil {
				return nil, corruptf("node %q: bad type %q", name, row[cols[keyNodeType]])
			}
			if _, dup := parsed.FindNodeByName(name); dup {
				return nil, corruptf("duplicate node name %q", name)
			}
			parsed.AddNode(name, NodeType(typ))
		}
	}

	procBlock, ok := f.Block(blockProcesses)
	if !ok {
		return nil, corruptf("missing %s block", blockProcesses)
	}
	if procBlock.Loop != nil {
		cols, err := columnIndex(procBlock.Loop.Keys,
			keyProcName, keyProcType, keyProcStatus, keyProcInputs, keyProcOutputs)
		if err != nil {
			return nil, err
		}
		for _, row := range procBlock.Loop.Rows {
			name := row[cols[keyProcName]]
			typ, err := strconv.Atoi(row[cols[keyProcType]])
			if err != nil {
				return nil, corruptf("process %q: bad type %q", name, row[cols[keyProcType]])
			}
			status, err := strconv.Atoi(row[cols[keyProcStatus]])
			if err != nil || !Status(status).Valid() {
				return nil, corruptf("process %q: bad status %q", name, row[cols[keyProcStatus]])
			}
			h, err := parsed.AddProcess(name, ProcessType(typ), Status(status), false)
			if err != nil {
				return nil, corruptf("duplicate process name %q", name)
			}
			p := parsed.procs[h]
			if p.Inputs, err = parseHandleList(row[cols[keyProcInputs]], len(parsed.nodes)); err != nil {
				return nil, corruptf("process %q inputs: %v", name, err)
			}
			if p.Outputs, err = parseHandleList(row[cols[keyProcOutputs]], len(parsed.nodes)); err != nil {
				return nil, corruptf("process %q outputs: %v", name, err)
			}
		}
	}

	if err := parsed.rebuildBackRefs(); err != nil {
		return nil, err
	}
	if err := parsed.checkAcyclic(); err != nil {
		return nil, err
	}
	return parsed, nil
}

func columnIndex(keys []string, want ...string) (map[string]int, error) {
	idx := make(map[string]int, len(keys))
	for i, k := range keys {
		idx[k] = i
	}
	for _, w := range want {
		if _, ok := idx[w]; !ok {
			return nil, corruptf("missing column %s", w)
		}
	}
	return idx, nil
}

// rebuildBackRefs derives ConsumedBy and ProducedBy from the forward
// lists. A node claimed as output by two processes violates the
// single-producer invariant.
func (g *Graph) rebuildBackRefs() error {
	for _, n := range g.nodes {
		n.ProducedBy = NoProducer
		n.ConsumedBy = nil
	}
	for i, p := range g.procs {
		h := Handle(i)
		for _, nh := range p.Outputs {
			n := g.nodes[nh]
			if n.ProducedBy != NoProducer && n.ProducedBy != h {
				return corruptf("node %q produced by both %q and %q",
					n.Name, g.procs[n.ProducedBy].Name, p.Name)
			}
			n.ProducedBy = h
		}
		for _, nh := range p.Inputs {
			n := g.nodes[nh]
			seen := false
			for _, c := range n.ConsumedBy {
				if c == h {
					seen = true
					break
				}
			}
			if !seen {
				n.ConsumedBy = append(n.ConsumedBy, h)
			}
		}
	}
	return nil
}

// checkAcyclic rejects a producer chain that loops back on itself:
// following output node to consuming process must never revisit a
// process.
func (g *Graph) checkAcyclic() error {
	const (
		unvisited = 0
		onStack   = 1
		finished  = 2
	)
	state := make([]int, len(g.procs))
	var visit func(h Handle) error
	visit = func(h Handle) error {
		switch state[h] {
		case onStack:
			return corruptf("cyclic producer chain through process %q", g.procs[h].Name)
		case finished:
			return nil
		}
		state[h] = onStack
		for _, nh := range g.procs[h].Outputs {
			for _, consumer := range g.nodes[nh].ConsumedBy {
				if err := visit(consumer); err != nil {
					return err
				}
			}
		}
		state[h] = finished
		return nil
	}
	for i := range g.procs {
		if err := visit(Handle(i)); err != nil {
			return err
		}
	}
	return nil
}
