package pipeline

import (
	"context"

	"github.com/vk/starpipe/internal/ctxlog"
)

// DeleteProcess removes the process at h together with its output nodes.
// With cascade set, every process consuming one of those nodes is deleted
// recursively as well. Without cascade, consumers survive; their Inputs
// simply stop referencing the removed nodes.
//
// Removal and handle repair happen in one compaction pass over the whole
// graph, so every surviving reference is renumbered consistently. Deleting
// an unknown handle is a no-op reported as ErrNotFound. A cascade that
// reaches an out-of-range consumer logs the skip and carries on; cascades
// never fail outright.
func (g *Graph) DeleteProcess(ctx context.Context, h Handle, cascade bool) error {
	if _, ok := g.Process(h); !ok {
		return notFoundf("process handle %d", h)
	}

	doomedProcs := make(map[Handle]bool)
	doomedNodes := make(map[Handle]bool)
	g.markDoomed(ctx, h, cascade, doomedProcs, doomedNodes)
	g.compact(doomedProcs, doomedNodes)
	return nil
}

// markDoomed collects the processes and nodes to remove, depth-first. A
// process dooms all of its output nodes; with cascade, each doomed node
// dooms its consumers in turn.
func (g *Graph) markDoomed(ctx context.Context, h Handle, cascade bool, doomedProcs, doomedNodes map[Handle]bool) {
	if doomedProcs[h] {
		return
	}
	doomedProcs[h] = true
	for _, nh := range g.procs[h].Outputs {
		node, ok := g.Node(nh)
		if !ok || doomedNodes[nh] {
			continue
		}
		doomedNodes[nh] = true
		if !cascade {
			continue
		}
		for _, consumer := range node.ConsumedBy {
			if _, ok := g.Process(consumer); !ok {
				ctxlog.FromContext(ctx).Warn("skipping unreachable cascade target",
					"node", node.Name, "consumer_handle", int(consumer))
				continue
			}
			g.markDoomed(ctx, consumer, cascade, doomedProcs, doomedNodes)
		}
	}
}

// compact rebuilds both arenas without the doomed entries and rewrites
// every stored handle through a single old-to-new remap. References to
// doomed entries are dropped wherever they appear, which is also what
// silently repairs the inputs of surviving consumers after a
// non-cascading delete.
func (g *Graph) compact(doomedProcs, doomedNodes map[Handle]bool) {
	const gone = Handle(-1)

	nodeRemap := make([]Handle, len(g.nodes))
	keptNodes := make([]*Node, 0, len(g.nodes)-len(doomedNodes))
	for i, n := range g.nodes {
		if doomedNodes[Handle(i)] {
			nodeRemap[i] = gone
			continue
		}
		nodeRemap[i] = Handle(len(keptNodes))
		keptNodes = append(keptNodes, n)
	}

	procRemap := make([]Handle, len(g.procs))
	keptProcs := make([]*Process, 0, len(g.procs)-len(doomedProcs))
	for i, p := range g.procs {
		if doomedProcs[Handle(i)] {
			procRemap[i] = gone
			continue
		}
		procRemap[i] = Handle(len(keptProcs))
		keptProcs = append(keptProcs, p)
	}

	mapHandles := func(hs []Handle, remap []Handle) []Handle {
		out := hs[:0]
		for _, h := range hs {
			if int(h) < len(remap) && remap[h] != gone {
				out = append(out, remap[h])
			}
		}
		return out
	}

	for _, n := range keptNodes {
		if n.ProducedBy != NoProducer && procRemap[n.ProducedBy] != gone {
			n.ProducedBy = procRemap[n.ProducedBy]
		} else {
			n.ProducedBy = NoProducer
		}
		n.ConsumedBy = mapHandles(n.ConsumedBy, procRemap)
	}
	for _, p := range keptProcs {
		p.Inputs = mapHandles(p.Inputs, nodeRemap)
		p.Outputs = mapHandles(p.Outputs, nodeRemap)
	}

	g.nodes = keptNodes
	g.procs = keptProcs
}
