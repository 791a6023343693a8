package pipeline

import "slices"

// AddInputEdge declares that the process at consumer reads the named node.
// An existing node of that name is reused; otherwise one is registered
// first. The declaration is idempotent: repeating it changes nothing.
func (g *Graph) AddInputEdge(name string, typ NodeType, consumer Handle) (Handle, error) {
	if _, ok := g.Process(consumer); !ok {
		return 0, notFoundf("consumer process handle %d", consumer)
	}
	nh := g.AddNode(name, typ)
	n := g.nodes[nh]
	if !slices.Contains(n.ConsumedBy, consumer) {
		n.ConsumedBy = append(n.ConsumedBy, consumer)
	}
	p := g.procs[consumer]
	if !slices.Contains(p.Inputs, nh) {
		p.Inputs = append(p.Inputs, nh)
	}
	return nh, nil
}

// AddOutputEdge declares that the process at producer wrote the named
// node. An existing node of that name is reused, but a node that already
// has a different producer is a consistency violation and is reported
// with ErrProducerConflict rather than silently reassigned.
func (g *Graph) AddOutputEdge(producer Handle, name string, typ NodeType) (Handle, error) {
	if _, ok := g.Process(producer); !ok {
		return 0, notFoundf("producer process handle %d", producer)
	}
	nh := g.AddNode(name, typ)
	n := g.nodes[nh]
	if n.ProducedBy != NoProducer && n.ProducedBy != producer {
		return 0, conflictf("node %q is already produced by %q",
			name, g.procs[n.ProducedBy].Name)
	}
	n.ProducedBy = producer
	p := g.procs[producer]
	if !slices.Contains(p.Outputs, nh) {
		p.Outputs = append(p.Outputs, nh)
	}
	return nh, nil
}
