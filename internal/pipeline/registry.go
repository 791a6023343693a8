package pipeline

// FindNodeByName returns the handle of the node with the given name.
func (g *Graph) FindNodeByName(name string) (Handle, bool) {
	for i, n := range g.nodes {
		if n.Name == name {
			return Handle(i), true
		}
	}
	return 0, false
}

// FindProcessByName returns the handle of the process with the given name.
func (g *Graph) FindProcessByName(name string) (Handle, bool) {
	for i, p := range g.procs {
		if p.Name == name {
			return Handle(i), true
		}
	}
	return 0, false
}

// AddNode returns the handle of the node with the given name, allocating a
// new entry only when no node of that name exists. This is the single
// dedup chokepoint: both edge declarations create nodes through it, which
// is what keeps node names unique.
func (g *Graph) AddNode(name string, typ NodeType) Handle {
	if h, ok := g.FindNodeByName(name); ok {
		return h
	}
	g.nodes = append(g.nodes, &Node{
		Name:       name,
		Type:       typ,
		ProducedBy: NoProducer,
	})
	return Handle(len(g.nodes) - 1)
}

// AddProcess registers a new process. A name collision is rejected with
// ErrDuplicateName unless overwrite is set, in which case the existing
// entry keeps its handle but its type and status are replaced and its
// edges are detached, ready to be redeclared.
func (g *Graph) AddProcess(name string, typ ProcessType, status Status, overwrite bool) (Handle, error) {
	if h, ok := g.FindProcessByName(name); ok {
		if !overwrite {
			return 0, duplicatef("process %q already exists", name)
		}
		g.detachProcess(h)
		p := g.procs[h]
		p.Type = typ
		p.Status = status
		return h, nil
	}
	g.procs = append(g.procs, &Process{
		Name:   name,
		Type:   typ,
		Status: status,
	})
	return Handle(len(g.procs) - 1), nil
}

// detachProcess removes every edge touching the process at h, leaving the
// process itself in place. Output nodes lose their producer; input nodes
// forget the process as a consumer.
func (g *Graph) detachProcess(h Handle) {
	p := g.procs[h]
	for _, nh := range p.Outputs {
		if n, ok := g.Node(nh); ok && n.ProducedBy == h {
			n.ProducedBy = NoProducer
		}
	}
	for _, nh := range p.Inputs {
		n, ok := g.Node(nh)
		if !ok {
			continue
		}
		kept := n.ConsumedBy[:0]
		for _, c := range n.ConsumedBy {
			if c != h {
				kept = append(kept, c)
			}
		}
		n.ConsumedBy = kept
	}
	p.Inputs = nil
	p.Outputs = nil
}
