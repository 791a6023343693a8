package pipeline

// Handle is the positional identifier of a node or process within its
// arena. Handles are stable until the next structural deletion, which
// renumbers them; never hold a Handle across DeleteProcess.
type Handle int

// NoProducer marks a node that was imported from outside the pipeline
// rather than produced by one of its processes.
const NoProducer Handle = -1

// Node is a named data artifact. Name doubles as the artifact's path
// relative to the pipeline's job directory.
type Node struct {
	Name       string
	Type       NodeType
	ProducedBy Handle   // producing process, or NoProducer
	ConsumedBy []Handle // consuming processes, insertion order, no duplicates
}

// Process is a job that turns input nodes into output nodes.
type Process struct {
	Name    string
	Type    ProcessType
	Status  Status
	Inputs  []Handle
	Outputs []Handle
}

// Graph is the aggregate owning both arenas. The zero value is not usable;
// construct with New.
type Graph struct {
	name  string
	nodes []*Node
	procs []*Process
}

// New returns an empty graph with the default display name.
func New() *Graph {
	return &Graph{name: "default"}
}

// Name returns the graph's display name.
func (g *Graph) Name() string { return g.name }

// SetName sets the graph's display name.
func (g *Graph) SetName(name string) { g.name = name }

// NodeCount returns the number of live nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// ProcessCount returns the number of live processes.
func (g *Graph) ProcessCount() int { return len(g.procs) }

// Node returns the node at h, or false if h is out of range. The returned
// pointer aliases graph state; treat it as read-only.
func (g *Graph) Node(h Handle) (*Node, bool) {
	if h < 0 || int(h) >= len(g.nodes) {
		return nil, false
	}
	return g.nodes[h], true
}

// Process returns the process at h, or false if h is out of range. The
// returned pointer aliases graph state; treat it as read-only.
func (g *Graph) Process(h Handle) (*Process, bool) {
	if h < 0 || int(h) >= len(g.procs) {
		return nil, false
	}
	return g.procs[h], true
}

// Nodes returns a live, read-only view of the node arena, indexed by handle.
func (g *Graph) Nodes() []*Node { return g.nodes }

// Processes returns a live, read-only view of the process arena, indexed
// by handle.
func (g *Graph) Processes() []*Process { return g.procs }

// NodeNames returns the names of all live nodes, in handle order.
func (g *Graph) NodeNames() []string {
	names := make([]string, len(g.nodes))
	for i, n := range g.nodes {
		names[i] = n.Name
	}
	return names
}
