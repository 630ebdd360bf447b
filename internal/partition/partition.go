// Package partition implements the spatial partitioner: a regular 1-D
// tiling of logical x-coordinates that maps each node, and transitively
// each agent, to an owning partition, plus the machinery to detect and
// apply cross-partition agent migration.
package partition

import (
	"github.com/ardalan-sia/dta-sim/internal/agent"
	"github.com/ardalan-sia/dta-sim/internal/network"
)

// AssignStripCoordinates gives every node a synthetic logical coordinate
// of (index mod numPartitions + 0.5, 0.5), balancing nodes across
// partitions deterministically and independent of geography. Each node's
// incoming (X, Y) is first copied into XData/YData for heuristic use. This
// mirrors Network::shuffleNodesCoordinates in the source model, which
// assigns (node_proc + 0.5, 0.5) while preserving the original (x, y) in
// (x_data, y_data).
func AssignStripCoordinates(net *network.Network, numPartitions int) {
	nodes := net.Nodes()
	// Iteration order over a Go map is randomized; callers that need a
	// deterministic assignment across runs should instead compute a
	// stable node ordering and call AssignStripCoordinatesOrdered below.
	// Deterministic mode is the common path, so this helper is kept as a
	// thin convenience wrapper.
	order := make([]string, 0, len(nodes))
	for id := range nodes {
		order = append(order, id)
	}
	AssignStripCoordinatesOrdered(net, order, numPartitions)
}

// AssignStripCoordinatesOrdered is AssignStripCoordinates but takes an
// explicit, caller-provided node ordering so the resulting partition
// assignment is reproducible across runs and process counts.
func AssignStripCoordinatesOrdered(net *network.Network, order []string, numPartitions int) {
	nodes := net.Nodes()
	for i, id := range order {
		node, ok := nodes[id]
		if !ok {
			continue
		}
		node.XData, node.YData = node.X, node.Y
		p := i % numPartitions
		node.X = float64(p) + 0.5
		node.Y = 0.5
	}
}

// OwnerOf returns the partition index owning node, given the strip width
// of 1.0 on the x-axis: partition p owns [p, p+1) x [0, 1).
func OwnerOf(x float64) int {
	if x < 0 {
		return 0
	}
	return int(x)
}

// GlobalNodeMap maps every node id in net to its owning partition, from the
// node's logical x coordinate. It covers every node, so no cross-partition
// reduction is applied to the result.
func GlobalNodeMap(net *network.Network) map[string]int {
	out := make(map[string]int)
	for id, node := range net.Nodes() {
		out[id] = OwnerOf(node.X)
	}
	return out
}

// Partitioner owns one partition's view of the simulation: its replica of
// the network, the agents it currently hosts, and the global node-to-
// partition map needed to detect migrations.
type Partitioner struct {
	ID          int
	Network     *network.Network
	NodeOwner   map[string]int // global, replicated
	localAgents map[string]*agent.Agent
}

// New returns a partitioner for partition id, holding net (already the
// per-partition replica) and the globally replicated node-owner map.
func New(id int, net *network.Network, nodeOwner map[string]int) *Partitioner {
	return &Partitioner{
		ID:          id,
		Network:     net,
		NodeOwner:   nodeOwner,
		localAgents: make(map[string]*agent.Agent),
	}
}

// Install adds a into this partition's local index and sets its current
// partition field.
func (p *Partitioner) Install(a *agent.Agent) {
	a.CurrentPartition = p.ID
	p.localAgents[a.ID] = a
}

// Remove drops a from this partition's local index (used when migrating
// out, or when an agent's trip chain completes).
func (p *Partitioner) Remove(id string) {
	delete(p.localAgents, id)
}

// LocalAgents returns every agent currently hosted on this partition.
func (p *Partitioner) LocalAgents() map[string]*agent.Agent {
	return p.localAgents
}

// Owns reports whether nodeID belongs to this partition.
func (p *Partitioner) Owns(nodeID string) bool {
	return p.NodeOwner[nodeID] == p.ID
}

// NeedsMigration reports whether a, currently positioned at nodeID,
// must be handed off to a different partition.
func (p *Partitioner) NeedsMigration(nodeID string) (target int, need bool) {
	owner, ok := p.NodeOwner[nodeID]
	if !ok || owner == p.ID {
		return 0, false
	}
	return owner, true
}
