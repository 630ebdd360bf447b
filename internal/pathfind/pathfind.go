// Package pathfind implements Dijkstra and A* shortest-path queries over a
// network.Network, plus a link-avoiding variant used for rerouting. Every
// entry point returns the path as a sequence of link ids in reverse
// traversal order: the next hop to take is the last element, so consuming
// a hop is an O(1) pop from the tail. This mirrors the source's own
// "path stored reversed" convention and must be preserved by callers.
package pathfind

import (
	"math"

	"github.com/ardalan-sia/dta-sim/internal/network"
	"github.com/ardalan-sia/dta-sim/internal/pqueue"
	"github.com/ardalan-sia/dta-sim/internal/simerr"
)

// Mode selects the edge-weight function.
type Mode int

const (
	// Fastest weighs edges by free-flow travel time.
	Fastest Mode = iota
	// Shortest weighs edges by physical length.
	Shortest
)

func edgeWeight(link *network.Link, mode Mode) float64 {
	if mode == Fastest {
		return link.FreeFlowTime
	}
	return link.Length
}

// Dijkstra returns the minimum-cost path from source to dest under mode.
// Ties between outgoing links of equal cost are broken by their order in
// the node's outgoing-link list (the order edges were relaxed in).
func Dijkstra(net *network.Network, source, dest string, mode Mode) ([]string, error) {
	nodes := net.Nodes()
	links := net.Links()

	if _, ok := nodes[source]; !ok {
		return nil, simerr.Wrapf(simerr.ErrTopology, "unknown source node %s", source)
	}
	if _, ok := nodes[dest]; !ok {
		return nil, simerr.Wrapf(simerr.ErrTopology, "unknown dest node %s", dest)
	}

	q := pqueue.New()
	handles := make(map[string]pqueue.Handle, len(nodes))
	dist := make(map[string]float64, len(nodes))
	prec := make(map[string]string) // node id -> link id taken to reach it
	visited := make(map[string]bool, len(nodes))

	for id := range nodes {
		key := math.MaxFloat64
		if id == source {
			key = 0
		}
		handles[id] = q.Insert(id, key)
		dist[id] = key
	}

	cur := source
	for cur != dest {
		if q.Empty() {
			return nil, simerr.Wrapf(simerr.ErrNoPath, "no path from %s to %s", source, dest)
		}
		var d float64
		cur, d = q.ExtractMin()
		if visited[cur] {
			// Defensive only: every node is inserted once and DecreaseKey
			// updates its entry in place, so a settled node is not extracted again.
			continue
		}
		visited[cur] = true

		node := nodes[cur]
		for _, linkID := range node.LinksOut {
			link := links[linkID]
			if visited[link.EndNodeID] {
				continue
			}
			w := d + edgeWeight(link, mode)
			if w < dist[link.EndNodeID] {
				dist[link.EndNodeID] = w
				prec[link.EndNodeID] = linkID
				q.DecreaseKey(handles[link.EndNodeID], w)
			}
		}
	}

	return reconstruct(links, prec, source, dest)
}

// AStar returns the minimum-cost path from source to dest under mode,
// guided by the Manhattan distance on the preserved geographic
// (XData, YData) coordinates. The heuristic is admissible whenever those
// coordinates and the chosen cost metric share a consistent lower bound;
// for the fastest mode this requires link speeds to be bounded below, a
// modelling assumption carried unchanged from the source. Returns an
// empty path iff source == dest.
func AStar(net *network.Network, source, dest string, mode Mode) ([]string, error) {
	nodes := net.Nodes()
	links := net.Links()

	if _, ok := nodes[source]; !ok {
		return nil, simerr.Wrapf(simerr.ErrTopology, "unknown source node %s", source)
	}
	if _, ok := nodes[dest]; !ok {
		return nil, simerr.Wrapf(simerr.ErrTopology, "unknown dest node %s", dest)
	}
	if source == dest {
		return nil, nil
	}

	heuristic := func(id string) float64 {
		a, b := nodes[id], nodes[dest]
		return math.Abs(b.XData-a.XData) + math.Abs(b.YData-a.YData)
	}

	open := pqueue.New()
	handles := make(map[string]pqueue.Handle)
	closed := make(map[string]bool)
	gScore := make(map[string]float64)
	prec := make(map[string]string)

	gScore[source] = 0
	handles[source] = open.Insert(source, heuristic(source))

	cur := source
	for cur != dest {
		if open.Empty() {
			return nil, simerr.Wrapf(simerr.ErrNoPath, "no path from %s to %s", source, dest)
		}
		cur, _ = open.ExtractMin()
		if closed[cur] {
			continue
		}
		closed[cur] = true
		d := gScore[cur]

		node := nodes[cur]
		for _, linkID := range node.LinksOut {
			link := links[linkID]
			id := link.EndNodeID
			if closed[id] {
				continue
			}
			w := d + edgeWeight(link, mode)
			if existing, seen := gScore[id]; !seen || w < existing {
				prec[id] = linkID
				gScore[id] = w
				f := w + heuristic(id)
				if h, ok := handles[id]; ok {
					open.DecreaseKey(h, f)
				} else {
					handles[id] = open.Insert(id, f)
				}
			}
		}
	}

	return reconstruct(links, prec, source, dest)
}

// DijkstraAvoiding computes the fastest/shortest path from source to dest
// using A*, having temporarily set linkToAvoid's cost to a sentinel of
// MaxFloat64/2 so the search strongly prefers alternatives. The original
// cost is restored on every exit path, including pathfinder failure.
func DijkstraAvoiding(net *network.Network, source, dest, linkToAvoid string, mode Mode) ([]string, error) {
	var result []string
	err := net.WithCostOverride(linkToAvoid, mode == Fastest, func() error {
		path, err := AStar(net, source, dest, mode)
		if err != nil {
			return err
		}
		result = path
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// reconstruct walks prec backwards from dest to source, building the path
// in reverse traversal order (next hop last).
func reconstruct(links map[string]*network.Link, prec map[string]string, source, dest string) ([]string, error) {
	if source == dest {
		return nil, nil
	}
	var result []string
	cur := dest
	for cur != source {
		linkID, ok := prec[cur]
		if !ok {
			return nil, simerr.Wrapf(simerr.ErrNoPath, "no path from %s to %s", source, dest)
		}
		result = append(result, linkID)
		cur = links[linkID].StartNodeID
	}
	return result, nil
}
