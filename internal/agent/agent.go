// Package agent holds per-traveller state: trip chain, current position on
// the network, strategy, and the timing counters the scheduler drives.
package agent

import (
	"github.com/ardalan-sia/dta-sim/internal/network"
	"github.com/ardalan-sia/dta-sim/internal/pathfind"
	"github.com/ardalan-sia/dta-sim/internal/strategy"
)

// Trip is a single origin-to-destination movement within an agent's chain.
type Trip struct {
	OriginNodeID      string
	DestinationNodeID string
	StartingTime      float64 // seconds since midnight
}

// Agent is one traveller progressing through a chain of trips.
type Agent struct {
	ID string

	// OwnerPartition is the partition this agent was created on;
	// CurrentPartition is where it currently lives. They diverge only
	// between a migration being flagged and applied.
	OwnerPartition   int
	CurrentPartition int

	Trips []Trip

	X, Y float64

	RemainingTime float64
	Strategy      strategy.Strategy

	// Path is stored in reverse traversal order: the next hop is
	// Path[len(Path)-1], so consuming a hop is an O(1) pop from the tail.
	Path []string

	EnRoute bool
	AtNode  bool
	CurLink string

	Size int // vehicle size; unused by dynamics, preserved for fidelity

	AccumulatedTheoreticalTime float64
	PathIndex                  int
	LinksTraversedInPath       int
}

// New constructs an agent at rest before its first trip, with
// RemainingTime set to the first trip's starting time (0 if there are no
// trips) and AtNode true (it has not yet departed).
func New(id string, partition int, trips []Trip, size int) *Agent {
	a := &Agent{
		ID:               id,
		OwnerPartition:   partition,
		CurrentPartition: partition,
		Trips:            trips,
		AtNode:           true,
		PathIndex:        1,
		Size:             size,
	}
	if len(trips) > 0 {
		a.RemainingTime = trips[0].StartingTime
	}
	return a
}

// CurrentTrip returns the trip currently being executed, or the zero Trip
// and false if the agent's chain is exhausted.
func (a *Agent) CurrentTrip() (Trip, bool) {
	if len(a.Trips) == 0 {
		return Trip{}, false
	}
	return a.Trips[0], true
}

// NextLink returns the next hop to take without consuming it.
func (a *Agent) NextLink() string {
	return a.Path[len(a.Path)-1]
}

// PopNextLink removes and returns the next hop, incrementing the
// links-traversed-in-current-path counter.
func (a *Agent) PopNextLink() string {
	link := a.Path[len(a.Path)-1]
	a.Path = a.Path[:len(a.Path)-1]
	a.LinksTraversedInPath++
	return link
}

// DecreaseRemainingTime lowers RemainingTime by dt, clamped to zero.
func (a *Agent) DecreaseRemainingTime(dt float64) {
	a.RemainingTime -= dt
	if a.RemainingTime < 0 {
		a.RemainingTime = 0
	}
}

// IncreaseAccumulatedTheoreticalTime adds dt to the free-flow time total
// accrued for the agent's current trip.
func (a *Agent) IncreaseAccumulatedTheoreticalTime(dt float64) {
	a.AccumulatedTheoreticalTime += dt
}

// IsRerouting evaluates the strategy predicate for the agent's current
// link and elapsed time. Per the strategy contract the predicate is only
// invoked (and can only return true) when the next link's saturation is
// strictly positive.
func (a *Agent) IsRerouting(net *network.Network, simulationTime float64) (bool, error) {
	if !a.Strategy.Active {
		return false, nil
	}

	var x1 float64
	if a.AccumulatedTheoreticalTime > 0 {
		trip, ok := a.CurrentTrip()
		if ok {
			x1 = (simulationTime - trip.StartingTime) / a.AccumulatedTheoreticalTime
		}
	}

	link, err := net.Link(a.CurLink)
	if err != nil {
		return false, err
	}
	x2 := link.Saturation()
	if x2 <= 0 {
		return false, nil
	}
	return a.Strategy.Evaluate(x1, x2), nil
}

// SetNextTrip advances the agent to its next trip: pops the completed trip,
// computes the initial path for the new one, repositions the agent to the
// new origin node, resets the theoretical-time accumulator, sets
// RemainingTime to max(nextDeparture-now, 0), and bumps the path-performed
// counter while resetting the links-in-path counter.
func (a *Agent) SetNextTrip(net *network.Network, now float64) error {
	a.Trips = a.Trips[1:]

	trip, ok := a.CurrentTrip()
	if !ok {
		return nil
	}

	path, err := pathfind.AStar(net, trip.OriginNodeID, trip.DestinationNodeID, pathfind.Fastest)
	if err != nil {
		return err
	}
	a.Path = path

	origin, err := net.Node(trip.OriginNodeID)
	if err != nil {
		return err
	}
	a.X, a.Y = origin.X, origin.Y

	a.EnRoute = false
	a.AtNode = true
	a.AccumulatedTheoreticalTime = 0

	remaining := trip.StartingTime - now
	if remaining < 0 {
		remaining = 0
	}
	a.RemainingTime = remaining

	a.PathIndex++
	a.LinksTraversedInPath = 0

	return nil
}
