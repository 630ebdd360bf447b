// Package scheduler implements the per-tick Step Engine: the agent state
// machine that drives departures, link traversal, rerouting and trip
// completion for one partition's local agents.
package scheduler

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/ardalan-sia/dta-sim/internal/agent"
	"github.com/ardalan-sia/dta-sim/internal/aggregate"
	"github.com/ardalan-sia/dta-sim/internal/network"
	"github.com/ardalan-sia/dta-sim/internal/output"
	"github.com/ardalan-sia/dta-sim/internal/partition"
	"github.com/ardalan-sia/dta-sim/internal/pathfind"
)

// Migration describes an agent that has crossed into another partition's
// territory and must be handed off at the end of the tick.
type Migration struct {
	AgentID         string
	TargetPartition int
}

// Engine drives one partition's Step Engine: the agent state machine, link
// occupancy updates, move-record emission and migration detection. It holds
// no cross-partition state — the driver is responsible for applying
// Migrations and running the collective operations at tick boundaries.
type Engine struct {
	Net         *network.Network
	Partitioner *partition.Partitioner
	Tracker     *aggregate.Tracker
	Moves       *output.MoveWriter

	TimeTolerance          float64
	RecordIntervalSnapshot int // minutes

	Time float64

	Log zerolog.Logger
}

// New returns a Step Engine for one partition. Logging defaults to a no-op
// logger; callers that want structured tick events should set e.Log.
func New(net *network.Network, p *partition.Partitioner, tracker *aggregate.Tracker,
	moves *output.MoveWriter, timeTolerance float64, recordIntervalSnapshot int) *Engine {
	return &Engine{
		Net:                    net,
		Partitioner:            p,
		Tracker:                tracker,
		Moves:                  moves,
		TimeTolerance:          timeTolerance,
		RecordIntervalSnapshot: recordIntervalSnapshot,
		Log:                    zerolog.Nop(),
	}
}

// Step advances the simulation by dt seconds: decrements every local
// agent's remaining time, fires state transitions for agents whose
// remaining time has fallen to the tolerance, records flows and moves, and
// returns the set of agents that must migrate to another partition this
// tick. The caller owns applying migrations (removing the agent locally,
// handing it to the target partition) between ticks, per the all-to-all
// suspension point.
func (e *Engine) Step(dt float64) ([]Migration, error) {
	e.Time += dt

	var migrations []Migration
	var toRemove []string

	for _, a := range e.orderedLocalAgents() {
		a.DecreaseRemainingTime(dt)
		migrated, done, err := e.fireIfDue(a)
		if err != nil {
			return nil, err
		}
		if migrated != nil {
			migrations = append(migrations, *migrated)
		}
		if done {
			toRemove = append(toRemove, a.ID)
		}
	}

	for _, id := range toRemove {
		e.Partitioner.Remove(id)
	}

	if aggregate.IsSnapshotTick(e.Time, e.RecordIntervalSnapshot) {
		for _, a := range e.Partitioner.LocalAgents() {
			if a.EnRoute {
				e.Tracker.RecordLinkSnapshot(a.CurLink, e.Time)
			}
		}
	}

	e.Tracker.Counters.SetAgents(len(e.Partitioner.LocalAgents()))
	return migrations, nil
}

// orderedLocalAgents returns local agents sorted by id, giving the tick an
// arbitrary but stable visiting order (map iteration order is not stable).
func (e *Engine) orderedLocalAgents() []*agent.Agent {
	local := e.Partitioner.LocalAgents()
	out := make([]*agent.Agent, 0, len(local))
	for _, a := range local {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// fireIfDue runs one agent's transition for the current tick, once its
// remaining time has fallen to the tolerance. It returns a non-nil
// migration if the agent left this partition's territory, and done=true if
// the agent's entire trip chain completed and it should be removed from
// the simulation.
func (e *Engine) fireIfDue(a *agent.Agent) (*Migration, bool, error) {
	if a.RemainingTime > e.TimeTolerance {
		return nil, false, nil
	}

	if a.AtNode {
		return e.departFromNode(a)
	}
	return e.arriveAtNextNode(a)
}

// departFromNode handles an agent sitting at a node whose remaining time
// has elapsed: it departs onto its next planned link, possibly rerouting
// first.
func (e *Engine) departFromNode(a *agent.Agent) (*Migration, bool, error) {
	if !a.EnRoute {
		a.EnRoute = true
		e.Tracker.Counters.IncrementMoving()
		e.Tracker.RecordTripStart(e.Time)
	}

	a.AtNode = false
	nextLink := a.PopNextLink()
	a.CurLink = nextLink

	if a.Strategy.Active {
		rerouting, err := a.IsRerouting(e.Net, e.Time)
		if err != nil {
			return nil, false, err
		}
		if rerouting {
			e.Tracker.Counters.IncrementReroutes()
			newLink, err := e.reroute(a, nextLink)
			if err != nil {
				return nil, false, err
			}
			if newLink != "" {
				nextLink = newLink
				a.CurLink = nextLink
			}
		}
	}

	link, err := e.Net.Link(nextLink)
	if err != nil {
		return nil, false, err
	}

	a.IncreaseAccumulatedTheoreticalTime(link.FreeFlowTime)
	a.RemainingTime = link.TimeOnLink()
	if err := e.Net.IncrementAgentOnLink(nextLink); err != nil {
		return nil, false, err
	}

	e.Tracker.RecordLinkFlow(nextLink, e.Time)

	e.Log.Debug().Str("agent_id", a.ID).Str("link_id", nextLink).Float64("tick", e.Time).Msg("agent departed onto link")

	if e.Moves != nil {
		if err := e.Moves.Write(output.MoveRecord{
			AgentID:          a.ID,
			LinkID:           nextLink,
			TimeEnteringLink: e.Time,
			TimeOnLink:       a.RemainingTime,
			PathIndex:        a.PathIndex,
			LinkIndexInPath:  a.LinksTraversedInPath,
		}); err != nil {
			return nil, false, err
		}
	}

	return nil, false, nil
}

// reroute recomputes a's path avoiding nextLink, when the current node has
// more than one outgoing link (otherwise there is nowhere else to go), and
// returns the new first hop.
func (e *Engine) reroute(a *agent.Agent, nextLink string) (string, error) {
	link, err := e.Net.Link(nextLink)
	if err != nil {
		return "", err
	}
	curNode, err := e.Net.Node(link.StartNodeID)
	if err != nil {
		return "", err
	}
	if len(curNode.LinksOut) <= 1 {
		return "", nil
	}

	trip, ok := a.CurrentTrip()
	if !ok {
		return "", nil
	}

	newPath, err := pathfind.DijkstraAvoiding(e.Net, curNode.ID, trip.DestinationNodeID, nextLink, pathfind.Fastest)
	if err != nil {
		return "", err
	}
	a.Path = newPath
	next := a.PopNextLink()
	e.Log.Debug().Str("agent_id", a.ID).Str("link_id", next).Str("avoided_link_id", nextLink).Msg("agent rerouted")
	return next, nil
}

// arriveAtNextNode handles an agent that has been travelling on a link and
// whose remaining time has elapsed: it either moves to the link's end node
// (continuing the trip) or, if the path is exhausted, completes the trip.
func (e *Engine) arriveAtNextNode(a *agent.Agent) (*Migration, bool, error) {
	if len(a.Path) > 0 {
		return e.advanceToNextNode(a)
	}
	return e.completeTrip(a)
}

func (e *Engine) advanceToNextNode(a *agent.Agent) (*Migration, bool, error) {
	if err := e.Net.DecrementAgentOnLink(a.CurLink); err != nil {
		return nil, false, err
	}

	link, err := e.Net.Link(a.CurLink)
	if err != nil {
		return nil, false, err
	}
	newNode, err := e.Net.Node(link.EndNodeID)
	if err != nil {
		return nil, false, err
	}

	a.X, a.Y = newNode.X, newNode.Y
	a.AtNode = true

	if !e.Partitioner.Owns(newNode.ID) {
		target, need := e.Partitioner.NeedsMigration(newNode.ID)
		if need {
			return &Migration{AgentID: a.ID, TargetPartition: target}, false, nil
		}
	}
	return nil, false, nil
}

func (e *Engine) completeTrip(a *agent.Agent) (*Migration, bool, error) {
	trip, ok := a.CurrentTrip()
	if !ok {
		return nil, true, nil
	}

	simDuration := e.Time - trip.StartingTime
	e.Tracker.RecordFitness(a.ID, a.AccumulatedTheoreticalTime, simDuration)
	e.Tracker.Counters.IncrementTrips()
	e.Tracker.Counters.DecrementMoving()

	if err := e.Net.DecrementAgentOnLink(a.CurLink); err != nil {
		return nil, false, err
	}

	e.Log.Debug().Str("agent_id", a.ID).Float64("tick", e.Time).Msg("agent completed trip")

	if len(a.Trips) > 1 {
		if err := a.SetNextTrip(e.Net, e.Time); err != nil {
			return nil, false, err
		}
		newTrip, ok := a.CurrentTrip()
		if ok && !e.Partitioner.Owns(newTrip.OriginNodeID) {
			target, need := e.Partitioner.NeedsMigration(newTrip.OriginNodeID)
			if need {
				return &Migration{AgentID: a.ID, TargetPartition: target}, false, nil
			}
		}
		return nil, false, nil
	}

	return nil, true, nil
}
