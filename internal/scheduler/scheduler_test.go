package scheduler_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ardalan-sia/dta-sim/internal/agent"
	"github.com/ardalan-sia/dta-sim/internal/aggregate"
	"github.com/ardalan-sia/dta-sim/internal/network"
	"github.com/ardalan-sia/dta-sim/internal/partition"
	"github.com/ardalan-sia/dta-sim/internal/pathfind"
	"github.com/ardalan-sia/dta-sim/internal/scheduler"
)

// buildLine builds A -> B -> C, each link 10s free-flow time, capacity 10.
func buildLine(t *testing.T) *network.Network {
	t.Helper()
	net := network.New()
	net.AddNode(&network.Node{ID: "A", X: 0, Y: 0, XData: 0, YData: 0})
	net.AddNode(&network.Node{ID: "B", X: 0, Y: 0, XData: 1, YData: 0})
	net.AddNode(&network.Node{ID: "C", X: 0, Y: 0, XData: 2, YData: 0})
	require.NoError(t, net.AddLink(&network.Link{ID: "AB", StartNodeID: "A", EndNodeID: "B", Length: 10, FreeFlowTime: 10, Capacity: 10}))
	require.NoError(t, net.AddLink(&network.Link{ID: "BC", StartNodeID: "B", EndNodeID: "C", Length: 10, FreeFlowTime: 10, Capacity: 10}))
	return net
}

func allOwned(string) bool { return true }

func newSinglePartitionEngine(t *testing.T, net *network.Network) (*scheduler.Engine, *partition.Partitioner, *aggregate.Tracker) {
	t.Helper()
	nodeOwner := map[string]int{"A": 0, "B": 0, "C": 0}
	p := partition.New(0, net, nodeOwner)
	tracker := aggregate.New(24, 96)
	e := scheduler.New(net, p, tracker, nil, 0.5, 15)
	return e, p, tracker
}

func TestStepDepartsAgentWaitingAtNode(t *testing.T) {
	net := buildLine(t)
	e, p, tracker := newSinglePartitionEngine(t, net)

	a := agent.New("agent-1", 0, []agent.Trip{{OriginNodeID: "A", DestinationNodeID: "C", StartingTime: 0}}, 1)
	path, err := pathfind.AStar(net, "A", "C", pathfind.Fastest)
	require.NoError(t, err)
	a.Path = path
	p.Install(a)

	_, err = e.Step(1.0)
	require.NoError(t, err)

	require.False(t, a.AtNode)
	require.True(t, a.EnRoute)
	require.Equal(t, "AB", a.CurLink)
	require.Equal(t, 1, tracker.Counters.TotalMovingAgents)
	require.Len(t, tracker.TripStartTimes, 1)

	link, err := net.Link("AB")
	require.NoError(t, err)
	require.Equal(t, 1, link.Occupancy())
}

func TestStepAdvancesThroughFullTripAndCompletes(t *testing.T) {
	net := buildLine(t)
	e, p, tracker := newSinglePartitionEngine(t, net)

	a := agent.New("agent-1", 0, []agent.Trip{{OriginNodeID: "A", DestinationNodeID: "C", StartingTime: 0}}, 1)
	path, err := pathfind.AStar(net, "A", "C", pathfind.Fastest)
	require.NoError(t, err)
	a.Path = path
	p.Install(a)

	// Tick 1: depart onto AB (takes 10s at zero occupancy before increment).
	_, err = e.Step(1.0)
	require.NoError(t, err)

	// Advance through AB until the agent reaches node B.
	for i := 0; i < 20 && !p.LocalAgents()["agent-1"].AtNode; i++ {
		_, err = e.Step(1.0)
		require.NoError(t, err)
	}
	require.True(t, p.LocalAgents()["agent-1"].AtNode)
	require.Equal(t, "B", func() string {
		link, _ := net.Link("AB")
		node, _ := net.Node(link.EndNodeID)
		return node.ID
	}())

	// Continue until the agent completes BC and is removed.
	for i := 0; i < 40; i++ {
		if _, ok := p.LocalAgents()["agent-1"]; !ok {
			break
		}
		_, err = e.Step(1.0)
		require.NoError(t, err)
	}

	_, stillThere := p.LocalAgents()["agent-1"]
	require.False(t, stillThere)
	require.Equal(t, 1, tracker.Counters.TotalTripsPerformed)
	require.Contains(t, tracker.AgentFitness, "agent-1")
}

func TestStepFlagsMigrationWhenAgentCrossesPartition(t *testing.T) {
	net := buildLine(t)
	nodeOwner := map[string]int{"A": 0, "B": 1, "C": 1}
	p := partition.New(0, net, nodeOwner)
	tracker := aggregate.New(24, 96)
	e := scheduler.New(net, p, tracker, nil, 0.5, 15)

	a := agent.New("agent-1", 0, []agent.Trip{{OriginNodeID: "A", DestinationNodeID: "C", StartingTime: 0}}, 1)
	path, err := pathfind.AStar(net, "A", "C", pathfind.Fastest)
	require.NoError(t, err)
	a.Path = path
	p.Install(a)

	var migrations []scheduler.Migration
	for i := 0; i < 20; i++ {
		m, err := e.Step(1.0)
		require.NoError(t, err)
		migrations = append(migrations, m...)
		if len(m) > 0 {
			break
		}
	}
	require.NotEmpty(t, migrations)
	require.Equal(t, 1, migrations[0].TargetPartition)
}
