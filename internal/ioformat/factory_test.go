package ioformat_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/ardalan-sia/dta-sim/internal/agent"
	"github.com/ardalan-sia/dta-sim/internal/ioformat"
	"github.com/ardalan-sia/dta-sim/internal/network"
	"github.com/ardalan-sia/dta-sim/internal/rng"
)

func buildLineNetwork(t *testing.T) *network.Network {
	t.Helper()
	net := network.New()
	net.AddNode(&network.Node{ID: "A", X: 0, Y: 0, XData: 0, YData: 0})
	net.AddNode(&network.Node{ID: "B", X: 10, Y: 0, XData: 10, YData: 0})
	require.NoError(t, net.AddLink(&network.Link{ID: "AB", StartNodeID: "A", EndNodeID: "B", Length: 10, FreeFlowTime: 5, Capacity: 20}))
	return net
}

func TestBuildAgentsSkipsForeignOrigins(t *testing.T) {
	net := buildLineNetwork(t)
	groups := []ioformat.TripGroup{
		{HouseholdID: "1", PersonID: "1", Trips: []agent.Trip{{OriginNodeID: "A", DestinationNodeID: "B", StartingTime: 0}}},
		{HouseholdID: "2", PersonID: "1", Trips: []agent.Trip{{OriginNodeID: "B", DestinationNodeID: "A", StartingTime: 0}}},
	}
	ownsNode := func(id string) bool { return id == "A" }

	agents, err := ioformat.BuildAgents(groups, net, 0, ownsNode, nil, 0, rng.New(1), zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, agents, 1)
	require.Equal(t, "1-1", agents[0].ID)
	require.Equal(t, []string{"AB"}, agents[0].Path)
}

func TestBuildAgentsAssignsStrategyWhenProbabilityOne(t *testing.T) {
	net := buildLineNetwork(t)
	groups := []ioformat.TripGroup{
		{HouseholdID: "1", PersonID: "1", Trips: []agent.Trip{{OriginNodeID: "A", DestinationNodeID: "B", StartingTime: 0}}},
	}
	ownsNode := func(string) bool { return true }
	candidates := []ioformat.StrategyCandidate{{Alpha: 0.5, Theta: 1.0}}

	agents, err := ioformat.BuildAgents(groups, net, 0, ownsNode, candidates, 1.0, rng.New(1), zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, agents, 1)
	require.True(t, agents[0].Strategy.Active)
}

func TestBuildAgentsInertWhenProbabilityZero(t *testing.T) {
	net := buildLineNetwork(t)
	groups := []ioformat.TripGroup{
		{HouseholdID: "1", PersonID: "1", Trips: []agent.Trip{{OriginNodeID: "A", DestinationNodeID: "B", StartingTime: 0}}},
	}
	ownsNode := func(string) bool { return true }
	candidates := []ioformat.StrategyCandidate{{Alpha: 0.5, Theta: 1.0}}

	agents, err := ioformat.BuildAgents(groups, net, 0, ownsNode, candidates, 0.0, rng.New(1), zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, agents, 1)
	require.False(t, agents[0].Strategy.Active)
}

func TestBuildAgentsDropsGroupOnTopologyError(t *testing.T) {
	net := buildLineNetwork(t)
	groups := []ioformat.TripGroup{
		{HouseholdID: "1", PersonID: "1", Trips: []agent.Trip{{OriginNodeID: "A", DestinationNodeID: "B", StartingTime: 0}}},
		{HouseholdID: "2", PersonID: "1", Trips: []agent.Trip{{OriginNodeID: "A", DestinationNodeID: "Z", StartingTime: 0}}},
	}
	ownsNode := func(string) bool { return true }

	agents, err := ioformat.BuildAgents(groups, net, 0, ownsNode, nil, 0, rng.New(1), zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, agents, 1)
	require.Equal(t, "1-1", agents[0].ID)
}
