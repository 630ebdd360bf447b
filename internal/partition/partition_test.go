package partition_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ardalan-sia/dta-sim/internal/agent"
	"github.com/ardalan-sia/dta-sim/internal/network"
	"github.com/ardalan-sia/dta-sim/internal/partition"
)

func TestAssignStripCoordinatesOrderedBalances(t *testing.T) {
	n := network.New()
	for _, id := range []string{"A", "B", "C", "D"} {
		n.AddNode(&network.Node{ID: id, X: 10, Y: 10})
	}
	partition.AssignStripCoordinatesOrdered(n, []string{"A", "B", "C", "D"}, 2)

	owners := partition.GlobalNodeMap(n)
	require.Equal(t, 0, owners["A"])
	require.Equal(t, 1, owners["B"])
	require.Equal(t, 0, owners["C"])
	require.Equal(t, 1, owners["D"])

	// geographic coordinates preserved
	a, err := n.Node("A")
	require.NoError(t, err)
	require.Equal(t, 10.0, a.XData)
	require.Equal(t, 10.0, a.YData)
}

func TestNeedsMigrationDetectsCrossPartitionMove(t *testing.T) {
	owner := map[string]int{"B": 0, "C": 1}
	p := partition.New(0, network.New(), owner)

	target, need := p.NeedsMigration("C")
	require.True(t, need)
	require.Equal(t, 1, target)

	_, need = p.NeedsMigration("B")
	require.False(t, need)
}

func TestInstallAndRemove(t *testing.T) {
	p := partition.New(1, network.New(), map[string]int{})
	a := agent.New("a1", 0, nil, 1)
	p.Install(a)
	require.Equal(t, 1, a.CurrentPartition)
	require.Len(t, p.LocalAgents(), 1)

	p.Remove("a1")
	require.Empty(t, p.LocalAgents())
}
