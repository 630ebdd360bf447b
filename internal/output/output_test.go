package output_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ardalan-sia/dta-sim/internal/network"
	"github.com/ardalan-sia/dta-sim/internal/output"
	"github.com/ardalan-sia/dta-sim/internal/transport"
)

func buildNetwork(t *testing.T) *network.Network {
	t.Helper()
	net := network.New()
	net.AddNode(&network.Node{ID: "A"})
	net.AddNode(&network.Node{ID: "B"})
	require.NoError(t, net.AddLink(&network.Link{ID: "AB", StartNodeID: "A", EndNodeID: "B", Capacity: 10}))
	return net
}

func TestWriteSimOut(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, output.WriteSimOut(dir, []output.SimOutRow{
		{TotalAgents: 5, TotalMovingAgents: 3, TotalTripsPerformed: 1, TotalReroutings: 0},
		{TotalAgents: 5, TotalMovingAgents: 2, TotalTripsPerformed: 2, TotalReroutings: 1},
	}))

	data, err := os.ReadFile(filepath.Join(dir, "sim_out.csv"))
	require.NoError(t, err)
	require.Contains(t, string(data), "total_agents;total_moving_agents;total_trips_performed;total_reroutings")
	require.Contains(t, string(data), "5;3;1;0")
}

func TestWriteLinkHistogramsSingleRank(t *testing.T) {
	net := buildNetwork(t)
	dir := t.TempDir()
	barrier := transport.NewBarrier(1)
	histogram := output.LinkHistogram{"AB": {2, 4, 0}}

	flowPath := filepath.Join(dir, "links_flows.csv")
	satPath := filepath.Join(dir, "links_saturation.csv")
	require.NoError(t, output.WriteLinkHistograms(flowPath, satPath, 0, 1, barrier, histogram, net, 3))

	flowData, err := os.ReadFile(flowPath)
	require.NoError(t, err)
	require.Contains(t, string(flowData), "LINK;t_0;t_1;t_2")
	require.Contains(t, string(flowData), "AB;2;4;0")

	satData, err := os.ReadFile(satPath)
	require.NoError(t, err)
	require.Contains(t, string(satData), "AB;0.2;0.4;0")
}

func TestWriteStartingTimesSortsAscending(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, output.WriteStartingTimes(dir, []float64{30, 5, 17}))

	data, err := os.ReadFile(filepath.Join(dir, "starting_times.csv"))
	require.NoError(t, err)
	content := string(data)
	require.Less(t, indexOf(content, "5"), indexOf(content, "17"))
	require.Less(t, indexOf(content, "17"), indexOf(content, "30"))
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func TestWriteAgentsFitnessSingleRank(t *testing.T) {
	dir := t.TempDir()
	barrier := transport.NewBarrier(1)
	require.NoError(t, output.WriteAgentsFitness(dir, 0, 1, barrier, map[string]float64{
		"agent-1": 1.5,
		"agent-2": 0.75,
	}))

	data, err := os.ReadFile(filepath.Join(dir, "agents_fitness.csv"))
	require.NoError(t, err)
	require.Contains(t, string(data), "AGENT ID;FITNESS")
	require.Contains(t, string(data), "agent-1;1.5")
	require.Contains(t, string(data), "agent-2;0.75")
}

func TestMoveWriterAppendsRecords(t *testing.T) {
	dir := t.TempDir()
	mw, err := output.NewMoveWriter(dir, 0)
	require.NoError(t, err)

	require.NoError(t, mw.Write(output.MoveRecord{
		AgentID:          "agent-1",
		LinkID:           "AB",
		TimeEnteringLink: 100,
		TimeOnLink:       11.5,
		PathIndex:        1,
		LinkIndexInPath:  0,
	}))
	require.NoError(t, mw.Close())

	data, err := os.ReadFile(filepath.Join(dir, "moves_proc_0.csv"))
	require.NoError(t, err)
	require.Contains(t, string(data), "agent-1;AB;100;11.5;1;0")
}
