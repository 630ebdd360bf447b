package ioformat_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ardalan-sia/dta-sim/internal/ioformat"
	"github.com/ardalan-sia/dta-sim/internal/network"
)

const samplePlansXML = `<?xml version="1.0"?>
<plans>
  <network>
    <nodes>
      <node id="A" x="0" y="0"/>
      <node id="B" x="10" y="0"/>
      <node id="C" x="10" y="10"/>
    </nodes>
    <links>
      <link id="AB" start="A" end="B" length="100" free_flow_speed="10" capacity="20"/>
      <link id="BC" start="B" end="C" length="100" free_flow_speed="10" capacity="20"/>
      <link id="CA" start="C" end="A" length="100" free_flow_speed="10" capacity="20"/>
    </links>
  </network>
  <person id="p1">
    <plan>
      <act end_time="8:00:00" node_id="A"/>
      <act end_time="17:00:00" node_id="B"/>
      <act end_time="18:00:00" node_id="C"/>
    </plan>
  </person>
</plans>`

func TestLoadNetworkB(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "plans.xml", samplePlansXML)

	net := network.New()
	require.NoError(t, ioformat.LoadNetworkB(path, net))

	link, err := net.Link("AB")
	require.NoError(t, err)
	require.Equal(t, 10.0, link.FreeFlowTime)
}

func TestLoadPlansBBuildsChainWithReturnHome(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "plans.xml", samplePlansXML)

	groups, err := ioformat.LoadPlansB(path)
	require.NoError(t, err)
	require.Len(t, groups, 1)

	trips := groups[0].Trips
	require.Len(t, trips, 3)
	require.Equal(t, "A", trips[0].OriginNodeID)
	require.Equal(t, "B", trips[0].DestinationNodeID)
	require.Equal(t, 8*3600.0, trips[0].StartingTime)

	require.Equal(t, "B", trips[1].OriginNodeID)
	require.Equal(t, "C", trips[1].DestinationNodeID)

	require.Equal(t, "C", trips[2].OriginNodeID)
	require.Equal(t, "A", trips[2].DestinationNodeID)
	require.Equal(t, 18*3600.0, trips[2].StartingTime)
}
