// Package aggregate accumulates the simulation's cross-tick counters,
// per-link flow histograms, trip start times and agent fitness scores, and
// runs the global termination check over the transport ring.
package aggregate

import (
	"math"

	"github.com/ardalan-sia/dta-sim/internal/output"
	"github.com/ardalan-sia/dta-sim/internal/transport"
)

// Counters mirrors AggregateSum: four independent running totals, each
// single-writer within a partition and summed across partitions at
// reporting time.
type Counters struct {
	TotalAgents         int
	TotalMovingAgents   int
	TotalTripsPerformed int
	TotalReroutings     int
}

func (c *Counters) IncrementMoving()   { c.TotalMovingAgents++ }
func (c *Counters) DecrementMoving()   { c.TotalMovingAgents-- }
func (c *Counters) IncrementTrips()    { c.TotalTripsPerformed++ }
func (c *Counters) IncrementReroutes() { c.TotalReroutings++ }
func (c *Counters) SetAgents(n int)    { c.TotalAgents = n }

// Tracker holds one partition's running aggregate state for the whole run.
type Tracker struct {
	Counters Counters

	TripStartTimes []float64
	AgentFitness   map[string]float64

	AggregateFlow output.LinkHistogram
	SnapshotFlow  output.LinkHistogram
	aggregateBins int
	snapshotBins  int
}

// New returns a tracker with nAggregateBins coarse bins and nSnapshotBins
// fine bins per link, covering one 1440-minute day at the configured
// recording intervals.
func New(nAggregateBins, nSnapshotBins int) *Tracker {
	return &Tracker{
		AgentFitness:  make(map[string]float64),
		AggregateFlow: make(output.LinkHistogram),
		SnapshotFlow:  make(output.LinkHistogram),
		aggregateBins: nAggregateBins,
		snapshotBins:  nSnapshotBins,
	}
}

// RecordTripStart appends a trip-departure timestamp.
func (t *Tracker) RecordTripStart(simTime float64) {
	t.TripStartTimes = append(t.TripStartTimes, simTime)
}

// RecordFitness folds a completed trip's fitness (theoretical/actual
// duration) into the agent's running average, matching the reference
// model's running-average-of-two update (averaging with the new sample,
// not accumulating a full history).
func (t *Tracker) RecordFitness(agentID string, theoreticalDuration, simDuration float64) {
	var fitness float64
	if simDuration > 0 {
		fitness = theoreticalDuration / simDuration
	}
	if existing, ok := t.AgentFitness[agentID]; ok {
		t.AgentFitness[agentID] = (existing + fitness) * 0.5
	} else {
		t.AgentFitness[agentID] = fitness
	}
}

// RecordLinkFlow increments the aggregate-interval bin for linkID at simTime.
func (t *Tracker) RecordLinkFlow(linkID string, simTime float64) {
	bin := BinIndex(simTime, t.aggregateBins)
	t.ensureBins(t.AggregateFlow, linkID, t.aggregateBins)
	t.AggregateFlow[linkID][bin]++
}

// RecordLinkSnapshot increments the snapshot-interval bin for linkID at simTime.
func (t *Tracker) RecordLinkSnapshot(linkID string, simTime float64) {
	bin := BinIndex(simTime, t.snapshotBins)
	t.ensureBins(t.SnapshotFlow, linkID, t.snapshotBins)
	t.SnapshotFlow[linkID][bin]++
}

func (t *Tracker) ensureBins(h output.LinkHistogram, linkID string, n int) {
	if _, ok := h[linkID]; !ok {
		h[linkID] = make([]int, n)
	}
}

// BinIndex maps a simulation time in seconds to its histogram bin given the
// number of equal-width bins per day, wrapping at 1440 minutes (24h) once
// the simulation runs past one day.
func BinIndex(simTime float64, numBins int) int {
	intervalSeconds := 86400.0 / float64(numBins)
	bin := int(math.Floor(simTime / intervalSeconds))
	if bin < 0 {
		bin = 0
	}
	return bin % numBins
}

// IsSnapshotTick reports whether simTime (floored to whole seconds) lands on
// a snapshot-interval boundary, per the reference model's modulo check.
func IsSnapshotTick(simTime float64, intervalMinutes int) bool {
	return int(math.Floor(simTime))%(intervalMinutes*60) == 0
}

// CheckStop runs the all-reduce termination check: the simulation stops
// once every partition reports zero remaining agents.
func CheckStop(localRemainingAgents []int) bool {
	return transport.AllReduceInt(localRemainingAgents, func(a, b int) int { return a + b }) == 0
}
