package ioformat

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/ardalan-sia/dta-sim/internal/agent"
	"github.com/ardalan-sia/dta-sim/internal/network"
	"github.com/ardalan-sia/dta-sim/internal/pathfind"
	"github.com/ardalan-sia/dta-sim/internal/rng"
	"github.com/ardalan-sia/dta-sim/internal/simerr"
	"github.com/ardalan-sia/dta-sim/internal/strategy"
)

// BuildAgents converts loaded trip groups into agents owned by partition,
// computing each agent's initial path and drawing an active strategy with
// probability propStrategic from the candidate pool. Groups whose origin
// node is not owned by ownsNode are skipped (they belong to another
// partition). A group whose origin or destination node is missing from the
// network is a topology error: it is logged as a warning and the group is
// dropped rather than aborting the whole load. Any other error is fatal and
// is returned to the caller.
func BuildAgents(groups []TripGroup, net *network.Network, partition int,
	ownsNode func(nodeID string) bool, candidates []StrategyCandidate,
	propStrategic float64, rndHandle *rng.Handle, log zerolog.Logger) ([]*agent.Agent, error) {

	var out []*agent.Agent
	for _, g := range groups {
		if len(g.Trips) == 0 {
			continue
		}
		if !ownsNode(g.Trips[0].OriginNodeID) {
			continue
		}

		id := agentID(g)
		a := agent.New(id, partition, g.Trips, 1)

		path, err := pathfind.AStar(net, g.Trips[0].OriginNodeID, g.Trips[0].DestinationNodeID, pathfind.Fastest)
		if err != nil {
			if errors.Cause(err) == simerr.ErrTopology {
				log.Warn().Err(err).Str("agent_id", id).Msg("dropping agent: topology error on initial path")
				continue
			}
			return nil, err
		}
		a.Path = path

		origin, err := net.Node(g.Trips[0].OriginNodeID)
		if err != nil {
			if errors.Cause(err) == simerr.ErrTopology {
				log.Warn().Err(err).Str("agent_id", id).Msg("dropping agent: topology error on origin node")
				continue
			}
			return nil, err
		}
		a.X, a.Y = origin.X, origin.Y

		if len(candidates) > 0 && rndHandle.Bool(propStrategic) {
			c := candidates[rndHandle.IntN(len(candidates))]
			a.Strategy = strategy.NewActive(strategy.NewParams(c.Alpha, c.Theta))
		} else {
			a.Strategy = strategy.Inert()
		}

		out = append(out, a)
	}
	return out, nil
}

func agentID(g TripGroup) string {
	if g.HouseholdID != "" {
		return fmt.Sprintf("%s-%s", g.HouseholdID, g.PersonID)
	}
	return g.PersonID
}
