// Serialization shim: packages every mutable agent field plus both
// partition identifiers for cross-partition transfer, used both for
// periodic migration and for request/reply content exchange. Round-trip
// through Marshal/Unmarshal must yield byte-identical state.
package agent

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ardalan-sia/dta-sim/internal/strategy"
)

// Envelope is the wire package for one agent, tagged with a correlation
// id so a batch of migrations sharing one tick can be traced together in
// logs without affecting agent identity itself (agent identity remains
// the plain ID string, per the "tagged identifiers, not pointer equality"
// design note).
type Envelope struct {
	CorrelationID string `json:"correlation_id"`

	ID               string  `json:"id"`
	OwnerPartition   int     `json:"owner_partition"`
	CurrentPartition int     `json:"current_partition"`
	Trips            []Trip  `json:"trips"`
	X                float64 `json:"x"`
	Y                float64 `json:"y"`
	RemainingTime    float64 `json:"remaining_time"`

	StrategyActive   bool    `json:"strategy_active"`
	StrategyCosAlpha float64 `json:"strategy_cos_alpha"`
	StrategySinAlpha float64 `json:"strategy_sin_alpha"`
	StrategyTheta    float64 `json:"strategy_theta"`

	Path    []string `json:"path"`
	EnRoute bool     `json:"en_route"`
	AtNode  bool     `json:"at_node"`
	CurLink string   `json:"cur_link"`
	Size    int      `json:"size"`

	AccumulatedTheoreticalTime float64 `json:"accumulated_theoretical_time"`
	PathIndex                  int     `json:"path_index"`
	LinksTraversedInPath       int     `json:"links_traversed_in_path"`
}

// NewCorrelationID returns a fresh id for tagging one migration batch.
func NewCorrelationID() string {
	return uuid.NewString()
}

// Pack builds the wire envelope for a, tagged with correlationID.
func Pack(a *Agent, correlationID string) Envelope {
	return Envelope{
		CorrelationID:              correlationID,
		ID:                         a.ID,
		OwnerPartition:             a.OwnerPartition,
		CurrentPartition:           a.CurrentPartition,
		Trips:                      append([]Trip(nil), a.Trips...),
		X:                          a.X,
		Y:                          a.Y,
		RemainingTime:              a.RemainingTime,
		StrategyActive:             a.Strategy.Active,
		StrategyCosAlpha:           a.Strategy.Params.CosAlpha,
		StrategySinAlpha:           a.Strategy.Params.SinAlpha,
		StrategyTheta:              a.Strategy.Params.Theta,
		Path:                       append([]string(nil), a.Path...),
		EnRoute:                    a.EnRoute,
		AtNode:                     a.AtNode,
		CurLink:                    a.CurLink,
		Size:                       a.Size,
		AccumulatedTheoreticalTime: a.AccumulatedTheoreticalTime,
		PathIndex:                  a.PathIndex,
		LinksTraversedInPath:       a.LinksTraversedInPath,
	}
}

// Unpack reconstructs an Agent from its wire envelope. It does not install
// the agent anywhere; the caller adds it to the destination partition.
func (e Envelope) Unpack() *Agent {
	return &Agent{
		ID:               e.ID,
		OwnerPartition:   e.OwnerPartition,
		CurrentPartition: e.CurrentPartition,
		Trips:            append([]Trip(nil), e.Trips...),
		X:                e.X,
		Y:                e.Y,
		RemainingTime:    e.RemainingTime,
		Strategy: strategy.Strategy{
			Active: e.StrategyActive,
			Params: strategy.Params{
				CosAlpha: e.StrategyCosAlpha,
				SinAlpha: e.StrategySinAlpha,
				Theta:    e.StrategyTheta,
			},
		},
		Path:                       append([]string(nil), e.Path...),
		EnRoute:                    e.EnRoute,
		AtNode:                     e.AtNode,
		CurLink:                    e.CurLink,
		Size:                       e.Size,
		AccumulatedTheoreticalTime: e.AccumulatedTheoreticalTime,
		PathIndex:                  e.PathIndex,
		LinksTraversedInPath:       e.LinksTraversedInPath,
	}
}

// Marshal serializes the envelope to bytes.
func (e Envelope) Marshal() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, "marshal agent envelope")
	}
	return b, nil
}

// UnmarshalEnvelope deserializes bytes produced by Marshal.
func UnmarshalEnvelope(data []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return Envelope{}, errors.Wrap(err, "unmarshal agent envelope")
	}
	return e, nil
}
