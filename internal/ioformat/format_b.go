package ioformat

import (
	"encoding/xml"
	"os"
	"strconv"

	"github.com/pkg/errors"

	"github.com/ardalan-sia/dta-sim/internal/agent"
	"github.com/ardalan-sia/dta-sim/internal/network"
	"github.com/ardalan-sia/dta-sim/internal/simerr"
)

type plansDoc struct {
	XMLName xml.Name     `xml:"plans"`
	Network networkXML   `xml:"network"`
	Persons []personXML  `xml:"person"`
}

type networkXML struct {
	Nodes []nodeXML `xml:"nodes>node"`
	Links []linkXML `xml:"links>link"`
}

type nodeXML struct {
	ID string  `xml:"id,attr"`
	X  float64 `xml:"x,attr"`
	Y  float64 `xml:"y,attr"`
}

type linkXML struct {
	ID       string  `xml:"id,attr"`
	Start    string  `xml:"start,attr"`
	End      string  `xml:"end,attr"`
	Length   float64 `xml:"length,attr"`
	FFSpeed  float64 `xml:"free_flow_speed,attr"`
	Capacity float64 `xml:"capacity,attr"`
}

type personXML struct {
	ID   string  `xml:"id,attr"`
	Plan planXML `xml:"plan"`
}

type planXML struct {
	Acts []actXML `xml:"act"`
}

type actXML struct {
	EndTime string `xml:"end_time,attr"`
	NodeID  string `xml:"node_id,attr"`
}

// LoadNetworkB parses a Format B plans document's embedded network section
// (network/nodes/node and network/links/link) and populates net.
func LoadNetworkB(path string, net *network.Network) error {
	doc, err := parsePlansDoc(path)
	if err != nil {
		return err
	}

	for _, n := range doc.Network.Nodes {
		net.AddNode(&network.Node{
			ID:         n.ID,
			X:          n.X,
			Y:          n.Y,
			XData:      n.X,
			YData:      n.Y,
			Indicators: make(map[string]int),
		})
	}
	for _, l := range doc.Network.Links {
		if err := net.AddLink(&network.Link{
			ID:           l.ID,
			StartNodeID:  l.Start,
			EndNodeID:    l.End,
			Length:       l.Length,
			FreeFlowTime: l.FFSpeed,
			Capacity:     l.Capacity,
		}); err != nil {
			return err
		}
	}
	return nil
}

// LoadPlansB parses the person/plan/act activity chains into one TripGroup
// per person: consecutive activities produce trips, and a final trip back
// to the first activity's node is appended unless the agent is already
// there. end_time attributes parse as hh:mm:ss.
func LoadPlansB(path string) ([]TripGroup, error) {
	doc, err := parsePlansDoc(path)
	if err != nil {
		return nil, err
	}

	var groups []TripGroup
	for _, person := range doc.Persons {
		if len(person.Plan.Acts) == 0 {
			continue
		}
		first := person.Plan.Acts[0]
		homeNode := first.NodeID
		prevEndTime, err := parseHHMMSS(first.EndTime)
		if err != nil {
			return nil, errors.Wrapf(simerr.ErrInputFile, "%s: person %s: %v", path, person.ID, err)
		}
		curNode := homeNode

		group := TripGroup{PersonID: person.ID}
		for _, act := range person.Plan.Acts[1:] {
			if act.NodeID != curNode {
				group.Trips = append(group.Trips, agent.Trip{
					OriginNodeID:      curNode,
					DestinationNodeID: act.NodeID,
					StartingTime:      prevEndTime,
				})
			}
			endTime, err := parseHHMMSS(act.EndTime)
			if err != nil {
				return nil, errors.Wrapf(simerr.ErrInputFile, "%s: person %s: %v", path, person.ID, err)
			}
			prevEndTime = endTime
			curNode = act.NodeID
		}

		if curNode != homeNode {
			group.Trips = append(group.Trips, agent.Trip{
				OriginNodeID:      curNode,
				DestinationNodeID: homeNode,
				StartingTime:      prevEndTime,
			})
		}

		if len(group.Trips) > 0 {
			groups = append(groups, group)
		}
	}
	return groups, nil
}

func parsePlansDoc(path string) (*plansDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(simerr.ErrInputFile, "open %s: %v", path, err)
	}
	var doc plansDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(simerr.ErrInputFile, "parse %s: %v", path, err)
	}
	return &doc, nil
}

// parseHHMMSS converts an "h:mm:ss"-style timestamp to seconds since midnight.
func parseHHMMSS(s string) (float64, error) {
	var h, m, sec int
	n, err := parseClock(s, &h, &m, &sec)
	if err != nil || n != 3 {
		return 0, errors.Errorf("malformed time %q", s)
	}
	return float64(h*3600 + m*60 + sec), nil
}

func parseClock(s string, h, m, sec *int) (int, error) {
	parts := splitColon(s)
	if len(parts) != 3 {
		return 0, errors.Errorf("expected hh:mm:ss, got %q", s)
	}
	var err error
	*h, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, err
	}
	*m, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, err
	}
	*sec, err = strconv.Atoi(parts[2])
	if err != nil {
		return 0, err
	}
	return 3, nil
}

func splitColon(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}
