// Package ioformat loads Format A tab-separated node/link/activity tables and
// comma-separated trip rows, and Format B structured MATSim-style plan XML,
// into a network.Network plus a set of per-agent trip chains.
package ioformat

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/ardalan-sia/dta-sim/internal/agent"
	"github.com/ardalan-sia/dta-sim/internal/network"
	"github.com/ardalan-sia/dta-sim/internal/simerr"
)

const (
	modeCarDriver = "car_driver"
	modeTaxi      = "taxi"
)

func openLines(path string) (*bufio.Scanner, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(simerr.ErrInputFile, "open %s: %v", path, err)
	}
	return bufio.NewScanner(f), f, nil
}

// LoadNodesA reads a tab-separated nodes file (header row, then id, x, y)
// and registers each node with the network.
func LoadNodesA(path string, net *network.Network) error {
	scanner, f, err := openLines(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if !scanner.Scan() {
		return errors.Wrapf(simerr.ErrInputFile, "%s: missing header", path)
	}
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 3 {
			return errors.Wrapf(simerr.ErrInputFile, "%s: malformed node row %q", path, line)
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(cols[1]), 64)
		if err != nil {
			return errors.Wrapf(simerr.ErrInputFile, "%s: bad x in row %q: %v", path, line, err)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(cols[2]), 64)
		if err != nil {
			return errors.Wrapf(simerr.ErrInputFile, "%s: bad y in row %q: %v", path, line, err)
		}
		net.AddNode(&network.Node{
			ID:         strings.TrimSpace(cols[0]),
			X:          x,
			Y:          y,
			XData:      x,
			YData:      y,
			Indicators: make(map[string]int),
		})
	}
	return scanner.Err()
}

// LoadLinksA reads a tab-separated links file. Column layout follows the
// transims export: id(0), start(1), end(2), length(3), free_flow_speed(4),
// capacity(5), return_lanes(6), return_speed(7), return_capacity(8),
// type(9) — rows whose type is "WALK" are dropped. When return_lanes > 0 a
// reverse link is synthesized with id "-"+id, the listed return speed and
// capacity, and the same length.
func LoadLinksA(path string, net *network.Network) error {
	scanner, f, err := openLines(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if !scanner.Scan() {
		return errors.Wrapf(simerr.ErrInputFile, "%s: missing header", path)
	}
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 10 {
			return errors.Wrapf(simerr.ErrInputFile, "%s: malformed link row %q", path, line)
		}
		for i := range cols {
			cols[i] = strings.TrimSpace(cols[i])
		}
		if strings.EqualFold(cols[9], "WALK") {
			continue
		}

		id, start, end := cols[0], cols[1], cols[2]
		length, err := strconv.ParseFloat(cols[3], 64)
		if err != nil {
			return errors.Wrapf(simerr.ErrInputFile, "%s: bad length in row %q: %v", path, line, err)
		}
		ffSpeed, err := strconv.ParseFloat(cols[4], 64)
		if err != nil {
			return errors.Wrapf(simerr.ErrInputFile, "%s: bad free_flow_speed in row %q: %v", path, line, err)
		}
		capacity, err := strconv.ParseFloat(cols[5], 64)
		if err != nil {
			return errors.Wrapf(simerr.ErrInputFile, "%s: bad capacity in row %q: %v", path, line, err)
		}
		returnLanes, err := strconv.Atoi(cols[6])
		if err != nil {
			return errors.Wrapf(simerr.ErrInputFile, "%s: bad return_lanes in row %q: %v", path, line, err)
		}

		if err := net.AddLink(&network.Link{
			ID:           id,
			StartNodeID:  start,
			EndNodeID:    end,
			Length:       length,
			FreeFlowTime: ffSpeed,
			Capacity:     capacity,
		}); err != nil {
			return err
		}

		if returnLanes > 0 {
			returnSpeed, err := strconv.ParseFloat(cols[7], 64)
			if err != nil {
				return errors.Wrapf(simerr.ErrInputFile, "%s: bad return speed in row %q: %v", path, line, err)
			}
			returnCapacity, err := strconv.ParseFloat(cols[8], 64)
			if err != nil {
				return errors.Wrapf(simerr.ErrInputFile, "%s: bad return capacity in row %q: %v", path, line, err)
			}
			if err := net.AddLink(&network.Link{
				ID:           "-" + id,
				StartNodeID:  end,
				EndNodeID:    start,
				Length:       length,
				FreeFlowTime: returnSpeed,
				Capacity:     returnCapacity,
			}); err != nil {
				return err
			}
		}
	}
	return scanner.Err()
}

// LoadActivitiesA reads the activity-location → network-node mapping file
// (header + rows: location_id, ..., node_id).
func LoadActivitiesA(path string) (map[string]string, error) {
	scanner, f, err := openLines(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := make(map[string]string)
	if !scanner.Scan() {
		return nil, errors.Wrapf(simerr.ErrInputFile, "%s: missing header", path)
	}
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 3 {
			return nil, errors.Wrapf(simerr.ErrInputFile, "%s: malformed activity row %q", path, line)
		}
		out[strings.TrimSpace(cols[0])] = strings.TrimSpace(cols[2])
	}
	return out, scanner.Err()
}

// TripGroup is one agent's trip chain plus the household/person key it was
// grouped under in the trips file.
type TripGroup struct {
	HouseholdID string
	PersonID    string
	Trips       []agent.Trip
}

// LoadTripsA reads the trips file (header + comma-separated rows keyed by
// household id(0), person id(1), mode(4), starting time(6), origin
// activity(7), end time(8), destination activity(9)) and groups consecutive
// rows sharing (household id, person id) into one TripGroup. A trip is kept
// only when its resolved origin and destination nodes differ and its mode
// is car_driver or taxi. When correctStartTime is set, a trip's starting
// time is clamped up to the end time of the same person's previous row,
// whether or not that row was kept.
func LoadTripsA(path string, activityToNode map[string]string, correctStartTime bool) ([]TripGroup, error) {
	scanner, f, err := openLines(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if !scanner.Scan() {
		return nil, errors.Wrapf(simerr.ErrInputFile, "%s: missing header", path)
	}

	var groups []TripGroup
	var cur TripGroup
	haveCur := false
	var endTimePrevious float64

	flush := func() {
		if haveCur && len(cur.Trips) > 0 {
			groups = append(groups, cur)
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		cols := strings.Split(line, ",")
		if len(cols) < 10 {
			return nil, errors.Wrapf(simerr.ErrInputFile, "%s: malformed trip row %q", path, line)
		}
		for i := range cols {
			cols[i] = strings.TrimSpace(cols[i])
		}

		hhID, personID, mode := cols[0], cols[1], cols[4]
		startTime, err := strconv.ParseFloat(cols[6], 64)
		if err != nil {
			return nil, errors.Wrapf(simerr.ErrInputFile, "%s: bad start time in row %q: %v", path, line, err)
		}
		origAct := cols[7]
		endTime, err := strconv.ParseFloat(cols[8], 64)
		if err != nil {
			return nil, errors.Wrapf(simerr.ErrInputFile, "%s: bad end time in row %q: %v", path, line, err)
		}
		destAct := cols[9]

		origNode, ok := activityToNode[origAct]
		if !ok {
			return nil, errors.Wrapf(simerr.ErrInputFile, "%s: unknown origin activity %q", path, origAct)
		}
		destNode, ok := activityToNode[destAct]
		if !ok {
			return nil, errors.Wrapf(simerr.ErrInputFile, "%s: unknown destination activity %q", path, destAct)
		}

		sameAgent := haveCur && cur.HouseholdID == hhID && cur.PersonID == personID
		if !sameAgent {
			flush()
			cur = TripGroup{HouseholdID: hhID, PersonID: personID}
			haveCur = true
			if correctStartTime {
				endTimePrevious = 0
			}
		}

		if correctStartTime && startTime < endTimePrevious {
			startTime = endTimePrevious
		}

		if origNode != destNode && (mode == modeCarDriver || mode == modeTaxi) {
			cur.Trips = append(cur.Trips, agent.Trip{
				OriginNodeID:      origNode,
				DestinationNodeID: destNode,
				StartingTime:      startTime,
			})
		}

		endTimePrevious = endTime
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return groups, nil
}

// LoadStrategies reads the strategy file: one (alpha; theta) pair per line,
// semicolon-separated floats, no header.
func LoadStrategies(path string) ([]StrategyCandidate, error) {
	scanner, f, err := openLines(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []StrategyCandidate
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		cols := strings.Split(line, ";")
		if len(cols) < 2 {
			return nil, errors.Wrapf(simerr.ErrInputFile, "%s: malformed strategy row %q", path, line)
		}
		alpha, err := strconv.ParseFloat(strings.TrimSpace(cols[0]), 64)
		if err != nil {
			return nil, errors.Wrapf(simerr.ErrInputFile, "%s: bad alpha in row %q: %v", path, line, err)
		}
		theta, err := strconv.ParseFloat(strings.TrimSpace(cols[1]), 64)
		if err != nil {
			return nil, errors.Wrapf(simerr.ErrInputFile, "%s: bad theta in row %q: %v", path, line, err)
		}
		out = append(out, StrategyCandidate{Alpha: alpha, Theta: theta})
	}
	return out, scanner.Err()
}

// StrategyCandidate is one raw (alpha, theta) row from the strategy file,
// before being converted to strategy.Params (cos/sin of alpha).
type StrategyCandidate struct {
	Alpha float64
	Theta float64
}
