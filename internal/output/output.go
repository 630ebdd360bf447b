// Package output writes the simulation's semicolon-separated CSV files.
package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/ardalan-sia/dta-sim/internal/network"
	"github.com/ardalan-sia/dta-sim/internal/transport"
)

// newWriter opens path for writing (truncating any existing content) and
// returns a csv.Writer configured with ';' as the field separator.
func newWriter(path string) (*csv.Writer, *os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, errors.Wrapf(err, "create output dir for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "create output file %s", path)
	}
	w := csv.NewWriter(f)
	w.Comma = ';'
	return w, f, nil
}

// SimOutRow is one row of the per-tick cross-partition sums in sim_out.csv.
type SimOutRow struct {
	TotalAgents         int
	TotalMovingAgents   int
	TotalTripsPerformed int
	TotalReroutings     int
}

func WriteSimOut(dir string, rows []SimOutRow) error {
	w, f, err := newWriter(filepath.Join(dir, "sim_out.csv"))
	if err != nil {
		return err
	}
	defer f.Close()
	defer w.Flush()

	if err := w.Write([]string{"total_agents", "total_moving_agents", "total_trips_performed", "total_reroutings"}); err != nil {
		return err
	}
	for _, r := range rows {
		if err := w.Write([]string{
			fmt.Sprint(r.TotalAgents),
			fmt.Sprint(r.TotalMovingAgents),
			fmt.Sprint(r.TotalTripsPerformed),
			fmt.Sprint(r.TotalReroutings),
		}); err != nil {
			return err
		}
	}
	return nil
}

// LinkHistogram is a per-link, per-bin counter over the 24-hour day.
type LinkHistogram map[string][]int

// WriteLinkHistograms writes a flow and saturation CSV for one histogram
// (aggregate or snapshot), across ranks in rank order under a barrier:
// rank 0 alone writes the header row, then every rank in turn appends its
// own local rows. flowPath/satPath name the destination files.
func WriteLinkHistograms(flowPath, satPath string, rank, numRanks int, barrier *transport.Barrier,
	histogram LinkHistogram, net *network.Network, nBins int) error {

	if rank == 0 {
		if err := writeHistogramHeader(flowPath, nBins); err != nil {
			return err
		}
		if err := writeHistogramHeader(satPath, nBins); err != nil {
			return err
		}
	}

	for p := 0; p < numRanks; p++ {
		barrier.Arrive()
		if rank != p {
			continue
		}
		if err := appendHistogramRows(flowPath, satPath, histogram, net); err != nil {
			return err
		}
	}
	return nil
}

func writeHistogramHeader(path string, nBins int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create output dir for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create output file %s", path)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	w.Comma = ';'
	header := []string{"LINK"}
	for i := 0; i < nBins; i++ {
		header = append(header, fmt.Sprintf("t_%d", i))
	}
	if err := w.Write(header); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func appendHistogramRows(flowPath, satPath string, histogram LinkHistogram, net *network.Network) error {
	flowFile, err := os.OpenFile(flowPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrapf(err, "open %s", flowPath)
	}
	defer flowFile.Close()
	satFile, err := os.OpenFile(satPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrapf(err, "open %s", satPath)
	}
	defer satFile.Close()

	flowW := csv.NewWriter(flowFile)
	flowW.Comma = ';'
	satW := csv.NewWriter(satFile)
	satW.Comma = ';'

	ids := make([]string, 0, len(histogram))
	for id := range histogram {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	links := net.Links()
	for _, id := range ids {
		bins := histogram[id]
		capacity := links[id].Capacity

		flowRow := make([]string, 0, len(bins)+1)
		satRow := make([]string, 0, len(bins)+1)
		flowRow = append(flowRow, id)
		satRow = append(satRow, id)
		for _, v := range bins {
			flowRow = append(flowRow, fmt.Sprint(v))
			satRow = append(satRow, fmt.Sprintf("%g", float64(v)/capacity))
		}
		if err := flowW.Write(flowRow); err != nil {
			return err
		}
		if err := satW.Write(satRow); err != nil {
			return err
		}
	}
	flowW.Flush()
	satW.Flush()
	if err := flowW.Error(); err != nil {
		return err
	}
	return satW.Error()
}

// WriteStartingTimes writes the sorted trip-start times of starting_times.csv.
func WriteStartingTimes(dir string, times []float64) error {
	sorted := append([]float64(nil), times...)
	sort.Float64s(sorted)

	w, f, err := newWriter(filepath.Join(dir, "starting_times.csv"))
	if err != nil {
		return err
	}
	defer f.Close()
	defer w.Flush()

	if err := w.Write([]string{"STARTING_TIME"}); err != nil {
		return err
	}
	for _, t := range sorted {
		if err := w.Write([]string{fmt.Sprintf("%g", t)}); err != nil {
			return err
		}
	}
	return nil
}

// WriteAgentsFitness writes (id; fitness) pairs to agents_fitness.csv,
// rank in turn under the barrier, rank 0 alone writing the header.
func WriteAgentsFitness(dir string, rank, numRanks int, barrier *transport.Barrier, fitness map[string]float64) error {
	path := filepath.Join(dir, "agents_fitness.csv")
	if rank == 0 {
		f, err := os.Create(path)
		if err != nil {
			return errors.Wrapf(err, "create %s", path)
		}
		w := csv.NewWriter(f)
		w.Comma = ';'
		if err := w.Write([]string{"AGENT ID", "FITNESS"}); err != nil {
			f.Close()
			return err
		}
		w.Flush()
		f.Close()
	}

	for p := 0; p < numRanks; p++ {
		barrier.Arrive()
		if rank != p {
			continue
		}
		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return errors.Wrapf(err, "open %s", path)
		}
		w := csv.NewWriter(f)
		w.Comma = ';'

		ids := make([]string, 0, len(fitness))
		for id := range fitness {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			if err := w.Write([]string{id, fmt.Sprintf("%g", fitness[id])}); err != nil {
				f.Close()
				return err
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return err
		}
		f.Close()
	}
	return nil
}

// MoveRecord is one emitted per-move output line.
type MoveRecord struct {
	AgentID          string
	LinkID           string
	TimeEnteringLink float64
	TimeOnLink       float64
	PathIndex        int
	LinkIndexInPath  int
}

// MoveWriter appends per-move records to moves_proc_<rank>.csv with no
// cross-partition coordination, per the output contract.
type MoveWriter struct {
	w *csv.Writer
	f *os.File
}

// NewMoveWriter creates moves_proc_<rank>.csv, truncating any existing file,
// and returns a writer that appends records to it for the rest of the run.
func NewMoveWriter(dir string, rank int) (*MoveWriter, error) {
	path := filepath.Join(dir, fmt.Sprintf("moves_proc_%d.csv", rank))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create output dir for %s", path)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "create %s", path)
	}
	w := csv.NewWriter(f)
	w.Comma = ';'
	return &MoveWriter{w: w, f: f}, nil
}

// Write appends one move record.
func (m *MoveWriter) Write(r MoveRecord) error {
	if err := m.w.Write([]string{
		r.AgentID,
		r.LinkID,
		fmt.Sprintf("%g", r.TimeEnteringLink),
		fmt.Sprintf("%g", r.TimeOnLink),
		fmt.Sprint(r.PathIndex),
		fmt.Sprint(r.LinkIndexInPath),
	}); err != nil {
		return err
	}
	m.w.Flush()
	return m.w.Error()
}

// Close flushes and closes the underlying file.
func (m *MoveWriter) Close() error {
	m.w.Flush()
	if err := m.w.Error(); err != nil {
		m.f.Close()
		return err
	}
	return m.f.Close()
}
