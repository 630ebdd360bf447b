// Package config loads the simulation's property-file options from YAML.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/ardalan-sia/dta-sim/internal/simerr"
)

// NetworkFormat selects which input-file family to load.
type NetworkFormat string

const (
	FormatA NetworkFormat = "A"
	FormatB NetworkFormat = "B"
)

// Config holds every par.* option from the specification, plus the input
// file paths needed to actually run.
type Config struct {
	TimeTolerance           float64       `yaml:"time_tolerance"`
	ProcX                   int           `yaml:"proc_x"`
	ProcY                   int           `yaml:"proc_y"`
	NetworkFormat           NetworkFormat `yaml:"network_format"`
	CorrectStartTime        bool          `yaml:"correct_start_time"`
	PropStrategicAgents     float64       `yaml:"prop_strategic_agents"`
	RecordIntervalAggregate int           `yaml:"record_interval_aggregate"`
	RecordIntervalSnapshot  int           `yaml:"record_interval_snapshot"`

	NodesFile      string `yaml:"nodes_file"`
	LinksFile      string `yaml:"links_file"`
	ActivitiesFile string `yaml:"activities_file"`
	TripsFile      string `yaml:"trips_file"`
	PlansFile      string `yaml:"plans_file"`
	StrategiesFile string `yaml:"strategies_file"`
	OutputDir      string `yaml:"output_dir"`
}

// defaults mirrors the reference implementation's fallback values.
func defaults() Config {
	return Config{
		TimeTolerance:           0.5,
		ProcX:                   1,
		ProcY:                   1,
		NetworkFormat:           FormatA,
		CorrectStartTime:        false,
		PropStrategicAgents:     0.0,
		RecordIntervalAggregate: 60,
		RecordIntervalSnapshot:  15,
		OutputDir:               "output",
	}
}

// Load reads and validates a YAML configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(simerr.ErrConfiguration, "read config %s: %v", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(simerr.ErrConfiguration, "parse config %s: %v", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.NetworkFormat != FormatA && c.NetworkFormat != FormatB {
		return errors.Wrapf(simerr.ErrConfiguration, "network_format must be %q or %q, got %q", FormatA, FormatB, c.NetworkFormat)
	}
	if c.NetworkFormat == FormatA {
		if c.NodesFile == "" || c.LinksFile == "" || c.TripsFile == "" {
			return errors.Wrap(simerr.ErrConfiguration, "format A requires nodes_file, links_file and trips_file")
		}
	} else {
		if c.PlansFile == "" {
			return errors.Wrap(simerr.ErrConfiguration, "format B requires plans_file")
		}
	}
	if c.ProcX <= 0 || c.ProcY <= 0 {
		return errors.Wrap(simerr.ErrConfiguration, "proc_x and proc_y must be positive")
	}
	if c.PropStrategicAgents < 0 || c.PropStrategicAgents > 1 {
		return errors.Wrap(simerr.ErrConfiguration, "prop_strategic_agents must be in [0, 1]")
	}
	return nil
}

// NumPartitions returns the total partition count (proc_x * proc_y); the
// partitioner itself only tiles the x-axis, per spec.
func (c *Config) NumPartitions() int {
	return c.ProcX * c.ProcY
}
