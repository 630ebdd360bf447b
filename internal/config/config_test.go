package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ardalan-sia/dta-sim/internal/config"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, `
network_format: A
nodes_file: nodes.tsv
links_file: links.tsv
trips_file: trips.tsv
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, 0.5, cfg.TimeTolerance)
	require.Equal(t, 1, cfg.ProcX)
	require.Equal(t, 60, cfg.RecordIntervalAggregate)
}

func TestLoadMissingRequiredFileIsFatal(t *testing.T) {
	path := writeTempConfig(t, `network_format: A`)
	_, err := config.Load(path)
	require.Error(t, err)
}

func TestLoadRejectsUnknownFormat(t *testing.T) {
	path := writeTempConfig(t, `network_format: Z`)
	_, err := config.Load(path)
	require.Error(t, err)
}

func TestLoadFormatBRequiresPlansFile(t *testing.T) {
	path := writeTempConfig(t, `network_format: B`)
	_, err := config.Load(path)
	require.Error(t, err)
}
