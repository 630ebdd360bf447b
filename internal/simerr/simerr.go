// Package simerr defines the error taxonomy shared across the simulation
// engine: configuration, input-file, topology, pathfinder and internal
// invariant errors, each anchored on a stable sentinel so callers can
// branch on errors.Cause/errors.Is instead of string matching.
package simerr

import "github.com/pkg/errors"

var (
	// ErrConfiguration marks a missing or unparseable configuration option.
	// Fatal at startup.
	ErrConfiguration = errors.New("configuration error")

	// ErrInputFile marks an unopenable or malformed input file.
	// Fatal at load time.
	ErrInputFile = errors.New("input file error")

	// ErrTopology marks a trip referencing an unknown node. The offending
	// agent is dropped with a warning; the simulation continues.
	ErrTopology = errors.New("topology error")

	// ErrNoPath marks pathfinder failure: open-set exhaustion with the
	// destination unreached. The engine treats a connected network as an
	// invariant and does not catch it: it ends the load or the run.
	ErrNoPath = errors.New("no path between source and destination")

	// ErrInternalInvariant marks a violated invariant (occupancy mismatch,
	// non-decreasing DecreaseKey, …). Fatal assertion.
	ErrInternalInvariant = errors.New("internal invariant violated")
)

// Wrap attaches msg as context to err while preserving errors.Cause.
func Wrap(err error, msg string) error {
	return errors.Wrap(err, msg)
}

// Wrapf is Wrap with Printf-style formatting.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}
