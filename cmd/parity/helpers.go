package main

import (
	"github.com/spf13/pflag"

	"parity/internal/manifest"
)

// Default locations mirror the repository layout the tooling grew up with.
const (
	defaultManifest   = "tasks/golden-fixture-manifest.json"
	defaultPolicy     = "tasks/numeric-tolerance-policy.json"
	defaultOracleRoot = "artifacts/regression/oracle"
	defaultActualRoot = "artifacts/regression/actual"
	defaultReport     = "artifacts/regression/report.json"
)

// selectionFlags is the shared fixture-selection flag set. With no flags
// the default selection applies: fixtures whose baselineStatus is
// requires_capture.
type selectionFlags struct {
	fixtures []string
	all      bool
	status   string
}

func (s *selectionFlags) register(f *pflag.FlagSet) {
	f.StringSliceVar(&s.fixtures, "fixture", nil, "Fixture id to act on (repeatable)")
	f.BoolVar(&s.all, "all-fixtures", false, "Act on every fixture in the manifest")
	f.StringVar(&s.status, "status", "", "Act on fixtures with this baselineStatus")
}

func (s *selectionFlags) selection() manifest.Selection {
	return manifest.Selection{IDs: s.fixtures, All: s.all, Status: s.status}
}
