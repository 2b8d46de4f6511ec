// Package oracle orchestrates golden-baseline runs: it captures the
// selected fixtures through the pipeline, materializes hashed snapshots,
// and runs any candidate hooks against the captured fixtures.
package oracle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"parity/internal/capture"
	"parity/internal/compare"
	"parity/internal/logging"
	"parity/internal/manifest"
	"parity/internal/snapshot"
)

// Hook runs after a fixture is captured, typically to execute the
// candidate implementation against the same staged inputs and populate
// actualDir with its output tree.
type Hook func(ctx context.Context, fx manifest.Fixture, ws *capture.Workspace, actualDir string) error

// Config drives an oracle capture run.
type Config struct {
	ManifestPath string
	Capture      capture.Config
	Selection    manifest.Selection

	// ActualRoot, when set, gives hooks a per-fixture <root>/<id>/actual
	// directory to write candidate output into.
	ActualRoot string

	// Workers bounds concurrent fixture captures; values below 1 mean
	// serial execution.
	Workers int

	Hooks []Hook

	// Snapshot controls whether captured outputs are materialized into
	// hashed baseline trees and indexed.
	Snapshot bool

	// PolicyPath, when set, runs the comparator after capture and hooks:
	// each fixture's captured baseline tree is compared against its
	// candidate tree under ActualRoot, yielding Result.Report.
	PolicyPath string

	// ReportPath, when set, receives the comparison report as JSON.
	ReportPath string
}

// FixtureOutcome is the per-fixture result of an oracle run. Err carries
// any capture, snapshot or hook failure; the run continues past it.
type FixtureOutcome struct {
	Fixture   manifest.Fixture
	Capture   *capture.Outcome
	Snapshot  *snapshot.Metadata
	ActualDir string
	Err       error
}

// Result is the outcome of a whole oracle run. Report is set only when
// the run was configured to compare (PolicyPath).
type Result struct {
	Index    *snapshot.Index
	Outcomes []FixtureOutcome
	Failed   []string
	Report   *compare.Report
}

// Passed reports whether every fixture captured cleanly and, when a
// comparison ran, every fixture met its threshold.
func (r *Result) Passed() bool {
	if len(r.Failed) > 0 {
		return false
	}
	return r.Report == nil || r.Report.Passed
}

// Run captures all selected fixtures. Failures are confined to their
// fixture: the run keeps going and reports them in the result. The output
// root is locked for the duration; the snapshot index is written even when
// some fixtures failed.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	log := logging.New("oracle")

	if err := cfg.Capture.Mode.Validate(); err != nil {
		return nil, err
	}
	m, err := manifest.Load(cfg.ManifestPath)
	if err != nil {
		return nil, err
	}
	fixtures, err := m.Select(cfg.Selection)
	if err != nil {
		return nil, err
	}
	if len(fixtures) == 0 {
		return nil, fmt.Errorf("no fixtures selected from %s", cfg.ManifestPath)
	}

	release, err := capture.LockOutputRoot(cfg.Capture.OutputRoot)
	if err != nil {
		return nil, err
	}
	defer release()

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	log.Info("oracle run starting",
		"fixtures", len(fixtures), "workers", workers, "mode", cfg.Capture.Mode.Name())

	outcomes := make([]FixtureOutcome, len(fixtures))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, fx := range fixtures {
		i, fx := i, fx
		g.Go(func() error {
			outcomes[i] = runFixture(gctx, fx, cfg)
			return nil
		})
	}
	_ = g.Wait() // errors captured in FixtureOutcome.Err

	res := &Result{Outcomes: outcomes}
	if cfg.Snapshot {
		res.Index = snapshot.NewIndex(cfg.ManifestPath, cfg.Capture.OutputRoot, cfg.Capture.Mode.Name())
	}
	for _, oc := range outcomes {
		if oc.Err != nil {
			res.Failed = append(res.Failed, oc.Fixture.ID)
			log.Error("fixture failed", "fixture", oc.Fixture.ID, "error", oc.Err)
			continue
		}
		if res.Index != nil && oc.Snapshot != nil {
			res.Index.Add(*oc.Snapshot)
		}
	}
	if res.Index != nil {
		if err := res.Index.Write(); err != nil {
			return res, err
		}
	}

	if cfg.PolicyPath != "" {
		report, err := compare.Run(compare.RunConfig{
			ManifestPath: cfg.ManifestPath,
			PolicyPath:   cfg.PolicyPath,
			BaselineRoot: cfg.Capture.OutputRoot,
			ActualRoot:   cfg.ActualRoot,
			Selection:    cfg.Selection,
			ReportPath:   cfg.ReportPath,
		})
		if err != nil {
			return res, err
		}
		res.Report = report
	}

	log.Info("oracle run finished", "fixtures", len(fixtures), "failed", len(res.Failed))
	return res, nil
}

func runFixture(ctx context.Context, fx manifest.Fixture, cfg Config) FixtureOutcome {
	oc := FixtureOutcome{Fixture: fx}

	out, err := capture.Run(ctx, fx, cfg.Capture)
	oc.Capture = out
	if err != nil {
		oc.Err = err
		return oc
	}

	if cfg.Snapshot {
		meta, err := snapshot.Materialize(fx, out.Workspace, out.MissingEntries)
		if err != nil {
			oc.Err = fmt.Errorf("materialize snapshot: %w", err)
			return oc
		}
		oc.Snapshot = meta
	}

	if cfg.ActualRoot != "" {
		oc.ActualDir = actualDir(cfg.ActualRoot, fx.ID)
		if err := os.MkdirAll(oc.ActualDir, 0o755); err != nil {
			oc.Err = fmt.Errorf("create actual dir: %w", err)
			return oc
		}
	}
	for _, hook := range cfg.Hooks {
		if err := hook(ctx, fx, out.Workspace, oc.ActualDir); err != nil {
			oc.Err = fmt.Errorf("hook: %w", err)
			return oc
		}
	}
	return oc
}

func actualDir(root, fixtureID string) string {
	return filepath.Join(root, fixtureID, "actual")
}
