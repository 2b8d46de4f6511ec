package compare

import (
	"path/filepath"

	"parity/internal/logging"
	"parity/internal/manifest"
	"parity/internal/policy"
)

// RunConfig drives a manifest-wide comparison between two captured trees.
type RunConfig struct {
	ManifestPath string
	PolicyPath   string

	// BaselineRoot and ActualRoot hold one directory per fixture id; the
	// subdir below each fixture names the tree to compare.
	BaselineRoot   string
	ActualRoot     string
	BaselineSubdir string // default "baseline"
	ActualSubdir   string // default "actual"

	Selection manifest.Selection

	// ReportPath, when set, receives the JSON report. The report is
	// written even when the run fails.
	ReportPath string
}

// Run compares every selected fixture and returns the aggregated report.
func Run(cfg RunConfig) (*Report, error) {
	log := logging.New("compare")

	if cfg.BaselineSubdir == "" {
		cfg.BaselineSubdir = "baseline"
	}
	if cfg.ActualSubdir == "" {
		cfg.ActualSubdir = "actual"
	}

	m, err := manifest.Load(cfg.ManifestPath)
	if err != nil {
		return nil, err
	}
	pol, err := policy.Load(cfg.PolicyPath)
	if err != nil {
		return nil, err
	}
	fixtures, err := m.Select(cfg.Selection)
	if err != nil {
		return nil, err
	}

	report := NewReport(cfg.ManifestPath, cfg.PolicyPath, cfg.BaselineRoot, cfg.ActualRoot)
	for _, fx := range fixtures {
		baselineDir := filepath.Join(cfg.BaselineRoot, fx.ID, cfg.BaselineSubdir)
		actualDir := filepath.Join(cfg.ActualRoot, fx.ID, cfg.ActualSubdir)
		log.Debug("comparing fixture", "fixture", fx.ID, "baseline", baselineDir, "actual", actualDir)

		fr, err := Fixture(pol, fx.ID, baselineDir, actualDir, fx.EffectiveThreshold(m))
		if err != nil {
			// Infrastructure errors fail the fixture but not the run.
			fr.FixtureID = fx.ID
			fr.Passed = false
			fr.Error = err.Error()
			log.Error("fixture comparison failed", "fixture", fx.ID, "error", err)
		}
		report.Add(fr)
		log.Info("fixture compared",
			"fixture", fx.ID,
			"passed", fr.Passed,
			"artifacts", fr.ArtifactCount,
			"failed_artifacts", fr.FailedArtifactCount)
	}

	if cfg.ReportPath != "" {
		if err := report.WriteFile(cfg.ReportPath); err != nil {
			return report, err
		}
		log.Info("report written", "path", cfg.ReportPath, "passed", report.Passed)
	}
	return report, nil
}
