package compare

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Report is the top-level regression run record, written as JSON and
// rendered as a human summary.
type Report struct {
	RunID                 string          `json:"run_id"`
	GeneratedAt           time.Time       `json:"generated_at"`
	Passed                bool            `json:"passed"`
	ManifestPath          string          `json:"manifest_path"`
	PolicyPath            string          `json:"policy_path"`
	BaselineRoot          string          `json:"baseline_root"`
	ActualRoot            string          `json:"actual_root"`
	FixtureCount          int             `json:"fixture_count"`
	PassedFixtureCount    int             `json:"passed_fixture_count"`
	FailedFixtureCount    int             `json:"failed_fixture_count"`
	ArtifactCount         int             `json:"artifact_count"`
	PassedArtifactCount   int             `json:"passed_artifact_count"`
	FailedArtifactCount   int             `json:"failed_artifact_count"`
	MismatchFixtureCount  int             `json:"mismatch_fixture_count"`
	MismatchArtifactCount int             `json:"mismatch_artifact_count"`
	MismatchFixtures      []string        `json:"mismatch_fixtures"`
	Fixtures              []FixtureResult `json:"fixtures"`
}

// NewReport creates an empty report with a fresh run id.
func NewReport(manifestPath, policyPath, baselineRoot, actualRoot string) *Report {
	return &Report{
		RunID:            uuid.NewString(),
		GeneratedAt:      time.Now().UTC(),
		ManifestPath:     manifestPath,
		PolicyPath:       policyPath,
		BaselineRoot:     baselineRoot,
		ActualRoot:       actualRoot,
		MismatchFixtures: []string{},
	}
}

// Add appends one fixture result and updates the rollup counters.
func (r *Report) Add(fr FixtureResult) {
	r.Fixtures = append(r.Fixtures, fr)
	r.FixtureCount++
	r.ArtifactCount += fr.ArtifactCount
	r.PassedArtifactCount += fr.PassedArtifactCount
	r.FailedArtifactCount += fr.FailedArtifactCount
	r.MismatchArtifactCount += fr.FailedArtifactCount
	if fr.Passed {
		r.PassedFixtureCount++
	} else {
		r.FailedFixtureCount++
		r.MismatchFixtureCount++
		r.MismatchFixtures = append(r.MismatchFixtures, fr.FixtureID)
	}
	r.Passed = r.FailedFixtureCount == 0
}

// Summary renders the human-readable run summary.
func (r *Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Regression status: %s\n", passFail(r.Passed))
	fmt.Fprintf(&b, "Fixtures: %d total (%d passed, %d failed)\n",
		r.FixtureCount, r.PassedFixtureCount, r.FailedFixtureCount)
	fmt.Fprintf(&b, "Artifacts: %d total (%d passed, %d failed)\n",
		r.ArtifactCount, r.PassedArtifactCount, r.FailedArtifactCount)
	fmt.Fprintf(&b, "Mismatches: %d fixture(s), %d artifact(s)\n",
		r.MismatchFixtureCount, r.MismatchArtifactCount)
	for _, fx := range r.Fixtures {
		fmt.Fprintf(&b, "%s: %s (%d/%d artifacts, pass_rate=%.4f, threshold: min_pass_rate=%.4f, max_failures=%d)\n",
			fx.FixtureID, passFail(fx.Passed),
			fx.PassedArtifactCount, fx.ArtifactCount, fx.ArtifactPassRate,
			fx.Threshold.MinimumArtifactPassRate, fx.Threshold.MaxArtifactFailures)
		if fx.Error != "" {
			fmt.Fprintf(&b, "  capture error: %s\n", fx.Error)
		}
		if first, ok := fx.FirstFailure(); ok {
			fmt.Fprintf(&b, "  first failure: %s (%s)\n", first.Path, first.Reason)
		}
	}
	return b.String()
}

func passFail(ok bool) string {
	if ok {
		return "PASS"
	}
	return "FAIL"
}

// WriteFile writes the report as indented JSON, creating parent
// directories as needed.
func (r *Report) WriteFile(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
