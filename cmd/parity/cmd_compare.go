package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"parity/internal/compare"
)

var compareFlags struct {
	manifest       string
	policy         string
	baselineRoot   string
	actualRoot     string
	baselineSubdir string
	actualSubdir   string
	report         string
	quiet          bool
	selection      selectionFlags
}

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Validate a candidate output tree against the golden baselines",
	Long: "Compare walks the union of each fixture's baseline and actual trees,\n" +
		"applies the tolerance policy per artifact, and writes the regression\n" +
		"report. The command fails when any fixture misses its threshold.",
	RunE: runCompare,
}

func init() {
	f := compareCmd.Flags()
	f.StringVar(&compareFlags.manifest, "manifest", defaultManifest, "Golden fixture manifest path")
	f.StringVar(&compareFlags.policy, "policy", defaultPolicy, "Numeric tolerance policy path")
	f.StringVar(&compareFlags.baselineRoot, "baseline-root", defaultOracleRoot, "Root of the captured baseline trees")
	f.StringVar(&compareFlags.actualRoot, "actual-root", defaultActualRoot, "Root of the candidate output trees")
	f.StringVar(&compareFlags.baselineSubdir, "baseline-subdir", "baseline", "Per-fixture baseline subdirectory")
	f.StringVar(&compareFlags.actualSubdir, "actual-subdir", "actual", "Per-fixture actual subdirectory")
	f.StringVar(&compareFlags.report, "report", defaultReport, "Regression report output path")
	f.BoolVar(&compareFlags.quiet, "quiet", false, "Suppress the human-readable summary")
	compareFlags.selection.register(f)
}

func runCompare(_ *cobra.Command, _ []string) error {
	report, err := compare.Run(compare.RunConfig{
		ManifestPath:   compareFlags.manifest,
		PolicyPath:     compareFlags.policy,
		BaselineRoot:   compareFlags.baselineRoot,
		ActualRoot:     compareFlags.actualRoot,
		BaselineSubdir: compareFlags.baselineSubdir,
		ActualSubdir:   compareFlags.actualSubdir,
		Selection:      compareFlags.selection.selection(),
		ReportPath:     compareFlags.report,
	})
	if err != nil {
		return err
	}
	if !compareFlags.quiet {
		fmt.Print(report.Summary())
	}
	if !report.Passed {
		return fmt.Errorf("regression failed: %d fixture(s), %d artifact(s) mismatched",
			report.MismatchFixtureCount, report.MismatchArtifactCount)
	}
	return nil
}
