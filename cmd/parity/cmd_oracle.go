package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"parity/internal/oracle"
)

var oracleFlags captureFlagSet

var oracleCompareFlags struct {
	policy     string
	actualRoot string
	report     string
	quiet      bool
}

var oracleCmd = &cobra.Command{
	Use:   "oracle",
	Short: "Capture fixtures and materialize golden baseline snapshots",
	Long: "Oracle runs the pipeline for the selected fixtures and materializes\n" +
		"each capture into a hashed baseline tree with checksums and snapshot\n" +
		"metadata, plus a run-level snapshot index at the output root. With\n" +
		"--policy set it also compares each captured baseline against the\n" +
		"candidate tree under --actual-root and writes the regression report.",
	RunE: runOracleCmd,
}

func init() {
	oracleFlags.register(oracleCmd.Flags(), defaultOracleRoot)
	f := oracleCmd.Flags()
	f.StringVar(&oracleCompareFlags.policy, "policy", "", "Numeric tolerance policy path; enables the comparison pass")
	f.StringVar(&oracleCompareFlags.actualRoot, "actual-root", defaultActualRoot, "Root of the candidate output trees")
	f.StringVar(&oracleCompareFlags.report, "report", defaultReport, "Regression report output path")
	f.BoolVar(&oracleCompareFlags.quiet, "quiet", false, "Suppress the human-readable summary")
}

func runOracleCmd(cmd *cobra.Command, _ []string) error {
	cfg := oracle.Config{
		ManifestPath: oracleFlags.manifest,
		Capture:      oracleFlags.captureConfig(),
		Selection:    oracleFlags.selection.selection(),
		Workers:      oracleFlags.workers,
		Snapshot:     true,
		ActualRoot:   oracleCompareFlags.actualRoot,
		PolicyPath:   oracleCompareFlags.policy,
		ReportPath:   oracleCompareFlags.report,
	}
	if cfg.PolicyPath == "" {
		cfg.ReportPath = ""
	}

	res, err := oracle.Run(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	if res.Report != nil && !oracleCompareFlags.quiet {
		fmt.Print(res.Report.Summary())
	}
	if len(res.Failed) > 0 {
		return fmt.Errorf("capture failed for %d fixture(s): %s",
			len(res.Failed), strings.Join(res.Failed, ", "))
	}
	if res.Report != nil && !res.Report.Passed {
		return fmt.Errorf("regression failed: %d fixture(s), %d artifact(s) mismatched",
			res.Report.MismatchFixtureCount, res.Report.MismatchArtifactCount)
	}
	return nil
}
