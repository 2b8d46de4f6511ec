package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"parity/internal/capture"
	"parity/internal/oracle"
)

type captureFlagSet struct {
	manifest     string
	outputRoot   string
	runner       string
	binDir       string
	allowMissing bool
	stepTimeout  time.Duration
	workers      int
	selection    selectionFlags
}

func (c *captureFlagSet) register(f *pflag.FlagSet, outputRoot string) {
	f.StringVar(&c.manifest, "manifest", defaultManifest, "Golden fixture manifest path")
	f.StringVar(&c.outputRoot, "output-root", outputRoot, "Root directory for per-fixture capture workspaces")
	f.StringVar(&c.runner, "runner", "", "Shell command that runs the whole pipeline for a fixture")
	f.StringVar(&c.binDir, "bin-dir", "", "Directory of module binaries driven by trigger files")
	f.BoolVar(&c.allowMissing, "allow-missing-entry-files", false, "Continue when an entry file cannot be resolved")
	f.DurationVar(&c.stepTimeout, "step-timeout", 0, "Per-step time limit (0 = none)")
	f.IntVar(&c.workers, "workers", 1, "Concurrent fixture captures")
	c.selection.register(f)
}

func (c *captureFlagSet) captureConfig() capture.Config {
	return capture.Config{
		OutputRoot:          c.outputRoot,
		Mode:                capture.ExecutionMode{Runner: c.runner, BinDir: c.binDir},
		AllowMissingEntries: c.allowMissing,
		StepTimeout:         c.stepTimeout,
	}
}

var captureFlags captureFlagSet

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Run the pipeline for fixtures without snapshotting",
	Long: "Capture stages each selected fixture's entry files into an isolated\n" +
		"workspace and runs the pipeline there, keeping outputs and logs for\n" +
		"inspection. Use the oracle command to also materialize baselines.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runCapture(cmd.Context(), captureFlags)
	},
}

func init() {
	captureFlags.register(captureCmd.Flags(), defaultOracleRoot)
}

func runCapture(ctx context.Context, flags captureFlagSet) error {
	res, err := oracle.Run(ctx, oracle.Config{
		ManifestPath: flags.manifest,
		Capture:      flags.captureConfig(),
		Selection:    flags.selection.selection(),
		Workers:      flags.workers,
	})
	if err != nil {
		return err
	}
	if !res.Passed() {
		return fmt.Errorf("capture failed for %d fixture(s): %s",
			len(res.Failed), strings.Join(res.Failed, ", "))
	}
	return nil
}
