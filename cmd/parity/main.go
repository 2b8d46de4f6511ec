package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"parity/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	logLevel  string
	logFormat string
}

var rootCmd = &cobra.Command{
	Use:   "parity",
	Short: "Golden-master regression validation for the FEFF pipeline",
	Long: "Parity captures reference runs of the FEFF compute pipeline into hashed\n" +
		"baseline snapshots and validates candidate output trees against them\n" +
		"under a category-based numeric tolerance policy.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logging.Init(logging.ParseLevel(rootFlags.logLevel), rootFlags.logFormat)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVar(&rootFlags.logFormat, "log-format", "text", "Log format (text, json, color)")

	rootCmd.AddCommand(fixturesCmd)
	rootCmd.AddCommand(captureCmd)
	rootCmd.AddCommand(oracleCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
