package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"parity/internal/manifest"
)

var fixturesFlags struct {
	manifest  string
	selection selectionFlags
	asJSON    bool
}

var fixturesCmd = &cobra.Command{
	Use:   "fixtures",
	Short: "List the fixtures a manifest selects",
	RunE:  runFixtures,
}

func init() {
	f := fixturesCmd.Flags()
	f.StringVar(&fixturesFlags.manifest, "manifest", defaultManifest, "Golden fixture manifest path")
	f.BoolVar(&fixturesFlags.asJSON, "json", false, "Emit the selection as JSON")
	fixturesFlags.selection.register(f)
}

func runFixtures(_ *cobra.Command, _ []string) error {
	m, err := manifest.Load(fixturesFlags.manifest)
	if err != nil {
		return err
	}
	fixtures, err := m.Select(fixturesFlags.selection.selection())
	if err != nil {
		return err
	}

	if fixturesFlags.asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(fixtures)
	}

	for _, fx := range fixtures {
		modules := "-"
		if len(fx.ModulesCovered) > 0 {
			modules = strings.Join(fx.ModulesCovered, ",")
		}
		fmt.Printf("%s\t%s\tentries=%d\tmodules=%s\n",
			fx.ID, fx.BaselineStatus, len(fx.EntryFiles), modules)
	}
	fmt.Printf("%d fixture(s) selected\n", len(fixtures))
	return nil
}
