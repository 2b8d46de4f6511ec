// Package capture runs the oracle pipeline for fixtures: it stages entry
// files into an isolated per-fixture workspace, executes the configured
// runner or module chain, and records logs and metadata for snapshotting.
package capture

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Workspace is the per-fixture capture directory layout under the output
// root: inputs/ holds the staged entry files, outputs/ is the working
// directory the modules run in, logs/ collects execution logs.
type Workspace struct {
	Root    string
	Inputs  string
	Outputs string
	Logs    string
}

// NewWorkspace creates a clean workspace for the fixture, removing any
// leftovers from a previous run.
func NewWorkspace(outputRoot, fixtureID string) (*Workspace, error) {
	root := filepath.Join(outputRoot, fixtureID)
	if err := os.RemoveAll(root); err != nil {
		return nil, fmt.Errorf("reset workspace %s: %w", root, err)
	}
	ws := &Workspace{
		Root:    root,
		Inputs:  filepath.Join(root, "inputs"),
		Outputs: filepath.Join(root, "outputs"),
		Logs:    filepath.Join(root, "logs"),
	}
	for _, dir := range []string{ws.Inputs, ws.Outputs, ws.Logs} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create workspace dir %s: %w", dir, err)
		}
	}
	return ws, nil
}

// MetadataPath is the fixture-level capture record.
func (w *Workspace) MetadataPath() string {
	return filepath.Join(w.Root, "metadata")
}

// CaptureLogPath is the combined step output log.
func (w *Workspace) CaptureLogPath() string {
	return filepath.Join(w.Logs, "capture.log")
}

// LockOutputRoot guards an output root against concurrent capture runs.
// The returned release function must be called when the run finishes.
func LockOutputRoot(root string) (release func() error, err error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create output root: %w", err)
	}
	fl := flock.New(filepath.Join(root, ".capture.lock"))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock output root %s: %w", root, err)
	}
	if !ok {
		return nil, fmt.Errorf("output root %s is locked by another capture run", root)
	}
	return fl.Unlock, nil
}
