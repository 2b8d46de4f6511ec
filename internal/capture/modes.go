package capture

import (
	"errors"
	"fmt"
)

// ModuleStep pairs a pipeline module binary with the input file whose
// presence triggers it.
type ModuleStep struct {
	Module  string
	Trigger string
}

// ModuleSteps is the serial module chain in execution order. In bin-dir
// mode each module runs only when its trigger file is present in the
// fixture's outputs directory.
var ModuleSteps = []ModuleStep{
	{"rdinp", "feff.inp"},
	{"pot", "pot.inp"},
	{"screen", "pot.inp"},
	{"sfconv", "sfconv.inp"},
	{"eels", "eels.inp"},
	{"xsph", "xsph.inp"},
	{"band", "band.inp"},
	{"ldos", "ldos.inp"},
	{"rixs", "rixs.inp"},
	{"crpa", "crpa.inp"},
	{"path", "paths.inp"},
	{"ff2x", "ff2x.inp"},
	{"dmdw", "dmdw.inp"},
	{"fms", "fms.inp"},
	{"compton", "compton.inp"},
	{"fullspectrum", "fullspectrum.inp"},
}

// ExecutionMode selects how a fixture's oracle run is executed. Exactly
// one of Runner or BinDir must be set: Runner is a shell command executed
// once per fixture; BinDir points at a directory of module binaries driven
// by the trigger table.
type ExecutionMode struct {
	Runner string
	BinDir string
}

func (m ExecutionMode) Validate() error {
	if (m.Runner == "") == (m.BinDir == "") {
		return errors.New("exactly one of runner or bin-dir must be set")
	}
	return nil
}

// Name returns the mode label recorded in capture metadata.
func (m ExecutionMode) Name() string {
	if m.BinDir != "" {
		return "bindir"
	}
	return "runner"
}

// CaptureFailedError reports a pipeline step exiting non-zero.
type CaptureFailedError struct {
	FixtureID string
	Step      string
	ExitCode  int
	Err       error
}

func (e *CaptureFailedError) Error() string {
	return fmt.Sprintf("fixture %s: step %s failed (exit code %d): %v", e.FixtureID, e.Step, e.ExitCode, e.Err)
}

func (e *CaptureFailedError) Unwrap() error { return e.Err }

// ErrNoStepsExecuted reports a bin-dir run where no trigger file matched
// any module, which means the fixture produced no oracle output at all.
var ErrNoStepsExecuted = errors.New("no pipeline steps executed; no trigger files matched")
