package capture

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"parity/internal/baseline"
	"parity/internal/logging"
	"parity/internal/manifest"
)

// Config drives the capture of one or more fixtures into an output root.
type Config struct {
	OutputRoot          string
	Mode                ExecutionMode
	AllowMissingEntries bool
	// StepTimeout bounds each pipeline step; zero means no limit.
	StepTimeout time.Duration
}

// StepResult records one executed pipeline step.
type StepResult struct {
	Name     string        `json:"name"`
	ExitCode int           `json:"exit_code"`
	Duration time.Duration `json:"duration"`
}

// Outcome is the result of capturing one fixture.
type Outcome struct {
	FixtureID      string
	Workspace      *Workspace
	Resolved       []*baseline.ResolvedEntry
	MissingEntries []string
	Steps          []StepResult
}

// Run captures one fixture: reset the workspace, stage entry files, run
// the pipeline, write metadata. The workspace and metadata are written
// even when a step fails, so partial output stays inspectable.
func Run(ctx context.Context, fx manifest.Fixture, cfg Config) (*Outcome, error) {
	log := logging.New("capture")

	if err := cfg.Mode.Validate(); err != nil {
		return nil, err
	}

	ws, err := NewWorkspace(cfg.OutputRoot, fx.ID)
	if err != nil {
		return nil, err
	}
	out := &Outcome{FixtureID: fx.ID, Workspace: ws}

	resolved, missing, err := baseline.NewResolver(fx).ResolveAll()
	if err != nil {
		return nil, err
	}
	out.Resolved = resolved
	out.MissingEntries = missing
	if len(missing) > 0 && !cfg.AllowMissingEntries {
		return nil, &baseline.UnresolvedEntryError{FixtureID: fx.ID, Entry: missing[0]}
	}
	for _, m := range missing {
		log.Warn("entry file missing, continuing", "fixture", fx.ID, "entry", m)
	}

	for _, re := range resolved {
		for _, dir := range []string{ws.Inputs, ws.Outputs} {
			if err := os.WriteFile(filepath.Join(dir, re.StageName), re.Data, 0o644); err != nil {
				return nil, fmt.Errorf("stage entry %s: %w", re.StageName, err)
			}
		}
		log.Debug("staged entry file", "fixture", fx.ID, "entry", re.Name, "origin", re.Origin)
	}

	runErr := executeSteps(ctx, fx.ID, ws, cfg, out)
	if metaErr := writeMetadata(fx, cfg, out); metaErr != nil && runErr == nil {
		runErr = metaErr
	}
	if runErr != nil {
		return out, runErr
	}
	log.Info("fixture captured", "fixture", fx.ID, "steps", len(out.Steps), "missing_entries", len(missing))
	return out, nil
}

func executeSteps(ctx context.Context, fixtureID string, ws *Workspace, cfg Config, out *Outcome) error {
	logFile, err := os.Create(ws.CaptureLogPath())
	if err != nil {
		return fmt.Errorf("create capture log: %w", err)
	}
	defer logFile.Close()

	runStep := func(name string, argv []string) error {
		stepCtx := ctx
		if cfg.StepTimeout > 0 {
			var cancel context.CancelFunc
			stepCtx, cancel = context.WithTimeout(ctx, cfg.StepTimeout)
			defer cancel()
		}

		fmt.Fprintf(logFile, "=== step %d: %s ===\n", len(out.Steps)+1, name)
		cmd := exec.CommandContext(stepCtx, argv[0], argv[1:]...)
		cmd.Dir = ws.Outputs
		cmd.Stdout = logFile
		cmd.Stderr = logFile

		start := time.Now()
		err := cmd.Run()
		step := StepResult{Name: name, Duration: time.Since(start)}
		if err != nil {
			step.ExitCode = -1
			if cmd.ProcessState != nil {
				step.ExitCode = cmd.ProcessState.ExitCode()
			}
			out.Steps = append(out.Steps, step)
			fmt.Fprintf(logFile, "step %s failed: %v\n", name, err)
			return &CaptureFailedError{FixtureID: fixtureID, Step: name, ExitCode: step.ExitCode, Err: err}
		}
		out.Steps = append(out.Steps, step)
		return nil
	}

	if cfg.Mode.Runner != "" {
		return runStep("runner", []string{"sh", "-c", cfg.Mode.Runner})
	}

	for _, ms := range ModuleSteps {
		trigger := filepath.Join(ws.Outputs, ms.Trigger)
		if _, err := os.Stat(trigger); err != nil {
			continue
		}
		bin := filepath.Join(cfg.Mode.BinDir, ms.Module)
		if err := runStep(ms.Module, []string{bin}); err != nil {
			return err
		}
	}
	if len(out.Steps) == 0 {
		return fmt.Errorf("fixture %s: %w", fixtureID, ErrNoStepsExecuted)
	}
	return nil
}

// writeMetadata records the capture parameters as key=value lines.
func writeMetadata(fx manifest.Fixture, cfg Config, out *Outcome) error {
	var b strings.Builder
	fmt.Fprintf(&b, "fixture_id=%s\n", fx.ID)
	fmt.Fprintf(&b, "baseline_status=%s\n", fx.BaselineStatus)
	fmt.Fprintf(&b, "input_directory=%s\n", fx.InputDirectory)
	fmt.Fprintf(&b, "run_mode=%s\n", cfg.Mode.Name())
	fmt.Fprintf(&b, "allow_missing_entry_files=%s\n", boolFlag(cfg.AllowMissingEntries))
	if len(out.MissingEntries) > 0 {
		fmt.Fprintf(&b, "missing_entry_files=%s\n", strings.Join(out.MissingEntries, ","))
	}
	if len(out.Steps) > 0 {
		names := make([]string, len(out.Steps))
		for i, s := range out.Steps {
			names[i] = s.Name
		}
		fmt.Fprintf(&b, "steps_executed=%s\n", strings.Join(names, ","))
	}
	return os.WriteFile(out.Workspace.MetadataPath(), []byte(b.String()), 0o644)
}

func boolFlag(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
