package capture

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"parity/internal/baseline"
	"parity/internal/manifest"
)

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("capture tests drive sh scripts")
	}
}

func writeScript(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatal(err)
	}
}

func inputDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestRun_RunnerMode(t *testing.T) {
	requireUnix(t)
	fx := manifest.Fixture{
		ID:             "fx-runner",
		InputDirectory: inputDir(t, map[string]string{"feff.inp": "TITLE Cu\n"}),
		EntryFiles:     []string{"feff.inp"},
		BaselineStatus: manifest.StatusRequiresCapture,
	}
	outputRoot := t.TempDir()
	cfg := Config{
		OutputRoot: outputRoot,
		Mode:       ExecutionMode{Runner: "cp feff.inp xmu.dat && echo captured"},
	}

	out, err := Run(context.Background(), fx, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Steps) != 1 || out.Steps[0].Name != "runner" {
		t.Errorf("steps = %+v", out.Steps)
	}

	// Staged input in both inputs/ and outputs/, runner output in outputs/.
	for _, p := range []string{
		filepath.Join(out.Workspace.Inputs, "feff.inp"),
		filepath.Join(out.Workspace.Outputs, "feff.inp"),
		filepath.Join(out.Workspace.Outputs, "xmu.dat"),
	} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("missing %s: %v", p, err)
		}
	}

	logData, err := os.ReadFile(out.Workspace.CaptureLogPath())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(logData), "=== step 1: runner ===") {
		t.Errorf("capture log missing step marker:\n%s", logData)
	}
	if !strings.Contains(string(logData), "captured") {
		t.Errorf("capture log missing step output:\n%s", logData)
	}

	meta, err := os.ReadFile(out.Workspace.MetadataPath())
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"fixture_id=fx-runner",
		"run_mode=runner",
		"allow_missing_entry_files=0",
		"steps_executed=runner",
	} {
		if !strings.Contains(string(meta), want) {
			t.Errorf("metadata missing %q:\n%s", want, meta)
		}
	}
}

func TestRun_BinDirModeTriggerOrder(t *testing.T) {
	requireUnix(t)
	binDir := t.TempDir()
	// Each fake module appends its name; pot also drops xsph.inp so a
	// later-chain trigger appears mid-run.
	writeScript(t, filepath.Join(binDir, "rdinp"), "echo rdinp >> chain.txt\ntouch pot.inp\n")
	writeScript(t, filepath.Join(binDir, "pot"), "echo pot >> chain.txt\ntouch xsph.inp\n")
	writeScript(t, filepath.Join(binDir, "screen"), "echo screen >> chain.txt\n")
	writeScript(t, filepath.Join(binDir, "xsph"), "echo xsph >> chain.txt\n")

	fx := manifest.Fixture{
		ID:             "fx-chain",
		InputDirectory: inputDir(t, map[string]string{"feff.inp": "TITLE\n"}),
		EntryFiles:     []string{"feff.inp"},
		BaselineStatus: manifest.StatusRequiresCapture,
	}
	cfg := Config{OutputRoot: t.TempDir(), Mode: ExecutionMode{BinDir: binDir}}

	out, err := Run(context.Background(), fx, cfg)
	if err != nil {
		t.Fatal(err)
	}
	chain, err := os.ReadFile(filepath.Join(out.Workspace.Outputs, "chain.txt"))
	if err != nil {
		t.Fatal(err)
	}
	// pot.inp triggers both pot and screen; xsph.inp written by pot is
	// picked up later in the same pass.
	want := "rdinp\npot\nscreen\nxsph\n"
	if string(chain) != want {
		t.Errorf("chain = %q, want %q", chain, want)
	}
}

func TestRun_BinDirNoTriggers(t *testing.T) {
	requireUnix(t)
	fx := manifest.Fixture{
		ID:             "fx-empty",
		InputDirectory: inputDir(t, map[string]string{"notes.txt": "x\n"}),
		EntryFiles:     []string{"notes.txt"},
		BaselineStatus: manifest.StatusRequiresCapture,
	}
	cfg := Config{OutputRoot: t.TempDir(), Mode: ExecutionMode{BinDir: t.TempDir()}}

	_, err := Run(context.Background(), fx, cfg)
	if !errors.Is(err, ErrNoStepsExecuted) {
		t.Fatalf("expected ErrNoStepsExecuted, got %v", err)
	}
}

func TestRun_StepFailure(t *testing.T) {
	requireUnix(t)
	fx := manifest.Fixture{
		ID:             "fx-fail",
		InputDirectory: inputDir(t, map[string]string{"feff.inp": "TITLE\n"}),
		EntryFiles:     []string{"feff.inp"},
		BaselineStatus: manifest.StatusRequiresCapture,
	}
	cfg := Config{
		OutputRoot: t.TempDir(),
		Mode:       ExecutionMode{Runner: "echo about to fail; exit 3"},
	}

	out, err := Run(context.Background(), fx, cfg)
	var cf *CaptureFailedError
	if !errors.As(err, &cf) {
		t.Fatalf("expected CaptureFailedError, got %v", err)
	}
	if cf.ExitCode != 3 || cf.Step != "runner" {
		t.Errorf("error = %+v", cf)
	}
	// Partial workspace and metadata survive the failure.
	if out == nil || out.Workspace == nil {
		t.Fatal("outcome should be returned on step failure")
	}
	if _, statErr := os.Stat(out.Workspace.MetadataPath()); statErr != nil {
		t.Errorf("metadata should be written on failure: %v", statErr)
	}
	logData, _ := os.ReadFile(out.Workspace.CaptureLogPath())
	if !strings.Contains(string(logData), "step runner failed") {
		t.Errorf("capture log missing failure line:\n%s", logData)
	}
}

func TestRun_MissingEntries(t *testing.T) {
	requireUnix(t)
	fx := manifest.Fixture{
		ID:             "fx-missing",
		InputDirectory: inputDir(t, map[string]string{"feff.inp": "TITLE\n"}),
		EntryFiles:     []string{"feff.inp", "REFERENCE/band.inp"},
		BaselineStatus: manifest.StatusRequiresCapture,
	}

	t.Run("strict mode fails", func(t *testing.T) {
		cfg := Config{OutputRoot: t.TempDir(), Mode: ExecutionMode{Runner: "true"}}
		_, err := Run(context.Background(), fx, cfg)
		var un *baseline.UnresolvedEntryError
		if !errors.As(err, &un) {
			t.Fatalf("expected UnresolvedEntryError, got %v", err)
		}
	})

	t.Run("allow-missing continues and records", func(t *testing.T) {
		cfg := Config{
			OutputRoot:          t.TempDir(),
			Mode:                ExecutionMode{Runner: "true"},
			AllowMissingEntries: true,
		}
		out, err := Run(context.Background(), fx, cfg)
		if err != nil {
			t.Fatal(err)
		}
		meta, err := os.ReadFile(out.Workspace.MetadataPath())
		if err != nil {
			t.Fatal(err)
		}
		for _, want := range []string{
			"allow_missing_entry_files=1",
			"missing_entry_files=REFERENCE/band.inp",
		} {
			if !strings.Contains(string(meta), want) {
				t.Errorf("metadata missing %q:\n%s", want, meta)
			}
		}
	})
}

func TestRun_StepTimeout(t *testing.T) {
	requireUnix(t)
	fx := manifest.Fixture{
		ID:             "fx-slow",
		InputDirectory: inputDir(t, map[string]string{"feff.inp": "TITLE\n"}),
		EntryFiles:     []string{"feff.inp"},
		BaselineStatus: manifest.StatusRequiresCapture,
	}
	cfg := Config{
		OutputRoot:  t.TempDir(),
		Mode:        ExecutionMode{Runner: "sleep 30"},
		StepTimeout: 100 * time.Millisecond,
	}

	start := time.Now()
	_, err := Run(context.Background(), fx, cfg)
	if err == nil {
		t.Fatal("expected timeout failure")
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("step was not cancelled, took %v", elapsed)
	}
}

func TestRun_WorkspaceReset(t *testing.T) {
	requireUnix(t)
	outputRoot := t.TempDir()
	stale := filepath.Join(outputRoot, "fx-reset", "outputs", "stale.dat")
	if err := os.MkdirAll(filepath.Dir(stale), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(stale, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	fx := manifest.Fixture{
		ID:             "fx-reset",
		InputDirectory: inputDir(t, map[string]string{"feff.inp": "TITLE\n"}),
		EntryFiles:     []string{"feff.inp"},
		BaselineStatus: manifest.StatusRequiresCapture,
	}
	cfg := Config{OutputRoot: outputRoot, Mode: ExecutionMode{Runner: "true"}}
	if _, err := Run(context.Background(), fx, cfg); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale output should be removed by workspace reset")
	}
}

func TestExecutionMode_Validate(t *testing.T) {
	cases := []struct {
		mode ExecutionMode
		ok   bool
	}{
		{ExecutionMode{Runner: "true"}, true},
		{ExecutionMode{BinDir: "/opt/feff/bin"}, true},
		{ExecutionMode{}, false},
		{ExecutionMode{Runner: "true", BinDir: "/x"}, false},
	}
	for _, tc := range cases {
		if err := tc.mode.Validate(); (err == nil) != tc.ok {
			t.Errorf("Validate(%+v) err=%v, want ok=%v", tc.mode, err, tc.ok)
		}
	}
}

func TestLockOutputRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "out")
	release, err := LockOutputRoot(root)
	if err != nil {
		t.Fatal(err)
	}
	defer release()

	if _, err := LockOutputRoot(root); err == nil {
		t.Error("second lock on the same root should fail")
	}
}
