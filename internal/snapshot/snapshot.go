// Package snapshot materializes captured oracle output into hashed,
// self-describing baseline trees. Each fixture gets a baseline/ directory,
// a checksums file over its content, and a snapshot-metadata record; a run
// level snapshot-index ties the fixtures together.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"parity/internal/baseline"
	"parity/internal/capture"
	"parity/internal/logging"
	"parity/internal/manifest"
)

// SourceRecord notes one baseline source that contributed to a snapshot.
// SHA256 is the content hash of file-backed sources (archives, loose
// files); directory sources carry no single hash.
type SourceRecord struct {
	Kind   string `json:"kind"`
	Path   string `json:"path"`
	SHA256 string `json:"sha256,omitempty"`
}

// Metadata is the per-fixture snapshot record.
type Metadata struct {
	FixtureID         string         `json:"fixture_id"`
	BaselineStatus    string         `json:"baseline_status"`
	InputDirectory    string         `json:"input_directory"`
	CapturedAt        time.Time      `json:"captured_at"`
	FileCount         int            `json:"file_count"`
	Sources           []SourceRecord `json:"baseline_sources"`
	MissingEntryFiles []string       `json:"missing_entry_files,omitempty"`
}

// Materialize builds the baseline snapshot for a captured fixture: the
// baseline/ tree is reset, the capture outputs are copied in, baseline
// sources are overlaid on top (a reference archive wins over captured
// output for the same path), and the checksums and metadata files are
// written next to it.
func Materialize(fx manifest.Fixture, ws *capture.Workspace, missingEntries []string) (*Metadata, error) {
	log := logging.New("snapshot")

	baselineDir := filepath.Join(ws.Root, "baseline")
	if err := os.RemoveAll(baselineDir); err != nil {
		return nil, fmt.Errorf("reset baseline dir: %w", err)
	}
	if err := os.MkdirAll(baselineDir, 0o755); err != nil {
		return nil, err
	}

	if err := copyTree(ws.Outputs, baselineDir); err != nil {
		return nil, fmt.Errorf("copy capture outputs: %w", err)
	}

	meta := &Metadata{
		FixtureID:         fx.ID,
		BaselineStatus:    fx.BaselineStatus,
		InputDirectory:    fx.InputDirectory,
		CapturedAt:        time.Now().UTC(),
		Sources:           []SourceRecord{},
		MissingEntryFiles: missingEntries,
	}
	for _, src := range fx.BaselineSources {
		if err := overlaySource(src, baselineDir); err != nil {
			return nil, err
		}
		rec := SourceRecord{Kind: src.Kind, Path: src.Path}
		if info, err := os.Stat(src.Path); err == nil && info.Mode().IsRegular() {
			sum, err := hashFile(src.Path)
			if err != nil {
				return nil, fmt.Errorf("hash baseline source %s: %w", src.Path, err)
			}
			rec.SHA256 = sum
		}
		meta.Sources = append(meta.Sources, rec)
	}

	sums, err := HashTree(baselineDir)
	if err != nil {
		return nil, err
	}
	meta.FileCount = len(sums)
	if err := writeChecksums(filepath.Join(ws.Root, "checksums"), sums); err != nil {
		return nil, err
	}
	if err := writeJSON(filepath.Join(ws.Root, "snapshot-metadata"), meta); err != nil {
		return nil, err
	}
	log.Info("snapshot materialized", "fixture", fx.ID, "files", meta.FileCount, "sources", len(meta.Sources))
	return meta, nil
}

func overlaySource(src manifest.BaselineSource, baselineDir string) error {
	switch src.Kind {
	case manifest.KindReferenceArchive:
		a, err := baseline.OpenArchive(src.Path)
		if err != nil {
			return err
		}
		for _, e := range a.Files() {
			dst := filepath.Join(baselineDir, filepath.FromSlash(e.Name))
			if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(dst, e.Data, 0o644); err != nil {
				return err
			}
		}
		return nil
	case manifest.KindReferenceDir:
		return copyTree(src.Path, baselineDir)
	case manifest.KindLooseFiles:
		info, err := os.Stat(src.Path)
		if err != nil {
			return fmt.Errorf("loose baseline source %s: %w", src.Path, err)
		}
		if info.IsDir() {
			return copyTree(src.Path, baselineDir)
		}
		return copyFile(src.Path, filepath.Join(baselineDir, filepath.Base(src.Path)))
	default:
		return fmt.Errorf("unknown baseline source kind %q", src.Kind)
	}
}

// Checksum pairs a slash-separated relative path with the sha256 of its
// content.
type Checksum struct {
	Path   string
	SHA256 string
}

// HashTree hashes every regular file under root, sorted by relative path.
// Hashes cover content only, so regenerating an unchanged tree yields
// byte-identical output.
func HashTree(root string) ([]Checksum, error) {
	var sums []Checksum
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		sum, err := hashFile(p)
		if err != nil {
			return err
		}
		sums = append(sums, Checksum{Path: filepath.ToSlash(rel), SHA256: sum})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(sums, func(i, j int) bool { return sums[i].Path < sums[j].Path })
	return sums, nil
}

func hashFile(p string) (string, error) {
	f, err := os.Open(p)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func writeChecksums(path string, sums []Checksum) error {
	var b strings.Builder
	for _, s := range sums {
		fmt.Fprintf(&b, "%s  %s\n", s.SHA256, s.Path)
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// VerifyChecksums re-hashes the baseline tree under snapshotRoot and
// compares against its recorded checksums file.
func VerifyChecksums(snapshotRoot string) error {
	recorded, err := readChecksums(filepath.Join(snapshotRoot, "checksums"))
	if err != nil {
		return err
	}
	current, err := HashTree(filepath.Join(snapshotRoot, "baseline"))
	if err != nil {
		return err
	}
	if len(recorded) != len(current) {
		return fmt.Errorf("checksum verification failed: %d files recorded, %d present", len(recorded), len(current))
	}
	for i := range recorded {
		if recorded[i] != current[i] {
			return fmt.Errorf("checksum mismatch for %s", current[i].Path)
		}
	}
	return nil
}

func readChecksums(path string) ([]Checksum, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sums []Checksum
	for _, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}
		sum, rel, ok := strings.Cut(line, "  ")
		if !ok {
			return nil, fmt.Errorf("malformed checksums line %q", line)
		}
		sums = append(sums, Checksum{Path: rel, SHA256: sum})
	}
	return sums, nil
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(p, target)
	})
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
