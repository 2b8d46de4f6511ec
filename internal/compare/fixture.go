package compare

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"parity/internal/manifest"
	"parity/internal/policy"
)

// FixtureResult aggregates the artifact outcomes of one fixture.
type FixtureResult struct {
	FixtureID           string             `json:"fixture_id"`
	Passed              bool               `json:"passed"`
	ArtifactCount       int                `json:"artifact_count"`
	PassedArtifactCount int                `json:"passed_artifact_count"`
	FailedArtifactCount int                `json:"failed_artifact_count"`
	ArtifactPassRate    float64            `json:"artifact_pass_rate"`
	Threshold           manifest.Threshold `json:"threshold"`
	Error               string             `json:"error,omitempty"`
	Artifacts           []ArtifactResult   `json:"artifacts"`
}

// FirstFailure returns the first failed artifact, if any.
func (f FixtureResult) FirstFailure() (ArtifactResult, bool) {
	for _, a := range f.Artifacts {
		if !a.Passed {
			return a, true
		}
	}
	return ArtifactResult{}, false
}

// Fixture compares the artifact trees rooted at baselineDir and actualDir
// and applies the fixture's pass/fail threshold. The comparison walks the
// union of both trees: an artifact present on only one side fails with a
// missing-artifact reason. When both trees are absent entirely, a single
// failing placeholder artifact "." records the fact.
func Fixture(pol *policy.Policy, fixtureID, baselineDir, actualDir string, th manifest.Threshold) (FixtureResult, error) {
	res := FixtureResult{FixtureID: fixtureID, Threshold: th}

	baseFiles, baseExists, err := collectRelativeFiles(baselineDir)
	if err != nil {
		return res, err
	}
	actFiles, actExists, err := collectRelativeFiles(actualDir)
	if err != nil {
		return res, err
	}

	if !baseExists && !actExists {
		res.Artifacts = []ArtifactResult{{
			Path:   ".",
			Passed: false,
			Reason: "Baseline and actual trees are both missing.",
		}}
		res.ArtifactCount = 1
		res.FailedArtifactCount = 1
		return res, nil
	}

	union := make(map[string]struct{}, len(baseFiles)+len(actFiles))
	for _, p := range baseFiles {
		union[p] = struct{}{}
	}
	for _, p := range actFiles {
		union[p] = struct{}{}
	}
	paths := make([]string, 0, len(union))
	for p := range union {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	inBase := toSet(baseFiles)
	inAct := toSet(actFiles)
	for _, p := range paths {
		switch {
		case !inAct[p]:
			res.Artifacts = append(res.Artifacts, ArtifactResult{
				Path: p, Passed: false, Reason: "Missing actual artifact.",
			})
		case !inBase[p]:
			res.Artifacts = append(res.Artifacts, ArtifactResult{
				Path: p, Passed: false, Reason: "Missing baseline artifact.",
			})
		default:
			bData, err := os.ReadFile(filepath.Join(baselineDir, filepath.FromSlash(p)))
			if err != nil {
				return res, fmt.Errorf("read baseline artifact %s: %w", p, err)
			}
			aData, err := os.ReadFile(filepath.Join(actualDir, filepath.FromSlash(p)))
			if err != nil {
				return res, fmt.Errorf("read actual artifact %s: %w", p, err)
			}
			res.Artifacts = append(res.Artifacts, Artifact(pol, p, bData, aData))
		}
	}

	for _, a := range res.Artifacts {
		if a.Passed {
			res.PassedArtifactCount++
		} else {
			res.FailedArtifactCount++
		}
	}
	res.ArtifactCount = len(res.Artifacts)
	res.ArtifactPassRate = 1.0
	if res.ArtifactCount > 0 {
		res.ArtifactPassRate = float64(res.PassedArtifactCount) / float64(res.ArtifactCount)
	}
	res.Passed = th.Accept(res.PassedArtifactCount, res.FailedArtifactCount)
	return res, nil
}

func toSet(paths []string) map[string]bool {
	s := make(map[string]bool, len(paths))
	for _, p := range paths {
		s[p] = true
	}
	return s
}

// collectRelativeFiles lists the regular files under root as sorted
// slash-separated relative paths. A missing root is not an error; exists
// reports whether the directory was there.
func collectRelativeFiles(root string) (paths []string, exists bool, err error) {
	info, err := os.Stat(root)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if !info.IsDir() {
		return nil, false, fmt.Errorf("%s is not a directory", root)
	}

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
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
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, true, err
	}
	sort.Strings(paths)
	return paths, true, nil
}
