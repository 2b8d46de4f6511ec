// Package manifest loads and validates golden fixture manifests. A manifest
// enumerates regression fixtures: where their input decks live, which entry
// files a capture run must stage, and where pre-existing baselines can be
// found.
package manifest

import (
	"fmt"
)

// Baseline status values a fixture may declare.
const (
	StatusRequiresCapture  = "requires_capture"
	StatusReferenceArchive = "reference_archive_available"
	StatusReferenceFiles   = "reference_files_available"
)

// Baseline source kinds.
const (
	KindReferenceArchive = "reference_archive"
	KindReferenceDir     = "reference_dir"
	KindLooseFiles       = "loose_files"
)

// Manifest is the top-level fixture catalog.
type Manifest struct {
	DefaultComparison Comparison `json:"defaultComparison" yaml:"defaultComparison"`
	Fixtures          []Fixture  `json:"fixtures" yaml:"fixtures"`
}

// Comparison carries the pass/fail threshold applied to a fixture's artifact
// results.
type Comparison struct {
	PassFailThreshold *Threshold `json:"passFailThreshold,omitempty" yaml:"passFailThreshold,omitempty"`
}

// Threshold decides whether a fixture passes given its artifact outcomes.
// The zero value is not meaningful; use DefaultThreshold.
type Threshold struct {
	MinimumArtifactPassRate float64 `json:"minimumArtifactPassRate" yaml:"minimumArtifactPassRate"`
	MaxArtifactFailures     int     `json:"maxArtifactFailures" yaml:"maxArtifactFailures"`
}

// DefaultThreshold is the strict default: every artifact must pass.
func DefaultThreshold() Threshold {
	return Threshold{MinimumArtifactPassRate: 1.0, MaxArtifactFailures: 0}
}

// Accept reports whether a fixture with the given artifact counts satisfies
// the threshold. Both clauses must hold. A fixture with zero artifacts has a
// pass rate of 1.0.
func (t Threshold) Accept(passed, failed int) bool {
	total := passed + failed
	rate := 1.0
	if total > 0 {
		rate = float64(passed) / float64(total)
	}
	return failed <= t.MaxArtifactFailures && rate >= t.MinimumArtifactPassRate
}

// Fixture describes one regression scenario.
type Fixture struct {
	ID              string           `json:"id" yaml:"id"`
	InputDirectory  string           `json:"inputDirectory" yaml:"inputDirectory"`
	EntryFiles      []string         `json:"entryFiles" yaml:"entryFiles"`
	BaselineSources []BaselineSource `json:"baselineSources,omitempty" yaml:"baselineSources,omitempty"`
	BaselineStatus  string           `json:"baselineStatus" yaml:"baselineStatus"`
	ModulesCovered  []string         `json:"modulesCovered,omitempty" yaml:"modulesCovered,omitempty"`
	Comparison      *Comparison      `json:"comparison,omitempty" yaml:"comparison,omitempty"`
}

// EffectiveThreshold resolves the threshold for this fixture: the fixture's
// own comparison block wins, then the manifest default, then the strict
// default.
func (f Fixture) EffectiveThreshold(m *Manifest) Threshold {
	if f.Comparison != nil && f.Comparison.PassFailThreshold != nil {
		return *f.Comparison.PassFailThreshold
	}
	if m != nil && m.DefaultComparison.PassFailThreshold != nil {
		return *m.DefaultComparison.PassFailThreshold
	}
	return DefaultThreshold()
}

// BaselineSource points at one place baselines for a fixture may come from.
type BaselineSource struct {
	Kind string `json:"kind" yaml:"kind"`
	Path string `json:"path" yaml:"path"`
}

// Selection narrows a manifest to the fixtures a command should act on.
// With no IDs, All false and an empty Status, the default selection is
// every fixture whose baselineStatus is requires_capture.
type Selection struct {
	IDs    []string
	All    bool
	Status string
}

// Select returns the chosen fixtures in manifest order. Unknown IDs are an
// error.
func (m *Manifest) Select(sel Selection) ([]Fixture, error) {
	if len(sel.IDs) > 0 {
		byID := make(map[string]Fixture, len(m.Fixtures))
		for _, f := range m.Fixtures {
			byID[f.ID] = f
		}
		out := make([]Fixture, 0, len(sel.IDs))
		for _, id := range sel.IDs {
			f, ok := byID[id]
			if !ok {
				return nil, fmt.Errorf("fixture %q not found in manifest", id)
			}
			out = append(out, f)
		}
		return out, nil
	}

	var out []Fixture
	for _, f := range m.Fixtures {
		switch {
		case sel.All:
			out = append(out, f)
		case sel.Status != "":
			if f.BaselineStatus == sel.Status {
				out = append(out, f)
			}
		default:
			if f.BaselineStatus == StatusRequiresCapture {
				out = append(out, f)
			}
		}
	}
	return out, nil
}
