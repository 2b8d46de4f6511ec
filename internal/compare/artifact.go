// Package compare implements the regression comparison engine: artifacts
// are classified by the tolerance policy and checked byte-for-byte or
// numerically, fixtures aggregate artifact outcomes against a pass/fail
// threshold, and a run report rolls everything up.
package compare

import (
	"bytes"
	"fmt"

	"parity/internal/policy"
)

// ExactTextMetrics summarizes an exact_text comparison.
type ExactTextMetrics struct {
	BaselineBytes       int  `json:"baseline_bytes"`
	ActualBytes         int  `json:"actual_bytes"`
	FirstMismatchOffset *int `json:"first_mismatch_offset,omitempty"`
}

// ArtifactResult records the comparison outcome for one artifact.
type ArtifactResult struct {
	Path     string            `json:"path"`
	Mode     string            `json:"mode"`
	Category string            `json:"category,omitempty"`
	Passed   bool              `json:"passed"`
	Reason   string            `json:"reason,omitempty"`
	Exact    *ExactTextMetrics `json:"exact_text,omitempty"`
	Numeric  *NumericMetrics   `json:"numeric_tolerance,omitempty"`
}

// Artifact compares one artifact's baseline and actual content under the
// policy rule matching relPath.
func Artifact(pol *policy.Policy, relPath string, baseline, actual []byte) ArtifactResult {
	rule := pol.Classify(relPath)
	res := ArtifactResult{Path: relPath, Mode: rule.Mode, Category: rule.CategoryID}

	switch rule.Mode {
	case policy.ModeNumericTolerance:
		passed, reason, metrics := compareNumeric(baseline, actual, rule.Tolerance, pol.Parsing())
		res.Passed = passed
		res.Reason = reason
		res.Numeric = metrics
	default:
		passed, reason, metrics := compareExact(baseline, actual)
		res.Passed = passed
		res.Reason = reason
		res.Exact = metrics
	}
	return res
}

func compareExact(baseline, actual []byte) (bool, string, *ExactTextMetrics) {
	m := &ExactTextMetrics{BaselineBytes: len(baseline), ActualBytes: len(actual)}
	if bytes.Equal(baseline, actual) {
		return true, "", m
	}
	off := mismatchOffset(baseline, actual)
	m.FirstMismatchOffset = &off
	return false, fmt.Sprintf("Exact-text mismatch at byte %d (baseline=%d bytes, actual=%d bytes).",
		off, len(baseline), len(actual)), m
}

func mismatchOffset(a, b []byte) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}
