package snapshot

import (
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Index is the run-level snapshot record written at the output root.
type Index struct {
	RunID        string     `json:"run_id"`
	GeneratedAt  time.Time  `json:"generated_at"`
	ManifestPath string     `json:"manifest_path"`
	OutputRoot   string     `json:"output_root"`
	CaptureMode  string     `json:"capture_mode"`
	FixtureCount int        `json:"fixture_count"`
	Fixtures     []Metadata `json:"fixtures"`
}

// NewIndex creates an index with a fresh run id.
func NewIndex(manifestPath, outputRoot, captureMode string) *Index {
	return &Index{
		RunID:        uuid.NewString(),
		GeneratedAt:  time.Now().UTC(),
		ManifestPath: manifestPath,
		OutputRoot:   outputRoot,
		CaptureMode:  captureMode,
		Fixtures:     []Metadata{},
	}
}

// Add records one materialized fixture snapshot. Fixtures are kept sorted
// by id regardless of the order captures finish in.
func (ix *Index) Add(meta Metadata) {
	ix.Fixtures = append(ix.Fixtures, meta)
	sort.Slice(ix.Fixtures, func(i, j int) bool {
		return ix.Fixtures[i].FixtureID < ix.Fixtures[j].FixtureID
	})
	ix.FixtureCount = len(ix.Fixtures)
}

// Write stores the index at <outputRoot>/snapshot-index.
func (ix *Index) Write() error {
	return writeJSON(filepath.Join(ix.OutputRoot, "snapshot-index"), ix)
}
