package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sampleJSON = `{
  "defaultComparison": {
    "passFailThreshold": {"minimumArtifactPassRate": 1.0, "maxArtifactFailures": 0}
  },
  "fixtures": [
    {
      "id": "FX-CU-METAL",
      "inputDirectory": "fixtures/cu-metal",
      "entryFiles": ["feff.inp"],
      "baselineSources": [{"kind": "reference_archive", "path": "fixtures/cu-metal/REFERENCE.zip"}],
      "baselineStatus": "requires_capture",
      "modulesCovered": ["rdinp", "pot", "xsph"]
    },
    {
      "id": "FX-GE-EELS",
      "inputDirectory": "fixtures/ge-eels",
      "entryFiles": ["feff.inp", "eels.inp"],
      "baselineStatus": "reference_files_available",
      "comparison": {
        "passFailThreshold": {"minimumArtifactPassRate": 0.75, "maxArtifactFailures": 2}
      }
    }
  ]
}`

const sampleYAML = `defaultComparison:
  passFailThreshold:
    minimumArtifactPassRate: 1.0
    maxArtifactFailures: 0
fixtures:
  - id: FX-CU-METAL
    inputDirectory: fixtures/cu-metal
    entryFiles: [feff.inp]
    baselineStatus: requires_capture
`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_JSON(t *testing.T) {
	m, err := Load(writeTemp(t, "manifest.json", sampleJSON))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(m.Fixtures) != 2 {
		t.Fatalf("expected 2 fixtures, got %d", len(m.Fixtures))
	}
	want := Fixture{
		ID:             "FX-CU-METAL",
		InputDirectory: "fixtures/cu-metal",
		EntryFiles:     []string{"feff.inp"},
		BaselineSources: []BaselineSource{
			{Kind: KindReferenceArchive, Path: "fixtures/cu-metal/REFERENCE.zip"},
		},
		BaselineStatus: StatusRequiresCapture,
		ModulesCovered: []string{"rdinp", "pot", "xsph"},
	}
	if diff := cmp.Diff(want, m.Fixtures[0]); diff != "" {
		t.Errorf("fixture mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_YAML(t *testing.T) {
	m, err := Load(writeTemp(t, "manifest.yaml", sampleYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Fixtures[0].ID != "FX-CU-METAL" {
		t.Errorf("unexpected fixture id %q", m.Fixtures[0].ID)
	}
	th := m.DefaultComparison.PassFailThreshold
	if th == nil || th.MinimumArtifactPassRate != 1.0 {
		t.Errorf("default threshold not parsed: %+v", th)
	}
}

func TestLoad_ContentSniffWithoutExtension(t *testing.T) {
	// JSON content in a file without a recognized extension.
	m, err := Load(writeTemp(t, "manifest", sampleJSON))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(m.Fixtures) != 2 {
		t.Errorf("expected 2 fixtures, got %d", len(m.Fixtures))
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	var re *ReadError
	if !errors.As(err, &re) {
		t.Fatalf("expected ReadError, got %T: %v", err, err)
	}
}

func TestLoad_InvalidStatus(t *testing.T) {
	doc := `{"fixtures": [{"id": "x", "inputDirectory": "d", "entryFiles": ["a"], "baselineStatus": "made_up"}]}`
	_, err := Load(writeTemp(t, "bad.json", doc))
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %T: %v", err, err)
	}
}

func TestLoad_DuplicateID(t *testing.T) {
	doc := `{"fixtures": [
		{"id": "x", "inputDirectory": "d", "entryFiles": ["a"], "baselineStatus": "requires_capture"},
		{"id": "x", "inputDirectory": "e", "entryFiles": ["b"], "baselineStatus": "requires_capture"}
	]}`
	_, err := Load(writeTemp(t, "dup.json", doc))
	if err == nil {
		t.Fatal("expected duplicate id error")
	}
}

func TestLoad_UnknownField(t *testing.T) {
	doc := `{"fixtures": [], "surprise": true}`
	_, err := Load(writeTemp(t, "unknown.json", doc))
	if err == nil {
		t.Fatal("expected unknown field error")
	}
}

func TestSelect(t *testing.T) {
	m := &Manifest{Fixtures: []Fixture{
		{ID: "a", BaselineStatus: StatusRequiresCapture},
		{ID: "b", BaselineStatus: StatusReferenceArchive},
		{ID: "c", BaselineStatus: StatusRequiresCapture},
	}}

	t.Run("default selects requires_capture", func(t *testing.T) {
		got, err := m.Select(Selection{})
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{"a", "c"}, ids(got)); diff != "" {
			t.Error(diff)
		}
	})

	t.Run("all", func(t *testing.T) {
		got, err := m.Select(Selection{All: true})
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 3 {
			t.Errorf("expected 3, got %d", len(got))
		}
	})

	t.Run("by status", func(t *testing.T) {
		got, err := m.Select(Selection{Status: StatusReferenceArchive})
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{"b"}, ids(got)); diff != "" {
			t.Error(diff)
		}
	})

	t.Run("explicit ids keep request order", func(t *testing.T) {
		got, err := m.Select(Selection{IDs: []string{"c", "a"}})
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{"c", "a"}, ids(got)); diff != "" {
			t.Error(diff)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		if _, err := m.Select(Selection{IDs: []string{"zz"}}); err == nil {
			t.Error("expected error for unknown id")
		}
	})
}

func ids(fs []Fixture) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.ID
	}
	return out
}

func TestThresholdAccept(t *testing.T) {
	cases := []struct {
		name           string
		th             Threshold
		passed, failed int
		want           bool
	}{
		{"strict default all pass", DefaultThreshold(), 3, 0, true},
		{"strict default one failure", DefaultThreshold(), 2, 1, false},
		{"rate ok but failures over cap", Threshold{MinimumArtifactPassRate: 0.5, MaxArtifactFailures: 1}, 8, 2, false},
		{"failures ok but rate under floor", Threshold{MinimumArtifactPassRate: 0.9, MaxArtifactFailures: 5}, 8, 2, false},
		{"both clauses hold", Threshold{MinimumArtifactPassRate: 0.75, MaxArtifactFailures: 2}, 6, 2, true},
		{"zero artifacts pass", DefaultThreshold(), 0, 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.th.Accept(tc.passed, tc.failed); got != tc.want {
				t.Errorf("Accept(%d, %d) = %v, want %v", tc.passed, tc.failed, got, tc.want)
			}
		})
	}
}

func TestEffectiveThreshold(t *testing.T) {
	m := &Manifest{DefaultComparison: Comparison{
		PassFailThreshold: &Threshold{MinimumArtifactPassRate: 0.9, MaxArtifactFailures: 1},
	}}
	own := Fixture{Comparison: &Comparison{
		PassFailThreshold: &Threshold{MinimumArtifactPassRate: 0.5, MaxArtifactFailures: 3},
	}}
	if got := own.EffectiveThreshold(m); got.MaxArtifactFailures != 3 {
		t.Errorf("fixture threshold should win, got %+v", got)
	}
	if got := (Fixture{}).EffectiveThreshold(m); got.MinimumArtifactPassRate != 0.9 {
		t.Errorf("manifest default should apply, got %+v", got)
	}
	if got := (Fixture{}).EffectiveThreshold(&Manifest{}); got != DefaultThreshold() {
		t.Errorf("strict default should apply, got %+v", got)
	}
}
