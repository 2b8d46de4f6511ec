// Package policy loads the numeric tolerance policy and classifies
// comparison artifacts into its categories. A policy declares an ordered
// list of categories with file globs; the first matching category decides
// how an artifact is compared.
package policy

import (
	"encoding/json"
	"fmt"
	"math"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Comparison modes.
const (
	ModeExactText        = "exact_text"
	ModeNumericTolerance = "numeric_tolerance"
)

// StrategyFirstMatch is the only supported category match strategy:
// categories are tried in declaration order and the first glob hit wins.
const StrategyFirstMatch = "first_match"

// Tolerance bounds the acceptable numeric drift between a baseline value
// and an actual value.
type Tolerance struct {
	AbsTol        float64 `json:"absTol" yaml:"absTol"`
	RelTol        float64 `json:"relTol" yaml:"relTol"`
	RelativeFloor float64 `json:"relativeFloor" yaml:"relativeFloor"`
}

// Within reports whether actual is acceptably close to baseline. A value
// passes if the absolute difference is within absTol, or within relTol
// scaled by max(|baseline|, relativeFloor). The floor keeps the relative
// clause meaningful near zero.
func (t Tolerance) Within(baseline, actual float64) bool {
	diff := math.Abs(actual - baseline)
	if diff <= t.AbsTol {
		return true
	}
	scale := math.Max(math.Abs(baseline), t.RelativeFloor)
	return diff <= t.RelTol*scale
}

// NumericParsing controls how artifact lines are tokenized before numeric
// comparison.
type NumericParsing struct {
	TrimWhitespace         bool     `json:"trimWhitespace" yaml:"trimWhitespace"`
	CollapseWhitespace     bool     `json:"collapseWhitespace" yaml:"collapseWhitespace"`
	SkipEmptyLines         bool     `json:"skipEmptyLines" yaml:"skipEmptyLines"`
	CommentPrefixes        []string `json:"commentPrefixes" yaml:"commentPrefixes"`
	FortranExponentMarkers []string `json:"fortranExponentMarkers" yaml:"fortranExponentMarkers"`
	FailOnNaNOrInfMismatch bool     `json:"failOnNaNOrInfMismatch" yaml:"failOnNaNOrInfMismatch"`
}

// DefaultNumericParsing matches the tokenization FEFF-style Fortran output
// needs: whitespace-separated columns, '#' comment lines, D exponents.
func DefaultNumericParsing() NumericParsing {
	return NumericParsing{
		TrimWhitespace:         true,
		CollapseWhitespace:     true,
		SkipEmptyLines:         true,
		CommentPrefixes:        []string{"#"},
		FortranExponentMarkers: []string{"D", "d"},
		FailOnNaNOrInfMismatch: true,
	}
}

// UnmarshalJSON decodes over the defaults so a partial block keeps the
// documented default for omitted fields.
func (n *NumericParsing) UnmarshalJSON(data []byte) error {
	type alias NumericParsing
	a := alias(DefaultNumericParsing())
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*n = NumericParsing(a)
	return nil
}

func (n *NumericParsing) UnmarshalYAML(value *yaml.Node) error {
	type alias NumericParsing
	a := alias(DefaultNumericParsing())
	if err := value.Decode(&a); err != nil {
		return err
	}
	*n = NumericParsing(a)
	return nil
}

// Category is one policy bucket: a mode plus the globs that route
// artifacts into it.
type Category struct {
	ID        string     `json:"id" yaml:"id"`
	Mode      string     `json:"mode" yaml:"mode"`
	FileGlobs []string   `json:"fileGlobs" yaml:"fileGlobs"`
	Tolerance *Tolerance `json:"tolerance,omitempty" yaml:"tolerance,omitempty"`
}

// Policy is the loaded tolerance policy document.
type Policy struct {
	DefaultMode    string          `json:"defaultMode" yaml:"defaultMode"`
	MatchStrategy  string          `json:"matchStrategy,omitempty" yaml:"matchStrategy,omitempty"`
	NumericParsing *NumericParsing `json:"numericParsing,omitempty" yaml:"numericParsing,omitempty"`
	Categories     []Category      `json:"categories" yaml:"categories"`
}

// Parsing returns the numeric parsing options, falling back to the
// defaults when the document omits the block.
func (p *Policy) Parsing() NumericParsing {
	if p.NumericParsing != nil {
		return *p.NumericParsing
	}
	return DefaultNumericParsing()
}

// Rule is the comparison decision for one artifact.
type Rule struct {
	Mode       string
	CategoryID string
	Tolerance  Tolerance
}

// Classify resolves the rule for an artifact path. Categories are tried in
// order; the first glob match wins. With no match the policy's default
// mode applies with no category and zero tolerance.
func (p *Policy) Classify(artifact string) Rule {
	name := normalizePath(artifact)
	for _, c := range p.Categories {
		for _, g := range c.FileGlobs {
			ok, err := doublestar.Match(g, name)
			if err != nil {
				continue
			}
			if ok {
				r := Rule{Mode: c.Mode, CategoryID: c.ID}
				if c.Tolerance != nil {
					r.Tolerance = *c.Tolerance
				}
				return r
			}
		}
	}
	return Rule{Mode: p.DefaultMode}
}

func normalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimPrefix(p, "./")
	return path.Clean(p)
}

func validate(p *Policy) error {
	if p.MatchStrategy != "" && p.MatchStrategy != StrategyFirstMatch {
		return fmt.Errorf("unsupported matchStrategy %q", p.MatchStrategy)
	}
	seen := make(map[string]struct{}, len(p.Categories))
	for _, c := range p.Categories {
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("duplicate category id %q", c.ID)
		}
		seen[c.ID] = struct{}{}
		if c.Mode == ModeNumericTolerance && c.Tolerance == nil {
			return fmt.Errorf("category %q: numeric_tolerance requires a tolerance block", c.ID)
		}
		for _, g := range c.FileGlobs {
			if !doublestar.ValidatePattern(g) {
				return fmt.Errorf("category %q: invalid glob %q", c.ID, g)
			}
		}
	}
	return nil
}
