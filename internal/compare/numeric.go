package compare

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"parity/internal/policy"
)

// token is one whitespace-delimited field of an artifact line. Fields that
// parse as floats carry Value; everything else is compared as text.
type token struct {
	Text     string
	Value    float64
	IsNumber bool
}

// row is one comparable line with its 1-based position in the source file.
type row struct {
	Line   int
	Tokens []token
}

// parseRows tokenizes artifact content under the policy's parsing options.
// Comment lines and (optionally) empty lines are dropped; Fortran exponent
// markers are normalized so 1.0D-03 parses as 1.0e-03.
func parseRows(data []byte, opts policy.NumericParsing) []row {
	var rows []row
	lines := strings.Split(string(data), "\n")
	for i, raw := range lines {
		line := strings.TrimSuffix(raw, "\r")
		if opts.TrimWhitespace {
			line = strings.TrimSpace(line)
		}
		if line == "" {
			if opts.SkipEmptyLines || i == len(lines)-1 {
				continue
			}
			rows = append(rows, row{Line: i + 1})
			continue
		}
		if isComment(line, opts.CommentPrefixes) {
			continue
		}

		var fields []string
		if opts.CollapseWhitespace {
			fields = strings.Fields(line)
		} else {
			fields = strings.Split(line, " ")
		}
		tokens := make([]token, len(fields))
		for j, f := range fields {
			tokens[j] = parseToken(f, opts.FortranExponentMarkers)
		}
		rows = append(rows, row{Line: i + 1, Tokens: tokens})
	}
	return rows
}

func isComment(line string, prefixes []string) bool {
	trimmed := strings.TrimLeft(line, " \t")
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(trimmed, p) {
			return true
		}
	}
	return false
}

func parseToken(text string, markers []string) token {
	if v, err := strconv.ParseFloat(text, 64); err == nil {
		return token{Text: text, Value: v, IsNumber: true}
	}
	normalized := text
	for _, m := range markers {
		if m == "" {
			continue
		}
		normalized = strings.ReplaceAll(normalized, m, "E")
	}
	if normalized != text {
		if v, err := strconv.ParseFloat(normalized, 64); err == nil {
			return token{Text: text, Value: v, IsNumber: true}
		}
	}
	return token{Text: text}
}

// NumericMetrics summarizes a numeric_tolerance comparison.
type NumericMetrics struct {
	BaselineLines          int     `json:"baseline_lines"`
	ActualLines            int     `json:"actual_lines"`
	ComparedValues         int     `json:"compared_values"`
	ValuesOutsideTolerance int     `json:"values_outside_tolerance"`
	MaxAbsDiff             float64 `json:"max_abs_diff"`
	MaxRelDiff             float64 `json:"max_rel_diff"`
}

// compareNumeric compares two artifacts token by token under the given
// tolerance. Line-count and token-count differences are hard failures, as
// are non-finite mismatches when the policy says so.
func compareNumeric(baseline, actual []byte, tol policy.Tolerance, opts policy.NumericParsing) (bool, string, *NumericMetrics) {
	b := parseRows(baseline, opts)
	a := parseRows(actual, opts)
	m := &NumericMetrics{BaselineLines: len(b), ActualLines: len(a)}

	if len(b) != len(a) {
		return false, fmt.Sprintf("Numeric line count mismatch (baseline=%d, actual=%d).", len(b), len(a)), m
	}

	var (
		failures    int
		firstReason string
	)
	for i := range b {
		br, ar := b[i], a[i]
		if len(br.Tokens) != len(ar.Tokens) {
			return false, fmt.Sprintf("Numeric token count mismatch at line %d (baseline=%d, actual=%d).",
				br.Line, len(br.Tokens), len(ar.Tokens)), m
		}
		for j := range br.Tokens {
			bt, at := br.Tokens[j], ar.Tokens[j]
			switch {
			case bt.IsNumber && at.IsNumber:
				m.ComparedValues++
				ok, reason := compareValues(bt.Value, at.Value, br.Line, j, tol, opts, m)
				if !ok {
					failures++
					if firstReason == "" {
						firstReason = reason
					}
				}
			case bt.Text == at.Text:
				// non-numeric fields must match exactly
			default:
				failures++
				if firstReason == "" {
					firstReason = fmt.Sprintf("Token mismatch at line %d token %d (baseline=%q, actual=%q).",
						br.Line, j, bt.Text, at.Text)
				}
			}
		}
	}

	if failures > 0 {
		m.ValuesOutsideTolerance = failures
		return false, fmt.Sprintf("Numeric comparison found %d value(s) outside tolerance. First: %s", failures, firstReason), m
	}
	return true, "", m
}

func compareValues(bv, av float64, line, col int, tol policy.Tolerance, opts policy.NumericParsing, m *NumericMetrics) (bool, string) {
	bFinite, aFinite := isFinite(bv), isFinite(av)
	if !bFinite || !aFinite {
		if nonFiniteMatch(bv, av) {
			return true, ""
		}
		if opts.FailOnNaNOrInfMismatch {
			return false, fmt.Sprintf("Non-finite value mismatch at line %d token %d (baseline=%s, actual=%s).",
				line, col, formatValue(bv), formatValue(av))
		}
		return false, fmt.Sprintf("value mismatch at line %d token %d (baseline=%s, actual=%s)",
			line, col, formatValue(bv), formatValue(av))
	}

	absDiff := math.Abs(av - bv)
	relDiff := 0.0
	if absDiff > 0 {
		scale := math.Max(math.Abs(bv), tol.RelativeFloor)
		if scale > 0 {
			relDiff = absDiff / scale
		} else {
			relDiff = math.Inf(1)
		}
	}
	if absDiff > m.MaxAbsDiff {
		m.MaxAbsDiff = absDiff
	}
	if relDiff > m.MaxRelDiff {
		m.MaxRelDiff = relDiff
	}

	if tol.Within(bv, av) {
		return true, ""
	}
	return false, fmt.Sprintf("line %d token %d baseline=%v actual=%v abs_diff=%g rel_diff=%g",
		line, col, bv, av, absDiff, relDiff)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// nonFiniteMatch treats NaN as equal to NaN and requires matching sign for
// infinities.
func nonFiniteMatch(a, b float64) bool {
	if math.IsNaN(a) && math.IsNaN(b) {
		return true
	}
	if math.IsInf(a, 1) && math.IsInf(b, 1) {
		return true
	}
	if math.IsInf(a, -1) && math.IsInf(b, -1) {
		return true
	}
	return false
}

func formatValue(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
