package xref

import (
	"slices"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	xerrors "github.com/FocuswithJustin/xrefview/core/errors"
)

// MaxLine is the largest line number a range spec may name or imply.
const MaxLine = 1 << 26

// RangeKind distinguishes the three range token shapes.
type RangeKind int

const (
	// RangeSingle is a single line: "a".
	RangeSingle RangeKind = iota
	// RangeBounded is a closed run: "a-b".
	RangeBounded
	// RangeOpen is a run whose end is implied by the caller: "a-".
	RangeOpen
)

// Range is one token of a range spec. End is only meaningful for RangeBounded.
type Range struct {
	Kind  RangeKind
	Start int
	End   int
}

// String renders the token in description syntax.
func (r Range) String() string {
	switch r.Kind {
	case RangeBounded:
		return strconv.Itoa(r.Start) + "-" + strconv.Itoa(r.End)
	case RangeOpen:
		return strconv.Itoa(r.Start) + "-"
	default:
		return strconv.Itoa(r.Start)
	}
}

// Last returns the final line the token covers given the implied upper bound.
// For a reversed or empty run Last is below Start.
func (r Range) Last(impliedUpperBound int) int {
	switch r.Kind {
	case RangeBounded:
		return r.End
	case RangeOpen:
		return impliedUpperBound
	default:
		return r.Start
	}
}

// AppendLines appends the ascending run covered by r to dst.
func (r Range) AppendLines(dst []int, impliedUpperBound int) []int {
	last := r.Last(impliedUpperBound)
	if last < r.Start {
		return dst
	}
	dst = slices.Grow(dst, last-r.Start+1)
	for line := r.Start; ; line++ {
		dst = append(dst, line)
		if line == last {
			return dst
		}
	}
}

// RangeSpec is a parsed, comma separated list of range tokens in source order.
type RangeSpec []Range

// String renders the spec in canonical description syntax.
func (s RangeSpec) String() string {
	parts := make([]string, len(s))
	for i, r := range s {
		parts[i] = r.String()
	}
	return strings.Join(parts, ",")
}

// Compact returns the shortest bounded spec covering lines. Duplicates are
// dropped and runs are merged, so Compact([]int{9, 2, 3, 4}) is "2-4,9".
func Compact(lines []int) RangeSpec {
	sorted := slices.Compact(slices.Sorted(slices.Values(lines)))
	var spec RangeSpec
	for i := 0; i < len(sorted); {
		j := i
		for j+1 < len(sorted) && sorted[j+1] == sorted[j]+1 {
			j++
		}
		if i == j {
			spec = append(spec, Range{Kind: RangeSingle, Start: sorted[i]})
		} else {
			spec = append(spec, Range{Kind: RangeBounded, Start: sorted[i], End: sorted[j]})
		}
		i = j + 1
	}
	return spec
}

// Expand concatenates the lines of every token in order.
func (s RangeSpec) Expand(impliedUpperBound int) []int {
	var lines []int
	for _, r := range s {
		lines = r.AppendLines(lines, impliedUpperBound)
	}
	return lines
}

// rangeSpecGrammar is the participle grammar for a range spec.
// Examples: "3", "5-7", "9-", "3,5-7,9-"
//
// Every "-" and bound after the start is captured so that "a-b-c" parses and
// can be rejected with a precise message instead of a generic syntax error.
//
//nolint:govet // participle grammar tags are not standard struct tags
type rangeSpecGrammar struct {
	Tokens []*rangeTokenGrammar `parser:"@@ ( ',' @@ )*"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type rangeTokenGrammar struct {
	Pos    lexer.Position
	EndPos lexer.Position

	Start string   `parser:"@Int"`
	Tail  []string `parser:"( @'-' @Int? )*"`
}

// rangeSpecLexer defines the lexer for range specs.
var rangeSpecLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Punct", Pattern: `[,\-]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// rangeSpecParser is the participle parser for range specs.
var rangeSpecParser = participle.MustBuild[rangeSpecGrammar](
	participle.Lexer(rangeSpecLexer),
	participle.Elide("Whitespace"),
)

// ParseRangeSpec parses a range spec. An empty or blank spec is valid and
// yields no ranges.
func ParseRangeSpec(spec string) (RangeSpec, error) {
	if strings.TrimSpace(spec) == "" {
		return nil, nil
	}

	parsed, err := rangeSpecParser.ParseString("", spec)
	if err != nil {
		return nil, &xerrors.FormatError{
			Token:   strings.TrimSpace(spec),
			Message: "expected tokens of the form a, a-b or a- separated by ','",
			Err:     err,
		}
	}

	out := make(RangeSpec, 0, len(parsed.Tokens))
	for _, tok := range parsed.Tokens {
		r, err := tok.toRange(spec)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (t *rangeTokenGrammar) toRange(spec string) (Range, error) {
	text := t.Start
	if t.Pos.Offset >= 0 && t.EndPos.Offset <= len(spec) && t.Pos.Offset < t.EndPos.Offset {
		text = strings.TrimSpace(spec[t.Pos.Offset:t.EndPos.Offset])
	}

	dashes := 0
	for _, part := range t.Tail {
		if part == "-" {
			dashes++
		}
	}
	if dashes > 1 {
		return Range{}, xerrors.NewFormat(text, "too many '-' separators")
	}

	start, err := parseLineNumber(t.Start, text)
	if err != nil {
		return Range{}, err
	}
	switch len(t.Tail) {
	case 0:
		return Range{Kind: RangeSingle, Start: start}, nil
	case 1:
		return Range{Kind: RangeOpen, Start: start}, nil
	default:
		end, err := parseLineNumber(t.Tail[1], text)
		if err != nil {
			return Range{}, err
		}
		return Range{Kind: RangeBounded, Start: start, End: end}, nil
	}
}

func parseLineNumber(digits, token string) (int, error) {
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return 0, &xerrors.FormatError{
			Token:   token,
			Message: "bound is not a valid non-negative integer",
			Err:     err,
		}
	}
	if n > MaxLine {
		return 0, xerrors.NewFormat(token, "bound exceeds "+strconv.Itoa(MaxLine))
	}
	return n, nil
}

// Expand parses a range spec and expands it into line numbers. Open ranges end
// at impliedUpperBound, which may not exceed MaxLine. It fails with a
// FormatError for malformed tokens.
func Expand(rangeSpec string, impliedUpperBound int) ([]int, error) {
	if impliedUpperBound > MaxLine {
		return nil, xerrors.Wrapf(xerrors.ErrInvalidInput, "implied upper bound %d exceeds %d", impliedUpperBound, MaxLine)
	}
	spec, err := ParseRangeSpec(rangeSpec)
	if err != nil {
		return nil, err
	}
	return spec.Expand(impliedUpperBound), nil
}
