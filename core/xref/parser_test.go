package xref

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	xerrors "github.com/FocuswithJustin/xrefview/core/errors"
)

func mustParse(t *testing.T, text string, left, right int) *Correspondence {
	t.Helper()
	corr, err := Parse(text, left, right)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return corr
}

func mustLines(t *testing.T, corr *Correspondence, side Side, group int) []int {
	t.Helper()
	lines, err := corr.LinesOf(side, group)
	if err != nil {
		t.Fatalf("LinesOf(%s, %d) failed: %v", side, group, err)
	}
	return lines
}

func TestParseOpenRanges(t *testing.T) {
	corr := mustParse(t, "1-9:1-7\n10-:8-\n", 15, 10)

	if corr.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", corr.Len())
	}

	tests := []struct {
		side  Side
		group int
		want  []int
	}{
		{Left, 0, []int{10, 11, 12, 13, 14, 15}},
		{Right, 0, []int{8, 9, 10}},
		{Left, 1, []int{1, 2, 3, 4, 5, 6, 7, 8, 9}},
		{Right, 1, []int{1, 2, 3, 4, 5, 6, 7}},
	}
	for _, tt := range tests {
		if got := mustLines(t, corr, tt.side, tt.group); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("LinesOf(%s, %d) = %v, want %v", tt.side, tt.group, got, tt.want)
		}
	}
}

func TestParseOpenRangeStopsAtNextGroup(t *testing.T) {
	// The middle row's open range ends right before the bottom row starts.
	corr := mustParse(t, "1-:1\n4-:2-3\n8-:4-\n", 10, 6)

	want := map[int][]int{
		0: {8, 9, 10},
		1: {4, 5, 6, 7},
		2: {1, 2, 3},
	}
	for g, lines := range want {
		if got := mustLines(t, corr, Left, g); !reflect.DeepEqual(got, lines) {
			t.Errorf("left group %d = %v, want %v", g, got, lines)
		}
	}
	if got := mustLines(t, corr, Right, 0); !reflect.DeepEqual(got, []int{4, 5, 6}) {
		t.Errorf("right group 0 = %v, want [4 5 6]", got)
	}
}

func TestParseGroupsMatchAcrossSides(t *testing.T) {
	text := "1:1\n2-3:2\n4:3-5\n5-:6-\n"
	corr := mustParse(t, text, 8, 9)

	if corr.Left.Groups() != corr.Right.Groups() {
		t.Fatalf("group counts differ: left %d, right %d", corr.Left.Groups(), corr.Right.Groups())
	}
	if corr.Left.Groups() != 4 {
		t.Errorf("Groups() = %d, want 4", corr.Left.Groups())
	}

	// Row i from the bottom is group i on both sides.
	rows := []int{4, 3, 2, 1}
	for g, wantRow := range rows {
		row, err := corr.RowOf(g)
		if err != nil {
			t.Fatalf("RowOf(%d): %v", g, err)
		}
		if row != wantRow {
			t.Errorf("RowOf(%d) = %d, want %d", g, row, wantRow)
		}
	}
	if got := mustLines(t, corr, Right, 1); !reflect.DeepEqual(got, []int{3, 4, 5}) {
		t.Errorf("right group 1 = %v, want [3 4 5]", got)
	}
}

func TestParseRoundTrip(t *testing.T) {
	corr := mustParse(t, "1-4,9:1-2\n5-8:3-\n10-:\n", 12, 7)

	for _, side := range Sides {
		idx := corr.Index(side)
		for _, line := range idx.MappedLines() {
			g, ok := idx.GroupOf(line)
			if !ok {
				t.Fatalf("%s line %d listed but GroupOf failed", side, line)
			}
			lines, err := idx.LinesOf(g)
			if err != nil {
				t.Fatalf("%s LinesOf(%d): %v", side, g, err)
			}
			found := false
			for _, l := range lines {
				if l == line {
					found = true
				}
			}
			if !found {
				t.Errorf("%s line %d maps to group %d but is not in %v", side, line, g, lines)
			}
		}
		for g := 0; g < idx.Groups(); g++ {
			lines, _ := idx.LinesOf(g)
			for _, line := range lines {
				if got, _ := idx.GroupOf(line); got != g {
					t.Errorf("%s group %d lists line %d which maps to %d", side, g, line, got)
				}
			}
		}
	}
}

func TestParseIdempotent(t *testing.T) {
	text := "1-9:1-7\n10-:8-\n"
	first := mustParse(t, text, 15, 10)
	second := mustParse(t, text, 15, 10)

	if !reflect.DeepEqual(first.Groups(), second.Groups()) {
		t.Errorf("Groups differ between parses:\n%v\n%v", first.Groups(), second.Groups())
	}
	for _, side := range Sides {
		if !reflect.DeepEqual(first.Index(side).MappedLines(), second.Index(side).MappedLines()) {
			t.Errorf("%s mapped lines differ", side)
		}
	}
	if first.Fingerprint() != second.Fingerprint() {
		t.Errorf("Fingerprint differs: %s vs %s", first.Fingerprint(), second.Fingerprint())
	}

	other := mustParse(t, "1-8:1-7\n9-:8-\n", 15, 10)
	if other.Fingerprint() == first.Fingerprint() {
		t.Error("different correspondences share a fingerprint")
	}
}

func TestParseStateError(t *testing.T) {
	tests := []struct {
		name        string
		left, right int
	}{
		{"left not loaded", 0, 10},
		{"right not loaded", 10, 0},
		{"neither loaded", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			corr, err := Parse("1:1\n", tt.left, tt.right)
			if corr != nil {
				t.Error("Parse returned a correspondence on StateError")
			}
			var se *xerrors.StateError
			if !errors.As(err, &se) {
				t.Fatalf("error = %v, want *StateError", err)
			}
		})
	}
}

func TestParseFormatError(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantRow  int
		wantSide string
	}{
		{"too many dashes", "1-2:1\n3-4-5:2\n", 2, "left"},
		{"right side letters", "1:x\n", 1, "right"},
		{"missing separator", "1:1\n\n2-3\n", 3, ""},
		{"extra separator", "1:1:1\n", 1, ""},
		{"line zero", "0:1\n", 1, "left"},
		{"start beyond document", "11:1\n", 1, "left"},
		{"end beyond document", "1:1-11\n", 1, "right"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			corr, err := Parse(tt.text, 10, 10)
			if corr != nil {
				t.Error("Parse returned a correspondence on FormatError")
			}
			var fe *xerrors.FormatError
			if !errors.As(err, &fe) {
				t.Fatalf("error = %v, want *FormatError", err)
			}
			if fe.Row != tt.wantRow {
				t.Errorf("Row = %d, want %d", fe.Row, tt.wantRow)
			}
			if fe.Side != tt.wantSide {
				t.Errorf("Side = %q, want %q", fe.Side, tt.wantSide)
			}
			if !errors.Is(err, xerrors.ErrInvalidFormat) {
				t.Error("error should match ErrInvalidFormat")
			}
		})
	}
}

func TestParseEmptySideField(t *testing.T) {
	corr := mustParse(t, "1-3:\n4-:1-\n", 6, 5)

	m, ok := corr.Query(Left, 2)
	if !ok {
		t.Fatal("Query(Left, 2) found no group")
	}
	if m.Group != 1 {
		t.Errorf("Group = %d, want 1", m.Group)
	}
	if !reflect.DeepEqual(m.SameSide, []int{1, 2, 3}) {
		t.Errorf("SameSide = %v, want [1 2 3]", m.SameSide)
	}
	if len(m.OtherSide) != 0 {
		t.Errorf("OtherSide = %v, want empty", m.OtherSide)
	}
	if got := mustLines(t, corr, Right, 0); !reflect.DeepEqual(got, []int{1, 2, 3, 4, 5}) {
		t.Errorf("right group 0 = %v, want [1 2 3 4 5]", got)
	}
}

func TestParseEmptyFieldKeepsSentinel(t *testing.T) {
	// The right field of the bottom row is empty, so the open range above
	// still runs to the end of the right document.
	corr := mustParse(t, "1-:1-\n3:\n", 4, 6)

	if got := mustLines(t, corr, Right, 1); !reflect.DeepEqual(got, []int{1, 2, 3, 4, 5, 6}) {
		t.Errorf("right group 1 = %v, want [1..6]", got)
	}
	if got := mustLines(t, corr, Left, 1); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("left group 1 = %v, want [1 2]", got)
	}
}

func TestParseDuplicateLines(t *testing.T) {
	corr := mustParse(t, "1-5:1-2\n4-6:3\n", 10, 10)

	// Earlier rows are processed later, so they keep the shared lines.
	for _, line := range []int{4, 5} {
		if g, _ := corr.GroupOf(Left, line); g != 1 {
			t.Errorf("GroupOf(Left, %d) = %d, want 1", line, g)
		}
	}
	if got := mustLines(t, corr, Left, 0); !reflect.DeepEqual(got, []int{6}) {
		t.Errorf("left group 0 = %v, want [6]", got)
	}
	if got := mustLines(t, corr, Left, 1); !reflect.DeepEqual(got, []int{1, 2, 3, 4, 5}) {
		t.Errorf("left group 1 = %v, want [1..5]", got)
	}

	want := []Override{
		{Side: Left, Line: 4, Replaced: 0, Group: 1},
		{Side: Left, Line: 5, Replaced: 0, Group: 1},
	}
	if !reflect.DeepEqual(corr.Overrides, want) {
		t.Errorf("Overrides = %+v, want %+v", corr.Overrides, want)
	}
}

func TestParseSkipsBlankRowsAndTrims(t *testing.T) {
	corr := mustParse(t, "\n  1-2:1  \r\n\n\t3-:2-\n\n", 5, 4)
	if corr.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", corr.Len())
	}
	if row, _ := corr.RowOf(1); row != 2 {
		t.Errorf("RowOf(1) = %d, want 2", row)
	}
	if row, _ := corr.RowOf(0); row != 4 {
		t.Errorf("RowOf(0) = %d, want 4", row)
	}
}

func TestParseEmptyDescription(t *testing.T) {
	corr := mustParse(t, "\n\n", 3, 3)
	if corr.Len() != 0 {
		t.Errorf("Len() = %d, want 0", corr.Len())
	}
	if _, ok := corr.Query(Left, 1); ok {
		t.Error("Query on empty correspondence should find nothing")
	}
}

func TestParseReader(t *testing.T) {
	corr, err := ParseReader(strings.NewReader("1-9:1-7\n10-:8-\n"), 15, 10)
	if err != nil {
		t.Fatalf("ParseReader failed: %v", err)
	}
	if corr.Len() != 2 {
		t.Errorf("Len() = %d, want 2", corr.Len())
	}
}
