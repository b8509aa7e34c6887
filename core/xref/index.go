package xref

import (
	"slices"
	"strconv"

	xerrors "github.com/FocuswithJustin/xrefview/core/errors"
)

// Override records a line claimed by more than one row on the same side.
// The line keeps Group; Replaced is the group that claimed it first during
// the bottom-up build.
type Override struct {
	Side     Side `json:"side"`
	Line     int  `json:"line"`
	Replaced int  `json:"replaced_group"`
	Group    int  `json:"group"`
}

// Index provides line↔group lookup for one side of a correspondence.
type Index struct {
	side         Side
	lineToGroup  map[int]int
	groupToLines [][]int
}

// NewIndex creates a new empty index for side.
func NewIndex(side Side) *Index {
	return &Index{
		side:        side,
		lineToGroup: make(map[int]int),
	}
}

// Side returns the document side this index covers.
func (idx *Index) Side() Side {
	return idx.side
}

// Add appends a group holding lines and returns its id together with any
// lines it took over from previously added groups. A taken-over line is
// removed from the group that held it, so every line listed under a group
// maps back to that group.
func (idx *Index) Add(lines []int) (int, []Override) {
	group := len(idx.groupToLines)
	var overrides []Override
	for _, line := range lines {
		if prev, ok := idx.lineToGroup[line]; ok && prev != group {
			overrides = append(overrides, Override{
				Side:     idx.side,
				Line:     line,
				Replaced: prev,
				Group:    group,
			})
			idx.groupToLines[prev] = slices.DeleteFunc(idx.groupToLines[prev], func(l int) bool {
				return l == line
			})
		}
		idx.lineToGroup[line] = group
	}
	idx.groupToLines = append(idx.groupToLines, slices.Clone(lines))
	return group, overrides
}

// GroupOf returns the group that line belongs to.
func (idx *Index) GroupOf(line int) (int, bool) {
	g, ok := idx.lineToGroup[line]
	return g, ok
}

// LinesOf returns a copy of the ordered lines of group.
func (idx *Index) LinesOf(group int) ([]int, error) {
	if group < 0 || group >= len(idx.groupToLines) {
		return nil, &xerrors.NotFoundError{
			Resource: idx.side.String() + " group",
			ID:       strconv.Itoa(group),
		}
	}
	return append([]int{}, idx.groupToLines[group]...), nil
}

// Groups returns the number of groups.
func (idx *Index) Groups() int {
	return len(idx.groupToLines)
}

// Len returns the number of distinct mapped lines.
func (idx *Index) Len() int {
	return len(idx.lineToGroup)
}

// MappedLines returns every mapped line in ascending order.
func (idx *Index) MappedLines() []int {
	lines := make([]int, 0, len(idx.lineToGroup))
	for line := range idx.lineToGroup {
		lines = append(lines, line)
	}
	slices.Sort(lines)
	return lines
}
