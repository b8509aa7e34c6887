package xref

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/zeebo/blake3"

	xerrors "github.com/FocuswithJustin/xrefview/core/errors"
)

// Correspondence is the pair of per-side indexes built from one description.
// Both indexes always hold the same number of groups; group g on either side
// comes from the same row.
type Correspondence struct {
	// Left and Right are the per-side indexes.
	Left  *Index
	Right *Index

	// Overrides lists every line claimed by more than one row, left side first.
	Overrides []Override

	// rowOfGroup maps a group id to its 1-based line in the description.
	rowOfGroup []int
}

// Group is one row of the description materialized on both sides.
type Group struct {
	ID    int   `json:"id"`
	Row   int   `json:"row"`
	Left  []int `json:"left"`
	Right []int `json:"right"`
}

// Match is the result of a click-style query.
type Match struct {
	Group     int   `json:"group"`
	Side      Side  `json:"side"`
	SameSide  []int `json:"same_side"`
	OtherSide []int `json:"other_side"`
}

// Index returns the index for side.
func (c *Correspondence) Index(side Side) *Index {
	if side == Right {
		return c.Right
	}
	return c.Left
}

// Len returns the number of groups (rows).
func (c *Correspondence) Len() int {
	return len(c.rowOfGroup)
}

// RowOf returns the 1-based description line that produced group.
func (c *Correspondence) RowOf(group int) (int, error) {
	if group < 0 || group >= len(c.rowOfGroup) {
		return 0, xerrors.NewNotFound("group", strconv.Itoa(group))
	}
	return c.rowOfGroup[group], nil
}

// GroupOf returns the group of line on side.
func (c *Correspondence) GroupOf(side Side, line int) (int, bool) {
	return c.Index(side).GroupOf(line)
}

// LinesOf returns the lines of group on side.
func (c *Correspondence) LinesOf(side Side, group int) ([]int, error) {
	return c.Index(side).LinesOf(group)
}

// Query resolves a line on side to its whole group on both sides. It reports
// false, with an empty Match, when the line belongs to no group.
func (c *Correspondence) Query(side Side, line int) (Match, bool) {
	group, ok := c.GroupOf(side, line)
	if !ok {
		return noMatch(side), false
	}
	same, err := c.LinesOf(side, group)
	if err != nil {
		return noMatch(side), false
	}
	other, err := c.LinesOf(side.Other(), group)
	if err != nil {
		return noMatch(side), false
	}
	return Match{
		Group:     group,
		Side:      side,
		SameSide:  same,
		OtherSide: other,
	}, true
}

func noMatch(side Side) Match {
	return Match{Group: -1, Side: side, SameSide: []int{}, OtherSide: []int{}}
}

// Groups returns every group in id order.
func (c *Correspondence) Groups() []Group {
	groups := make([]Group, c.Len())
	for g := range groups {
		left, _ := c.Left.LinesOf(g)
		right, _ := c.Right.LinesOf(g)
		groups[g] = Group{
			ID:    g,
			Row:   c.rowOfGroup[g],
			Left:  left,
			Right: right,
		}
	}
	return groups
}

// Fingerprint returns the hex BLAKE3 hash of the group contents. Two
// correspondences with equal groups on both sides have equal fingerprints.
func (c *Correspondence) Fingerprint() string {
	h := blake3.New()
	for _, side := range Sides {
		idx := c.Index(side)
		fmt.Fprintf(h, "%s %d\n", side, idx.Groups())
		for g := 0; g < idx.Groups(); g++ {
			fmt.Fprintf(h, "%d:", g)
			for _, line := range idx.groupToLines[g] {
				fmt.Fprintf(h, " %d", line)
			}
			h.Write([]byte{'\n'})
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
