// Package xref builds and queries bidirectional line correspondences between a
// left and a right text document.
//
// A cross-reference description has one row per correspondence:
//
//	<leftRangeSpec>:<rightRangeSpec>
//
// where a range spec is a comma separated list of tokens:
//
//   - "a": the single line a
//   - "a-b": lines a through b
//   - "a-": lines a through the line before the next group below
//
// # Groups
//
// Each row becomes one group shared by both sides. Group ids are assigned
// bottom-up: the last row of the file is group 0. Processing rows in that order
// lets an open range "a-" take its upper bound from the lowest line of the
// group below it, or from the document's line count for the bottom row.
//
// # Indexes
//
// Parse produces a Correspondence holding one Index per side. An Index maps
// lines to groups and groups to their ordered lines:
//
//	corr, err := xref.Parse("1-9:1-7\n10-:8-\n", 15, 10)
//	if err != nil {
//	    return err
//	}
//	m, ok := corr.Query(xref.Left, 12)
//	// ok == true, m.Group == 0, m.OtherSide == [8 9 10]
//
// A line claimed by more than one row keeps the group of the earliest row in
// the file; every such override is reported in Correspondence.Overrides.
package xref
