package xref

import (
	"io"
	"slices"
	"strconv"
	"strings"

	xerrors "github.com/FocuswithJustin/xrefview/core/errors"
)

// RowSeparator splits the left and right range specs of a row.
const RowSeparator = ":"

// row is one non-empty description line.
type row struct {
	line   int // 1-based line in the description
	fields [2]string
}

func (r row) field(side Side) string {
	return r.fields[side]
}

// splitRows returns the non-empty, trimmed rows of text in file order.
func splitRows(text string) ([]row, error) {
	var rows []row
	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		fields := strings.Split(line, RowSeparator)
		if len(fields) != 2 {
			return nil, &xerrors.FormatError{
				Row:     i + 1,
				Token:   line,
				Message: "expected exactly one '" + RowSeparator + "' separator",
			}
		}
		rows = append(rows, row{line: i + 1, fields: [2]string{fields[0], fields[1]}})
	}
	return rows, nil
}

// Parse builds the correspondence described by text for documents of
// leftCount and rightCount lines. Either count being zero is a StateError.
// Any malformed row rejects the whole description.
func Parse(text string, leftCount, rightCount int) (*Correspondence, error) {
	if leftCount <= 0 || rightCount <= 0 {
		return nil, xerrors.NewState("parse cross-reference", "left and right documents must be loaded and non-empty")
	}

	rows, err := splitRows(text)
	if err != nil {
		return nil, err
	}

	corr := &Correspondence{rowOfGroup: make([]int, len(rows))}
	for g := range rows {
		corr.rowOfGroup[g] = rows[len(rows)-1-g].line
	}

	counts := [2]int{leftCount, rightCount}
	for _, side := range Sides {
		idx, overrides, err := buildSide(side, rows, counts[side])
		if err != nil {
			return nil, err
		}
		if side == Left {
			corr.Left = idx
		} else {
			corr.Right = idx
		}
		corr.Overrides = append(corr.Overrides, overrides...)
	}
	return corr, nil
}

// ParseReader reads a whole description from r and parses it.
func ParseReader(r io.Reader, leftCount, rightCount int) (*Correspondence, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, xerrors.NewIO("read", "cross-reference", err)
	}
	return Parse(string(data), leftCount, rightCount)
}

// buildSide folds over rows bottom-up, carrying the lowest line of the group
// below as the sentinel that closes open ranges.
func buildSide(side Side, rows []row, lineCount int) (*Index, []Override, error) {
	idx := NewIndex(side)
	var overrides []Override

	nextGroupLowestLine := lineCount + 1
	for i := len(rows) - 1; i >= 0; i-- {
		r := rows[i]
		lines, err := expandField(r, side, lineCount, nextGroupLowestLine-1)
		if err != nil {
			return nil, nil, err
		}

		_, taken := idx.Add(lines)
		overrides = append(overrides, taken...)

		// An empty contribution leaves the sentinel where it was.
		if len(lines) > 0 {
			nextGroupLowestLine = slices.Min(lines)
		}
	}
	return idx, overrides, nil
}

// expandField parses the side's field of r, checks every bound against the
// document and expands it.
func expandField(r row, side Side, lineCount, impliedUpperBound int) ([]int, error) {
	field := r.field(side)
	spec, err := ParseRangeSpec(field)
	if err != nil {
		return nil, atRow(err, r, side)
	}

	for _, rng := range spec {
		if rng.Start < 1 || rng.Start > lineCount {
			return nil, atRow(xerrors.NewFormat(rng.String(), outOfRange(lineCount)), r, side)
		}
		if rng.Kind == RangeBounded && rng.End > lineCount {
			return nil, atRow(xerrors.NewFormat(rng.String(), outOfRange(lineCount)), r, side)
		}
	}
	return spec.Expand(impliedUpperBound), nil
}

func outOfRange(lineCount int) string {
	return "line outside document range 1-" + strconv.Itoa(lineCount)
}

// atRow stamps a FormatError with the row and side it came from.
func atRow(err error, r row, side Side) error {
	var fe *xerrors.FormatError
	if xerrors.As(err, &fe) {
		stamped := *fe
		stamped.Row = r.line
		stamped.Side = side.String()
		return &stamped
	}
	return err
}
