// Package export writes a loaded correspondence to a SQLite database so other
// tools can join document lines across sides with plain SQL.
//
// Schema:
//
//	meta(key, value)                   session sources, counts and fingerprint
//	xref_groups(id, source_row)        one row per description line
//	lines(side, line, group_id)        every mapped line on either side
//	overrides(side, line, replaced_group, group_id)
package export

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	xerrors "github.com/FocuswithJustin/xrefview/core/errors"
	"github.com/FocuswithJustin/xrefview/core/sqlite"
	"github.com/FocuswithJustin/xrefview/core/xref"
)

const schema = `
	DROP TABLE IF EXISTS meta;
	DROP TABLE IF EXISTS xref_groups;
	DROP TABLE IF EXISTS lines;
	DROP TABLE IF EXISTS overrides;
	CREATE TABLE meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	CREATE TABLE xref_groups (
		id INTEGER PRIMARY KEY,
		source_row INTEGER NOT NULL
	);
	CREATE TABLE lines (
		side TEXT NOT NULL,
		line INTEGER NOT NULL,
		group_id INTEGER NOT NULL,
		PRIMARY KEY (side, line),
		FOREIGN KEY (group_id) REFERENCES xref_groups(id)
	);
	CREATE TABLE overrides (
		side TEXT NOT NULL,
		line INTEGER NOT NULL,
		replaced_group INTEGER NOT NULL,
		group_id INTEGER NOT NULL
	);
	CREATE INDEX idx_lines_group ON lines(group_id, side);
`

// Meta is the descriptive data stored alongside the groups.
type Meta struct {
	LeftSource     string `json:"left_source,omitempty"`
	RightSource    string `json:"right_source,omitempty"`
	CrossRefSource string `json:"crossref_source,omitempty"`
	LeftLines      int    `json:"left_lines"`
	RightLines     int    `json:"right_lines"`
	Fingerprint    string `json:"fingerprint"`
	Driver         string `json:"sqlite_driver"`
}

func (m Meta) pairs() [][2]string {
	return [][2]string{
		{"left_source", m.LeftSource},
		{"right_source", m.RightSource},
		{"crossref_source", m.CrossRefSource},
		{"left_lines", strconv.Itoa(m.LeftLines)},
		{"right_lines", strconv.Itoa(m.RightLines)},
		{"fingerprint", m.Fingerprint},
		{"sqlite_driver", m.Driver},
	}
}

// Summary is what Read recovers from an export.
type Summary struct {
	Meta      Meta
	Groups    []xref.Group
	Overrides int
}

// Write replaces the contents of the database at path with corr. The whole
// export happens in one transaction. meta.Fingerprint is filled from corr
// and meta.Driver from the linked SQLite driver.
func Write(ctx context.Context, path string, corr *xref.Correspondence, meta Meta) error {
	if corr == nil {
		return xerrors.NewState("export", "no cross-reference loaded")
	}
	meta.Fingerprint = corr.Fingerprint()
	meta.Driver = sqlite.GetInfo().DriverType

	db, err := sqlite.Open(path)
	if err != nil {
		return xerrors.NewIO("open database", path, err)
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return xerrors.NewIO("begin export", path, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return xerrors.NewIO("create schema", path, err)
	}
	if err := writeRows(ctx, tx, corr, meta); err != nil {
		return xerrors.NewIO("export", path, err)
	}
	if err := tx.Commit(); err != nil {
		return xerrors.NewIO("commit export", path, err)
	}
	return nil
}

func writeRows(ctx context.Context, tx *sql.Tx, corr *xref.Correspondence, meta Meta) error {
	for _, kv := range meta.pairs() {
		if _, err := tx.ExecContext(ctx, "INSERT INTO meta (key, value) VALUES (?, ?)", kv[0], kv[1]); err != nil {
			return fmt.Errorf("insert meta %s: %w", kv[0], err)
		}
	}

	insertGroup, err := tx.PrepareContext(ctx, "INSERT INTO xref_groups (id, source_row) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer insertGroup.Close()

	insertLine, err := tx.PrepareContext(ctx, "INSERT INTO lines (side, line, group_id) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer insertLine.Close()

	for _, g := range corr.Groups() {
		if _, err := insertGroup.ExecContext(ctx, g.ID, g.Row); err != nil {
			return fmt.Errorf("insert group %d: %w", g.ID, err)
		}
		for _, side := range xref.Sides {
			lines := g.Left
			if side == xref.Right {
				lines = g.Right
			}
			// A row may list a line twice ("1-5,3"); lines holds one row per line.
			seen := make(map[int]bool, len(lines))
			for _, line := range lines {
				if seen[line] {
					continue
				}
				seen[line] = true
				if group, ok := corr.GroupOf(side, line); !ok || group != g.ID {
					continue
				}
				if _, err := insertLine.ExecContext(ctx, side.String(), line, g.ID); err != nil {
					return fmt.Errorf("insert %s line %d: %w", side, line, err)
				}
			}
		}
	}

	for _, o := range corr.Overrides {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO overrides (side, line, replaced_group, group_id) VALUES (?, ?, ?, ?)",
			o.Side.String(), o.Line, o.Replaced, o.Group); err != nil {
			return fmt.Errorf("insert override: %w", err)
		}
	}
	return nil
}

// Read loads an export written by Write.
func Read(ctx context.Context, path string) (*Summary, error) {
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, xerrors.NewIO("open database", path, err)
	}
	defer db.Close()

	sum := &Summary{}
	if err := readMeta(ctx, db, &sum.Meta); err != nil {
		return nil, xerrors.NewIO("read meta", path, err)
	}
	if sum.Groups, err = readGroups(ctx, db); err != nil {
		return nil, xerrors.NewIO("read groups", path, err)
	}
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM overrides").Scan(&sum.Overrides); err != nil {
		return nil, xerrors.NewIO("read overrides", path, err)
	}
	return sum, nil
}

func readMeta(ctx context.Context, db *sql.DB, meta *Meta) error {
	rows, err := db.QueryContext(ctx, "SELECT key, value FROM meta")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return err
		}
		switch key {
		case "left_source":
			meta.LeftSource = value
		case "right_source":
			meta.RightSource = value
		case "crossref_source":
			meta.CrossRefSource = value
		case "left_lines":
			meta.LeftLines, _ = strconv.Atoi(value)
		case "right_lines":
			meta.RightLines, _ = strconv.Atoi(value)
		case "fingerprint":
			meta.Fingerprint = value
		case "sqlite_driver":
			meta.Driver = value
		}
	}
	return rows.Err()
}

func readGroups(ctx context.Context, db *sql.DB) ([]xref.Group, error) {
	rows, err := db.QueryContext(ctx, "SELECT id, source_row FROM xref_groups ORDER BY id")
	if err != nil {
		return nil, err
	}
	var groups []xref.Group
	for rows.Next() {
		g := xref.Group{Left: []int{}, Right: []int{}}
		if err := rows.Scan(&g.ID, &g.Row); err != nil {
			rows.Close()
			return nil, err
		}
		groups = append(groups, g)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	lines, err := db.QueryContext(ctx, "SELECT side, line, group_id FROM lines ORDER BY group_id, side, line")
	if err != nil {
		return nil, err
	}
	defer lines.Close()

	for lines.Next() {
		var sideName string
		var line, group int
		if err := lines.Scan(&sideName, &line, &group); err != nil {
			return nil, err
		}
		if group < 0 || group >= len(groups) {
			return nil, fmt.Errorf("line %d references unknown group %d", line, group)
		}
		side, err := xref.ParseSide(sideName)
		if err != nil {
			return nil, err
		}
		if side == xref.Left {
			groups[group].Left = append(groups[group].Left, line)
		} else {
			groups[group].Right = append(groups[group].Right, line)
		}
	}
	return groups, lines.Err()
}
