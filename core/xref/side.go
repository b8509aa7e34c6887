package xref

import (
	"fmt"
	"strings"

	xerrors "github.com/FocuswithJustin/xrefview/core/errors"
)

// Side identifies one of the two documents being compared.
type Side int

const (
	// Left is the first document.
	Left Side = iota
	// Right is the second document.
	Right
)

// Sides lists both sides in processing order.
var Sides = [...]Side{Left, Right}

func (s Side) String() string {
	switch s {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("side(%d)", int(s))
	}
}

// Other returns the opposite side.
func (s Side) Other() Side {
	if s == Left {
		return Right
	}
	return Left
}

// Valid reports whether s is Left or Right.
func (s Side) Valid() bool {
	return s == Left || s == Right
}

// ParseSide parses "left"/"right" (case-insensitive, "l"/"r" accepted).
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left", "l":
		return Left, nil
	case "right", "r":
		return Right, nil
	}
	return Left, xerrors.Wrapf(xerrors.ErrInvalidInput, "unknown side %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s Side) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, xerrors.Wrapf(xerrors.ErrInvalidInput, "unknown side %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Side) UnmarshalText(text []byte) error {
	v, err := ParseSide(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
