// Package viewer is the boundary between the cross-reference engine and a
// presentation layer. A Session owns both documents and the current
// correspondence, and answers click queries against them.
package viewer

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	xerrors "github.com/FocuswithJustin/xrefview/core/errors"
	"github.com/FocuswithJustin/xrefview/core/xref"
	"github.com/FocuswithJustin/xrefview/internal/logging"
	"github.com/FocuswithJustin/xrefview/internal/source"
)

// QueryResult is what a presentation layer highlights after a click:
// SameSideLines on the clicked pane, OtherSideLines on the opposite pane.
type QueryResult struct {
	Side           xref.Side `json:"side"`
	Line           int       `json:"line"`
	Group          int       `json:"group"`
	SameSideLines  []int     `json:"same_side_lines"`
	OtherSideLines []int     `json:"other_side_lines"`
}

// LineLocator converts a pixel position inside a pane into a 1-based line
// number. It is supplied by the rendering layer.
type LineLocator func(x, y int) int

// document is one loaded side.
type document struct {
	source    string
	lines     []string
	lineCount int
}

// Status summarizes a session.
type Status struct {
	SessionID      string `json:"session_id"`
	LeftSource     string `json:"left_source,omitempty"`
	LeftLines      int    `json:"left_lines"`
	RightSource    string `json:"right_source,omitempty"`
	RightLines     int    `json:"right_lines"`
	CrossRefSource string `json:"crossref_source,omitempty"`
	CrossRefLoaded bool   `json:"crossref_loaded"`
	Groups         int    `json:"groups"`
	Overrides      int    `json:"overrides"`
	Fingerprint    string `json:"fingerprint,omitempty"`
}

// Session holds the mutable state of one side-by-side view. All methods are
// safe for concurrent use; a load swaps in fully built state under the write
// lock, so queries see either the old or the new correspondence.
type Session struct {
	id string

	mu        sync.RWMutex
	docs      [2]document
	corr      *xref.Correspondence
	corrLabel string
}

// NewSession creates an empty session with a fresh ID.
func NewSession() *Session {
	return &Session{id: uuid.NewString()}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// logCtx carries the session ID into log records.
func (s *Session) logCtx() context.Context {
	return logging.WithSessionID(context.Background(), s.id)
}

// OnDocumentLoaded records the line count of side when the caller keeps the
// content itself.
func (s *Session) OnDocumentLoaded(side xref.Side, lineCount int) {
	s.installDocument(side, document{lineCount: lineCount})
}

// LoadDocument installs the lines of side and returns its line count.
// Loading a document does not touch the current correspondence.
func (s *Session) LoadDocument(side xref.Side, lines []string) int {
	return s.LoadDocumentFrom(side, "", lines)
}

// LoadDocumentFrom is LoadDocument with a source label for status and logs.
// An unknown side is ignored and reports 0 lines.
func (s *Session) LoadDocumentFrom(side xref.Side, label string, lines []string) int {
	doc := document{
		source:    label,
		lines:     slices.Clone(lines),
		lineCount: len(lines),
	}
	if !s.installDocument(side, doc) {
		return 0
	}
	return doc.lineCount
}

// LoadDocumentFile reads path through the source package and installs it.
func (s *Session) LoadDocumentFile(side xref.Side, path string) (int, error) {
	if err := checkSide(side); err != nil {
		return 0, err
	}
	lines, err := source.ReadLines(path)
	if err != nil {
		return 0, err
	}
	return s.LoadDocumentFrom(side, path, lines), nil
}

func (s *Session) installDocument(side xref.Side, doc document) bool {
	if err := checkSide(side); err != nil {
		logging.LoggerFromContext(s.logCtx()).Warn("document_rejected", "side", side.String(), "error", err)
		return false
	}
	s.mu.Lock()
	s.docs[side] = doc
	s.mu.Unlock()

	logging.DocumentLoaded(s.logCtx(), side.String(), doc.source, doc.lineCount)
	return true
}

func checkSide(side xref.Side) error {
	if !side.Valid() {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "unknown side %d", int(side))
	}
	return nil
}

// LoadCrossReference parses text against the loaded line counts and swaps
// in the result. It fails with a StateError if either document is missing
// and with a FormatError for a malformed description; on failure the
// previous correspondence stays installed.
func (s *Session) LoadCrossReference(text string) error {
	return s.LoadCrossReferenceFrom("", text)
}

// LoadCrossReferenceFrom is LoadCrossReference with a source label.
func (s *Session) LoadCrossReferenceFrom(label, text string) error {
	ctx := s.logCtx()

	s.mu.RLock()
	left, right := s.docs[xref.Left].lineCount, s.docs[xref.Right].lineCount
	s.mu.RUnlock()

	if left == 0 || right == 0 {
		err := xerrors.NewState("load cross-reference", "left and right documents must be loaded and non-empty")
		logging.CrossRefRejected(ctx, label, err)
		return err
	}

	corr, err := xref.Parse(text, left, right)
	if err != nil {
		logging.CrossRefRejected(ctx, label, err)
		return err
	}

	s.mu.Lock()
	// A document reload between parse and swap would leave corr sized for
	// the old counts; reject it rather than install a stale index.
	if s.docs[xref.Left].lineCount != left || s.docs[xref.Right].lineCount != right {
		s.mu.Unlock()
		err := xerrors.NewState("load cross-reference", "documents changed while parsing")
		logging.CrossRefRejected(ctx, label, err)
		return err
	}
	s.corr = corr
	s.corrLabel = label
	s.mu.Unlock()

	for _, o := range corr.Overrides {
		logging.LineOverride(ctx, o.Side.String(), o.Line, o.Replaced, o.Group)
	}
	logging.CrossRefLoaded(ctx, label, corr.Len(), corr.Fingerprint(),
		"overrides", len(corr.Overrides))
	return nil
}

// LoadCrossReferenceFile reads path and loads it as the description.
func (s *Session) LoadCrossReferenceFile(path string) error {
	text, err := source.ReadText(path)
	if err != nil {
		return err
	}
	return s.LoadCrossReferenceFrom(path, text)
}

// Query returns the lines corresponding to line on side. It reports false
// when no correspondence is loaded or the line belongs to no group; the
// result then carries empty line lists.
func (s *Session) Query(side xref.Side, line int) (QueryResult, bool) {
	s.mu.RLock()
	corr := s.corr
	s.mu.RUnlock()

	result := QueryResult{
		Side:           side,
		Line:           line,
		Group:          -1,
		SameSideLines:  []int{},
		OtherSideLines: []int{},
	}
	if corr == nil || !side.Valid() {
		logging.QueryServed(s.logCtx(), side.String(), line, -1, false)
		return result, false
	}

	m, ok := corr.Query(side, line)
	logging.QueryServed(s.logCtx(), side.String(), line, m.Group, ok)
	if !ok {
		return result, false
	}
	result.Group = m.Group
	result.SameSideLines = m.SameSide
	result.OtherSideLines = m.OtherSide
	return result, true
}

// Click resolves a pixel position through locate and queries the line.
func (s *Session) Click(side xref.Side, locate LineLocator, x, y int) (QueryResult, bool) {
	return s.Query(side, locate(x, y))
}

// Correspondence returns the installed correspondence, or nil. The value is
// never mutated after installation.
func (s *Session) Correspondence() *xref.Correspondence {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.corr
}

// LineCount returns the line count of side, 0 when not loaded.
func (s *Session) LineCount(side xref.Side) int {
	if !side.Valid() {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs[side].lineCount
}

// Document returns a copy of the lines loaded for side. It fails with a
// NotFoundError when only a line count was provided.
func (s *Session) Document(side xref.Side) ([]string, error) {
	if err := checkSide(side); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc := s.docs[side]
	if doc.lines == nil {
		return nil, xerrors.NewNotFound("document", side.String())
	}
	return slices.Clone(doc.lines), nil
}

// Status reports the current session state.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		SessionID:   s.id,
		LeftSource:  s.docs[xref.Left].source,
		LeftLines:   s.docs[xref.Left].lineCount,
		RightSource: s.docs[xref.Right].source,
		RightLines:  s.docs[xref.Right].lineCount,
	}
	if s.corr != nil {
		st.CrossRefLoaded = true
		st.CrossRefSource = s.corrLabel
		st.Groups = s.corr.Len()
		st.Overrides = len(s.corr.Overrides)
		st.Fingerprint = s.corr.Fingerprint()
	}
	return st
}
