package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	xerrors "github.com/FocuswithJustin/xrefview/core/errors"
	"github.com/FocuswithJustin/xrefview/core/xref"
	"github.com/FocuswithJustin/xrefview/internal/logging"
	"github.com/FocuswithJustin/xrefview/internal/validation"
	"github.com/FocuswithJustin/xrefview/internal/viewer"
)

// Version is reported by /health. The CLI overrides it at startup.
var Version = "dev"

// APIResponse is the standard API response wrapper.
type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
	Meta    *APIMeta  `json:"meta,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIMeta contains response metadata.
type APIMeta struct {
	Total     int    `json:"total,omitempty"`
	Timestamp string `json:"timestamp"`
}

// HealthInfo is the health check response.
type HealthInfo struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
	Clients int    `json:"clients"`
}

// DocumentInfo is the content of one loaded side.
type DocumentInfo struct {
	Side      xref.Side `json:"side"`
	Lines     []string  `json:"lines"`
	LineCount int       `json:"line_count"`
}

// QueryResponse is a query result with an explicit match flag. An unmatched
// line is a normal response with Match false and empty line lists.
type QueryResponse struct {
	Match bool `json:"match"`
	viewer.QueryResult
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthInfo{
		Status:  "ok",
		Version: Version,
		Uptime:  time.Since(s.started).Round(time.Second).String(),
		Clients: s.hub.ClientCount(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.session.Status())
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	side, err := xref.ParseSide(r.PathValue("side"))
	if err != nil {
		respondErr(w, err)
		return
	}
	lines, err := s.session.Document(side)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, DocumentInfo{
		Side:      side,
		Lines:     lines,
		LineCount: len(lines),
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	side, err := xref.ParseSide(q.Get("side"))
	if err != nil {
		respondErr(w, err)
		return
	}
	line, err := strconv.Atoi(q.Get("line"))
	if err != nil {
		respondErr(w, xerrors.Wrapf(xerrors.ErrInvalidInput, "line %q is not a number", q.Get("line")))
		return
	}
	respondJSON(w, http.StatusOK, s.query(side, line))
}

func (s *Server) query(side xref.Side, line int) QueryResponse {
	result, ok := s.session.Query(side, line)
	return QueryResponse{Match: ok, QueryResult: result}
}

func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	corr := s.session.Correspondence()
	if corr == nil {
		respondErr(w, xerrors.NewState("list groups", "no cross-reference loaded"))
		return
	}
	groups := corr.Groups()
	respondJSONWithMeta(w, http.StatusOK, groups, &APIMeta{Total: len(groups)})
}

// handleCrossRef replaces the description with the request body and
// notifies every websocket client of the new state.
func (s *Server) handleCrossRef(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, validation.MaxFileSize+1))
	if err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "failed to read body")
		return
	}
	if len(data) > validation.MaxFileSize {
		respondError(w, http.StatusRequestEntityTooLarge, "TOO_LARGE", validation.ErrFileTooLarge.Error())
		return
	}
	if err := validation.CheckText(data); err != nil {
		respondErr(w, xerrors.Wrap(xerrors.ErrInvalidInput, err.Error()))
		return
	}

	label := "http:" + logging.GetRequestID(r.Context())
	if err := s.session.LoadCrossReferenceFrom(label, string(data)); err != nil {
		respondErr(w, err)
		return
	}

	status := s.session.Status()
	s.hub.Broadcast(QueryMessage{Type: MessageCrossRefLoaded, Status: &status})
	respondJSON(w, http.StatusOK, status)
}

// statusForCode maps an error class onto an HTTP status and API code.
func statusForCode(code xerrors.Code) (int, string) {
	switch code {
	case xerrors.CodeFormat:
		return http.StatusUnprocessableEntity, "INVALID_FORMAT"
	case xerrors.CodeInput:
		return http.StatusBadRequest, "INVALID_INPUT"
	case xerrors.CodeNotFound:
		return http.StatusNotFound, "NOT_FOUND"
	case xerrors.CodeState:
		return http.StatusConflict, "INVALID_STATE"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// respondErr writes err with the status its class maps to.
func respondErr(w http.ResponseWriter, err error) {
	status, code := statusForCode(xerrors.Classify(err))
	respondError(w, status, code, err.Error())
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	respondJSONWithMeta(w, status, data, &APIMeta{})
}

func respondJSONWithMeta(w http.ResponseWriter, status int, data any, meta *APIMeta) {
	meta.Timestamp = time.Now().UTC().Format(time.RFC3339)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
		Meta: &APIMeta{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	})
}
