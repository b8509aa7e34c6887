package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/FocuswithJustin/xrefview/core/xref"
	"github.com/FocuswithJustin/xrefview/internal/viewer"
)

func numbered(n int) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %d", i+1)
	}
	return lines
}

// newTestServer serves a session with 15 left and 10 right lines mapped by
// the two-row open-range example.
func newTestServer(t *testing.T, cfg Config) (*Server, *httptest.Server) {
	t.Helper()
	session := viewer.NewSession()
	session.LoadDocumentFrom(xref.Left, "left.txt", numbered(15))
	session.LoadDocumentFrom(xref.Right, "right.txt", numbered(10))
	if err := session.LoadCrossReference("1-9:1-7\n10-:8-\n"); err != nil {
		t.Fatalf("LoadCrossReference failed: %v", err)
	}

	s := NewServer(cfg, session)
	go s.Hub().Run(t.Context())

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

type rawResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *APIMeta        `json:"meta"`
}

func getJSON(t *testing.T, url string) (int, rawResponse) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()

	var body rawResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode %s: %v", url, err)
	}
	return resp.StatusCode, body
}

// putText sends body with PUT and returns the closed response.
func putText(t *testing.T, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPut, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT failed: %v", err)
	}
	resp.Body.Close()
	return resp
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	status, body := getJSON(t, ts.URL+"/health")
	if status != http.StatusOK || !body.Success {
		t.Fatalf("status = %d, success = %v", status, body.Success)
	}
	var info HealthInfo
	if err := json.Unmarshal(body.Data, &info); err != nil {
		t.Fatalf("failed to decode health: %v", err)
	}
	if info.Status != "ok" || info.Version != Version {
		t.Errorf("health = %+v", info)
	}
}

func TestStatusEndpoint(t *testing.T) {
	s, ts := newTestServer(t, Config{})

	status, body := getJSON(t, ts.URL+"/api/status")
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	var st viewer.Status
	if err := json.Unmarshal(body.Data, &st); err != nil {
		t.Fatalf("failed to decode status: %v", err)
	}
	if st != s.session.Status() {
		t.Errorf("status = %+v, want %+v", st, s.session.Status())
	}
}

func TestDocumentEndpoint(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	status, body := getJSON(t, ts.URL+"/api/documents/right")
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	var doc DocumentInfo
	if err := json.Unmarshal(body.Data, &doc); err != nil {
		t.Fatalf("failed to decode document: %v", err)
	}
	if doc.Side != xref.Right || doc.LineCount != 10 || doc.Lines[9] != "line 10" {
		t.Errorf("document = %+v", doc)
	}

	status, body = getJSON(t, ts.URL+"/api/documents/middle")
	if status != http.StatusBadRequest || body.Error == nil || body.Error.Code != "INVALID_INPUT" {
		t.Errorf("bad side: status = %d, error = %+v", status, body.Error)
	}
}

func TestQueryEndpoint(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantMatch  bool
		wantOther  []int
	}{
		{"left open range", "side=left&line=12", http.StatusOK, true, []int{8, 9, 10}},
		{"right short form", "side=r&line=2", http.StatusOK, true, []int{1, 2, 3, 4, 5, 6, 7, 8, 9}},
		{"unmapped line", "side=left&line=40", http.StatusOK, false, []int{}},
		{"bad side", "side=up&line=1", http.StatusBadRequest, false, nil},
		{"bad line", "side=left&line=abc", http.StatusBadRequest, false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := getJSON(t, ts.URL+"/api/query?"+tt.query)
			if status != tt.wantStatus {
				t.Fatalf("status = %d, want %d", status, tt.wantStatus)
			}
			if status != http.StatusOK {
				return
			}
			var resp QueryResponse
			if err := json.Unmarshal(body.Data, &resp); err != nil {
				t.Fatalf("failed to decode query: %v", err)
			}
			if resp.Match != tt.wantMatch {
				t.Errorf("Match = %v, want %v", resp.Match, tt.wantMatch)
			}
			if !reflect.DeepEqual(resp.OtherSideLines, tt.wantOther) {
				t.Errorf("OtherSideLines = %v, want %v", resp.OtherSideLines, tt.wantOther)
			}
		})
	}
}

func TestQueryUnmatchedBody(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	_, body := getJSON(t, ts.URL+"/api/query?side=right&line=11")
	var fields map[string]any
	if err := json.Unmarshal(body.Data, &fields); err != nil {
		t.Fatalf("failed to decode query: %v", err)
	}
	if fields["match"] != false {
		t.Errorf("match = %v, want false", fields["match"])
	}
	if lines, ok := fields["same_side_lines"].([]any); !ok || len(lines) != 0 {
		t.Errorf("same_side_lines = %v, want []", fields["same_side_lines"])
	}
}

func TestGroupsEndpoint(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	status, body := getJSON(t, ts.URL+"/api/groups")
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	var groups []xref.Group
	if err := json.Unmarshal(body.Data, &groups); err != nil {
		t.Fatalf("failed to decode groups: %v", err)
	}
	if len(groups) != 2 || body.Meta.Total != 2 {
		t.Fatalf("groups = %d, total = %d, want 2", len(groups), body.Meta.Total)
	}
	if groups[0].Row != 2 || groups[1].Row != 1 {
		t.Errorf("rows = %d, %d, want 2, 1", groups[0].Row, groups[1].Row)
	}
}

func TestGroupsWithoutCrossRef(t *testing.T) {
	s := NewServer(Config{}, viewer.NewSession())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/groups", nil))
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestCrossRefEndpoint(t *testing.T) {
	s, ts := newTestServer(t, Config{})
	before := s.session.Correspondence()

	if resp := putText(t, ts.URL+"/api/crossref", "1-3-5:1\n"); resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("malformed status = %d, want 422", resp.StatusCode)
	}
	if s.session.Correspondence() != before {
		t.Error("malformed description replaced the correspondence")
	}

	if resp := putText(t, ts.URL+"/api/crossref", "1-:1-\n"); resp.StatusCode != http.StatusOK {
		t.Fatalf("valid status = %d, want 200", resp.StatusCode)
	}
	if got := s.session.Status().Groups; got != 1 {
		t.Errorf("Groups = %d, want 1", got)
	}
}

func TestHandlerHeaders(t *testing.T) {
	_, ts := newTestServer(t, Config{AllowedOrigins: []string{"http://viewer.local"}})

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/status", nil)
	req.Header.Set("Origin", "http://viewer.local")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()

	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header should be set")
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://viewer.local" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
	if resp.Header.Get("Content-Security-Policy") == "" {
		t.Error("Content-Security-Policy header should be set")
	}
}

func TestConfigAddr(t *testing.T) {
	tests := []struct {
		cfg  Config
		want string
	}{
		{Config{Port: 8080}, ":8080"},
		{Config{Host: "127.0.0.1", Port: 9000}, "127.0.0.1:9000"},
		{Config{Host: "::1", Port: 80}, "[::1]:80"},
	}
	for _, tt := range tests {
		if got := tt.cfg.Addr(); got != tt.want {
			t.Errorf("Addr() = %q, want %q", got, tt.want)
		}
	}
}
