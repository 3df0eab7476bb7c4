package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"sheetsync/internal/record"
)

// SheetRequest is one request received by a FakeSheet.
type SheetRequest struct {
	Method string
	Action string
	ID     string
	Data   map[string]any
	Header http.Header
	Query  string
}

// sheetFailure is a canned response returned instead of handling a request.
type sheetFailure struct {
	status int
	body   string
}

// FakeSheet is an in-process stand-in for a spreadsheet web-app endpoint.
// It serves one record kind: GET ?action=<list> returns the rows, POSTs
// with the kind's create/update/delete actions mutate them.
type FakeSheet struct {
	Server *httptest.Server

	kind     record.Kind
	mu       sync.Mutex
	rows     []map[string]any
	nextID   int
	failures map[string][]sheetFailure // action -> queued canned responses
	requests []SheetRequest
}

// NewFakeSheet starts a fake endpoint for kind, closed on test cleanup.
func NewFakeSheet(t *testing.T, kind record.Kind) *FakeSheet {
	t.Helper()
	f := &FakeSheet{
		kind:     kind,
		nextID:   1,
		failures: make(map[string][]sheetFailure),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the endpoint URL.
func (f *FakeSheet) URL() string {
	return f.Server.URL + "/exec"
}

// Seed replaces the stored rows.
func (f *FakeSheet) Seed(rows ...map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = nil
	for _, r := range rows {
		cp := make(map[string]any, len(r))
		for k, v := range r {
			cp[k] = v
		}
		f.rows = append(f.rows, cp)
	}
}

// SetNextID makes the next create assign "R<n>".
func (f *FakeSheet) SetNextID(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID = n
}

// FailNext makes the next request for action answer success=false with message.
func (f *FakeSheet) FailNext(action, message string) {
	body, _ := json.Marshal(map[string]any{"success": false, "error": message})
	f.RespondNext(action, http.StatusOK, string(body))
}

// RespondNext makes the next request for action answer with a raw status and body.
func (f *FakeSheet) RespondNext(action string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[action] = append(f.failures[action], sheetFailure{status: status, body: body})
}

// Rows returns a copy of the stored rows.
func (f *FakeSheet) Rows() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, len(f.rows))
	copy(out, f.rows)
	return out
}

// Requests returns the requests received so far.
func (f *FakeSheet) Requests() []SheetRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]SheetRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

// RequestsFor returns the requests received for one action.
func (f *FakeSheet) RequestsFor(action string) []SheetRequest {
	var out []SheetRequest
	for _, r := range f.Requests() {
		if r.Action == action {
			out = append(out, r)
		}
	}
	return out
}

func (f *FakeSheet) serve(w http.ResponseWriter, r *http.Request) {
	req := SheetRequest{Method: r.Method, Header: r.Header.Clone(), Query: r.URL.RawQuery}

	switch r.Method {
	case http.MethodGet:
		req.Action = r.URL.Query().Get("action")
	case http.MethodPost:
		body, _ := io.ReadAll(r.Body)
		var wr struct {
			Action string         `json:"action"`
			ID     string         `json:"id"`
			Data   map[string]any `json:"data"`
		}
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		if err := dec.Decode(&wr); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		req.Action, req.ID, req.Data = wr.Action, wr.ID, wr.Data
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)

	if queued := f.failures[req.Action]; len(queued) > 0 {
		f.failures[req.Action] = queued[1:]
		w.WriteHeader(queued[0].status)
		io.WriteString(w, queued[0].body)
		return
	}

	switch req.Action {
	case f.kind.Actions.List:
		writeJSON(w, f.rows)
	case f.kind.Actions.Create:
		id := fmt.Sprintf("R%d", f.nextID)
		f.nextID++
		row := map[string]any{"id": id}
		for k, v := range req.Data {
			row[k] = v
		}
		f.rows = append([]map[string]any{row}, f.rows...)
		writeJSON(w, map[string]any{"success": true, "id": id})
	case f.kind.Actions.Update:
		i := f.indexOf(req.ID)
		if i < 0 {
			writeJSON(w, map[string]any{"success": false, "error": "not found"})
			return
		}
		for k, v := range req.Data {
			f.rows[i][k] = v
		}
		writeJSON(w, map[string]any{"success": true})
	case f.kind.Actions.Delete:
		i := f.indexOf(req.ID)
		if i < 0 {
			writeJSON(w, map[string]any{"success": false, "error": "not found"})
			return
		}
		f.rows = append(f.rows[:i], f.rows[i+1:]...)
		writeJSON(w, map[string]any{"success": true})
	default:
		writeJSON(w, map[string]any{"error": "unknown action " + req.Action})
	}
}

func (f *FakeSheet) indexOf(id string) int {
	for i, row := range f.rows {
		if record.CanonicalID(row["id"]) == id {
			return i
		}
	}
	return -1
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
