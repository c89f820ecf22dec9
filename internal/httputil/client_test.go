package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMockClientReplaysQueue(t *testing.T) {
	m := NewMockHTTPClient()
	m.AddResponse(http.StatusOK, `{"a": 1}`)
	m.AddError(errors.New("timeout"))
	m.AddResponse(http.StatusNotFound, "missing")

	req, _ := http.NewRequest(http.MethodGet, "http://x/1", nil)

	resp, err := m.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != `{"a": 1}` {
		t.Errorf("first response = %d %q", resp.StatusCode, body)
	}

	if _, err := m.Do(req); err == nil {
		t.Fatal("queued error not returned")
	}

	resp, err = m.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("third response status = %d, want 404", resp.StatusCode)
	}

	if m.RequestCount() != 3 {
		t.Errorf("RequestCount() = %d, want 3", m.RequestCount())
	}
}

func TestMockClientEmptyQueueDefaults(t *testing.T) {
	m := NewMockHTTPClient()
	req, _ := http.NewRequest(http.MethodPost, "http://x/y", nil)
	resp, err := m.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if m.Requests[0].URL.Path != "/y" {
		t.Errorf("recorded path = %q", m.Requests[0].URL.Path)
	}
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, map[string]int{"n": 7})

	if rec.Code != http.StatusCreated {
		t.Errorf("code = %d, want 201", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	var body map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["n"] != 7 {
		t.Errorf("body = %v", body)
	}
}

func TestWriteJSONError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSONError(rec, http.StatusBadRequest, "nope")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("code = %d, want 400", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["error"] != "nope" {
		t.Errorf("error = %q", body["error"])
	}
}

func TestMethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	MethodNotAllowed(rec)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("code = %d, want 405", rec.Code)
	}
}
