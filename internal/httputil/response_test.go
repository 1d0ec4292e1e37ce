package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestProblem_Write(t *testing.T) {
	rec := httptest.NewRecorder()
	NewProblem(http.StatusConflict, "document is not ingested").With("state", "pending").Write(rec)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	want := map[string]interface{}{
		"type":   "https://www.rfc-editor.org/rfc/rfc9110#section-15.5.10",
		"title":  "Conflict",
		"status": float64(409),
		"detail": "document is not ingested",
		"state":  "pending",
	}
	for k, v := range want {
		if body[k] != v {
			t.Errorf("%s = %v, want %v", k, body[k], v)
		}
	}
}

func TestProblem_ExtensionsCannotShadowStandardMembers(t *testing.T) {
	payload, err := json.Marshal(NewProblem(http.StatusTeapot, "").With("status", "x"))
	if err != nil {
		t.Fatal(err)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(payload, &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != float64(http.StatusTeapot) || body["type"] != "about:blank" {
		t.Errorf("body = %v", body)
	}
	if _, ok := body["detail"]; ok {
		t.Error("empty detail was written")
	}
}
