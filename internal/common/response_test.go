package common

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestJSONDataEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	JSONData(rec, http.StatusCreated, map[string]any{"id": "c1"})

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != `{"data":{"id":"c1"}}` {
		t.Fatalf("body = %s", body)
	}
}

func TestJSONAppError(t *testing.T) {
	rec := httptest.NewRecorder()
	JSONAppError(rec, NewAppError("NOT_FOUND", "cart not found", http.StatusNotFound, nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, `"code":"NOT_FOUND"`) {
		t.Fatalf("body = %s", body)
	}

	// A zero status maps to 500 rather than a bogus WriteHeader call.
	rec = httptest.NewRecorder()
	JSONAppError(rec, &AppError{Code: "INTERNAL", Message: "boom"})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := errors.New("row missing")
	err := NewAppError("NOT_FOUND", "cart not found", http.StatusNotFound, cause)

	if err.Error() != "row missing" {
		t.Fatalf("Error() = %q, want the cause", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Fatal("Unwrap must expose the cause")
	}
	if !IsAppError(err) || IsAppError(cause) {
		t.Fatal("IsAppError must match only wrapped AppErrors")
	}
}
