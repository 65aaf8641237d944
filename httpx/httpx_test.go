package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/diewo77/garage-manager/i18n"
	"github.com/diewo77/garage-manager/internal/apperr"
)

func decode(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v (%s)", err, rr.Body.String())
	}
	return body
}

func TestErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{apperr.Unauthorized("invalid_token"), http.StatusUnauthorized, "invalid_token"},
		{apperr.Forbidden("garage_inactive"), http.StatusForbidden, "garage_inactive"},
		{apperr.NotFound("not_found"), http.StatusNotFound, "not_found"},
		{apperr.Conflict("email_taken"), http.StatusConflict, "email_taken"},
		{apperr.Validation("validation_failed", map[string]string{"email": "required"}), http.StatusBadRequest, "validation_failed"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, c := range cases {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		Error(rr, req, c.err)
		if rr.Code != c.status {
			t.Errorf("%v: expected %d got %d", c.err, c.status, rr.Code)
		}
		body := decode(t, rr)
		if body.Error != c.code {
			t.Errorf("expected code %s got %s", c.code, body.Error)
		}
		if body.Message == "" {
			t.Errorf("missing message for %s", c.code)
		}
	}
}

func TestErrorLocalizedAndDebug(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(i18n.WithLang(req.Context(), "en"))

	rr := httptest.NewRecorder()
	Error(rr, req, apperr.Internal(errors.New("db down"), "load garage"))
	body := decode(t, rr)
	if body.Debug != "" {
		t.Fatalf("debug leaked outside dev mode: %q", body.Debug)
	}

	SetDebug(true)
	defer SetDebug(false)
	rr = httptest.NewRecorder()
	Error(rr, req, apperr.Internal(errors.New("db down"), "load garage"))
	body = decode(t, rr)
	if !strings.Contains(body.Debug, "db down") {
		t.Fatalf("expected cause in debug, got %q", body.Debug)
	}
	if body.Message != i18n.T("en", "internal_error") {
		t.Fatalf("expected english message, got %q", body.Message)
	}
}

func TestRecover(t *testing.T) {
	h := WithRecover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rr.Code)
	}
	if decode(t, rr).Error != "internal_error" {
		t.Fatal("expected internal_error code")
	}
}

func TestLoggingRequestID(t *testing.T) {
	var seen string
	h := WithLogging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || rr.Header().Get("X-Request-ID") != seen {
		t.Fatalf("request id not propagated: ctx=%q header=%q", seen, rr.Header().Get("X-Request-ID"))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if seen != "abc" {
		t.Fatalf("expected incoming id to be kept, got %q", seen)
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))
	if err := DecodeJSON(req, &dst); err != nil || dst.Name != "x" {
		t.Fatalf("decode failed: %v", err)
	}
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"nope":1}`))
	if err := DecodeJSON(req, &dst); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPathID(t *testing.T) {
	mux := http.NewServeMux()
	var got uint
	var gotErr error
	mux.HandleFunc("GET /x/{id}", func(w http.ResponseWriter, r *http.Request) {
		got, gotErr = PathID(r, "id")
	})
	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x/42", nil))
	if gotErr != nil || got != 42 {
		t.Fatalf("expected 42, got %d (%v)", got, gotErr)
	}
	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x/abc", nil))
	if !errors.Is(gotErr, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", gotErr)
	}
}
