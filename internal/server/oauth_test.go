package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubExchanger struct {
	token string
	err   error
	codes []string
}

func (s *stubExchanger) Exchange(ctx context.Context, code string) (string, error) {
	s.codes = append(s.codes, code)
	return s.token, s.err
}

func TestOAuthHandler(t *testing.T) {
	t.Run("successful callback", func(t *testing.T) {
		ex := &stubExchanger{token: "id-token"}
		h := NewOAuthHandler(ex, "state-123")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=state-123&code=abc", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		result := <-h.Result()
		if err := result.Error(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IDToken != "id-token" {
			t.Errorf("expected id-token, got %q", result.IDToken)
		}
		if len(ex.codes) != 1 || ex.codes[0] != "abc" {
			t.Errorf("expected code abc to be exchanged, got %v", ex.codes)
		}
	})

	t.Run("state mismatch", func(t *testing.T) {
		ex := &stubExchanger{token: "id-token"}
		h := NewOAuthHandler(ex, "state-123")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=forged&code=abc", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		if result := <-h.Result(); result.Error() == nil {
			t.Error("expected error result")
		}
		if len(ex.codes) != 0 {
			t.Error("code must not be exchanged")
		}
	})

	t.Run("provider error", func(t *testing.T) {
		h := NewOAuthHandler(&stubExchanger{}, "s")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&error=access_denied", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		if result := <-h.Result(); result.Error() == nil {
			t.Error("expected error result")
		}
	})

	t.Run("exchange failure", func(t *testing.T) {
		h := NewOAuthHandler(&stubExchanger{err: errors.New("invalid_grant")}, "s")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&code=abc", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
		if result := <-h.Result(); result.Error() == nil {
			t.Error("expected error result")
		}
	})

	t.Run("second callback is rejected", func(t *testing.T) {
		h := NewOAuthHandler(&stubExchanger{token: "t"}, "s")
		router := NewBasicRouter()
		router.Handler(h)

		first := httptest.NewRecorder()
		router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/callback?state=s&code=a", nil))
		second := httptest.NewRecorder()
		router.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/callback?state=s&code=b", nil))

		if first.Code != http.StatusOK || second.Code != http.StatusBadRequest {
			t.Errorf("expected 200 then 400, got %d then %d", first.Code, second.Code)
		}
	})
}
