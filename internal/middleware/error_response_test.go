package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/moodmap/internal/model"
)

func TestWriteErrorResponse_WritesUnifiedFormat(t *testing.T) {
	w := httptest.NewRecorder()
	WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidEmojiError("🐱"))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	body := decodeErrorBody(t, w)
	if body.Code != model.ErrCodeInvalidEmoji {
		t.Errorf("code = %q", body.Code)
	}
	if body.Category != "validation" || body.Message == "" || body.Action == "" {
		t.Errorf("body = %+v", body)
	}
}

func TestWriteInternalServerError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteInternalServerError(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	body := decodeErrorBody(t, w)
	if body.Code != "INTERNAL_ERROR" || body.Category != "system" {
		t.Errorf("body = %+v", body)
	}
}

func TestErrorResponseBody_AllFieldsPresent(t *testing.T) {
	w := httptest.NewRecorder()
	WriteErrorResponse(w, http.StatusConflict, model.NewPhoneAlreadyExistsError())

	var raw map[string]any
	if err := json.NewDecoder(w.Result().Body).Decode(&raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, key := range []string{"code", "message", "category", "action"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("missing field %q", key)
		}
	}
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	w := httptest.NewRecorder()
	NewSecurityHeadersMiddleware()(okHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	want := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
		"Permissions-Policy":     "camera=(), microphone=(), geolocation=(self)",
	}
	for k, v := range want {
		if got := w.Header().Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
}

func TestRecoveryMiddleware_PanicReturnsUnified500(t *testing.T) {
	handler := NewRecoveryMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/trends", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if body := decodeErrorBody(t, w); body.Code != model.ErrCodeInternal {
		t.Errorf("code = %q", body.Code)
	}
}

// TestMiddlewareChain はルーターと同じ順序で組み合わせた場合の動作を検証する。
func TestMiddlewareChain(t *testing.T) {
	rl := NewRateLimiter(testRateConfig())
	defer rl.Stop()

	chain := func(h http.Handler) http.Handler {
		h = rl.GeneralMiddleware()(h)
		h = NewSessionMiddleware(sessionRepoFor("chain-session", "user-chain"))(h)
		h = NewCSRFMiddleware(CSRFConfig{})(h)
		h = NewCORSMiddleware("https://moodmap.example")(h)
		return NewRecoveryMiddleware()(NewRequestIDMiddleware()(h))
	}
	handler := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, _ := UserIDFromContext(r.Context())
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"user_id": userID})
	}))

	send := func(method string, withSession bool) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/api/user-moods", nil)
		req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "csrf"})
		req.Header.Set(csrfHeaderName, "csrf")
		if withSession {
			req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "chain-session"})
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	if w := send(http.MethodGet, false); w.Code != http.StatusUnauthorized {
		t.Errorf("セッションなし: status = %d, want 401", w.Code)
	}
	for i := 0; i < 3; i++ {
		w := send(http.MethodPost, true)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, w.Code)
		}
		if w.Header().Get("X-Request-ID") == "" {
			t.Error("X-Request-ID ヘッダーがない")
		}
	}
	if w := send(http.MethodPost, true); w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", w.Code)
	}
}
