package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/moodmap/internal/model"
)

func TestMapAPIErrorToHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{model.ErrCodeInvalidPhone, http.StatusBadRequest},
		{model.ErrCodeInvalidEmoji, http.StatusBadRequest},
		{model.ErrCodeTextTooLong, http.StatusBadRequest},
		{model.ErrCodeInvalidLocation, http.StatusBadRequest},
		{model.ErrCodeInvalidParameter, http.StatusBadRequest},
		{model.ErrCodeValidationFailed, http.StatusBadRequest},
		{model.ErrCodePhoneAlreadyExists, http.StatusConflict},
		{model.ErrCodeInvalidCredentials, http.StatusUnauthorized},
		{model.ErrCodeUnauthorized, http.StatusUnauthorized},
		{model.ErrCodeMoodNotFound, http.StatusNotFound},
		{model.ErrCodeUserNotFound, http.StatusNotFound},
		{model.ErrCodeMoodNotOwned, http.StatusForbidden},
		{model.ErrCodeCSRFInvalid, http.StatusForbidden},
		{model.ErrCodeRateLimited, http.StatusTooManyRequests},
		{model.ErrCodeGeocodeUnavailable, http.StatusServiceUnavailable},
		{model.ErrCodeInternal, http.StatusInternalServerError},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := mapAPIErrorToHTTPStatus(&model.APIError{Code: tt.code}); got != tt.want {
			t.Errorf("mapAPIErrorToHTTPStatus(%s) = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestHandleServiceError_WrappedAPIError(t *testing.T) {
	req := httptest.NewRequest(http.MethodDelete, "/api/moods/7", nil)
	w := httptest.NewRecorder()

	handleServiceError(w, req, fmt.Errorf("delete failed: %w", model.NewMoodNotOwnedError()))

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
	body := parseAPIErrorResponse(t, w)
	for _, field := range []string{"code", "message", "category", "action"} {
		if body[field] == "" {
			t.Errorf("field %q is empty", field)
		}
	}
	if body["code"] != model.ErrCodeMoodNotOwned {
		t.Errorf("code = %q, want %q", body["code"], model.ErrCodeMoodNotOwned)
	}
}

func TestHandleServiceError_InternalErrorHidesDetails(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/moods", nil)
	w := httptest.NewRecorder()

	handleServiceError(w, req, errors.New("pq: password authentication failed"))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	body := parseAPIErrorResponse(t, w)
	if body["code"] != model.ErrCodeInternal {
		t.Errorf("code = %q, want %q", body["code"], model.ErrCodeInternal)
	}
	if body["message"] == "pq: password authentication failed" {
		t.Error("内部エラーの詳細をレスポンスに含めてはならない")
	}
}

// --- GET /health テスト ---

type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) PingContext(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("deadline not set")
	}
	return m.err
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		checker    HealthChecker
		wantStatus int
		wantBody   string
	}{
		{"DB疎通あり", &mockHealthChecker{}, http.StatusOK, "ok"},
		{"DB疎通なし", &mockHealthChecker{err: errors.New("connection refused")}, http.StatusServiceUnavailable, "unavailable"},
		{"チェッカーなし", nil, http.StatusOK, "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			w := httptest.NewRecorder()

			Health(tt.checker)(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var body map[string]string
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["status"] != tt.wantBody {
				t.Errorf("status = %q, want %q", body["status"], tt.wantBody)
			}
		})
	}
}
