package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/moodmap/internal/middleware"
	"github.com/hitoshi/moodmap/internal/model"
	"github.com/hitoshi/moodmap/internal/mood"
)

// --- モック定義 ---

// mockMoodService はMoodServiceInterfaceのモック実装。
type mockMoodService struct {
	createFn        func(ctx context.Context, userID string, in mood.CreateInput) (*model.Mood, error)
	listFn          func(ctx context.Context, f mood.Filter) ([]model.Mood, error)
	listUserMoodsFn func(ctx context.Context, userID string, f mood.Filter) ([]model.Mood, error)
	deleteFn        func(ctx context.Context, userID string, moodID int64) error
	areaMoodFn      func(ctx context.Context, area mood.Area, hours *float64) (model.AreaMood, error)
	eventsFn        func(ctx context.Context, area *mood.Area, hours float64, minConfidence int) ([]model.Event, error)
	trendsFn        func(ctx context.Context, area *mood.Area, hours float64) (model.Trends, error)
}

func (m *mockMoodService) Create(ctx context.Context, userID string, in mood.CreateInput) (*model.Mood, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID, in)
	}
	return nil, errors.New("not implemented")
}

func (m *mockMoodService) List(ctx context.Context, f mood.Filter) ([]model.Mood, error) {
	if m.listFn != nil {
		return m.listFn(ctx, f)
	}
	return []model.Mood{}, nil
}

func (m *mockMoodService) ListUserMoods(ctx context.Context, userID string, f mood.Filter) ([]model.Mood, error) {
	if m.listUserMoodsFn != nil {
		return m.listUserMoodsFn(ctx, userID, f)
	}
	return []model.Mood{}, nil
}

func (m *mockMoodService) Delete(ctx context.Context, userID string, moodID int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID, moodID)
	}
	return nil
}

func (m *mockMoodService) AreaMood(ctx context.Context, area mood.Area, hours *float64) (model.AreaMood, error) {
	if m.areaMoodFn != nil {
		return m.areaMoodFn(ctx, area, hours)
	}
	return model.AreaMood{DominantEmoji: model.EmojiNeutral, PositivePercentage: 50}, nil
}

func (m *mockMoodService) Events(ctx context.Context, area *mood.Area, hours float64, minConfidence int) ([]model.Event, error) {
	if m.eventsFn != nil {
		return m.eventsFn(ctx, area, hours, minConfidence)
	}
	return []model.Event{}, nil
}

func (m *mockMoodService) Trends(ctx context.Context, area *mood.Area, hours float64) (model.Trends, error) {
	if m.trendsFn != nil {
		return m.trendsFn(ctx, area, hours)
	}
	return model.Trends{Direction: model.TrendStable}, nil
}

// --- テストヘルパー ---

// withUserID はテスト用にリクエストコンテキストにユーザーIDを注入するヘルパー。
func withUserID(r *http.Request, userID string) *http.Request {
	ctx := middleware.ContextWithUserID(r.Context(), userID)
	return r.WithContext(ctx)
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}

// jsonBody はJSONエンコードしたリクエストボディを返すヘルパー。
func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to encode body: %v", err)
	}
	return bytes.NewReader(b)
}

func floatPtr(v float64) *float64 { return &v }

func sampleMood(id int64, userID, emoji string) model.Mood {
	return model.Mood{
		ID:        id,
		UserID:    userID,
		Emoji:     emoji,
		Text:      "テスト",
		Latitude:  floatPtr(55.75),
		Longitude: floatPtr(37.61),
		Timestamp: "2026-05-01T12:00:00",
		CreatedAt: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

// --- POST /api/moods テスト ---

func TestMoodHandler_CreateMood_Success(t *testing.T) {
	var gotUserID string
	var gotInput mood.CreateInput
	svc := &mockMoodService{
		createFn: func(ctx context.Context, userID string, in mood.CreateInput) (*model.Mood, error) {
			gotUserID = userID
			gotInput = in
			m := sampleMood(42, userID, in.Emoji)
			return &m, nil
		},
	}
	h := NewMoodHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/moods", jsonBody(t, map[string]any{
		"emoji":     model.EmojiHappy,
		"text":      "晴れて気分がいい",
		"latitude":  55.75,
		"longitude": 37.61,
	}))
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.CreateMood(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d, body = %s", w.Code, http.StatusCreated, w.Body.String())
	}
	if gotUserID != "user-123" {
		t.Errorf("userID = %q, want user-123", gotUserID)
	}
	if gotInput.Emoji != model.EmojiHappy || gotInput.Text != "晴れて気分がいい" {
		t.Errorf("input = %+v", gotInput)
	}
	if gotInput.Latitude == nil || *gotInput.Latitude != 55.75 {
		t.Errorf("latitude = %v, want 55.75", gotInput.Latitude)
	}

	var resp map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["id"] != float64(42) {
		t.Errorf("id = %v, want 42", resp["id"])
	}
	if resp["user_id"] != "user-123" {
		t.Errorf("user_id = %v, want user-123", resp["user_id"])
	}
	if resp["timestamp"] != "2026-05-01T12:00:00" {
		t.Errorf("timestamp = %v", resp["timestamp"])
	}
}

func TestMoodHandler_CreateMood_ValidationErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"不正なJSON", `{invalid`, model.ErrCodeValidationFailed},
		{"絵文字なし", `{"latitude":1,"longitude":1}`, model.ErrCodeInvalidEmoji},
		{"未知の絵文字", `{"emoji":"🐸","latitude":1,"longitude":1}`, model.ErrCodeInvalidEmoji},
		{"緯度なし", `{"emoji":"😊","longitude":1}`, model.ErrCodeInvalidLocation},
		{"緯度が範囲外", `{"emoji":"😊","latitude":91,"longitude":1}`, model.ErrCodeInvalidLocation},
		{"経度が範囲外", `{"emoji":"😊","latitude":1,"longitude":-181}`, model.ErrCodeInvalidLocation},
		{"テキストが長すぎる", `{"emoji":"😊","text":"` + strings.Repeat("あ", 2001) + `","latitude":1,"longitude":1}`, model.ErrCodeTextTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockMoodService{
				createFn: func(ctx context.Context, userID string, in mood.CreateInput) (*model.Mood, error) {
					t.Error("検証エラー時にサービスを呼び出してはならない")
					return nil, nil
				},
			}
			h := NewMoodHandler(svc)

			req := httptest.NewRequest(http.MethodPost, "/api/moods", strings.NewReader(tt.body))
			req = withUserID(req, "user-123")
			w := httptest.NewRecorder()

			h.CreateMood(w, req)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
			if got := parseAPIErrorResponse(t, w)["code"]; got != tt.wantCode {
				t.Errorf("code = %q, want %q", got, tt.wantCode)
			}
		})
	}
}

func TestMoodHandler_CreateMood_NoUserID_ReturnsUnauthorized(t *testing.T) {
	h := NewMoodHandler(&mockMoodService{})

	req := httptest.NewRequest(http.MethodPost, "/api/moods", strings.NewReader(`{}`))
	w := httptest.NewRecorder()

	h.CreateMood(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestMoodHandler_CreateMood_ServiceErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"サニタイズ後に長すぎる", model.NewTextTooLongError(), http.StatusBadRequest, model.ErrCodeTextTooLong},
		{"DBエラー", errors.New("connection refused"), http.StatusInternalServerError, model.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockMoodService{
				createFn: func(ctx context.Context, userID string, in mood.CreateInput) (*model.Mood, error) {
					return nil, tt.err
				},
			}
			h := NewMoodHandler(svc)

			req := httptest.NewRequest(http.MethodPost, "/api/moods",
				strings.NewReader(`{"emoji":"😊","latitude":1,"longitude":1}`))
			req = withUserID(req, "user-123")
			w := httptest.NewRecorder()

			h.CreateMood(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			body := parseAPIErrorResponse(t, w)
			if body["code"] != tt.wantCode {
				t.Errorf("code = %q, want %q", body["code"], tt.wantCode)
			}
			if strings.Contains(body["message"], "connection refused") {
				t.Error("内部エラーの詳細をレスポンスに含めてはならない")
			}
		})
	}
}

// --- GET /api/moods テスト ---

func TestMoodHandler_ListMoods_ParsesQuery(t *testing.T) {
	var got mood.Filter
	svc := &mockMoodService{
		listFn: func(ctx context.Context, f mood.Filter) ([]model.Mood, error) {
			got = f
			return []model.Mood{sampleMood(1, "user-a", model.EmojiHappy)}, nil
		},
	}
	h := NewMoodHandler(svc)

	q := url.Values{}
	q.Set("lat", "55.75")
	q.Set("lng", "37.61")
	q.Set("radius", "2.5")
	q.Set("hours", "0.5")
	q.Set("emojis", model.EmojiHappy+", "+model.EmojiSad+",")
	req := httptest.NewRequest(http.MethodGet, "/api/moods?"+q.Encode(), nil)
	w := httptest.NewRecorder()

	h.ListMoods(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body = %s", w.Code, http.StatusOK, w.Body.String())
	}
	if got.Hours == nil || *got.Hours != 0.5 {
		t.Errorf("Hours = %v, want 0.5", got.Hours)
	}
	if len(got.Emojis) != 2 || got.Emojis[0] != model.EmojiHappy || got.Emojis[1] != model.EmojiSad {
		t.Errorf("Emojis = %v", got.Emojis)
	}
	if got.Area == nil {
		t.Fatal("Area should be set")
	}
	if *got.Area != (mood.Area{Latitude: 55.75, Longitude: 37.61, RadiusKm: 2.5}) {
		t.Errorf("Area = %+v", *got.Area)
	}

	var resp []map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 1 {
		t.Fatalf("len = %d, want 1", len(resp))
	}
	if _, ok := resp[0]["user_id"]; ok {
		t.Error("公開一覧にuser_idを含めてはならない")
	}
}

func TestMoodHandler_ListMoods_MarksOwnMoods(t *testing.T) {
	svc := &mockMoodService{
		listFn: func(ctx context.Context, f mood.Filter) ([]model.Mood, error) {
			return []model.Mood{
				sampleMood(2, "user-a", model.EmojiHappy),
				sampleMood(1, "user-b", model.EmojiSad),
			}, nil
		},
	}
	h := NewMoodHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/moods", nil)
	req = withUserID(req, "user-a")
	w := httptest.NewRecorder()

	h.ListMoods(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp []moodResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 2 {
		t.Fatalf("len = %d, want 2", len(resp))
	}
	if !resp[0].IsOwn || resp[1].IsOwn {
		t.Errorf("自分の投稿のみis_ownを立てるべき: %+v", resp)
	}
	if resp[0].UserID != "" {
		t.Error("ログイン中でも公開一覧にuser_idを含めてはならない")
	}
}

func TestMoodHandler_ListMoods_AreaRequiresRadius(t *testing.T) {
	var got mood.Filter
	svc := &mockMoodService{
		listFn: func(ctx context.Context, f mood.Filter) ([]model.Mood, error) {
			got = f
			return []model.Mood{}, nil
		},
	}
	h := NewMoodHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/moods?lat=55.75&lng=37.61", nil)
	w := httptest.NewRecorder()

	h.ListMoods(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got.Area != nil {
		t.Errorf("radius未指定では範囲で絞り込まないべき: %+v", got.Area)
	}
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("空の一覧は[]を返すべき: %s", w.Body.String())
	}
}

func TestMoodHandler_ListMoods_InvalidQuery(t *testing.T) {
	tests := []struct {
		query    string
		wantCode string
	}{
		{"lat=55.75", model.ErrCodeInvalidParameter},
		{"lng=37.61&radius=1", model.ErrCodeInvalidParameter},
		{"lat=abc&lng=1", model.ErrCodeInvalidParameter},
		{"lat=NaN&lng=1", model.ErrCodeInvalidParameter},
		{"lat=91&lng=0&radius=1", model.ErrCodeInvalidLocation},
		{"lat=1&lng=1&radius=0", model.ErrCodeInvalidParameter},
		{"hours=-1", model.ErrCodeInvalidParameter},
		{"hours=0", model.ErrCodeInvalidParameter},
		{"hours=abc", model.ErrCodeInvalidParameter},
		{"hours=1e300", model.ErrCodeInvalidParameter},
		{"hours=876001", model.ErrCodeInvalidParameter},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			svc := &mockMoodService{
				listFn: func(ctx context.Context, f mood.Filter) ([]model.Mood, error) {
					t.Error("パラメータ不正時にサービスを呼び出してはならない")
					return nil, nil
				},
			}
			h := NewMoodHandler(svc)

			req := httptest.NewRequest(http.MethodGet, "/api/moods?"+tt.query, nil)
			w := httptest.NewRecorder()

			h.ListMoods(w, req)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
			if got := parseAPIErrorResponse(t, w)["code"]; got != tt.wantCode {
				t.Errorf("code = %q, want %q", got, tt.wantCode)
			}
		})
	}
}

// --- GET /api/user-moods テスト ---

func TestMoodHandler_ListUserMoods_Success(t *testing.T) {
	var gotUserID string
	var gotFilter mood.Filter
	svc := &mockMoodService{
		listUserMoodsFn: func(ctx context.Context, userID string, f mood.Filter) ([]model.Mood, error) {
			gotUserID = userID
			gotFilter = f
			return []model.Mood{
				sampleMood(2, userID, model.EmojiSad),
				sampleMood(1, userID, model.EmojiHappy),
			}, nil
		},
	}
	h := NewMoodHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/user-moods?hours=24", nil)
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.ListUserMoods(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotUserID != "user-123" {
		t.Errorf("userID = %q, want user-123", gotUserID)
	}
	if gotFilter.Hours == nil || *gotFilter.Hours != 24 {
		t.Errorf("Hours = %v, want 24", gotFilter.Hours)
	}

	var resp []moodResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 2 || resp[0].ID != 2 || resp[1].ID != 1 {
		t.Errorf("サービスの並び順を保つべき: %+v", resp)
	}
	if resp[0].UserID != "user-123" {
		t.Errorf("user_id = %q, want user-123", resp[0].UserID)
	}
}

func TestMoodHandler_ListUserMoods_NoUserID_ReturnsUnauthorized(t *testing.T) {
	h := NewMoodHandler(&mockMoodService{})

	req := httptest.NewRequest(http.MethodGet, "/api/user-moods", nil)
	w := httptest.NewRecorder()

	h.ListUserMoods(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if got := parseAPIErrorResponse(t, w)["code"]; got != model.ErrCodeUnauthorized {
		t.Errorf("code = %q, want %q", got, model.ErrCodeUnauthorized)
	}
}

// --- DELETE /api/moods/{id} テスト ---

func TestMoodHandler_DeleteMood(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		err        error
		wantStatus int
	}{
		{"成功", "42", nil, http.StatusNoContent},
		{"存在しない", "42", model.NewMoodNotFoundError(42), http.StatusNotFound},
		{"他人の投稿", "42", model.NewMoodNotOwnedError(), http.StatusForbidden},
		{"数値でないID", "abc", nil, http.StatusBadRequest},
		{"0以下のID", "0", nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotID int64
			svc := &mockMoodService{
				deleteFn: func(ctx context.Context, userID string, moodID int64) error {
					gotID = moodID
					if userID != "user-123" {
						t.Errorf("userID = %q, want user-123", userID)
					}
					return tt.err
				},
			}
			h := NewMoodHandler(svc)

			req := httptest.NewRequest(http.MethodDelete, "/api/moods/"+tt.id, nil)
			req = withUserID(req, "user-123")
			req = withChiURLParam(req, "id", tt.id)
			w := httptest.NewRecorder()

			h.DeleteMood(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusNoContent && gotID != 42 {
				t.Errorf("moodID = %d, want 42", gotID)
			}
		})
	}
}

// --- GET /api/area-mood テスト ---

func TestMoodHandler_AreaMood_DefaultRadius(t *testing.T) {
	var gotArea mood.Area
	var gotHours *float64
	svc := &mockMoodService{
		areaMoodFn: func(ctx context.Context, area mood.Area, hours *float64) (model.AreaMood, error) {
			gotArea = area
			gotHours = hours
			return model.AreaMood{DominantEmoji: model.EmojiHappy, PositivePercentage: 75, TotalMoods: 4}, nil
		},
	}
	h := NewMoodHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/area-mood?lat=55.75&lng=37.61", nil)
	w := httptest.NewRecorder()

	h.AreaMood(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotArea.RadiusKm != 5 {
		t.Errorf("radius = %v, want 5", gotArea.RadiusKm)
	}
	if gotHours != nil {
		t.Errorf("hours = %v, want nil", *gotHours)
	}

	var resp map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["dominant_emoji"] != model.EmojiHappy {
		t.Errorf("dominant_emoji = %v", resp["dominant_emoji"])
	}
	if resp["mood_percentage"] != float64(75) {
		t.Errorf("mood_percentage = %v, want 75", resp["mood_percentage"])
	}
	if resp["moods_count"] != float64(4) {
		t.Errorf("moods_count = %v, want 4", resp["moods_count"])
	}
}

func TestMoodHandler_AreaMood_RequiresLocation(t *testing.T) {
	h := NewMoodHandler(&mockMoodService{})

	req := httptest.NewRequest(http.MethodGet, "/api/area-mood?radius=3", nil)
	w := httptest.NewRecorder()

	h.AreaMood(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if got := parseAPIErrorResponse(t, w)["code"]; got != model.ErrCodeInvalidParameter {
		t.Errorf("code = %q, want %q", got, model.ErrCodeInvalidParameter)
	}
}

// --- GET /api/events テスト ---

func TestMoodHandler_Events_Defaults(t *testing.T) {
	var gotArea *mood.Area
	var gotHours float64
	var gotMin int
	svc := &mockMoodService{
		eventsFn: func(ctx context.Context, area *mood.Area, hours float64, minConfidence int) ([]model.Event, error) {
			gotArea, gotHours, gotMin = area, hours, minConfidence
			return []model.Event{{
				Type:               model.EventConcert,
				Latitude:           55.75,
				Longitude:          37.61,
				Confidence:         60,
				MoodCount:          5,
				DominantEmoji:      model.EmojiHappy,
				PositivePercentage: 100,
			}}, nil
		},
	}
	h := NewMoodHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	w := httptest.NewRecorder()

	h.Events(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotArea != nil {
		t.Errorf("area = %+v, want nil", gotArea)
	}
	if gotHours != 24 {
		t.Errorf("hours = %v, want 24", gotHours)
	}
	if gotMin != 30 {
		t.Errorf("min_confidence = %d, want 30", gotMin)
	}

	var resp []map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 1 {
		t.Fatalf("len = %d, want 1", len(resp))
	}
	if resp[0]["type"] != "concert" {
		t.Errorf("type = %v", resp[0]["type"])
	}
	loc, ok := resp[0]["location"].(map[string]any)
	if !ok || loc["lat"] != 55.75 || loc["lng"] != 37.61 {
		t.Errorf("location = %v", resp[0]["location"])
	}
	if kw, ok := resp[0]["keywords"].([]any); !ok || len(kw) != 0 {
		t.Errorf("keywordsはnullではなく空配列を返すべき: %v", resp[0]["keywords"])
	}
}

func TestMoodHandler_Events_InvalidMinConfidence(t *testing.T) {
	for _, q := range []string{"min_confidence=abc", "min_confidence=-1", "min_confidence=101"} {
		h := NewMoodHandler(&mockMoodService{})

		req := httptest.NewRequest(http.MethodGet, "/api/events?"+q, nil)
		w := httptest.NewRecorder()

		h.Events(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want %d", q, w.Code, http.StatusBadRequest)
		}
	}
}

// --- GET /api/trends テスト ---

func TestMoodHandler_Trends_RejectsHugeHours(t *testing.T) {
	svc := &mockMoodService{
		trendsFn: func(ctx context.Context, area *mood.Area, hours float64) (model.Trends, error) {
			t.Error("上限を超えるhoursでサービスを呼び出してはならない")
			return model.Trends{}, nil
		},
	}
	h := NewMoodHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/trends?hours=1e300", nil)
	w := httptest.NewRecorder()

	h.Trends(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if got := parseAPIErrorResponse(t, w)["code"]; got != model.ErrCodeInvalidParameter {
		t.Errorf("code = %q, want %q", got, model.ErrCodeInvalidParameter)
	}
}

func TestMoodHandler_Trends(t *testing.T) {
	end := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	var gotHours float64
	var gotArea *mood.Area
	svc := &mockMoodService{
		trendsFn: func(ctx context.Context, area *mood.Area, hours float64) (model.Trends, error) {
			gotHours, gotArea = hours, area
			return model.Trends{
				Buckets: []model.TrendBucket{
					{Start: end.Add(-2 * time.Hour), End: end, PositivePercentage: 80, Count: 5},
					{Start: end.Add(-4 * time.Hour), End: end.Add(-2 * time.Hour), PositivePercentage: 20, Count: 5},
				},
				EmojiCounts: map[string]int{model.EmojiHappy: 6, model.EmojiSad: 4},
				Direction:   model.TrendUp,
				TotalMoods:  10,
			}, nil
		},
	}
	h := NewMoodHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/trends?hours=12&lat=55.75&lng=37.61&radius=3", nil)
	w := httptest.NewRecorder()

	h.Trends(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotHours != 12 {
		t.Errorf("hours = %v, want 12", gotHours)
	}
	if gotArea == nil || gotArea.RadiusKm != 3 {
		t.Errorf("area = %+v", gotArea)
	}

	var resp trendsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.TimePeriods) != 2 || resp.TimePeriods[0] != "10:00 - 12:00" {
		t.Errorf("time_periods = %v", resp.TimePeriods)
	}
	if len(resp.MoodPercentages) != 2 || resp.MoodPercentages[0] != 80 || resp.MoodPercentages[1] != 20 {
		t.Errorf("mood_percentages = %v", resp.MoodPercentages)
	}
	if resp.TrendDirection != model.TrendUp {
		t.Errorf("trend_direction = %q, want up", resp.TrendDirection)
	}
	if resp.TotalMoods != 10 || resp.EmojiCounts[model.EmojiHappy] != 6 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestMoodHandler_Trends_DefaultHours(t *testing.T) {
	var gotHours float64
	svc := &mockMoodService{
		trendsFn: func(ctx context.Context, area *mood.Area, hours float64) (model.Trends, error) {
			gotHours = hours
			return model.Trends{Direction: model.TrendStable}, nil
		},
	}
	h := NewMoodHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/trends", nil)
	w := httptest.NewRecorder()

	h.Trends(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotHours != 24 {
		t.Errorf("hours = %v, want 24", gotHours)
	}
	var resp map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := resp["emoji_counts"].(map[string]any); !ok {
		t.Errorf("emoji_countsはnullではなく空オブジェクトを返すべき: %v", resp["emoji_counts"])
	}
}
