package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/moodmap/internal/middleware"
	"github.com/hitoshi/moodmap/internal/model"
	"github.com/hitoshi/moodmap/internal/mood"
)

// MoodServiceInterface は気分ハンドラーが必要とするサービスインターフェース。
type MoodServiceInterface interface {
	Create(ctx context.Context, userID string, in mood.CreateInput) (*model.Mood, error)
	List(ctx context.Context, f mood.Filter) ([]model.Mood, error)
	ListUserMoods(ctx context.Context, userID string, f mood.Filter) ([]model.Mood, error)
	// Delete は投稿者本人の投稿のみ削除する。
	Delete(ctx context.Context, userID string, moodID int64) error
	AreaMood(ctx context.Context, area mood.Area, hours *float64) (model.AreaMood, error)
	Events(ctx context.Context, area *mood.Area, hours float64, minConfidence int) ([]model.Event, error)
	Trends(ctx context.Context, area *mood.Area, hours float64) (model.Trends, error)
}

// MoodHandler は気分投稿と集計のHTTPハンドラー。
type MoodHandler struct {
	service MoodServiceInterface
}

// NewMoodHandler はMoodHandlerを生成する。
func NewMoodHandler(service MoodServiceInterface) *MoodHandler {
	return &MoodHandler{service: service}
}

// --- リクエスト・レスポンス型 ---

// createMoodRequest は気分投稿リクエストのボディ。
// テキスト長の上限はサニタイズ後にサービス層で検証する。
type createMoodRequest struct {
	Emoji     string   `json:"emoji" validate:"required,mood_emoji"`
	Text      string   `json:"text" validate:"max=2000"`
	Latitude  *float64 `json:"latitude" validate:"required,latitude"`
	Longitude *float64 `json:"longitude" validate:"required,longitude"`
}

// moodResponse は気分投稿のレスポンス。
// 公開一覧ではuser_idを返さない。
type moodResponse struct {
	ID        int64    `json:"id"`
	UserID    string   `json:"user_id,omitempty"`
	Emoji     string   `json:"emoji"`
	Text      string   `json:"text"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Address   string   `json:"address,omitempty"`
	Timestamp string   `json:"timestamp"`
	IsOwn     bool     `json:"is_own,omitempty"`
}

// areaMoodResponse はエリア集計のレスポンス。
type areaMoodResponse struct {
	DominantEmoji  string `json:"dominant_emoji"`
	MoodPercentage int    `json:"mood_percentage"`
	MoodsCount     int    `json:"moods_count"`
}

type locationResponse struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// eventResponse は推定イベントのレスポンス。
type eventResponse struct {
	Type           model.EventType  `json:"type"`
	Location       locationResponse `json:"location"`
	Confidence     int              `json:"confidence"`
	DominantEmoji  string           `json:"dominant_emoji"`
	MoodPercentage int              `json:"mood_percentage"`
	MoodsCount     int              `json:"moods_count"`
	Keywords       []string         `json:"keywords"`
}

// trendsResponse は時間帯別推移のレスポンス。
// time_periodsとmood_percentagesは同じ順序（新しい区間が先頭）で対応する。
type trendsResponse struct {
	TimePeriods     []string             `json:"time_periods"`
	MoodPercentages []int                `json:"mood_percentages"`
	EmojiCounts     map[string]int       `json:"emoji_counts"`
	TrendDirection  model.TrendDirection `json:"trend_direction"`
	TotalMoods      int                  `json:"total_moods"`
}

// CreateMood は気分を投稿する。
// POST /api/moods
func (h *MoodHandler) CreateMood(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req createMoodRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	m, err := h.service.Create(r.Context(), userID, mood.CreateInput{
		Emoji:     req.Emoji,
		Text:      req.Text,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toMoodResponse(*m, true))
}

// ListMoods は全ユーザーの投稿を返す。認証不要。
// GET /api/moods?lat=&lng=&radius=&hours=&emojis=
func (h *MoodHandler) ListMoods(w http.ResponseWriter, r *http.Request) {
	f, apiErr := parseFilter(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	moods, err := h.service.List(r.Context(), f)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := toMoodResponses(moods, false)
	// ログイン中であれば自分の投稿に印を付ける
	if viewerID, err := middleware.UserIDFromContext(r.Context()); err == nil {
		for i, m := range moods {
			resp[i].IsOwn = m.UserID == viewerID
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListUserMoods は現在のユーザーの投稿を新しい順に返す。
// GET /api/user-moods?hours=&emojis=&lat=&lng=&radius=
func (h *MoodHandler) ListUserMoods(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	f, apiErr := parseFilter(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	moods, err := h.service.ListUserMoods(r.Context(), userID, f)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toMoodResponses(moods, true))
}

// DeleteMood は投稿を削除する。
// DELETE /api/moods/{id}
func (h *MoodHandler) DeleteMood(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	moodID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || moodID <= 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidParameterError("id"))
		return
	}

	if err := h.service.Delete(r.Context(), userID, moodID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AreaMood は指定地点周辺の気分を集計する。
// GET /api/area-mood?lat=&lng=&radius=&hours=
func (h *MoodHandler) AreaMood(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	area, apiErr := parseArea(q, true, defaultAreaRadiusKm)
	if apiErr != nil {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}
	hours, apiErr := parseHours(q)
	if apiErr != nil {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	result, err := h.service.AreaMood(r.Context(), *area, hours)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, areaMoodResponse{
		DominantEmoji:  result.DominantEmoji,
		MoodPercentage: result.PositivePercentage,
		MoodsCount:     result.TotalMoods,
	})
}

// Events は気分のまとまりから推定したイベントを返す。
// GET /api/events?lat=&lng=&radius=&hours=24&min_confidence=30
func (h *MoodHandler) Events(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	area, apiErr := parseArea(q, false, 0)
	if apiErr != nil {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}
	hours, apiErr := parseHoursWithDefault(q, mood.DefaultEventHours)
	if apiErr != nil {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}
	minConfidence, apiErr := parseMinConfidence(q)
	if apiErr != nil {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	events, err := h.service.Events(r.Context(), area, hours, minConfidence)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]eventResponse, len(events))
	for i, e := range events {
		keywords := e.Keywords
		if keywords == nil {
			keywords = []string{}
		}
		resp[i] = eventResponse{
			Type:           e.Type,
			Location:       locationResponse{Latitude: e.Latitude, Longitude: e.Longitude},
			Confidence:     e.Confidence,
			DominantEmoji:  e.DominantEmoji,
			MoodPercentage: e.PositivePercentage,
			MoodsCount:     e.MoodCount,
			Keywords:       keywords,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Trends は時間帯別の気分推移を返す。
// GET /api/trends?hours=24&lat=&lng=&radius=
func (h *MoodHandler) Trends(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	area, apiErr := parseArea(q, false, 0)
	if apiErr != nil {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}
	hours, apiErr := parseHoursWithDefault(q, mood.DefaultTrendHours)
	if apiErr != nil {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	trends, err := h.service.Trends(r.Context(), area, hours)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := trendsResponse{
		TimePeriods:     make([]string, len(trends.Buckets)),
		MoodPercentages: make([]int, len(trends.Buckets)),
		EmojiCounts:     trends.EmojiCounts,
		TrendDirection:  trends.Direction,
		TotalMoods:      trends.TotalMoods,
	}
	for i, b := range trends.Buckets {
		resp.TimePeriods[i] = b.Label()
		resp.MoodPercentages[i] = b.PositivePercentage
	}
	if resp.EmojiCounts == nil {
		resp.EmojiCounts = map[string]int{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// parseFilter は一覧系エンドポイント共通のクエリパラメータを読み取る。
// 範囲指定はlat、lng、radiusが揃った場合のみ有効になる。
func parseFilter(r *http.Request) (mood.Filter, *model.APIError) {
	q := r.URL.Query()
	hours, apiErr := parseHours(q)
	if apiErr != nil {
		return mood.Filter{}, apiErr
	}
	area, apiErr := parseArea(q, false, 0)
	if apiErr != nil {
		return mood.Filter{}, apiErr
	}
	return mood.Filter{
		Hours:  hours,
		Emojis: parseEmojis(q),
		Area:   area,
	}, nil
}

func toMoodResponse(m model.Mood, includeUser bool) moodResponse {
	resp := moodResponse{
		ID:        m.ID,
		Emoji:     m.Emoji,
		Text:      m.Text,
		Latitude:  m.Latitude,
		Longitude: m.Longitude,
		Address:   m.Address,
		Timestamp: m.Timestamp,
	}
	if includeUser {
		resp.UserID = m.UserID
	}
	return resp
}

func toMoodResponses(moods []model.Mood, includeUser bool) []moodResponse {
	resp := make([]moodResponse, len(moods))
	for i, m := range moods {
		resp[i] = toMoodResponse(m, includeUser)
	}
	return resp
}
