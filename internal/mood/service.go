// Package mood は気分投稿の作成、検索、削除と集計のドメインロジックを提供する。
package mood

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"
	"unicode/utf8"

	"github.com/hitoshi/moodmap/internal/analyzer"
	"github.com/hitoshi/moodmap/internal/geo"
	"github.com/hitoshi/moodmap/internal/metrics"
	"github.com/hitoshi/moodmap/internal/model"
	"github.com/hitoshi/moodmap/internal/repository"
	"github.com/hitoshi/moodmap/internal/security"
)

const (
	// DefaultEventHours はイベント検出の既定の対象期間（時間）。
	DefaultEventHours = 24.0
	// DefaultTrendHours は推移集計の既定の対象期間（時間）。
	DefaultTrendHours = 24.0
)

// CreateInput は気分投稿の作成パラメータ。
type CreateInput struct {
	Emoji     string
	Text      string
	Latitude  *float64
	Longitude *float64
}

// Area は円形の検索範囲を表す。
type Area struct {
	Latitude  float64
	Longitude float64
	RadiusKm  float64
}

// Filter は投稿検索の条件。ゼロ値の項目は絞り込みに使わない。
type Filter struct {
	// Hours は現在から遡る時間。小数（分単位）も指定できる。
	Hours *float64
	// Emojis はいずれかに一致する投稿のみを返す。
	Emojis []string
	// Area は指定範囲内の投稿のみを返す。
	Area *Area
}

// Service は気分投稿のサービス層。
type Service struct {
	moodRepo  repository.MoodRepository
	sanitizer security.TextSanitizerService
	jitterer  *geo.Jitterer
	metrics   metrics.MetricsCollector
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。mcはnilでもよい。
func NewService(
	moodRepo repository.MoodRepository,
	sanitizer security.TextSanitizerService,
	jitterer *geo.Jitterer,
	mc metrics.MetricsCollector,
) *Service {
	if jitterer == nil {
		jitterer = geo.NewJitterer(nil)
	}
	return &Service{
		moodRepo:  moodRepo,
		sanitizer: sanitizer,
		jitterer:  jitterer,
		metrics:   mc,
		now:       time.Now,
	}
}

// Create は気分を投稿する。
// 位置はプライバシー保護のためぼかしてから保存する。
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*model.Mood, error) {
	// 1. 入力検証
	if !model.IsKnownEmoji(in.Emoji) {
		return nil, model.NewInvalidEmojiError(in.Emoji)
	}
	if in.Latitude == nil || in.Longitude == nil || !geo.ValidCoordinates(*in.Latitude, *in.Longitude) {
		return nil, model.NewInvalidLocationError()
	}

	text := s.sanitizer.Sanitize(in.Text)
	if utf8.RuneCountInString(text) > model.MaxMoodTextLength {
		return nil, model.NewTextTooLongError()
	}

	// 2. 位置のぼかし
	lat, lon := s.jitterer.Apply(*in.Latitude, *in.Longitude)
	lat = clamp(lat, -90, 90)
	lon = clamp(lon, -180, 180)

	// 3. 保存
	m := &model.Mood{
		UserID:    userID,
		Emoji:     in.Emoji,
		Text:      text,
		Latitude:  &lat,
		Longitude: &lon,
	}
	if err := s.moodRepo.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("気分投稿の保存に失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordMoodCreated(m.Emoji)
	}
	slog.Info("mood created",
		slog.Int64("mood_id", m.ID),
		slog.String("user_id", userID),
		slog.String("emoji", m.Emoji),
	)
	return m, nil
}

// List は全ユーザーの投稿を新しい順に返す。
func (s *Service) List(ctx context.Context, f Filter) ([]model.Mood, error) {
	return s.list(ctx, "", f)
}

// ListUserMoods は指定ユーザーの投稿を新しい順に返す。
func (s *Service) ListUserMoods(ctx context.Context, userID string, f Filter) ([]model.Mood, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}
	return s.list(ctx, userID, f)
}

func (s *Service) list(ctx context.Context, userID string, f Filter) ([]model.Mood, error) {
	q := repository.MoodQuery{
		UserID: userID,
		Emojis: f.Emojis,
	}
	if f.Hours != nil {
		since := s.now().Add(-hoursToDuration(*f.Hours))
		q.Since = &since
	}

	moods, err := s.moodRepo.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("気分投稿の取得に失敗しました: %w", err)
	}

	if f.Area != nil {
		moods = analyzer.WithinRadius(moods, f.Area.Latitude, f.Area.Longitude, f.Area.RadiusKm)
	}
	return moods, nil
}

// Delete は投稿を削除する。投稿者本人のみ削除できる。
func (s *Service) Delete(ctx context.Context, userID string, moodID int64) error {
	m, err := s.moodRepo.FindByID(ctx, moodID)
	if err != nil {
		return fmt.Errorf("気分投稿の取得に失敗しました: %w", err)
	}
	if m == nil {
		return model.NewMoodNotFoundError(moodID)
	}
	if m.UserID != userID {
		return model.NewMoodNotOwnedError()
	}

	deleted, err := s.moodRepo.Delete(ctx, moodID)
	if err != nil {
		return fmt.Errorf("気分投稿の削除に失敗しました: %w", err)
	}
	// 確認と削除の間に他のリクエストで削除された場合
	if !deleted {
		return model.NewMoodNotFoundError(moodID)
	}

	if s.metrics != nil {
		s.metrics.RecordMoodDeleted()
	}
	slog.Info("mood deleted",
		slog.Int64("mood_id", moodID),
		slog.String("user_id", userID),
	)
	return nil
}

// AreaMood は指定地点周辺の気分を集計する。
func (s *Service) AreaMood(ctx context.Context, area Area, hours *float64) (model.AreaMood, error) {
	if area.RadiusKm <= 0 {
		area.RadiusKm = analyzer.DefaultAreaRadiusKm
	}
	moods, err := s.list(ctx, "", Filter{Hours: hours})
	if err != nil {
		return model.AreaMood{}, err
	}
	return analyzer.AreaMood(moods, area.Latitude, area.Longitude, area.RadiusKm), nil
}

// Events は投稿のクラスタから出来事を推定し、確信度がminConfidence以上のものを返す。
func (s *Service) Events(ctx context.Context, area *Area, hours float64, minConfidence int) ([]model.Event, error) {
	if hours <= 0 {
		hours = DefaultEventHours
	}
	moods, err := s.list(ctx, "", Filter{Hours: &hours, Area: area})
	if err != nil {
		return nil, err
	}

	events := analyzer.DetectEvents(moods)
	if minConfidence > 0 {
		events = analyzer.FilterEventsByConfidence(events, minConfidence)
	}
	if events == nil {
		events = []model.Event{}
	}
	return events, nil
}

// Trends は直近hours時間の気分推移を返す。
func (s *Service) Trends(ctx context.Context, area *Area, hours float64) (model.Trends, error) {
	if hours <= 0 {
		hours = DefaultTrendHours
	}
	moods, err := s.list(ctx, "", Filter{Hours: &hours, Area: area})
	if err != nil {
		return model.Trends{}, err
	}
	return analyzer.Trends(moods, hours, s.now().UTC()), nil
}

// hoursToDuration は小数の時間をDurationに変換する。
func hoursToDuration(hours float64) time.Duration {
	return time.Duration(hours * float64(time.Hour))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
