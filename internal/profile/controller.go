package profile

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/moodmap/internal/analyzer"
	"github.com/hitoshi/moodmap/internal/geo"
	"github.com/hitoshi/moodmap/internal/model"
)

// DefaultRequestTimeout はAPI呼び出し1回あたりのデフォルトタイムアウト。
const DefaultRequestTimeout = 10 * time.Second

// MoodAPI はコントローラが利用する気分APIを表す。
type MoodAPI interface {
	// ListUserMoods は現在のユーザーの投稿を取得する。hoursがnilの場合は全履歴を返す。
	ListUserMoods(ctx context.Context, hours *float64) ([]model.Mood, error)
	// DeleteMood は投稿を削除する。
	DeleteMood(ctx context.Context, id int64) error
}

// Session はプロフィール画面1つ分の状態を表す。
type Session struct {
	AllMoods           []model.Mood
	ActiveEmojiFilters []string
	WindowMinutes      *int
	SortOrder          SortOrder
}

// View は表示用に導出された一覧と統計を表す。
// 統計は絞り込み後の表示対象に対して計算される。
type View struct {
	Moods              []model.Mood
	DominantEmoji      string
	HasDominant        bool
	Count              int
	PositivePercentage int
	ActiveEmojiFilters []string
	WindowMinutes      *int
	SortOrder          SortOrder
}

// Controller はプロフィール画面の状態遷移を管理する。
// ネットワーク呼び出し中はロックを保持しない。
type Controller struct {
	api     MoodAPI
	clock   geo.Clock
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	session Session
	// fetchGen は最後に発行した取得リクエストの世代番号。
	fetchGen uint64
	// deletedAt は削除済みIDと削除完了時点のfetchGen。
	deletedAt map[int64]uint64
}

// Option はControllerの設定を変更する。
type Option func(*Controller)

// WithClock は現在時刻の取得方法を差し替える。
func WithClock(clock geo.Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

// WithTimeout はAPI呼び出しのタイムアウトを設定する。
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) { c.timeout = d }
}

// WithLogger はロガーを設定する。
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// NewController はControllerを生成する。
func NewController(api MoodAPI, opts ...Option) *Controller {
	c := &Controller{
		api:       api,
		clock:     geo.SystemClock,
		timeout:   DefaultRequestTimeout,
		logger:    slog.Default(),
		session:   Session{SortOrder: SortNewest},
		deletedAt: make(map[int64]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnFetch は現在の時間ウィンドウで投稿を取得し、全投稿を置き換える。
// より新しい取得が発行済みの場合はレスポンスを破棄してErrStaleResponseを返す。
func (c *Controller) OnFetch(ctx context.Context) error {
	c.mu.Lock()
	c.fetchGen++
	gen := c.fetchGen
	window := copyWindow(c.session.WindowMinutes)
	c.mu.Unlock()

	return c.fetch(ctx, gen, window)
}

// OnChangeTimeWindow は時間ウィンドウを変更して再取得する。
// 取得に失敗した場合は以前のウィンドウに戻す。
func (c *Controller) OnChangeTimeWindow(ctx context.Context, windowMinutes *int) error {
	c.mu.Lock()
	prev := c.session.WindowMinutes
	c.session.WindowMinutes = copyWindow(windowMinutes)
	c.fetchGen++
	gen := c.fetchGen
	c.mu.Unlock()

	err := c.fetch(ctx, gen, copyWindow(windowMinutes))
	if err != nil && err != ErrStaleResponse {
		c.mu.Lock()
		if c.fetchGen == gen {
			c.session.WindowMinutes = prev
		}
		c.mu.Unlock()
	}
	return err
}

func (c *Controller) fetch(ctx context.Context, gen uint64, window *int) error {
	var hours *float64
	if window != nil {
		h := float64(*window) / 60
		hours = &h
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	moods, err := c.api.ListUserMoods(reqCtx, hours)
	if err != nil {
		c.logger.Warn("failed to fetch moods",
			slog.Uint64("generation", gen),
			slog.String("error", err.Error()),
		)
		return &NetworkError{Op: "fetch moods", Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.fetchGen {
		c.logger.Info("discarding stale fetch response",
			slog.Uint64("generation", gen),
			slog.Uint64("latest", c.fetchGen),
		)
		return ErrStaleResponse
	}

	// 取得発行後に削除が完了した投稿を取り除く
	kept := make([]model.Mood, 0, len(moods))
	for _, m := range moods {
		if at, ok := c.deletedAt[m.ID]; ok && at >= gen {
			continue
		}
		kept = append(kept, m)
	}
	for id, at := range c.deletedAt {
		if at < gen {
			delete(c.deletedAt, id)
		}
	}

	c.session.AllMoods = kept
	return nil
}

// OnToggleEmojiFilter は絵文字フィルタの有効/無効を切り替え、新しい表示を返す。
func (c *Controller) OnToggleEmojiFilter(emoji string) View {
	c.mu.Lock()
	defer c.mu.Unlock()

	filters := c.session.ActiveEmojiFilters
	idx := -1
	for i, f := range filters {
		if f == emoji {
			idx = i
			break
		}
	}

	next := make([]string, 0, len(filters)+1)
	if idx >= 0 {
		next = append(next, filters[:idx]...)
		next = append(next, filters[idx+1:]...)
	} else {
		next = append(next, filters...)
		next = append(next, emoji)
	}
	c.session.ActiveEmojiFilters = next

	return c.viewLocked()
}

// OnChangeSortOrder は表示順を変更し、新しい表示を返す。再取得は行わない。
func (c *Controller) OnChangeSortOrder(order SortOrder) View {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.session.SortOrder = order
	return c.viewLocked()
}

// OnDeleteMood は投稿を削除し、成功した場合のみ全投稿から取り除く。
// 失敗した場合は状態を変更せずNetworkErrorを返す。
func (c *Controller) OnDeleteMood(ctx context.Context, id int64) error {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.api.DeleteMood(reqCtx, id); err != nil {
		c.logger.Warn("failed to delete mood",
			slog.Int64("mood_id", id),
			slog.String("error", err.Error()),
		)
		return &NetworkError{Op: "delete mood", Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.deletedAt[id] = c.fetchGen
	kept := make([]model.Mood, 0, len(c.session.AllMoods))
	for _, m := range c.session.AllMoods {
		if m.ID != id {
			kept = append(kept, m)
		}
	}
	c.session.AllMoods = kept
	return nil
}

// View は現在の状態から表示を導出する。
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// Snapshot は現在の状態のコピーを返す。
func (c *Controller) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Session{
		AllMoods:           append([]model.Mood(nil), c.session.AllMoods...),
		ActiveEmojiFilters: append([]string(nil), c.session.ActiveEmojiFilters...),
		WindowMinutes:      copyWindow(c.session.WindowMinutes),
		SortOrder:          c.session.SortOrder,
	}
}

func (c *Controller) viewLocked() View {
	s := c.session
	displayed := Derive(s.AllMoods, s.ActiveEmojiFilters, s.WindowMinutes, s.SortOrder, c.clock())
	dominant, ok := analyzer.DominantEmoji(displayed)

	return View{
		Moods:              displayed,
		DominantEmoji:      dominant,
		HasDominant:        ok,
		Count:              len(displayed),
		PositivePercentage: analyzer.PositiveSentimentPercentage(displayed),
		ActiveEmojiFilters: append([]string(nil), s.ActiveEmojiFilters...),
		WindowMinutes:      copyWindow(s.WindowMinutes),
		SortOrder:          s.SortOrder,
	}
}

func copyWindow(w *int) *int {
	if w == nil {
		return nil
	}
	v := *w
	return &v
}
