// Package profile はプロフィール画面の気分履歴に対するフィルタ・ソート・集計を提供する。
package profile

import (
	"log/slog"
	"sort"
	"time"

	"github.com/hitoshi/moodmap/internal/geo"
	"github.com/hitoshi/moodmap/internal/model"
)

// SortOrder は表示順を表す。
type SortOrder int

const (
	// SortNewest は新しい順。
	SortNewest SortOrder = iota
	// SortOldest は古い順。
	SortOldest
)

// String はSortOrderの文字列表現を返す。
func (o SortOrder) String() string {
	if o == SortOldest {
		return "oldest"
	}
	return "newest"
}

// ParseSortOrder は文字列をSortOrderに変換する。
func ParseSortOrder(s string) (SortOrder, bool) {
	switch s {
	case "newest", "":
		return SortNewest, true
	case "oldest":
		return SortOldest, true
	}
	return SortNewest, false
}

// FilterByEmoji はfiltersのいずれかに一致する投稿を元の順序のまま返す。
// filtersが空の場合は全件を返す。
func FilterByEmoji(moods []model.Mood, filters []string) []model.Mood {
	result := make([]model.Mood, 0, len(moods))
	if len(filters) == 0 {
		return append(result, moods...)
	}

	active := make(map[string]struct{}, len(filters))
	for _, f := range filters {
		active[f] = struct{}{}
	}
	for _, m := range moods {
		if _, ok := active[m.Emoji]; ok {
			result = append(result, m)
		}
	}
	return result
}

// FilterByWindow は直近windowMinutes分以内の投稿を返す。
// 時刻が解析できない投稿は残す。
func FilterByWindow(moods []model.Mood, windowMinutes *int, now time.Time) []model.Mood {
	if windowMinutes == nil {
		return moods
	}
	result := make([]model.Mood, 0, len(moods))
	for _, m := range moods {
		if geo.IsWithinWindow(m.Timestamp, windowMinutes, now) {
			result = append(result, m)
		}
	}
	return result
}

// SortByTimestamp は投稿時刻で安定ソートした新しいスライスを返す。
// 同時刻の投稿は入力順を保つ。解析できない時刻はゼロ時刻として扱う。
func SortByTimestamp(moods []model.Mood, order SortOrder) []model.Mood {
	type keyed struct {
		mood model.Mood
		at   time.Time
	}

	items := make([]keyed, len(moods))
	for i, m := range moods {
		t, err := geo.ParseAsUTC(m.Timestamp)
		if err != nil {
			slog.Warn("sorting mood with invalid timestamp as zero time",
				slog.Int64("mood_id", m.ID),
				slog.String("error", err.Error()),
			)
		}
		items[i] = keyed{mood: m, at: t}
	}

	sort.SliceStable(items, func(i, j int) bool {
		if order == SortOldest {
			return items[i].at.Before(items[j].at)
		}
		return items[i].at.After(items[j].at)
	})

	result := make([]model.Mood, len(items))
	for i, it := range items {
		result[i] = it.mood
	}
	return result
}

// Derive は全投稿から表示用の一覧を導出する。
// 時間ウィンドウ、絵文字フィルタの順に絞り込み、最後にソートする。
func Derive(moods []model.Mood, filters []string, windowMinutes *int, order SortOrder, now time.Time) []model.Mood {
	displayed := FilterByWindow(moods, windowMinutes, now)
	displayed = FilterByEmoji(displayed, filters)
	return SortByTimestamp(displayed, order)
}
