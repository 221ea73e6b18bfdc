package profile

import (
	"reflect"
	"testing"
	"time"

	"github.com/hitoshi/moodmap/internal/model"
)

func ids(moods []model.Mood) []int64 {
	out := make([]int64, len(moods))
	for i, m := range moods {
		out[i] = m.ID
	}
	return out
}

func sampleMoods() []model.Mood {
	return []model.Mood{
		{ID: 1, Emoji: "😊", Timestamp: "2024-03-01T10:00:00"},
		{ID: 2, Emoji: "😢", Timestamp: "2024-03-01T11:00:00"},
		{ID: 3, Emoji: "😊", Timestamp: "2024-03-01T09:00:00"},
		{ID: 4, Emoji: "😎", Timestamp: "2024-03-01T11:00:00"},
	}
}

func TestFilterByEmoji_EmptyFiltersKeepsAllInOrder(t *testing.T) {
	got := FilterByEmoji(sampleMoods(), nil)
	if want := []int64{1, 2, 3, 4}; !reflect.DeepEqual(ids(got), want) {
		t.Errorf("ids = %v, want %v", ids(got), want)
	}
}

func TestFilterByEmoji_Union(t *testing.T) {
	got := FilterByEmoji(sampleMoods(), []string{"😢", "😎"})
	if want := []int64{2, 4}; !reflect.DeepEqual(ids(got), want) {
		t.Errorf("ids = %v, want %v", ids(got), want)
	}
}

func TestSortByTimestamp_Stable(t *testing.T) {
	newest := SortByTimestamp(sampleMoods(), SortNewest)
	if want := []int64{2, 4, 1, 3}; !reflect.DeepEqual(ids(newest), want) {
		t.Errorf("newest = %v, want %v", ids(newest), want)
	}

	oldest := SortByTimestamp(sampleMoods(), SortOldest)
	if want := []int64{3, 1, 2, 4}; !reflect.DeepEqual(ids(oldest), want) {
		t.Errorf("oldest = %v, want %v", ids(oldest), want)
	}
}

func TestSortByTimestamp_UsesInstantNotString(t *testing.T) {
	moods := []model.Mood{
		{ID: 1, Timestamp: "2024-03-01T09:00:00"},
		{ID: 2, Timestamp: "2024-03-01T09:30:00+00:00"},
		// 文字列としては最大だが09:00Zと同時刻なので入力順を保つ
		{ID: 3, Timestamp: "2024-03-01T18:00:00+09:00"},
	}
	got := SortByTimestamp(moods, SortNewest)
	if want := []int64{2, 1, 3}; !reflect.DeepEqual(ids(got), want) {
		t.Errorf("ids = %v, want %v", ids(got), want)
	}
}

func TestSortByTimestamp_InvalidTimestampSortsAsZero(t *testing.T) {
	moods := []model.Mood{
		{ID: 1, Timestamp: "broken"},
		{ID: 2, Timestamp: "2024-03-01T09:00:00"},
	}
	got := SortByTimestamp(moods, SortOldest)
	if want := []int64{1, 2}; !reflect.DeepEqual(ids(got), want) {
		t.Errorf("ids = %v, want %v", ids(got), want)
	}
}

func TestDerive_WindowAndEmoji(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	window := 120

	got := Derive(sampleMoods(), []string{"😊"}, &window, SortNewest, now)
	if want := []int64{1}; !reflect.DeepEqual(ids(got), want) {
		t.Errorf("ids = %v, want %v", ids(got), want)
	}
}

func TestParseSortOrder(t *testing.T) {
	if o, ok := ParseSortOrder("oldest"); !ok || o != SortOldest {
		t.Errorf("oldest = %v, %v", o, ok)
	}
	if o, ok := ParseSortOrder(""); !ok || o != SortNewest {
		t.Errorf("empty = %v, %v", o, ok)
	}
	if _, ok := ParseSortOrder("random"); ok {
		t.Error("不明な値はfalseを返すべき")
	}
}
