package analyzer

import (
	"github.com/hitoshi/moodmap/internal/geo"
	"github.com/hitoshi/moodmap/internal/model"
)

// DefaultAreaRadiusKm はエリア集計のデフォルト半径（km）。
const DefaultAreaRadiusKm = 5.0

// WithinRadius は中心からradiusKm以内に位置する投稿のみを返す。
// 位置情報を持たない投稿は除外する。
func WithinRadius(moods []model.Mood, lat, lon, radiusKm float64) []model.Mood {
	result := make([]model.Mood, 0, len(moods))
	for _, m := range moods {
		if !m.HasLocation() {
			continue
		}
		if geo.IsWithinRadiusKm(lat, lon, *m.Latitude, *m.Longitude, radiusKm) {
			result = append(result, m)
		}
	}
	return result
}

// AreaMood は指定地点周辺の気分を集計する。
// 該当する投稿がない場合は 😐 / 50% / 0件 を返す。
func AreaMood(moods []model.Mood, lat, lon, radiusKm float64) model.AreaMood {
	area := WithinRadius(moods, lat, lon, radiusKm)

	dominant, ok := DominantEmoji(area)
	if !ok {
		return model.AreaMood{
			DominantEmoji:      model.EmojiNeutral,
			PositivePercentage: NeutralPercentage,
			TotalMoods:         0,
		}
	}

	return model.AreaMood{
		DominantEmoji:      dominant,
		PositivePercentage: PositiveSentimentPercentage(area),
		TotalMoods:         len(area),
	}
}
