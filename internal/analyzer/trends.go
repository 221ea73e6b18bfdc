package analyzer

import (
	"log/slog"
	"time"

	"github.com/hitoshi/moodmap/internal/geo"
	"github.com/hitoshi/moodmap/internal/model"
)

// TrendBucketCount は推移集計の区間数。
const TrendBucketCount = 6

// Trends は直近hours時間を等分した区間ごとのポジティブ率と傾向を返す。
// 区間は (start, end] の半開区間で、新しい区間から順に並ぶ。
// 傾向は最新区間と1つ前の区間の比較で決まる。
func Trends(moods []model.Mood, hours float64, now time.Time) model.Trends {
	span := time.Duration(hours * float64(time.Hour))
	width := span / TrendBucketCount

	buckets := make([]model.TrendBucket, TrendBucketCount)
	grouped := make([][]model.Mood, TrendBucketCount)
	for i := range buckets {
		end := now.Add(-time.Duration(i) * width)
		buckets[i] = model.TrendBucket{Start: end.Add(-width), End: end}
	}

	for _, m := range moods {
		t, err := geo.ParseAsUTC(m.Timestamp)
		if err != nil {
			slog.Warn("skipping mood with invalid timestamp in trends",
				slog.Int64("mood_id", m.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		for i, b := range buckets {
			if t.After(b.Start) && !t.After(b.End) {
				grouped[i] = append(grouped[i], m)
				break
			}
		}
	}

	for i := range buckets {
		buckets[i].Count = len(grouped[i])
		if len(grouped[i]) > 0 {
			buckets[i].PositivePercentage = PositiveSentimentPercentage(grouped[i])
		}
	}

	direction := model.TrendStable
	switch {
	case buckets[0].PositivePercentage > buckets[1].PositivePercentage:
		direction = model.TrendUp
	case buckets[0].PositivePercentage < buckets[1].PositivePercentage:
		direction = model.TrendDown
	}

	return model.Trends{
		Buckets:     buckets,
		EmojiCounts: CountEmojis(moods),
		Direction:   direction,
		TotalMoods:  len(moods),
	}
}
