package analyzer

import (
	"log/slog"
	"sort"
	"time"

	"github.com/hitoshi/moodmap/internal/geo"
	"github.com/hitoshi/moodmap/internal/model"
)

// クラスタリングのパラメータ。
const (
	ClusterRadiusKm   = 1.0
	ClusterTimeWindow = 4 * time.Hour
	MinClusterSize    = 5
)

type timedMood struct {
	mood model.Mood
	at   time.Time
}

// Clusters は位置と時刻が近い投稿をまとめる。
// 新しい投稿から順に核とし、核から半径1km以内かつ前後4時間以内の未処理投稿を取り込む。
// MinClusterSize件に満たないまとまりは捨てる。
func Clusters(moods []model.Mood) []model.Cluster {
	items := make([]timedMood, 0, len(moods))
	for _, m := range moods {
		if !m.HasLocation() {
			continue
		}
		t, err := geo.ParseAsUTC(m.Timestamp)
		if err != nil {
			slog.Warn("skipping mood with invalid timestamp in clustering",
				slog.Int64("mood_id", m.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		items = append(items, timedMood{mood: m, at: t})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].at.After(items[j].at)
	})

	processed := make([]bool, len(items))
	var clusters []model.Cluster

	for i, seed := range items {
		if processed[i] {
			continue
		}
		processed[i] = true
		members := []model.Mood{seed.mood}

		for j, other := range items {
			if processed[j] {
				continue
			}
			diff := seed.at.Sub(other.at)
			if diff < 0 {
				diff = -diff
			}
			if diff > ClusterTimeWindow {
				continue
			}
			if !geo.IsWithinRadiusKm(*seed.mood.Latitude, *seed.mood.Longitude,
				*other.mood.Latitude, *other.mood.Longitude, ClusterRadiusKm) {
				continue
			}
			members = append(members, other.mood)
			processed[j] = true
		}

		if len(members) < MinClusterSize {
			continue
		}
		clusters = append(clusters, newCluster(members))
	}

	return clusters
}

func newCluster(members []model.Mood) model.Cluster {
	var latSum, lonSum float64
	for _, m := range members {
		latSum += *m.Latitude
		lonSum += *m.Longitude
	}
	n := float64(len(members))
	dominant, _ := DominantEmoji(members)

	return model.Cluster{
		CenterLatitude:     latSum / n,
		CenterLongitude:    lonSum / n,
		Moods:              members,
		DominantEmoji:      dominant,
		PositivePercentage: PositiveSentimentPercentage(members),
	}
}
