package analyzer

import (
	"math"
	"strings"

	"github.com/hitoshi/moodmap/internal/model"
)

// MinEventConfidence はイベントとして採用する最小の確信度。
const MinEventConfidence = 30

type eventKeywords struct {
	eventType model.EventType
	keywords  []string
}

// イベント種別ごとのキーワード。同点の場合は先頭に近い種別を採用する。
var eventKeywordTable = []eventKeywords{
	{model.EventConcert, []string{"концерт", "музыка", "группа", "шоу", "выступление"}},
	{model.EventSports, []string{"игра", "матч", "спорт", "команда", "победа", "проигрыш"}},
	{model.EventTraffic, []string{"пробка", "затор", "авария", "дорога", "машина"}},
	{model.EventWeather, []string{"дождь", "снег", "жара", "холод", "погода", "гроза"}},
	{model.EventFood, []string{"ресторан", "еда", "покушать", "ужин", "обед"}},
	{model.EventParty, []string{"вечеринка", "праздник", "день рождения", "юбилей"}},
}

// DetectEventType はテキストに含まれるキーワードからイベント種別を推定する。
// 確信度は min(一致数/キーワード数*100 + 20, 100) を切り捨てた値。
// キーワードが1つも含まれない場合は unknown / 0 を返す。
func DetectEventType(text string) (model.EventType, []string, int) {
	if text == "" {
		return model.EventUnknown, nil, 0
	}
	lower := strings.ToLower(text)

	bestIdx := -1
	var bestFound []string
	for i, entry := range eventKeywordTable {
		var found []string
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				found = append(found, kw)
			}
		}
		if len(found) > len(bestFound) {
			bestIdx = i
			bestFound = found
		}
	}

	if bestIdx < 0 {
		return model.EventUnknown, nil, 0
	}

	entry := eventKeywordTable[bestIdx]
	score := float64(len(bestFound)) / float64(len(entry.keywords)) * 100
	confidence := int(math.Min(score+20, 100))
	return entry.eventType, bestFound, confidence
}

// DetectEvents はクラスタごとに投稿テキストを連結してイベントを推定する。
// 確信度がMinEventConfidence未満のクラスタは結果に含めない。
func DetectEvents(moods []model.Mood) []model.Event {
	var events []model.Event
	for _, c := range Clusters(moods) {
		texts := make([]string, 0, len(c.Moods))
		for _, m := range c.Moods {
			if m.Text != "" {
				texts = append(texts, m.Text)
			}
		}

		eventType, keywords, confidence := DetectEventType(strings.Join(texts, " "))
		if confidence < MinEventConfidence {
			continue
		}

		events = append(events, model.Event{
			Type:               eventType,
			Latitude:           c.CenterLatitude,
			Longitude:          c.CenterLongitude,
			Confidence:         confidence,
			Keywords:           keywords,
			MoodCount:          len(c.Moods),
			DominantEmoji:      c.DominantEmoji,
			PositivePercentage: c.PositivePercentage,
		})
	}
	return events
}

// FilterEventsByConfidence はminConfidence以上の確信度を持つイベントのみを返す。
func FilterEventsByConfidence(events []model.Event, minConfidence int) []model.Event {
	result := make([]model.Event, 0, len(events))
	for _, e := range events {
		if e.Confidence >= minConfidence {
			result = append(result, e)
		}
	}
	return result
}
