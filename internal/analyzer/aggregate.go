// Package analyzer は気分投稿の集計と傾向分析を提供する。
package analyzer

import (
	"math"

	"github.com/hitoshi/moodmap/internal/model"
)

// NeutralPercentage は感情シグナルがない場合のポジティブ率。
const NeutralPercentage = 50

// Classify は絵文字をポジティブ/ネガティブ/ニュートラルに分類する。
// 未知の絵文字はニュートラルとして扱う。
func Classify(emoji string) model.Sentiment {
	if _, ok := model.PositiveEmojis[emoji]; ok {
		return model.SentimentPositive
	}
	if _, ok := model.NegativeEmojis[emoji]; ok {
		return model.SentimentNegative
	}
	return model.SentimentNeutral
}

// DominantEmoji は最も出現回数の多い絵文字を返す。
// 同数の場合は、入力順で先にその最大数に到達した絵文字を優先する。
// 入力が空の場合はfalseを返す。
func DominantEmoji(moods []model.Mood) (string, bool) {
	if len(moods) == 0 {
		return "", false
	}

	counts := make(map[string]int, len(moods))
	dominant := ""
	maxCount := 0
	for _, m := range moods {
		counts[m.Emoji]++
		// 厳密に上回った場合のみ入れ替える
		if counts[m.Emoji] > maxCount {
			maxCount = counts[m.Emoji]
			dominant = m.Emoji
		}
	}
	return dominant, true
}

// PositiveSentimentPercentage はポジティブ絵文字の割合を0〜100で返す。
// 分母はポジティブとネガティブの合計で、ニュートラルは数えない。
// 入力が空、またはシグナルがない場合は50を返す。
// 端数は0から遠い方向へ丸める（2/3 → 67, 1/8 → 13）。
func PositiveSentimentPercentage(moods []model.Mood) int {
	positive, negative := 0, 0
	for _, m := range moods {
		switch Classify(m.Emoji) {
		case model.SentimentPositive:
			positive++
		case model.SentimentNegative:
			negative++
		}
	}

	total := positive + negative
	if total == 0 {
		return NeutralPercentage
	}
	return int(math.Round(float64(positive) / float64(total) * 100))
}

// CountEmojis は絵文字ごとの出現回数を返す。
func CountEmojis(moods []model.Mood) map[string]int {
	counts := make(map[string]int)
	for _, m := range moods {
		counts[m.Emoji]++
	}
	return counts
}
