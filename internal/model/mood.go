// Package model はドメインモデルを定義する。
package model

import "time"

// Mood は位置情報付きの気分投稿を表す。
// Timestampはタイムゾーン指定子を持たないUTCのISO-8601文字列。
type Mood struct {
	ID        int64
	UserID    string
	Emoji     string
	Text      string
	Timestamp string
	Latitude  *float64
	Longitude *float64
	Address   string
	CreatedAt time.Time
}

// HasLocation は緯度経度が両方とも設定されているかを返す。
func (m Mood) HasLocation() bool {
	return m.Latitude != nil && m.Longitude != nil
}

// Sentiment は絵文字の感情分類を表す。
type Sentiment int

const (
	// SentimentNeutral はポジティブにもネガティブにも属さない分類。
	SentimentNeutral Sentiment = iota
	// SentimentPositive はポジティブ分類。
	SentimentPositive
	// SentimentNegative はネガティブ分類。
	SentimentNegative
)

// 気分として投稿できる絵文字。
const (
	EmojiHappy    = "😊"
	EmojiCool     = "😎"
	EmojiLove     = "🥰"
	EmojiNeutral  = "😐"
	EmojiThinking = "🤔"
	EmojiSleepy   = "😴"
	EmojiSad      = "😢"
	EmojiAngry    = "😡"
	EmojiSick     = "😷"
)

// EmojiOptions は投稿可能な絵文字の一覧（表示順）。
var EmojiOptions = []string{
	EmojiHappy, EmojiCool, EmojiLove,
	EmojiNeutral, EmojiThinking, EmojiSleepy,
	EmojiSad, EmojiAngry, EmojiSick,
}

// PositiveEmojis はポジティブに分類される絵文字集合。
var PositiveEmojis = map[string]struct{}{
	EmojiHappy: {},
	EmojiCool:  {},
	EmojiLove:  {},
}

// NegativeEmojis はネガティブに分類される絵文字集合。
var NegativeEmojis = map[string]struct{}{
	EmojiSad:   {},
	EmojiAngry: {},
	EmojiSick:  {},
}

// IsKnownEmoji は投稿可能な絵文字かどうかを返す。
func IsKnownEmoji(emoji string) bool {
	for _, e := range EmojiOptions {
		if e == emoji {
			return true
		}
	}
	return false
}

// MaxMoodTextLength は気分テキストの最大文字数。
const MaxMoodTextLength = 280

// AreaMood はエリア内の気分集計結果を表す。
type AreaMood struct {
	DominantEmoji      string
	PositivePercentage int
	TotalMoods         int
}

// TrendDirection は気分傾向の向きを表す。
type TrendDirection string

const (
	TrendUp     TrendDirection = "up"
	TrendDown   TrendDirection = "down"
	TrendStable TrendDirection = "stable"
)

// TrendBucket は時間区間ごとのポジティブ率を表す。
// 空の区間のポジティブ率は0とする。
type TrendBucket struct {
	Start              time.Time
	End                time.Time
	PositivePercentage int
	Count              int
}

// Label は区間を "HH:MM - HH:MM" 形式で返す。
func (b TrendBucket) Label() string {
	return b.Start.Format("15:04") + " - " + b.End.Format("15:04")
}

// Trends は時間帯別の気分推移を表す。
// Bucketsは新しい区間から順に並ぶ。
type Trends struct {
	Buckets     []TrendBucket
	EmojiCounts map[string]int
	Direction   TrendDirection
	TotalMoods  int
}

// Cluster は近接した気分投稿のまとまりを表す。
type Cluster struct {
	CenterLatitude     float64
	CenterLongitude    float64
	Moods              []Mood
	DominantEmoji      string
	PositivePercentage int
}

// EventType は推定されたイベントの種別。
type EventType string

const (
	EventConcert EventType = "concert"
	EventSports  EventType = "sports"
	EventTraffic EventType = "traffic"
	EventWeather EventType = "weather"
	EventFood    EventType = "food"
	EventParty   EventType = "party"
	EventUnknown EventType = "unknown"
)

// Event は気分クラスタから推定された出来事を表す。
type Event struct {
	Type               EventType
	Latitude           float64
	Longitude          float64
	Confidence         int
	Keywords           []string
	MoodCount          int
	DominantEmoji      string
	PositivePercentage int
}
