// Package geo は投稿時刻と位置情報を扱う純粋関数群を提供する。
package geo

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
)

// TimestampLayout はAPIでやり取りする投稿時刻の書式。
// UTCの時刻をタイムゾーン指定子なしで表現する。
const TimestampLayout = "2006-01-02T15:04:05.999999"

// DisplayLayout は画面表示用の日時書式。
const DisplayLayout = "2006/01/02 15:04"

// Clock は現在時刻を返す関数。テストで時刻を固定するために差し替える。
type Clock func() time.Time

// SystemClock は実時間を返すClock。
func SystemClock() time.Time {
	return time.Now().UTC()
}

// ParseError は投稿時刻の解析失敗を表す。
type ParseError struct {
	Timestamp string
	Err       error
}

// Error はerrorインターフェースを実装する。
func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid timestamp %q: %v", e.Timestamp, e.Err)
}

// Unwrap は元のエラーを返す。
func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseAsUTC は指定子なしのISO-8601文字列をUTCとして解析する。
// 末尾にUTC指定子を付与してから解析する。既にZやオフセットを持つ文字列はそのまま解析する。
func ParseAsUTC(timestamp string) (time.Time, error) {
	s := strings.TrimSpace(timestamp)
	if s == "" {
		return time.Time{}, &ParseError{Timestamp: timestamp, Err: fmt.Errorf("empty timestamp")}
	}
	// "2006-01-02 15:04:05" 形式も受け付ける
	if len(s) > 10 && s[10] == ' ' {
		s = s[:10] + "T" + s[11:]
	}
	if !hasZoneDesignator(s) {
		s += "Z"
	}

	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, &ParseError{Timestamp: timestamp, Err: err}
	}
	return t.UTC(), nil
}

func hasZoneDesignator(s string) bool {
	if strings.HasSuffix(s, "Z") || strings.HasSuffix(s, "z") {
		return true
	}
	// 時刻部分の後ろに ±hh:mm が付いているか
	n := len(s)
	if n < 6 || !strings.Contains(s, "T") {
		return false
	}
	sign := s[n-6]
	return (sign == '+' || sign == '-') && s[n-3] == ':' && strings.LastIndex(s, "T") < n-6
}

// FormatTimestamp はtime.TimeをAPIの投稿時刻書式に整形する。
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// FormatDisplay は投稿時刻を指定タイムゾーンの表示用文字列に変換する。
// 解析できない場合は元の文字列を返す。
func FormatDisplay(timestamp string, loc *time.Location) string {
	t, err := ParseAsUTC(timestamp)
	if err != nil {
		return timestamp
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DisplayLayout)
}

// MinutesSince は投稿時刻からnowまでの経過分数を切り捨てで返す。
// 未来の時刻の場合は負の値になる。
func MinutesSince(timestamp string, now time.Time) (int, error) {
	t, err := ParseAsUTC(timestamp)
	if err != nil {
		return 0, err
	}
	elapsed := now.Sub(t)
	return int(math.Floor(float64(elapsed) / float64(time.Minute))), nil
}

// IsWithinWindow は投稿時刻が直近windowMinutes分以内かどうかを返す。
// windowMinutesがnilの場合は常にtrueを返す。
// 時刻が解析できない場合もtrueを返し、投稿を一覧から隠さない。
func IsWithinWindow(timestamp string, windowMinutes *int, now time.Time) bool {
	if windowMinutes == nil {
		return true
	}
	minutes, err := MinutesSince(timestamp, now)
	if err != nil {
		slog.Warn("timestamp parse failed, treating as within window",
			slog.String("timestamp", timestamp),
			slog.String("error", err.Error()),
		)
		return true
	}
	return minutes <= *windowMinutes
}
