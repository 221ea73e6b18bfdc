package handler

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/hitoshi/moodmap/internal/geo"
	"github.com/hitoshi/moodmap/internal/model"
	"github.com/hitoshi/moodmap/internal/mood"
)

const (
	// defaultAreaRadiusKm はエリア集計の既定の半径（km）。
	defaultAreaRadiusKm = 5.0
	// defaultMinConfidence はイベント一覧の既定の最低信頼度。
	defaultMinConfidence = 30
	// maxHours はhoursパラメータの上限（100年）。time.Durationに変換できる範囲に収める。
	maxHours = 24 * 365 * 100
)

// parseOptionalFloat はクエリパラメータを有限の実数として読み取る。未指定はnil。
func parseOptionalFloat(q url.Values, name string) (*float64, *model.APIError) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, model.NewInvalidParameterError(name)
	}
	return &v, nil
}

// parseHours はhoursパラメータを読み取る。小数（分単位）も受け付ける。
func parseHours(q url.Values) (*float64, *model.APIError) {
	hours, apiErr := parseOptionalFloat(q, "hours")
	if apiErr != nil {
		return nil, apiErr
	}
	if hours != nil && (*hours <= 0 || *hours > maxHours) {
		return nil, model.NewInvalidParameterError("hours")
	}
	return hours, nil
}

// parseHoursWithDefault はhoursパラメータを読み取り、未指定の場合はdefを返す。
func parseHoursWithDefault(q url.Values, def float64) (float64, *model.APIError) {
	hours, apiErr := parseHours(q)
	if apiErr != nil {
		return 0, apiErr
	}
	if hours == nil {
		return def, nil
	}
	return *hours, nil
}

// parseEmojis はカンマ区切りのemojisパラメータを読み取る。
func parseEmojis(q url.Values) []string {
	raw := q.Get("emojis")
	if raw == "" {
		return nil
	}
	var emojis []string
	for _, e := range strings.Split(raw, ",") {
		if e = strings.TrimSpace(e); e != "" {
			emojis = append(emojis, e)
		}
	}
	return emojis
}

// parseArea はlat、lng、radiusパラメータから検索範囲を組み立てる。
// requiredがfalseでlat、lngが未指定の場合はnilを返す。
// radiusが未指定の場合はdefaultRadiusを使い、それが0以下なら範囲指定なしとする。
func parseArea(q url.Values, required bool, defaultRadius float64) (*mood.Area, *model.APIError) {
	lat, apiErr := parseOptionalFloat(q, "lat")
	if apiErr != nil {
		return nil, apiErr
	}
	lng, apiErr := parseOptionalFloat(q, "lng")
	if apiErr != nil {
		return nil, apiErr
	}
	radius, apiErr := parseOptionalFloat(q, "radius")
	if apiErr != nil {
		return nil, apiErr
	}

	switch {
	case lat == nil && lng == nil:
		if required {
			return nil, model.NewInvalidParameterError("lat")
		}
		return nil, nil
	case lat == nil:
		return nil, model.NewInvalidParameterError("lat")
	case lng == nil:
		return nil, model.NewInvalidParameterError("lng")
	}

	if !geo.ValidCoordinates(*lat, *lng) {
		return nil, model.NewInvalidLocationError()
	}

	r := defaultRadius
	if radius != nil {
		if *radius <= 0 {
			return nil, model.NewInvalidParameterError("radius")
		}
		r = *radius
	}
	if r <= 0 {
		return nil, nil
	}

	return &mood.Area{Latitude: *lat, Longitude: *lng, RadiusKm: r}, nil
}

// parseMinConfidence はmin_confidenceパラメータ（0〜100）を読み取る。
func parseMinConfidence(q url.Values) (int, *model.APIError) {
	raw := strings.TrimSpace(q.Get("min_confidence"))
	if raw == "" {
		return defaultMinConfidence, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 || v > 100 {
		return 0, model.NewInvalidParameterError("min_confidence")
	}
	return v, nil
}
