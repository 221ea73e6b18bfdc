package geo

import (
	"math"
	"math/rand/v2"
	"sync"
)

// EarthRadiusKm は距離計算に用いる地球半径（km）。
const EarthRadiusKm = 6371.0

// JitterSpan はプライバシー用の座標ずらし幅（度）。
// 各座標は [-JitterSpan/2, JitterSpan/2) の範囲でずらされる。
const JitterSpan = 0.002

// DegreesToRadians は度をラジアンに変換する。
func DegreesToRadians(degrees float64) float64 {
	return degrees * (math.Pi / 180)
}

// HaversineDistanceKm は2点間の大円距離をkmで返す。
func HaversineDistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := DegreesToRadians(lat2 - lat1)
	dLon := DegreesToRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(DegreesToRadians(lat1))*math.Cos(DegreesToRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// IsWithinRadiusKm は地点が中心からradiusKm以内にあるかを返す。
func IsWithinRadiusKm(centerLat, centerLon, pointLat, pointLon, radiusKm float64) bool {
	return HaversineDistanceKm(centerLat, centerLon, pointLat, pointLon) <= radiusKm
}

// ValidCoordinates は緯度経度が有効な範囲にあるかを返す。
func ValidCoordinates(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Jitterer は投稿位置をぼかすための乱数オフセットを生成する。
// 暗号論的な予測不可能性は必要としない。
type Jitterer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewJitterer はJittererを生成する。
// rngがnilの場合はランダムなシードを使う。
func NewJitterer(rng *rand.Rand) *Jitterer {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Jitterer{rng: rng}
}

// Offset は [-0.001, 0.001) の一様乱数を返す。
func (j *Jitterer) Offset() float64 {
	j.mu.Lock()
	u := j.rng.Float64()
	j.mu.Unlock()
	return (u - 0.5) * JitterSpan
}

// Apply は緯度と経度にそれぞれ独立したオフセットを加えた座標を返す。
func (j *Jitterer) Apply(lat, lon float64) (float64, float64) {
	return lat + j.Offset(), lon + j.Offset()
}

// PrivacyJitter はパッケージ共通の乱数源から座標オフセットを1つ返す。
func PrivacyJitter() float64 {
	return (rand.Float64() - 0.5) * JitterSpan
}
