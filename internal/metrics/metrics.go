// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ミドルウェア、サービス層、ワーカーから利用する。
type MetricsCollector interface {
	RecordMoodCreated(emoji string)
	RecordMoodDeleted()
	RecordMoodsPurged(count int64)
	RecordGeocodeSuccess()
	RecordGeocodeFailure(reason string)
	RecordGeocodeLatency(duration time.Duration)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	moodsCreated   *prometheus.CounterVec
	moodsDeleted   prometheus.Counter
	moodsPurged    prometheus.Counter
	geocodeSuccess prometheus.Counter
	geocodeFail    *prometheus.CounterVec
	geocodeLatency prometheus.Histogram
	httpStatus     *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		moodsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moodmap_moods_created_total",
			Help: "絵文字別の気分投稿数",
		}, []string{"emoji"}),
		moodsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "moodmap_moods_deleted_total",
			Help: "ユーザー操作で削除された気分投稿の合計数",
		}),
		moodsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "moodmap_moods_purged_total",
			Help: "保持期間切れで削除された気分投稿の合計数",
		}),
		geocodeSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "moodmap_geocode_success_total",
			Help: "逆ジオコーディング成功の合計数",
		}),
		geocodeFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moodmap_geocode_fail_total",
			Help: "理由別の逆ジオコーディング失敗数",
		}, []string{"reason"}),
		geocodeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "moodmap_geocode_latency_seconds",
			Help:    "逆ジオコーディングのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moodmap_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.moodsCreated,
		c.moodsDeleted,
		c.moodsPurged,
		c.geocodeSuccess,
		c.geocodeFail,
		c.geocodeLatency,
		c.httpStatus,
	)

	return c
}

// RecordMoodCreated は気分投稿の作成を記録する。
func (c *Collector) RecordMoodCreated(emoji string) {
	c.moodsCreated.WithLabelValues(emoji).Inc()
}

// RecordMoodDeleted は気分投稿の削除を記録する。
func (c *Collector) RecordMoodDeleted() {
	c.moodsDeleted.Inc()
}

// RecordMoodsPurged は保持期間切れで削除した件数を記録する。
func (c *Collector) RecordMoodsPurged(count int64) {
	c.moodsPurged.Add(float64(count))
}

// RecordGeocodeSuccess は逆ジオコーディング成功を記録する。
func (c *Collector) RecordGeocodeSuccess() {
	c.geocodeSuccess.Inc()
}

// RecordGeocodeFailure は逆ジオコーディング失敗を記録する。
func (c *Collector) RecordGeocodeFailure(reason string) {
	c.geocodeFail.WithLabelValues(reason).Inc()
}

// RecordGeocodeLatency は逆ジオコーディングのレイテンシを記録する。
func (c *Collector) RecordGeocodeLatency(duration time.Duration) {
	c.geocodeLatency.Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
