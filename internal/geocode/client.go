// Package geocode は気分投稿の位置情報から住所を求める逆ジオコーディング機能を提供する。
// Nominatim互換APIの呼び出しと、住所未解決の投稿を処理するバッチジョブを含む。
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/hitoshi/moodmap/internal/metrics"
)

const (
	// DefaultEndpoint はNominatimの逆ジオコーディングAPIのエンドポイント。
	DefaultEndpoint = "https://nominatim.openstreetmap.org/reverse"
	// maxResponseSize はレスポンスボディの最大サイズ。
	maxResponseSize = 1 << 20
	// breakerTripThreshold は回路を開く連続失敗回数。
	breakerTripThreshold = 5
)

var (
	// ErrAddressNotFound は座標に対応する住所が存在しないことを表す。
	ErrAddressNotFound = errors.New("address not found")
	// ErrUnavailable は回路遮断中のため呼び出しを行わなかったことを表す。
	ErrUnavailable = errors.New("geocoder unavailable")
)

// ClientConfig はClientの設定。
type ClientConfig struct {
	// Endpoint は逆ジオコーディングAPIのURL。
	Endpoint string
	// UserAgent はNominatimの利用規約で必須のUser-Agent。
	UserAgent string
	// Language はaccept-languageパラメータ。
	Language string
	// APIInterval はAPI呼び出しの最低間隔（Nominatimは1秒に1回まで）。
	APIInterval time.Duration
	// BreakerTimeout は回路が開いてから半開状態に移るまでの時間。
	BreakerTimeout time.Duration
}

// DefaultClientConfig はデフォルトのClient設定を返す。
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Endpoint:       DefaultEndpoint,
		UserAgent:      "moodmap/1.0",
		Language:       "ru",
		APIInterval:    time.Second,
		BreakerTimeout: time.Minute,
	}
}

// Client は逆ジオコーディングAPIのクライアント。
// 呼び出し間隔をrate.Limiterで制御し、連続失敗時はサーキットブレーカーで呼び出しを止める。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	config     ClientConfig
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[string]
	metrics    metrics.MetricsCollector
}

// NewClient はClientの新しいインスタンスを生成する。mcはnilでもよい。
func NewClient(httpClient *http.Client, logger *slog.Logger, config ClientConfig, mc metrics.MetricsCollector) *Client {
	if config.Endpoint == "" {
		config.Endpoint = DefaultEndpoint
	}
	if config.BreakerTimeout <= 0 {
		config.BreakerTimeout = time.Minute
	}

	limit := rate.Inf
	if config.APIInterval > 0 {
		limit = rate.Every(config.APIInterval)
	}

	c := &Client{
		httpClient: httpClient,
		logger:     logger,
		config:     config,
		limiter:    rate.NewLimiter(limit, 1),
		metrics:    mc,
	}

	c.breaker = gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "geocode",
		MaxRequests: 1,
		Timeout:     config.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerTripThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrAddressNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("geocode circuit breaker state changed",
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})

	return c
}

// nominatimResponse はNominatimのjsonv2レスポンスのうち利用するフィールド。
type nominatimResponse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

// ReverseGeocode は緯度経度から表示用の住所文字列を取得する。
// 住所が存在しない場合はErrAddressNotFound、回路遮断中はErrUnavailableを返す。
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (string, error) {
	start := time.Now()

	address, err := c.breaker.Execute(func() (string, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
		return c.reverse(ctx, lat, lon)
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.recordFailure("circuit_open")
			return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if errors.Is(err, ErrAddressNotFound) {
			c.recordFailure("not_found")
		} else {
			c.recordFailure("request")
		}
		return "", err
	}

	if c.metrics != nil {
		c.metrics.RecordGeocodeSuccess()
		c.metrics.RecordGeocodeLatency(time.Since(start))
	}
	return address, nil
}

func (c *Client) recordFailure(reason string) {
	if c.metrics != nil {
		c.metrics.RecordGeocodeFailure(reason)
	}
}

func (c *Client) reverse(ctx context.Context, lat, lon float64) (string, error) {
	reqURL, err := url.Parse(c.config.Endpoint)
	if err != nil {
		return "", fmt.Errorf("エンドポイントURLのパースに失敗しました: %w", err)
	}

	q := reqURL.Query()
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', 6, 64))
	q.Set("zoom", "18")
	if c.config.Language != "" {
		q.Set("accept-language", c.config.Language)
	}
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return "", fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("逆ジオコーディングAPIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
		)
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("逆ジオコーディングAPIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
		)
		return "", fmt.Errorf("逆ジオコーディングAPIがステータス %d を返しました", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	var result nominatimResponse
	if err := json.Unmarshal(body, &result); err != nil {
		c.logger.Error("逆ジオコーディングAPIのレスポンスのパースに失敗しました",
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	if result.Error != "" || result.DisplayName == "" {
		return "", ErrAddressNotFound
	}
	return result.DisplayName, nil
}
