package geocode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/moodmap/internal/repository"
)

// ReverseGeocoder は逆ジオコーディングのインターフェース。
// テスト時にモックに差し替え可能。
type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (string, error)
}

// BatchConfig はバッチジョブの設定パラメータ。
type BatchConfig struct {
	// BatchInterval はバッチジョブの実行間隔（デフォルト: 5分）。
	BatchInterval time.Duration
	// MaxPerCycle は1サイクルあたりの最大処理件数（デフォルト: 50）。
	MaxPerCycle int
}

// DefaultBatchConfig はデフォルトのバッチジョブ設定を返す。
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		BatchInterval: 5 * time.Minute,
		MaxPerCycle:   50,
	}
}

// BatchJob は住所未解決の気分投稿を逆ジオコーディングするバッチジョブ。
// API呼び出し間隔の制御はReverseGeocoder側で行う。
type BatchJob struct {
	moodRepo          repository.GeocodeMoodRepository
	geocoder          ReverseGeocoder
	logger            *slog.Logger
	config            BatchConfig
	now               func() time.Time
	consecutiveErrors int
	backoffUntil      time.Time
}

// NewBatchJob はBatchJobの新しいインスタンスを生成する。
func NewBatchJob(
	moodRepo repository.GeocodeMoodRepository,
	geocoder ReverseGeocoder,
	logger *slog.Logger,
	config BatchConfig,
) *BatchJob {
	return &BatchJob{
		moodRepo: moodRepo,
		geocoder: geocoder,
		logger:   logger,
		config:   config,
		now:      time.Now,
	}
}

// Start はバッチジョブをティッカーで定期実行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (b *BatchJob) Start(ctx context.Context) {
	ticker := time.NewTicker(b.config.BatchInterval)
	defer ticker.Stop()

	b.logger.Info("逆ジオコーディングバッチジョブを開始しました",
		slog.Duration("batch_interval", b.config.BatchInterval),
		slog.Int("max_per_cycle", b.config.MaxPerCycle),
	)

	// 起動直後に1回実行
	if err := b.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("逆ジオコーディングバッチサイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("逆ジオコーディングバッチジョブを停止しました")
			return
		case <-ticker.C:
			if err := b.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				b.logger.Error("逆ジオコーディングバッチサイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce は1回のバッチサイクルを実行する。
// 住所未解決の投稿を古い順に取得し、1件ずつ住所を解決して保存する。
// 住所が存在しない座標は空文字で保存し、次回以降の対象から外す。
func (b *BatchJob) RunOnce(ctx context.Context) error {
	start := time.Now()

	// バックオフ中の場合はスキップ
	if !b.backoffUntil.IsZero() && b.now().Before(b.backoffUntil) {
		b.logger.Info("逆ジオコーディングバッチジョブはバックオフ中のためスキップします",
			slog.Time("backoff_until", b.backoffUntil),
		)
		return nil
	}

	moods, err := b.moodRepo.ListPendingGeocode(ctx, b.config.MaxPerCycle)
	if err != nil {
		return fmt.Errorf("住所未解決の投稿の取得に失敗しました: %w", err)
	}

	if len(moods) == 0 {
		b.logger.Debug("住所未解決の投稿はありません")
		return nil
	}

	var (
		resolved  int
		notFound  int
		hadError  bool
		processed int
	)

	for _, mood := range moods {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !mood.HasLocation() {
			continue
		}
		processed++

		address, err := b.geocoder.ReverseGeocode(ctx, *mood.Latitude, *mood.Longitude)
		switch {
		case err == nil:
			resolved++
		case errors.Is(err, ErrAddressNotFound):
			notFound++
			address = ""
		case errors.Is(err, ErrUnavailable):
			b.logger.Warn("逆ジオコーディングが利用できないためサイクルを中断します",
				slog.Int64("mood_id", mood.ID),
			)
			b.registerError()
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			b.logger.Error("住所の取得に失敗しました",
				slog.Int64("mood_id", mood.ID),
				slog.String("error", err.Error()),
			)
			hadError = true
			if b.registerError() {
				return nil
			}
			continue // この投稿は次回のサイクルで再試行する
		}

		if err := b.moodRepo.UpdateAddress(ctx, mood.ID, address, b.now()); err != nil {
			b.logger.Error("住所の保存に失敗しました",
				slog.Int64("mood_id", mood.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	// エラーがなければ連続エラーカウントをリセット
	if !hadError {
		b.consecutiveErrors = 0
		b.backoffUntil = time.Time{}
	}

	b.logger.Info("逆ジオコーディングバッチサイクルが完了しました",
		slog.Int("processed", processed),
		slog.Int("resolved", resolved),
		slog.Int("not_found", notFound),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}

// registerError は連続エラーを数え、バックオフを適用した場合にtrueを返す。
func (b *BatchJob) registerError() bool {
	b.consecutiveErrors++
	backoff := b.calculateErrorBackoff(b.consecutiveErrors)
	if backoff == 0 {
		return false
	}
	b.backoffUntil = b.now().Add(backoff)
	b.logger.Warn("連続エラーによりバックオフを適用します",
		slog.Int("consecutive_errors", b.consecutiveErrors),
		slog.Duration("backoff_duration", backoff),
	)
	return true
}

// calculateErrorBackoff は連続エラー回数に基づくバックオフ時間を計算する。
// 3回連続: 30分、5回連続: 1時間、10回連続: 6時間。
func (b *BatchJob) calculateErrorBackoff(consecutiveErrors int) time.Duration {
	switch {
	case consecutiveErrors >= 10:
		return 6 * time.Hour
	case consecutiveErrors >= 5:
		return 1 * time.Hour
	case consecutiveErrors >= 3:
		return 30 * time.Minute
	default:
		return 0
	}
}
