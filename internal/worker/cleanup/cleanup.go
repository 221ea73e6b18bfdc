// Package cleanup は期限切れデータの定期削除ジョブを提供する。
// 期限切れセッションと、保持期間を超過した気分投稿を削除する。
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/moodmap/internal/metrics"
)

// SessionPurger は期限切れセッションの削除インターフェース。
type SessionPurger interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// MoodPurger は古い気分投稿の削除インターフェース。
type MoodPurger interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// CleanupJob は期限切れデータの削除ジョブ。
// 冪等であり、削除対象がなくてもエラーにならない。
type CleanupJob struct {
	sessions SessionPurger
	moods    MoodPurger
	logger   *slog.Logger
	metrics  metrics.MetricsCollector
	now      func() time.Time

	// RetentionDays は気分投稿の保持日数。0以下の場合は投稿を削除しない。
	RetentionDays int
}

// NewCleanupJob は新しいCleanupJobを生成する。mcはnilでもよい。
func NewCleanupJob(sessions SessionPurger, moods MoodPurger, logger *slog.Logger, mc metrics.MetricsCollector) *CleanupJob {
	return &CleanupJob{
		sessions: sessions,
		moods:    moods,
		logger:   logger,
		metrics:  mc,
		now:      time.Now,
	}
}

// Start は起動直後に1回実行した後、interval間隔で定期実行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	if err := j.Run(ctx); err != nil {
		j.logger.Error("cleanup job failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("クリーンアップジョブを停止しました")
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("cleanup job failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Run は期限切れセッションと保持期間超過の投稿を削除する。
// 片方が失敗してももう片方は実行し、エラーはまとめて返す。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	var errs []error

	sessionCount, err := j.sessions.DeleteExpired(ctx)
	if err != nil {
		j.logger.Error("期限切れセッションの削除に失敗しました",
			slog.String("error", err.Error()),
		)
		errs = append(errs, fmt.Errorf("期限切れセッションの削除に失敗: %w", err))
	}

	var moodCount int64
	if j.RetentionDays > 0 {
		cutoff := j.now().UTC().AddDate(0, 0, -j.RetentionDays)
		moodCount, err = j.moods.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			j.logger.Error("気分投稿のクリーンアップに失敗しました",
				slog.String("error", err.Error()),
				slog.Int("retention_days", j.RetentionDays),
			)
			errs = append(errs, fmt.Errorf("気分投稿のクリーンアップに失敗: %w", err))
		} else if j.metrics != nil {
			j.metrics.RecordMoodsPurged(moodCount)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Int64("deleted_sessions", sessionCount),
		slog.Int64("deleted_moods", moodCount),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}
