// Package cleanup は保持期間を過ぎた休日データの定期削除ジョブを提供する。
// 基準日（現在日からRetentionDays日前）より前の休日を全ユーザー分まとめて削除する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultRetentionDays は休日の既定の保持日数。
const DefaultRetentionDays = 730

// HolidayPurger は基準日より前の休日を削除するインターフェース。
// calendar.Serviceが実装する。
type HolidayPurger interface {
	PurgeHolidaysBefore(ctx context.Context, before time.Time) (int64, error)
}

// CleanupJob は保持期間を超過した休日の削除ジョブ。
// 削除は冪等で、対象がない場合もエラーにならない。
type CleanupJob struct {
	purger        HolidayPurger
	logger        *slog.Logger
	RetentionDays int // 休日の保持日数（デフォルト: 730）
	now           func() time.Time
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(purger HolidayPurger, logger *slog.Logger, retentionDays int) *CleanupJob {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanupJob{
		purger:        purger,
		logger:        logger,
		RetentionDays: retentionDays,
		now:           time.Now,
	}
}

// Cutoff は削除の基準日を返す。この日より前の休日が削除対象になる。
func (j *CleanupJob) Cutoff() time.Time {
	return j.now().UTC().AddDate(0, 0, -j.RetentionDays)
}

// Run は保持期間を超過した休日を削除する。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()
	cutoff := j.Cutoff()

	deletedCount, err := j.purger.PurgeHolidaysBefore(ctx, cutoff)
	if err != nil {
		j.logger.Error("休日クリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("休日クリーンアップの実行に失敗: %w", err)
	}

	j.logger.Info("休日クリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Int("retention_days", j.RetentionDays),
		slog.String("cutoff", cutoff.Format("2006-01-02")),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

// Start は起動直後に1回実行し、その後interval間隔でRunを繰り返す。
// ctxがキャンセルされるまでブロックする。個々の実行の失敗はログに記録して継続する。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	_ = j.Run(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			j.logger.Info("休日クリーンアップジョブを停止しました")
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}
