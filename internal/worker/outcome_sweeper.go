package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-seat-inventory/internal/pkg/logger"
)

// OutcomePurger は期限切れの冪等性キーを削除するインターフェース
type OutcomePurger interface {
	PurgeExpiredOutcomes(ctx context.Context) (int, error)
}

// OutcomeSweeper は保持期間を過ぎた冪等性キーを定期的に掃除するワーカー
// キーが消えた後の同一キー再送は新規リクエストとして扱われる
type OutcomeSweeper struct {
	purger   OutcomePurger
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewOutcomeSweeper は新しいスイーパーを作成
func NewOutcomeSweeper(purger OutcomePurger, interval time.Duration) *OutcomeSweeper {
	return &OutcomeSweeper{
		purger:   purger,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start はスイーパーを開始
func (s *OutcomeSweeper) Start(ctx context.Context) {
	logger.Info("冪等性キースイーパー開始",
		zap.Duration("interval", s.interval),
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer close(s.doneCh)

	for {
		select {
		case <-ctx.Done():
			logger.Info("冪等性キースイーパー停止（コンテキストキャンセル）")
			return
		case <-s.stopCh:
			logger.Info("冪等性キースイーパー停止（シグナル受信）")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// Stop はスイーパーを停止
func (s *OutcomeSweeper) Stop() {
	close(s.stopCh)
	<-s.doneCh
}

// sweep は期限切れ冪等性キーを削除
func (s *OutcomeSweeper) sweep(ctx context.Context) {
	log := logger.Get()
	log.Debug("期限切れ冪等性キーの掃除開始")

	count, err := s.purger.PurgeExpiredOutcomes(ctx)
	if err != nil {
		log.Error("期限切れ冪等性キーの掃除失敗", zap.Error(err))
		return
	}

	if count > 0 {
		log.Info("期限切れ冪等性キーを削除", zap.Int("count", count))
	} else {
		log.Debug("期限切れ冪等性キーなし")
	}
}
