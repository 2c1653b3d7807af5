package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-seat-inventory/internal/config"
	"github.com/sanosuguru/go-seat-inventory/internal/domain/event"
	"github.com/sanosuguru/go-seat-inventory/internal/domain/reservation"
	"github.com/sanosuguru/go-seat-inventory/internal/domain/transaction"
	redisinfra "github.com/sanosuguru/go-seat-inventory/internal/infrastructure/redis"
	"github.com/sanosuguru/go-seat-inventory/internal/pkg/logger"
	"github.com/sanosuguru/go-seat-inventory/internal/pkg/metrics"
)

// InventoryService は座席在庫を管理し、アトミックな予約操作を提供する
type InventoryService struct {
	txManager       transaction.Manager
	eventRepo       event.Repository
	reservationRepo reservation.Repository
	cache           *redisinfra.RemainingCache
	notifier        *redisinfra.ChangeNotifier
	metrics         *metrics.Metrics
	cfg             config.InventoryConfig
}

func NewInventoryService(
	tm transaction.Manager,
	er event.Repository,
	rr reservation.Repository,
	cache *redisinfra.RemainingCache,
	notifier *redisinfra.ChangeNotifier,
	m *metrics.Metrics,
	cfg config.InventoryConfig,
) *InventoryService {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 50 * time.Millisecond
	}
	return &InventoryService{
		txManager:       tm,
		eventRepo:       er,
		reservationRepo: rr,
		cache:           cache,
		notifier:        notifier,
		metrics:         m,
		cfg:             cfg,
	}
}

type ReserveInput struct {
	EventID        string
	Quantity       int
	RequestedBy    string
	IdempotencyKey string
}

// ReserveResult は予約操作の結果
// Replayed が true の場合は過去に処理済みのリクエストの再送で、
// 在庫はこの呼び出しでは減算されていない
type ReserveResult struct {
	ReservationID  string
	EventID        string
	Quantity       int
	RemainingSeats int
	Replayed       bool
}

// Reserve は残席数をアトミックに減算してチケットを確保する
// 減算は「remaining_seats >= quantity」を条件とする単一の更新文で行われ、
// 競合時は上限付きの指数バックオフで再試行する
func (s *InventoryService) Reserve(ctx context.Context, input ReserveInput) (*ReserveResult, error) {
	if input.Quantity < 1 {
		s.countReservation("invalid")
		return nil, reservation.ErrInvalidQuantity
	}
	if input.IdempotencyKey == "" {
		s.countReservation("invalid")
		return nil, reservation.ErrIdempotencyKeyRequired
	}

	// 冪等性チェック：処理済みのキーなら元の結果をそのまま返す
	if outcome, err := s.reservationRepo.GetOutcome(ctx, input.IdempotencyKey); err == nil {
		s.countReservation("replayed")
		return resultFromOutcome(outcome), nil
	} else if !errors.Is(err, reservation.ErrOutcomeNotFound) {
		return nil, fmt.Errorf("冪等性チェックに失敗: %w", err)
	}

	var (
		result  *ReserveResult
		lastErr error
	)
	for attempt := 0; attempt < s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			// 指数バックオフ
			delay := s.cfg.RetryBaseDelay << (attempt - 1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		result, lastErr = s.tryReserve(ctx, input)
		if lastErr == nil {
			s.observeAttempts(attempt + 1)
			break
		}
		if !isRetryable(lastErr) {
			s.countReservationError(lastErr)
			return nil, lastErr
		}
		logger.Warn("予約処理を再試行します",
			zap.String("event_id", input.EventID),
			zap.Int("attempt", attempt+1),
			zap.Error(lastErr),
		)
	}
	if lastErr != nil {
		s.countReservationError(lastErr)
		return nil, lastErr
	}

	if result.Replayed {
		s.countReservation("replayed")
		return result, nil
	}
	s.countReservation("success")
	if s.metrics != nil {
		s.metrics.SeatsReservedTotal.Add(float64(result.Quantity))
	}

	// キャッシュ無効化と変更通知はベストエフォート
	// 予約自体はコミット済みなので失敗してもロールバックしない
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, input.EventID); err != nil {
			logger.Warn("キャッシュ無効化エラー", zap.Error(err))
		}
	}
	if s.notifier != nil {
		if err := s.notifier.Publish(ctx, input.EventID, result.RemainingSeats); err != nil {
			logger.Warn("残席変更通知エラー", zap.Error(err))
		}
	}

	return result, nil
}

// tryReserve は1回分の予約処理を実行する
// 条件付き減算・予約レコード・冪等性キーの記録を単一トランザクションで行う
func (s *InventoryService) tryReserve(ctx context.Context, input ReserveInput) (*ReserveResult, error) {
	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	remaining, err := s.eventRepo.DecrementRemaining(ctx, tx, input.EventID, input.Quantity)
	if err != nil {
		return nil, err
	}

	res := reservation.NewReservation(uuid.New().String(), input.EventID, input.Quantity, input.RequestedBy, input.IdempotencyKey)
	if err := res.Validate(); err != nil {
		return nil, err
	}

	if err := s.reservationRepo.Create(ctx, tx, res); err != nil {
		return s.handleDuplicate(ctx, input.IdempotencyKey, err)
	}

	outcome := &reservation.Outcome{
		Key:            input.IdempotencyKey,
		EventID:        input.EventID,
		ReservationID:  res.ID,
		Quantity:       input.Quantity,
		RemainingSeats: remaining,
		ExpiresAt:      time.Now().Add(reservation.OutcomeRetention),
	}
	if err := s.reservationRepo.SaveOutcome(ctx, tx, outcome); err != nil {
		return s.handleDuplicate(ctx, input.IdempotencyKey, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}

	return &ReserveResult{
		ReservationID:  res.ID,
		EventID:        res.EventID,
		Quantity:       res.Quantity,
		RemainingSeats: remaining,
	}, nil
}

// handleDuplicate は一意制約違反時に元の結果を読み直して返す
// 同じキーの同時実行でも、勝った方の結果だけが残る
func (s *InventoryService) handleDuplicate(ctx context.Context, key string, cause error) (*ReserveResult, error) {
	if !errors.Is(cause, reservation.ErrDuplicateKey) {
		return nil, cause
	}
	outcome, err := s.reservationRepo.GetOutcome(ctx, key)
	if errors.Is(err, reservation.ErrOutcomeNotFound) {
		// 勝った側のトランザクションがまだコミットされていない
		// 競合として扱い、再試行で確定した結果を読み直す
		return nil, reservation.ErrContention
	}
	if err != nil {
		return nil, fmt.Errorf("重複キーの結果取得に失敗: %w", err)
	}
	return resultFromOutcome(outcome), nil
}

func resultFromOutcome(o *reservation.Outcome) *ReserveResult {
	return &ReserveResult{
		ReservationID:  o.ReservationID,
		EventID:        o.EventID,
		Quantity:       o.Quantity,
		RemainingSeats: o.RemainingSeats,
		Replayed:       true,
	}
}

// isRetryable は再試行で解消しうるエラーかを返す
// 残席不足は在庫の実状態なので再試行しない
func isRetryable(err error) bool {
	return errors.Is(err, reservation.ErrContention) ||
		errors.Is(err, reservation.ErrStoreUnavailable)
}

func (s *InventoryService) countReservation(status string) {
	if s.metrics != nil {
		s.metrics.ReservationsTotal.WithLabelValues(status).Inc()
	}
}

func (s *InventoryService) countReservationError(err error) {
	switch {
	case errors.Is(err, reservation.ErrInsufficientSeats):
		s.countReservation("sold_out")
	case errors.Is(err, event.ErrEventNotFound):
		s.countReservation("not_found")
	case errors.Is(err, reservation.ErrContention):
		s.countReservation("contention")
	case errors.Is(err, reservation.ErrStoreUnavailable):
		s.countReservation("store_error")
	default:
		s.countReservation("error")
	}
}

func (s *InventoryService) observeAttempts(attempts int) {
	if s.metrics != nil {
		s.metrics.DecrementAttempts.Observe(float64(attempts))
	}
}

// GetReservation はIDから予約を取得する
func (s *InventoryService) GetReservation(ctx context.Context, id string) (*reservation.Reservation, error) {
	return s.reservationRepo.GetByID(ctx, id)
}

// PurgeExpiredOutcomes は保持期間を過ぎた冪等性キーを削除する
// ワーカーから定期的に呼ばれる
func (s *InventoryService) PurgeExpiredOutcomes(ctx context.Context) (int, error) {
	return s.reservationRepo.PurgeExpiredOutcomes(ctx, time.Now())
}
