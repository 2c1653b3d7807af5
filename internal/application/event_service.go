package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-seat-inventory/internal/domain/event"
	redisinfra "github.com/sanosuguru/go-seat-inventory/internal/infrastructure/redis"
	"github.com/sanosuguru/go-seat-inventory/internal/pkg/logger"
)

const defaultRemainingCacheTTL = 30 * time.Second

// EventService はイベントカタログの読み取りと登録を提供する
type EventService struct {
	eventRepo event.Repository
	cache     *redisinfra.RemainingCache
	cacheTTL  time.Duration
}

func NewEventService(eventRepo event.Repository, cache *redisinfra.RemainingCache, cacheTTL time.Duration) *EventService {
	if cacheTTL <= 0 {
		cacheTTL = defaultRemainingCacheTTL
	}
	return &EventService{eventRepo: eventRepo, cache: cache, cacheTTL: cacheTTL}
}

type CreateEventInput struct {
	Title       string
	ScheduledAt time.Time
	TotalSeats  int
	Price       int
}

// CreateEvent は新しいイベントを登録する
// カタログの投入はこのサービスの利用者（管理側）の操作で、予約経路からは呼ばれない
func (s *EventService) CreateEvent(ctx context.Context, input CreateEventInput) (*event.Event, error) {
	e := event.NewEvent(input.Title, input.ScheduledAt, input.TotalSeats, input.Price)
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("バリデーションエラー: %w", err)
	}
	if err := s.eventRepo.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("イベント作成に失敗しました: %w", err)
	}
	return e, nil
}

// GetEvent はIDからイベントを取得する
func (s *EventService) GetEvent(ctx context.Context, id string) (*event.Event, error) {
	return s.eventRepo.GetByID(ctx, id)
}

// ListEvents はイベント一覧を開催日時の昇順で取得する
func (s *EventService) ListEvents(ctx context.Context, limit, offset int) ([]*event.Event, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.eventRepo.List(ctx, limit, offset)
}

// GetRemainingSeats はイベントの現在の残席数を返す
// キャッシュヒット時はDBを参照しない
func (s *EventService) GetRemainingSeats(ctx context.Context, eventID string) (int, error) {
	if s.cache != nil {
		remaining, err := s.cache.Get(ctx, eventID)
		if err == nil {
			logger.Debug("キャッシュヒット", zap.String("event_id", eventID), zap.Int("remaining", remaining))
			return remaining, nil
		}
		if !errors.Is(err, redisinfra.ErrCacheMiss) {
			logger.Warn("キャッシュ取得エラー", zap.Error(err))
		}
	}

	e, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		if cacheErr := s.cache.Set(ctx, eventID, e.RemainingSeats, s.cacheTTL); cacheErr != nil {
			logger.Warn("キャッシュ保存エラー", zap.Error(cacheErr))
		}
	}

	return e.RemainingSeats, nil
}
