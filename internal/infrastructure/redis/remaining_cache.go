package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrCacheMiss = errors.New("キャッシュが見つかりません")
)

// RemainingCache はイベントごとの残席数キャッシュを管理する
// 一覧表示の読み込みをDBから逃がすための短寿命キャッシュで、
// 予約成功時に無効化される
type RemainingCache struct {
	client *redis.Client
}

// NewRemainingCache は新しいRemainingCacheインスタンスを作成する
func NewRemainingCache(client *redis.Client) *RemainingCache {
	return &RemainingCache{client: client}
}

// Get はイベントの残席数をキャッシュから取得する
func (c *RemainingCache) Get(ctx context.Context, eventID string) (int, error) {
	key := c.remainingKey(eventID)
	val, err := c.client.Get(ctx, key).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrCacheMiss
		}
		return 0, fmt.Errorf("キャッシュ取得に失敗: %w", err)
	}
	return val, nil
}

// Set はイベントの残席数をキャッシュに保存する
func (c *RemainingCache) Set(ctx context.Context, eventID string, remaining int, ttl time.Duration) error {
	key := c.remainingKey(eventID)
	err := c.client.Set(ctx, key, remaining, ttl).Err()
	if err != nil {
		return fmt.Errorf("キャッシュ保存に失敗: %w", err)
	}
	return nil
}

// Invalidate はイベントのキャッシュを無効化する
func (c *RemainingCache) Invalidate(ctx context.Context, eventID string) error {
	key := c.remainingKey(eventID)
	err := c.client.Del(ctx, key).Err()
	if err != nil {
		return fmt.Errorf("キャッシュ無効化に失敗: %w", err)
	}
	return nil
}

func (c *RemainingCache) remainingKey(eventID string) string {
	return fmt.Sprintf("events:remaining:%s", eventID)
}
