package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// 残席変更通知のPub/Subチャンネル
const changeChannel = "events:changed"

// SeatChange は予約成功後に配信される残席変更通知
type SeatChange struct {
	EventID        string    `json:"event_id"`
	RemainingSeats int       `json:"remaining_seats"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// ChangeNotifier はイベントの残席変更をRedis Pub/Subで配信する
// 表示層はSubscribeで受信して画面を更新する
type ChangeNotifier struct {
	client *redis.Client
}

// NewChangeNotifier は新しいChangeNotifierインスタンスを作成する
func NewChangeNotifier(client *redis.Client) *ChangeNotifier {
	return &ChangeNotifier{client: client}
}

// Publish は残席変更通知を配信する
func (n *ChangeNotifier) Publish(ctx context.Context, eventID string, remaining int) error {
	payload, err := json.Marshal(SeatChange{
		EventID:        eventID,
		RemainingSeats: remaining,
		OccurredAt:     time.Now(),
	})
	if err != nil {
		return fmt.Errorf("通知のエンコードに失敗: %w", err)
	}
	if err := n.client.Publish(ctx, changeChannel, payload).Err(); err != nil {
		return fmt.Errorf("通知の配信に失敗: %w", err)
	}
	return nil
}

// Subscribe は残席変更通知の受信を開始する
// 返されたチャンネルはctxのキャンセルでクローズされる
func (n *ChangeNotifier) Subscribe(ctx context.Context) <-chan SeatChange {
	sub := n.client.Subscribe(ctx, changeChannel)
	ch := make(chan SeatChange)

	go func() {
		defer close(ch)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				var change SeatChange
				if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
					continue
				}
				select {
				case ch <- change:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch
}
