package event

import (
	"context"

	"github.com/sanosuguru/go-seat-inventory/internal/domain/transaction"
)

// Repository はイベントリポジトリのインターフェース
type Repository interface {
	// Create は新しいイベントを作成する
	Create(ctx context.Context, event *Event) error

	// GetByID はIDからイベントを取得する
	GetByID(ctx context.Context, id string) (*Event, error)

	// List はイベント一覧を開催日時の昇順で取得する
	List(ctx context.Context, limit, offset int) ([]*Event, error)

	// DecrementRemaining は残席数を条件付きで減算し、減算後の残席数を返す
	// 「残席数 >= quantity」が成立する行のみ更新されるため、
	// 読み取りと書き込みの間に他の更新が割り込む余地はない
	// イベントが存在しない場合は ErrEventNotFound、
	// 残席が不足している場合は reservation.ErrInsufficientSeats を返す
	DecrementRemaining(ctx context.Context, tx transaction.Tx, id string, quantity int) (int, error)
}
