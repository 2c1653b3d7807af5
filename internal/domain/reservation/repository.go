package reservation

import (
	"context"
	"time"

	"github.com/sanosuguru/go-seat-inventory/internal/domain/transaction"
)

// Repository は予約リポジトリのインターフェース
// 予約レコードと冪等性キーの記録は同一トランザクションで書き込む
type Repository interface {
	// Create は予約を作成する
	Create(ctx context.Context, tx transaction.Tx, r *Reservation) error

	// GetByID はIDから予約を取得する
	GetByID(ctx context.Context, id string) (*Reservation, error)

	// SaveOutcome は冪等性キーと処理結果を記録する
	// 同じキーが既に存在する場合は ErrDuplicateKey を返す
	SaveOutcome(ctx context.Context, tx transaction.Tx, o *Outcome) error

	// GetOutcome は冪等性キーに紐づく結果を取得する
	// 見つからない場合は ErrOutcomeNotFound を返す
	GetOutcome(ctx context.Context, key string) (*Outcome, error)

	// PurgeExpiredOutcomes は保持期間を過ぎた冪等性キーを削除し、削除件数を返す
	PurgeExpiredOutcomes(ctx context.Context, now time.Time) (int, error)
}
