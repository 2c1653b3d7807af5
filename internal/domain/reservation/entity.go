package reservation

import "time"

// AnonymousCaller は未ログイン利用者を表す呼び出し元識別子
const AnonymousCaller = "anonymous"

// OutcomeRetention は冪等性キーの保持期間
// 期限を過ぎたキーはワーカーによって削除され、同じキーの再利用が可能になる
const OutcomeRetention = 24 * time.Hour

// Reservation は座席予約エンティティを表す
// 座席単位の割り当ては行わず、イベントごとの残席数から枚数を確保する
type Reservation struct {
	ID             string
	EventID        string
	Quantity       int
	RequestedBy    string
	IdempotencyKey string
	CreatedAt      time.Time
}

// NewReservation は新しい予約を作成する
// requestedBy が空の場合は anonymous として扱う
func NewReservation(id, eventID string, quantity int, requestedBy, idempotencyKey string) *Reservation {
	if requestedBy == "" {
		requestedBy = AnonymousCaller
	}
	return &Reservation{
		ID:             id,
		EventID:        eventID,
		Quantity:       quantity,
		RequestedBy:    requestedBy,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      time.Now(),
	}
}

// Validate は予約の検証を行う
func (r *Reservation) Validate() error {
	if r.EventID == "" {
		return ErrEventIDRequired
	}
	if r.Quantity < 1 {
		return ErrInvalidQuantity
	}
	if r.IdempotencyKey == "" {
		return ErrIdempotencyKeyRequired
	}
	return nil
}

// Outcome は冪等性キーに紐づく処理結果の記録
// 同じキーでの再試行にはこの記録をそのまま返し、残席を二重に減算しない
type Outcome struct {
	Key            string
	EventID        string
	ReservationID  string
	Quantity       int
	RemainingSeats int
	ExpiresAt      time.Time
}

// IsExpired は保持期間を過ぎているかを返す
func (o *Outcome) IsExpired() bool {
	return time.Now().After(o.ExpiresAt)
}
