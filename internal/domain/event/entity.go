package event

import "time"

// Event はチケット販売対象のイベントエンティティを表す
// RemainingSeats 以外のフィールドは作成後に変更されない
type Event struct {
	ID             string
	Title          string
	ScheduledAt    time.Time
	TotalSeats     int
	RemainingSeats int
	Price          int // 最小通貨単位（0円も許容）
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Version        int // 楽観的ロック用
}

// NewEvent は新しいイベントを作成する
// 残席数は総座席数と同じ値で初期化される
func NewEvent(title string, scheduledAt time.Time, totalSeats, price int) *Event {
	now := time.Now()
	return &Event{
		Title:          title,
		ScheduledAt:    scheduledAt,
		TotalSeats:     totalSeats,
		RemainingSeats: totalSeats,
		Price:          price,
		CreatedAt:      now,
		UpdatedAt:      now,
		Version:        0,
	}
}

// Validate はイベントの検証を行う
func (e *Event) Validate() error {
	if e.Title == "" {
		return ErrTitleRequired
	}
	if e.TotalSeats <= 0 {
		return ErrInvalidTotalSeats
	}
	if e.RemainingSeats < 0 || e.RemainingSeats > e.TotalSeats {
		return ErrInvalidRemainingSeats
	}
	if e.Price < 0 {
		return ErrInvalidPrice
	}
	return nil
}

// IsSoldOut は完売しているかを返す
func (e *Event) IsSoldOut() bool {
	return e.RemainingSeats == 0
}

// CanReserve は指定枚数の予約が可能かを返す
func (e *Event) CanReserve(quantity int) bool {
	return quantity >= 1 && quantity <= e.RemainingSeats
}
