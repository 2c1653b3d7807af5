package event

import "errors"

// Event ドメインのエラー定義
var (
	ErrEventNotFound         = errors.New("イベントが見つかりません")
	ErrTitleRequired         = errors.New("イベント名は必須です")
	ErrInvalidTotalSeats     = errors.New("座席数は1以上である必要があります")
	ErrInvalidRemainingSeats = errors.New("残席数は0以上かつ総座席数以下である必要があります")
	ErrInvalidPrice          = errors.New("価格は0以上である必要があります")
)
