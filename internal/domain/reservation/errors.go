package reservation

import "errors"

// Reservation ドメインのエラー定義
var (
	ErrInvalidQuantity        = errors.New("枚数は1以上である必要があります")
	ErrInsufficientSeats      = errors.New("残席が不足しています")
	ErrEventIDRequired        = errors.New("イベントIDは必須です")
	ErrIdempotencyKeyRequired = errors.New("冪等性キーは必須です")
	ErrOutcomeNotFound        = errors.New("冪等性キーに対応する結果が見つかりません")
	ErrDuplicateKey           = errors.New("同じ冪等性キーの予約が既に存在します")

	// ErrContention は条件付き更新の競合が続いた場合に返される
	// 呼び出し側は同じ冪等性キーでリクエスト全体を再試行できる
	ErrContention = errors.New("競合によりリクエストを処理できませんでした")

	// ErrStoreUnavailable はストアへの接続自体に失敗した場合に返される
	ErrStoreUnavailable = errors.New("ストアに接続できません")
)
