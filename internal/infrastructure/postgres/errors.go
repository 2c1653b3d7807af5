package postgres

import (
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/sanosuguru/go-seat-inventory/internal/domain/reservation"
)

// translateError はドライバーのエラーをドメインのエラー分類に変換する
// シリアライゼーション競合は再試行可能な ErrContention、
// 接続系の失敗は ErrStoreUnavailable に割り当てる
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return fmt.Errorf("%w: %s", reservation.ErrContention, pgErr.Message)
		}
		// 08xxx は接続例外クラス
		if pgErr.Code.Class() == "08" {
			return fmt.Errorf("%w: %s", reservation.ErrStoreUnavailable, pgErr.Message)
		}
		return err
	}

	if errors.Is(err, driver.ErrBadConn) {
		return fmt.Errorf("%w: %v", reservation.ErrStoreUnavailable, err)
	}
	return err
}

// isUniqueViolation は一意制約違反かを返す
func isUniqueViolation(err error) bool {
	var pgErr *pq.Error
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
