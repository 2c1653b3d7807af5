package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-seat-inventory/internal/domain/reservation"
	"github.com/sanosuguru/go-seat-inventory/internal/domain/transaction"
)

type reservationRow struct {
	ID             string    `db:"id"`
	EventID        string    `db:"event_id"`
	Quantity       int       `db:"quantity"`
	RequestedBy    string    `db:"requested_by"`
	IdempotencyKey string    `db:"idempotency_key"`
	CreatedAt      time.Time `db:"created_at"`
}

type outcomeRow struct {
	Key            string    `db:"key"`
	EventID        string    `db:"event_id"`
	ReservationID  string    `db:"reservation_id"`
	Quantity       int       `db:"quantity"`
	RemainingSeats int       `db:"remaining_seats"`
	ExpiresAt      time.Time `db:"expires_at"`
}

// ReservationRepository は予約リポジトリのPostgreSQL実装
type ReservationRepository struct{ db *sqlx.DB }

func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// Create は予約を作成する
func (r *ReservationRepository) Create(ctx context.Context, tx transaction.Tx, res *reservation.Reservation) error {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return fmt.Errorf("トランザクションが不正です")
	}

	query := `INSERT INTO reservations (id, event_id, quantity, requested_by, idempotency_key, created_at) VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := sqlxTx.ExecContext(ctx, query, res.ID, res.EventID, res.Quantity, res.RequestedBy, res.IdempotencyKey, res.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return reservation.ErrDuplicateKey
		}
		return fmt.Errorf("予約作成に失敗しました: %w", translateError(err))
	}
	return nil
}

// GetByID はIDから予約を取得する
func (r *ReservationRepository) GetByID(ctx context.Context, id string) (*reservation.Reservation, error) {
	var row reservationRow
	query := `SELECT id, event_id, quantity, requested_by, idempotency_key, created_at FROM reservations WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reservation.ErrOutcomeNotFound
		}
		return nil, fmt.Errorf("予約取得に失敗しました: %w", translateError(err))
	}
	return &reservation.Reservation{
		ID:             row.ID,
		EventID:        row.EventID,
		Quantity:       row.Quantity,
		RequestedBy:    row.RequestedBy,
		IdempotencyKey: row.IdempotencyKey,
		CreatedAt:      row.CreatedAt,
	}, nil
}

// SaveOutcome は冪等性キーと処理結果を記録する
// キーの一意制約が同時実行時の二重登録を防ぐ
func (r *ReservationRepository) SaveOutcome(ctx context.Context, tx transaction.Tx, o *reservation.Outcome) error {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return fmt.Errorf("トランザクションが不正です")
	}

	query := `INSERT INTO idempotency_keys (key, event_id, reservation_id, quantity, remaining_seats, expires_at) VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := sqlxTx.ExecContext(ctx, query, o.Key, o.EventID, o.ReservationID, o.Quantity, o.RemainingSeats, o.ExpiresAt); err != nil {
		if isUniqueViolation(err) {
			return reservation.ErrDuplicateKey
		}
		return fmt.Errorf("冪等性キー記録に失敗しました: %w", translateError(err))
	}
	return nil
}

// GetOutcome は冪等性キーに紐づく結果を取得する
func (r *ReservationRepository) GetOutcome(ctx context.Context, key string) (*reservation.Outcome, error) {
	var row outcomeRow
	query := `SELECT key, event_id, reservation_id, quantity, remaining_seats, expires_at FROM idempotency_keys WHERE key = $1`
	if err := r.db.GetContext(ctx, &row, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reservation.ErrOutcomeNotFound
		}
		return nil, fmt.Errorf("冪等性キー取得に失敗しました: %w", translateError(err))
	}
	return &reservation.Outcome{
		Key:            row.Key,
		EventID:        row.EventID,
		ReservationID:  row.ReservationID,
		Quantity:       row.Quantity,
		RemainingSeats: row.RemainingSeats,
		ExpiresAt:      row.ExpiresAt,
	}, nil
}

// PurgeExpiredOutcomes は保持期間を過ぎた冪等性キーを削除する
func (r *ReservationRepository) PurgeExpiredOutcomes(ctx context.Context, now time.Time) (int, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM idempotency_keys WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("冪等性キー削除に失敗しました: %w", translateError(err))
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除結果の確認に失敗しました: %w", err)
	}
	return int(count), nil
}

var _ reservation.Repository = (*ReservationRepository)(nil)
