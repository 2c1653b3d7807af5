package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-seat-inventory/internal/domain/reservation"
)

func TestReservationRepository_Create(t *testing.T) {
	insertQuery := regexp.QuoteMeta(`INSERT INTO reservations (id, event_id, quantity, requested_by, idempotency_key, created_at) VALUES ($1, $2, $3, $4, $5, $6)`)

	t.Run("正常に作成できる", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewReservationRepository(db)
		tx := beginTestTx(t, db, mock)

		res := reservation.NewReservation("res-1", "event-1", 2, "user-tanaka", "order-001")

		mock.ExpectExec(insertQuery).
			WithArgs(res.ID, res.EventID, res.Quantity, res.RequestedBy, res.IdempotencyKey, res.CreatedAt).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Create(context.Background(), tx, res)

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("冪等性キーの重複", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewReservationRepository(db)
		tx := beginTestTx(t, db, mock)

		res := reservation.NewReservation("res-2", "event-1", 1, "", "order-001")

		mock.ExpectExec(insertQuery).
			WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

		err := repo.Create(context.Background(), tx, res)

		assert.ErrorIs(t, err, reservation.ErrDuplicateKey)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestReservationRepository_SaveOutcome(t *testing.T) {
	insertQuery := regexp.QuoteMeta(`INSERT INTO idempotency_keys (key, event_id, reservation_id, quantity, remaining_seats, expires_at) VALUES ($1, $2, $3, $4, $5, $6)`)

	t.Run("正常に記録できる", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewReservationRepository(db)
		tx := beginTestTx(t, db, mock)

		o := &reservation.Outcome{
			Key:            "order-001",
			EventID:        "event-1",
			ReservationID:  "res-1",
			Quantity:       2,
			RemainingSeats: 8,
			ExpiresAt:      time.Now().Add(reservation.OutcomeRetention),
		}

		mock.ExpectExec(insertQuery).
			WithArgs(o.Key, o.EventID, o.ReservationID, o.Quantity, o.RemainingSeats, o.ExpiresAt).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.SaveOutcome(context.Background(), tx, o)

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("キーの重複", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewReservationRepository(db)
		tx := beginTestTx(t, db, mock)

		o := &reservation.Outcome{Key: "order-001", EventID: "event-1", ReservationID: "res-1"}

		mock.ExpectExec(insertQuery).
			WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

		err := repo.SaveOutcome(context.Background(), tx, o)

		assert.ErrorIs(t, err, reservation.ErrDuplicateKey)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestReservationRepository_GetOutcome(t *testing.T) {
	selectQuery := regexp.QuoteMeta(`SELECT key, event_id, reservation_id, quantity, remaining_seats, expires_at FROM idempotency_keys WHERE key = $1`)

	t.Run("処理済みキー", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewReservationRepository(db)

		expiresAt := time.Now().Add(12 * time.Hour)
		rows := sqlmock.NewRows([]string{"key", "event_id", "reservation_id", "quantity", "remaining_seats", "expires_at"}).
			AddRow("order-001", "event-1", "res-1", 2, 8, expiresAt)

		mock.ExpectQuery(selectQuery).WithArgs("order-001").WillReturnRows(rows)

		o, err := repo.GetOutcome(context.Background(), "order-001")

		require.NoError(t, err)
		assert.Equal(t, "res-1", o.ReservationID)
		assert.Equal(t, 8, o.RemainingSeats)
		assert.False(t, o.IsExpired())
	})

	t.Run("未処理のキー", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewReservationRepository(db)

		mock.ExpectQuery(selectQuery).WithArgs("unknown").
			WillReturnRows(sqlmock.NewRows([]string{"key"}))

		_, err := repo.GetOutcome(context.Background(), "unknown")

		assert.ErrorIs(t, err, reservation.ErrOutcomeNotFound)
	})
}

func TestReservationRepository_PurgeExpiredOutcomes(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReservationRepository(db)

	now := time.Now()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM idempotency_keys WHERE expires_at < $1`)).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	count, err := repo.PurgeExpiredOutcomes(context.Background(), now)

	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name        string
		input       error
		expectedErr error
	}{
		{
			name:        "シリアライゼーション競合",
			input:       &pq.Error{Code: "40001"},
			expectedErr: reservation.ErrContention,
		},
		{
			name:        "デッドロック検出",
			input:       &pq.Error{Code: "40P01"},
			expectedErr: reservation.ErrContention,
		},
		{
			name:        "接続例外",
			input:       &pq.Error{Code: "08001"},
			expectedErr: reservation.ErrStoreUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := translateError(tt.input)
			assert.ErrorIs(t, err, tt.expectedErr)
		})
	}

	t.Run("nilはnilのまま", func(t *testing.T) {
		assert.NoError(t, translateError(nil))
	})

	t.Run("その他のエラーは変換しない", func(t *testing.T) {
		input := &pq.Error{Code: "23505"}
		assert.Equal(t, input, translateError(input))
	})
}
