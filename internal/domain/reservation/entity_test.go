package reservation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReservation(t *testing.T) {
	t.Run("呼び出し元が指定されている場合", func(t *testing.T) {
		r := NewReservation("res-1", "event-1", 2, "user-tanaka", "order-001")

		assert.Equal(t, "res-1", r.ID)
		assert.Equal(t, "event-1", r.EventID)
		assert.Equal(t, 2, r.Quantity)
		assert.Equal(t, "user-tanaka", r.RequestedBy)
		assert.Equal(t, "order-001", r.IdempotencyKey)
		assert.NotZero(t, r.CreatedAt)
	})

	t.Run("呼び出し元が空の場合はanonymousになる", func(t *testing.T) {
		r := NewReservation("res-2", "event-1", 1, "", "order-002")
		assert.Equal(t, AnonymousCaller, r.RequestedBy)
	})
}

func TestReservation_Validate(t *testing.T) {
	tests := []struct {
		name        string
		reservation *Reservation
		expectedErr error
	}{
		{
			name:        "有効な予約",
			reservation: &Reservation{EventID: "event-1", Quantity: 1, IdempotencyKey: "key-1"},
			expectedErr: nil,
		},
		{
			name:        "イベントIDが空",
			reservation: &Reservation{EventID: "", Quantity: 1, IdempotencyKey: "key-1"},
			expectedErr: ErrEventIDRequired,
		},
		{
			name:        "枚数が0",
			reservation: &Reservation{EventID: "event-1", Quantity: 0, IdempotencyKey: "key-1"},
			expectedErr: ErrInvalidQuantity,
		},
		{
			name:        "枚数が負",
			reservation: &Reservation{EventID: "event-1", Quantity: -1, IdempotencyKey: "key-1"},
			expectedErr: ErrInvalidQuantity,
		},
		{
			name:        "冪等性キーが空",
			reservation: &Reservation{EventID: "event-1", Quantity: 1, IdempotencyKey: ""},
			expectedErr: ErrIdempotencyKeyRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.reservation.Validate()
			if tt.expectedErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestOutcome_IsExpired(t *testing.T) {
	t.Run("保持期間内", func(t *testing.T) {
		o := &Outcome{ExpiresAt: time.Now().Add(1 * time.Hour)}
		assert.False(t, o.IsExpired())
	})

	t.Run("保持期間超過", func(t *testing.T) {
		o := &Outcome{ExpiresAt: time.Now().Add(-1 * time.Minute)}
		assert.True(t, o.IsExpired())
	})
}
