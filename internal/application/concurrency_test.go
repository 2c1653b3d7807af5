package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-seat-inventory/internal/config"
	"github.com/sanosuguru/go-seat-inventory/internal/domain/event"
	"github.com/sanosuguru/go-seat-inventory/internal/domain/reservation"
	"github.com/sanosuguru/go-seat-inventory/internal/domain/transaction"
)

// fakeStore はイベント・予約・トランザクションをまとめたインメモリ実装
// 条件付き減算の並行特性をDBなしで検証するために使う
type fakeStore struct {
	mu           sync.Mutex
	events       map[string]*event.Event
	reservations map[string]*reservation.Reservation
	outcomes     map[string]*reservation.Outcome
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		events:       make(map[string]*event.Event),
		reservations: make(map[string]*reservation.Reservation),
		outcomes:     make(map[string]*reservation.Outcome),
	}
}

// fakeTx はロールバック時に取り消し処理を逆順に実行する
type fakeTx struct {
	store     *fakeStore
	committed bool
	undo      []func()
}

func (t *fakeTx) Commit() error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.committed = true
	t.undo = nil
	return nil
}

func (t *fakeTx) Rollback() error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if t.committed {
		return nil
	}
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
	return nil
}

func (s *fakeStore) Begin(ctx context.Context) (transaction.Tx, error) {
	return &fakeTx{store: s}, nil
}

func (s *fakeStore) Create(ctx context.Context, e *event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[e.ID] = e
	return nil
}

func (s *fakeStore) GetByID(ctx context.Context, id string) (*event.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, event.ErrEventNotFound
	}
	copied := *e
	return &copied, nil
}

func (s *fakeStore) List(ctx context.Context, limit, offset int) ([]*event.Event, error) {
	return nil, nil
}

// DecrementRemaining は「残席 >= 枚数」の条件付き減算をロック下で行う
func (s *fakeStore) DecrementRemaining(ctx context.Context, tx transaction.Tx, id string, quantity int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return 0, event.ErrEventNotFound
	}
	if e.RemainingSeats < quantity {
		return 0, reservation.ErrInsufficientSeats
	}
	e.RemainingSeats -= quantity
	if ft, ok := tx.(*fakeTx); ok {
		ft.undo = append(ft.undo, func() { e.RemainingSeats += quantity })
	}
	return e.RemainingSeats, nil
}

type fakeReservationStore struct {
	store *fakeStore
}

func (s *fakeReservationStore) Create(ctx context.Context, tx transaction.Tx, r *reservation.Reservation) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	for _, existing := range s.store.reservations {
		if existing.IdempotencyKey == r.IdempotencyKey {
			return reservation.ErrDuplicateKey
		}
	}
	s.store.reservations[r.ID] = r
	if ft, ok := tx.(*fakeTx); ok {
		ft.undo = append(ft.undo, func() { delete(s.store.reservations, r.ID) })
	}
	return nil
}

func (s *fakeReservationStore) GetByID(ctx context.Context, id string) (*reservation.Reservation, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	r, ok := s.store.reservations[id]
	if !ok {
		return nil, reservation.ErrOutcomeNotFound
	}
	return r, nil
}

func (s *fakeReservationStore) SaveOutcome(ctx context.Context, tx transaction.Tx, o *reservation.Outcome) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	if _, ok := s.store.outcomes[o.Key]; ok {
		return reservation.ErrDuplicateKey
	}
	s.store.outcomes[o.Key] = o
	if ft, ok := tx.(*fakeTx); ok {
		ft.undo = append(ft.undo, func() { delete(s.store.outcomes, o.Key) })
	}
	return nil
}

func (s *fakeReservationStore) GetOutcome(ctx context.Context, key string) (*reservation.Outcome, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	o, ok := s.store.outcomes[key]
	if !ok {
		return nil, reservation.ErrOutcomeNotFound
	}
	return o, nil
}

func (s *fakeReservationStore) PurgeExpiredOutcomes(ctx context.Context, now time.Time) (int, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	count := 0
	for key, o := range s.store.outcomes {
		if o.ExpiresAt.Before(now) {
			delete(s.store.outcomes, key)
			count++
		}
	}
	return count, nil
}

func newFakeService(store *fakeStore) *InventoryService {
	return NewInventoryService(
		store, store, &fakeReservationStore{store: store}, nil, nil, nil,
		config.InventoryConfig{MaxRetries: 3, RetryBaseDelay: 1 * time.Millisecond},
	)
}

func seedEvent(store *fakeStore, id string, seats int) {
	e := event.NewEvent("並行テストイベント", time.Now().Add(24*time.Hour), seats, 3000)
	e.ID = id
	store.events[id] = e
}

func TestInventoryService_Concurrent_NoOverselling(t *testing.T) {
	// Arrange: 残席10に対して50人が同時に1枚ずつ予約する
	store := newFakeStore()
	seedEvent(store, "event-1", 10)
	service := newFakeService(store)

	const callers = 50
	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		granted      int
		soldOut      int
		unexpectedEr []error
	)

	// Act
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := service.Reserve(context.Background(), ReserveInput{
				EventID:        "event-1",
				Quantity:       1,
				IdempotencyKey: fmt.Sprintf("key-%03d", n),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				granted++
			case errors.Is(err, reservation.ErrInsufficientSeats):
				soldOut++
			default:
				unexpectedEr = append(unexpectedEr, err)
			}
		}(i)
	}
	wg.Wait()

	// Assert: 成功は座席数ちょうど、売り切れ超過は発生しない
	assert.Empty(t, unexpectedEr)
	assert.Equal(t, 10, granted, "成功数は総座席数と一致する")
	assert.Equal(t, 40, soldOut)

	e, err := store.GetByID(context.Background(), "event-1")
	require.NoError(t, err)
	assert.Equal(t, 0, e.RemainingSeats, "残席は負にならない")
}

func TestInventoryService_Concurrent_LastSeatHasOneWinner(t *testing.T) {
	// Arrange: 残り1席を2人が同時に取り合う
	store := newFakeStore()
	seedEvent(store, "event-1", 1)
	service := newFakeService(store)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []error
	)

	// Act
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := service.Reserve(context.Background(), ReserveInput{
				EventID:        "event-1",
				Quantity:       1,
				IdempotencyKey: fmt.Sprintf("last-seat-%d", n),
			})
			mu.Lock()
			results = append(results, err)
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	// Assert: 必ず片方だけが成功する
	var wins, losses int
	for _, err := range results {
		if err == nil {
			wins++
		} else if errors.Is(err, reservation.ErrInsufficientSeats) {
			losses++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, losses)
}

func TestInventoryService_Concurrent_SameKeyDecrementsOnce(t *testing.T) {
	// Arrange: 同じ冪等性キーで2本同時に投げる
	store := newFakeStore()
	seedEvent(store, "event-1", 10)
	service := newFakeService(store)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []*ReserveResult
	)

	// Act
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := service.Reserve(context.Background(), ReserveInput{
				EventID:        "event-1",
				Quantity:       2,
				IdempotencyKey: "shared-key",
			})
			require.NoError(t, err)
			mu.Lock()
			results = append(results, result)
			mu.Unlock()
		}()
	}
	wg.Wait()

	// Assert: どちらも同じ予約を指し、減算は1回だけ
	require.Len(t, results, 2)
	assert.Equal(t, results[0].ReservationID, results[1].ReservationID)

	e, err := store.GetByID(context.Background(), "event-1")
	require.NoError(t, err)
	assert.Equal(t, 8, e.RemainingSeats, "同一キーの再送で在庫は二重に減らない")
}

func TestInventoryService_PurgeThenReuseKey(t *testing.T) {
	// 保持期間を過ぎたキーは削除され、同じキーで新しい予約ができる
	store := newFakeStore()
	seedEvent(store, "event-1", 10)
	service := newFakeService(store)

	first, err := service.Reserve(context.Background(), ReserveInput{
		EventID:        "event-1",
		Quantity:       1,
		IdempotencyKey: "reusable-key",
	})
	require.NoError(t, err)

	// 期限切れにする
	store.mu.Lock()
	store.outcomes["reusable-key"].ExpiresAt = time.Now().Add(-time.Minute)
	for id := range store.reservations {
		delete(store.reservations, id)
	}
	store.mu.Unlock()

	purged, err := service.PurgeExpiredOutcomes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	second, err := service.Reserve(context.Background(), ReserveInput{
		EventID:        "event-1",
		Quantity:       1,
		IdempotencyKey: "reusable-key",
	})
	require.NoError(t, err)
	assert.False(t, second.Replayed, "削除後のキーは新規予約として扱われる")
	assert.NotEqual(t, first.ReservationID, second.ReservationID)
}
