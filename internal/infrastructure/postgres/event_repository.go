package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-seat-inventory/internal/domain/event"
	"github.com/sanosuguru/go-seat-inventory/internal/domain/reservation"
	"github.com/sanosuguru/go-seat-inventory/internal/domain/transaction"
)

// eventRow はDBの行を表す構造体
type eventRow struct {
	ID             string    `db:"id"`
	Title          string    `db:"title"`
	ScheduledAt    time.Time `db:"scheduled_at"`
	TotalSeats     int       `db:"total_seats"`
	RemainingSeats int       `db:"remaining_seats"`
	Price          int       `db:"price"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
	Version        int       `db:"version"`
}

// toEntity はeventRowをEventエンティティに変換する
func (r *eventRow) toEntity() *event.Event {
	return &event.Event{
		ID:             r.ID,
		Title:          r.Title,
		ScheduledAt:    r.ScheduledAt,
		TotalSeats:     r.TotalSeats,
		RemainingSeats: r.RemainingSeats,
		Price:          r.Price,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
		Version:        r.Version,
	}
}

// EventRepository はイベントリポジトリのPostgreSQL実装
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository はEventRepositoryを作成する
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create は新しいイベントを作成する
func (r *EventRepository) Create(ctx context.Context, e *event.Event) error {
	query := `
		INSERT INTO events (title, scheduled_at, total_seats, remaining_seats, price, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		e.Title, e.ScheduledAt, e.TotalSeats, e.RemainingSeats, e.Price, e.CreatedAt, e.UpdatedAt, e.Version,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("イベント作成に失敗しました: %w", translateError(err))
	}
	return nil
}

// GetByID はIDからイベントを取得する
func (r *EventRepository) GetByID(ctx context.Context, id string) (*event.Event, error) {
	query := `SELECT id, title, scheduled_at, total_seats, remaining_seats, price, created_at, updated_at, version FROM events WHERE id = $1`

	var row eventRow
	err := r.db.GetContext(ctx, &row, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, event.ErrEventNotFound
		}
		return nil, fmt.Errorf("イベント取得に失敗しました: %w", translateError(err))
	}
	return row.toEntity(), nil
}

// List はイベント一覧を開催日時の昇順で取得する
func (r *EventRepository) List(ctx context.Context, limit, offset int) ([]*event.Event, error) {
	query := `
		SELECT id, title, scheduled_at, total_seats, remaining_seats, price, created_at, updated_at, version
		FROM events
		ORDER BY scheduled_at ASC
		LIMIT $1 OFFSET $2
	`

	var rows []eventRow
	err := r.db.SelectContext(ctx, &rows, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("イベント一覧取得に失敗しました: %w", translateError(err))
	}

	events := make([]*event.Event, len(rows))
	for i, row := range rows {
		events[i] = row.toEntity()
	}
	return events, nil
}

// DecrementRemaining は残席数を条件付きで減算する
// 「remaining_seats >= quantity」のガードを更新文自体に含めることで
// 読み取りと書き込みの間に他の更新が入り込む余地をなくしている
func (r *EventRepository) DecrementRemaining(ctx context.Context, tx transaction.Tx, id string, quantity int) (int, error) {
	query := `
		UPDATE events
		SET remaining_seats = remaining_seats - $2, updated_at = NOW(), version = version + 1
		WHERE id = $1 AND remaining_seats >= $2
		RETURNING remaining_seats
	`

	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return 0, fmt.Errorf("トランザクションが不正です")
	}

	var remaining int
	err := sqlxTx.QueryRowContext(ctx, query, id, quantity).Scan(&remaining)
	if err == nil {
		return remaining, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("残席の更新に失敗しました: %w", translateError(err))
	}

	// 更新対象なし：イベント不存在と残席不足を区別する
	var exists bool
	if err := sqlxTx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, id).Scan(&exists); err != nil {
		return 0, fmt.Errorf("イベント存在確認に失敗しました: %w", translateError(err))
	}
	if !exists {
		return 0, event.ErrEventNotFound
	}
	return 0, reservation.ErrInsufficientSeats
}

// インターフェースを満たしているか確認
var _ event.Repository = (*EventRepository)(nil)
