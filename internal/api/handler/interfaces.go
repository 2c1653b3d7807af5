package handler

import (
	"context"

	"github.com/sanosuguru/go-seat-inventory/internal/application"
	"github.com/sanosuguru/go-seat-inventory/internal/domain/event"
	"github.com/sanosuguru/go-seat-inventory/internal/domain/reservation"
)

// EventServiceInterface はイベントサービスのインターフェース
type EventServiceInterface interface {
	CreateEvent(ctx context.Context, input application.CreateEventInput) (*event.Event, error)
	GetEvent(ctx context.Context, id string) (*event.Event, error)
	ListEvents(ctx context.Context, limit, offset int) ([]*event.Event, error)
	GetRemainingSeats(ctx context.Context, eventID string) (int, error)
}

// InventoryServiceInterface は在庫サービスのインターフェース
type InventoryServiceInterface interface {
	Reserve(ctx context.Context, input application.ReserveInput) (*application.ReserveResult, error)
	GetReservation(ctx context.Context, id string) (*reservation.Reservation, error)
}
