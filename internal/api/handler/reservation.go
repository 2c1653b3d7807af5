package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-seat-inventory/internal/application"
	"github.com/sanosuguru/go-seat-inventory/internal/domain/event"
	"github.com/sanosuguru/go-seat-inventory/internal/domain/reservation"
)

type ReservationHandler struct {
	service InventoryServiceInterface
}

func NewReservationHandler(s InventoryServiceInterface) *ReservationHandler {
	return &ReservationHandler{service: s}
}

type CreateReservationRequest struct {
	EventID string `json:"event_id" validate:"required" example:"550e8400-e29b-41d4-a716-446655440000"`
	// 省略時は1枚として扱う（0以下は明示的なエラー）
	Quantity       *int   `json:"quantity" example:"2"`
	IdempotencyKey string `json:"idempotency_key" validate:"required" example:"order-2025-001"`
}

type ReservationResponse struct {
	ReservationID  string `json:"reservation_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	EventID        string `json:"event_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Quantity       int    `json:"quantity" example:"2"`
	RemainingSeats int    `json:"remaining_seats" example:"148"`
	Duplicate      bool   `json:"duplicate"`
}

func toReservationResponse(r *application.ReserveResult) ReservationResponse {
	return ReservationResponse{
		ReservationID:  r.ReservationID,
		EventID:        r.EventID,
		Quantity:       r.Quantity,
		RemainingSeats: r.RemainingSeats,
		Duplicate:      r.Replayed,
	}
}

// Create godoc
// @Summary チケットを予約
// @Description 残席数をアトミックに減算してチケットを確保します
// @Tags reservations
// @Accept json
// @Produce json
// @Param X-User-ID header string false "ユーザーID（省略時はanonymous）"
// @Param request body CreateReservationRequest true "予約情報"
// @Success 201 {object} ReservationResponse
// @Success 200 {object} ReservationResponse "処理済みリクエストの再送"
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string "残席不足"
// @Failure 503 {object} map[string]string "競合またはストア障害（再試行可）"
// @Router /reservations [post]
func (h *ReservationHandler) Create(c echo.Context) error {
	var req CreateReservationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	result, err := h.service.Reserve(c.Request().Context(), application.ReserveInput{
		EventID:        req.EventID,
		Quantity:       quantity,
		RequestedBy:    c.Request().Header.Get("X-User-ID"),
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		return reservationError(c, err)
	}

	// 再送は新規作成ではないため200で返す
	if result.Replayed {
		return c.JSON(http.StatusOK, toReservationResponse(result))
	}
	return c.JSON(http.StatusCreated, toReservationResponse(result))
}

// GetByID godoc
// @Summary 予約を取得
// @Description 指定IDの予約を取得します
// @Tags reservations
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /reservations/{id} [get]
func (h *ReservationHandler) GetByID(c echo.Context) error {
	id := c.Param("id")
	r, err := h.service.GetReservation(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, reservation.ErrOutcomeNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "予約が見つかりません")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"reservation_id": r.ID,
		"event_id":       r.EventID,
		"quantity":       r.Quantity,
		"requested_by":   r.RequestedBy,
		"created_at":     r.CreatedAt.Format(time.RFC3339),
	})
}

// reservationError はドメインエラーをHTTPステータスに対応付ける
// 「完売」「一時的な障害」「処理済み」を呼び出し側が区別できるようにする
func reservationError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, reservation.ErrInvalidQuantity),
		errors.Is(err, reservation.ErrIdempotencyKeyRequired):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, event.ErrEventNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, reservation.ErrInsufficientSeats):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, reservation.ErrContention),
		errors.Is(err, reservation.ErrStoreUnavailable):
		c.Response().Header().Set("Retry-After", "1")
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
