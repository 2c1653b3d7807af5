package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-seat-inventory/internal/application"
	"github.com/sanosuguru/go-seat-inventory/internal/domain/event"
)

type EventHandler struct {
	eventService EventServiceInterface
}

func NewEventHandler(eventService EventServiceInterface) *EventHandler {
	return &EventHandler{eventService: eventService}
}

type CreateEventRequest struct {
	Title       string `json:"title" validate:"required" example:"The Cosmic Symphony"`
	ScheduledAt string `json:"scheduled_at" validate:"required" example:"2025-10-28T20:00:00+09:00"`
	TotalSeats  int    `json:"total_seats" validate:"required,gt=0" example:"150"`
	Price       int    `json:"price" validate:"gte=0" example:"5500"`
}

type EventResponse struct {
	ID             string `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Title          string `json:"title" example:"The Cosmic Symphony"`
	ScheduledAt    string `json:"scheduled_at" example:"2025-10-28T20:00:00+09:00"`
	TotalSeats     int    `json:"total_seats" example:"150"`
	RemainingSeats int    `json:"remaining_seats" example:"148"`
	Price          int    `json:"price" example:"5500"`
	CreatedAt      string `json:"created_at" example:"2025-09-01T10:00:00+09:00"`
	UpdatedAt      string `json:"updated_at" example:"2025-09-01T10:00:00+09:00"`
}

func toEventResponse(e *event.Event) *EventResponse {
	return &EventResponse{
		ID:             e.ID,
		Title:          e.Title,
		ScheduledAt:    e.ScheduledAt.Format(time.RFC3339),
		TotalSeats:     e.TotalSeats,
		RemainingSeats: e.RemainingSeats,
		Price:          e.Price,
		CreatedAt:      e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      e.UpdatedAt.Format(time.RFC3339),
	}
}

// Create godoc
// @Summary イベントを作成
// @Description 新しいイベントをカタログに登録します
// @Tags events
// @Accept json
// @Produce json
// @Param request body CreateEventRequest true "イベント情報"
// @Success 201 {object} EventResponse
// @Failure 400 {object} map[string]string
// @Router /events [post]
func (h *EventHandler) Create(c echo.Context) error {
	var req CreateEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "リクエストの形式が不正です")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "開催日時の形式が不正です")
	}

	e, err := h.eventService.CreateEvent(c.Request().Context(), application.CreateEventInput{
		Title:       req.Title,
		ScheduledAt: scheduledAt,
		TotalSeats:  req.TotalSeats,
		Price:       req.Price,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return c.JSON(http.StatusCreated, toEventResponse(e))
}

// GetByID godoc
// @Summary イベントを取得
// @Description 指定IDのイベントを取得します
// @Tags events
// @Produce json
// @Param id path string true "イベントID"
// @Success 200 {object} EventResponse
// @Failure 404 {object} map[string]string
// @Router /events/{id} [get]
func (h *EventHandler) GetByID(c echo.Context) error {
	id := c.Param("id")
	e, err := h.eventService.GetEvent(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, event.ErrEventNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "イベントが見つかりません")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, toEventResponse(e))
}

// List godoc
// @Summary イベント一覧を取得
// @Description イベントの一覧を開催日時の昇順で取得します
// @Tags events
// @Produce json
// @Param limit query int false "取得件数" default(20)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} EventResponse
// @Router /events [get]
func (h *EventHandler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	events, err := h.eventService.ListEvents(c.Request().Context(), limit, offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	responses := make([]*EventResponse, len(events))
	for i, e := range events {
		responses[i] = toEventResponse(e)
	}
	return c.JSON(http.StatusOK, responses)
}

// GetRemaining godoc
// @Summary 残席数を取得
// @Description 指定イベントの現在の残席数を取得します（キャッシュあり）
// @Tags events
// @Produce json
// @Param id path string true "イベントID"
// @Success 200 {object} map[string]int
// @Failure 404 {object} map[string]string
// @Router /events/{id}/remaining [get]
func (h *EventHandler) GetRemaining(c echo.Context) error {
	id := c.Param("id")
	remaining, err := h.eventService.GetRemainingSeats(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, event.ErrEventNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "イベントが見つかりません")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]int{"remaining_seats": remaining})
}
