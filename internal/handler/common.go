package handler // handler defines http handlers

import (
	"context"  // for the Engine interface
	"errors"   // errors.Is / errors.As against model sentinels
	"net/http" // HTTP status codes
	"strconv"  // parsing path and query parameters

	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/cinema-ticketing/internal/model"   // domain types and sentinel errors
	"github.com/iliyamo/cinema-ticketing/internal/service" // request and result types of the engine
)

// Engine is the reservation engine as seen by the HTTP layer.
type Engine interface {
	Reserve(ctx context.Context, req service.ReserveRequest) (*service.ReserveResult, error)
	Settle(ctx context.Context, req service.SettleRequest) (*service.SettleResult, error)
	ReleaseHold(ctx context.Context, bookingID uint64, caller model.Caller, force bool) (*service.ReleaseResult, error)
	ReleaseSeats(ctx context.Context, showtimeID uint64, seatIDs []uint64, force bool) (*service.ReleaseResult, error)
	QueryAvailability(ctx context.Context, showtimeID uint64) ([]model.SeatAvailability, error)
	GetBooking(ctx context.Context, id uint64, caller model.Caller) (*model.Booking, error)
	GetPayment(ctx context.Context, id uint64, caller model.Caller) (*model.Payment, error)
	DeleteBooking(ctx context.Context, bookingID uint64, force bool) (*service.ReleaseResult, error)
	DeleteShowtime(ctx context.Context, showtimeID uint64, force bool) (*service.ReleaseResult, error)
	DeleteRoom(ctx context.Context, roomID uint64, force bool) (*service.ReleaseResult, error)
	DeleteSeats(ctx context.Context, seatIDs []uint64, force bool) (*service.ReleaseResult, error)
}

// Handler exposes the engine over HTTP.  Authentication and role checks
// are done by middleware; ownership checks are done by the engine.
type Handler struct {
	svc Engine // reservation engine, *service.Service in production
}

// New constructs a Handler and panics if svc is nil.
func New(svc Engine) *Handler {
	if svc == nil {
		panic("nil engine passed to handler.New")
	}
	return &Handler{svc: svc}
}

// seatIDsBody is the request body of the seat-list endpoints.
type seatIDsBody struct {
	SeatIDs []uint64 `json:"seat_ids"` // seats to release or delete
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// parseForce reads the optional ?force= flag.
func parseForce(c echo.Context) (bool, error) {
	v := c.QueryParam("force")
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}

// writeError maps engine errors to HTTP responses.  Seat conflicts list
// the unavailable seats by id and label.
func writeError(c echo.Context, err error) error {
	var sc *model.SeatConflictError
	switch {
	case errors.As(err, &sc):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":              sc.Error(),
			"unavailable":        sc.SeatIDs(),
			"unavailable_labels": sc.Labels(),
		})
	case errors.Is(err, model.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, model.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, model.ErrInvalidStatus):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, model.ErrInvalidInput):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	case errors.Is(err, model.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
}
