package handler

// ADMIN cleanup endpoints.  Every endpoint accepts ?force=true to include
// sold seats; without it a sold seat makes the whole request fail with 409
// and nothing is changed.

import (
	"context"  // engine calls take the request context
	"net/http" // HTTP status codes

	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/cinema-ticketing/internal/service" // ReleaseResult
)

// ReleaseShowtimeSeats handles DELETE /v1/showtimes/:id/holds with body
// {"seat_ids": [...]}.  Bookings owning any of the seats are cancelled as a
// whole.
func (h *Handler) ReleaseShowtimeSeats(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	force, err := parseForce(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid force flag"})
	}
	var body seatIDsBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	res, err := h.svc.ReleaseSeats(c.Request().Context(), id, body.SeatIDs, force)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// DeleteBooking handles DELETE /v1/admin/bookings/:id.
func (h *Handler) DeleteBooking(c echo.Context) error {
	return h.deleteByID(c, "booking", h.svc.DeleteBooking)
}

// DeleteShowtime handles DELETE /v1/admin/showtimes/:id.
func (h *Handler) DeleteShowtime(c echo.Context) error {
	return h.deleteByID(c, "showtime", h.svc.DeleteShowtime)
}

// DeleteRoom handles DELETE /v1/admin/rooms/:id.  Every showtime of the
// room is deleted first under the showtime rule.
func (h *Handler) DeleteRoom(c echo.Context) error {
	return h.deleteByID(c, "room", h.svc.DeleteRoom)
}

// DeleteSeats handles DELETE /v1/admin/seats with body {"seat_ids": [...]}.
func (h *Handler) DeleteSeats(c echo.Context) error {
	force, err := parseForce(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid force flag"})
	}
	var body seatIDsBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	res, err := h.svc.DeleteSeats(c.Request().Context(), body.SeatIDs, force)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

type deleteFunc func(ctx context.Context, id uint64, force bool) (*service.ReleaseResult, error)

func (h *Handler) deleteByID(c echo.Context, kind string, del deleteFunc) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid " + kind + " id"})
	}
	force, err := parseForce(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid force flag"})
	}
	res, err := del(c.Request().Context(), id, force)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
