package handler // handler serves the public seat map

import (
	"net/http" // HTTP status codes

	"github.com/labstack/echo/v4" // Echo web framework
)

// ShowtimeSeats handles GET /v1/showtimes/:id/seats.  It is public and
// returns every seat of the showtime's room with its status for that
// showtime.  Transient store failures yield an empty list, not an error.
func (h *Handler) ShowtimeSeats(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	seats, err := h.svc.QueryAvailability(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"showtime_id": id, "seats": seats})
}
