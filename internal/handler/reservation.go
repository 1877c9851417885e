package handler // handler implements the customer booking endpoints

import (
	"net/http" // HTTP status codes

	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/cinema-ticketing/internal/middleware" // caller identity from the JWT
	"github.com/iliyamo/cinema-ticketing/internal/model"      // ticket lines and payment outcomes
	"github.com/iliyamo/cinema-ticketing/internal/service"    // ReserveRequest / SettleRequest
)

// CreateReservation handles POST /v1/showtimes/:id/reservations.  The body
// lists seat_ids, the ticket composition and a payment method.  On success
// the pending booking and payment are returned with 201.  Seats already
// held or sold yield 409 with the unavailable seats.
func (h *Handler) CreateReservation(c echo.Context) error {
	who, ok := middleware.Caller(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	showtimeID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	var body struct {
		SeatIDs       []uint64           `json:"seat_ids"`       // seats of the showtime's room
		Tickets       []model.TicketLine `json:"tickets"`        // quantities must add up to len(seat_ids)
		PaymentMethod string             `json:"payment_method"` // see model.ValidPaymentMethod
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	res, err := h.svc.Reserve(c.Request().Context(), service.ReserveRequest{
		ShowtimeID:    showtimeID,
		UserID:        who.UserID,
		SeatIDs:       body.SeatIDs,
		Tickets:       body.Tickets,
		PaymentMethod: body.PaymentMethod,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// SettlePayment handles POST /v1/payments/:id/settle with body
// {"outcome": "completed"|"failed"|"refunded", "refund_reason": "..."}.
// Repeating a settlement returns 200 with changed=false.
func (h *Handler) SettlePayment(c echo.Context) error {
	who, ok := middleware.Caller(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	paymentID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payment id"})
	}
	var body struct {
		Outcome      string `json:"outcome"`       // completed, failed or refunded
		RefundReason string `json:"refund_reason"` // optional, stored on refunds
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	res, err := h.svc.Settle(c.Request().Context(), service.SettleRequest{
		PaymentID:    paymentID,
		Outcome:      body.Outcome,
		RefundReason: body.RefundReason,
		Caller:       who,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// ReleaseBooking handles POST /v1/bookings/:id/release.  Owners release
// their pending bookings; ?force=true (admin only) also releases confirmed
// bookings and refunds them.
func (h *Handler) ReleaseBooking(c echo.Context) error {
	who, ok := middleware.Caller(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	force, err := parseForce(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid force flag"})
	}
	res, err := h.svc.ReleaseHold(c.Request().Context(), bookingID, who, force)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// GetBooking handles GET /v1/bookings/:id for the owner or an admin.
func (h *Handler) GetBooking(c echo.Context) error {
	who, ok := middleware.Caller(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	b, err := h.svc.GetBooking(c.Request().Context(), id, who)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// GetPayment handles GET /v1/payments/:id for the owner or an admin.
func (h *Handler) GetPayment(c echo.Context) error {
	who, ok := middleware.Caller(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payment id"})
	}
	p, err := h.svc.GetPayment(c.Request().Context(), id, who)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}
