package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/handler"
	"github.com/iliyamo/cinema-ticketing/internal/middleware"
	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// Options carries the pieces of the route table that come from main.
type Options struct {
	JWTSecret string
	// RateLimit wraps mutating customer routes.  Nil means no limit.
	RateLimit echo.MiddlewareFunc
}

// RegisterRoutes registers unauthenticated routes: the health check and
// the public availability view.
func RegisterRoutes(e *echo.Echo, h *handler.Handler, health echo.HandlerFunc) {
	e.GET("/healthz", health)
	e.GET("/v1/showtimes/:id/seats", h.ShowtimeSeats)
}

// RegisterBooking registers the authenticated reservation and payment
// routes.  Customers and admins may call them; ownership is checked by the
// engine.
func RegisterBooking(e *echo.Echo, h *handler.Handler, opts Options) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(opts.JWTSecret))
	g.Use(middleware.RequireRole(model.RoleCustomer, model.RoleAdmin))

	limited := []echo.MiddlewareFunc{}
	if opts.RateLimit != nil {
		limited = append(limited, opts.RateLimit)
	}
	g.POST("/showtimes/:id/reservations", h.CreateReservation, limited...)
	g.POST("/payments/:id/settle", h.SettlePayment, limited...)
	g.POST("/bookings/:id/release", h.ReleaseBooking, limited...)
	g.GET("/bookings/:id", h.GetBooking)
	g.GET("/payments/:id", h.GetPayment)
}

// RegisterAdmin registers the ADMIN-only cleanup routes.
func RegisterAdmin(e *echo.Echo, h *handler.Handler, opts Options) {
	auth := []echo.MiddlewareFunc{middleware.JWTAuth(opts.JWTSecret), middleware.RequireRole(model.RoleAdmin)}

	e.DELETE("/v1/showtimes/:id/holds", h.ReleaseShowtimeSeats, auth...)

	g := e.Group("/v1/admin", auth...)
	g.DELETE("/bookings/:id", h.DeleteBooking)
	g.DELETE("/showtimes/:id", h.DeleteShowtime)
	g.DELETE("/rooms/:id", h.DeleteRoom)
	g.DELETE("/seats", h.DeleteSeats)
}
