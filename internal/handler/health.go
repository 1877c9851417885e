package handler // handler exposes the liveness probe

import (
	"context"  // ping timeout
	"net/http" // HTTP status codes
	"time"     // timeout duration

	"github.com/labstack/echo/v4" // Echo web framework
)

// Pinger reports whether a backing store is reachable.  *sql.DB satisfies
// it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Health returns a health-check endpoint used by load balancers and
// monitoring systems.  It answers 200 "ok" when db responds to a ping
// within two seconds and 503 otherwise.  A nil db only reports liveness.
func Health(db Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if db == nil {
			return c.String(http.StatusOK, "ok")
		}
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			c.Logger().Warnf("health: database ping failed: %v", err)
			return c.String(http.StatusServiceUnavailable, "database unavailable")
		}
		return c.String(http.StatusOK, "ok")
	}
}
