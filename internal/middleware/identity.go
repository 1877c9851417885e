package middleware

// identity.go turns the claims stored by JWTAuth into a model.Caller.  The
// subject arrives as a JSON number when tokens are minted by
// utils.NewAccessToken and as a string when minted elsewhere; both forms
// are accepted.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// Caller returns the authenticated caller.  ok is false when the request
// carries no usable subject.
func Caller(c echo.Context) (model.Caller, bool) {
	id, ok := parseUserID(c.Get("user_id"))
	if !ok {
		return model.Caller{}, false
	}
	role, _ := c.Get("role").(string)
	return model.Caller{UserID: id, Role: role}, true
}

func parseUserID(v interface{}) (uint64, bool) {
	switch t := v.(type) {
	case float64:
		if t > 0 && t == float64(uint64(t)) {
			return uint64(t), true
		}
	case int64:
		if t > 0 {
			return uint64(t), true
		}
	case uint64:
		return t, t > 0
	case int:
		if t > 0 {
			return uint64(t), true
		}
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil && n > 0 {
			return n, true
		}
	}
	return 0, false
}

// userKey identifies the caller in rate-limit keys.
func userKey(c echo.Context) string {
	if id, ok := parseUserID(c.Get("user_id")); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
