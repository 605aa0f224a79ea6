package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// currentUserID extracts the user identifier stored in context by JWTAuth
// for use in rate-limit keys.  The "sub" claim of a parsed JWT arrives as
// a float64, so numeric values are normalized to their decimal string.
// Unauthenticated requests map to "anon" so they share one bucket per IP
// instead of dodging the limiter.
func currentUserID(c echo.Context) string {
	switch v := c.Get("user_id").(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	}
	return "anon"
}
