package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const requestIDContextKey = "request_id"

// RequestIDHeader is the header RequestID() reads an inbound id from and
// echoes the assigned id back on.
const RequestIDHeader = "X-Request-ID"

// RequestID assigns a fresh request id (or reuses one a caller supplied via
// the X-Request-ID header), stores it in the echo.Context for downstream
// middleware and handlers, and echoes it back on the response.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Request().Header.Get(RequestIDHeader)
			if rid == "" {
				rid = uuid.NewString()
			}
			c.Set(requestIDContextKey, rid)
			c.Response().Header().Set(RequestIDHeader, rid)
			return next(c)
		}
	}
}

func requestIDFrom(c echo.Context) string {
	rid, _ := c.Get(requestIDContextKey).(string)
	return rid
}
