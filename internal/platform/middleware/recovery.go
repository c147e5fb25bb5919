// Package middleware holds the small set of cross-cutting echo.MiddlewareFunc
// the HTTP boundary wires ahead of every route: panic recovery, request-id
// tagging, structured request logging, and, when enabled, HS256 bearer-token
// verification (Auth). Break-glass and AccessPolicy enforcement are not
// implemented here.
package middleware

import (
	"fmt"
	"net/http"
	"runtime"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Recovery converts a panic inside the handler chain into a 500
// *echo.HTTPError ("internal server error") instead of crashing the
// process, logging the stack trace first.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					var stack [4096]byte
					n := runtime.Stack(stack[:], false)

					logger.Error().
						Str("request_id", requestIDFrom(c)).
						Str("panic", fmt.Sprintf("%v", r)).
						Str("stack", string(stack[:n])).
						Msg("panic recovered")

					err = echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
				}
			}()
			return next(c)
		}
	}
}
