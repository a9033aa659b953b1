package validation

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// HTTPError translates a domain error into an echo error response. Violations become 422
// with a field-keyed body, blocked operations 409, anything else 500.
func HTTPError(err error) error {
	if err == nil {
		return nil
	}
	if IsSystem(err) {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
	}
	errs, ok := AsErrors(err)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
	}
	if errors.Is(err, ErrBlocked) {
		return echo.NewHTTPError(http.StatusConflict, map[string]interface{}{
			"error":  "operation blocked",
			"fields": errs.Fields(),
		})
	}
	return echo.NewHTTPError(http.StatusUnprocessableEntity, map[string]interface{}{
		"error":  "validation failed",
		"fields": errs.Fields(),
	})
}
