package webapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mgcaisse/caisse/internal/auth"
	"github.com/mgcaisse/caisse/internal/pos"
	"github.com/mgcaisse/caisse/internal/store"
)

// RestResult is the uniform envelope returned to the UI layer. Every core
// operation resolves to a success value or a structured failure with a
// human-readable message; display is the UI's business.
type RestResult struct {
	Code string      `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data,omitempty"`
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, RestResult{Code: "OK", Msg: "success", Data: data})
}

func fail(c echo.Context, status int, code, msg string) error {
	return c.JSON(status, RestResult{Code: code, Msg: msg})
}

// failErr maps a core error to the HTTP surface using the failure taxonomy.
func failErr(c echo.Context, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fail(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, store.ErrConstraintViolation):
		return fail(c, http.StatusBadRequest, "CONSTRAINT_VIOLATION", err.Error())
	case errors.Is(err, store.ErrStorageUnavailable):
		return fail(c, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		return fail(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", err.Error())
	case errors.Is(err, pos.ErrInsufficientStock),
		errors.Is(err, pos.ErrEmptyCart),
		errors.Is(err, pos.ErrInvalidPayment):
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
	case errors.Is(err, pos.ErrNoSession):
		return fail(c, http.StatusUnauthorized, "NO_SESSION", err.Error())
	}
	return fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
}
