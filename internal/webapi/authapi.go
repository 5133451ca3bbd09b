package webapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mgcaisse/caisse/internal/auth"
)

type loginPayload struct {
	Email  string `json:"email" form:"email"`
	Serial string `json:"serial" form:"serial"`
}

// handleLogin signs an operator in. When the register believes it is online
// the remote identity service is tried first; the authenticator falls back
// to the local table on transport failure either way.
func (s *Server) handleLogin(c echo.Context) error {
	var payload loginPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "unable to parse credentials")
	}
	if payload.Email == "" || payload.Serial == "" {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "email and serial are required")
	}

	ctx := c.Request().Context()
	var (
		result *auth.Result
		err    error
	)
	if s.monitor.IsOnline() {
		result, err = s.authn.AuthenticateOnline(ctx, payload.Email, payload.Serial)
	} else {
		result, err = s.authn.AuthenticateLocal(ctx, payload.Email, payload.Serial)
	}
	if err != nil {
		return failErr(c, err)
	}

	user := result.User
	s.state.SetUser(&user)
	return ok(c, result)
}

func (s *Server) handleLogout(c echo.Context) error {
	if err := s.authn.Logout(); err != nil {
		return failErr(c, err)
	}
	s.state.Reset()
	return ok(c, nil)
}

// handleSession reports the lazily validated session state.
func (s *Server) handleSession(c echo.Context) error {
	claims := s.authn.Validate()
	if claims == nil {
		return ok(c, map[string]interface{}{"active": false})
	}
	return ok(c, map[string]interface{}{
		"active": true,
		"uid":    claims.UserID,
		"email":  claims.Email,
	})
}
