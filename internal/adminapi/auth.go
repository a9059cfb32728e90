package adminapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/glosspoint/glosspoint/internal/store"
	"github.com/glosspoint/glosspoint/internal/webserver"
)

type loginPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

func registerAuthRoutes() {
	webserver.PubPOST("/login", login)
	webserver.PubPOST("/logout", logout)
	webserver.ApiGET("/session", currentSession)
}

// login verifies credentials, opens the cookie session and returns a
// bearer token for API clients.
func login(c echo.Context) error {
	var payload loginPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse login parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	profile, err := current.Auth().SignIn(c.Request().Context(), payload.Email, payload.Password)
	if errors.Is(err, store.ErrInvalidCredentials) {
		return fail(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Sign-in failed", err.Error())
	}

	cfg := current.Config()
	token, err := webserver.IssueToken(profile, cfg.Web.Secret, cfg.Web.JwtExpire)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "TOKEN_ERROR", "Failed to issue token", err.Error())
	}
	if err := webserver.SaveSession(c, profile); err != nil {
		return fail(c, http.StatusInternalServerError, "SESSION_ERROR", "Failed to open session", err.Error())
	}

	auditLog(c, "login", "operator "+profile.Username+" signed in")
	return ok(c, echo.Map{"token": token, "profile": profile})
}

func logout(c echo.Context) error {
	current.Auth().SignOut()
	if err := webserver.ClearSession(c); err != nil {
		return fail(c, http.StatusInternalServerError, "SESSION_ERROR", "Failed to drop session", err.Error())
	}
	return ok(c, echo.Map{"signed_out": true})
}

// currentSession resumes the profile named by the verified token.
func currentSession(c echo.Context) error {
	claims, err := webserver.CurrentClaims(c)
	if err != nil {
		return err
	}
	profile, err := current.Auth().Load(c.Request().Context(), claims.UID)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "SESSION_EXPIRED", "Account no longer exists", nil)
	}
	return ok(c, profile)
}
