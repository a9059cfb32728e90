package adminapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/glosspoint/glosspoint/internal/store"
	"github.com/glosspoint/glosspoint/internal/webserver"
)

type profilePayload struct {
	Username string `json:"username" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email,max=200"`
	Password string `json:"password" validate:"required,min=6,max=100"`
	Role     string `json:"role" validate:"omitempty,oneof=user admin"`
}

type rolePayload struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

// registerProfileRoutes registers account management routes; every route is
// admin-gated.
func registerProfileRoutes() {
	webserver.ApiGET("/system/profiles", listProfiles, webserver.RequireAdmin)
	webserver.ApiPOST("/system/profiles", createProfile, webserver.RequireAdmin)
	webserver.ApiPUT("/system/profiles/:id/role", updateProfileRole, webserver.RequireAdmin)
}

func listProfiles(c echo.Context) error {
	page, pageSize := parsePagination(c)
	rows, err := current.Auth().FetchAllProfiles(c.Request().Context())
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query profiles", err.Error())
	}
	if len(rows) == 0 {
		rows = current.Auth().Profiles()
	}
	return paged(c, pageSlice(rows, page, pageSize), int64(len(rows)), page, pageSize)
}

func createProfile(c echo.Context) error {
	var payload profilePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse profile parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	row, err := current.Auth().CreateProfile(c.Request().Context(), store.ProfileInput{
		Username: payload.Username,
		Email:    payload.Email,
		Password: payload.Password,
		Role:     payload.Role,
	})
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create profile", err.Error())
	}
	auditLog(c, "profile.create", "created account "+row.Username)
	return ok(c, row)
}

// updateProfileRole switches an account between user and admin. The acting
// operator cannot change their own role; the store enforces it against the
// live session and the handler re-checks against the token identity.
func updateProfileRole(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid profile ID", nil)
	}
	claims, err := webserver.CurrentClaims(c)
	if err != nil {
		return err
	}
	if claims.UID == id {
		return fail(c, http.StatusForbidden, "OWN_ROLE", "You cannot change your own role", nil)
	}

	var payload rolePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse role parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	row, err := current.Auth().UpdateRole(c.Request().Context(), id, payload.Role)
	if errors.Is(err, store.ErrOwnRole) {
		return fail(c, http.StatusForbidden, "OWN_ROLE", "You cannot change your own role", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update role", err.Error())
	}
	auditLog(c, "profile.role", "changed role of "+row.Username+" to "+row.Role)
	return ok(c, row)
}
