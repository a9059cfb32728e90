package adminapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/glosspoint/glosspoint/internal/gateway"
	"github.com/glosspoint/glosspoint/internal/store"
	"github.com/glosspoint/glosspoint/internal/webserver"
)

type clientPayload struct {
	Name  string `json:"name" validate:"required,min=1,max=200"`
	Phone string `json:"phone" validate:"omitempty,max=50"`
	Email string `json:"email" validate:"omitempty,email,max=200"`
	Notes string `json:"notes" validate:"omitempty,max=2000"`
}

type clientUpdatePayload struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=200"`
	Phone *string `json:"phone" validate:"omitempty,max=50"`
	Email *string `json:"email" validate:"omitempty,email,max=200"`
	Notes *string `json:"notes" validate:"omitempty,max=2000"`
}

// registerClientRoutes registers client CRUD routes
func registerClientRoutes() {
	webserver.ApiGET("/studio/clients", listClients)
	webserver.ApiPOST("/studio/clients", createClient)
	webserver.ApiPUT("/studio/clients/:id", updateClient)
	webserver.ApiDELETE("/studio/clients/:id", deleteClient)
}

// listClients applies the query filters to the clients store, fetches the
// matching collection and returns one page of it.
func listClients(c echo.Context) error {
	page, pageSize := parsePagination(c)
	s := current.Clients()
	s.SetFilters(filterPatchFromQuery(c))

	rows, err := s.FetchAll(c.Request().Context())
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query clients", err.Error())
	}
	if len(rows) == 0 {
		// a concurrent fetch may have claimed the round trip; serve the mirror
		rows = s.Filtered()
	}
	if state := sortStateFromQuery(c); state.Direction != store.SortNone {
		rows = s.Sorted(state)
	}
	return paged(c, pageSlice(rows, page, pageSize), int64(len(rows)), page, pageSize)
}

func createClient(c echo.Context) error {
	var payload clientPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse client parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	row, err := current.Clients().Add(c.Request().Context(), store.ClientInput{
		Name:  payload.Name,
		Phone: payload.Phone,
		Email: payload.Email,
		Notes: payload.Notes,
	})
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create client", err.Error())
	}
	auditLog(c, "client.create", "created client "+row.Name)
	return ok(c, row)
}

func updateClient(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid client ID", nil)
	}
	var payload clientUpdatePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse client parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	row, err := current.Clients().Update(c.Request().Context(), id, store.ClientPatch{
		Name:  payload.Name,
		Phone: payload.Phone,
		Email: payload.Email,
		Notes: payload.Notes,
	})
	if errors.Is(err, gateway.ErrNotFound) {
		return fail(c, http.StatusNotFound, "CLIENT_NOT_FOUND", "Client not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update client", err.Error())
	}
	auditLog(c, "client.update", "updated client "+row.Name)
	return ok(c, row)
}

func deleteClient(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid client ID", nil)
	}
	if err := current.Clients().Delete(c.Request().Context(), id); errors.Is(err, gateway.ErrNotFound) {
		return fail(c, http.StatusNotFound, "CLIENT_NOT_FOUND", "Client not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete client", err.Error())
	}
	auditLog(c, "client.delete", "deleted client")
	return ok(c, echo.Map{"id": id})
}
