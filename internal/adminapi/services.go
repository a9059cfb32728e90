package adminapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/glosspoint/glosspoint/internal/gateway"
	"github.com/glosspoint/glosspoint/internal/store"
	"github.com/glosspoint/glosspoint/internal/webserver"
)

type servicePayload struct {
	Name  string  `json:"name" validate:"required,min=1,max=200"`
	Price float64 `json:"price" validate:"required,gte=0"`
}

type serviceUpdatePayload struct {
	Name  *string  `json:"name" validate:"omitempty,min=1,max=200"`
	Price *float64 `json:"price" validate:"omitempty,gte=0"`
}

// registerServiceRoutes registers service catalog CRUD routes
func registerServiceRoutes() {
	webserver.ApiGET("/studio/services", listServices)
	webserver.ApiPOST("/studio/services", createService)
	webserver.ApiPUT("/studio/services/:id", updateService)
	webserver.ApiDELETE("/studio/services/:id", deleteService)
}

func listServices(c echo.Context) error {
	page, pageSize := parsePagination(c)
	s := current.Services()
	s.SetFilters(filterPatchFromQuery(c))

	rows, err := s.FetchAll(c.Request().Context())
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query services", err.Error())
	}
	if len(rows) == 0 {
		rows = s.Filtered()
	}
	if state := sortStateFromQuery(c); state.Direction != store.SortNone {
		rows = s.Sorted(state)
	}
	return paged(c, pageSlice(rows, page, pageSize), int64(len(rows)), page, pageSize)
}

func createService(c echo.Context) error {
	var payload servicePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse service parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	row, err := current.Services().Add(c.Request().Context(), store.ServiceInput{
		Name:  payload.Name,
		Price: payload.Price,
	})
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create service", err.Error())
	}
	auditLog(c, "service.create", "created service "+row.Name)
	return ok(c, row)
}

func updateService(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid service ID", nil)
	}
	var payload serviceUpdatePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse service parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	row, err := current.Services().Update(c.Request().Context(), id, store.ServicePatch{
		Name:  payload.Name,
		Price: payload.Price,
	})
	if errors.Is(err, gateway.ErrNotFound) {
		return fail(c, http.StatusNotFound, "SERVICE_NOT_FOUND", "Service not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update service", err.Error())
	}
	auditLog(c, "service.update", "updated service "+row.Name)
	return ok(c, row)
}

func deleteService(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid service ID", nil)
	}
	if err := current.Services().Delete(c.Request().Context(), id); errors.Is(err, gateway.ErrNotFound) {
		return fail(c, http.StatusNotFound, "SERVICE_NOT_FOUND", "Service not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete service", err.Error())
	}
	auditLog(c, "service.delete", "deleted service")
	return ok(c, echo.Map{"id": id})
}
