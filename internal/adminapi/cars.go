package adminapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/glosspoint/glosspoint/internal/gateway"
	"github.com/glosspoint/glosspoint/internal/store"
	"github.com/glosspoint/glosspoint/internal/webserver"
)

type carPayload struct {
	ClientID     int64  `json:"client_id,string" validate:"required"`
	Make         string `json:"make" validate:"required,min=1,max=100"`
	Model        string `json:"model" validate:"required,min=1,max=100"`
	LicensePlate string `json:"license_plate" validate:"omitempty,max=20"`
	Color        string `json:"color" validate:"omitempty,max=50"`
	Year         int    `json:"year" validate:"omitempty,min=1900,max=2100"`
	Notes        string `json:"notes" validate:"omitempty,max=2000"`
}

type carUpdatePayload struct {
	Make         *string `json:"make" validate:"omitempty,min=1,max=100"`
	Model        *string `json:"model" validate:"omitempty,min=1,max=100"`
	LicensePlate *string `json:"license_plate" validate:"omitempty,max=20"`
	Color        *string `json:"color" validate:"omitempty,max=50"`
	Year         *int    `json:"year" validate:"omitempty,min=1900,max=2100"`
	Notes        *string `json:"notes" validate:"omitempty,max=2000"`
}

// registerCarRoutes registers car CRUD routes
func registerCarRoutes() {
	webserver.ApiGET("/studio/cars", listCars)
	webserver.ApiPOST("/studio/cars", createCar)
	webserver.ApiPUT("/studio/cars/:id", updateCar)
	webserver.ApiDELETE("/studio/cars/:id", deleteCar)
}

func listCars(c echo.Context) error {
	page, pageSize := parsePagination(c)
	s := current.Cars()
	s.SetFilters(filterPatchFromQuery(c))

	rows, err := s.FetchAll(c.Request().Context())
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query cars", err.Error())
	}
	if len(rows) == 0 {
		rows = s.Filtered()
	}
	return paged(c, pageSlice(rows, page, pageSize), int64(len(rows)), page, pageSize)
}

func createCar(c echo.Context) error {
	var payload carPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse car parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	row, err := current.Cars().Add(c.Request().Context(), payload.ClientID, store.CarInput{
		Make:         payload.Make,
		Model:        payload.Model,
		LicensePlate: payload.LicensePlate,
		Color:        payload.Color,
		Year:         payload.Year,
		Notes:        payload.Notes,
	})
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create car", err.Error())
	}
	auditLog(c, "car.create", "created car "+row.Make+" "+row.Model)
	return ok(c, row)
}

func updateCar(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid car ID", nil)
	}
	var payload carUpdatePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse car parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	row, err := current.Cars().Update(c.Request().Context(), id, store.CarPatch{
		Make:         payload.Make,
		Model:        payload.Model,
		LicensePlate: payload.LicensePlate,
		Color:        payload.Color,
		Year:         payload.Year,
		Notes:        payload.Notes,
	})
	if errors.Is(err, gateway.ErrNotFound) {
		return fail(c, http.StatusNotFound, "CAR_NOT_FOUND", "Car not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update car", err.Error())
	}
	auditLog(c, "car.update", "updated car "+row.Make+" "+row.Model)
	return ok(c, row)
}

func deleteCar(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid car ID", nil)
	}
	if err := current.Cars().Delete(c.Request().Context(), id); errors.Is(err, gateway.ErrNotFound) {
		return fail(c, http.StatusNotFound, "CAR_NOT_FOUND", "Car not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete car", err.Error())
	}
	auditLog(c, "car.delete", "deleted car")
	return ok(c, echo.Map{"id": id})
}
