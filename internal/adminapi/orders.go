package adminapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/glosspoint/glosspoint/internal/domain"
	"github.com/glosspoint/glosspoint/internal/gateway"
	"github.com/glosspoint/glosspoint/internal/store"
	"github.com/glosspoint/glosspoint/internal/webserver"
)

type orderPayload struct {
	ClientID   int64   `json:"client_id,string" validate:"required"`
	CarID      int64   `json:"car_id,string" validate:"omitempty"`
	ServiceIDs []int64 `json:"service_ids" validate:"required,min=1"`
	Status     string  `json:"status" validate:"omitempty"`
	Notes      string  `json:"notes" validate:"omitempty,max=2000"`
}

type orderUpdatePayload struct {
	CarID      *int64   `json:"car_id,string" validate:"omitempty"`
	ServiceIDs *[]int64 `json:"service_ids" validate:"omitempty,min=1"`
	Status     *string  `json:"status" validate:"omitempty"`
	Notes      *string  `json:"notes" validate:"omitempty,max=2000"`
}

// registerOrderRoutes registers order CRUD routes
func registerOrderRoutes() {
	webserver.ApiGET("/studio/orders", listOrders)
	webserver.ApiGET("/studio/orders/statuses", listOrderStatuses)
	webserver.ApiPOST("/studio/orders", createOrder)
	webserver.ApiPUT("/studio/orders/:id", updateOrder)
	webserver.ApiDELETE("/studio/orders/:id", deleteOrder)
}

func listOrders(c echo.Context) error {
	page, pageSize := parsePagination(c)
	s := current.Orders()
	s.SetFilters(filterPatchFromQuery(c))

	rows, err := s.FetchAll(c.Request().Context())
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query orders", err.Error())
	}
	if len(rows) == 0 {
		rows = s.Filtered()
	}
	if state := sortStateFromQuery(c); state.Direction != store.SortNone {
		rows = s.Sorted(state)
	}
	return paged(c, pageSlice(rows, page, pageSize), int64(len(rows)), page, pageSize)
}

// listOrderStatuses returns the fixed status sequence for pickers.
func listOrderStatuses(c echo.Context) error {
	return ok(c, domain.StatusOptions)
}

func createOrder(c echo.Context) error {
	var payload orderPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse order parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	row, err := current.Orders().Add(c.Request().Context(), store.OrderInput{
		ClientID:   payload.ClientID,
		CarID:      payload.CarID,
		ServiceIDs: payload.ServiceIDs,
		Status:     domain.OrderStatus(payload.Status),
		Notes:      payload.Notes,
	})
	if errors.Is(err, store.ErrUnknownStatus) {
		return fail(c, http.StatusBadRequest, "UNKNOWN_STATUS", "Unknown order status", payload.Status)
	} else if errors.Is(err, gateway.ErrNotFound) {
		return fail(c, http.StatusBadRequest, "INVALID_REFERENCE", "Referenced client or service does not exist", err.Error())
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create order", err.Error())
	}
	auditLog(c, "order.create", "created order for "+row.ClientName)
	return ok(c, row)
}

func updateOrder(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID", nil)
	}
	var payload orderUpdatePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse order parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	patch := store.OrderPatch{
		CarID:      payload.CarID,
		ServiceIDs: payload.ServiceIDs,
		Notes:      payload.Notes,
	}
	if payload.Status != nil {
		st := domain.OrderStatus(*payload.Status)
		patch.Status = &st
	}

	row, err := current.Orders().Update(c.Request().Context(), id, patch)
	if errors.Is(err, store.ErrUnknownStatus) {
		return fail(c, http.StatusBadRequest, "UNKNOWN_STATUS", "Unknown order status", payload.Status)
	} else if errors.Is(err, gateway.ErrNotFound) {
		return fail(c, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update order", err.Error())
	}
	auditLog(c, "order.update", "updated order for "+row.ClientName)
	return ok(c, row)
}

func deleteOrder(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID", nil)
	}
	if err := current.Orders().Delete(c.Request().Context(), id); errors.Is(err, gateway.ErrNotFound) {
		return fail(c, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete order", err.Error())
	}
	auditLog(c, "order.delete", "deleted order")
	return ok(c, echo.Map{"id": id})
}
