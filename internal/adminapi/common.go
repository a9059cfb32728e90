// Package adminapi exposes the studio management REST API.
package adminapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/glosspoint/glosspoint/internal/app"
	"github.com/glosspoint/glosspoint/internal/store"
	"github.com/glosspoint/glosspoint/internal/webserver"
)

var current app.AppContext

// Register wires every admin API route against the application context.
func Register(a app.AppContext) {
	current = a
	registerAuthRoutes()
	registerClientRoutes()
	registerCarRoutes()
	registerServiceRoutes()
	registerOrderRoutes()
	registerProfileRoutes()
	registerDashboardRoutes()
	registerExportRoutes()
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, echo.Map{"code": 0, "data": data})
}

func fail(c echo.Context, status int, code, message string, detail interface{}) error {
	return c.JSON(status, echo.Map{"code": code, "message": message, "detail": detail})
}

func paged(c echo.Context, items interface{}, total int64, page, pageSize int) error {
	return c.JSON(http.StatusOK, echo.Map{
		"code": 0,
		"data": echo.Map{
			"items":     items,
			"total":     total,
			"page":      page,
			"page_size": pageSize,
		},
	})
}

func parsePagination(c echo.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(c.QueryParam("page_size"))
	if pageSize < 1 || pageSize > 500 {
		pageSize = 50
	}
	return page, pageSize
}

func parseIDParam(c echo.Context, name string) (int64, error) {
	return strconv.ParseInt(c.Param(name), 10, 64)
}

func handleValidationError(c echo.Context, err error) error {
	if verrs, ok := err.(validator.ValidationErrors); ok {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Field())
		}
		return fail(c, http.StatusBadRequest, "VALIDATION_FAILED", "Invalid fields: "+strings.Join(fields, ", "), nil)
	}
	return fail(c, http.StatusBadRequest, "VALIDATION_FAILED", err.Error(), nil)
}

// filterPatchFromQuery maps the list query params onto a filter patch.
// Absent params leave the store's filter state untouched; an explicit empty
// value clears that field.
func filterPatchFromQuery(c echo.Context) store.FilterPatch {
	var p store.FilterPatch
	params := c.QueryParams()
	if vs, ok := params["q"]; ok && len(vs) > 0 {
		p.SearchTerm = &vs[0]
	}
	if vs, ok := params["date_from"]; ok && len(vs) > 0 {
		d := normalizeDate(vs[0])
		p.DateFrom = &d
	}
	if vs, ok := params["date_to"]; ok && len(vs) > 0 {
		d := normalizeDate(vs[0])
		p.DateTo = &d
	}
	if vs, ok := params["status"]; ok && len(vs) > 0 {
		p.Status = &vs[0]
	}
	return p
}

// normalizeDate accepts any common date spelling and yields YYYY-MM-DD.
// Empty input stays empty so it clears the filter field; unparseable input
// is passed through and the filter layer drops it.
func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	t, err := dateparse.ParseIn(s, time.Local)
	if err != nil {
		return s
	}
	return t.Format("2006-01-02")
}

func sortStateFromQuery(c echo.Context) store.SortState {
	col := strings.TrimSpace(c.QueryParam("sort_by"))
	if col == "" {
		return store.SortState{}
	}
	dir := store.SortAsc
	if strings.EqualFold(c.QueryParam("sort_dir"), "desc") {
		dir = store.SortDesc
	}
	return store.SortState{Column: col, Direction: dir}
}

// pageSlice cuts one page out of a fetched collection.
func pageSlice[T any](rows []T, page, pageSize int) []T {
	start := (page - 1) * pageSize
	if start >= len(rows) {
		return []T{}
	}
	end := start + pageSize
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}

func auditLog(c echo.Context, action, desc string) {
	name := "anonymous"
	if claims, err := webserver.CurrentClaims(c); err == nil {
		name = claims.Username
	}
	current.AddOprLog(name, c.RealIP(), action, desc)
}
