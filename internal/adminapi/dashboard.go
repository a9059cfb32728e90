package adminapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"github.com/glosspoint/glosspoint/internal/domain"
	"github.com/glosspoint/glosspoint/internal/reports"
	"github.com/glosspoint/glosspoint/internal/webserver"
	"github.com/glosspoint/glosspoint/pkg/metrics"
)

// registerDashboardRoutes registers the summary endpoints
func registerDashboardRoutes() {
	webserver.ApiGET("/dashboard/summary", dashboardSummary)
	webserver.ApiGET("/dashboard/revenue", dashboardRevenue)
	webserver.ApiGET("/dashboard/metrics/:name", dashboardMetrics)
}

// dashboardSummary fetches every collection in parallel and condenses the
// headline numbers for the landing page.
func dashboardSummary(c echo.Context) error {
	ctx := c.Request().Context()
	var (
		clients  []domain.Client
		cars     []domain.Car
		services []domain.Service
		orders   []domain.Order
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { clients, err = current.Clients().FetchAll(gctx); return })
	g.Go(func() (err error) { cars, err = current.Cars().FetchAll(gctx); return })
	g.Go(func() (err error) { services, err = current.Services().FetchAll(gctx); return })
	g.Go(func() (err error) { orders, err = current.Orders().FetchAll(gctx); return })
	if err := g.Wait(); err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query summary", err.Error())
	}

	// a parallel fetch may have been claimed elsewhere; fall back to mirrors
	if len(clients) == 0 {
		clients = current.Clients().Snapshot()
	}
	if len(cars) == 0 {
		cars = current.Cars().Snapshot()
	}
	if len(services) == 0 {
		services = current.Services().Snapshot()
	}
	if len(orders) == 0 {
		orders = current.Orders().Snapshot()
	}

	summary := reports.Summarize(orders)
	return ok(c, echo.Map{
		"clients":        len(clients),
		"cars":           len(cars),
		"services":       len(services),
		"orders":         summary.Orders,
		"cancelled":      summary.Cancelled,
		"revenue":        summary.Revenue,
		"mean_value":     summary.MeanValue,
		"median_value":   summary.MedianValue,
		"status_counts":  reports.StatusCounts(orders),
		"status_options": domain.StatusOptions,
	})
}

// dashboardRevenue returns the revenue series grouped by day or month.
func dashboardRevenue(c echo.Context) error {
	orders, err := current.Orders().FetchAll(c.Request().Context())
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query orders", err.Error())
	}
	if len(orders) == 0 {
		orders = current.Orders().Snapshot()
	}

	var rows []reports.RevenueRow
	if c.QueryParam("group") == "month" {
		rows = reports.RevenueByMonth(orders)
	} else {
		rows = reports.RevenueByDay(orders)
	}
	return ok(c, rows)
}

// dashboardMetrics serves the last 24h of one operational metric.
func dashboardMetrics(c echo.Context) error {
	name := c.Param("name")
	end := time.Now().Unix()
	start := end - 24*3600
	return ok(c, metrics.Select(name, start, end))
}
