package adminapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/gocarina/gocsv"
	"github.com/labstack/echo/v4"

	"github.com/glosspoint/glosspoint/internal/webserver"
)

// orderExportRow flattens an order for the spreadsheet exports.
type orderExportRow struct {
	ID        string  `csv:"id"`
	Client    string  `csv:"client"`
	Phone     string  `csv:"phone"`
	Services  string  `csv:"services"`
	Total     float64 `csv:"total"`
	Status    string  `csv:"status"`
	Notes     string  `csv:"notes"`
	CreatedAt string  `csv:"created_at"`
}

// registerExportRoutes registers the order export endpoints
func registerExportRoutes() {
	webserver.ApiGET("/studio/orders/export/csv", exportOrdersCSV)
	webserver.ApiGET("/studio/orders/export/xlsx", exportOrdersXLSX)
}

func exportRows(c echo.Context) ([]orderExportRow, error) {
	s := current.Orders()
	s.SetFilters(filterPatchFromQuery(c))
	orders, err := s.FetchAll(c.Request().Context())
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		orders = s.Filtered()
	}

	rows := make([]orderExportRow, 0, len(orders))
	for _, o := range orders {
		names := make([]string, 0, len(o.Services))
		for _, snap := range o.Services {
			names = append(names, snap.Name)
		}
		rows = append(rows, orderExportRow{
			ID:        fmt.Sprintf("%d", o.ID),
			Client:    o.ClientName,
			Phone:     o.Client.Phone,
			Services:  strings.Join(names, "; "),
			Total:     o.Total(),
			Status:    string(o.Status),
			Notes:     o.Notes,
			CreatedAt: o.CreatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	return rows, nil
}

func exportFilename(ext string) string {
	return fmt.Sprintf("glosspoint-orders-%s.%s", time.Now().Format("20060102-150405"), ext)
}

func exportOrdersCSV(c echo.Context) error {
	rows, err := exportRows(c)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query orders", err.Error())
	}

	c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+exportFilename("csv")+`"`)
	c.Response().WriteHeader(http.StatusOK)
	auditLog(c, "order.export", fmt.Sprintf("exported %d orders as csv", len(rows)))
	return gocsv.Marshal(&rows, c.Response())
}

var xlsxHeader = []string{"ID", "Klient", "Telefon", "Usługi", "Suma", "Status", "Notatki", "Utworzono"}

func exportOrdersXLSX(c echo.Context) error {
	rows, err := exportRows(c)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query orders", err.Error())
	}

	f := excelize.NewFile()
	sheet := "Sheet1"
	for i, title := range xlsxHeader {
		f.SetCellValue(sheet, fmt.Sprintf("%s1", excelize.ToAlphaString(i)), title)
	}
	for r, row := range rows {
		line := r + 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", line), row.ID)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", line), row.Client)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", line), row.Phone)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", line), row.Services)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", line), row.Total)
		f.SetCellValue(sheet, fmt.Sprintf("F%d", line), row.Status)
		f.SetCellValue(sheet, fmt.Sprintf("G%d", line), row.Notes)
		f.SetCellValue(sheet, fmt.Sprintf("H%d", line), row.CreatedAt)
	}

	c.Response().Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+exportFilename("xlsx")+`"`)
	c.Response().WriteHeader(http.StatusOK)
	auditLog(c, "order.export", fmt.Sprintf("exported %d orders as xlsx", len(rows)))
	return f.Write(c.Response())
}
