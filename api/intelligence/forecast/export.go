package forecast

import (
	"database/sql"
	"fmt"
	"net/http"
	"strconv"

	"github.com/xuri/excelize/v2"

	"FinSightSaas/api/constants"
	"FinSightSaas/internal/config"
)

// Handler: ExportForecast
// GET /intelligence/forecast/export?owner_id=...&days=30
// Streams the forecast as an xlsx workbook: one sheet of daily points, one
// of summary metrics.
func ExportForecast(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID := r.URL.Query().Get("owner_id")
		if ownerID == "" {
			http.Error(w, constants.ErrOwnerIDRequired, http.StatusBadRequest)
			return
		}
		days := config.CashflowRiskHorizonDays
		if d := r.URL.Query().Get("days"); d != "" {
			v, err := strconv.Atoi(d)
			if err != nil {
				http.Error(w, "invalid days parameter", http.StatusBadRequest)
				return
			}
			days = v
		}

		history, err := LoadHistory(db, ownerID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		result := Forecast(history, days)
		if result.Status != StatusOK {
			http.Error(w, result.Message, http.StatusUnprocessableEntity)
			return
		}

		f := excelize.NewFile()
		defer f.Close()

		sheet := "Forecast"
		f.SetSheetName("Sheet1", sheet)
		headers := []string{"Date", "Predicted", "Lower Bound", "Upper Bound"}
		for i, h := range headers {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			f.SetCellValue(sheet, cell, h)
		}
		for rowIdx, p := range result.Points {
			values := []interface{}{p.Date, p.Predicted, p.LowerBound, p.UpperBound}
			for colIdx, v := range values {
				cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
				f.SetCellValue(sheet, cell, v)
			}
		}

		metricsSheet := "Metrics"
		f.NewSheet(metricsSheet)
		f.SetCellValue(metricsSheet, "A1", "Projected Balance")
		f.SetCellValue(metricsSheet, "B1", result.Metrics.ProjectedBalance)
		f.SetCellValue(metricsSheet, "A2", "Cashflow Risk")
		f.SetCellValue(metricsSheet, "B2", result.Metrics.CashflowRisk)
		f.SetCellValue(metricsSheet, "A3", "Trend Direction")
		f.SetCellValue(metricsSheet, "B3", result.Metrics.TrendDirection)
		f.SetCellValue(metricsSheet, "A4", "History Days")
		f.SetCellValue(metricsSheet, "B4", result.HistoryDays)
		f.SetCellValue(metricsSheet, "A5", "Transactions")
		f.SetCellValue(metricsSheet, "B5", result.TransactionCount)

		filename := fmt.Sprintf("forecast_%s_%dd.xlsx", ownerID, result.HorizonDays)
		w.Header().Set(constants.ContentTypeText,
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
		if err := f.Write(w); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}
