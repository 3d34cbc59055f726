package forecast

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"

	"FinSightSaas/api/constants"
	"FinSightSaas/internal/config"
)

// LoadHistory reads the owner's transactions over the trailing history
// window, oldest first.
func LoadHistory(db *sql.DB, ownerID string) ([]HistoryPoint, error) {
	rows, err := db.Query(`
		SELECT transaction_date, amount
		FROM transactions
		WHERE owner_id = $1
		  AND transaction_date >= current_date - $2::int
		ORDER BY transaction_date`,
		ownerID, config.ForecastHistoryDays)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []HistoryPoint
	for rows.Next() {
		var h HistoryPoint
		if err := rows.Scan(&h.Date, &h.Amount); err != nil {
			return nil, err
		}
		history = append(history, h)
	}
	return history, rows.Err()
}

// Handler: GetForecast
// GET /intelligence/forecast?owner_id=...&days=30
func GetForecast(db *sql.DB) http.HandlerFunc {
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
			w.Header().Set(constants.ContentTypeText, constants.ContentTypeJSON)
			json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": err.Error()})
			return
		}

		result := Forecast(history, days)

		w.Header().Set(constants.ContentTypeText, constants.ContentTypeJSON)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":  true,
			"forecast": result,
		})
	}
}
