package alerts

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"FinSightSaas/api/constants"
	"FinSightSaas/api/utils"
)

func writeJSON(w http.ResponseWriter, payload map[string]interface{}) {
	w.Header().Set(constants.ContentTypeText, constants.ContentTypeJSON)
	json.NewEncoder(w).Encode(payload)
}

func writeDBError(w http.ResponseWriter, err error) {
	w.Header().Set(constants.ContentTypeText, constants.ContentTypeJSON)
	json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": err.Error()})
}

// AlertRecord mirrors one row of the alerts table.
type AlertRecord struct {
	ID             string          `json:"id"`
	OwnerID        string          `json:"owner_id"`
	Type           string          `json:"type"`
	Severity       string          `json:"severity"`
	Status         string          `json:"status"`
	Title          string          `json:"title"`
	Message        string          `json:"message"`
	Data           json.RawMessage `json:"data,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	AcknowledgedAt *time.Time      `json:"acknowledged_at,omitempty"`
	DismissedAt    *time.Time      `json:"dismissed_at,omitempty"`
}

// Handler: ListAlerts
// GET /intelligence/alerts?owner_id=...&status=active
func ListAlerts(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID := r.URL.Query().Get("owner_id")
		if ownerID == "" {
			http.Error(w, constants.ErrOwnerIDRequired, http.StatusBadRequest)
			return
		}
		status := r.URL.Query().Get("status")

		params, err := utils.ExtractPagination(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		countQuery := `SELECT COUNT(*) FROM alerts WHERE owner_id = $1`
		listQuery := `
			SELECT id, owner_id, type, severity, status, title, message, data,
			       created_at, acknowledged_at, dismissed_at
			FROM alerts WHERE owner_id = $1`
		args := []interface{}{ownerID}
		if status != "" {
			countQuery += ` AND status = $2`
			listQuery += ` AND status = $2`
			args = append(args, status)
		}

		total, err := utils.CountTotal(db, countQuery, args...)
		if err != nil {
			writeDBError(w, err)
			return
		}
		params.SetPaginationStats(total)

		listQuery += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)+1) +
			` OFFSET $` + strconv.Itoa(len(args)+2)
		args = append(args, params.Limit, params.Offset)

		rows, err := db.Query(listQuery, args...)
		if err != nil {
			writeDBError(w, err)
			return
		}
		defer rows.Close()

		results := make([]AlertRecord, 0)
		for rows.Next() {
			var rec AlertRecord
			if err := rows.Scan(&rec.ID, &rec.OwnerID, &rec.Type, &rec.Severity, &rec.Status,
				&rec.Title, &rec.Message, &rec.Data, &rec.CreatedAt,
				&rec.AcknowledgedAt, &rec.DismissedAt); err != nil {
				writeDBError(w, err)
				return
			}
			results = append(results, rec)
		}
		if rows.Err() != nil {
			writeDBError(w, rows.Err())
			return
		}

		writeJSON(w, map[string]interface{}{
			"success":    true,
			"data":       results,
			"pagination": params,
		})
	}
}

// Handler: CheckAlerts
// POST /intelligence/alerts/check — runs the detectors for one owner now
// instead of waiting for the sweep.
func CheckAlerts(pool *pgxpool.Pool, db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, constants.ErrMethodNotAllowed, http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			OwnerID string `json:"owner_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OwnerID == "" {
			http.Error(w, constants.ErrInvalidJSON, http.StatusBadRequest)
			return
		}

		outcome, err := RunOwnerSweep(r.Context(), pool, db, req.OwnerID)
		if err != nil {
			writeDBError(w, err)
			return
		}

		writeJSON(w, map[string]interface{}{
			"success":            true,
			"created":            outcome.Created,
			"skipped_duplicates": outcome.Skipped,
		})
	}
}

// transitionAlert moves an active alert into a terminal review state.
// Anything not active, including unknown ids, reads as not found.
func transitionAlert(pool *pgxpool.Pool, newStatus, stampColumn string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, constants.ErrMethodNotAllowed, http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			ID string `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
			http.Error(w, constants.ErrInvalidJSON, http.StatusBadRequest)
			return
		}

		tag, err := pool.Exec(r.Context(),
			`UPDATE alerts SET status = $2, `+stampColumn+` = now(), updated_at = now()
			 WHERE id = $1 AND status = $3`,
			req.ID, newStatus, StatusActive)
		if err != nil {
			writeDBError(w, err)
			return
		}
		if tag.RowsAffected() == 0 {
			http.Error(w, constants.ErrAlertNotFound, http.StatusNotFound)
			return
		}

		writeJSON(w, map[string]interface{}{
			"success": true,
			"id":      req.ID,
			"status":  newStatus,
		})
	}
}

// Handler: AcknowledgeAlert
// POST /intelligence/alerts/acknowledge
func AcknowledgeAlert(pool *pgxpool.Pool) http.HandlerFunc {
	return transitionAlert(pool, StatusAcknowledged, "acknowledged_at")
}

// Handler: DismissAlert
// POST /intelligence/alerts/dismiss
func DismissAlert(pool *pgxpool.Pool) http.HandlerFunc {
	return transitionAlert(pool, StatusDismissed, "dismissed_at")
}
