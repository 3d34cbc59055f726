package imports

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"FinSightSaas/api/constants"
	"FinSightSaas/api/utils"
	"FinSightSaas/internal/config"
	"FinSightSaas/internal/logger"
)

func writeJSON(w http.ResponseWriter, payload map[string]interface{}) {
	w.Header().Set(constants.ContentTypeText, constants.ContentTypeJSON)
	json.NewEncoder(w).Encode(payload)
}

func writeDBError(w http.ResponseWriter, err error) {
	w.Header().Set(constants.ContentTypeText, constants.ContentTypeJSON)
	json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": err.Error()})
}

// failImport moves an import to the failed terminal state, keeping the
// message for the caller. Rows already inserted by a partial confirm stay:
// duplicate detection makes the retry safe.
func failImport(ctx context.Context, pool *pgxpool.Pool, importID, msg string) {
	_, err := pool.Exec(ctx,
		`UPDATE imports SET status = $2, error_message = $3, updated_at = now() WHERE id = $1`,
		importID, StatusFailed, msg)
	if err != nil {
		logger.Audit(fmt.Sprintf("[Imports] failed to mark import %s failed: %v", importID, err))
	}
}

// Handler: UploadImport
// Validates the file before any record exists, stages raw rows, runs column
// detection and stores the preview. pending -> processing -> preview_ready.
func UploadImport(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, constants.ErrMethodNotAllowed, http.StatusMethodNotAllowed)
			return
		}
		ctx := r.Context()

		if err := r.ParseMultipartForm(config.MaxUploadBytes + (1 << 20)); err != nil {
			http.Error(w, "Failed to parse multipart form", http.StatusBadRequest)
			return
		}
		ownerID := r.FormValue("owner_id")
		if ownerID == "" {
			http.Error(w, constants.ErrOwnerIDRequired, http.StatusBadRequest)
			return
		}
		file, fileHeader, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "Missing 'file' field", http.StatusBadRequest)
			return
		}
		defer file.Close()

		// Preconditions checked before any import record exists.
		if strings.ToLower(filepath.Ext(fileHeader.Filename)) != ".csv" {
			http.Error(w, constants.ErrOnlyCSV, http.StatusBadRequest)
			return
		}
		if fileHeader.Size > config.MaxUploadBytes {
			http.Error(w, constants.ErrFileTooLarge, http.StatusBadRequest)
			return
		}

		records, err := csv.NewReader(file).ReadAll()
		if err != nil || len(records) < 2 {
			http.Error(w, "Invalid or empty file: "+fileHeader.Filename, http.StatusBadRequest)
			return
		}
		header := records[0]
		dataRows := records[1:]

		importID := uuid.New().String()
		headerJSON, _ := json.Marshal(header)
		_, err = pool.Exec(ctx, `
			INSERT INTO imports (id, owner_id, filename, file_size, status, total_rows, header)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			importID, ownerID, fileHeader.Filename, fileHeader.Size, StatusPending, len(dataRows), headerJSON)
		if err != nil {
			writeDBError(w, err)
			return
		}

		_, err = pool.Exec(ctx,
			`UPDATE imports SET status = $2, updated_at = now() WHERE id = $1`,
			importID, StatusProcessing)
		if err != nil {
			failImport(ctx, pool, importID, err.Error())
			writeDBError(w, err)
			return
		}

		// Stage raw rows for the confirm phase.
		copyRows := make([][]interface{}, len(dataRows))
		for i, row := range dataRows {
			cells, _ := json.Marshal(row)
			copyRows[i] = []interface{}{importID, i + 1, cells}
		}
		_, err = pool.CopyFrom(
			ctx,
			pgx.Identifier{"import_staging"},
			[]string{"batch_id", "row_number", "cells"},
			pgx.CopyFromRows(copyRows),
		)
		if err != nil {
			failImport(ctx, pool, importID, "Failed to stage data: "+err.Error())
			writeDBError(w, err)
			return
		}

		detection := DetectColumns(header, dataRows, config.DetectionSampleMax)
		mapping := detection.Mapping()

		previewCount := len(dataRows)
		if previewCount > config.PreviewRowMax {
			previewCount = config.PreviewRowMax
		}
		preview := make([]map[string]string, previewCount)
		for i := 0; i < previewCount; i++ {
			rowMap := make(map[string]string, len(header))
			for j, name := range header {
				if j < len(dataRows[i]) {
					rowMap[name] = dataRows[i][j]
				} else {
					rowMap[name] = ""
				}
			}
			preview[i] = rowMap
		}

		detectionJSON, _ := json.Marshal(detection)
		mappingJSON, _ := json.Marshal(mapping)
		previewJSON, _ := json.Marshal(preview)
		_, err = pool.Exec(ctx, `
			UPDATE imports
			SET status = $2, detected_columns = $3, detection_confidence = $4,
			    column_mapping = $5, preview_rows = $6, updated_at = now()
			WHERE id = $1`,
			importID, StatusPreviewReady, detectionJSON, detection.DetectionConfidence, mappingJSON, previewJSON)
		if err != nil {
			failImport(ctx, pool, importID, err.Error())
			writeDBError(w, err)
			return
		}

		logger.Audit(fmt.Sprintf("[Imports] %s uploaded %s (%d rows, confidence %.2f)",
			ownerID, fileHeader.Filename, len(dataRows), detection.DetectionConfidence))

		writeJSON(w, map[string]interface{}{
			"success":    true,
			"id":         importID,
			"status":     StatusPreviewReady,
			"total_rows": len(dataRows),
			"detection":  detection,
		})
	}
}

// Handler: GetImportPreview
func GetImportPreview(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		importID := r.URL.Query().Get("id")
		if importID == "" {
			http.Error(w, "id required", http.StatusBadRequest)
			return
		}

		var (
			rec           ImportRecord
			mappingJSON   []byte
			detectedJSON  []byte
			previewJSON   []byte
			detectionConf sql.NullFloat64
			errorMessage  sql.NullString
		)
		err := db.QueryRow(`
			SELECT id, owner_id, filename, file_size, status, column_mapping, detected_columns,
			       detection_confidence, preview_rows, total_rows, processed_rows, duplicate_rows,
			       error_rows, error_message, created_at, updated_at
			FROM imports WHERE id = $1`, importID).Scan(
			&rec.ID, &rec.OwnerID, &rec.Filename, &rec.FileSize, &rec.Status, &mappingJSON,
			&detectedJSON, &detectionConf, &previewJSON, &rec.TotalRows, &rec.ProcessedRows,
			&rec.DuplicateRows, &rec.ErrorRows, &errorMessage, &rec.CreatedAt, &rec.UpdatedAt)
		if err == sql.ErrNoRows {
			http.Error(w, constants.ErrImportNotFound, http.StatusNotFound)
			return
		}
		if err != nil {
			writeDBError(w, err)
			return
		}
		if detectionConf.Valid {
			rec.DetectionConfidence = &detectionConf.Float64
		}
		if errorMessage.Valid {
			rec.ErrorMessage = &errorMessage.String
		}
		if len(mappingJSON) > 0 {
			var m ColumnMapping
			if json.Unmarshal(mappingJSON, &m) == nil {
				rec.ColumnMapping = &m
			}
		}
		rec.DetectedColumns = detectedJSON

		writeJSON(w, map[string]interface{}{
			"success":      true,
			"data":         rec,
			"preview_rows": json.RawMessage(previewJSON),
		})
	}
}

// Handler: UpdateColumnMapping
// Allowed only while the import sits in preview_ready; the state does not
// change, the user is just overriding the detected mapping.
func UpdateColumnMapping(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodPut {
			http.Error(w, constants.ErrMethodNotAllowed, http.StatusMethodNotAllowed)
			return
		}
		ctx := r.Context()
		var req struct {
			ID      string        `json:"id"`
			Mapping ColumnMapping `json:"column_mapping"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
			http.Error(w, constants.ErrInvalidJSON, http.StatusBadRequest)
			return
		}
		if req.Mapping.Amount == "" && (req.Mapping.Debit == "" || req.Mapping.Credit == "") {
			http.Error(w, "Mapping needs an amount column or a debit and credit pair", http.StatusBadRequest)
			return
		}
		// Single amount column wins over a leftover debit/credit pair.
		if req.Mapping.Amount != "" {
			req.Mapping.Debit = ""
			req.Mapping.Credit = ""
		}

		var status string
		err := pool.QueryRow(ctx, `SELECT status FROM imports WHERE id = $1`, req.ID).Scan(&status)
		if err == pgx.ErrNoRows {
			http.Error(w, constants.ErrImportNotFound, http.StatusNotFound)
			return
		}
		if err != nil {
			writeDBError(w, err)
			return
		}
		if status != StatusPreviewReady {
			http.Error(w, "Column mapping can only be updated while the preview is ready", http.StatusBadRequest)
			return
		}

		mappingJSON, _ := json.Marshal(req.Mapping)
		_, err = pool.Exec(ctx,
			`UPDATE imports SET column_mapping = $2, updated_at = now() WHERE id = $1 AND status = $3`,
			req.ID, mappingJSON, StatusPreviewReady)
		if err != nil {
			writeDBError(w, err)
			return
		}

		writeJSON(w, map[string]interface{}{
			"success":        true,
			"id":             req.ID,
			"column_mapping": req.Mapping,
		})
	}
}

// ConfirmCounts is the deterministic outcome of a confirm pass. The three
// buckets always sum to the staged row total.
type ConfirmCounts struct {
	Processed  int `json:"processed_rows"`
	Duplicates int `json:"duplicate_rows"`
	Errors     int `json:"error_rows"`
}

// processRows normalizes staged rows and routes each into exactly one of
// the three buckets. isDuplicate and insert are injected so the counting
// core stays testable without a database.
func processRows(
	header []string,
	rows [][]string,
	mapping ColumnMapping,
	dateLayout string,
	isDuplicate func(CanonicalTransaction) (bool, error),
	insert func(CanonicalTransaction) error,
) (ConfirmCounts, error) {
	var counts ConfirmCounts
	for i, row := range rows {
		txn, errs := NormalizeRow(header, row, mapping, dateLayout, i+1)
		if len(errs) > 0 {
			counts.Errors++
			continue
		}
		dup, err := isDuplicate(txn)
		if err != nil {
			return counts, err
		}
		if dup {
			counts.Duplicates++
			continue
		}
		if err := insert(txn); err != nil {
			return counts, err
		}
		counts.Processed++
	}
	return counts, nil
}

// Handler: ConfirmImport
// Rejected unless the import is preview_ready. Inserts are at-least-once:
// a mid-confirm failure leaves inserted rows in place and the import in
// failed; rerunning is safe because duplicates are skipped.
func ConfirmImport(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, constants.ErrMethodNotAllowed, http.StatusMethodNotAllowed)
			return
		}
		ctx := r.Context()
		var req struct {
			ID string `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
			http.Error(w, constants.ErrInvalidJSON, http.StatusBadRequest)
			return
		}

		var (
			ownerID      string
			status       string
			mappingJSON  []byte
			detectedJSON []byte
			headerJSON   []byte
			totalRows    int
		)
		err := pool.QueryRow(ctx, `
			SELECT owner_id, status, column_mapping, detected_columns, header, total_rows
			FROM imports WHERE id = $1`, req.ID).Scan(
			&ownerID, &status, &mappingJSON, &detectedJSON, &headerJSON, &totalRows)
		if err == pgx.ErrNoRows {
			http.Error(w, constants.ErrImportNotFound, http.StatusNotFound)
			return
		}
		if err != nil {
			writeDBError(w, err)
			return
		}
		if status != StatusPreviewReady {
			http.Error(w, constants.ErrNotPreviewReady, http.StatusBadRequest)
			return
		}

		var mapping ColumnMapping
		if err := json.Unmarshal(mappingJSON, &mapping); err != nil {
			failImport(ctx, pool, req.ID, "invalid column mapping: "+err.Error())
			http.Error(w, "Invalid column mapping", http.StatusBadRequest)
			return
		}
		var header []string
		if err := json.Unmarshal(headerJSON, &header); err != nil {
			failImport(ctx, pool, req.ID, "invalid header: "+err.Error())
			writeDBError(w, err)
			return
		}
		var detection DetectionResult
		dateLayout := ""
		if json.Unmarshal(detectedJSON, &detection) == nil {
			dateLayout = detection.DateFormat()
		}

		stagedRows, err := loadStagedRows(ctx, pool, req.ID)
		if err != nil {
			failImport(ctx, pool, req.ID, err.Error())
			writeDBError(w, err)
			return
		}

		counts, err := processRows(header, stagedRows, mapping, dateLayout,
			func(txn CanonicalTransaction) (bool, error) {
				var exists bool
				err := pool.QueryRow(ctx, `
					SELECT EXISTS (
						SELECT 1 FROM transactions
						WHERE owner_id = $1 AND transaction_date = $2
						  AND amount = $3 AND normalized_description = $4
					)`, ownerID, txn.TransactionDate, txn.Amount, txn.NormalizedDescription).Scan(&exists)
				return exists, err
			},
			func(txn CanonicalTransaction) error {
				_, err := pool.Exec(ctx, `
					INSERT INTO transactions
						(id, owner_id, import_id, transaction_date, amount, description,
						 normalized_description, balance, row_number)
					VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
					uuid.New().String(), ownerID, req.ID, txn.TransactionDate, txn.Amount,
					txn.Description, txn.NormalizedDescription, txn.Balance, txn.RowNumber)
				return err
			},
		)
		if err != nil {
			failImport(ctx, pool, req.ID, err.Error())
			writeDBError(w, err)
			return
		}

		_, err = pool.Exec(ctx, `
			UPDATE imports
			SET status = $2, processed_rows = $3, duplicate_rows = $4, error_rows = $5, updated_at = now()
			WHERE id = $1`,
			req.ID, StatusConfirmed, counts.Processed, counts.Duplicates, counts.Errors)
		if err != nil {
			failImport(ctx, pool, req.ID, err.Error())
			writeDBError(w, err)
			return
		}

		// Staged rows are ephemeral; drop them once confirmed.
		if _, err := pool.Exec(ctx, `DELETE FROM import_staging WHERE batch_id = $1`, req.ID); err != nil {
			logger.Audit(fmt.Sprintf("[Imports] failed to clear staging for %s: %v", req.ID, err))
		}

		logger.Audit(fmt.Sprintf("[Imports] confirmed %s: %d inserted, %d duplicates, %d errors",
			req.ID, counts.Processed, counts.Duplicates, counts.Errors))

		writeJSON(w, map[string]interface{}{
			"success":        true,
			"id":             req.ID,
			"status":         StatusConfirmed,
			"total_rows":     totalRows,
			"processed_rows": counts.Processed,
			"duplicate_rows": counts.Duplicates,
			"error_rows":     counts.Errors,
		})
	}
}

func loadStagedRows(ctx context.Context, pool *pgxpool.Pool, batchID string) ([][]string, error) {
	rows, err := pool.Query(ctx,
		`SELECT cells FROM import_staging WHERE batch_id = $1 ORDER BY row_number`, batchID)
	if err != nil {
		return nil, fmt.Errorf("loading staged rows: %w", err)
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		var cells []byte
		if err := rows.Scan(&cells); err != nil {
			return nil, err
		}
		var row []string
		if err := json.Unmarshal(cells, &row); err != nil {
			return nil, fmt.Errorf("decoding staged row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Handler: ListImports
func ListImports(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID := r.URL.Query().Get("owner_id")
		if ownerID == "" {
			http.Error(w, constants.ErrOwnerIDRequired, http.StatusBadRequest)
			return
		}
		params, err := utils.ExtractPagination(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		total, err := utils.CountTotal(db, `SELECT COUNT(*) FROM imports WHERE owner_id = $1`, ownerID)
		if err != nil {
			writeDBError(w, err)
			return
		}
		params.SetPaginationStats(total)

		rows, err := db.Query(`
			SELECT id, filename, file_size, status, detection_confidence, total_rows,
			       processed_rows, duplicate_rows, error_rows, error_message, created_at
			FROM imports
			WHERE owner_id = $1
			ORDER BY created_at DESC
			LIMIT $2 OFFSET $3`, ownerID, params.Limit, params.Offset)
		if err != nil {
			writeDBError(w, err)
			return
		}
		defer rows.Close()

		type item struct {
			ID                  string    `json:"id"`
			Filename            string    `json:"filename"`
			FileSize            int64     `json:"file_size"`
			Status              string    `json:"status"`
			DetectionConfidence *float64  `json:"detection_confidence"`
			TotalRows           int       `json:"total_rows"`
			ProcessedRows       int       `json:"processed_rows"`
			DuplicateRows       int       `json:"duplicate_rows"`
			ErrorRows           int       `json:"error_rows"`
			ErrorMessage        *string   `json:"error_message"`
			CreatedAt           time.Time `json:"created_at"`
		}
		results := make([]item, 0)
		for rows.Next() {
			var it item
			if err := rows.Scan(&it.ID, &it.Filename, &it.FileSize, &it.Status,
				&it.DetectionConfidence, &it.TotalRows, &it.ProcessedRows,
				&it.DuplicateRows, &it.ErrorRows, &it.ErrorMessage, &it.CreatedAt); err != nil {
				writeDBError(w, err)
				return
			}
			results = append(results, it)
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
