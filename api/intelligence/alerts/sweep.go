package alerts

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"FinSightSaas/api/intelligence/forecast"
	"FinSightSaas/internal/config"
)

// SweepOutcome counts what one owner's detector pass produced.
type SweepOutcome struct {
	Created []Candidate `json:"created"`
	Skipped int         `json:"skipped_duplicates"`
}

// RunOwnerSweep runs every detector for one owner and persists the
// findings. A candidate is dropped when an active alert of the same type
// already exists inside the dedup window. Shared by the on-demand check
// endpoint and the cron sweep.
func RunOwnerSweep(ctx context.Context, pool *pgxpool.Pool, db *sql.DB, ownerID string) (SweepOutcome, error) {
	outcome := SweepOutcome{Created: []Candidate{}}

	candidates, err := detectAll(db, ownerID)
	if err != nil {
		return outcome, err
	}

	for _, c := range candidates {
		inserted, err := insertDeduped(ctx, pool, ownerID, c)
		if err != nil {
			return outcome, err
		}
		if inserted {
			outcome.Created = append(outcome.Created, c)
		} else {
			outcome.Skipped++
		}
	}
	return outcome, nil
}

// detectAll gathers the inputs and runs the three detectors.
func detectAll(db *sql.DB, ownerID string) ([]Candidate, error) {
	var candidates []Candidate

	history, err := forecast.LoadHistory(db, ownerID)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	fc := forecast.Forecast(history, config.CashflowRiskHorizonDays)
	if c := DetectCashflowRisk(fc); c != nil {
		candidates = append(candidates, *c)
	}

	revenue, err := revenueByCounterparty(db, ownerID)
	if err != nil {
		return nil, fmt.Errorf("loading revenue: %w", err)
	}
	if c := DetectConcentration(revenue); c != nil {
		candidates = append(candidates, *c)
	}

	spend, err := spendByCategory(db, ownerID)
	if err != nil {
		return nil, fmt.Errorf("loading spend windows: %w", err)
	}
	if c := DetectSpendingSpike(spend); c != nil {
		candidates = append(candidates, *c)
	}

	return candidates, nil
}

// revenueByCounterparty sums inflows per counterparty over the
// concentration window. Enriched entity names are preferred; rows still at
// the Unknown default fall back to the normalized description.
func revenueByCounterparty(db *sql.DB, ownerID string) (map[string]float64, error) {
	rows, err := db.Query(`
		SELECT COALESCE(NULLIF(entity_name, 'Unknown'), normalized_description), SUM(amount)
		FROM transactions
		WHERE owner_id = $1
		  AND amount > 0
		  AND transaction_date >= current_date - $2::int
		GROUP BY 1`,
		ownerID, config.ConcentrationWindowDays)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	revenue := make(map[string]float64)
	for rows.Next() {
		var name string
		var total float64
		if err := rows.Scan(&name, &total); err != nil {
			return nil, err
		}
		revenue[name] = total
	}
	return revenue, rows.Err()
}

// spendByCategory returns per-category outflow totals, as positive
// numbers, for the current spike window and the window immediately before
// it.
func spendByCategory(db *sql.DB, ownerID string) (map[string]SpendPair, error) {
	rows, err := db.Query(`
		SELECT category,
			COALESCE(SUM(CASE WHEN transaction_date >= current_date - $2::int
				THEN -amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN transaction_date <  current_date - $2::int
				THEN -amount ELSE 0 END), 0)
		FROM transactions
		WHERE owner_id = $1
		  AND amount < 0
		  AND transaction_date >= current_date - $3::int
		GROUP BY category`,
		ownerID, config.SpikeWindowDays, 2*config.SpikeWindowDays)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	spend := make(map[string]SpendPair)
	for rows.Next() {
		var category string
		var pair SpendPair
		if err := rows.Scan(&category, &pair.Current, &pair.Prior); err != nil {
			return nil, err
		}
		spend[category] = pair
	}
	return spend, rows.Err()
}

// dedupSuppressed decides whether a new alert must be suppressed, given
// when the latest active alert of the same (owner, type) was created. Nil
// means no active alert exists. Pure so the 24h window is testable
// without a database.
func dedupSuppressed(lastActive *time.Time, now time.Time) bool {
	if lastActive == nil {
		return false
	}
	return now.Sub(*lastActive) < time.Duration(config.AlertDedupHours)*time.Hour
}

// insertDeduped creates the alert unless an active one of the same type
// already exists for the owner inside the dedup window.
func insertDeduped(ctx context.Context, pool *pgxpool.Pool, ownerID string, c Candidate) (bool, error) {
	var lastActive *time.Time
	err := pool.QueryRow(ctx, `
		SELECT MAX(created_at) FROM alerts
		WHERE owner_id = $1 AND type = $2 AND status = $3`,
		ownerID, c.Type, StatusActive).Scan(&lastActive)
	if err != nil {
		return false, err
	}
	if dedupSuppressed(lastActive, time.Now()) {
		return false, nil
	}

	dataJSON, _ := json.Marshal(c.Data)
	_, err = pool.Exec(ctx, `
		INSERT INTO alerts (id, owner_id, type, severity, status, title, message, data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.New().String(), ownerID, c.Type, c.Severity, StatusActive, c.Title, c.Message, dataJSON)
	if err != nil {
		return false, err
	}
	return true, nil
}
