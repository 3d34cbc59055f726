package jobs

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"

	"FinSightSaas/internal/config"
	"FinSightSaas/internal/enrichment"
	"FinSightSaas/internal/logger"
)

// labelChunkSize caps how many descriptions go into a single model call.
const labelChunkSize = 25

// EnrichmentConfig holds configuration for the nightly labelling job.
type EnrichmentConfig struct {
	Schedule  string // cron schedule (default: 6 PM daily)
	BatchSize int    // transactions labelled per run
	TimeZone  string
}

// NewDefaultEnrichmentConfig builds the enrichment config from environment
// overrides with compiled defaults.
func NewDefaultEnrichmentConfig() *EnrichmentConfig {
	schedule := os.Getenv("ENRICHMENT_SCHEDULE")
	if schedule == "" {
		schedule = config.DefaultEnrichmentSchedule
	}
	batchSize := config.EnrichmentBatchSize
	if bs := os.Getenv("ENRICHMENT_BATCH_SIZE"); bs != "" {
		if parsed, err := strconv.Atoi(bs); err == nil && parsed > 0 {
			batchSize = parsed
		}
	}
	return &EnrichmentConfig{
		Schedule:  schedule,
		BatchSize: batchSize,
		TimeZone:  config.DefaultTimeZone,
	}
}

// RunEnrichmentScheduler starts the cron job that labels transactions
// still carrying the Unknown/Other defaults.
func RunEnrichmentScheduler(cfg *EnrichmentConfig, pool *pgxpool.Pool) (*cron.Cron, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = config.DefaultEnrichmentSchedule
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = config.EnrichmentBatchSize
	}
	if cfg.TimeZone == "" {
		cfg.TimeZone = config.DefaultTimeZone
	}

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		loc = time.UTC
		logger.Audit(fmt.Sprintf("Invalid timezone %s, falling back to UTC: %v", cfg.TimeZone, err))
	}

	c := cron.New(cron.WithLocation(loc))
	_, err = c.AddFunc(cfg.Schedule, func() {
		logger.Audit(fmt.Sprintf("Starting enrichment job at %s", time.Now().In(loc).Format(time.RFC3339)))
		if err := ProcessUnlabeledTransactions(pool, cfg.BatchSize); err != nil {
			logger.Audit(fmt.Sprintf("Enrichment job failed: %v", err))
		} else {
			logger.Audit("Enrichment job completed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("unable to schedule enrichment processor: %v", err)
	}

	c.Start()
	logger.Audit(fmt.Sprintf("Enrichment scheduler started with schedule: %s (timezone: %s)", cfg.Schedule, cfg.TimeZone))
	return c, nil
}

// ProcessUnlabeledTransactions labels up to batchSize transactions that
// still carry the default entity and category. Labelling is best effort:
// a model failure leaves the defaults in place for the next run.
func ProcessUnlabeledTransactions(pool *pgxpool.Pool, batchSize int) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()

	client, err := enrichment.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("enrichment client unavailable: %w", err)
	}

	rows, err := pool.Query(ctx, `
		SELECT id, description
		FROM transactions
		WHERE entity_name = 'Unknown' AND category = 'Other'
		  AND entity_confidence IS NULL
		ORDER BY created_at
		LIMIT $1`, batchSize)
	if err != nil {
		return fmt.Errorf("listing unlabeled transactions: %w", err)
	}
	var ids []string
	var descriptions []string
	for rows.Next() {
		var id, desc string
		if err := rows.Scan(&id, &desc); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
		descriptions = append(descriptions, desc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	labelled := 0
	for start := 0; start < len(ids); start += labelChunkSize {
		end := start + labelChunkSize
		if end > len(ids) {
			end = len(ids)
		}
		labels := client.LabelBatch(ctx, descriptions[start:end])
		for i, label := range labels {
			// Fallback labels with zero confidence stay NULL so the next
			// run retries them.
			if label.EntityName == "Unknown" && label.EntityConfidence == 0 &&
				label.Category == "Other" && label.CategoryConfidence == 0 {
				continue
			}
			_, err := pool.Exec(ctx, `
				UPDATE transactions
				SET entity_name = $2, entity_confidence = $3,
				    category = $4, category_confidence = $5
				WHERE id = $1`,
				ids[start+i], label.EntityName, label.EntityConfidence,
				label.Category, label.CategoryConfidence)
			if err != nil {
				return fmt.Errorf("updating transaction %s: %w", ids[start+i], err)
			}
			labelled++
		}
	}

	logger.Audit(fmt.Sprintf("Enrichment labelled %d of %d transactions", labelled, len(ids)))
	return nil
}
