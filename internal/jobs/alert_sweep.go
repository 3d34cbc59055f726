package jobs

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"

	"FinSightSaas/api/intelligence/alerts"
	"FinSightSaas/internal/config"
	"FinSightSaas/internal/logger"
)

// AlertSweepConfig holds configuration for the periodic alert sweep.
type AlertSweepConfig struct {
	Schedule  string // cron schedule (default: hourly)
	BatchSize int    // max owners processed per run
	TimeZone  string
}

// NewDefaultAlertSweepConfig builds the sweep config from environment
// overrides with compiled defaults.
func NewDefaultAlertSweepConfig() *AlertSweepConfig {
	schedule := os.Getenv("ALERT_SWEEP_SCHEDULE")
	if schedule == "" {
		schedule = config.DefaultAlertSchedule
	}
	batchSize := config.AlertSweepBatchSize
	if bs := os.Getenv("ALERT_SWEEP_BATCH_SIZE"); bs != "" {
		if parsed, err := strconv.Atoi(bs); err == nil && parsed > 0 {
			batchSize = parsed
		}
	}
	return &AlertSweepConfig{
		Schedule:  schedule,
		BatchSize: batchSize,
		TimeZone:  config.DefaultTimeZone,
	}
}

// RunAlertSweepScheduler starts the cron job that runs the alert detectors
// across all owners.
func RunAlertSweepScheduler(cfg *AlertSweepConfig, pool *pgxpool.Pool, db *sql.DB) (*cron.Cron, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = config.DefaultAlertSchedule
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = config.AlertSweepBatchSize
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
		logger.Audit(fmt.Sprintf("Starting alert sweep at %s", time.Now().In(loc).Format(time.RFC3339)))
		if err := ProcessAlertSweep(pool, db, cfg.BatchSize); err != nil {
			logger.Audit(fmt.Sprintf("Alert sweep failed: %v", err))
		} else {
			logger.Audit("Alert sweep completed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("unable to schedule alert sweep: %v", err)
	}

	c.Start()
	logger.Audit(fmt.Sprintf("Alert sweep scheduler started with schedule: %s (timezone: %s)", cfg.Schedule, cfg.TimeZone))
	return c, nil
}

// ProcessAlertSweep runs the detectors for every owner with transaction
// history, bounded by batchSize owners per run. Owners run concurrently
// under a semaphore; a per-owner advisory lock keeps overlapping sweeps
// and on-demand checks from double-firing.
func ProcessAlertSweep(pool *pgxpool.Pool, db *sql.DB, batchSize int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	rows, err := pool.Query(ctx, `
		SELECT DISTINCT owner_id FROM transactions ORDER BY owner_id LIMIT $1`, batchSize)
	if err != nil {
		return fmt.Errorf("listing owners: %w", err)
	}
	owners := make([]string, 0, batchSize)
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			rows.Close()
			return err
		}
		owners = append(owners, owner)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	const maxConcurrent = 10
	semaphore := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup

	for _, owner := range owners {
		wg.Add(1)
		semaphore <- struct{}{}
		go func(ownerID string) {
			defer wg.Done()
			defer func() { <-semaphore }()
			if err := sweepOwner(ctx, pool, db, ownerID); err != nil {
				logger.Audit(fmt.Sprintf("Alert sweep for %s failed: %v", ownerID, err))
			}
		}(owner)
	}
	wg.Wait()
	return nil
}

// sweepOwner serializes detector runs per owner with a session advisory
// lock. Someone else holding the lock means the owner is being handled
// right now, so skipping is correct.
func sweepOwner(ctx context.Context, pool *pgxpool.Pool, db *sql.DB, ownerID string) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	var locked bool
	if err := conn.QueryRow(ctx,
		`SELECT pg_try_advisory_lock(hashtext($1))`, ownerID).Scan(&locked); err != nil {
		return err
	}
	if !locked {
		return nil
	}
	defer conn.Exec(ctx, `SELECT pg_advisory_unlock(hashtext($1))`, ownerID)

	outcome, err := alerts.RunOwnerSweep(ctx, pool, db, ownerID)
	if err != nil {
		return err
	}
	if len(outcome.Created) > 0 {
		logger.Audit(fmt.Sprintf("Alert sweep for %s created %d alerts (%d deduped)",
			ownerID, len(outcome.Created), outcome.Skipped))
	}
	return nil
}
