package jobs

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"

	"FinSightSaas/internal/serviceiface"
)

// CronService wraps the background schedulers behind the service registry
// so they start and stop with the rest of the application.
type CronService struct {
	name  string
	cfg   map[string]interface{}
	pool  *pgxpool.Pool
	db    *sql.DB
	crons []*cron.Cron
}

func NewCronService(cfg map[string]interface{}, pool *pgxpool.Pool, db *sql.DB) serviceiface.Service {
	return &CronService{name: "cron", cfg: cfg, pool: pool, db: db}
}

func (s *CronService) Name() string { return s.name }

func (s *CronService) Start() error {
	alertCfg := NewDefaultAlertSweepConfig()
	if v := cfgString(s.cfg, "alert_schedule"); v != "" {
		alertCfg.Schedule = v
	}
	if v := cfgInt(s.cfg, "alert_batch_size"); v > 0 {
		alertCfg.BatchSize = v
	}
	c, err := RunAlertSweepScheduler(alertCfg, s.pool, s.db)
	if err != nil {
		return fmt.Errorf("alert sweep scheduler: %w", err)
	}
	s.crons = append(s.crons, c)

	enrichCfg := NewDefaultEnrichmentConfig()
	if v := cfgString(s.cfg, "enrichment_schedule"); v != "" {
		enrichCfg.Schedule = v
	}
	if v := cfgInt(s.cfg, "enrichment_batch_size"); v > 0 {
		enrichCfg.BatchSize = v
	}
	c, err = RunEnrichmentScheduler(enrichCfg, s.pool)
	if err != nil {
		return fmt.Errorf("enrichment scheduler: %w", err)
	}
	s.crons = append(s.crons, c)

	return nil
}

func (s *CronService) Stop() error {
	for _, c := range s.crons {
		c.Stop()
	}
	log.Println("Cron service stopped")
	return nil
}

func cfgString(cfg map[string]interface{}, key string) string {
	if v, ok := cfg[key].(string); ok {
		return v
	}
	return ""
}

func cfgInt(cfg map[string]interface{}, key string) int {
	switch v := cfg[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}
