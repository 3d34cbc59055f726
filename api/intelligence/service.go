package intelligence

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"

	"FinSightSaas/api/intelligence/alerts"
	"FinSightSaas/api/intelligence/forecast"
	"FinSightSaas/internal/serviceiface"
)

// IntelligenceService serves the forecast and alert endpoints. Reads run on
// the database/sql handle, alert state changes on the pgx pool.
type IntelligenceService struct {
	name string
	port int
	db   *sql.DB
	pool *pgxpool.Pool
}

func NewIntelligenceService(cfg map[string]interface{}, db *sql.DB, pool *pgxpool.Pool) serviceiface.Service {
	port := 4143
	if p, ok := cfg["port"].(int); ok {
		port = p
	} else if p, ok := cfg["port"].(float64); ok {
		port = int(p)
	}
	return &IntelligenceService{name: "intelligence", port: port, db: db, pool: pool}
}

func (s *IntelligenceService) Name() string { return s.name }

func (s *IntelligenceService) Start() error {
	r := mux.NewRouter()

	r.HandleFunc("/intelligence/forecast", forecast.GetForecast(s.db)).Methods(http.MethodGet)
	r.HandleFunc("/intelligence/forecast/export", forecast.ExportForecast(s.db)).Methods(http.MethodGet)

	r.HandleFunc("/intelligence/alerts", alerts.ListAlerts(s.db)).Methods(http.MethodGet)
	r.HandleFunc("/intelligence/alerts/check", alerts.CheckAlerts(s.pool, s.db)).Methods(http.MethodPost)
	r.HandleFunc("/intelligence/alerts/acknowledge", alerts.AcknowledgeAlert(s.pool)).Methods(http.MethodPost)
	r.HandleFunc("/intelligence/alerts/dismiss", alerts.DismissAlert(s.pool)).Methods(http.MethodPost)

	go func() {
		addr := fmt.Sprintf(":%d", s.port)
		log.Printf("Intelligence service starting on %s", addr)
		if err := http.ListenAndServe(addr, r); err != nil {
			log.Printf("Intelligence service stopped: %v", err)
		}
	}()
	return nil
}

func (s *IntelligenceService) Stop() error {
	log.Println("Intelligence service stopping")
	return nil
}
