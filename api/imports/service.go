package imports

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"FinSightSaas/internal/serviceiface"
)

// ImportsService owns the CSV ingestion HTTP surface. Writes go through the
// pgx pool, read-only endpoints use the database/sql handle.
type ImportsService struct {
	name string
	port int
	pool *pgxpool.Pool
	db   *sql.DB
}

func NewImportsService(cfg map[string]interface{}, pool *pgxpool.Pool, db *sql.DB) serviceiface.Service {
	port := 6143
	if p, ok := cfg["port"].(int); ok {
		port = p
	} else if p, ok := cfg["port"].(float64); ok {
		port = int(p)
	}
	return &ImportsService{name: "imports", port: port, pool: pool, db: db}
}

func (s *ImportsService) Name() string { return s.name }

func (s *ImportsService) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/imports/upload", UploadImport(s.pool))
	mux.HandleFunc("/imports/preview", GetImportPreview(s.db))
	mux.HandleFunc("/imports/mapping", UpdateColumnMapping(s.pool))
	mux.HandleFunc("/imports/confirm", ConfirmImport(s.pool))
	mux.HandleFunc("/imports", ListImports(s.db))

	go func() {
		addr := fmt.Sprintf(":%d", s.port)
		log.Printf("Imports service starting on %s", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Printf("Imports service stopped: %v", err)
		}
	}()
	return nil
}

func (s *ImportsService) Stop() error {
	log.Println("Imports service stopping")
	return nil
}
