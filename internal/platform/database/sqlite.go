package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"hirelink/internal/platform/config"
)

// NewRelationalDB opens the marketplace's relational store read-only. This
// service only reads route/hire/listing/domain records from it; mutations
// happen in the CRUD backend.
func NewRelationalDB(cfg config.SQLiteConfig) (*sql.DB, error) {
	return Open(cfg, true)
}

// NewEdgeDB opens the edge store this service owns: route_cache,
// route_meta, dedup_records and click_events live here.
func NewEdgeDB(cfg config.SQLiteConfig) (*sql.DB, error) {
	return Open(cfg, false)
}

func Open(cfg config.SQLiteConfig, readOnly bool) (*sql.DB, error) {
	mode := "rwc"
	if readOnly {
		mode = "ro"
	}
	dsn := fmt.Sprintf("%s?cache=shared&mode=%s&_busy_timeout=5000", cfg.Path, mode)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	maxConns := cfg.MaxConnections
	if maxConns <= 0 {
		maxConns = 10
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return db, nil
}
