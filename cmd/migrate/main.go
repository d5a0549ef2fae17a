package main

import (
	"database/sql"
	"flag"
	"log"

	"hirelink/internal/platform/config"
	"hirelink/internal/platform/database"
)

var relationalUp = []string{
	`CREATE TABLE IF NOT EXISTS domains (
		id TEXT PRIMARY KEY,
		fqdn TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS listings (
		id TEXT PRIMARY KEY,
		domain_id TEXT NOT NULL REFERENCES domains(id)
	)`,
	`CREATE TABLE IF NOT EXISTS hires (
		id TEXT PRIMARY KEY,
		listing_id TEXT NOT NULL REFERENCES listings(id),
		status TEXT NOT NULL DEFAULT 'active'
	)`,
	`CREATE TABLE IF NOT EXISTS routes (
		id TEXT PRIMARY KEY,
		hire_id TEXT NOT NULL REFERENCES hires(id),
		host TEXT NOT NULL,
		path TEXT NOT NULL,
		target_url TEXT NOT NULL,
		redirect_code INTEGER NOT NULL DEFAULT 302
	)`,
	`CREATE INDEX IF NOT EXISTS idx_routes_hire ON routes(hire_id)`,
}

var relationalDown = []string{
	`DROP TABLE IF EXISTS routes`,
	`DROP TABLE IF EXISTS hires`,
	`DROP TABLE IF EXISTS listings`,
	`DROP TABLE IF EXISTS domains`,
}

var edgeUp = []string{
	`CREATE TABLE IF NOT EXISTS route_cache (
		cache_key TEXT PRIMARY KEY,
		target_url TEXT NOT NULL,
		redirect_code INTEGER NOT NULL,
		hire_id TEXT NOT NULL,
		route_id TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS route_meta (
		route_id TEXT PRIMARY KEY,
		host TEXT NOT NULL,
		path TEXT NOT NULL,
		hire_id TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS dedup_records (
		dedup_key TEXT PRIMARY KEY,
		expires_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_dedup_expires ON dedup_records(expires_at)`,
	`CREATE TABLE IF NOT EXISTS click_events (
		id TEXT PRIMARY KEY,
		timestamp INTEGER NOT NULL,
		host TEXT,
		path TEXT,
		route_id TEXT,
		hire_id TEXT,
		country TEXT,
		asn TEXT,
		bot_bucket TEXT,
		referrer TEXT,
		is_invalid INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_click_events_route ON click_events(route_id, timestamp)`,
}

var edgeDown = []string{
	`DROP TABLE IF EXISTS click_events`,
	`DROP TABLE IF EXISTS dedup_records`,
	`DROP TABLE IF EXISTS route_meta`,
	`DROP TABLE IF EXISTS route_cache`,
}

func main() {
	target := flag.String("target", "edge", "Migration target: relational or edge")
	direction := flag.String("direction", "up", "Migration direction: up or down")
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var db *sql.DB
	var statements []string

	switch *target {
	case "relational":
		// The relational schema belongs to the CRUD backend; this target
		// exists for local development and tests.
		db, err = database.Open(cfg.Database.Relational, false)
		if err != nil {
			log.Fatalf("Failed to open relational DB: %v", err)
		}
		statements = relationalUp
		if *direction == "down" {
			statements = relationalDown
		}
	case "edge":
		db, err = database.NewEdgeDB(cfg.Database.Edge)
		if err != nil {
			log.Fatalf("Failed to open edge DB: %v", err)
		}
		statements = edgeUp
		if *direction == "down" {
			statements = edgeDown
		}
	default:
		log.Fatalf("Unknown target %q", *target)
	}
	defer db.Close()

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
	}

	log.Printf("Migrated %s %s", *target, *direction)
}
