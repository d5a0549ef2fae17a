package main

import (
	"log"
	"time"

	"hirelink/internal/engine/dedup"
	"hirelink/internal/engine/routes"
	"hirelink/internal/pkg/logger"
	"hirelink/internal/platform/config"
	"hirelink/internal/platform/database"
	"hirelink/internal/platform/repositories"
	"hirelink/internal/workers"
)

func main() {
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.Logging)

	relationalDB, err := database.NewRelationalDB(cfg.Database.Relational)
	if err != nil {
		log.Fatalf("Failed to connect to relational DB: %v", err)
	}
	defer relationalDB.Close()

	edgeDB, err := database.NewEdgeDB(cfg.Database.Edge)
	if err != nil {
		log.Fatalf("Failed to connect to edge DB: %v", err)
	}
	defer edgeDB.Close()

	routeRepo := repositories.NewRouteRepository(relationalDB)
	cacheStore := routes.NewSQLCacheStore(edgeDB)
	metaStore := routes.NewSQLMetaStore(edgeDB)
	coordinator := routes.NewCoordinator(routeRepo, cacheStore, metaStore)
	dedupStore := dedup.NewStore(edgeDB, cfg.Dedup.Window)

	reconciler := workers.NewReconciler(routeRepo, coordinator, cacheStore, dedupStore)

	interval := cfg.Reconciler.Interval
	if interval <= 0 {
		interval = time.Hour
	}

	log.Printf("Reconcile worker starting, interval %v", interval)

	reconciler.Run()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		reconciler.Run()
	}
}
