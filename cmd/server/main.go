package main

import (
	"fmt"
	"log"
	"net/http"

	"hirelink/internal/api"
	"hirelink/internal/api/handlers"
	"hirelink/internal/api/middleware"
	"hirelink/internal/engine/analytics"
	"hirelink/internal/engine/dedup"
	"hirelink/internal/engine/routes"
	"hirelink/internal/pkg/geoip"
	"hirelink/internal/pkg/logger"
	"hirelink/internal/platform/config"
	"hirelink/internal/platform/database"
	"hirelink/internal/platform/repositories"
)

func main() {
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.Logging)

	// Database connections
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

	// Stores and coordinator
	routeRepo := repositories.NewRouteRepository(relationalDB)
	cacheStore := routes.NewSQLCacheStore(edgeDB)
	metaStore := routes.NewSQLMetaStore(edgeDB)
	coordinator := routes.NewCoordinator(routeRepo, cacheStore, metaStore)

	dedupStore := dedup.NewStore(edgeDB, cfg.Dedup.Window)
	defer dedupStore.Stop()

	sink := analytics.NewSQLSink(edgeDB)
	geoResolver := geoip.NewStaticResolver()

	// Handlers
	redirectHandler := handlers.NewRedirectHandler(cacheStore, dedupStore, sink, geoResolver)
	dedupHandler := handlers.NewDedupHandler(dedupStore)
	syncHandler := handlers.NewSyncHandler(coordinator)
	healthHandler := handlers.NewHealthHandler(relationalDB, edgeDB)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.RedirectPerMinute)

	// Router
	deps := &api.Dependencies{
		RedirectHandler: redirectHandler,
		DedupHandler:    dedupHandler,
		SyncHandler:     syncHandler,
		HealthHandler:   healthHandler,
		RateLimiter:     rateLimiter,
	}
	router := api.NewRouter(deps)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	log.Printf("Edge server starting on %s", addr)
	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
