package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/pradeepg78/TrainSense/handlers"
	"github.com/pradeepg78/TrainSense/internal/config"
	"github.com/pradeepg78/TrainSense/internal/metrics"
	"github.com/pradeepg78/TrainSense/internal/realtime/arrivals"
	"github.com/pradeepg78/TrainSense/internal/realtime/mta"
	"github.com/pradeepg78/TrainSense/internal/shapes"
	"github.com/pradeepg78/TrainSense/internal/topology"
	"github.com/pradeepg78/TrainSense/repository"
)

func main() {
	// Load base .env first, then .env.local (which overrides for local development)
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	cfg := config.Load()

	tables, err := config.LoadTables(cfg.TablesPath)
	if err != nil {
		log.Fatalf("Failed to load lookup tables: %v", err)
	}

	// Open the topology store: Postgres when DATABASE_URL is set, else
	// the local SQLite file produced by cmd/import-gtfs.
	var (
		repo    handlers.TopologyRepository
		cleanup func()
	)
	if cfg.DatabaseURL != "" {
		log.Println("Connecting to Postgres database")
		pgRepo, err := repository.NewPostgresTopologyRepository(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to initialize Postgres database: %v", err)
		}
		repo = pgRepo
		cleanup = pgRepo.Close
	} else {
		log.Printf("Connecting to SQLite database: %s", cfg.DatabasePath)
		sqliteDB, err := repository.NewSQLiteDB(cfg.DatabasePath)
		if err != nil {
			log.Fatalf("Failed to initialize SQLite database: %v", err)
		}
		repo = repository.NewSQLiteTopologyRepository(sqliteDB.GetDB())
		cleanup = func() { sqliteDB.Close() }
	}
	defer cleanup()

	log.Println("Database connection established")

	collector := metrics.NewCollector()
	feedClient := mta.NewClient(cfg, tables, collector)
	aggregator := arrivals.New(tables.DisplayOrder, cfg.ArrivalsPerGroup, cfg.ArrivalHorizon)
	hubResolver := topology.NewResolver(cfg.TransferRouteMin, tables.DisplayOrder)
	trunkMerger := shapes.NewMerger(tables)

	transitHandler := handlers.NewTransitHandler(repo, hubResolver)
	realtimeHandler := handlers.NewRealtimeHandler(repo, feedClient, aggregator, tables, collector)
	shapeHandler := handlers.NewShapeHandler(repo, trunkMerger, tables)

	// Setup router
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	// Health check endpoint with database connectivity test
	r.Get("/api/health", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := repo.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status":    "error",
				"database":  "disconnected",
				"timestamp": time.Now().UTC(),
				"error":     err.Error(),
			})
			return
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":    "ok",
			"database":  "connected",
			"timestamp": time.Now().UTC(),
		})
	})

	// Static topology
	r.Get("/api/routes", transitHandler.GetRoutes)
	r.Get("/api/routes/{routeID}/stops", transitHandler.GetRouteStops)
	r.Get("/api/stops", transitHandler.GetStops)
	r.Get("/api/stops/nearby", transitHandler.GetNearbyStops)
	r.Get("/api/stops/{stopID}/routes", transitHandler.GetStopRoutes)
	r.Get("/api/map/stations", transitHandler.GetMapStations)
	r.Get("/api/data/stats", transitHandler.GetDataStats)
	r.Post("/api/plan-trip", transitHandler.PlanTrip)

	// Realtime
	r.Get("/api/realtime/health", realtimeHandler.GetRealtimeHealth)
	r.Get("/api/realtime/{stopID}", realtimeHandler.GetStopArrivals)
	r.Get("/api/service-status", realtimeHandler.GetServiceStatus)

	// Shapes
	r.Get("/api/route-shape/{routeID}", shapeHandler.GetRouteShape)
	r.Get("/api/trunk-shapes", shapeHandler.GetTrunkShapes)

	// Prometheus exposition
	r.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("API server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
