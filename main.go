// backend/main.go
package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/patrickmn/go-cache"

	"github.com/statify/backend/src/config"
	"github.com/statify/backend/src/database"
	"github.com/statify/backend/src/handlers"
	"github.com/statify/backend/src/logger"
	"github.com/statify/backend/src/parsers"
	"github.com/statify/backend/src/parsers/csvparser"
	"github.com/statify/backend/src/parsers/excelparser"
	"github.com/statify/backend/src/parsers/pdfparser"
	"github.com/statify/backend/src/services"
	"github.com/statify/backend/src/storage"
)

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	logger.L.Info("Starting statify backend...")

	database.InitDB(config.Cfg.DatabasePath)
	defer func() {
		if database.DB != nil {
			logger.L.Info("Closing database connection...")
			database.DB.Close()
		}
	}()

	store := storage.NewSQLiteStore(database.DB)
	summaryCache := cache.New(services.DefaultCacheExpiration, services.CacheCleanupInterval)

	parserRegistry := []parsers.FileParser{
		csvparser.NewParser(config.Cfg.DefaultCurrency),
		excelparser.NewParser(config.Cfg.DefaultCurrency),
		pdfparser.NewParser(config.Cfg.DefaultCurrency),
	}

	categorizer := services.NewCategorizationService(store)
	detector := services.NewAnomalyService(store)
	uploadService := services.NewUploadService(
		store,
		parserRegistry,
		categorizer,
		detector,
		config.Cfg.IngestWorkers,
		config.Cfg.IngestQueueSize,
		summaryCache,
	)
	defer uploadService.Close()

	uploadHandler := handlers.NewUploadHandler(uploadService, store)
	anomalyHandler := handlers.NewAnomalyHandler(uploadService, store)
	rulesHandler := handlers.NewRulesHandler(store)

	mux := http.NewServeMux()

	// Upload lifecycle
	mux.HandleFunc("POST /api/v1/uploads", uploadHandler.HandleUpload)
	mux.HandleFunc("GET /api/v1/uploads/{id}", uploadHandler.HandleGetUpload)
	mux.HandleFunc("GET /api/v1/uploads/{id}/preview", uploadHandler.HandleGetPreview)
	mux.HandleFunc("GET /api/v1/uploads/{id}/transactions", uploadHandler.HandleGetTransactions)
	mux.HandleFunc("GET /api/v1/uploads/{id}/summary", uploadHandler.HandleGetSummary)
	mux.HandleFunc("GET /api/v1/uploads/{id}/report", uploadHandler.HandleGetReport)

	// Transactions
	mux.HandleFunc("PATCH /api/v1/transactions/{id}/category", uploadHandler.HandleOverrideCategory)

	// Anomalies
	mux.HandleFunc("GET /api/v1/uploads/{id}/anomalies", anomalyHandler.HandleListAnomalies)
	mux.HandleFunc("PATCH /api/v1/anomalies/{id}/status", anomalyHandler.HandleUpdateAnomalyStatus)

	// Categories and rules
	mux.HandleFunc("GET /api/v1/categories", rulesHandler.HandleListCategories)
	mux.HandleFunc("GET /api/v1/rules", rulesHandler.HandleListRules)
	mux.HandleFunc("POST /api/v1/rules", rulesHandler.HandleCreateRule)
	mux.HandleFunc("PUT /api/v1/rules/{id}", rulesHandler.HandleUpdateRule)
	mux.HandleFunc("DELETE /api/v1/rules/{id}", rulesHandler.HandleDeleteRule)

	var handler http.Handler = mux
	handler = handlers.RateLimitMiddleware(handler)
	handler = handlers.EnableCORS(handler)

	server := &http.Server{
		Addr:    ":" + config.Cfg.Port,
		Handler: handler,
	}

	go func() {
		logger.L.Info("Server starting", "port", config.Cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.L.Error("Could not listen on port", "port", config.Cfg.Port, "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.L.Info("Shutting down server...")
	if err := server.Close(); err != nil {
		logger.L.Error("Server shutdown error", "error", err)
	}
	logger.L.Info("Server stopped.")
}
