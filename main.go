package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"clinic-checklist/checklist-service/config"
	"clinic-checklist/checklist-service/handlers"
	"clinic-checklist/checklist-service/logging"
	custommw "clinic-checklist/checklist-service/middleware"
	"clinic-checklist/checklist-service/repositories"
	"clinic-checklist/checklist-service/services"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		// Not fatal: the environment may already carry the config.
		fmt.Println("No .env file loaded:", err)
	}

	cfg := config.Load()
	logging.InitLogger("checklist-service", cfg.LogFile, cfg.LogLevel)
	logging.Logger.Info("Event ID: SERVICE_START, Description: Starting Checklist Service...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		logging.Logger.Fatalf("Event ID: DB_CONNECTION_FAILED, Description: Database connection for MongoDB failed: %v", err)
	}
	defer mongoClient.Disconnect(ctx)

	if err := mongoClient.Ping(ctx, nil); err != nil {
		logging.Logger.Fatalf("Event ID: DB_PING_FAILED, Description: MongoDB connection ping error: %v", err)
	}
	logging.Logger.Infof("Event ID: DB_CONNECTED, Description: Successfully connected to MongoDB at %s.", cfg.Mongo.URI)

	db := mongoClient.Database(cfg.Mongo.DBName)
	entriesCollection := db.Collection(cfg.Mongo.EntriesCollection)
	tasksCollection := db.Collection(cfg.Mongo.TasksCollection)
	areasCollection := db.Collection(cfg.Mongo.AreasCollection)

	checklistRepo := repositories.NewChecklistRepo(entriesCollection)
	if err := checklistRepo.EnsureIndexes(ctx); err != nil {
		logging.Logger.Fatalf("Event ID: DB_INDEX_FAILED, Description: Failed to ensure checklist indexes: %v", err)
	}
	catalogRepo := repositories.NewTaskCatalogRepo(tasksCollection, areasCollection)

	checklistService := services.NewChecklistService(catalogRepo, checklistRepo)
	exportService := services.NewExportService(checklistService, cfg.ClinicName)
	checklistHandler := handlers.NewChecklistHandler(checklistService, exportService)

	r := mux.NewRouter()
	r.Handle("/metrics", custommw.MetricsHandler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/checklist").Subrouter()
	api.Use(custommw.JWTAuthMiddleware)
	api.HandleFunc("", checklistHandler.GetChecklistByDate).Methods(http.MethodGet)
	api.HandleFunc("/statistics", checklistHandler.GetStatistics).Methods(http.MethodGet)
	api.HandleFunc("/save", checklistHandler.SaveChecklist).Methods(http.MethodPost)
	api.HandleFunc("/export/csv", checklistHandler.ExportCSV).Methods(http.MethodGet)
	api.HandleFunc("/export/pdf", checklistHandler.ExportPDF).Methods(http.MethodGet)
	api.HandleFunc("/{taskId}", checklistHandler.UpdateEntry).Methods(http.MethodPut)

	corsRouter := enableCORS(custommw.MetricsMiddleware(r))

	serverAddress := fmt.Sprintf(":%s", cfg.ServerPort)
	logging.Logger.Infof("Event ID: SERVER_START_INFO, Description: Server running on http://localhost%s", serverAddress)

	if err := http.ListenAndServe(serverAddress, corsRouter); err != nil {
		logging.Logger.Fatalf("Event ID: SERVER_FATAL_ERROR, Description: Server failed to start: %v", err)
	}
}
