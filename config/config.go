package config

import (
	"os"
)

type MongoConfig struct {
	URI               string
	DBName            string
	TasksCollection   string
	AreasCollection   string
	EntriesCollection string
}

type Config struct {
	ServerPort string
	JWTSecret  string
	LogFile    string
	LogLevel   string
	ClinicName string
	Mongo      MongoConfig
}

// Load reads the service configuration from environment variables.
// A .env file, if present, is loaded by main before this is called.
func Load() *Config {
	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8084"),
		JWTSecret:  getEnv("JWT_SECRET", ""),
		LogFile:    getEnv("LOG_FILE", "logs/checklist.log"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		ClinicName: getEnv("CLINIC_NAME", "Sugar & Heart Clinic"),
		Mongo: MongoConfig{
			URI:               getEnv("MONGO_URI", "mongodb://localhost:27017"),
			DBName:            getEnv("MONGO_DB_NAME", "checklist_db"),
			TasksCollection:   getEnv("MONGO_TASKS_COLLECTION", "tasks"),
			AreasCollection:   getEnv("MONGO_AREAS_COLLECTION", "areas"),
			EntriesCollection: getEnv("MONGO_ENTRIES_COLLECTION", "checklist_entries"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
