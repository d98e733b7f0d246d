package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	FrontendOrigin string

	// Database
	DBDriver   string // "sqlite" or "postgres"
	DBPath     string // sqlite file path
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// WhatsApp Cloud API
	VerifyToken   string
	WhatsAppToken string
	PhoneNumberID string
	GraphAPIBase  string

	// Logging
	LogFile string

	// Campaign scheduler poll interval in seconds
	SchedulerInterval int
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: Error loading .env file")
	}

	return &Config{
		Port:           getEnv("PORT", "8080"),
		FrontendOrigin: getEnv("FRONTEND_ORIGIN", "*"),

		DBDriver:   getEnv("DB_DRIVER", "sqlite"),
		DBPath:     getEnv("DB_PATH", "./console.db"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "whatsapp_console"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		VerifyToken:   getEnv("VERIFY_TOKEN", ""),
		WhatsAppToken: getEnv("WHATSAPP_TOKEN", ""),
		PhoneNumberID: getEnv("PHONE_NUMBER_ID", ""),
		GraphAPIBase:  getEnv("GRAPH_API_BASE", "https://graph.facebook.com/v22.0"),

		LogFile: getEnv("LOG_FILE", ""),

		SchedulerInterval: getEnvInt("SCHEDULER_INTERVAL", 30),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}
