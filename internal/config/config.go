package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds server configuration, loaded from environment variables.
type Config struct {
	// Postgres
	DatabaseDSN string

	// Redis (change feed)
	RedisAddr string

	// Auth
	JWTSecret string

	// Object storage
	FileDir    string
	PublicBase string

	// HTTP
	AllowedOrigins []string
}

// Load reads configuration from the environment. A .env file in the
// working directory is honoured if present.
func Load() Config {
	_ = godotenv.Load()

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	fileDir := os.Getenv("FILE_DIR")
	if fileDir == "" {
		fileDir = "./data/files"
	}

	publicBase := os.Getenv("PUBLIC_BASE_URL")
	if publicBase == "" {
		publicBase = "http://localhost:8080"
	}

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000,http://127.0.0.1:3000"
	}

	return Config{
		DatabaseDSN:    os.Getenv("DB_DSN"),
		RedisAddr:      redisAddr,
		JWTSecret:      os.Getenv("JWT_SECRET"),
		FileDir:        fileDir,
		PublicBase:     strings.TrimRight(publicBase, "/"),
		AllowedOrigins: strings.Split(allowedOrigins, ","),
	}
}
