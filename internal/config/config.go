package config

import (
	"errors"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds everything the server needs, loaded once at startup and
// passed into the component constructors.
type Config struct {
	Port           string
	MongoURI       string
	MongoDatabase  string
	JWTSecret      string
	JWTExpiryHours int
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	PublicBaseURL  string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	useSSL, err := strconv.ParseBool(getEnv("MINIO_USE_SSL", "false"))
	if err != nil {
		useSSL = false
	}

	expiry, err := strconv.Atoi(getEnv("JWT_EXPIRATION_HOURS", "1"))
	if err != nil || expiry <= 0 {
		expiry = 1
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		MongoURI:       getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:  getEnv("MONGO_DB", "space_server"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		JWTExpiryHours: expiry,
		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
		MinioBucket:    getEnv("MINIO_BUCKET", "space-images"),
		MinioUseSSL:    useSSL,
		PublicBaseURL:  getEnv("PUBLIC_BASE_URL", ""),
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
