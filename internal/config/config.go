package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config is the process configuration, read from the environment with an
// optional .env file for development.
type Config struct {
	Addr         string
	DatabasePath string
	JWTSecret    string
	ExtractorURL string

	StripeSecretKey     string
	StripeWebhookSecret string

	// Artifact storage. When S3Bucket is empty, artifacts land on the
	// local filesystem under StorageDir.
	StorageDir  string
	S3Bucket    string
	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string

	LogLevel  string
	LogFormat string
}

// Load reads configuration from the environment. A missing .env file is not
// an error; missing required values are.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Addr:         envOr("ADDR", ":8080"),
		DatabasePath: envOr("DATABASE_PATH", "extrato.db"),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		ExtractorURL: envOr("EXTRACTOR_URL", "http://localhost:8081"),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),

		StorageDir:  envOr("STORAGE_DIR", "data/artifacts"),
		S3Bucket:    os.Getenv("S3_BUCKET"),
		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3Region:    envOr("S3_REGION", "auto"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),

		LogLevel:  envOr("LOG_LEVEL", "info"),
		LogFormat: envOr("LOG_FORMAT", "text"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.S3Bucket != "" && (cfg.S3AccessKey == "" || cfg.S3SecretKey == "") {
		return nil, fmt.Errorf("S3_ACCESS_KEY and S3_SECRET_KEY are required when S3_BUCKET is set")
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
