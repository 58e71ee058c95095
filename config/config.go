package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultPort          = "8080"
	defaultPromptWindow  = 60 * time.Second
	defaultSessionTTL    = 14 * 24 * time.Hour
	defaultVAPIDContact  = "mailto:admin@momentary.app"
	defaultMinioEndpoint = "minio:9000"
	defaultMinioBucket   = "photos"
)

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Secure    bool
}

type Config struct {
	Port        string
	DatabaseURL string

	// SessionSecret signs the session cookie tokens.
	SessionSecret string
	SessionTTL    time.Duration

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDContact    string

	// AdminUsername may trigger prompts out of schedule.
	AdminUsername string

	PromptWindow time.Duration

	Minio MinioConfig
}

// LoadConfig reads the configuration from the environment, with a .env
// file as optional local override.
func LoadConfig() (*Config, error) {
	// A missing .env file is fine, the environment wins anyway
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnvOrDefault("PORT", defaultPort),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		SessionSecret:   os.Getenv("APP_SESSION_SECRET"),
		SessionTTL:      defaultSessionTTL,
		VAPIDPublicKey:  os.Getenv("VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("VAPID_PRIVATE_KEY"),
		VAPIDContact:    getEnvOrDefault("VAPID_CONTACT", defaultVAPIDContact),
		AdminUsername:   os.Getenv("ADMIN_USERNAME"),
		PromptWindow:    defaultPromptWindow,
		Minio: MinioConfig{
			Endpoint:  getEnvOrDefault("MINIO_ENDPOINT", defaultMinioEndpoint),
			AccessKey: getEnvOrDefault("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey: getEnvOrDefault("MINIO_SECRET_KEY", "minioadmin"),
			Bucket:    getEnvOrDefault("MINIO_BUCKET", defaultMinioBucket),
			Secure:    getEnvBool("MINIO_SECURE"),
		},
	}

	if seconds := os.Getenv("PROMPT_WINDOW_SECONDS"); seconds != "" {
		parsed, err := strconv.Atoi(seconds)
		if err != nil {
			return nil, fmt.Errorf("invalid PROMPT_WINDOW_SECONDS: %w", err)
		}
		cfg.PromptWindow = time.Duration(parsed) * time.Second
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}
	if cfg.SessionSecret == "" {
		return nil, fmt.Errorf("APP_SESSION_SECRET is not set")
	}

	return cfg, nil
}

func getEnvOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string) bool {
	return os.Getenv(key) == "true"
}
