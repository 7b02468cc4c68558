package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Host               string
	Port               string
	CORSAllowedOrigins []string

	IdentityURL        string
	IdentityServiceKey string
	IdentityJWTSecret  string

	DBHost string
	DBPort string
	DBUser string
	DBPass string
	DBName string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	MinioHost     string
	MinioPort     string
	MinioUsername string
	MinioPassword string
	MinioUseSSL   bool
	BucketName    string

	InferenceBaseURL string
	InferenceToken   string
	InferenceModel   string

	DownloadConcurrency int
	DownloadHTTPTimeout time.Duration
	DownloadRate        float64
	DownloadBurst       int

	ProgressRetention  time.Duration
	ProgressMaxEntries int
}

var AppConfig Config

// getEnv returns the environment value or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvBool(key string, defaultValue bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if value == "" {
		return defaultValue
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return defaultValue
	}
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvList(key string, defaultValue []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func mustEnv(key string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		log.Fatalf("missing required environment variable %s", key)
	}
	return value
}

// InitConfig loads configuration from .env files and the environment.
// Missing required credentials are fatal at startup.
func InitConfig() {
	_ = godotenv.Load(".env", ".env.local")

	AppConfig = Config{
		Host:               getEnv("HOST", "0.0.0.0"),
		Port:               getEnv("PORT", "3000"),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", nil),

		IdentityURL:        getEnv("IDENTITY_URL", "http://localhost:54321"),
		IdentityServiceKey: getEnv("IDENTITY_SERVICE_KEY", ""),
		IdentityJWTSecret:  mustEnv("IDENTITY_JWT_SECRET"),

		DBHost: getEnv("DB_HOST", "localhost"),
		DBPort: getEnv("DB_PORT", "3306"),
		DBUser: getEnv("DB_USER", "root"),
		DBPass: getEnv("DB_PASS", "root"),
		DBName: getEnv("DB_NAME", "inkgen"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MinioHost:     getEnv("MINIO_HOST", "localhost"),
		MinioPort:     getEnv("MINIO_PORT", "9000"),
		MinioUsername: getEnv("MINIO_USERNAME", "minioadmin"),
		MinioPassword: getEnv("MINIO_PASSWORD", "minioadmin"),
		MinioUseSSL:   getEnvBool("MINIO_USE_SSL", false),
		BucketName:    getEnv("BUCKET_NAME", "pages"),

		InferenceBaseURL: getEnv("REPLICATE_BASE_URL", "https://api.replicate.com/v1"),
		InferenceToken:   mustEnv("REPLICATE_API_TOKEN"),
		InferenceModel: getEnv(
			"REPLICATE_MODEL",
			"fofr/sdxl-fresh-ink:8515c238222fa529763ec99b4ba1fa9d32ab5d6ebc82b4281de99e4dbdcec943",
		),

		DownloadConcurrency: getEnvInt("DOWNLOAD_CONCURRENCY", 2),
		DownloadHTTPTimeout: getEnvDuration("DOWNLOAD_HTTP_TIMEOUT", 5*time.Minute),
		DownloadRate:        getEnvFloat("DOWNLOAD_RATE", 0),
		DownloadBurst:       getEnvInt("DOWNLOAD_BURST", 1),

		ProgressRetention:  getEnvDuration("PROGRESS_RETENTION", time.Hour),
		ProgressMaxEntries: getEnvInt("PROGRESS_MAX_ENTRIES", 1024),
	}
}
