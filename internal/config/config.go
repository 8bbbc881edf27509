package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr        string
	DatabaseURL string
	Env         string

	LogLevel  string
	LogFormat string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPoolSize int
	ImportQueue   string
	DLQSuffix     string

	StorageBackend string // "local" or "s3"
	UploadDir      string
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	S3Bucket       string
	S3Region       string
	S3UseSSL       bool

	APIMaxBodyBytes    int64
	ImportMaxFileBytes int64
	InlineThreshold    int64
	ChunkSize          int
	ChunkWorkers       int
	ChunkTimeout       time.Duration
	MaxStoredErrors    int
	TaskMaxAttempts    int

	ExportXLSXRowCeiling int64
	ExportBatchSize      int

	ShutdownTimeout time.Duration
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Addr:        getEnv("API_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Env:         getEnv("APP_ENV", "dev"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisPoolSize: getEnvInt("REDIS_POOL_SIZE", 10),
		ImportQueue:   getEnv("IMPORT_QUEUE", "import_jobs"),
		DLQSuffix:     getEnv("IMPORT_DLQ_SUFFIX", ":dead"),

		StorageBackend: getEnv("STORAGE_BACKEND", "local"),
		UploadDir:      getEnv("UPLOAD_DIR", "./uploads"),
		S3Endpoint:     os.Getenv("S3_ENDPOINT"),
		S3AccessKey:    os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:    os.Getenv("S3_SECRET_KEY"),
		S3Bucket:       os.Getenv("S3_BUCKET"),
		S3Region:       getEnv("S3_REGION", "us-east-1"),
		S3UseSSL:       getEnvBool("S3_USE_SSL", true),

		APIMaxBodyBytes:    int64(getEnvInt("API_MAX_BODY_MB", 64)) * 1024 * 1024,
		ImportMaxFileBytes: int64(getEnvInt("IMPORT_MAX_FILE_MB", 50)) * 1024 * 1024,
		InlineThreshold:    int64(getEnvInt("IMPORT_INLINE_THRESHOLD", 1000)),
		ChunkSize:          getEnvInt("IMPORT_CHUNK_SIZE", 10000),
		ChunkWorkers:       getEnvInt("IMPORT_CHUNK_WORKERS", 4),
		ChunkTimeout:       time.Duration(getEnvInt("IMPORT_CHUNK_TIMEOUT_SEC", 300)) * time.Second,
		MaxStoredErrors:    getEnvInt("IMPORT_MAX_STORED_ERRORS", 100),
		TaskMaxAttempts:    getEnvInt("IMPORT_TASK_MAX_ATTEMPTS", 3),

		ExportXLSXRowCeiling: int64(getEnvInt("EXPORT_XLSX_ROW_CEILING", 50000)),
		ExportBatchSize:      getEnvInt("EXPORT_BATCH_SIZE", 1000),

		ShutdownTimeout: time.Duration(getEnvInt("SHUTDOWN_TIMEOUT_SEC", 10)) * time.Second,
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.StorageBackend == "s3" && cfg.S3Bucket == "" {
		return Config{}, fmt.Errorf("S3_BUCKET is required when STORAGE_BACKEND=s3")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
