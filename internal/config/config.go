package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/linklab/linkhub/internal/storage"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type Config struct {
	DatabaseDSN       string
	RedisAddr         string
	WorkerConcurrency int
	VerifySchedule    string
	Storage           storage.Config
}

// Load reads the configuration from the environment, with .env as fallback.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		DatabaseDSN:       getEnv("DATABASE_DSN", ""),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 1),
		VerifySchedule:    getEnv("VERIFY_SCHEDULE", ""),
		Storage: storage.Config{
			Bucket:          getEnv("S3_BUCKET", "linkhub"),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			PublicBaseURL:   getEnv("S3_PUBLIC_BASE_URL", ""),
			PathStyle:       getEnvBool("S3_PATH_STYLE", false),
		},
	}
}

// GetDB opens the configured database, falling back to a local sqlite file
// when no postgres DSN is set.
func GetDB(cfg *Config) *gorm.DB {
	var dialector gorm.Dialector
	if cfg.DatabaseDSN != "" {
		dialector = postgres.Open(cfg.DatabaseDSN)
	} else {
		dialector = sqlite.Open("linkhub.db")
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		panic(err)
	}

	return db
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
