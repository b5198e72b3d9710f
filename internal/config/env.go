package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL  string
	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string
	AIAPIKey     string
	GenModel     string
	EmbedModel   string
	EmbedDim     int
	JWTSecret    string
	Port         string
	AppEnv       string

	// Pipeline tuning.
	MaxDocumentSize     int     // chunk budget, characters
	MaxPromptSize       int     // byte cap on text passed to any LLM call
	CrawlTimeoutSec     int     // per-fetch timeout
	CrawlRPS            float64 // politeness limit for outbound fetches
	SimilarityThreshold float64 // clustering cutoff
}

// LoadConfig loads the environment variables and returns the config.
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "us-east-2"),
		BucketName:   getEnv("BUCKET_NAME", "medshield-docs"),
		AIAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GenModel:     getEnv("GEN_MODEL", "gemini-1.5-flash"),
		EmbedModel:   getEnv("EMBED_MODEL", "text-embedding-004"),
		EmbedDim:     getEnvInt("EMBED_DIM", 768),
		JWTSecret:    getEnv("JWT_SECRET", ""),
		Port:         getEnv("PORT", "8080"),
		AppEnv:       getEnv("APP_ENV", "production"),

		MaxDocumentSize:     getEnvInt("MAX_DOCUMENT_SIZE", 4000),
		MaxPromptSize:       getEnvInt("MAX_PROMPT_SIZE", 3000),
		CrawlTimeoutSec:     getEnvInt("CRAWL_TIMEOUT", 30),
		CrawlRPS:            getEnvFloat("CRAWL_RPS", 2),
		SimilarityThreshold: getEnvFloat("SIMILARITY_THRESHOLD", 0.88),
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET not set")
	}

	return cfg
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("WARN: %s=%q not a number, using default %v", key, v, def)
		return def
	}
	return f
}
