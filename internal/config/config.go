package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the service.
type Config struct {
	GoogleAPIKey    string
	EmbedModelName  string
	ChatModelName   string
	EmbedDimension  int
	Temperature     float32
	EmbedTimeout    time.Duration
	GenerateTimeout time.Duration

	QdrantURL        string
	QdrantCollection string

	DBPath    string
	UploadDir string

	ChunkWindow     int
	ChunkOverlap    int
	MaxChunksPerDoc int

	TopK             int
	ScoreThreshold   float32
	ContextDocBudget int

	MaxUploadBytes     int64
	IngestWorkers      int
	ProcessingDeadline time.Duration

	APIPort   string
	LogLevel  slog.Level
	LogFormat string
}

// Load reads configuration from environment variables and returns a Config.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or a parent directory, it is
// loaded automatically; variables already set take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	// Walk up from the working directory looking for a .env next to go.mod.
	if wd, err := os.Getwd(); err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		GoogleAPIKey:     os.Getenv("GOOGLE_API_KEY"),
		EmbedModelName:   getEnv("GEMINI_EMBED_MODEL", "gemini-embedding-001"),
		ChatModelName:    getEnv("GEMINI_CHAT_MODEL", "gemini-2.0-flash"),
		QdrantURL:        getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection: getEnv("QDRANT_COLLECTION", "documents"),
		DBPath:           getEnv("DB_PATH", "./data/kbase.db"),
		UploadDir:        getEnv("UPLOAD_DIR", "./data/uploads"),
		APIPort:          getEnv("API_PORT", "9000"),
		LogFormat:        getEnv("LOG_FORMAT", "text"),
	}

	if cfg.GoogleAPIKey == "" {
		return nil, fmt.Errorf("GOOGLE_API_KEY is required")
	}

	// EMBED_DIMENSION must match the vector size of the Qdrant collection.
	// If it changes, the collection has to be recreated.
	dimStr := os.Getenv("EMBED_DIMENSION")
	if dimStr == "" {
		return nil, fmt.Errorf("EMBED_DIMENSION is required")
	}
	dim, err := strconv.Atoi(dimStr)
	if err != nil {
		return nil, fmt.Errorf("EMBED_DIMENSION must be a valid integer: %w", err)
	}
	if dim <= 0 {
		return nil, fmt.Errorf("EMBED_DIMENSION must be greater than 0")
	}
	cfg.EmbedDimension = dim

	cfg.Temperature = float32(getEnvFloat("GEMINI_TEMPERATURE", 0.7))

	cfg.ChunkWindow = getEnvInt("CHUNK_WINDOW", 500)
	cfg.ChunkOverlap = getEnvInt("CHUNK_OVERLAP", 50)
	if cfg.ChunkOverlap >= cfg.ChunkWindow {
		return nil, fmt.Errorf("CHUNK_OVERLAP (%d) must be smaller than CHUNK_WINDOW (%d)", cfg.ChunkOverlap, cfg.ChunkWindow)
	}
	cfg.MaxChunksPerDoc = getEnvInt("MAX_CHUNKS_PER_DOC", 20)

	cfg.TopK = getEnvInt("TOP_K", 5)
	cfg.ScoreThreshold = float32(getEnvFloat("SCORE_THRESHOLD", 0.7))
	cfg.ContextDocBudget = getEnvInt("CONTEXT_DOC_BUDGET", 4000)

	cfg.MaxUploadBytes = int64(getEnvInt("MAX_UPLOAD_BYTES", 10*1024*1024))
	cfg.IngestWorkers = getEnvInt("INGEST_WORKERS", 2)

	cfg.EmbedTimeout = getEnvDuration("EMBED_TIMEOUT", 30*time.Second)
	cfg.GenerateTimeout = getEnvDuration("LLM_TIMEOUT", 60*time.Second)
	cfg.ProcessingDeadline = getEnvDuration("PROCESSING_DEADLINE", 15*time.Minute)

	switch strings.ToLower(getEnv("LOG_LEVEL", "info")) {
	case "debug":
		cfg.LogLevel = slog.LevelDebug
	case "warn":
		cfg.LogLevel = slog.LevelWarn
	case "error":
		cfg.LogLevel = slog.LevelError
	default:
		cfg.LogLevel = slog.LevelInfo
	}

	// Create data and upload directories if they don't exist.
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.MkdirAll(cfg.UploadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
