// Package config loads service settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Metadata and user store backends.
const (
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Mongo    MongoConfig
	Blob     BlobConfig
	Users    UsersConfig
	Security SecurityConfig
	Search   SearchConfig
	CORS     CORSConfig
	Logging  LoggingConfig

	// MetadataBackend selects where the hierarchy and blobs live.
	MetadataBackend string
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port           int
	Host           string
	MaxUploadBytes int64
}

// MongoConfig holds the document store connection.
type MongoConfig struct {
	URI      string
	Database string
}

// BlobConfig holds GridFS bucket settings.
type BlobConfig struct {
	Bucket    string
	ChunkSize int32
}

// UsersConfig selects the user repository.
type UsersConfig struct {
	Store       string
	DatabaseURL string // Postgres URL when Store is postgres
}

// SecurityConfig holds security-related settings
type SecurityConfig struct {
	JWTSecret string
}

// SearchConfig configures the optional Redis result cache.
type SearchConfig struct {
	RedisURL string
	CacheTTL time.Duration
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	AllowedOrigins []string
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}

	if err := cfg.loadServer(); err != nil {
		return nil, fmt.Errorf("load server config: %w", err)
	}

	cfg.loadStorage()

	if err := cfg.loadBlob(); err != nil {
		return nil, fmt.Errorf("load blob config: %w", err)
	}

	cfg.loadSecurity()

	if err := cfg.loadSearch(); err != nil {
		return nil, fmt.Errorf("load search config: %w", err)
	}

	cfg.loadCORS()
	cfg.loadLogging()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadServer() error {
	port, err := strconv.Atoi(getEnvOrDefault("PORT", "8080"))
	if err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}
	c.Server.Port = port
	c.Server.Host = getEnvOrDefault("HOST", "0.0.0.0")

	maxUpload, err := strconv.ParseInt(getEnvOrDefault("MAX_UPLOAD_BYTES", "1073741824"), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid MAX_UPLOAD_BYTES: %w", err)
	}
	c.Server.MaxUploadBytes = maxUpload
	return nil
}

func (c *Config) loadStorage() {
	c.MetadataBackend = strings.ToLower(getEnvOrDefault("METADATA_BACKEND", BackendMongo))
	c.Mongo.URI = getEnvOrDefault("MONGO_URI", "mongodb://localhost:27017")
	c.Mongo.Database = getEnvOrDefault("MONGO_DATABASE", "trackvault")

	defaultUsers := BackendMongo
	if c.MetadataBackend == BackendMemory {
		defaultUsers = BackendMemory
	}
	c.Users.Store = strings.ToLower(getEnvOrDefault("USER_STORE", defaultUsers))
	c.Users.DatabaseURL = os.Getenv("DATABASE_URL")
}

func (c *Config) loadBlob() error {
	c.Blob.Bucket = getEnvOrDefault("BLOB_BUCKET", "tracks")

	size, err := strconv.ParseInt(getEnvOrDefault("BLOB_CHUNK_SIZE", "261120"), 10, 32)
	if err != nil {
		return fmt.Errorf("invalid BLOB_CHUNK_SIZE: %w", err)
	}
	c.Blob.ChunkSize = int32(size)
	return nil
}

func (c *Config) loadSecurity() {
	c.Security.JWTSecret = os.Getenv("JWT_SECRET")
}

func (c *Config) loadSearch() error {
	c.Search.RedisURL = os.Getenv("REDIS_URL")

	ttl, err := time.ParseDuration(getEnvOrDefault("SEARCH_CACHE_TTL", "60s"))
	if err != nil {
		return fmt.Errorf("invalid SEARCH_CACHE_TTL: %w", err)
	}
	c.Search.CacheTTL = ttl
	return nil
}

func (c *Config) loadCORS() {
	c.CORS.AllowedOrigins = splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173"))
}

// splitList splits a comma separated value, dropping blank entries.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func (c *Config) loadLogging() {
	c.Logging.Level = getEnvOrDefault("LOG_LEVEL", "info")
	c.Logging.Format = getEnvOrDefault("LOG_FORMAT", "json")
}

// Validate checks that all required configuration is present and valid
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		problems = append(problems, "PORT must be between 1 and 65535")
	}
	if c.Server.MaxUploadBytes <= 0 {
		problems = append(problems, "MAX_UPLOAD_BYTES must be positive")
	}

	switch c.MetadataBackend {
	case BackendMongo:
		if c.Mongo.URI == "" {
			problems = append(problems, "MONGO_URI is required when METADATA_BACKEND is mongo")
		}
	case BackendMemory:
	default:
		problems = append(problems, "METADATA_BACKEND must be one of: mongo, memory")
	}

	switch c.Users.Store {
	case BackendMongo:
		if c.MetadataBackend != BackendMongo {
			problems = append(problems, "USER_STORE mongo requires METADATA_BACKEND mongo")
		}
	case BackendPostgres:
		if c.Users.DatabaseURL == "" {
			problems = append(problems, "DATABASE_URL is required when USER_STORE is postgres")
		}
	case BackendMemory:
	default:
		problems = append(problems, "USER_STORE must be one of: mongo, postgres, memory")
	}

	if c.Blob.ChunkSize <= 0 {
		problems = append(problems, "BLOB_CHUNK_SIZE must be positive")
	}

	if c.Security.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET is required")
	} else if len(c.Security.JWTSecret) < 16 {
		problems = append(problems, "JWT_SECRET must be at least 16 characters")
	}

	if c.Search.CacheTTL <= 0 {
		problems = append(problems, "SEARCH_CACHE_TTL must be positive")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, "LOG_LEVEL must be one of: debug, info, warn, error")
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		problems = append(problems, "LOG_FORMAT must be one of: json, text")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}

	return nil
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// getEnvOrDefault returns the environment variable value or a default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
