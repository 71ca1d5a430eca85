package config

import (
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "HOST", "MAX_UPLOAD_BYTES", "METADATA_BACKEND", "MONGO_URI",
		"MONGO_DATABASE", "USER_STORE", "DATABASE_URL", "BLOB_BUCKET",
		"BLOB_CHUNK_SIZE", "JWT_SECRET", "REDIS_URL", "SEARCH_CACHE_TTL",
		"CORS_ALLOWED_ORIGINS", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "a-very-long-test-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != 8080 || cfg.Addr() != "0.0.0.0:8080" {
		t.Fatalf("unexpected server config %+v", cfg.Server)
	}
	if cfg.MetadataBackend != BackendMongo || cfg.Users.Store != BackendMongo {
		t.Fatalf("unexpected backends %q / %q", cfg.MetadataBackend, cfg.Users.Store)
	}
	if cfg.Mongo.Database != "trackvault" || cfg.Blob.Bucket != "tracks" || cfg.Blob.ChunkSize != 255*1024 {
		t.Fatalf("unexpected storage config %+v %+v", cfg.Mongo, cfg.Blob)
	}
	if cfg.Search.CacheTTL != time.Minute || cfg.Search.RedisURL != "" {
		t.Fatalf("unexpected search config %+v", cfg.Search)
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		t.Fatal("expected development CORS origins")
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "a-very-long-test-secret")
	t.Setenv("PORT", "9090")
	t.Setenv("METADATA_BACKEND", "memory")
	t.Setenv("USER_STORE", "postgres")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/users?sslmode=disable")
	t.Setenv("SEARCH_CACHE_TTL", "5m")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9090 || cfg.MetadataBackend != BackendMemory || cfg.Users.Store != BackendPostgres {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Search.CacheTTL != 5*time.Minute {
		t.Fatalf("expected 5m ttl, got %s", cfg.Search.CacheTTL)
	}
	if got := cfg.CORS.AllowedOrigins; len(got) != 2 || got[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", got)
	}
}

func TestMemoryBackendDefaultsUsersToMemory(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "a-very-long-test-secret")
	t.Setenv("METADATA_BACKEND", "memory")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Users.Store != BackendMemory {
		t.Fatalf("expected memory user store, got %q", cfg.Users.Store)
	}
}

func TestLoadParseErrors(t *testing.T) {
	tests := map[string]string{
		"PORT":             "eighty",
		"MAX_UPLOAD_BYTES": "lots",
		"BLOB_CHUNK_SIZE":  "big",
		"SEARCH_CACHE_TTL": "forever",
	}
	for key, value := range tests {
		clearEnv(t)
		t.Setenv("JWT_SECRET", "a-very-long-test-secret")
		t.Setenv(key, value)

		if _, err := Load(); err == nil || !strings.Contains(err.Error(), key) {
			t.Fatalf("%s=%s: expected error naming the key, got %v", key, value, err)
		}
	}
}

func TestValidateAggregatesProblems(t *testing.T) {
	cfg := &Config{
		Server:          ServerConfig{Port: 0, MaxUploadBytes: 1},
		MetadataBackend: "sqlite",
		Users:           UsersConfig{Store: BackendPostgres},
		Blob:            BlobConfig{ChunkSize: 1024},
		Security:        SecurityConfig{JWTSecret: "short"},
		Search:          SearchConfig{CacheTTL: time.Second},
		Logging:         LoggingConfig{Level: "verbose", Format: "json"},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"PORT", "METADATA_BACKEND", "DATABASE_URL", "JWT_SECRET", "LOG_LEVEL"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %s in %q", want, err)
		}
	}
}
