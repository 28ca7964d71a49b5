package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://test")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("PUBLIC_BASE_URL", "")
	t.Setenv("ALLOWED_ORIGINS", "")
	t.Setenv("FILE_DIR", "")

	cfg := Load()

	assert.Equal(t, "postgres://test", cfg.DatabaseDSN)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, "http://localhost:8080", cfg.PublicBase)
	assert.Equal(t, "./data/files", cfg.FileDir)
	assert.Len(t, cfg.AllowedOrigins, 2)
}

func TestLoadTrimsPublicBase(t *testing.T) {
	t.Setenv("PUBLIC_BASE_URL", "https://chat.example.edu/")

	cfg := Load()

	assert.Equal(t, "https://chat.example.edu", cfg.PublicBase)
}
