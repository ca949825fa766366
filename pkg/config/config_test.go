package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 8081, cfg.CatalogPort)
	assert.Equal(t, "http://localhost:8081", cfg.CatalogAddr)
	assert.Equal(t, 200*time.Millisecond, cfg.CatalogDelay)
	assert.Equal(t, StorageMemory, cfg.StorageDriver)
	assert.Equal(t, CatalogMemory, cfg.CatalogDriver)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("CATALOG_PORT", "9091")
	t.Setenv("CATALOG_DELAY", "1s")
	t.Setenv("STORAGE_DRIVER", StorageRedis)
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("DB_PORT", "6543")

	cfg := Load()

	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, "http://localhost:9091", cfg.CatalogAddr)
	assert.Equal(t, time.Second, cfg.CatalogDelay)
	assert.Equal(t, StorageRedis, cfg.StorageDriver)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 6543, cfg.Postgres.Port)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("HTTP_PORT", "eighty")
	t.Setenv("REQUEST_TIMEOUT", "soon")

	cfg := Load()

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
}
