package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StorageMongo    = "mongo"
	StoragePostgres = "postgres"

	CatalogMemory = "memory"
	CatalogSQLite = "sqlite"
)

type Config struct {
	AppEnv   string
	LogLevel string

	HTTPPort    int
	CatalogPort int
	// CatalogAddr is the base URL the storefront uses to reach the catalog.
	CatalogAddr   string
	CatalogDelay  time.Duration
	CatalogDriver string
	SQLitePath    string

	StorageDriver string
	CartTTL       time.Duration
	RedisAddr     string
	RedisPassword string
	MongoURI      string
	MongoDBName   string
	Postgres      PostgresConfig

	KafkaBrokers []string
	KafkaTopic   string

	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

func Load() Config {
	catalogPort := getEnvInt("CATALOG_PORT", 8081)
	return Config{
		AppEnv:   getEnv("APP_ENV", "dev"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		HTTPPort:      getEnvInt("HTTP_PORT", 8080),
		CatalogPort:   catalogPort,
		CatalogAddr:   getEnv("CATALOG_ADDR", "http://localhost:"+strconv.Itoa(catalogPort)),
		CatalogDelay:  getEnvDuration("CATALOG_DELAY", 200*time.Millisecond),
		CatalogDriver: getEnv("CATALOG_DRIVER", CatalogMemory),
		SQLitePath:    getEnv("SQLITE_PATH", ":memory:"),

		StorageDriver: getEnv("STORAGE_DRIVER", StorageMemory),
		CartTTL:       getEnvDuration("CART_TTL", 0),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:   getEnv("MONGO_DB_NAME", "storefront"),
		Postgres: PostgresConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "storefront"),
		},

		KafkaBrokers: getEnvList("KAFKA_BROKERS"),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "cart-events"),

		RequestTimeout:     getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout:    getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxRequestBodySize: 1 << 20, // 1MB
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
