package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=granja port=5432 sslmode=disable"

type Config struct {
	HTTPPort         string
	DatabaseDSN      string
	JWTSecret        string
	CORSOrigins      string
	RedisAddress     string // vacío: sin lock distribuido, solo control de versión
	LedgerMaxRetries int
	LedgerLockTTL    time.Duration
	LogLevel         string
}

func Load() *Config {
	// .env opcional; en producción las variables vienen del entorno
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort:         getEnv("HTTP_PORT", "8080"),
		DatabaseDSN:      getEnv("DATABASE_DSN", defaultDSN),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		CORSOrigins:      getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		RedisAddress:     getEnv("REDIS_ADDRESS", ""),
		LedgerMaxRetries: getEnvInt("LEDGER_MAX_RETRIES", 3),
		LedgerLockTTL:    getEnvDuration("LEDGER_LOCK_TTL", 10*time.Second),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
	}

	SetLogLevel(cfg.LogLevel)
	logger := GetLogger()

	if err := cfg.Validate(); err != nil {
		logger.Fatalf("[FATAL] %v", err)
	}
	if cfg.DatabaseDSN == defaultDSN {
		logger.Warn("DATABASE_DSN usa el valor por defecto, define tu propia conexión Postgres en producción")
	}
	if cfg.CORSOrigins == "http://localhost:3000" {
		logger.Warn("CORS_ALLOWED_ORIGINS usa el valor por defecto, define tu dominio en producción")
	}
	if cfg.RedisAddress == "" {
		logger.Info("REDIS_ADDRESS vacío: los ajustes de stock se serializan solo con control de versión")
	}

	return cfg
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET no está definido")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET debe tener al menos 32 caracteres")
	}
	if c.LedgerMaxRetries < 1 {
		return fmt.Errorf("LEDGER_MAX_RETRIES debe ser al menos 1")
	}
	if c.LedgerLockTTL <= 0 {
		return fmt.Errorf("LEDGER_LOCK_TTL debe ser positivo")
	}
	return nil
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
		GetLogger().Warnf("%s=%q no es un entero, se usa %d", key, v, def)
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
		GetLogger().Warnf("%s=%q no es una duración válida, se usa %s", key, v, def)
		return def
	}
	return d
}
