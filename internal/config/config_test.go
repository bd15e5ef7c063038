package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		JWTSecret:        strings.Repeat("s", 32),
		LedgerMaxRetries: 3,
		LedgerLockTTL:    10 * time.Second,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing secret", mutate: func(c *Config) { c.JWTSecret = "" }, wantErr: "no está definido"},
		{name: "short secret", mutate: func(c *Config) { c.JWTSecret = "corto" }, wantErr: "32 caracteres"},
		{name: "zero retries", mutate: func(c *Config) { c.LedgerMaxRetries = 0 }, wantErr: "LEDGER_MAX_RETRIES"},
		{name: "zero lock ttl", mutate: func(c *Config) { c.LedgerLockTTL = 0 }, wantErr: "LEDGER_LOCK_TTL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("GRANJA_TEST_INT", "7")
	t.Setenv("GRANJA_TEST_BAD_INT", "siete")
	t.Setenv("GRANJA_TEST_DURATION", "250ms")

	assert.Equal(t, 7, getEnvInt("GRANJA_TEST_INT", 3))
	assert.Equal(t, 3, getEnvInt("GRANJA_TEST_BAD_INT", 3))
	assert.Equal(t, 3, getEnvInt("GRANJA_TEST_MISSING", 3))
	assert.Equal(t, 250*time.Millisecond, getEnvDuration("GRANJA_TEST_DURATION", time.Second))
	assert.Equal(t, "def", getEnv("GRANJA_TEST_MISSING", "def"))
}
