package config

import (
	"encoding/hex"
	"log"
	"os"
	"strconv"
)

// Config holds all runtime configuration. Each field maps to one environment
// variable; required ones are enforced by must() and abort startup when
// absent. Access and refresh tokens are signed with separate secrets so a
// leaked token of one class cannot be replayed as the other.
type Config struct {
	Env            string // APP_ENV: dev | test | prod
	Port           string // APP_PORT
	DBUser         string // DB_USER
	DBPass         string // DB_PASS (optional)
	DBHost         string // DB_HOST
	DBPort         string // DB_PORT
	DBName         string // DB_NAME
	AccessSecret   string // JWT_ACCESS_SECRET
	RefreshSecret  string // JWT_REFRESH_SECRET
	AccessTTLMin   int    // ACCESS_TOKEN_TTL_MIN
	RefreshTTLDays int    // REFRESH_TOKEN_TTL_DAYS
	BcryptCost     int    // BCRYPT_COST
	EncryptionKey  []byte // ENCRYPTION_KEY: 64 hex chars -> 32-byte AES key
}

// Load reads configuration from the environment. Missing or malformed
// required values are fatal; there is no sane fallback for signing material.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		AccessSecret:   must("JWT_ACCESS_SECRET"),
		RefreshSecret:  must("JWT_REFRESH_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),
		EncryptionKey:  mustKey("ENCRYPTION_KEY"),
	}
}

// IsProd controls cookie hardening (Secure, SameSite=Strict).
func (c Config) IsProd() bool { return c.Env == "prod" }

func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func mustKey(key string) []byte {
	raw, err := hex.DecodeString(must(key))
	if err != nil || len(raw) != 32 {
		log.Fatalf("%s must be 64 hex characters (32 bytes)", key)
	}
	return raw
}
