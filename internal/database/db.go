// Package database owns the MySQL connection pool.
package database

import (
	"context"
	"database/sql"
	"net"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Config describes the target database. Zero pool values fall back to the
// defaults below.
type Config struct {
	User string
	Pass string
	Host string
	Port string
	Name string

	MaxConns     int           // open and idle connection cap, default 25
	ConnLifetime time.Duration // default 30m, below typical wait_timeout
}

const (
	defaultMaxConns     = 25
	defaultConnLifetime = 30 * time.Minute
)

// dsn renders the go-sql-driver address. parseTime maps DATETIME columns to
// time.Time and loc=UTC keeps every timestamp in one zone.
func (c Config) dsn() string {
	creds := c.User
	if c.Pass != "" {
		creds += ":" + c.Pass
	}
	return creds + "@tcp(" + net.JoinHostPort(c.Host, c.Port) + ")/" + c.Name +
		"?charset=utf8mb4&parseTime=true&loc=UTC"
}

// Open connects, tunes the pool, and verifies the connection with a bounded
// ping.
func Open(cfg Config) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.dsn())
	if err != nil {
		return nil, err
	}

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = defaultMaxConns
	}
	lifetime := cfg.ConnLifetime
	if lifetime <= 0 {
		lifetime = defaultConnLifetime
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	db.SetConnMaxLifetime(lifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
