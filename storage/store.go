// Package storage keeps a log of resolved searches for diagnosis.
package storage

import (
	"context"
	"fmt"

	"github.com/amirhf/imageSearch/services/search-web/models"
)

// Driver identifiers.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// HistoryStore records search outcomes and lists the most recent ones,
// newest first.
type HistoryStore interface {
	Record(ctx context.Context, outcome models.SearchOutcome) error
	Recent(ctx context.Context, limit int) ([]models.SearchOutcome, error)
	Close() error
}

type Config struct {
	Driver string
	// Capacity bounds how many outcomes the memory and redis drivers keep.
	Capacity    int
	RedisAddr   string
	RedisPrefix string
	SQLiteDSN   string
	DatabaseURL string
}

// New opens the store selected by cfg.Driver.
func New(ctx context.Context, cfg Config) (HistoryStore, error) {
	switch cfg.Driver {
	case "", DriverMemory:
		return NewMemoryStore(cfg.Capacity), nil
	case DriverRedis:
		return NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPrefix, cfg.Capacity)
	case DriverSQLite:
		return OpenSQLiteStore(cfg.SQLiteDSN)
	case DriverPostgres:
		return NewPostgresStore(ctx, cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unsupported history driver: %s", cfg.Driver)
	}
}

func clampLimit(limit, max int) int {
	if limit <= 0 {
		limit = 50
	}
	if max > 0 && limit > max {
		limit = max
	}
	return limit
}
