package application

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"thirdcoast.systems/tubestats/internal/config"
	"thirdcoast.systems/tubestats/internal/db"
)

var (
	dbOpenBackoffBase  = 1 * time.Second
	dbOpenBackoffScale = 1.618
)

// OpenDBPoolWithRetry initializes a new PostgreSQL connection pool with retry logic.
func OpenDBPoolWithRetry(ctx context.Context, conf config.Config) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	var lastErr error

	cfg, err := pgxpool.ParseConfig(conf.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	attempts := max(conf.DatabaseRetries, 1)

	slog.Info("Connecting to database", "host", cfg.ConnConfig.Host)
	for i := 0; i < attempts; i++ {
		if pool, err = pgxpool.NewWithConfig(ctx, cfg); err == nil {
			break
		}
		lastErr = err

		if err := sleepBackoff(ctx, i); err != nil {
			return nil, err
		}
	}

	if pool == nil {
		if lastErr != nil {
			return nil, fmt.Errorf("failed to connect to database after multiple attempts: %w", lastErr)
		}
		return nil, fmt.Errorf("failed to connect to database after multiple attempts")
	}

	for i := 0; i < attempts; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 1*time.Second)

		if err = pool.Ping(pingCtx); err == nil {
			cancel()
			slog.Info("Pinged database", "host", cfg.ConnConfig.Host)
			return pool, nil
		}
		cancel()
		lastErr = err

		if err := sleepBackoff(ctx, i); err != nil {
			pool.Close()
			return nil, err
		}
	}
	pool.Close()
	if lastErr != nil {
		return nil, fmt.Errorf("failed to ping database after multiple attempts: %w", lastErr)
	}
	return nil, fmt.Errorf("failed to ping database after multiple attempts")
}

// OpenTableStore connects to postgres, applies migrations and returns the
// table backend along with a func that releases the pool.
func OpenTableStore(ctx context.Context, conf config.Config) (*db.TableStore, func(), error) {
	pool, err := OpenDBPoolWithRetry(ctx, conf)
	if err != nil {
		return nil, nil, err
	}

	conn, err := db.NewDatabaseConnection(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	if err := conn.Migrate(ctx); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to run PostgreSQL migrations: %w", err)
	}

	return db.NewTableStore(conn), conn.Close, nil
}

func sleepBackoff(ctx context.Context, attempt int) error {
	backoff := time.Duration(float64(dbOpenBackoffBase) * math.Pow(dbOpenBackoffScale, float64(attempt)))
	slog.Warn("Retrying database", "in", backoff)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(backoff):
		return nil
	}
}
