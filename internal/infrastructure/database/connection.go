package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/davidleathers/p2p-trade-desk-backend/internal/infrastructure/config"
)

const (
	defaultMaxConns     = 25
	defaultConnLifetime = 30 * time.Minute
	statsInterval       = 30 * time.Second
)

// PoolObserver receives the open connection count after every stats sweep
type PoolObserver interface {
	SetDBPoolSize(size int64)
}

// ConnectionPool owns the pgx pool. Repositories use the database/sql
// handle from DB; pgx stays the driver underneath.
type ConnectionPool struct {
	pool   *pgxpool.Pool
	db     *sql.DB
	logger *zap.Logger

	mu       sync.Mutex
	observer PoolObserver

	stop      context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// NewConnectionPool connects, pings and starts the background stats sweep
func NewConnectionPool(ctx context.Context, cfg *config.DatabaseConfig, logger *zap.Logger) (*ConnectionPool, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg == nil || cfg.URL == "" {
		return nil, fmt.Errorf("database url is required")
	}

	pc, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, pc)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	sweepCtx, stop := context.WithCancel(context.Background())
	p := &ConnectionPool{
		pool:   pool,
		db:     stdlib.OpenDBFromPool(pool),
		logger: logger,
		stop:   stop,
		done:   make(chan struct{}),
	}
	go p.sweep(sweepCtx)

	logger.Info("database connection pool initialized",
		zap.String("host", pc.ConnConfig.Host),
		zap.String("database", pc.ConnConfig.Database),
		zap.Int32("max_connections", pc.MaxConns))

	return p, nil
}

// poolConfig parses the URL and layers the configured limits and session
// parameters on top
func poolConfig(cfg *config.DatabaseConfig) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pc.MaxConns = defaultMaxConns
	if cfg.MaxOpenConns > 0 {
		pc.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		pc.MinConns = min(int32(cfg.MaxIdleConns), pc.MaxConns)
	}
	pc.MaxConnLifetime = defaultConnLifetime
	if cfg.ConnMaxLifetime > 0 {
		pc.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	pc.MaxConnIdleTime = 10 * time.Minute
	pc.HealthCheckPeriod = time.Minute

	if pc.ConnConfig.ConnectTimeout == 0 {
		pc.ConnConfig.ConnectTimeout = 5 * time.Second
	}
	for k, v := range map[string]string{
		"application_name":                    "p2p_trade_desk",
		"timezone":                            "UTC",
		"statement_timeout":                   "30s",
		"idle_in_transaction_session_timeout": "60s",
	} {
		if _, set := pc.ConnConfig.RuntimeParams[k]; !set {
			pc.ConnConfig.RuntimeParams[k] = v
		}
	}
	return pc, nil
}

// SetObserver registers a receiver for pool size updates
func (p *ConnectionPool) SetObserver(o PoolObserver) {
	p.mu.Lock()
	p.observer = o
	p.mu.Unlock()
}

// DB returns the database/sql view over the pool
func (p *ConnectionPool) DB() *sql.DB {
	return p.db
}

func (p *ConnectionPool) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *ConnectionPool) sweep(ctx context.Context) {
	defer close(p.done)
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.reportStats(ctx)
		}
	}
}

func (p *ConnectionPool) reportStats(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.pool.Ping(pingCtx); err != nil {
		p.logger.Error("database ping failed", zap.Error(err))
	}

	stats := p.pool.Stat()
	p.mu.Lock()
	observer := p.observer
	p.mu.Unlock()
	if observer != nil {
		observer.SetDBPoolSize(int64(stats.TotalConns()))
	}

	p.logger.Debug("database pool stats",
		zap.Int32("total", stats.TotalConns()),
		zap.Int32("acquired", stats.AcquiredConns()),
		zap.Int32("idle", stats.IdleConns()),
		zap.Int64("max_lifetime_destroyed", stats.MaxLifetimeDestroyCount()))
}

// Close stops the stats sweep and closes every connection. Safe to call twice.
func (p *ConnectionPool) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.stop()
		<-p.done
		err = p.db.Close()
		p.pool.Close()
		p.logger.Info("database connection pool closed")
	})
	return err
}
