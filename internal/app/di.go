// Package app provides the dependency injection container assembling all
// application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/allisson/vaultfs/internal/config"
	cryptoDomain "github.com/allisson/vaultfs/internal/crypto/domain"
	"github.com/allisson/vaultfs/internal/database"
	apphttp "github.com/allisson/vaultfs/internal/http"
	"github.com/allisson/vaultfs/internal/metrics"
	userDomain "github.com/allisson/vaultfs/internal/user/domain"
)

// Container holds all application dependencies and provides methods to access them.
// Components are created lazily on first access and cached; initialization
// errors are sticky.
type Container struct {
	config *config.Config

	// background carries process-lifetime goroutines (rate limiter cleanup).
	background       context.Context
	cancelBackground context.CancelFunc

	mu    sync.Mutex
	built map[string]any
	errs  map[string]error

	logger *slog.Logger
	once   sync.Once
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	ctx, cancel := context.WithCancel(context.Background())
	return &Container{
		config:           cfg,
		background:       ctx,
		cancelBackground: cancel,
		built:            make(map[string]any),
		errs:             make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
func (c *Container) Logger() *slog.Logger {
	c.once.Do(func() {
		var logLevel slog.Level
		switch c.config.LogLevel {
		case "debug":
			logLevel = slog.LevelDebug
		case "info":
			logLevel = slog.LevelInfo
		case "warn":
			logLevel = slog.LevelWarn
		case "error":
			logLevel = slog.LevelError
		default:
			logLevel = slog.LevelInfo
		}

		c.logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: logLevel,
		}))
	})
	return c.logger
}

// get builds a component once, caching the value or the error under key.
// The lock is released while build runs: builders call other accessors
// recursively, and container assembly happens on the startup goroutine, so
// the check-build-store sequence does not need to be atomic.
func get[T any](c *Container, key string, build func() (T, error)) (T, error) {
	c.mu.Lock()
	if err, ok := c.errs[key]; ok {
		c.mu.Unlock()
		var zero T
		return zero, err
	}
	if val, ok := c.built[key]; ok {
		c.mu.Unlock()
		return val.(T), nil
	}
	c.mu.Unlock()

	val, err := build()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.errs[key] = err
		var zero T
		return zero, err
	}
	if existing, ok := c.built[key]; ok {
		return existing.(T), nil
	}
	c.built[key] = val
	return val, nil
}

// DB returns the database connection.
func (c *Container) DB() (*sql.DB, error) {
	return get(c, "db", func() (*sql.DB, error) {
		db, err := database.Connect(database.Config{
			Driver:             c.config.DBDriver,
			ConnectionString:   c.config.DBConnectionString,
			MaxOpenConnections: c.config.DBMaxOpenConnections,
			MaxIdleConnections: c.config.DBMaxIdleConnections,
			ConnMaxLifetime:    c.config.DBConnMaxLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return db, nil
	})
}

// TxManager returns the transaction manager.
func (c *Container) TxManager() (database.TxManager, error) {
	return get(c, "txManager", func() (database.TxManager, error) {
		db, err := c.DB()
		if err != nil {
			return nil, err
		}
		return database.NewTxManager(db), nil
	})
}

// ComputePool returns the semaphore bounding CPU-heavy crypto work.
func (c *Container) ComputePool() (*semaphore.Weighted, error) {
	return get(c, "computePool", func() (*semaphore.Weighted, error) {
		size := c.config.ComputePoolSize
		if size <= 0 {
			size = runtime.NumCPU()
		}
		return semaphore.NewWeighted(int64(size)), nil
	})
}

// PlanQuotas returns the plan quota table with config overrides applied.
func (c *Container) PlanQuotas() userDomain.PlanQuotas {
	return userDomain.PlanQuotas{
		userDomain.PlanFree:       c.config.PlanQuotaFree,
		userDomain.PlanStandard:   c.config.PlanQuotaStandard,
		userDomain.PlanPro:        c.config.PlanQuotaPro,
		userDomain.PlanPlus:       c.config.PlanQuotaPlus,
		userDomain.PlanEnterprise: c.config.PlanQuotaEnterprise,
	}
}

// MetricsProvider returns the metrics provider, or nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	if !c.config.MetricsEnabled {
		return nil, nil
	}
	return get(c, "metricsProvider", func() (*metrics.Provider, error) {
		return metrics.NewProvider(c.config.MetricsNamespace)
	})
}

// BusinessMetrics returns the business metric instruments, or nil when
// metrics are disabled.
func (c *Container) BusinessMetrics() (*metrics.Business, error) {
	provider, err := c.MetricsProvider()
	if err != nil || provider == nil {
		return nil, err
	}
	return get(c, "businessMetrics", func() (*metrics.Business, error) {
		return metrics.NewBusiness(provider.MeterProvider(), c.config.MetricsNamespace)
	})
}

// MetricsServer returns the metrics HTTP server, or nil when disabled.
func (c *Container) MetricsServer() (*apphttp.MetricsServer, error) {
	provider, err := c.MetricsProvider()
	if err != nil || provider == nil {
		return nil, err
	}
	return get(c, "metricsServer", func() (*apphttp.MetricsServer, error) {
		return apphttp.NewMetricsServer(
			c.config.ServerHost,
			c.config.MetricsPort,
			c.Logger(),
			provider,
		), nil
	})
}

// Shutdown performs cleanup of all initialized resources.
func (c *Container) Shutdown(ctx context.Context) error {
	c.cancelBackground()

	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if val, ok := c.built["kekCache"]; ok {
		val.(*cryptoDomain.KekCache).Close()
	}
	if val, ok := c.built["masterKey"]; ok {
		val.(*cryptoDomain.MasterKey).Close()
	}
	if val, ok := c.built["metricsProvider"]; ok {
		if err := val.(*metrics.Provider).Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}
	if val, ok := c.built["db"]; ok {
		if err := val.(*sql.DB).Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}
	return nil
}
