// Package db implements the key/blob storage backend on GORM. SQLite is the
// default single-user backend; PostgreSQL can be configured instead.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gartstein/taxdesk/internal/taxdesk/db/models"
	e "github.com/gartstein/taxdesk/internal/taxdesk/errors"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	maxConnectRetries = 5
)

type Repository struct {
	db     *gorm.DB
	logger *zap.Logger
}

type Config struct {
	Driver     string
	SQLitePath string
	Host       string
	Port       int
	User       string
	Password   string
	DBName     string
	SSLMode    string
}

func (c *Config) dialector() (gorm.Dialector, error) {
	switch c.Driver {
	case DriverSQLite, "":
		if c.SQLitePath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(c.SQLitePath), 0o755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
		return sqlite.Open(c.SQLitePath), nil
	case DriverPostgres:
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("%w: unknown storage driver %q", e.ErrInvalidInput, c.Driver)
	}
}

var pingContext = func(ctx context.Context, sqlDB *sql.DB) error {
	return sqlDB.PingContext(ctx)
}

// open connects once. A pool that fails to come up is closed before
// returning, so retries do not leak connections.
func open(ctx context.Context, dialector gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		if db != nil {
			if sqlDB, dbErr := db.DB(); dbErr == nil {
				_ = sqlDB.Close()
			}
		}
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	if err := pingContext(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// NewRepository opens the configured backend and migrates the blob table.
// PostgreSQL connections are retried with exponential backoff.
func NewRepository(ctx context.Context, cfg *Config, logger *zap.Logger) (*Repository, error) {
	dialector, err := cfg.dialector()
	if err != nil {
		return nil, err
	}
	logger = logger.Named("db")

	var db *gorm.DB
	connect := func() error {
		var err error
		db, err = open(ctx, dialector)
		return err
	}

	if cfg.Driver == DriverPostgres {
		b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxConnectRetries), ctx)
		err = backoff.RetryNotify(connect, b, func(err error, wait time.Duration) {
			logger.Warn("database not ready, retrying", zap.Error(err), zap.Duration("wait", wait))
		})
	} else {
		err = connect()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Driver != DriverPostgres {
		// one connection so every statement sees the same sqlite database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.WithContext(ctx).AutoMigrate(&models.Blob{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Repository{db: db, logger: logger}, nil
}

// Load returns the blob stored under key, or ErrNotFound.
func (r *Repository) Load(ctx context.Context, key string) ([]byte, error) {
	var blob models.Blob
	result := r.db.WithContext(ctx).First(&blob, "blob_key = ?", key)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return []byte(blob.Value), nil
}

// Save overwrites the blob stored under key.
func (r *Repository) Save(ctx context.Context, key string, value []byte) error {
	blob := models.Blob{
		Key:       key,
		Value:     string(value),
		UpdatedAt: time.Now(),
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "blob_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&blob)
	if result.Error != nil {
		return result.Error
	}
	r.logger.Debug("blob saved", zap.String("key", key), zap.Int("bytes", len(value)))
	return nil
}

func (r *Repository) Exec(ctx context.Context, query string, params ...interface{}) error {
	result := r.db.WithContext(ctx).Exec(query, params...)
	if result.Error != nil {
		return result.Error
	}
	return nil
}

func (r *Repository) Close() error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
