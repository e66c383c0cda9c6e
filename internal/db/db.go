package db

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"subnetdash/internal/config"
)

// Connect opens the pooled, read-only GORM handle to the results store
// using APP_DATABASE_URL (PostgreSQL URL). The table is owned by the
// ingestion process, so nothing is migrated here.
func Connect(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	dsn := strings.TrimSpace(cfg.DatabaseURL)
	if dsn == "" {
		return nil, errors.New("APP_DATABASE_URL is required (PostgreSQL URL)")
	}
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return nil, errors.New("APP_DATABASE_URL must be a postgres:// or postgresql:// URL")
	}
	dsn, err := withConnectTimeout(dsn, cfg.DBConnectTimeout)
	if err != nil {
		return nil, err
	}

	// PrepareStmt caches one prepared statement per distinct query text; the
	// view queries are a fixed set, so the cache stays small.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		PrepareStmt: true,
		Logger:      logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DBConnectTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping results store: %w", err)
	}
	return db, nil
}

// withConnectTimeout sets connect_timeout on the URL unless the caller already did.
func withConnectTimeout(dsn string, d time.Duration) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse APP_DATABASE_URL: %w", err)
	}
	if d <= 0 {
		return dsn, nil
	}
	q := u.Query()
	if q.Get("connect_timeout") == "" {
		secs := int(d / time.Second)
		if secs < 1 {
			secs = 1
		}
		q.Set("connect_timeout", strconv.Itoa(secs))
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Store runs the parameterized read queries of every analytic view.
// It owns no state beyond the injected pool handle.
type Store struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewStore wraps a pooled handle. timeout bounds each call, covering both
// connection acquisition and execution.
func NewStore(db *gorm.DB, timeout time.Duration) *Store {
	return &Store{db: db, timeout: timeout}
}

// Close releases the pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks that a pooled connection can be acquired.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// scan runs one raw query and scans every row into dest.
func (s *Store) scan(ctx context.Context, q query, dest any) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := s.db.WithContext(ctx).Raw(q.sql, q.args...).Scan(dest).Error
	observeQuery(q.name, time.Since(start), err)
	if err != nil {
		return &QueryError{Name: q.name, SQL: q.sql, Err: err}
	}
	return nil
}

// QueryError carries the failing query for boundary logging.
type QueryError struct {
	Name string
	SQL  string
	Err  error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %s failed: %v", e.Name, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// Truncated returns the query text cut to at most n bytes.
func (e *QueryError) Truncated(n int) string {
	sql := strings.Join(strings.Fields(e.SQL), " ")
	if len(sql) <= n {
		return sql
	}
	return sql[:n] + "..."
}
