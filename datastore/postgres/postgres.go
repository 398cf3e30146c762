// Package postgres implements datastore.Store on PostgreSQL via lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/coreybb/eventhub/datastore"
	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lib/pq"
)

const (
	dbPingTimeout     = 5 * time.Second
	dbMaxOpenConns    = 25
	dbMaxIdleConns    = 25
	dbConnMaxLifetime = 5 * time.Minute

	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store bundles the user and event repositories over one connection pool.
type Store struct {
	*UserRepository
	*EventRepository
	db *sql.DB
}

var _ datastore.Store = (*Store)(nil)

func New(db *sql.DB) *Store {
	return &Store{
		UserRepository:  NewUserRepository(db),
		EventRepository: NewEventRepository(db),
		db:              db,
	}
}

// Open connects to connStr, verifies the connection and returns a Store.
func Open(ctx context.Context, connStr string) (*Store, error) {
	const op = "datastore.postgres.Open"

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open database connection: %w", op, err)
	}

	db.SetMaxOpenConns(dbMaxOpenConns)
	db.SetMaxIdleConns(dbMaxIdleConns)
	db.SetConnMaxLifetime(dbConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, dbPingTimeout)
	defer cancel()

	if err = db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	return New(db), nil
}

// RunMigrations applies the embedded schema migrations.
func (s *Store) RunMigrations() error {
	const op = "datastore.postgres.RunMigrations"

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("%s: failed to load migrations: %w", op, err)
	}

	driver, err := migratepg.WithInstance(s.db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("%s: failed to create migration driver: %w", op, err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("%s: failed to create migration instance: %w", op, err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%s: failed to run migrations: %w", op, err)
	}
	return nil
}

func (s *Store) Close(_ context.Context) error {
	return s.db.Close()
}

func hasPQCode(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == code
}
