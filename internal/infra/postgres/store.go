// Package postgres implements the persistence ports on PostgreSQL with pgx.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/boddenberg/bonds-kyc-engine/internal/domain"
	"github.com/boddenberg/bonds-kyc-engine/internal/port"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("postgres")

//go:embed schema.sql
var schemaSQL string

// dbtx is satisfied by *pgxpool.Pool and pgx.Tx, so queries run the same
// way inside and outside a transaction.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// queries implements port.Repositories on a dbtx.
type queries struct {
	db dbtx
}

// Store is the pgx-backed port.Store.
type Store struct {
	queries
	pool *pgxpool.Pool
}

var _ port.Store = (*Store)(nil)

// Connect opens a pool and pings the database.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Migrate applies the embedded schema. Every statement is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{queries: queries{db: pool}, pool: pool}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Begin(ctx context.Context, iso port.IsolationLevel) (port.UnitOfWork, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: isoLevel(iso)})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &unitOfWork{queries: queries{db: tx}, tx: tx}, nil
}

func isoLevel(iso port.IsolationLevel) pgx.TxIsoLevel {
	switch iso {
	case port.RepeatableRead:
		return pgx.RepeatableRead
	case port.Serializable:
		return pgx.Serializable
	default:
		return pgx.ReadCommitted
	}
}

type unitOfWork struct {
	queries
	tx pgx.Tx
}

func (u *unitOfWork) Commit(ctx context.Context) error {
	return u.tx.Commit(ctx)
}

// Rollback ignores pgx.ErrTxClosed so it can always be deferred.
func (u *unitOfWork) Rollback(ctx context.Context) error {
	if err := u.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

// Savepoint uses a pseudo nested transaction: Begin on a pgx.Tx issues
// SAVEPOINT, and its Rollback/Commit map to ROLLBACK TO / RELEASE.
func (u *unitOfWork) Savepoint(ctx context.Context, fn func(port.Repositories) error) error {
	sp, err := u.tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("savepoint: %w", err)
	}
	if err := fn(&queries{db: sp}); err != nil {
		if rbErr := sp.Rollback(ctx); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	return sp.Commit(ctx)
}

// mapErr turns unique violations into *domain.ErrDuplicate keyed by the
// violated index.
func mapErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return &domain.ErrDuplicate{Key: pgErr.ConstraintName}
	}
	return err
}

func notFound(resource, id string) error {
	return &domain.ErrNotFound{Resource: resource, ID: id}
}

// malformedID reports a uuid parameter that Postgres refused to parse. Such
// an id cannot match any row.
func malformedID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22P02"
}

// one maps pgx.ErrNoRows to a nil result for Find* style lookups.
func one[T any](v *T, err error) (*T, error) {
	if errors.Is(err, pgx.ErrNoRows) || malformedID(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// must maps pgx.ErrNoRows to ErrNotFound for Get* style lookups.
func must[T any](v *T, err error, resource, id string) (*T, error) {
	if errors.Is(err, pgx.ErrNoRows) || malformedID(err) {
		return nil, notFound(resource, id)
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// affected checks that an UPDATE touched a row.
func affected(tag pgconn.CommandTag, err error, resource, id string) error {
	if malformedID(err) {
		return notFound(resource, id)
	}
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(resource, id)
	}
	return nil
}
