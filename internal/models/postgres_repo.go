package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/gorm"
)

// Postgres SQLSTATE codes the store reacts to.
const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUndefinedTable       = "42P01"
)

// Features switches the optional review side tables on or off per deployment.
type Features struct {
	ReviewVotes   bool
	ReviewReports bool
}

type PostgresRepo struct {
	db   *gorm.DB
	pool *pgxpool.Pool
}

// PostgresNewRepo wraps a gorm handle opened over pool. The pool is kept for raw aggregate queries.
func PostgresNewRepo(db *gorm.DB, pool *pgxpool.Pool) *PostgresRepo {
	return &PostgresRepo{
		db:   db,
		pool: pool,
	}
}

type txKey struct{}

// conn returns the transaction bound to ctx, or the base handle.
func (pg *PostgresRepo) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return pg.db.WithContext(ctx)
}

func (pg *PostgresRepo) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	err := pg.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})
	return translateError(err)
}

func (pg *PostgresRepo) Ping(ctx context.Context) error {
	if pg.pool != nil {
		return pg.pool.Ping(ctx)
	}
	sqlDB, err := pg.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Migrate creates or updates the schema. Side tables are only created when their feature is on.
func (pg *PostgresRepo) Migrate(ctx context.Context, features Features) error {
	tables := []interface{}{
		&Customer{}, &Destination{}, &Guide{},
		&Booking{}, &Accommodation{}, &Transportation{}, &Activity{}, &EquipmentRental{},
		&PaymentTransaction{}, &Document{}, &Note{}, &EmergencyContact{},
		&Review{},
	}
	if features.ReviewVotes {
		tables = append(tables, &ReviewHelpful{})
	}
	if features.ReviewReports {
		tables = append(tables, &ReviewReport{})
	}
	if err := pg.db.WithContext(ctx).AutoMigrate(tables...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// translateError maps driver errors onto the package sentinels.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", ErrDuplicateKey, pgErr.ConstraintName)
		case pgSerializationFailure, pgDeadlockDetected:
			return fmt.Errorf("%w: %s", ErrSerialization, pgErr.Message)
		case pgUndefinedTable:
			return fmt.Errorf("%w: %s", ErrFeatureDisabled, pgErr.Message)
		}
	}
	return err
}

// savepoint runs fn in a nested transaction so a failure does not abort the outer one.
func (pg *PostgresRepo) savepoint(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return translateError(pg.conn(ctx).Transaction(fn))
}
