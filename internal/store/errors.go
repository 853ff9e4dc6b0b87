package store

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/punchamoorthee/rewardclaims/internal/domain"
	"gorm.io/gorm"
)

// SQLSTATE codes the repository reacts to.
const (
	sqlStateUniqueViolation      = "23505"
	sqlStateForeignKeyViolation  = "23503"
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateTooManyConnections   = "53300"
	sqlStateQueryCanceled        = "57014"
	sqlStateAdminShutdown        = "57P01"
	sqlStateCannotConnectNow     = "57P03"
)

func classifyPostgres(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, op)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateUniqueViolation:
			return fmt.Errorf("%w: %s: %w", domain.ErrConflict, op, err)
		case sqlStateForeignKeyViolation:
			return fmt.Errorf("%w: %s: %w", domain.ErrNotFound, op, err)
		case sqlStateSerializationFailure, sqlStateDeadlockDetected, sqlStateTooManyConnections,
			sqlStateQueryCanceled, sqlStateAdminShutdown, sqlStateCannotConnectNow:
			return fmt.Errorf("%w: %s: %w", domain.ErrTransientStore, op, err)
		}
		// Class 08: connection exception.
		if strings.HasPrefix(pgErr.Code, "08") {
			return fmt.Errorf("%w: %s: %w", domain.ErrTransientStore, op, err)
		}
		return fmt.Errorf("%w: %s: %w", domain.ErrPersistence, op, err)
	}

	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) || isTransientNetwork(err) {
		return fmt.Errorf("%w: %s: %w", domain.ErrTransientStore, op, err)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrPersistence, op, err)
}

func classifyGorm(op string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %s", domain.ErrNotFound, op)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %s: %w", domain.ErrConflict, op, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: %s: %w", domain.ErrNotFound, op, err)
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%w: %s: %w", domain.ErrConflict, op, err)
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%w: %s: %w", domain.ErrNotFound, op, err)
		}
		switch sqliteErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return fmt.Errorf("%w: %s: %w", domain.ErrTransientStore, op, err)
		}
	}

	if isTransientNetwork(err) {
		return fmt.Errorf("%w: %s: %w", domain.ErrTransientStore, op, err)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrPersistence, op, err)
}

func isTransientNetwork(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
