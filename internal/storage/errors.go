package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/project-ledger/internal/types"
)

// Postgres error codes the gateway cares about. Store-level CHECK and foreign
// key constraints are authoritative even when client-side validation passed.
const (
	pgCodeCheckViolation      = "23514"
	pgCodeForeignKeyViolation = "23503"
	pgCodeNotNullViolation    = "23502"
)

// classifyError maps a storage-layer error onto the service error taxonomy.
// Already-classified ServiceErrors pass through unchanged.
func classifyError(err error, message string) error {
	if err == nil {
		return nil
	}

	var svcErr *types.ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgCodeCheckViolation, pgCodeNotNullViolation:
			return &types.ServiceError{
				Code:    types.ErrCodeValidation,
				Message: message,
				Details: map[string]interface{}{"constraint": pgErr.ConstraintName},
			}
		case pgCodeForeignKeyViolation:
			return &types.ServiceError{
				Code:    types.ErrCodeNotFound,
				Message: message,
				Details: map[string]interface{}{"constraint": pgErr.ConstraintName},
			}
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return &types.ServiceError{
			Code:    types.ErrCodeTransientIO,
			Message: message,
		}
	}

	return &types.ServiceError{
		Code:    types.ErrCodeUnknown,
		Message: message,
		Details: map[string]interface{}{"cause": err.Error()},
	}
}
