package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/project-ledger/internal/models"
	"github.com/project-ledger/internal/types"
)

// TransactionRepository handles transaction data persistence. Ownership of
// the owning project is enforced at this boundary, not by callers.
type TransactionRepository struct {
	db *PostgresDB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *PostgresDB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create inserts a single transaction against an existing project owned by
// userID. Store-level constraints (kind enum, amount > 0) are authoritative.
func (r *TransactionRepository) Create(ctx context.Context, userID string, tx *models.Transaction) error {
	owned, err := r.projectOwned(ctx, tx.ProjectID, userID)
	if err != nil {
		return err
	}
	if !owned {
		return &types.ServiceError{
			Code:    types.ErrCodeNotAuthorized,
			Message: fmt.Sprintf("project not owned by caller: %s", tx.ProjectID),
		}
	}

	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	tx.CreatedAt = now
	if tx.TransactionDate.IsZero() {
		// Transaction date defaults to the date of creation
		tx.TransactionDate = now.Truncate(24 * time.Hour)
	}

	query := `
		INSERT INTO transactions (id, project_id, type, amount, description, transaction_date, category, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.Pool().Exec(ctx, query,
		tx.ID,
		tx.ProjectID,
		string(tx.Kind),
		tx.Amount,
		tx.Description,
		tx.TransactionDate,
		tx.Category,
		tx.CreatedAt,
	)

	if err != nil {
		return classifyError(err, "failed to create transaction")
	}

	return nil
}

// ListByProjects returns every transaction whose project is in the given set.
// Fails with NOT_AUTHORIZED if any requested project is not owned by userID.
// Callers must short-circuit the empty set instead of querying it.
func (r *TransactionRepository) ListByProjects(ctx context.Context, userID string, projectIDs []string) ([]*models.Transaction, error) {
	if len(projectIDs) == 0 {
		return nil, &types.ServiceError{
			Code:    types.ErrCodeValidation,
			Message: "at least one project id is required",
		}
	}

	// The count compare below needs distinct ids: a repeated id would count
	// once but be expected twice.
	ids := uniqueStrings(projectIDs)

	var ownedCount int
	countQuery := `SELECT COUNT(*) FROM projects WHERE id = ANY($1) AND user_id = $2`
	if err := r.db.Pool().QueryRow(ctx, countQuery, ids, userID).Scan(&ownedCount); err != nil {
		return nil, classifyError(err, "failed to verify project ownership")
	}
	if ownedCount != len(ids) {
		return nil, &types.ServiceError{
			Code:    types.ErrCodeNotAuthorized,
			Message: "one or more projects are not owned by the caller",
		}
	}

	query := `
		SELECT id, project_id, type, amount, description, transaction_date, category, created_at
		FROM transactions
		WHERE project_id = ANY($1)
		ORDER BY transaction_date DESC, created_at DESC
	`

	rows, err := r.db.Pool().Query(ctx, query, ids)
	if err != nil {
		return nil, classifyError(err, "failed to list transactions")
	}
	defer rows.Close()

	var transactions []*models.Transaction
	for rows.Next() {
		var tx models.Transaction
		var kind string

		err := rows.Scan(
			&tx.ID,
			&tx.ProjectID,
			&kind,
			&tx.Amount,
			&tx.Description,
			&tx.TransactionDate,
			&tx.Category,
			&tx.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		tx.Kind = types.TransactionKind(kind)
		transactions = append(transactions, &tx)
	}

	if err := rows.Err(); err != nil {
		return nil, classifyError(err, "error iterating transactions")
	}

	return transactions, nil
}

// CountByProject counts transactions for a single project
func (r *TransactionRepository) CountByProject(ctx context.Context, projectID string) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM transactions WHERE project_id = $1`

	err := r.db.Pool().QueryRow(ctx, query, projectID).Scan(&count)
	if err != nil {
		return 0, classifyError(err, "failed to count transactions")
	}

	return count, nil
}

// uniqueStrings returns the distinct values of in, preserving first-seen order
func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// projectOwned reports whether the project exists and belongs to userID
func (r *TransactionRepository) projectOwned(ctx context.Context, projectID, userID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM projects WHERE id = $1 AND user_id = $2)`

	err := r.db.Pool().QueryRow(ctx, query, projectID, userID).Scan(&exists)
	if err != nil {
		return false, classifyError(err, "failed to verify project ownership")
	}

	return exists, nil
}
