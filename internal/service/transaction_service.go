package service

import (
	"context"
	"time"

	"github.com/project-ledger/internal/models"
	"github.com/project-ledger/internal/types"
	"github.com/shopspring/decimal"
)

// TransactionRepository interface for transaction data operations
type TransactionRepository interface {
	Create(ctx context.Context, userID string, tx *models.Transaction) error
	ListByProjects(ctx context.Context, userID string, projectIDs []string) ([]*models.Transaction, error)
}

// TransactionService handles transaction creation and listing
type TransactionService struct {
	transactionRepo TransactionRepository
}

// NewTransactionService creates a new transaction service
func NewTransactionService(transactionRepo TransactionRepository) *TransactionService {
	return &TransactionService{transactionRepo: transactionRepo}
}

// CreateTransactionInput represents input for recording a transaction
type CreateTransactionInput struct {
	UserID          string                `json:"userId"`
	ProjectID       string                `json:"projectId"`
	Kind            types.TransactionKind `json:"kind"`
	Amount          decimal.Decimal       `json:"amount"`
	Description     string                `json:"description"`
	TransactionDate *time.Time            `json:"transactionDate,omitempty"` // defaults to today
	Category        string                `json:"category,omitempty"`
}

// CreateTransaction validates input and records a transaction against an
// existing project. User-entered amounts must be strictly positive; the
// store's own constraints remain authoritative even when validation passes.
func (s *TransactionService) CreateTransaction(ctx context.Context, input *CreateTransactionInput) (*models.Transaction, error) {
	if input.UserID == "" {
		return nil, validationError("userId is required")
	}
	if input.ProjectID == "" {
		return nil, validationError("projectId is required")
	}
	if !input.Kind.Valid() {
		return nil, validationError("kind must be credit or debit")
	}
	if !input.Amount.IsPositive() {
		return nil, validationError("amount must be greater than zero")
	}
	if input.Description == "" {
		return nil, validationError("description is required")
	}

	tx := &models.Transaction{
		ProjectID:   input.ProjectID,
		Kind:        input.Kind,
		Amount:      input.Amount,
		Description: input.Description,
		Category:    input.Category,
	}
	if input.TransactionDate != nil {
		tx.TransactionDate = DayUTC(*input.TransactionDate)
	}

	if err := s.transactionRepo.Create(ctx, input.UserID, tx); err != nil {
		return nil, err
	}

	return tx, nil
}

// ListTransactions lists transactions for a set of owned projects
func (s *TransactionService) ListTransactions(ctx context.Context, userID string, projectIDs []string) ([]*models.Transaction, error) {
	if userID == "" {
		return nil, validationError("userId is required")
	}
	if len(projectIDs) == 0 {
		return nil, validationError("at least one project id is required")
	}

	return s.transactionRepo.ListByProjects(ctx, userID, projectIDs)
}
