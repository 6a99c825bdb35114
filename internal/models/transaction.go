package models

import (
	"time"

	"github.com/project-ledger/internal/types"
	"github.com/shopspring/decimal"
)

// Transaction represents a single credit or debit event tied to exactly one
// project. Amount is always non-negative; the directional effect is computed
// by consumers from Kind.
type Transaction struct {
	ID              string                `json:"id"`
	ProjectID       string                `json:"projectId"`
	Kind            types.TransactionKind `json:"kind"`
	Amount          decimal.Decimal       `json:"amount"`
	Description     string                `json:"description"`
	TransactionDate time.Time             `json:"transactionDate"` // calendar date, midnight UTC
	Category        string                `json:"category,omitempty"`
	CreatedAt       time.Time             `json:"createdAt"`
}

// SignedAmount returns +Amount for credits and -Amount for debits
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Kind == types.KindDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}
