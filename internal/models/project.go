// Package models defines the persisted and derived data structures for the
// project ledger service.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Project represents a construction job being tracked. Rows are visible only
// to their owner; UserID is immutable after creation.
type Project struct {
	ID                 string          `json:"id"`
	UserID             string          `json:"userId"`
	Name               string          `json:"name"`
	Location           string          `json:"location"`
	ProjectType        string          `json:"projectType"`
	BaseContractAmount decimal.Decimal `json:"baseContractAmount"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}
