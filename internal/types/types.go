// Package types defines shared domain types and structured errors used
// across the project ledger service.
package types

// TransactionKind is the direction of a transaction. The sign of a
// transaction is carried here, never by the amount.
type TransactionKind string

const (
	// KindCredit is an income transaction increasing project profit
	KindCredit TransactionKind = "credit"
	// KindDebit is an expense transaction decreasing project profit
	KindDebit TransactionKind = "debit"
)

// Valid reports whether the kind is one of the two supported values
func (k TransactionKind) Valid() bool {
	return k == KindCredit || k == KindDebit
}

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

// Error codes used throughout the service
const (
	// ErrCodeValidation marks input rejected before it reaches storage
	ErrCodeValidation = "VALIDATION_ERROR"
	// ErrCodeNotFound marks a referenced row that does not exist or is not
	// visible to the caller
	ErrCodeNotFound = "NOT_FOUND"
	// ErrCodeNotAuthorized marks an ownership-scope rejection
	ErrCodeNotAuthorized = "NOT_AUTHORIZED"
	// ErrCodeTransientIO marks network or backend unavailability
	ErrCodeTransientIO = "TRANSIENT_IO"
	// ErrCodeUnknown is the catch-all for unclassified backend errors
	ErrCodeUnknown = "UNKNOWN"
)
