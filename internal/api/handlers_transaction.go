package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/project-ledger/internal/service"
	"github.com/project-ledger/internal/types"
	"github.com/shopspring/decimal"
)

// handleCreateTransaction handles POST /api/transactions
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req struct {
		ProjectID       string          `json:"projectId"`
		Kind            string          `json:"kind"`
		Amount          decimal.Decimal `json:"amount"`
		Description     string          `json:"description"`
		TransactionDate *string         `json:"transactionDate,omitempty"`
		Category        string          `json:"category,omitempty"`
	}

	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, types.ErrCodeValidation, "Invalid request body", nil)
		return
	}

	input := &service.CreateTransactionInput{
		UserID:      userID,
		ProjectID:   req.ProjectID,
		Kind:        types.TransactionKind(req.Kind),
		Amount:      req.Amount,
		Description: req.Description,
		Category:    req.Category,
	}

	if req.TransactionDate != nil {
		date, err := time.Parse("2006-01-02", *req.TransactionDate)
		if err != nil {
			respondError(w, http.StatusBadRequest, types.ErrCodeValidation, "Invalid transactionDate format (use YYYY-MM-DD)", nil)
			return
		}
		input.TransactionDate = &date
	}

	tx, err := s.transactionService.CreateTransaction(r.Context(), input)
	if err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}

	respondJSON(w, http.StatusCreated, tx)
}

// handleListProjectTransactions handles GET /api/projects/:id/transactions
func (s *Server) handleListProjectTransactions(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["id"]
	if projectID == "" {
		respondError(w, http.StatusBadRequest, types.ErrCodeValidation, "Project ID required", nil)
		return
	}

	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	transactions, err := s.transactionService.ListTransactions(r.Context(), userID, []string{projectID})
	if err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}

	respondJSON(w, http.StatusOK, transactions)
}
