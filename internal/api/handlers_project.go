package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/project-ledger/internal/service"
	"github.com/project-ledger/internal/types"
	"github.com/shopspring/decimal"
)

// requireUserID extracts the authenticated user from headers. Requests
// without a user identity are rejected before reaching any service.
func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "User ID required", nil)
		return "", false
	}
	return userID, true
}

// handleCreateProject handles POST /api/projects
func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req struct {
		Name               string          `json:"name"`
		Location           string          `json:"location"`
		ProjectType        string          `json:"projectType"`
		BaseContractAmount decimal.Decimal `json:"baseContractAmount"`
	}

	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, types.ErrCodeValidation, "Invalid request body", nil)
		return
	}

	input := &service.CreateProjectInput{
		UserID:             userID,
		Name:               req.Name,
		Location:           req.Location,
		ProjectType:        req.ProjectType,
		BaseContractAmount: req.BaseContractAmount,
	}

	project, err := s.projectService.CreateProject(r.Context(), input)
	if err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}

	respondJSON(w, http.StatusCreated, project)
}

// handleListProjects handles GET /api/projects
func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	projects, err := s.projectService.ListProjects(r.Context(), userID)
	if err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}

	respondJSON(w, http.StatusOK, projects)
}

// handleGetProject handles GET /api/projects/:id
func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["id"]
	if projectID == "" {
		respondError(w, http.StatusBadRequest, types.ErrCodeValidation, "Project ID required", nil)
		return
	}

	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	project, err := s.projectService.GetProject(r.Context(), projectID, userID)
	if err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}

	respondJSON(w, http.StatusOK, project)
}

// handleUpdateProject handles PUT /api/projects/:id
func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["id"]
	if projectID == "" {
		respondError(w, http.StatusBadRequest, types.ErrCodeValidation, "Project ID required", nil)
		return
	}

	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req struct {
		Name               *string          `json:"name,omitempty"`
		Location           *string          `json:"location,omitempty"`
		ProjectType        *string          `json:"projectType,omitempty"`
		BaseContractAmount *decimal.Decimal `json:"baseContractAmount,omitempty"`
	}

	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, types.ErrCodeValidation, "Invalid request body", nil)
		return
	}

	input := &service.UpdateProjectInput{
		ProjectID:          projectID,
		UserID:             userID,
		Name:               req.Name,
		Location:           req.Location,
		ProjectType:        req.ProjectType,
		BaseContractAmount: req.BaseContractAmount,
	}

	project, err := s.projectService.UpdateProject(r.Context(), input)
	if err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}

	respondJSON(w, http.StatusOK, project)
}

// handleDeleteProject handles DELETE /api/projects/:id
func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["id"]
	if projectID == "" {
		respondError(w, http.StatusBadRequest, types.ErrCodeValidation, "Project ID required", nil)
		return
	}

	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	result, err := s.projectService.DeleteProject(r.Context(), projectID, userID)
	if err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
