package service

import (
	"context"

	"github.com/project-ledger/internal/models"
	"github.com/project-ledger/internal/types"
	"github.com/shopspring/decimal"
)

// ProjectRepository interface for project data operations
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	GetByIDAndUser(ctx context.Context, id, userID string) (*models.Project, error)
	Update(ctx context.Context, project *models.Project) error
	DeleteByIDAndUser(ctx context.Context, id, userID string) error
	ListByUser(ctx context.Context, userID string) ([]*models.Project, error)
	ExistsByIDAndUser(ctx context.Context, id, userID string) (bool, error)
}

// ProjectService handles project lifecycle operations
type ProjectService struct {
	projectRepo ProjectRepository
}

// NewProjectService creates a new project service
func NewProjectService(projectRepo ProjectRepository) *ProjectService {
	return &ProjectService{projectRepo: projectRepo}
}

// CreateProjectInput represents input for creating a project
type CreateProjectInput struct {
	UserID             string          `json:"userId"`
	Name               string          `json:"name"`
	Location           string          `json:"location"`
	ProjectType        string          `json:"projectType"`
	BaseContractAmount decimal.Decimal `json:"baseContractAmount"`
}

// UpdateProjectInput represents input for updating a project
type UpdateProjectInput struct {
	ProjectID          string           `json:"projectId"`
	UserID             string           `json:"userId"`
	Name               *string          `json:"name,omitempty"`
	Location           *string          `json:"location,omitempty"`
	ProjectType        *string          `json:"projectType,omitempty"`
	BaseContractAmount *decimal.Decimal `json:"baseContractAmount,omitempty"`
}

// DeleteProjectResult represents the result of deleting a project
type DeleteProjectResult struct {
	Success   bool   `json:"success"`
	ProjectID string `json:"projectId"`
	Message   string `json:"message,omitempty"`
}

// CreateProject validates input and creates a new project. Validation
// failures never reach the gateway.
func (s *ProjectService) CreateProject(ctx context.Context, input *CreateProjectInput) (*models.Project, error) {
	if input.UserID == "" {
		return nil, validationError("userId is required")
	}
	if input.Name == "" {
		return nil, validationError("project name is required")
	}
	if input.Location == "" {
		return nil, validationError("project location is required")
	}
	if input.ProjectType == "" {
		return nil, validationError("project type is required")
	}
	if input.BaseContractAmount.IsNegative() {
		return nil, validationError("base contract amount must be non-negative")
	}

	project := &models.Project{
		UserID:             input.UserID,
		Name:               input.Name,
		Location:           input.Location,
		ProjectType:        input.ProjectType,
		BaseContractAmount: input.BaseContractAmount,
	}

	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, err
	}

	return project, nil
}

// GetProject retrieves a project and verifies ownership
func (s *ProjectService) GetProject(ctx context.Context, projectID, userID string) (*models.Project, error) {
	if projectID == "" {
		return nil, validationError("projectId is required")
	}
	if userID == "" {
		return nil, validationError("userId is required")
	}

	return s.projectRepo.GetByIDAndUser(ctx, projectID, userID)
}

// UpdateProject updates a project's mutable fields. Any field update
// refreshes updated_at; the owner is never changed.
func (s *ProjectService) UpdateProject(ctx context.Context, input *UpdateProjectInput) (*models.Project, error) {
	if input.ProjectID == "" {
		return nil, validationError("projectId is required")
	}
	if input.UserID == "" {
		return nil, validationError("userId is required")
	}

	project, err := s.projectRepo.GetByIDAndUser(ctx, input.ProjectID, input.UserID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, validationError("project name cannot be empty")
		}
		project.Name = *input.Name
	}
	if input.Location != nil {
		if *input.Location == "" {
			return nil, validationError("project location cannot be empty")
		}
		project.Location = *input.Location
	}
	if input.ProjectType != nil {
		if *input.ProjectType == "" {
			return nil, validationError("project type cannot be empty")
		}
		project.ProjectType = *input.ProjectType
	}
	if input.BaseContractAmount != nil {
		if input.BaseContractAmount.IsNegative() {
			return nil, validationError("base contract amount must be non-negative")
		}
		project.BaseContractAmount = *input.BaseContractAmount
	}

	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, err
	}

	return project, nil
}

// DeleteProject deletes a project. The store cascades deletion of all its
// transactions.
func (s *ProjectService) DeleteProject(ctx context.Context, projectID, userID string) (*DeleteProjectResult, error) {
	if projectID == "" {
		return nil, validationError("projectId is required")
	}
	if userID == "" {
		return nil, validationError("userId is required")
	}

	if err := s.projectRepo.DeleteByIDAndUser(ctx, projectID, userID); err != nil {
		return nil, err
	}

	return &DeleteProjectResult{
		Success:   true,
		ProjectID: projectID,
		Message:   "Project and its transactions deleted",
	}, nil
}

// ListProjects lists all projects for a user, newest first
func (s *ProjectService) ListProjects(ctx context.Context, userID string) ([]*models.Project, error) {
	if userID == "" {
		return nil, validationError("userId is required")
	}

	return s.projectRepo.ListByUser(ctx, userID)
}

func validationError(message string) *types.ServiceError {
	return &types.ServiceError{
		Code:    types.ErrCodeValidation,
		Message: message,
	}
}
