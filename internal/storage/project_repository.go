package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/project-ledger/internal/models"
	"github.com/project-ledger/internal/types"
)

// ProjectRepository handles project data persistence. Every query is scoped
// by user_id so a caller can never observe another user's rows.
type ProjectRepository struct {
	db *PostgresDB
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *PostgresDB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create creates a new project
func (r *ProjectRepository) Create(ctx context.Context, project *models.Project) error {
	if project.ID == "" {
		project.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	project.CreatedAt = now
	project.UpdatedAt = now

	query := `
		INSERT INTO projects (id, user_id, name, location, project_type, base_contract_amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		project.ID,
		project.UserID,
		project.Name,
		project.Location,
		project.ProjectType,
		project.BaseContractAmount,
		project.CreatedAt,
		project.UpdatedAt,
	)

	if err != nil {
		return classifyError(err, "failed to create project")
	}

	return nil
}

// GetByIDAndUser retrieves a project by ID and verifies ownership
func (r *ProjectRepository) GetByIDAndUser(ctx context.Context, id, userID string) (*models.Project, error) {
	query := `
		SELECT id, user_id, name, location, project_type, base_contract_amount, created_at, updated_at
		FROM projects
		WHERE id = $1 AND user_id = $2
	`

	var project models.Project

	err := r.db.Pool().QueryRow(ctx, query, id, userID).Scan(
		&project.ID,
		&project.UserID,
		&project.Name,
		&project.Location,
		&project.ProjectType,
		&project.BaseContractAmount,
		&project.CreatedAt,
		&project.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &types.ServiceError{
				Code:    types.ErrCodeNotFound,
				Message: fmt.Sprintf("project not found or access denied: %s", id),
			}
		}
		return nil, classifyError(err, "failed to get project")
	}

	return &project, nil
}

// Update updates a project's mutable fields. Any update refreshes updated_at;
// user_id is never touched.
func (r *ProjectRepository) Update(ctx context.Context, project *models.Project) error {
	project.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE projects
		SET name = $3, location = $4, project_type = $5, base_contract_amount = $6, updated_at = $7
		WHERE id = $1 AND user_id = $2
	`

	result, err := r.db.Pool().Exec(ctx, query,
		project.ID,
		project.UserID,
		project.Name,
		project.Location,
		project.ProjectType,
		project.BaseContractAmount,
		project.UpdatedAt,
	)

	if err != nil {
		return classifyError(err, "failed to update project")
	}

	if result.RowsAffected() == 0 {
		return &types.ServiceError{
			Code:    types.ErrCodeNotFound,
			Message: fmt.Sprintf("project not found or access denied: %s", project.ID),
		}
	}

	return nil
}

// DeleteByIDAndUser deletes a project and verifies ownership. Transactions
// belonging to the project are removed by the store's cascade rule.
func (r *ProjectRepository) DeleteByIDAndUser(ctx context.Context, id, userID string) error {
	query := `DELETE FROM projects WHERE id = $1 AND user_id = $2`

	result, err := r.db.Pool().Exec(ctx, query, id, userID)
	if err != nil {
		return classifyError(err, "failed to delete project")
	}

	if result.RowsAffected() == 0 {
		return &types.ServiceError{
			Code:    types.ErrCodeNotFound,
			Message: fmt.Sprintf("project not found or access denied: %s", id),
		}
	}

	return nil
}

// ListByUser retrieves all projects for a user, newest first
func (r *ProjectRepository) ListByUser(ctx context.Context, userID string) ([]*models.Project, error) {
	query := `
		SELECT id, user_id, name, location, project_type, base_contract_amount, created_at, updated_at
		FROM projects
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Pool().Query(ctx, query, userID)
	if err != nil {
		return nil, classifyError(err, "failed to list projects")
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		var project models.Project

		err := rows.Scan(
			&project.ID,
			&project.UserID,
			&project.Name,
			&project.Location,
			&project.ProjectType,
			&project.BaseContractAmount,
			&project.CreatedAt,
			&project.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}

		projects = append(projects, &project)
	}

	if err := rows.Err(); err != nil {
		return nil, classifyError(err, "error iterating projects")
	}

	return projects, nil
}

// ExistsByIDAndUser checks if a project exists and belongs to a user
func (r *ProjectRepository) ExistsByIDAndUser(ctx context.Context, id, userID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM projects WHERE id = $1 AND user_id = $2)`

	err := r.db.Pool().QueryRow(ctx, query, id, userID).Scan(&exists)
	if err != nil {
		return false, classifyError(err, "failed to check project existence")
	}

	return exists, nil
}

// CountByUser counts the number of projects for a user
func (r *ProjectRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM projects WHERE user_id = $1`

	err := r.db.Pool().QueryRow(ctx, query, userID).Scan(&count)
	if err != nil {
		return 0, classifyError(err, "failed to count projects")
	}

	return count, nil
}
