package service

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/erdemdnmz2/WebQuery/internal/core"
)

// WorkspaceService handles user-facing workspace CRUD. Approval decisions
// live in the ApprovalWorkflow; this service never touches query status
// beyond the initial saved_in_workspace.
type WorkspaceService struct {
	queries core.QueryRepository
}

func NewWorkspaceService(queries core.QueryRepository) *WorkspaceService {
	return &WorkspaceService{queries: queries}
}

type WorkspaceCreate struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Server      string `json:"servername"`
	Database    string `json:"database_name"`
	Query       string `json:"query"`
}

func (s *WorkspaceService) Create(userID int64, in WorkspaceCreate) (*core.Workspace, error) {
	record := &core.QueryRecord{
		UserID:   userID,
		Server:   in.Server,
		Database: in.Database,
		Query:    in.Query,
		UUID:     uuid.NewString(),
		Status:   core.StatusSaved,
	}
	workspace := &core.Workspace{
		UserID:      userID,
		Name:        in.Name,
		Description: in.Description,
	}
	if err := s.queries.CreateWithWorkspace(record, workspace); err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	return workspace, nil
}

func (s *WorkspaceService) ListForUser(userID int64) ([]core.WorkspaceDetail, error) {
	return s.queries.ListByUser(userID)
}

// Get returns the workspace detail, owner only.
func (s *WorkspaceService) Get(workspaceID, userID int64) (*core.WorkspaceDetail, error) {
	workspace, record, err := s.queries.GetWorkspaceWithQuery(workspaceID)
	if err != nil {
		return nil, err
	}
	if workspace.UserID != userID {
		return nil, core.ErrForbidden
	}
	return &core.WorkspaceDetail{
		ID:          workspace.ID,
		Name:        workspace.Name,
		Description: workspace.Description,
		Query:       record.Query,
		Server:      record.Server,
		Database:    record.Database,
		Status:      record.Status,
		RiskType:    record.RiskType,
		ShowResults: workspace.ShowResults,
		OwnerID:     workspace.UserID,
	}, nil
}

// UpdateQuery replaces the stored SQL, owner only.
func (s *WorkspaceService) UpdateQuery(workspaceID, userID int64, query string) error {
	workspace, err := s.queries.GetWorkspaceByID(workspaceID)
	if err != nil {
		return err
	}
	if workspace.UserID != userID {
		return core.ErrForbidden
	}
	return s.queries.UpdateQueryText(workspaceID, query)
}

// Delete removes the workspace and its query record, owner only.
func (s *WorkspaceService) Delete(workspaceID, userID int64) error {
	workspace, err := s.queries.GetWorkspaceByID(workspaceID)
	if err != nil {
		return err
	}
	if workspace.UserID != userID {
		return core.ErrForbidden
	}
	return s.queries.DeleteWorkspace(workspaceID)
}
