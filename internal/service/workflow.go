package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/erdemdnmz2/WebQuery/internal/core"
	"github.com/erdemdnmz2/WebQuery/internal/logger"
)

// ApprovalRequest is the notification payload for a query routed to admins.
type ApprovalRequest struct {
	RequestID   string
	Username    string
	RequestTime string
	Server      string
	Database    string
	RiskType    core.RiskCategory
	Query       string
}

// ApprovalNotifier delivers approval requests to administrators, best
// effort. A false return means the message did not go out; the workflow
// logs it and moves on.
type ApprovalNotifier interface {
	SendApprovalRequest(ctx context.Context, req ApprovalRequest) bool
}

// SubmitResult reports what happened to a submitted query: either it ran and
// Result is set, or it was routed for approval and WorkspaceID/QueryUUID
// identify the pending record.
type SubmitResult struct {
	Executed    bool              `json:"executed"`
	Result      *core.QueryResult `json:"result,omitempty"`
	WorkspaceID int64             `json:"workspace_id,omitempty"`
	QueryUUID   string            `json:"query_uuid,omitempty"`
	RiskType    core.RiskCategory `json:"risk_type,omitempty"`
	Message     string            `json:"message"`
}

// ApprovalWorkflow owns the lifecycle of a submitted query: risk gating,
// admin preview/approve/reject, and execution of approved queries under the
// original submitter's credential. It is the only mutator of query status.
type ApprovalWorkflow struct {
	classifier *RiskClassifier
	queries    core.QueryRepository
	runner     core.QueryRunner
	notifier   ApprovalNotifier
}

func NewApprovalWorkflow(classifier *RiskClassifier, queries core.QueryRepository, runner core.QueryRunner, notifier ApprovalNotifier) *ApprovalWorkflow {
	return &ApprovalWorkflow{
		classifier: classifier,
		queries:    queries,
		runner:     runner,
		notifier:   notifier,
	}
}

// Submit classifies the query and either executes it immediately (safe, or
// the caller is an admin) or parks it in waiting_for_approval and notifies
// the admins. Risky submissions are not an error: the caller gets an
// explicit "sent for approval" result.
func (wf *ApprovalWorkflow) Submit(ctx context.Context, user *core.User, server, database, query string) (*SubmitResult, error) {
	category := wf.classifier.Classify(query)

	if category == core.RiskNone || user.IsAdmin {
		result, err := wf.runner.Run(ctx, user, server, database, query, false)
		if err != nil {
			return nil, err
		}
		return &SubmitResult{Executed: true, Result: result, Message: result.Message}, nil
	}

	record := &core.QueryRecord{
		UserID:   user.ID,
		Server:   server,
		Database: database,
		Query:    query,
		UUID:     uuid.NewString(),
		Status:   core.StatusWaitingForApproval,
		RiskType: category,
	}
	workspace := &core.Workspace{
		UserID:      user.ID,
		Name:        pendingWorkspaceName(query),
		Description: fmt.Sprintf("Risk Type: %s - Waiting for admin approval", category),
	}
	if err := wf.queries.CreateWithWorkspace(record, workspace); err != nil {
		return nil, fmt.Errorf("failed to save query for approval: %w", err)
	}

	// Fire-and-forget: a dead webhook must not block persistence or the
	// user's response.
	if wf.notifier != nil {
		go wf.notify(record.UUID, user.Username, server, database, query, category)
	}

	return &SubmitResult{
		Executed:    false,
		WorkspaceID: workspace.ID,
		QueryUUID:   record.UUID,
		RiskType:    category,
		Message:     fmt.Sprintf("Query rejected: %s. Query saved to your workspaces and sent for admin approval.", category),
	}, nil
}

func (wf *ApprovalWorkflow) notify(requestID, username, server, database, query string, category core.RiskCategory) {
	notifyCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ok := wf.notifier.SendApprovalRequest(notifyCtx, ApprovalRequest{
		RequestID:   requestID,
		Username:    username,
		RequestTime: time.Now().UTC().Format("2006-01-02 15:04:05"),
		Server:      server,
		Database:    database,
		RiskType:    category,
		Query:       query,
	})
	if !ok {
		logger.Error.Printf("workflow: approval notification for %s not delivered", requestID)
	}
}

// Pending lists the approval queue for admins.
func (wf *ApprovalWorkflow) Pending() ([]core.ApprovalItem, error) {
	return wf.queries.ListPendingApprovals()
}

// Preview executes the stored query under the admin's own credential, for
// inspection only. The record status is untouched.
func (wf *ApprovalWorkflow) Preview(ctx context.Context, workspaceID int64, admin *core.User) (*core.QueryResult, error) {
	_, record, err := wf.queries.GetWorkspaceWithQuery(workspaceID)
	if err != nil {
		return nil, err
	}
	return wf.runner.Run(ctx, admin, record.Server, record.Database, record.Query, false)
}

// Approve grants future execution permission; it does not execute. With
// showResults the owner may run the query and see its output, without it the
// approval is recorded but the owner cannot execute.
func (wf *ApprovalWorkflow) Approve(ctx context.Context, workspaceID int64, showResults bool) error {
	workspace, record, err := wf.queries.GetWorkspaceWithQuery(workspaceID)
	if err != nil {
		return err
	}

	newStatus := core.StatusApproved
	description := "Approved by admin - User cannot execute"
	if showResults {
		newStatus = core.StatusApprovedWithResults
		description = "Approved by admin - User can execute"
	}

	if err := wf.queries.UpdateStatusCAS(record.ID, core.StatusWaitingForApproval, newStatus); err != nil {
		return err
	}
	return wf.queries.SetShowResults(workspace.ID, showResults, description)
}

// Reject closes the record without executing.
func (wf *ApprovalWorkflow) Reject(ctx context.Context, workspaceID int64) error {
	workspace, record, err := wf.queries.GetWorkspaceWithQuery(workspaceID)
	if err != nil {
		return err
	}
	if err := wf.queries.UpdateStatusCAS(record.ID, core.StatusWaitingForApproval, core.StatusRejected); err != nil {
		return err
	}
	return wf.queries.UpdateWorkspaceDescription(workspace.ID, "Rejected by admin")
}

// ExecuteApproved runs an approved workspace query as its original
// submitter. Whatever happens, the record lands in a terminal state; a
// failed execution is recorded on the workspace and surfaced, never
// swallowed.
func (wf *ApprovalWorkflow) ExecuteApproved(ctx context.Context, workspaceID int64, user *core.User) (*core.QueryResult, error) {
	workspace, record, err := wf.queries.GetWorkspaceWithQuery(workspaceID)
	if err != nil {
		return nil, err
	}
	if workspace.UserID != user.ID {
		return nil, core.ErrForbidden
	}
	if record.Status != core.StatusApproved && record.Status != core.StatusApprovedWithResults {
		return nil, fmt.Errorf("status is %q: %w", record.Status, core.ErrNotApproved)
	}
	if workspace.ShowResults == nil || !*workspace.ShowResults {
		return nil, fmt.Errorf("results not visible to owner: %w", core.ErrNotApproved)
	}

	result, runErr := wf.runner.Run(ctx, user, record.Server, record.Database, record.Query, true)
	if runErr != nil {
		if err := wf.queries.UpdateStatusCAS(record.ID, record.Status, core.StatusApprovalExecFailed); err != nil {
			logger.Error.Printf("workflow: could not mark query %d failed: %v", record.ID, err)
		}
		if err := wf.queries.UpdateWorkspaceDescription(workspace.ID, fmt.Sprintf("Execution failed: %s", runErr)); err != nil {
			logger.Error.Printf("workflow: could not record failure on workspace %d: %v", workspace.ID, err)
		}
		return nil, runErr
	}

	if err := wf.queries.UpdateStatusCAS(record.ID, record.Status, core.StatusApprovedExecuted); err != nil {
		// Lost the race to a concurrent execution; the result is still valid.
		logger.Error.Printf("workflow: could not mark query %d executed: %v", record.ID, err)
	}
	return result, nil
}

func pendingWorkspaceName(query string) string {
	if len(query) > 50 {
		return "Pending: " + query[:50] + "..."
	}
	return "Pending: " + query
}
