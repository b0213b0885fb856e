package core

import "context"

// UserRepository defines storage operations for application users
type UserRepository interface {
	CreateUser(username, email, passwordHash string, isAdmin bool) (*User, error)
	GetByUsername(username string) (*User, error)
	GetByID(id int64) (*User, error)
	CountUsers() (int, error)
	UpdatePassword(id int64, passwordHash string) error
}

// QueryRepository defines storage operations for query records and their
// workspaces. A workspace and its query record are created and deleted
// together.
type QueryRepository interface {
	CreateWithWorkspace(q *QueryRecord, w *Workspace) error
	GetQueryByID(id int64) (*QueryRecord, error)
	GetWorkspaceByID(id int64) (*Workspace, error)
	GetWorkspaceWithQuery(workspaceID int64) (*Workspace, *QueryRecord, error)
	ListByUser(userID int64) ([]WorkspaceDetail, error)
	ListPendingApprovals() ([]ApprovalItem, error)
	// UpdateStatusCAS flips the query status only if it still equals from;
	// returns ErrInvalidTransition when the compare-and-set loses.
	UpdateStatusCAS(queryID int64, from, to QueryStatus) error
	SetShowResults(workspaceID int64, showResults bool, description string) error
	UpdateWorkspaceDescription(workspaceID int64, description string) error
	UpdateQueryText(workspaceID int64, query string) error
	DeleteWorkspace(id int64) error
}

// ExecutionLogRepository brackets every execution attempt. Finish is
// idempotent: finalizing an already-finalized log is a no-op.
type ExecutionLogRepository interface {
	Begin(user *User, query, server string, approvedExecution bool) (int64, error)
	Finish(logID int64, success bool, rowCount int64, errMsg string) error
	GetByID(id int64) (*ExecutionLog, error)
}

// LoginLogRepository records login/logout events
type LoginLogRepository interface {
	Create(userID int64, clientIP string) (int64, error)
	Close(logID int64) error
}

// DatabaseRepository persists admin-registered databases that supplement the
// probed server catalogs
type DatabaseRepository interface {
	List() ([]ServerEntry, error)
	Add(entry *ServerEntry) error
	Exists(server, database string) (bool, error)
}

// QueryResult is the row set returned by any execution path.
type QueryResult struct {
	Columns   []string         `json:"columns"`
	Rows      []map[string]any `json:"rows"`
	RowCount  int              `json:"row_count"`
	Truncated bool             `json:"truncated"`
	Message   string           `json:"message,omitempty"`
}

// QueryRunner executes SQL on a target database under the given user's
// cached credential. approvedExecution marks the execution log accordingly.
type QueryRunner interface {
	Run(ctx context.Context, user *User, server, database, query string, approvedExecution bool) (*QueryResult, error)
}
