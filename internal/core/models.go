package core

import (
	"time"
)

type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Password  string    `json:"-"` // bcrypt hash, never the DB credential
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

// QueryStatus enumerates the approval lifecycle of a stored query.
// Only the ApprovalWorkflow mutates it.
type QueryStatus string

const (
	StatusSaved               QueryStatus = "saved_in_workspace"
	StatusWaitingForApproval  QueryStatus = "waiting_for_approval"
	StatusApproved            QueryStatus = "approved"
	StatusApprovedWithResults QueryStatus = "approved_with_results"
	StatusRejected            QueryStatus = "rejected"
	StatusApprovedExecuted    QueryStatus = "approved_and_executed"
	StatusApprovalExecFailed  QueryStatus = "approval_execution_failed"
)

// RiskCategory labels a query matched by the classifier. Empty means safe.
type RiskCategory string

const (
	RiskNone         RiskCategory = ""
	RiskSQLInjection RiskCategory = "sql_injection_risk"
	RiskDDLPattern   RiskCategory = "ddl_pattern"
	RiskyPattern     RiskCategory = "risky_pattern"
	RiskPerformance  RiskCategory = "performance_risk"
)

type QueryRecord struct {
	ID       int64        `json:"id"`
	UserID   int64        `json:"user_id"`
	Server   string       `json:"servername"`
	Database string       `json:"database_name"`
	Query    string       `json:"query"`
	UUID     string       `json:"uuid"`
	Status   QueryStatus  `json:"status"`
	RiskType RiskCategory `json:"risk_type,omitempty"`
}

// Workspace is a saved query plus its approval/visibility metadata, 1:1 with
// a QueryRecord. ShowResults is nil until an admin decides.
type Workspace struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"user_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	QueryID     int64  `json:"query_id"`
	ShowResults *bool  `json:"show_results"`
}

type ExecutionLog struct {
	ID                int64     `json:"id"`
	UserID            int64     `json:"user_id"`
	Username          string    `json:"username"`
	QueryDate         time.Time `json:"query_date"`
	Query             string    `json:"query"`
	Server            string    `json:"machine_name"`
	DurationMs        *int64    `json:"duration_ms"`
	RowCount          *int64    `json:"row_count"`
	Success           *bool     `json:"is_successfull"`
	ErrorMessage      string    `json:"error_message,omitempty"`
	ApprovedExecution bool      `json:"approved_execution"`
}

type LoginLog struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	LoginDate  time.Time  `json:"login_date"`
	ClientIP   string     `json:"client_ip"`
	LogoutDate *time.Time `json:"logout_date"`
}

// ServerEntry is one registered database on one server. The registry keeps
// these immutable between refreshes.
type ServerEntry struct {
	ID         int64  `json:"id"`
	Server     string `json:"servername"`
	Database   string `json:"database_name"`
	Technology string `json:"technology"`
}

// WorkspaceDetail is the joined workspace + query view returned to owners.
type WorkspaceDetail struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Query       string       `json:"query"`
	Server      string       `json:"servername"`
	Database    string       `json:"database_name"`
	Status      QueryStatus  `json:"status"`
	RiskType    RiskCategory `json:"risk_type,omitempty"`
	ShowResults *bool        `json:"show_results"`
	OwnerID     int64        `json:"owner_id"`
}

// ApprovalItem is one row of the admin approval queue.
type ApprovalItem struct {
	UserID      int64        `json:"user_id"`
	WorkspaceID int64        `json:"workspace_id"`
	Username    string       `json:"username"`
	Query       string       `json:"query"`
	Server      string       `json:"servername"`
	Database    string       `json:"database"`
	Status      QueryStatus  `json:"status"`
	RiskType    RiskCategory `json:"risk_type"`
}
