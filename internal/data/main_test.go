package data

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erdemdnmz2/WebQuery/internal/core"
	"github.com/erdemdnmz2/WebQuery/internal/logger"
)

func TestMain(m *testing.M) {
	logger.InitDiscard()
	m.Run()
}

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := InitDB(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedUser(t *testing.T, db *sql.DB, username string) *core.User {
	t.Helper()

	user, err := NewUserRepo(db).CreateUser(username, username+"@example.com", "hash", false)
	require.NoError(t, err)
	return user
}

// seedPending inserts a query record in waiting_for_approval with its
// workspace and returns both.
func seedPending(t *testing.T, repo *QueryRepo, userID int64) (*core.QueryRecord, *core.Workspace) {
	t.Helper()

	record := &core.QueryRecord{
		UserID:   userID,
		Server:   "prod",
		Database: "sales",
		Query:    "DELETE FROM orders",
		UUID:     "uuid-1",
		Status:   core.StatusWaitingForApproval,
		RiskType: core.RiskyPattern,
	}
	workspace := &core.Workspace{UserID: userID, Name: "pending"}
	require.NoError(t, repo.CreateWithWorkspace(record, workspace))
	return record, workspace
}
