package data

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/erdemdnmz2/WebQuery/internal/core"
)

type QueryRepo struct {
	db *sql.DB
}

func NewQueryRepo(db *sql.DB) *QueryRepo {
	return &QueryRepo{db: db}
}

// CreateWithWorkspace inserts the query record and its workspace in one
// transaction; the generated query id is read back before the workspace row
// references it.
func (r *QueryRepo) CreateWithWorkspace(q *core.QueryRecord, w *core.Workspace) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`INSERT INTO query_data (user_id, servername, database_name, query, uuid, status, risk_type)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		q.UserID, q.Server, q.Database, q.Query, q.UUID, string(q.Status), nullable(string(q.RiskType)))
	if err != nil {
		return err
	}
	queryID, err := res.LastInsertId()
	if err != nil {
		return err
	}
	q.ID = queryID
	w.QueryID = queryID

	res, err = tx.Exec(`INSERT INTO workspaces (user_id, name, description, query_id, show_results) VALUES (?, ?, ?, ?, ?)`,
		w.UserID, w.Name, w.Description, w.QueryID, nullableBool(w.ShowResults))
	if err != nil {
		return err
	}
	w.ID, _ = res.LastInsertId()

	return tx.Commit()
}

func (r *QueryRepo) GetQueryByID(id int64) (*core.QueryRecord, error) {
	var q core.QueryRecord
	var risk sql.NullString
	err := r.db.QueryRow(`SELECT id, user_id, servername, database_name, query, uuid, status, risk_type FROM query_data WHERE id = ?`, id).
		Scan(&q.ID, &q.UserID, &q.Server, &q.Database, &q.Query, &q.UUID, &q.Status, &risk)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	q.RiskType = core.RiskCategory(risk.String)
	return &q, nil
}

func (r *QueryRepo) GetWorkspaceByID(id int64) (*core.Workspace, error) {
	var w core.Workspace
	var show sql.NullInt64
	err := r.db.QueryRow(`SELECT id, user_id, name, COALESCE(description, ''), query_id, show_results FROM workspaces WHERE id = ?`, id).
		Scan(&w.ID, &w.UserID, &w.Name, &w.Description, &w.QueryID, &show)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	w.ShowResults = intToBoolPtr(show)
	return &w, nil
}

func (r *QueryRepo) GetWorkspaceWithQuery(workspaceID int64) (*core.Workspace, *core.QueryRecord, error) {
	w, err := r.GetWorkspaceByID(workspaceID)
	if err != nil {
		return nil, nil, err
	}
	q, err := r.GetQueryByID(w.QueryID)
	if err != nil {
		return nil, nil, err
	}
	return w, q, nil
}

func (r *QueryRepo) ListByUser(userID int64) ([]core.WorkspaceDetail, error) {
	rows, err := r.db.Query(`
		SELECT w.id, w.name, COALESCE(w.description, ''), q.query, q.servername, q.database_name, q.status,
		       COALESCE(q.risk_type, ''), w.show_results, w.user_id
		FROM workspaces w
		JOIN query_data q ON q.id = w.query_id
		WHERE w.user_id = ?
		ORDER BY w.id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []core.WorkspaceDetail{}
	for rows.Next() {
		var d core.WorkspaceDetail
		var show sql.NullInt64
		if err := rows.Scan(&d.ID, &d.Name, &d.Description, &d.Query, &d.Server, &d.Database, &d.Status, &d.RiskType, &show, &d.OwnerID); err != nil {
			return nil, err
		}
		d.ShowResults = intToBoolPtr(show)
		list = append(list, d)
	}
	return list, rows.Err()
}

func (r *QueryRepo) ListPendingApprovals() ([]core.ApprovalItem, error) {
	rows, err := r.db.Query(`
		SELECT q.user_id, w.id, u.username, q.query, q.servername, q.database_name, q.status, COALESCE(q.risk_type, '')
		FROM query_data q
		JOIN workspaces w ON w.query_id = q.id
		JOIN users u ON u.id = q.user_id
		WHERE q.status = ?
		ORDER BY q.id`, string(core.StatusWaitingForApproval))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []core.ApprovalItem{}
	for rows.Next() {
		var item core.ApprovalItem
		if err := rows.Scan(&item.UserID, &item.WorkspaceID, &item.Username, &item.Query, &item.Server, &item.Database, &item.Status, &item.RiskType); err != nil {
			return nil, err
		}
		list = append(list, item)
	}
	return list, rows.Err()
}

// UpdateStatusCAS transitions the query status only when the current status
// still matches. No two admins can both decide the same record; the losing
// write sees zero affected rows.
func (r *QueryRepo) UpdateStatusCAS(queryID int64, from, to core.QueryStatus) error {
	res, err := r.db.Exec(`UPDATE query_data SET status = ? WHERE id = ? AND status = ?`,
		string(to), queryID, string(from))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either the record is gone or someone else transitioned it first.
		if _, err := r.GetQueryByID(queryID); err != nil {
			return err
		}
		return fmt.Errorf("query %d not in status %q: %w", queryID, from, core.ErrInvalidTransition)
	}
	return nil
}

func (r *QueryRepo) SetShowResults(workspaceID int64, showResults bool, description string) error {
	res, err := r.db.Exec(`UPDATE workspaces SET show_results = ?, description = ? WHERE id = ?`,
		boolToInt(showResults), description, workspaceID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("workspace %d: %w", workspaceID, core.ErrNotFound)
	}
	return nil
}

func (r *QueryRepo) UpdateWorkspaceDescription(workspaceID int64, description string) error {
	res, err := r.db.Exec(`UPDATE workspaces SET description = ? WHERE id = ?`, description, workspaceID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("workspace %d: %w", workspaceID, core.ErrNotFound)
	}
	return nil
}

func (r *QueryRepo) UpdateQueryText(workspaceID int64, query string) error {
	res, err := r.db.Exec(`UPDATE query_data SET query = ? WHERE id = (SELECT query_id FROM workspaces WHERE id = ?)`,
		query, workspaceID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("workspace %d: %w", workspaceID, core.ErrNotFound)
	}
	return nil
}

// DeleteWorkspace removes the workspace and its query record together.
func (r *QueryRepo) DeleteWorkspace(id int64) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var queryID int64
	err = tx.QueryRow(`SELECT query_id FROM workspaces WHERE id = ?`, id).Scan(&queryID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM workspaces WHERE id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM query_data WHERE id = ?`, queryID); err != nil {
		return err
	}
	return tx.Commit()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableBool(b *bool) any {
	if b == nil {
		return nil
	}
	return boolToInt(*b)
}

func intToBoolPtr(n sql.NullInt64) *bool {
	if !n.Valid {
		return nil
	}
	v := n.Int64 == 1
	return &v
}
