package data

import (
	"database/sql"
	"errors"
	"time"

	"github.com/erdemdnmz2/WebQuery/internal/core"
)

// ExecutionLogRepo brackets every execution attempt: Begin inserts the start
// record, Finish finalizes it once. The Finish UPDATE is guarded on
// finished_at, so a second call is a no-op instead of clobbering the first
// result.
type ExecutionLogRepo struct {
	db *sql.DB
}

func NewExecutionLogRepo(db *sql.DB) *ExecutionLogRepo {
	return &ExecutionLogRepo{db: db}
}

func (r *ExecutionLogRepo) Begin(user *core.User, query, server string, approvedExecution bool) (int64, error) {
	res, err := r.db.Exec(`INSERT INTO execution_logs (user_id, username, query_date, query, machine_name, approved_execution)
		VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, time.Now().UTC(), query, server, boolToInt(approvedExecution))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *ExecutionLogRepo) Finish(logID int64, success bool, rowCount int64, errMsg string) error {
	var started time.Time
	err := r.db.QueryRow(`SELECT query_date FROM execution_logs WHERE id = ?`, logID).Scan(&started)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	if err != nil {
		return err
	}

	durationMs := time.Since(started).Milliseconds()

	if success {
		_, err = r.db.Exec(`UPDATE execution_logs
			SET is_successfull = 1, row_count = ?, duration_ms = ?, finished_at = ?
			WHERE id = ? AND finished_at IS NULL`,
			rowCount, durationMs, time.Now().UTC(), logID)
	} else {
		_, err = r.db.Exec(`UPDATE execution_logs
			SET is_successfull = 0, error_message = ?, duration_ms = ?, finished_at = ?
			WHERE id = ? AND finished_at IS NULL`,
			errMsg, durationMs, time.Now().UTC(), logID)
	}
	return err
}

func (r *ExecutionLogRepo) GetByID(id int64) (*core.ExecutionLog, error) {
	var l core.ExecutionLog
	var approved int
	var errMsg sql.NullString
	err := r.db.QueryRow(`SELECT id, user_id, username, query_date, query, machine_name,
			duration_ms, row_count, is_successfull, error_message, approved_execution
		FROM execution_logs WHERE id = ?`, id).
		Scan(&l.ID, &l.UserID, &l.Username, &l.QueryDate, &l.Query, &l.Server,
			&l.DurationMs, &l.RowCount, nullBoolPtr(&l.Success), &errMsg, &approved)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	l.ErrorMessage = errMsg.String
	l.ApprovedExecution = approved == 1
	return &l, nil
}

// nullBoolPtr adapts a *\*bool field to something Scan can fill from a
// nullable INTEGER column.
func nullBoolPtr(target **bool) sql.Scanner {
	return &boolPtrScanner{target: target}
}

type boolPtrScanner struct {
	target **bool
}

func (s *boolPtrScanner) Scan(src any) error {
	if src == nil {
		*s.target = nil
		return nil
	}
	var v bool
	switch n := src.(type) {
	case int64:
		v = n == 1
	case bool:
		v = n
	}
	*s.target = &v
	return nil
}
