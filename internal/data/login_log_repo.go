package data

import (
	"database/sql"
	"time"
)

type LoginLogRepo struct {
	db *sql.DB
}

func NewLoginLogRepo(db *sql.DB) *LoginLogRepo {
	return &LoginLogRepo{db: db}
}

func (r *LoginLogRepo) Create(userID int64, clientIP string) (int64, error) {
	res, err := r.db.Exec(`INSERT INTO login_logs (user_id, login_date, client_ip) VALUES (?, ?, ?)`,
		userID, time.Now().UTC(), clientIP)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *LoginLogRepo) Close(logID int64) error {
	_, err := r.db.Exec(`UPDATE login_logs SET logout_date = ? WHERE id = ? AND logout_date IS NULL`,
		time.Now().UTC(), logID)
	return err
}
