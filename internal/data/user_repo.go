package data

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/erdemdnmz2/WebQuery/internal/core"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) CreateUser(username, email, passwordHash string, isAdmin bool) (*core.User, error) {
	res, err := r.db.Exec(`INSERT INTO users (username, email, password_hash, is_admin) VALUES (?, ?, ?, ?)`,
		username, email, passwordHash, boolToInt(isAdmin))
	if err != nil {
		return nil, err
	}
	id, _ := res.LastInsertId()
	return r.GetByID(id)
}

func (r *UserRepo) GetByUsername(username string) (*core.User, error) {
	return r.scanOne(`SELECT id, username, COALESCE(email, ''), password_hash, is_admin, created_at FROM users WHERE username = ?`, username)
}

func (r *UserRepo) GetByID(id int64) (*core.User, error) {
	return r.scanOne(`SELECT id, username, COALESCE(email, ''), password_hash, is_admin, created_at FROM users WHERE id = ?`, id)
}

func (r *UserRepo) scanOne(query string, arg any) (*core.User, error) {
	var u core.User
	var isAdmin int
	err := r.db.QueryRow(query, arg).
		Scan(&u.ID, &u.Username, &u.Email, &u.Password, &isAdmin, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.IsAdmin = isAdmin == 1
	return &u, nil
}

func (r *UserRepo) CountUsers() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

func (r *UserRepo) UpdatePassword(id int64, passwordHash string) error {
	res, err := r.db.Exec(`UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("user %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
