package data

import (
	"database/sql"

	"github.com/erdemdnmz2/WebQuery/internal/core"
)

// DatabaseRepo persists admin-registered databases. These supplement the
// probed catalogs after a registry refresh.
type DatabaseRepo struct {
	db *sql.DB
}

func NewDatabaseRepo(db *sql.DB) *DatabaseRepo {
	return &DatabaseRepo{db: db}
}

func (r *DatabaseRepo) List() ([]core.ServerEntry, error) {
	rows, err := r.db.Query(`SELECT id, servername, database_name, technology FROM databases ORDER BY servername, database_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []core.ServerEntry{}
	for rows.Next() {
		var e core.ServerEntry
		if err := rows.Scan(&e.ID, &e.Server, &e.Database, &e.Technology); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

func (r *DatabaseRepo) Add(entry *core.ServerEntry) error {
	res, err := r.db.Exec(`INSERT INTO databases (servername, database_name, technology) VALUES (?, ?, ?)`,
		entry.Server, entry.Database, entry.Technology)
	if err != nil {
		return err
	}
	entry.ID, _ = res.LastInsertId()
	return nil
}

func (r *DatabaseRepo) Exists(server, database string) (bool, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM databases WHERE servername = ? AND database_name = ?`,
		server, database).Scan(&count)
	return count > 0, err
}
