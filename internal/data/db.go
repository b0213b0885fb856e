package data

import (
	"database/sql"

	_ "modernc.org/sqlite"
)

// InitDB opens the application record store and runs migrations
func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		return nil, err
	}

	if err := runMigrations(db); err != nil {
		return nil, err
	}

	return db, nil
}

func runMigrations(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		email TEXT UNIQUE,
		password_hash TEXT NOT NULL,
		is_admin INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS query_data (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		servername TEXT,
		database_name TEXT,
		query TEXT NOT NULL,
		uuid TEXT NOT NULL,
		status TEXT NOT NULL,
		risk_type TEXT,
		FOREIGN KEY(user_id) REFERENCES users(id)
	);
	CREATE INDEX IF NOT EXISTS idx_query_data_uuid ON query_data(uuid);
	CREATE INDEX IF NOT EXISTS idx_query_data_status ON query_data(status);

	CREATE TABLE IF NOT EXISTS workspaces (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		description TEXT,
		query_id INTEGER NOT NULL UNIQUE,
		show_results INTEGER,
		FOREIGN KEY(user_id) REFERENCES users(id),
		FOREIGN KEY(query_id) REFERENCES query_data(id)
	);

	CREATE TABLE IF NOT EXISTS execution_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		username TEXT NOT NULL,
		query_date DATETIME NOT NULL,
		query TEXT NOT NULL,
		machine_name TEXT NOT NULL,
		duration_ms INTEGER,
		row_count INTEGER,
		is_successfull INTEGER,
		error_message TEXT,
		approved_execution INTEGER DEFAULT 0,
		finished_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS login_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		login_date DATETIME NOT NULL,
		client_ip TEXT NOT NULL,
		logout_date DATETIME,
		FOREIGN KEY(user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS databases (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		servername TEXT NOT NULL,
		database_name TEXT NOT NULL,
		technology TEXT NOT NULL,
		UNIQUE(servername, database_name)
	);
	`
	_, err := db.Exec(schema)
	return err
}
