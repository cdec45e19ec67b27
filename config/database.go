package config

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// InitDB opens the audit database. postgres:// URLs use lib/pq, sqlite://
// or file: URLs use go-sqlite3. An empty URL disables the audit trail.
func InitDB(dbURL string) (*sql.DB, error) {
	if dbURL == "" {
		return nil, nil
	}

	driver, dsn := driverFor(dbURL)
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if driver == "sqlite3" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
	}

	return db, nil
}

func driverFor(dbURL string) (string, string) {
	switch {
	case strings.HasPrefix(dbURL, "sqlite://"):
		return "sqlite3", strings.TrimPrefix(dbURL, "sqlite://")
	case strings.HasPrefix(dbURL, "file:"), strings.HasSuffix(dbURL, ".db"):
		return "sqlite3", dbURL
	default:
		return "postgres", dbURL
	}
}

// RunMigrations creates the audit schema. The statements are valid for both
// PostgreSQL and SQLite.
func RunMigrations(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS audit_logs (
			id VARCHAR(36) PRIMARY KEY,
			action VARCHAR(100) NOT NULL,
			entity VARCHAR(100) NOT NULL,
			entity_id VARCHAR(255),
			actor VARCHAR(255),
			changes TEXT,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_logs_created_at ON audit_logs(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_logs_entity ON audit_logs(entity)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	return nil
}
