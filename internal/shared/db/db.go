package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Drivers suportados pelo store do pool
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

func ConnectPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open(DriverPostgres, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return db, nil
}

// ConnectSQLite abre o banco local (arquivo ou ":memory:") usado em dev e testes.
// Uma única conexão: SQLite serializa escritas e ":memory:" é por conexão.
func ConnectSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open(DriverSQLite, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite pragma: %w", err)
	}
	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite wal: %w", err)
		}
	}

	return db, nil
}

// Connect escolhe o driver conforme configuração
func Connect(driver, postgresDSN, sqlitePath string) (*sql.DB, error) {
	switch driver {
	case DriverPostgres, "":
		return ConnectPostgres(postgresDSN)
	case DriverSQLite:
		return ConnectSQLite(sqlitePath)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
