package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/IT-Nick/proctor/migrations"
	_ "modernc.org/sqlite"
)

// DB обертка над соединением с SQLite
type DB struct {
	*sql.DB
}

// New открывает базу SQLite
func New(dataSourceName string) (*DB, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite не поддерживает параллельную запись, а :memory: живет в рамках одного соединения
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &DB{db}, nil
}

// RunMigrations создает схему, если ее еще нет
func (db *DB) RunMigrations() error {
	if _, err := db.Exec(migrations.SQLite); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}
