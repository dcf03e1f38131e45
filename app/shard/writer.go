package shard

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Writer fills a shard file. Readers opened with Open see its records once
// they are committed.
type Writer struct {
	path string
	db   *sql.DB
}

// Create opens or creates a writable shard file and brings its schema up
// to date.
func Create(path string) (*Writer, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open shard: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, _, err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Writer{path: path, db: db}, nil
}

func runMigrations(db *sql.DB) (uint, bool, error) {
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return 0, false, fmt.Errorf("failed to create sqlite driver: %w", err)
	}

	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return 0, false, fmt.Errorf("failed to create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return 0, false, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, false, fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}

	return version, dirty, nil
}

func (w *Writer) Path() string {
	return w.path
}

// Put stores data under hexName, replacing any previous record.
func (w *Writer) Put(ctx context.Context, hexName, contentType string, data []byte) error {
	if hexName == "" {
		return fmt.Errorf("hex name is required")
	}
	if data == nil {
		data = []byte{}
	}

	_, err := w.db.ExecContext(ctx, `
		INSERT INTO records (hex_name, content_type, data)
		VALUES (?, ?, ?)
		ON CONFLICT(hex_name) DO UPDATE SET
			content_type = excluded.content_type,
			data = excluded.data
	`, strings.ToLower(hexName), contentType, data)
	if err != nil {
		return fmt.Errorf("failed to put record %s: %w", hexName, err)
	}

	return nil
}

func (w *Writer) Has(ctx context.Context, hexName string) (bool, error) {
	var exists bool
	err := w.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM records WHERE hex_name = ?)`, strings.ToLower(hexName)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check record %s: %w", hexName, err)
	}
	return exists, nil
}

func (w *Writer) Close() error {
	return w.db.Close()
}
