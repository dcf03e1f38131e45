package shard

import (
	"context"
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	_ "modernc.org/sqlite"
)

var ErrNotShard = errors.New("not a shard file")

// Record is one blob stored in a shard.
type Record struct {
	HexName     string
	ContentType string
	Data        []byte
}

// Store is a read-only handle on one shard file.
type Store struct {
	path string
	db   *sql.DB
}

// Open opens an existing shard file read-only and checks that it carries
// the records table.
func Open(path string) (*Store, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat shard: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrNotShard, path)
	}

	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open shard: %w", err)
	}

	var name string
	err = db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'records'`).Scan(&name)
	if err != nil {
		db.Close()
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotShard, path)
		}
		return nil, fmt.Errorf("failed to read shard schema: %w", err)
	}

	return &Store{path: path, db: db}, nil
}

func (s *Store) Path() string {
	return s.path
}

// Find looks up a record by its hex name. A missing record is reported as
// (nil, nil).
func (s *Store) Find(ctx context.Context, hexName string) (*Record, error) {
	record := Record{HexName: hexName}
	err := s.db.QueryRowContext(ctx, `
		SELECT content_type, data
		FROM records
		WHERE hex_name = ?
	`, strings.ToLower(hexName)).Scan(&record.ContentType, &record.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find record %s: %w", hexName, err)
	}

	return &record, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// HexName derives the content address used for a blob's source key.
func HexName(key string) string {
	sum := sha1.Sum([]byte(key))
	return hex.EncodeToString(sum[:])
}
