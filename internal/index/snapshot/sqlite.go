package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite stores snapshots in a local SQLite database.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the snapshot database at path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}
	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	query := `
    CREATE TABLE IF NOT EXISTS embedding_snapshots (
        key TEXT PRIMARY KEY,
        vectors BLOB NOT NULL,
        created_at DATETIME NOT NULL
    );`
	if _, err := s.db.ExecContext(context.Background(), query); err != nil {
		return fmt.Errorf("migrate snapshot db: %w", err)
	}
	return nil
}

// Load returns the vectors stored under key.
func (s *SQLite) Load(ctx context.Context, key string) ([][]float64, bool, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT vectors FROM embedding_snapshots WHERE key = ?`, key).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	vectors, err := decode(blob)
	if err != nil {
		return nil, false, err
	}
	return vectors, true, nil
}

// Save stores vectors under key, replacing an existing snapshot.
func (s *SQLite) Save(ctx context.Context, key string, vectors [][]float64) error {
	blob, err := encode(vectors)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO embedding_snapshots (key, vectors, created_at) VALUES (?, ?, ?)
        ON CONFLICT(key) DO UPDATE SET vectors = excluded.vectors, created_at = excluded.created_at`,
		key, blob, time.Now().UTC())
	return err
}

// Close releases the database handle.
func (s *SQLite) Close() error { return s.db.Close() }
