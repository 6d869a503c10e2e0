// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loresmith Contributors

package vector

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	lserr "github.com/loresmith-dev/loresmith/pkg/errors"
)

func init() {
	sqlite_vec.Auto()
}

// Compile-time interface check.
var _ Index = (*SQLite)(nil)

// SQLite implements Index backed by a vec0 virtual table with cosine
// distance. Cosine distance ranges over [0, 2]; similarity is mapped
// back to [0, 1] as (2 - distance) / 2.
type SQLite struct {
	db         *sql.DB
	dimensions int
}

// NewSQLite opens (or creates) a SQLite database at dbPath and
// initialises the vec0 virtual table for the given vector width.
func NewSQLite(dbPath string, dimensions int) (*SQLite, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, lserr.Wrapf(err, lserr.CodeStoreFailure, "opening vector db %s", dbPath)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, lserr.Wrapf(err, lserr.CodeStoreFailure, "pinging vector db %s", dbPath)
	}

	ddl := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS entry_vectors USING vec0(id TEXT PRIMARY KEY, embedding float[%d] distance_metric=cosine)`,
		dimensions,
	)
	if _, err := db.Exec(ddl); err != nil {
		_ = db.Close()
		return nil, lserr.Wrapf(err, lserr.CodeStoreFailure, "creating entry_vectors virtual table")
	}

	return &SQLite{db: db, dimensions: dimensions}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Upsert(ctx context.Context, entryID string, vec []float32) error {
	if len(vec) != s.dimensions {
		return lserr.Errorf(lserr.CodeInvalidArgument,
			"vector has %d dimensions, index expects %d", len(vec), s.dimensions)
	}

	blob, err := sqlite_vec.SerializeFloat32(vec)
	if err != nil {
		return lserr.Wrapf(err, lserr.CodeStoreFailure, "serializing embedding for %s", entryID)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return lserr.Wrapf(err, lserr.CodeStoreFailure, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	// vec0 does not support ON CONFLICT; delete first for upsert.
	if _, err := tx.ExecContext(ctx, `DELETE FROM entry_vectors WHERE id = ?`, entryID); err != nil {
		return lserr.Wrapf(err, lserr.CodeStoreFailure, "deleting existing vector %s", entryID)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO entry_vectors(id, embedding) VALUES (?, ?)`, entryID, blob); err != nil {
		return lserr.Wrapf(err, lserr.CodeStoreFailure, "inserting vector %s", entryID)
	}

	if err := tx.Commit(); err != nil {
		return lserr.Wrapf(err, lserr.CodeStoreFailure, "committing vector upsert %s", entryID)
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context, entryIDs []string) error {
	if len(entryIDs) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(entryIDs)), ",")
	args := make([]any, len(entryIDs))
	for i, id := range entryIDs {
		args[i] = id
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM entry_vectors WHERE id IN (`+placeholders+`)`, args...); err != nil {
		return lserr.Wrapf(err, lserr.CodeStoreFailure, "deleting vectors")
	}
	return nil
}

func (s *SQLite) Query(ctx context.Context, vec []float32, k int) ([]Match, error) {
	if k <= 0 {
		return nil, lserr.Errorf(lserr.CodeInvalidArgument, "k must be positive, got %d", k)
	}
	if len(vec) != s.dimensions {
		return nil, lserr.Errorf(lserr.CodeInvalidArgument,
			"query vector has %d dimensions, index expects %d", len(vec), s.dimensions)
	}

	blob, err := sqlite_vec.SerializeFloat32(vec)
	if err != nil {
		return nil, lserr.Wrapf(err, lserr.CodeStoreFailure, "serializing query vector")
	}

	const q = `SELECT id, distance FROM entry_vectors
WHERE embedding MATCH ? AND k = ?
ORDER BY distance`

	rows, err := s.db.QueryContext(ctx, q, blob, k)
	if err != nil {
		return nil, lserr.Wrapf(err, lserr.CodeStoreFailure, "querying vectors")
	}
	defer func() { _ = rows.Close() }()

	var matches []Match
	for rows.Next() {
		var (
			id       string
			distance float64
		)
		if err := rows.Scan(&id, &distance); err != nil {
			return nil, lserr.Wrapf(err, lserr.CodeStoreFailure, "scanning vector result")
		}
		sim := (2 - distance) / 2
		if sim < 0 {
			sim = 0
		} else if sim > 1 {
			sim = 1
		}
		matches = append(matches, Match{EntryID: id, Similarity: sim})
	}
	return matches, rows.Err()
}
