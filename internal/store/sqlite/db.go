// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loresmith Contributors

package sqlite

import (
	"database/sql"
	"errors"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	lserr "github.com/loresmith-dev/loresmith/pkg/errors"
)

// openDB opens (or creates) a SQLite database with the settings every
// backend store uses: WAL journaling, a busy timeout, foreign keys, and
// immediate transactions so a write transaction holds the write lock from
// BEGIN onward.
func openDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate")
	if err != nil {
		return nil, lserr.Wrapf(err, lserr.CodeStoreFailure, "opening sqlite db %s", dbPath)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, lserr.Wrapf(err, lserr.CodeStoreFailure, "pinging sqlite db %s", dbPath)
	}

	return db, nil
}

func nowUTC() time.Time { return time.Now().UTC() }

// formatTime serialises a time.Time to RFC3339 with nanosecond precision.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime deserialises a time string stored in the database.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

// isUniqueViolation reports whether err is a SQLite constraint violation.
func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrConstraint
	}
	return false
}
