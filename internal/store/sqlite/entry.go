// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loresmith Contributors

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/loresmith-dev/loresmith/internal/store"
	lserr "github.com/loresmith-dev/loresmith/pkg/errors"
)

// Compile-time interface check.
var _ store.EntryStore = (*EntryStore)(nil)

// EntryStore implements store.EntryStore backed by SQLite. Entries,
// revisions, and review requests share one database file; the append
// check-and-insert runs as a single conditional statement so concurrent
// appends on the same entry serialize on the write lock.
type EntryStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewEntryStore opens (or creates) a SQLite database at dbPath and
// initialises the entry, revision, and review tables.
func NewEntryStore(dbPath string) (*EntryStore, error) {
	db, err := openDB(dbPath)
	if err != nil {
		return nil, err
	}

	if err := migrateEntries(db); err != nil {
		_ = db.Close()
		return nil, lserr.Wrapf(err, lserr.CodeStoreFailure, "migrating entry tables")
	}

	return &EntryStore{db: db, logger: slog.Default()}, nil
}

func migrateEntries(db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS entries (
	id            TEXT PRIMARY KEY,
	category      TEXT NOT NULL,
	taxonomy_node TEXT NOT NULL,
	taxonomy_path TEXT NOT NULL,
	head_revision INTEGER NOT NULL,
	created       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revisions (
	entry_id TEXT NOT NULL REFERENCES entries(id),
	number   INTEGER NOT NULL,
	parent   INTEGER NOT NULL,
	content  TEXT NOT NULL,
	author   TEXT NOT NULL,
	status   TEXT NOT NULL,
	created  TEXT NOT NULL,
	PRIMARY KEY (entry_id, number)
);

CREATE TABLE IF NOT EXISTS review_requests (
	id       TEXT PRIMARY KEY,
	entry_id TEXT NOT NULL REFERENCES entries(id),
	revision INTEGER NOT NULL,
	state    TEXT NOT NULL,
	author   TEXT NOT NULL,
	reviewer TEXT NOT NULL DEFAULT '',
	reason   TEXT NOT NULL DEFAULT '',
	created  TEXT NOT NULL,
	decided  TEXT NOT NULL DEFAULT ''
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_open_review
	ON review_requests(entry_id) WHERE state = 'open';
`
	_, err := db.Exec(ddl)
	return err
}

// Close closes the underlying database connection.
func (s *EntryStore) Close() error {
	return s.db.Close()
}

func (s *EntryStore) CreateEntry(ctx context.Context, entry *store.Entry, first *store.Revision) error {
	pathJSON, err := json.Marshal(entry.TaxonomyPath)
	if err != nil {
		return lserr.Wrapf(err, lserr.CodeStoreFailure, "marshalling taxonomy path")
	}
	contentJSON, err := json.Marshal(first.Content)
	if err != nil {
		return lserr.Wrapf(err, lserr.CodeStoreFailure, "marshalling revision content")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return lserr.Wrapf(err, lserr.CodeStoreFailure, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	const entryQ = `INSERT INTO entries (id, category, taxonomy_node, taxonomy_path, head_revision, created)
VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, entryQ,
		entry.ID, string(entry.Category), entry.TaxonomyNodeID, string(pathJSON),
		first.Number, formatTime(entry.CreatedAt),
	); err != nil {
		return lserr.Wrapf(err, lserr.CodeStoreFailure, "inserting entry %s", entry.ID)
	}

	const revQ = `INSERT INTO revisions (entry_id, number, parent, content, author, status, created)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, revQ,
		first.EntryID, first.Number, first.Parent, string(contentJSON),
		first.Author, string(first.Status), formatTime(first.CreatedAt),
	); err != nil {
		return lserr.Wrapf(err, lserr.CodeStoreFailure, "inserting first revision for %s", entry.ID)
	}

	if err := tx.Commit(); err != nil {
		return lserr.Wrapf(err, lserr.CodeStoreFailure, "committing entry %s", entry.ID)
	}
	return nil
}

func (s *EntryStore) GetEntry(ctx context.Context, entryID string) (*store.Entry, error) {
	const q = `SELECT id, category, taxonomy_node, taxonomy_path, head_revision, created
FROM entries WHERE id = ?`

	var (
		e        store.Entry
		category string
		pathJSON string
		created  string
	)
	err := s.db.QueryRowContext(ctx, q, entryID).Scan(
		&e.ID, &category, &e.TaxonomyNodeID, &pathJSON, &e.HeadRevision, &created,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, lserr.New(lserr.CodeEntryNotFound, "entry "+entryID+" not found", lserr.FieldEntryID(entryID))
	}
	if err != nil {
		return nil, lserr.Wrapf(err, lserr.CodeStoreFailure, "getting entry %s", entryID)
	}

	e.Category = store.Category(category)
	e.CreatedAt = parseTime(created)
	if err := json.Unmarshal([]byte(pathJSON), &e.TaxonomyPath); err != nil {
		return nil, lserr.Wrapf(err, lserr.CodeStoreFailure, "unmarshalling taxonomy path for %s", entryID)
	}
	return &e, nil
}

func (s *EntryStore) ListEntryIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM entries ORDER BY id`)
	if err != nil {
		return nil, lserr.Wrapf(err, lserr.CodeStoreFailure, "listing entry IDs")
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, lserr.Wrapf(err, lserr.CodeStoreFailure, "scanning entry ID")
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *EntryStore) SetTaxonomy(ctx context.Context, entryID, nodeID string, path []string) error {
	pathJSON, err := json.Marshal(path)
	if err != nil {
		return lserr.Wrapf(err, lserr.CodeStoreFailure, "marshalling taxonomy path")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE entries SET taxonomy_node = ?, taxonomy_path = ? WHERE id = ?`,
		nodeID, string(pathJSON), entryID,
	)
	if err != nil {
		return lserr.Wrapf(err, lserr.CodeStoreFailure, "updating taxonomy for %s", entryID)
	}
	return requireRow(res, entryID)
}

func (s *EntryStore) CountEntriesWithNode(ctx context.Context, nodeID string) (int, error) {
	const q = `SELECT COUNT(*) FROM entries e
WHERE EXISTS (SELECT 1 FROM json_each(e.taxonomy_path) WHERE json_each.value = ?)`

	var n int
	if err := s.db.QueryRowContext(ctx, q, nodeID).Scan(&n); err != nil {
		return 0, lserr.Wrapf(err, lserr.CodeStoreFailure, "counting entries on node %s", nodeID)
	}
	return n, nil
}

// Append inserts revision parent+1 only if parent is still the entry's
// highest revision number. The conditional INSERT...SELECT makes the
// check and the append one atomic statement; zero rows affected means a
// concurrent writer got there first.
func (s *EntryStore) Append(ctx context.Context, entryID string, content store.Content, author string, parent int) (*store.Revision, error) {
	if _, err := s.GetEntry(ctx, entryID); err != nil {
		return nil, err
	}

	contentJSON, err := json.Marshal(content)
	if err != nil {
		return nil, lserr.Wrapf(err, lserr.CodeStoreFailure, "marshalling revision content")
	}

	rev := &store.Revision{
		EntryID:   entryID,
		Number:    parent + 1,
		Parent:    parent,
		Content:   content,
		Author:    author,
		Status:    store.RevisionPending,
		CreatedAt: time.Now().UTC(),
	}

	const q = `INSERT INTO revisions (entry_id, number, parent, content, author, status, created)
SELECT ?, ?, ?, ?, ?, ?, ?
WHERE (SELECT COALESCE(MAX(number), 0) FROM revisions WHERE entry_id = ?) = ?`

	res, err := s.db.ExecContext(ctx, q,
		entryID, rev.Number, rev.Parent, string(contentJSON),
		author, string(rev.Status), formatTime(rev.CreatedAt),
		entryID, parent,
	)
	if err != nil {
		return nil, lserr.Wrapf(err, lserr.CodeStoreFailure, "appending revision for %s", entryID)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, lserr.Wrapf(err, lserr.CodeStoreFailure, "checking append result for %s", entryID)
	}
	if n == 0 {
		return nil, lserr.New(lserr.CodeRevisionConflict,
			"stale parent revision: entry has moved on",
			lserr.FieldEntryID(entryID),
			lserr.Field("parent_revision_number", parent),
		)
	}

	return rev, nil
}

func (s *EntryStore) GetRevision(ctx context.Context, entryID string, number int) (*store.Revision, error) {
	const q = `SELECT entry_id, number, parent, content, author, status, created
FROM revisions WHERE entry_id = ? AND number = ?`

	rev, err := scanRevision(s.db.QueryRowContext(ctx, q, entryID, number))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, lserr.New(lserr.CodeRevisionNotFound, "revision not found",
			lserr.FieldEntryID(entryID), lserr.FieldRevision(number))
	}
	if err != nil {
		return nil, lserr.Wrapf(err, lserr.CodeStoreFailure, "getting revision %s/%d", entryID, number)
	}
	return rev, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRevision(row rowScanner) (*store.Revision, error) {
	var (
		rev         store.Revision
		contentJSON string
		status      string
		created     string
	)
	if err := row.Scan(&rev.EntryID, &rev.Number, &rev.Parent, &contentJSON, &rev.Author, &status, &created); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(contentJSON), &rev.Content); err != nil {
		return nil, err
	}
	rev.Status = store.RevisionStatus(status)
	rev.CreatedAt = parseTime(created)
	return &rev, nil
}

func (s *EntryStore) History(ctx context.Context, entryID string) ([]*store.Revision, error) {
	if _, err := s.GetEntry(ctx, entryID); err != nil {
		return nil, err
	}

	const q = `SELECT entry_id, number, parent, content, author, status, created
FROM revisions WHERE entry_id = ? ORDER BY number ASC`

	rows, err := s.db.QueryContext(ctx, q, entryID)
	if err != nil {
		return nil, lserr.Wrapf(err, lserr.CodeStoreFailure, "listing revisions for %s", entryID)
	}
	defer func() { _ = rows.Close() }()

	var revs []*store.Revision
	for rows.Next() {
		rev, err := scanRevision(rows)
		if err != nil {
			return nil, lserr.Wrapf(err, lserr.CodeStoreFailure, "scanning revision for %s", entryID)
		}
		revs = append(revs, rev)
	}
	return revs, rows.Err()
}

func (s *EntryStore) MarkStatus(ctx context.Context, entryID string, number int, status store.RevisionStatus) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return lserr.Wrapf(err, lserr.CodeStoreFailure, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	var current string
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM revisions WHERE entry_id = ? AND number = ?`,
		entryID, number,
	).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return lserr.New(lserr.CodeRevisionNotFound, "revision not found",
			lserr.FieldEntryID(entryID), lserr.FieldRevision(number))
	}
	if err != nil {
		return lserr.Wrapf(err, lserr.CodeStoreFailure, "reading revision status %s/%d", entryID, number)
	}

	if !store.ValidStatusTransition(store.RevisionStatus(current), status) {
		return lserr.Errorf(lserr.CodeRevisionInvalidTransition,
			"revision %s/%d cannot move from %s to %s", entryID, number, current, status)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE revisions SET status = ? WHERE entry_id = ? AND number = ?`,
		string(status), entryID, number,
	); err != nil {
		return lserr.Wrapf(err, lserr.CodeStoreFailure, "updating revision status %s/%d", entryID, number)
	}

	if err := tx.Commit(); err != nil {
		return lserr.Wrapf(err, lserr.CodeStoreFailure, "committing status change %s/%d", entryID, number)
	}
	return nil
}

func (s *EntryStore) SetHead(ctx context.Context, entryID string, number int) error {
	const q = `UPDATE entries SET head_revision = ?
WHERE id = ? AND EXISTS (SELECT 1 FROM revisions WHERE entry_id = ? AND number = ?)`

	res, err := s.db.ExecContext(ctx, q, number, entryID, entryID, number)
	if err != nil {
		return lserr.Wrapf(err, lserr.CodeStoreFailure, "updating head for %s", entryID)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return lserr.Wrapf(err, lserr.CodeStoreFailure, "checking head update for %s", entryID)
	}
	if n == 0 {
		return lserr.New(lserr.CodeRevisionNotFound, "revision not found",
			lserr.FieldEntryID(entryID), lserr.FieldRevision(number))
	}
	return nil
}

func (s *EntryStore) CreateReviewRequest(ctx context.Context, req *store.ReviewRequest) error {
	const q = `INSERT INTO review_requests (id, entry_id, revision, state, author, reviewer, reason, created, decided)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, q,
		req.ID, req.EntryID, req.Revision, string(req.State),
		req.Author, req.Reviewer, req.Reason,
		formatTime(req.CreatedAt), formatTime(req.DecidedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return lserr.New(lserr.CodeReviewInProgress,
				"entry already has a pending revision under review",
				lserr.FieldEntryID(req.EntryID))
		}
		return lserr.Wrapf(err, lserr.CodeStoreFailure, "inserting review request %s", req.ID)
	}
	return nil
}

func (s *EntryStore) GetReviewRequest(ctx context.Context, requestID string) (*store.ReviewRequest, error) {
	const q = `SELECT id, entry_id, revision, state, author, reviewer, reason, created, decided
FROM review_requests WHERE id = ?`

	req, err := scanReviewRequest(s.db.QueryRowContext(ctx, q, requestID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, lserr.New(lserr.CodeRequestNotFound,
			"review request "+requestID+" not found", lserr.Field("request_id", requestID))
	}
	if err != nil {
		return nil, lserr.Wrapf(err, lserr.CodeStoreFailure, "getting review request %s", requestID)
	}
	return req, nil
}

func (s *EntryStore) OpenReviewRequest(ctx context.Context, entryID string) (*store.ReviewRequest, error) {
	const q = `SELECT id, entry_id, revision, state, author, reviewer, reason, created, decided
FROM review_requests WHERE entry_id = ? AND state = 'open'`

	req, err := scanReviewRequest(s.db.QueryRowContext(ctx, q, entryID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, lserr.New(lserr.CodeRequestNotFound,
			"entry has no open review request", lserr.FieldEntryID(entryID))
	}
	if err != nil {
		return nil, lserr.Wrapf(err, lserr.CodeStoreFailure, "getting open review request for %s", entryID)
	}
	return req, nil
}

func scanReviewRequest(row rowScanner) (*store.ReviewRequest, error) {
	var (
		req     store.ReviewRequest
		state   string
		created string
		decided string
	)
	if err := row.Scan(&req.ID, &req.EntryID, &req.Revision, &state,
		&req.Author, &req.Reviewer, &req.Reason, &created, &decided); err != nil {
		return nil, err
	}
	req.State = store.ReviewState(state)
	req.CreatedAt = parseTime(created)
	req.DecidedAt = parseTime(decided)
	return &req, nil
}

func (s *EntryStore) UpdateReviewRequest(ctx context.Context, req *store.ReviewRequest) error {
	const q = `UPDATE review_requests
SET state = ?, reviewer = ?, reason = ?, decided = ? WHERE id = ?`

	res, err := s.db.ExecContext(ctx, q,
		string(req.State), req.Reviewer, req.Reason, formatTime(req.DecidedAt), req.ID,
	)
	if err != nil {
		return lserr.Wrapf(err, lserr.CodeStoreFailure, "updating review request %s", req.ID)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return lserr.Wrapf(err, lserr.CodeStoreFailure, "checking review update %s", req.ID)
	}
	if n == 0 {
		return lserr.New(lserr.CodeRequestNotFound,
			"review request "+req.ID+" not found", lserr.Field("request_id", req.ID))
	}
	return nil
}

func requireRow(res sql.Result, entryID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return lserr.Wrapf(err, lserr.CodeStoreFailure, "checking update result for %s", entryID)
	}
	if n == 0 {
		return lserr.New(lserr.CodeEntryNotFound, "entry "+entryID+" not found", lserr.FieldEntryID(entryID))
	}
	return nil
}
