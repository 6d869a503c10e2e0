// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loresmith Contributors

package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/loresmith-dev/loresmith/internal/store"
	lserr "github.com/loresmith-dev/loresmith/pkg/errors"
)

// maxTaxonomyDepth bounds recursive walks so a corrupted parent chain
// surfaces as a cycle error instead of an unbounded query.
const maxTaxonomyDepth = 64

// Compile-time interface check.
var _ store.TaxonomyIndex = (*TaxonomyIndex)(nil)

// TaxonomyIndex implements store.TaxonomyIndex backed by SQLite, storing
// the category forest as parent-pointer rows and resolving paths and
// subtrees with recursive CTEs.
type TaxonomyIndex struct {
	db *sql.DB
}

// NewTaxonomyIndex opens (or creates) a SQLite database at dbPath and
// initialises the taxonomy table.
func NewTaxonomyIndex(dbPath string) (*TaxonomyIndex, error) {
	db, err := openDB(dbPath)
	if err != nil {
		return nil, err
	}

	const ddl = `
CREATE TABLE IF NOT EXISTS taxonomy_nodes (
	id      TEXT PRIMARY KEY,
	label   TEXT NOT NULL,
	parent  TEXT NOT NULL DEFAULT '',
	created TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_taxonomy_parent ON taxonomy_nodes(parent);
`
	if _, err := db.Exec(ddl); err != nil {
		_ = db.Close()
		return nil, lserr.Wrapf(err, lserr.CodeStoreFailure, "migrating taxonomy table")
	}

	return &TaxonomyIndex{db: db}, nil
}

// Close closes the underlying database connection.
func (t *TaxonomyIndex) Close() error {
	return t.db.Close()
}

func (t *TaxonomyIndex) InsertNode(ctx context.Context, label, parentID string) (*store.TaxonomyNode, error) {
	if label == "" {
		return nil, lserr.New(lserr.CodeInvalidArgument, "taxonomy label must not be empty")
	}

	if parentID != "" {
		// The parent chain must terminate at a root without revisiting a
		// node; PathOf runs exactly that walk.
		if _, err := t.PathOf(ctx, parentID); err != nil {
			return nil, err
		}
	}

	node := &store.TaxonomyNode{
		ID:        uuid.NewString(),
		Label:     label,
		ParentID:  parentID,
		CreatedAt: nowUTC(),
	}

	const q = `INSERT INTO taxonomy_nodes (id, label, parent, created) VALUES (?, ?, ?, ?)`
	if _, err := t.db.ExecContext(ctx, q, node.ID, node.Label, node.ParentID, formatTime(node.CreatedAt)); err != nil {
		return nil, lserr.Wrapf(err, lserr.CodeStoreFailure, "inserting taxonomy node %q", label)
	}
	return node, nil
}

func (t *TaxonomyIndex) GetNode(ctx context.Context, nodeID string) (*store.TaxonomyNode, error) {
	const q = `SELECT id, label, parent, created FROM taxonomy_nodes WHERE id = ?`

	var (
		node    store.TaxonomyNode
		created string
	)
	err := t.db.QueryRowContext(ctx, q, nodeID).Scan(&node.ID, &node.Label, &node.ParentID, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, lserr.New(lserr.CodeNodeNotFound, "taxonomy node not found", lserr.FieldNodeID(nodeID))
	}
	if err != nil {
		return nil, lserr.Wrapf(err, lserr.CodeStoreFailure, "getting taxonomy node %s", nodeID)
	}
	node.CreatedAt = parseTime(created)
	return &node, nil
}

func (t *TaxonomyIndex) PathOf(ctx context.Context, nodeID string) ([]*store.TaxonomyNode, error) {
	const q = `WITH RECURSIVE chain(id, label, parent, created, depth) AS (
	SELECT id, label, parent, created, 0 FROM taxonomy_nodes WHERE id = ?
	UNION ALL
	SELECT n.id, n.label, n.parent, n.created, c.depth + 1
	FROM taxonomy_nodes n JOIN chain c ON n.id = c.parent
	WHERE c.depth < ?
)
SELECT id, label, parent, created, depth FROM chain ORDER BY depth DESC`

	rows, err := t.db.QueryContext(ctx, q, nodeID, maxTaxonomyDepth)
	if err != nil {
		return nil, lserr.Wrapf(err, lserr.CodeStoreFailure, "resolving path for node %s", nodeID)
	}
	defer func() { _ = rows.Close() }()

	var (
		path     []*store.TaxonomyNode
		maxDepth int
	)
	for rows.Next() {
		var (
			node    store.TaxonomyNode
			created string
			depth   int
		)
		if err := rows.Scan(&node.ID, &node.Label, &node.ParentID, &created, &depth); err != nil {
			return nil, lserr.Wrapf(err, lserr.CodeStoreFailure, "scanning taxonomy path row")
		}
		node.CreatedAt = parseTime(created)
		path = append(path, &node)
		if depth > maxDepth {
			maxDepth = depth
		}
	}
	if err := rows.Err(); err != nil {
		return nil, lserr.Wrapf(err, lserr.CodeStoreFailure, "iterating taxonomy path")
	}

	if len(path) == 0 {
		return nil, lserr.New(lserr.CodeNodeNotFound, "taxonomy node not found", lserr.FieldNodeID(nodeID))
	}
	if maxDepth >= maxTaxonomyDepth {
		return nil, lserr.New(lserr.CodeTaxonomyCycle,
			"taxonomy parent chain revisits a node", lserr.FieldNodeID(nodeID))
	}
	// The walk must end at a root.
	if path[0].ParentID != "" {
		return nil, lserr.New(lserr.CodeTaxonomyCycle,
			"taxonomy parent chain does not reach a root", lserr.FieldNodeID(nodeID))
	}
	return path, nil
}

func (t *TaxonomyIndex) Subtree(ctx context.Context, nodeID string) ([]string, error) {
	if _, err := t.GetNode(ctx, nodeID); err != nil {
		return nil, err
	}

	const q = `WITH RECURSIVE sub(id, depth) AS (
	SELECT id, 0 FROM taxonomy_nodes WHERE id = ?
	UNION ALL
	SELECT n.id, s.depth + 1 FROM taxonomy_nodes n JOIN sub s ON n.parent = s.id
	WHERE s.depth < ?
)
SELECT id FROM sub ORDER BY depth, id`

	rows, err := t.db.QueryContext(ctx, q, nodeID, maxTaxonomyDepth)
	if err != nil {
		return nil, lserr.Wrapf(err, lserr.CodeStoreFailure, "resolving subtree of %s", nodeID)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, lserr.Wrapf(err, lserr.CodeStoreFailure, "scanning subtree row")
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (t *TaxonomyIndex) DeleteNode(ctx context.Context, nodeID string) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return lserr.Wrapf(err, lserr.CodeStoreFailure, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	var children int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM taxonomy_nodes WHERE parent = ?`, nodeID,
	).Scan(&children); err != nil {
		return lserr.Wrapf(err, lserr.CodeStoreFailure, "counting children of %s", nodeID)
	}
	if children > 0 {
		return lserr.New(lserr.CodeNodeInUse,
			"taxonomy node still has child nodes", lserr.FieldNodeID(nodeID))
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM taxonomy_nodes WHERE id = ?`, nodeID)
	if err != nil {
		return lserr.Wrapf(err, lserr.CodeStoreFailure, "deleting taxonomy node %s", nodeID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return lserr.Wrapf(err, lserr.CodeStoreFailure, "checking delete result for %s", nodeID)
	}
	if n == 0 {
		return lserr.New(lserr.CodeNodeNotFound, "taxonomy node not found", lserr.FieldNodeID(nodeID))
	}

	if err := tx.Commit(); err != nil {
		return lserr.Wrapf(err, lserr.CodeStoreFailure, "committing node delete %s", nodeID)
	}
	return nil
}

func (t *TaxonomyIndex) ListNodes(ctx context.Context) ([]*store.TaxonomyNode, error) {
	const q = `WITH RECURSIVE forest(id, label, parent, created, depth) AS (
	SELECT id, label, parent, created, 0 FROM taxonomy_nodes WHERE parent = ''
	UNION ALL
	SELECT n.id, n.label, n.parent, n.created, f.depth + 1
	FROM taxonomy_nodes n JOIN forest f ON n.parent = f.id
	WHERE f.depth < ?
)
SELECT id, label, parent, created FROM forest ORDER BY depth, label`

	rows, err := t.db.QueryContext(ctx, q, maxTaxonomyDepth)
	if err != nil {
		return nil, lserr.Wrapf(err, lserr.CodeStoreFailure, "listing taxonomy nodes")
	}
	defer func() { _ = rows.Close() }()

	var nodes []*store.TaxonomyNode
	for rows.Next() {
		var (
			node    store.TaxonomyNode
			created string
		)
		if err := rows.Scan(&node.ID, &node.Label, &node.ParentID, &created); err != nil {
			return nil, lserr.Wrapf(err, lserr.CodeStoreFailure, "scanning taxonomy node")
		}
		node.CreatedAt = parseTime(created)
		nodes = append(nodes, &node)
	}
	return nodes, rows.Err()
}
