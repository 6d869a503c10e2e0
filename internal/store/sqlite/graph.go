// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loresmith Contributors

package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/loresmith-dev/loresmith/internal/store"
	lserr "github.com/loresmith-dev/loresmith/pkg/errors"
)

// Compile-time interface check.
var _ store.RelationshipGraph = (*Graph)(nil)

// Graph implements store.RelationshipGraph backed by SQLite. Edges are
// rows keyed (source, target, rel); traversal runs as a recursive CTE
// with first-discovered depth resolved by grouping on minimum depth.
type Graph struct {
	db *sql.DB
}

// NewGraph opens (or creates) a SQLite database at dbPath and initialises
// the edge table with forward and reverse indexes.
func NewGraph(dbPath string) (*Graph, error) {
	db, err := openDB(dbPath)
	if err != nil {
		return nil, err
	}

	const ddl = `
CREATE TABLE IF NOT EXISTS edges (
	source  TEXT NOT NULL,
	target  TEXT NOT NULL,
	rel     TEXT NOT NULL,
	created TEXT NOT NULL,
	PRIMARY KEY (source, target, rel)
);

CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target, source, rel);
`
	if _, err := db.Exec(ddl); err != nil {
		_ = db.Close()
		return nil, lserr.Wrapf(err, lserr.CodeStoreFailure, "migrating edge table")
	}

	return &Graph{db: db}, nil
}

// Close closes the underlying database connection.
func (g *Graph) Close() error {
	return g.db.Close()
}

func (g *Graph) Link(ctx context.Context, source, target string, rel store.RelationType) error {
	if source == target {
		return lserr.New(lserr.CodeGraphSelfLoop,
			"an entry cannot relate to itself", lserr.FieldEntryID(source))
	}
	if !store.ValidRelationType(rel) {
		return lserr.Errorf(lserr.CodeInvalidArgument, "unknown relation type %q", rel)
	}

	const q = `INSERT INTO edges (source, target, rel, created) VALUES (?, ?, ?, ?)
ON CONFLICT(source, target, rel) DO NOTHING`

	if _, err := g.db.ExecContext(ctx, q, source, target, string(rel), formatTime(nowUTC())); err != nil {
		return lserr.Wrapf(err, lserr.CodeStoreFailure, "linking %s -> %s", source, target)
	}
	return nil
}

func (g *Graph) Unlink(ctx context.Context, source, target string, rel store.RelationType) error {
	const q = `DELETE FROM edges WHERE source = ? AND target = ? AND rel = ?`
	if _, err := g.db.ExecContext(ctx, q, source, target, string(rel)); err != nil {
		return lserr.Wrapf(err, lserr.CodeStoreFailure, "unlinking %s -> %s", source, target)
	}
	return nil
}

func (g *Graph) Neighbors(ctx context.Context, entryID string, rel store.RelationType, dir store.Direction) ([]string, error) {
	var (
		qb   strings.Builder
		args []any
	)

	switch dir {
	case store.DirectionOut:
		qb.WriteString(`SELECT DISTINCT target FROM edges WHERE source = ?`)
		args = append(args, entryID)
	case store.DirectionIn:
		qb.WriteString(`SELECT DISTINCT source FROM edges WHERE target = ?`)
		args = append(args, entryID)
	case store.DirectionBoth:
		qb.WriteString(`SELECT DISTINCT CASE WHEN source = ? THEN target ELSE source END
FROM edges WHERE (source = ? OR target = ?)`)
		args = append(args, entryID, entryID, entryID)
	default:
		return nil, lserr.Errorf(lserr.CodeInvalidArgument, "unknown direction %q", dir)
	}

	if rel != "" {
		qb.WriteString(` AND rel = ?`)
		args = append(args, string(rel))
	}
	qb.WriteString(` ORDER BY 1`)

	rows, err := g.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, lserr.Wrapf(err, lserr.CodeStoreFailure, "listing neighbors of %s", entryID)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, lserr.Wrapf(err, lserr.CodeStoreFailure, "scanning neighbor")
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (g *Graph) Edges(ctx context.Context, entryID string, dir store.Direction) ([]*store.Edge, error) {
	var (
		qb   strings.Builder
		args []any
	)

	qb.WriteString(`SELECT source, target, rel, created FROM edges WHERE `)
	switch dir {
	case store.DirectionOut:
		qb.WriteString(`source = ?`)
		args = append(args, entryID)
	case store.DirectionIn:
		qb.WriteString(`target = ?`)
		args = append(args, entryID)
	case store.DirectionBoth:
		qb.WriteString(`(source = ? OR target = ?)`)
		args = append(args, entryID, entryID)
	default:
		return nil, lserr.Errorf(lserr.CodeInvalidArgument, "unknown direction %q", dir)
	}
	qb.WriteString(` ORDER BY source, target, rel`)

	rows, err := g.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, lserr.Wrapf(err, lserr.CodeStoreFailure, "listing edges of %s", entryID)
	}
	defer func() { _ = rows.Close() }()

	var out []*store.Edge
	for rows.Next() {
		var (
			e       store.Edge
			rel     string
			created string
		)
		if err := rows.Scan(&e.SourceID, &e.TargetID, &rel, &created); err != nil {
			return nil, lserr.Wrapf(err, lserr.CodeStoreFailure, "scanning edge")
		}
		e.Type = store.RelationType(rel)
		e.CreatedAt = parseTime(created)
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (g *Graph) Traverse(ctx context.Context, entryID string, maxDepth int) ([]store.Visit, error) {
	if maxDepth < 0 {
		return nil, lserr.Errorf(lserr.CodeInvalidArgument, "max depth must be >= 0, got %d", maxDepth)
	}

	const q = `WITH RECURSIVE reachable(node, depth) AS (
	SELECT ?, 0
	UNION
	SELECT CASE WHEN e.source = r.node THEN e.target ELSE e.source END, r.depth + 1
	FROM reachable r
	JOIN edges e ON (e.source = r.node OR e.target = r.node)
	WHERE r.depth < ?
)
SELECT node, MIN(depth) AS d FROM reachable GROUP BY node ORDER BY d, node`

	rows, err := g.db.QueryContext(ctx, q, entryID, maxDepth)
	if err != nil {
		return nil, lserr.Wrapf(err, lserr.CodeStoreFailure, "traversing from %s", entryID)
	}
	defer func() { _ = rows.Close() }()

	var visits []store.Visit
	for rows.Next() {
		var v store.Visit
		if err := rows.Scan(&v.EntryID, &v.Depth); err != nil {
			return nil, lserr.Wrapf(err, lserr.CodeStoreFailure, "scanning traversal row")
		}
		visits = append(visits, v)
	}
	return visits, rows.Err()
}
