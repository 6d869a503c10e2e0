// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loresmith Contributors

package store

import "context"

// EntryStore owns entries, their immutable revision chains, and the review
// requests gating pending revisions.
//
// Append performs an atomic check-and-append: it fails with a conflict
// error when parent does not equal the entry's current highest revision
// number. This holds regardless of advisory lock state and is the real
// lost-update safety net.
type EntryStore interface {
	CreateEntry(ctx context.Context, entry *Entry, first *Revision) error
	GetEntry(ctx context.Context, entryID string) (*Entry, error)
	ListEntryIDs(ctx context.Context) ([]string, error)

	// SetTaxonomy stores a recomputed taxonomy assignment for an entry.
	SetTaxonomy(ctx context.Context, entryID, nodeID string, path []string) error
	// CountEntriesWithNode reports how many entries resolve through the
	// given taxonomy node (it appears anywhere in their stored path).
	CountEntriesWithNode(ctx context.Context, nodeID string) (int, error)

	Append(ctx context.Context, entryID string, content Content, author string, parent int) (*Revision, error)
	GetRevision(ctx context.Context, entryID string, number int) (*Revision, error)
	// History returns revisions 1..latest, oldest first.
	History(ctx context.Context, entryID string) ([]*Revision, error)
	// MarkStatus transitions a revision's status, enforcing
	// ValidStatusTransition.
	MarkStatus(ctx context.Context, entryID string, number int, status RevisionStatus) error
	// SetHead repoints the entry's head revision. Callers must only point
	// it at an approved revision.
	SetHead(ctx context.Context, entryID string, number int) error

	CreateReviewRequest(ctx context.Context, req *ReviewRequest) error
	GetReviewRequest(ctx context.Context, requestID string) (*ReviewRequest, error)
	// OpenReviewRequest returns the entry's open request, or a not-found
	// error when the entry has no pending revision.
	OpenReviewRequest(ctx context.Context, entryID string) (*ReviewRequest, error)
	UpdateReviewRequest(ctx context.Context, req *ReviewRequest) error

	Close() error
}

// TaxonomyIndex owns the category forest. It enforces acyclicity on
// insert; entry reference checks on delete are the service's job since
// entries live in the EntryStore.
type TaxonomyIndex interface {
	InsertNode(ctx context.Context, label, parentID string) (*TaxonomyNode, error)
	GetNode(ctx context.Context, nodeID string) (*TaxonomyNode, error)
	// PathOf returns the node chain from a root down to nodeID.
	PathOf(ctx context.Context, nodeID string) ([]*TaxonomyNode, error)
	// Subtree returns nodeID and every descendant, breadth-first.
	Subtree(ctx context.Context, nodeID string) ([]string, error)
	DeleteNode(ctx context.Context, nodeID string) error
	// ListNodes returns every node in the forest, parents before children.
	ListNodes(ctx context.Context) ([]*TaxonomyNode, error)

	Close() error
}

// RelationshipGraph owns typed directed edges between entries. Unlike the
// taxonomy forest, the relationship graph may contain cycles.
type RelationshipGraph interface {
	// Link inserts an edge; inserting an existing edge is a no-op.
	Link(ctx context.Context, source, target string, rel RelationType) error
	// Unlink removes an edge; removing a missing edge is a no-op.
	Unlink(ctx context.Context, source, target string, rel RelationType) error
	// Neighbors returns the distinct entries connected to entryID. An
	// empty rel matches every relation type.
	Neighbors(ctx context.Context, entryID string, rel RelationType, dir Direction) ([]string, error)
	// Edges returns the raw edges touching entryID in the given direction.
	Edges(ctx context.Context, entryID string, dir Direction) ([]*Edge, error)
	// Traverse expands breadth-first from entryID up to maxDepth, visiting
	// each entry once at its first-discovered depth.
	Traverse(ctx context.Context, entryID string, maxDepth int) ([]Visit, error)

	Close() error
}
