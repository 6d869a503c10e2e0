// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loresmith Contributors

// Package knowledge wires the stores, lock manager, review workflow,
// search engine, and cache into the one service the HTTP surface and
// CLI talk to. All cross-component invariants (approved-head visibility,
// taxonomy in-use checks, reindex-on-approve, cache invalidation) live
// here.
package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/loresmith-dev/loresmith/internal/cache"
	"github.com/loresmith-dev/loresmith/internal/lock"
	"github.com/loresmith-dev/loresmith/internal/review"
	"github.com/loresmith-dev/loresmith/internal/search"
	"github.com/loresmith-dev/loresmith/internal/store"
	lserr "github.com/loresmith-dev/loresmith/pkg/errors"
)

// EntryView is the read model for a single entry: head content plus the
// resolved taxonomy path, relations in both directions, the live lock if
// any, and the open review request if any.
type EntryView struct {
	Entry    *store.Entry
	Content  store.Content
	Path     []*store.TaxonomyNode
	Outbound []*store.Edge
	Inbound  []*store.Edge
	Lock     *lock.Lease
	Pending  *store.ReviewRequest
}

// ApproveResult reports an approval and whether the semantic index
// could not be updated (the approval itself always commits).
type ApproveResult struct {
	Decision *review.Decision
	// IndexStale is set when embedding failed during reindex; the entry
	// stays keyword-searchable and queued for RetryStaleReindex.
	IndexStale bool
}

// Service orchestrates the knowledge core.
type Service struct {
	entries  store.EntryStore
	taxonomy store.TaxonomyIndex
	graph    store.RelationshipGraph
	locks    *lock.Manager
	reviews  *review.Workflow
	engine   *search.Engine
	cache    *cache.Cache
	logger   *slog.Logger
}

// NewService creates the knowledge service over its collaborators.
func NewService(
	entries store.EntryStore,
	taxonomy store.TaxonomyIndex,
	graph store.RelationshipGraph,
	locks *lock.Manager,
	engine *search.Engine,
	c *cache.Cache,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		entries:  entries,
		taxonomy: taxonomy,
		graph:    graph,
		locks:    locks,
		reviews:  review.NewWorkflow(entries, logger),
		engine:   engine,
		cache:    c,
		logger:   logger,
	}
}

// Close releases the search engine and every store.
func (s *Service) Close() error {
	var firstErr error
	for _, c := range []interface{ Close() error }{s.engine, s.entries, s.taxonomy, s.graph} {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// --- Entries ---

// CreateEntry creates an entry whose first revision is immediately
// approved and becomes the head; only subsequent edits go through
// review. nodeID may be empty for an uncategorised entry.
func (s *Service) CreateEntry(ctx context.Context, content store.Content, nodeID, author string) (*store.Entry, error) {
	if err := store.ValidateContent(content); err != nil {
		return nil, err
	}

	var path []string
	if nodeID != "" {
		nodes, err := s.taxonomy.PathOf(ctx, nodeID)
		if err != nil {
			return nil, err
		}
		path = nodeIDs(nodes)
	}

	now := time.Now().UTC()
	entry := &store.Entry{
		ID:             uuid.NewString(),
		Category:       content.Category,
		TaxonomyNodeID: nodeID,
		TaxonomyPath:   path,
		HeadRevision:   1,
		CreatedAt:      now,
	}
	first := &store.Revision{
		EntryID:   entry.ID,
		Number:    1,
		Content:   content,
		Author:    author,
		Status:    store.RevisionApproved,
		CreatedAt: now,
	}
	if err := s.entries.CreateEntry(ctx, entry, first); err != nil {
		return nil, err
	}

	if err := s.engine.Reindex(ctx, entry.ID, content.IndexText(), now); err != nil {
		s.logger.Warn("entry created with stale semantic index",
			slog.String("entry_id", entry.ID), slog.Any("error", err))
	}
	s.cache.Invalidate(cache.GroupSearch)

	s.logger.Info("entry created",
		slog.String("entry_id", entry.ID),
		slog.String("category", string(entry.Category)),
		slog.String("author", author))
	return entry, nil
}

// GetEntry assembles the full read model for an entry.
func (s *Service) GetEntry(ctx context.Context, entryID string) (*EntryView, error) {
	entry, err := s.entries.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}

	head, err := s.entries.GetRevision(ctx, entryID, entry.HeadRevision)
	if err != nil {
		return nil, err
	}

	view := &EntryView{
		Entry:   entry,
		Content: head.Content,
		Lock:    s.locks.Holder(entryID),
	}

	if entry.TaxonomyNodeID != "" {
		path, err := s.pathOf(ctx, entry.TaxonomyNodeID)
		if err != nil && !lserr.IsNotFound(err) {
			return nil, err
		}
		view.Path = path
	}

	if view.Outbound, err = s.graph.Edges(ctx, entryID, store.DirectionOut); err != nil {
		return nil, err
	}
	if view.Inbound, err = s.graph.Edges(ctx, entryID, store.DirectionIn); err != nil {
		return nil, err
	}

	if pending, err := s.reviews.Pending(ctx, entryID); err == nil {
		view.Pending = pending
	} else if !lserr.IsNotFound(err) {
		return nil, err
	}

	return view, nil
}

// History returns every revision of an entry, oldest first.
func (s *Service) History(ctx context.Context, entryID string) ([]*store.Revision, error) {
	return s.entries.History(ctx, entryID)
}

// RevisionContent returns the content of one historical revision.
func (s *Service) RevisionContent(ctx context.Context, entryID string, number int) (store.Content, error) {
	rev, err := s.entries.GetRevision(ctx, entryID, number)
	if err != nil {
		return store.Content{}, err
	}
	return rev.Content, nil
}

// --- Revisions and review ---

// SubmitRevision proposes an edit on top of parent. When the entry is
// locked by someone other than the author the submission is refused up
// front; the store's check-and-append remains the real conflict guard.
func (s *Service) SubmitRevision(ctx context.Context, entryID string, content store.Content, author string, parent int) (*store.ReviewRequest, error) {
	if held := s.locks.Holder(entryID); held != nil && held.Holder != author {
		return nil, lserr.New(lserr.CodeLockHeld,
			"entry is locked by another holder",
			lserr.FieldEntryID(entryID), lserr.FieldHolder(held.Holder))
	}
	return s.reviews.Submit(ctx, entryID, content, author, parent)
}

// Approve commits an approval and then refreshes the search index and
// caches. An embedding failure never rolls the approval back: the result
// reports a stale semantic index instead.
func (s *Service) Approve(ctx context.Context, requestID, reviewer, reason string) (*ApproveResult, error) {
	dec, err := s.reviews.Approve(ctx, requestID, reviewer, reason)
	if err != nil {
		return nil, err
	}

	result := &ApproveResult{Decision: dec}
	rev := dec.Revision
	if err := s.engine.Reindex(ctx, rev.EntryID, rev.Content.IndexText(), rev.CreatedAt); err != nil {
		result.IndexStale = true
		s.logger.Warn("approved with stale semantic index",
			slog.String("entry_id", rev.EntryID), slog.Any("error", err))
	}
	s.cache.Invalidate(cache.GroupSearch)

	return result, nil
}

// Reject declines a pending revision. Nothing visible changes, so no
// reindex or invalidation happens.
func (s *Service) Reject(ctx context.Context, requestID, reviewer, reason string) (*store.ReviewRequest, error) {
	return s.reviews.Reject(ctx, requestID, reviewer, reason)
}

// PendingReview returns the entry's open review request, if any.
func (s *Service) PendingReview(ctx context.Context, entryID string) (*store.ReviewRequest, error) {
	return s.reviews.Pending(ctx, entryID)
}

// GetReview returns a review request by ID.
func (s *Service) GetReview(ctx context.Context, requestID string) (*store.ReviewRequest, error) {
	return s.reviews.Get(ctx, requestID)
}

// RevertTo resubmits the content of an old revision as a new pending
// revision through the normal review workflow.
func (s *Service) RevertTo(ctx context.Context, entryID string, number int, author string) (*store.ReviewRequest, error) {
	content, err := s.RevisionContent(ctx, entryID, number)
	if err != nil {
		return nil, err
	}

	history, err := s.entries.History(ctx, entryID)
	if err != nil {
		return nil, err
	}
	return s.SubmitRevision(ctx, entryID, content, author, len(history))
}

// --- Search ---

// Search answers a query from the cache when possible.
func (s *Service) Search(ctx context.Context, query string, mode search.Mode, topK int) ([]search.Result, error) {
	key := fmt.Sprintf("%s|%d|%s", mode, topK, query)
	if hit, ok := s.cache.Get(cache.GroupSearch, key); ok {
		return hit.([]search.Result), nil
	}

	results, err := s.engine.Search(ctx, query, mode, topK)
	if err != nil {
		return nil, err
	}
	s.cache.Set(cache.GroupSearch, key, results)
	return results, nil
}

// RetryStaleReindex re-embeds entries whose semantic index fell behind.
func (s *Service) RetryStaleReindex(ctx context.Context) error {
	if err := s.engine.RetryStale(ctx); err != nil {
		return err
	}
	s.cache.Invalidate(cache.GroupSearch)
	return nil
}

// StaleEntries lists entries queued for semantic reindexing.
func (s *Service) StaleEntries() []string {
	return s.engine.StaleEntries()
}

// --- Relations ---

// LinkEntries adds a typed edge between two existing entries.
func (s *Service) LinkEntries(ctx context.Context, source, target string, rel store.RelationType) error {
	if _, err := s.entries.GetEntry(ctx, source); err != nil {
		return err
	}
	if _, err := s.entries.GetEntry(ctx, target); err != nil {
		return err
	}
	if err := s.graph.Link(ctx, source, target, rel); err != nil {
		return err
	}
	s.cache.Invalidate(cache.GroupTraversal)
	return nil
}

// UnlinkEntries removes a typed edge; removing a missing edge succeeds.
func (s *Service) UnlinkEntries(ctx context.Context, source, target string, rel store.RelationType) error {
	if err := s.graph.Unlink(ctx, source, target, rel); err != nil {
		return err
	}
	s.cache.Invalidate(cache.GroupTraversal)
	return nil
}

// GraphNeighborhood expands breadth-first from an entry up to maxDepth.
func (s *Service) GraphNeighborhood(ctx context.Context, entryID string, maxDepth int) ([]store.Visit, error) {
	if _, err := s.entries.GetEntry(ctx, entryID); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s|%d", entryID, maxDepth)
	if hit, ok := s.cache.Get(cache.GroupTraversal, key); ok {
		return hit.([]store.Visit), nil
	}

	visits, err := s.graph.Traverse(ctx, entryID, maxDepth)
	if err != nil {
		return nil, err
	}
	s.cache.Set(cache.GroupTraversal, key, visits)
	return visits, nil
}

// --- Locks ---

// AcquireLock takes (or renews) the advisory lease on an entry.
func (s *Service) AcquireLock(ctx context.Context, entryID, holder string) (*lock.Lease, error) {
	if _, err := s.entries.GetEntry(ctx, entryID); err != nil {
		return nil, err
	}
	return s.locks.Acquire(entryID, holder)
}

// ReleaseLock releases the lease held on an entry.
func (s *Service) ReleaseLock(entryID, holder string) error {
	return s.locks.Release(entryID, holder)
}

// --- Taxonomy ---

// MoveEntry reassigns an entry to a taxonomy node and re-stores its
// resolved path.
func (s *Service) MoveEntry(ctx context.Context, entryID, nodeID string) error {
	if _, err := s.entries.GetEntry(ctx, entryID); err != nil {
		return err
	}

	var path []string
	if nodeID != "" {
		nodes, err := s.taxonomy.PathOf(ctx, nodeID)
		if err != nil {
			return err
		}
		path = nodeIDs(nodes)
	}

	if err := s.entries.SetTaxonomy(ctx, entryID, nodeID, path); err != nil {
		return err
	}
	s.cache.Invalidate(cache.GroupTaxonomyPath)
	return nil
}

// InsertNode adds a taxonomy node under parentID (empty for a new root).
func (s *Service) InsertNode(ctx context.Context, label, parentID string) (*store.TaxonomyNode, error) {
	node, err := s.taxonomy.InsertNode(ctx, label, parentID)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(cache.GroupTaxonomyPath)
	return node, nil
}

// DeleteNode removes a leaf taxonomy node that no entry resolves
// through. Nodes with children or referencing entries fail with an
// in-use error.
func (s *Service) DeleteNode(ctx context.Context, nodeID string) error {
	if _, err := s.taxonomy.GetNode(ctx, nodeID); err != nil {
		return err
	}

	count, err := s.entries.CountEntriesWithNode(ctx, nodeID)
	if err != nil {
		return err
	}
	if count > 0 {
		return lserr.New(lserr.CodeNodeInUse,
			fmt.Sprintf("%d entries still resolve through this node", count),
			lserr.FieldNodeID(nodeID))
	}

	if err := s.taxonomy.DeleteNode(ctx, nodeID); err != nil {
		return err
	}
	s.cache.Invalidate(cache.GroupTaxonomyPath)
	return nil
}

// PathOf returns the node chain from a root down to nodeID.
func (s *Service) PathOf(ctx context.Context, nodeID string) ([]*store.TaxonomyNode, error) {
	return s.pathOf(ctx, nodeID)
}

// Subtree returns nodeID and all its descendants.
func (s *Service) Subtree(ctx context.Context, nodeID string) ([]string, error) {
	return s.taxonomy.Subtree(ctx, nodeID)
}

// Tree returns the whole taxonomy forest, parents before children.
func (s *Service) Tree(ctx context.Context) ([]*store.TaxonomyNode, error) {
	return s.taxonomy.ListNodes(ctx)
}

func (s *Service) pathOf(ctx context.Context, nodeID string) ([]*store.TaxonomyNode, error) {
	if hit, ok := s.cache.Get(cache.GroupTaxonomyPath, nodeID); ok {
		return hit.([]*store.TaxonomyNode), nil
	}

	path, err := s.taxonomy.PathOf(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(cache.GroupTaxonomyPath, nodeID, path)
	return path, nil
}

func nodeIDs(nodes []*store.TaxonomyNode) []string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}
