// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loresmith Contributors

package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/loresmith-dev/loresmith/internal/store"
	lserr "github.com/loresmith-dev/loresmith/pkg/errors"
)

// Compile-time interface check.
var _ store.EntryStore = (*EntryStore)(nil)

// entryChain is one entry's record plus its revision history. The chain
// mutex linearizes appends and status changes per entry without blocking
// writes to other entries.
type entryChain struct {
	mu        sync.Mutex
	entry     store.Entry
	revisions []*store.Revision // revisions[i] has Number i+1
}

// EntryStore is the in-memory EntryStore backend. The outer RWMutex only
// guards the maps; per-entry work happens under each chain's own mutex.
type EntryStore struct {
	mu          sync.RWMutex
	chains      map[string]*entryChain
	requests    map[string]*store.ReviewRequest
	openByEntry map[string]string // entry ID -> open request ID
}

// NewEntryStore creates an empty in-memory entry store.
func NewEntryStore() *EntryStore {
	return &EntryStore{
		chains:      make(map[string]*entryChain),
		requests:    make(map[string]*store.ReviewRequest),
		openByEntry: make(map[string]string),
	}
}

func (s *EntryStore) chain(entryID string) (*entryChain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chains[entryID]
	if !ok {
		return nil, lserr.New(lserr.CodeEntryNotFound, "entry "+entryID+" not found", lserr.FieldEntryID(entryID))
	}
	return c, nil
}

func (s *EntryStore) CreateEntry(_ context.Context, entry *store.Entry, first *store.Revision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.chains[entry.ID]; ok {
		return lserr.Errorf(lserr.CodeStoreFailure, "entry %s already exists", entry.ID)
	}

	e := *entry
	e.TaxonomyPath = slices.Clone(entry.TaxonomyPath)
	e.HeadRevision = first.Number

	rev := *first
	s.chains[entry.ID] = &entryChain{
		entry:     e,
		revisions: []*store.Revision{&rev},
	}
	return nil
}

func (s *EntryStore) GetEntry(_ context.Context, entryID string) (*store.Entry, error) {
	c, err := s.chain(entryID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entry
	e.TaxonomyPath = slices.Clone(c.entry.TaxonomyPath)
	return &e, nil
}

func (s *EntryStore) ListEntryIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.chains))
	for id := range s.chains {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func (s *EntryStore) SetTaxonomy(_ context.Context, entryID, nodeID string, path []string) error {
	c, err := s.chain(entryID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry.TaxonomyNodeID = nodeID
	c.entry.TaxonomyPath = slices.Clone(path)
	return nil
}

func (s *EntryStore) CountEntriesWithNode(_ context.Context, nodeID string) (int, error) {
	s.mu.RLock()
	chains := make([]*entryChain, 0, len(s.chains))
	for _, c := range s.chains {
		chains = append(chains, c)
	}
	s.mu.RUnlock()

	count := 0
	for _, c := range chains {
		c.mu.Lock()
		if slices.Contains(c.entry.TaxonomyPath, nodeID) {
			count++
		}
		c.mu.Unlock()
	}
	return count, nil
}

// Append performs the check-and-append: the given parent must equal the
// highest existing revision number, otherwise the caller lost a race and
// gets a conflict. New revisions always start pending.
func (s *EntryStore) Append(_ context.Context, entryID string, content store.Content, author string, parent int) (*store.Revision, error) {
	c, err := s.chain(entryID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	latest := len(c.revisions)
	if parent != latest {
		return nil, lserr.New(lserr.CodeRevisionConflict,
			"stale parent revision: entry has moved on",
			lserr.FieldEntryID(entryID),
			lserr.Field("parent_revision_number", parent),
			lserr.Field("latest_revision_number", latest),
		)
	}

	rev := &store.Revision{
		EntryID:   entryID,
		Number:    latest + 1,
		Parent:    parent,
		Content:   content,
		Author:    author,
		Status:    store.RevisionPending,
		CreatedAt: now(),
	}
	c.revisions = append(c.revisions, rev)

	out := *rev
	return &out, nil
}

func (s *EntryStore) GetRevision(_ context.Context, entryID string, number int) (*store.Revision, error) {
	c, err := s.chain(entryID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if number < 1 || number > len(c.revisions) {
		return nil, lserr.New(lserr.CodeRevisionNotFound,
			"revision not found",
			lserr.FieldEntryID(entryID),
			lserr.FieldRevision(number),
		)
	}

	out := *c.revisions[number-1]
	return &out, nil
}

func (s *EntryStore) History(_ context.Context, entryID string) ([]*store.Revision, error) {
	c, err := s.chain(entryID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*store.Revision, len(c.revisions))
	for i, r := range c.revisions {
		cp := *r
		out[i] = &cp
	}
	return out, nil
}

func (s *EntryStore) MarkStatus(_ context.Context, entryID string, number int, status store.RevisionStatus) error {
	c, err := s.chain(entryID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if number < 1 || number > len(c.revisions) {
		return lserr.New(lserr.CodeRevisionNotFound,
			"revision not found",
			lserr.FieldEntryID(entryID),
			lserr.FieldRevision(number),
		)
	}

	rev := c.revisions[number-1]
	if !store.ValidStatusTransition(rev.Status, status) {
		return lserr.Errorf(lserr.CodeRevisionInvalidTransition,
			"revision %s/%d cannot move from %s to %s", entryID, number, rev.Status, status)
	}

	rev.Status = status
	return nil
}

func (s *EntryStore) SetHead(_ context.Context, entryID string, number int) error {
	c, err := s.chain(entryID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if number < 1 || number > len(c.revisions) {
		return lserr.New(lserr.CodeRevisionNotFound,
			"revision not found",
			lserr.FieldEntryID(entryID),
			lserr.FieldRevision(number),
		)
	}

	c.entry.HeadRevision = number
	return nil
}

func (s *EntryStore) CreateReviewRequest(_ context.Context, req *store.ReviewRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if openID, ok := s.openByEntry[req.EntryID]; ok {
		return lserr.New(lserr.CodeReviewInProgress,
			"entry already has a pending revision under review",
			lserr.FieldEntryID(req.EntryID),
			lserr.Field("request_id", openID),
		)
	}

	cp := *req
	s.requests[req.ID] = &cp
	if req.State == store.ReviewOpen {
		s.openByEntry[req.EntryID] = req.ID
	}
	return nil
}

func (s *EntryStore) GetReviewRequest(_ context.Context, requestID string) (*store.ReviewRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.requests[requestID]
	if !ok {
		return nil, lserr.New(lserr.CodeRequestNotFound,
			"review request "+requestID+" not found",
			lserr.Field("request_id", requestID),
		)
	}

	cp := *req
	return &cp, nil
}

func (s *EntryStore) OpenReviewRequest(_ context.Context, entryID string) (*store.ReviewRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.openByEntry[entryID]
	if !ok {
		return nil, lserr.New(lserr.CodeRequestNotFound,
			"entry has no open review request",
			lserr.FieldEntryID(entryID),
		)
	}

	cp := *s.requests[id]
	return &cp, nil
}

func (s *EntryStore) UpdateReviewRequest(_ context.Context, req *store.ReviewRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.requests[req.ID]; !ok {
		return lserr.New(lserr.CodeRequestNotFound,
			"review request "+req.ID+" not found",
			lserr.Field("request_id", req.ID),
		)
	}

	cp := *req
	s.requests[req.ID] = &cp
	if req.State != store.ReviewOpen && s.openByEntry[req.EntryID] == req.ID {
		delete(s.openByEntry, req.EntryID)
	}
	return nil
}

func (s *EntryStore) Close() error { return nil }
