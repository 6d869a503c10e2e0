// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loresmith Contributors

package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loresmith-dev/loresmith/internal/store"
	lserr "github.com/loresmith-dev/loresmith/pkg/errors"
)

func seedEntry(t *testing.T, s *EntryStore, id string) {
	t.Helper()

	entry := &store.Entry{ID: id, Category: store.CategoryDesignConcept, CreatedAt: time.Now().UTC()}
	first := &store.Revision{
		EntryID: id,
		Number:  1,
		Content: store.Content{Category: store.CategoryDesignConcept, Title: "Title", Body: "Body"},
		Author:  "alice",
		Status:  store.RevisionApproved,
	}
	require.NoError(t, s.CreateEntry(context.Background(), entry, first))
}

func TestCreateEntryRejectsDuplicateID(t *testing.T) {
	s := NewEntryStore()
	seedEntry(t, s, "e1")

	err := s.CreateEntry(context.Background(), &store.Entry{ID: "e1"}, &store.Revision{Number: 1})
	assert.Error(t, err)
}

func TestGetEntryNotFound(t *testing.T) {
	s := NewEntryStore()

	_, err := s.GetEntry(context.Background(), "missing")
	assert.True(t, lserr.IsNotFound(err))
}

func TestAppendStaleParentConflicts(t *testing.T) {
	s := NewEntryStore()
	seedEntry(t, s, "e1")

	content := store.Content{Category: store.CategoryDesignConcept, Title: "Title", Body: "v2"}
	rev, err := s.Append(context.Background(), "e1", content, "bob", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, rev.Number)
	assert.Equal(t, store.RevisionPending, rev.Status)

	// Same parent again: the chain has moved on.
	_, err = s.Append(context.Background(), "e1", content, "carol", 1)
	require.Error(t, err)
	assert.True(t, lserr.IsConflict(err))
}

func TestMarkStatusEnforcesTransitions(t *testing.T) {
	s := NewEntryStore()
	seedEntry(t, s, "e1")

	content := store.Content{Category: store.CategoryDesignConcept, Title: "Title", Body: "v2"}
	_, err := s.Append(context.Background(), "e1", content, "bob", 1)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.MarkStatus(ctx, "e1", 2, store.RevisionApproved))
	require.NoError(t, s.SetHead(ctx, "e1", 2))

	// Approved revisions can only be superseded.
	err = s.MarkStatus(ctx, "e1", 2, store.RevisionRejected)
	assert.Error(t, err)
	require.NoError(t, s.MarkStatus(ctx, "e1", 2, store.RevisionSuperseded))

	entry, err := s.GetEntry(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, 2, entry.HeadRevision)
}

func TestHistoryReturnsCopies(t *testing.T) {
	s := NewEntryStore()
	seedEntry(t, s, "e1")

	ctx := context.Background()
	history, err := s.History(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, history, 1)

	history[0].Status = store.RevisionRejected

	fresh, err := s.GetRevision(ctx, "e1", 1)
	require.NoError(t, err)
	assert.Equal(t, store.RevisionApproved, fresh.Status)
}

func TestSetTaxonomyAndCount(t *testing.T) {
	s := NewEntryStore()
	seedEntry(t, s, "e1")
	seedEntry(t, s, "e2")

	ctx := context.Background()
	require.NoError(t, s.SetTaxonomy(ctx, "e1", "leaf", []string{"root", "leaf"}))
	require.NoError(t, s.SetTaxonomy(ctx, "e2", "root", []string{"root"}))

	n, err := s.CountEntriesWithNode(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.CountEntriesWithNode(ctx, "leaf")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestReviewRequestSingleOpenPerEntry(t *testing.T) {
	s := NewEntryStore()
	seedEntry(t, s, "e1")

	ctx := context.Background()
	req := &store.ReviewRequest{ID: "r1", EntryID: "e1", Revision: 2, State: store.ReviewOpen, Author: "bob"}
	require.NoError(t, s.CreateReviewRequest(ctx, req))

	err := s.CreateReviewRequest(ctx, &store.ReviewRequest{ID: "r2", EntryID: "e1", Revision: 3, State: store.ReviewOpen})
	require.Error(t, err)
	assert.True(t, lserr.IsConflict(err))

	// Closing the request frees the slot.
	req.State = store.ReviewApproved
	require.NoError(t, s.UpdateReviewRequest(ctx, req))

	_, err = s.OpenReviewRequest(ctx, "e1")
	assert.True(t, lserr.IsNotFound(err))

	require.NoError(t, s.CreateReviewRequest(ctx, &store.ReviewRequest{ID: "r3", EntryID: "e1", Revision: 3, State: store.ReviewOpen}))
}

func TestListEntryIDsSorted(t *testing.T) {
	s := NewEntryStore()
	seedEntry(t, s, "zeta")
	seedEntry(t, s, "alpha")

	ids, err := s.ListEntryIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, ids)
}
