// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loresmith Contributors

package knowledge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loresmith-dev/loresmith/internal/cache"
	"github.com/loresmith-dev/loresmith/internal/lock"
	"github.com/loresmith-dev/loresmith/internal/search"
	"github.com/loresmith-dev/loresmith/internal/search/embed"
	"github.com/loresmith-dev/loresmith/internal/search/vector"
	"github.com/loresmith-dev/loresmith/internal/store"
	"github.com/loresmith-dev/loresmith/internal/store/memory"
	lserr "github.com/loresmith-dev/loresmith/pkg/errors"
)

type failingEmbedder struct {
	inner  embed.Embedder
	broken bool
}

func (f *failingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if f.broken {
		return nil, lserr.New(lserr.CodeIndexUnavailable, "embedding provider is down")
	}
	return f.inner.Embed(ctx, texts)
}

func (f *failingEmbedder) Dimensions() int { return f.inner.Dimensions() }

func newTestService(t *testing.T) *Service {
	t.Helper()
	return newTestServiceWithEmbedder(t, embed.NewStatic(64))
}

func newTestServiceWithEmbedder(t *testing.T, e embed.Embedder) *Service {
	t.Helper()

	engine := search.NewEngine(vector.NewMemory(), e, nil)
	svc := NewService(
		memory.NewEntryStore(),
		memory.NewTaxonomyIndex(),
		memory.NewGraph(),
		lock.NewManager(time.Minute, nil),
		engine,
		cache.New(time.Minute),
		nil,
	)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func designConcept(title, body string) store.Content {
	return store.Content{
		Category: store.CategoryDesignConcept,
		Title:    title,
		Body:     body,
	}
}

func mustCreate(t *testing.T, svc *Service, title, body string) *store.Entry {
	t.Helper()
	entry, err := svc.CreateEntry(context.Background(), designConcept(title, body), "", "alice")
	require.NoError(t, err)
	return entry
}

func TestCreateEntryAutoApprovesFirstRevision(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	entry := mustCreate(t, svc, "Emergent gameplay", "Systems interacting unpredictably.")
	assert.Equal(t, 1, entry.HeadRevision)

	view, err := svc.GetEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "Emergent gameplay", view.Content.Title)
	assert.Nil(t, view.Pending)
	assert.Nil(t, view.Lock)

	history, err := svc.History(ctx, entry.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, store.RevisionApproved, history[0].Status)
}

func TestCreateEntryRejectsInvalidContent(t *testing.T) {
	svc := newTestService(t)

	bad := store.Content{Category: store.CategoryDesignConcept, Title: "no body"}
	_, err := svc.CreateEntry(context.Background(), bad, "", "alice")
	require.Error(t, err)
	assert.True(t, lserr.IsInvalidInput(err))
}

func TestCreateEntryWithTaxonomyNode(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	root, err := svc.InsertNode(ctx, "Game Design", "")
	require.NoError(t, err)
	child, err := svc.InsertNode(ctx, "Mechanics", root.ID)
	require.NoError(t, err)

	entry, err := svc.CreateEntry(ctx, designConcept("Loot tables", "Weighted drops."), child.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{root.ID, child.ID}, entry.TaxonomyPath)

	view, err := svc.GetEntry(ctx, entry.ID)
	require.NoError(t, err)
	require.Len(t, view.Path, 2)
	assert.Equal(t, "Game Design", view.Path[0].Label)
	assert.Equal(t, "Mechanics", view.Path[1].Label)
}

func TestSubmitApproveFlow(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	entry := mustCreate(t, svc, "Difficulty curves", "Pacing challenge over time.")

	req, err := svc.SubmitRevision(ctx, entry.ID, designConcept("Difficulty curves", "Expanded treatment."), "bob", 1)
	require.NoError(t, err)

	// Head still serves the approved content while review is open.
	view, err := svc.GetEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pacing challenge over time.", view.Content.Body)
	require.NotNil(t, view.Pending)
	assert.Equal(t, req.ID, view.Pending.ID)

	result, err := svc.Approve(ctx, req.ID, "dana", "good expansion")
	require.NoError(t, err)
	assert.False(t, result.IndexStale)
	assert.Equal(t, 1, result.Decision.Superseded)

	view, err = svc.GetEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "Expanded treatment.", view.Content.Body)
	assert.Nil(t, view.Pending)
}

func TestRejectLeavesHeadVisible(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	entry := mustCreate(t, svc, "Permadeath", "Loss as a stake.")

	req, err := svc.SubmitRevision(ctx, entry.ID, designConcept("Permadeath", "Worse body."), "bob", 1)
	require.NoError(t, err)

	_, err = svc.Reject(ctx, req.ID, "dana", "weaker than original")
	require.NoError(t, err)

	view, err := svc.GetEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "Loss as a stake.", view.Content.Body)
}

func TestSubmitBlockedByForeignLock(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	entry := mustCreate(t, svc, "Kiting", "Attack while retreating.")

	_, err := svc.AcquireLock(ctx, entry.ID, "carol")
	require.NoError(t, err)

	_, err = svc.SubmitRevision(ctx, entry.ID, designConcept("Kiting", "Edit."), "bob", 1)
	require.Error(t, err)
	assert.Equal(t, lserr.CodeLockHeld, lserr.CodeOf(err))

	// The lock holder can submit.
	_, err = svc.SubmitRevision(ctx, entry.ID, designConcept("Kiting", "Edit."), "carol", 1)
	require.NoError(t, err)
}

func TestLockLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	entry := mustCreate(t, svc, "Gacha", "Randomized monetization.")

	_, err := svc.AcquireLock(ctx, "missing", "alice")
	require.Error(t, err)
	assert.True(t, lserr.IsNotFound(err))

	lease, err := svc.AcquireLock(ctx, entry.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", lease.Holder)

	err = svc.ReleaseLock(entry.ID, "mallory")
	require.Error(t, err)
	assert.True(t, lserr.IsNotHolder(err))

	require.NoError(t, svc.ReleaseLock(entry.ID, "alice"))
}

func TestRevertToFlowsThroughReview(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	entry := mustCreate(t, svc, "Roguelike", "Original body.")

	req, err := svc.SubmitRevision(ctx, entry.ID, designConcept("Roguelike", "Second body."), "bob", 1)
	require.NoError(t, err)
	_, err = svc.Approve(ctx, req.ID, "dana", "")
	require.NoError(t, err)

	// Revert to revision 1: appears as pending revision 3.
	req, err = svc.RevertTo(ctx, entry.ID, 1, "bob")
	require.NoError(t, err)
	assert.Equal(t, 3, req.Revision)

	content, err := svc.RevisionContent(ctx, entry.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, "Original body.", content.Body)

	_, err = svc.Approve(ctx, req.ID, "dana", "revert")
	require.NoError(t, err)

	view, err := svc.GetEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "Original body.", view.Content.Body)
	assert.Equal(t, 3, view.Entry.HeadRevision)
}

func TestSearchFindsApprovedContentOnly(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	entry := mustCreate(t, svc, "Speedrunning", "Routing and glitches.")

	_, err := svc.SubmitRevision(ctx, entry.ID, designConcept("Speedrunning", "Unreviewed zipline tech."), "bob", 1)
	require.NoError(t, err)

	// Pending content is not searchable.
	results, err := svc.Search(ctx, "zipline", search.ModeKeyword, 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = svc.Search(ctx, "routing glitches", search.ModeKeyword, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, entry.ID, results[0].EntryID)
}

func TestSearchCacheInvalidatedByApproval(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	entry := mustCreate(t, svc, "Metroidvania", "Ability-gated exploration.")

	// Prime the cache.
	results, err := svc.Search(ctx, "backtracking", search.ModeKeyword, 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	req, err := svc.SubmitRevision(ctx, entry.ID,
		designConcept("Metroidvania", "Ability-gated exploration with backtracking."), "bob", 1)
	require.NoError(t, err)
	_, err = svc.Approve(ctx, req.ID, "dana", "")
	require.NoError(t, err)

	results, err = svc.Search(ctx, "backtracking", search.ModeKeyword, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, entry.ID, results[0].EntryID)
}

func TestApproveCommitsDespiteEmbedderFailure(t *testing.T) {
	fe := &failingEmbedder{inner: embed.NewStatic(64)}
	svc := newTestServiceWithEmbedder(t, fe)
	ctx := context.Background()

	entry := mustCreate(t, svc, "Crafting", "Combining resources.")

	req, err := svc.SubmitRevision(ctx, entry.ID, designConcept("Crafting", "Combining rare resources."), "bob", 1)
	require.NoError(t, err)

	fe.broken = true
	result, err := svc.Approve(ctx, req.ID, "dana", "")
	require.NoError(t, err)
	assert.True(t, result.IndexStale)

	// The approval committed: head moved, keyword search sees new text.
	view, err := svc.GetEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, view.Entry.HeadRevision)

	results, err := svc.Search(ctx, "rare", search.ModeKeyword, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, []string{entry.ID}, svc.StaleEntries())

	fe.broken = false
	require.NoError(t, svc.RetryStaleReindex(ctx))
	assert.Empty(t, svc.StaleEntries())
}

func TestLinkAndNeighborhood(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	a := mustCreate(t, svc, "Stamina systems", "Limited actions.")
	b := mustCreate(t, svc, "Dodge rolling", "I-frame evasion.")
	c := mustCreate(t, svc, "Soulslikes", "Genre overview.")

	require.NoError(t, svc.LinkEntries(ctx, b.ID, a.ID, store.RelationDependsOn))
	require.NoError(t, svc.LinkEntries(ctx, c.ID, b.ID, store.RelationExampleOf))

	// Linking against a missing entry fails.
	err := svc.LinkEntries(ctx, a.ID, "missing", store.RelationRelatedTo)
	require.Error(t, err)
	assert.True(t, lserr.IsNotFound(err))

	// Self-loops are refused.
	err = svc.LinkEntries(ctx, a.ID, a.ID, store.RelationRelatedTo)
	require.Error(t, err)
	assert.True(t, lserr.IsIntegrityViolation(err))

	visits, err := svc.GraphNeighborhood(ctx, c.ID, 2)
	require.NoError(t, err)
	require.Len(t, visits, 3)
	assert.Equal(t, store.Visit{EntryID: c.ID, Depth: 0}, visits[0])

	depths := map[string]int{}
	for _, v := range visits {
		depths[v.EntryID] = v.Depth
	}
	assert.Equal(t, 1, depths[b.ID])
	assert.Equal(t, 2, depths[a.ID])

	// Edges show up on the entry view.
	view, err := svc.GetEntry(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, view.Outbound, 1)
	require.Len(t, view.Inbound, 1)
	assert.Equal(t, store.RelationDependsOn, view.Outbound[0].Type)
}

func TestUnlinkIsIdempotent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	a := mustCreate(t, svc, "A", "a body")
	b := mustCreate(t, svc, "B", "b body")

	require.NoError(t, svc.LinkEntries(ctx, a.ID, b.ID, store.RelationRelatedTo))
	require.NoError(t, svc.UnlinkEntries(ctx, a.ID, b.ID, store.RelationRelatedTo))
	require.NoError(t, svc.UnlinkEntries(ctx, a.ID, b.ID, store.RelationRelatedTo))

	view, err := svc.GetEntry(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Outbound)
}

func TestMoveEntry(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	root, err := svc.InsertNode(ctx, "Research", "")
	require.NoError(t, err)

	entry := mustCreate(t, svc, "Cloud gaming", "Latency studies.")
	require.NoError(t, svc.MoveEntry(ctx, entry.ID, root.ID))

	view, err := svc.GetEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, root.ID, view.Entry.TaxonomyNodeID)
	assert.Equal(t, []string{root.ID}, view.Entry.TaxonomyPath)
}

func TestDeleteNodeInUse(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	root, err := svc.InsertNode(ctx, "Design", "")
	require.NoError(t, err)
	child, err := svc.InsertNode(ctx, "Combat", root.ID)
	require.NoError(t, err)

	_, err = svc.CreateEntry(ctx, designConcept("Parrying", "Timed blocks."), child.ID, "alice")
	require.NoError(t, err)

	// The child node is referenced by an entry.
	err = svc.DeleteNode(ctx, child.ID)
	require.Error(t, err)
	assert.Equal(t, lserr.CodeNodeInUse, lserr.CodeOf(err))

	// The root is on the entry's stored path too.
	err = svc.DeleteNode(ctx, root.ID)
	require.Error(t, err)
	assert.Equal(t, lserr.CodeNodeInUse, lserr.CodeOf(err))

	tree, err := svc.Tree(ctx)
	require.NoError(t, err)
	require.Len(t, tree, 2)
}

func TestDeleteFreeLeafNode(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	root, err := svc.InsertNode(ctx, "Design", "")
	require.NoError(t, err)
	child, err := svc.InsertNode(ctx, "Economy", root.ID)
	require.NoError(t, err)

	// Parent with a child cannot go first.
	err = svc.DeleteNode(ctx, root.ID)
	require.Error(t, err)
	assert.Equal(t, lserr.CodeNodeInUse, lserr.CodeOf(err))

	require.NoError(t, svc.DeleteNode(ctx, child.ID))
	require.NoError(t, svc.DeleteNode(ctx, root.ID))
}

func TestGraphNeighborhoodValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	a := mustCreate(t, svc, "A", "a body")

	_, err := svc.GraphNeighborhood(ctx, "missing", 2)
	require.Error(t, err)
	assert.True(t, lserr.IsNotFound(err))

	_, err = svc.GraphNeighborhood(ctx, a.ID, -1)
	require.Error(t, err)
	assert.True(t, lserr.IsInvalidInput(err))
}
