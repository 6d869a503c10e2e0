// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loresmith Contributors

package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/loresmith-dev/loresmith/internal/search"
	"github.com/loresmith-dev/loresmith/internal/store"
)

func (s *Server) registerRoutes() {
	// Entry endpoints
	huma.Register(s.api, huma.Operation{
		OperationID: "create-entry",
		Method:      http.MethodPost,
		Path:        "/api/v1/entries",
		Summary:     "Create a knowledge entry",
		Tags:        []string{"entries"},
	}, s.handleCreateEntry)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-entry",
		Method:      http.MethodGet,
		Path:        "/api/v1/entries/{id}",
		Summary:     "Get an entry with head content, taxonomy path, and relations",
		Tags:        []string{"entries"},
	}, s.handleGetEntry)

	huma.Register(s.api, huma.Operation{
		OperationID: "entry-history",
		Method:      http.MethodGet,
		Path:        "/api/v1/entries/{id}/history",
		Summary:     "List every revision of an entry",
		Tags:        []string{"entries"},
	}, s.handleHistory)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-revision",
		Method:      http.MethodGet,
		Path:        "/api/v1/entries/{id}/revisions/{number}",
		Summary:     "Get one historical revision",
		Tags:        []string{"entries"},
	}, s.handleGetRevision)

	huma.Register(s.api, huma.Operation{
		OperationID: "submit-revision",
		Method:      http.MethodPost,
		Path:        "/api/v1/entries/{id}/revisions",
		Summary:     "Submit a revision for review",
		Tags:        []string{"entries"},
	}, s.handleSubmitRevision)

	huma.Register(s.api, huma.Operation{
		OperationID: "revert-entry",
		Method:      http.MethodPost,
		Path:        "/api/v1/entries/{id}/revert",
		Summary:     "Resubmit an old revision's content for review",
		Tags:        []string{"entries"},
	}, s.handleRevert)

	huma.Register(s.api, huma.Operation{
		OperationID: "move-entry",
		Method:      http.MethodPost,
		Path:        "/api/v1/entries/{id}/move",
		Summary:     "Reassign an entry to a taxonomy node",
		Tags:        []string{"entries"},
	}, s.handleMoveEntry)

	// Review endpoints
	huma.Register(s.api, huma.Operation{
		OperationID: "approve-review",
		Method:      http.MethodPost,
		Path:        "/api/v1/reviews/{id}/approve",
		Summary:     "Approve a pending revision",
		Tags:        []string{"reviews"},
	}, s.handleApprove)

	huma.Register(s.api, huma.Operation{
		OperationID: "reject-review",
		Method:      http.MethodPost,
		Path:        "/api/v1/reviews/{id}/reject",
		Summary:     "Reject a pending revision",
		Tags:        []string{"reviews"},
	}, s.handleReject)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-review",
		Method:      http.MethodGet,
		Path:        "/api/v1/reviews/{id}",
		Summary:     "Get a review request",
		Tags:        []string{"reviews"},
	}, s.handleGetReview)

	// Search endpoints
	huma.Register(s.api, huma.Operation{
		OperationID: "search",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Search approved entries",
		Tags:        []string{"search"},
	}, s.handleSearch)

	huma.Register(s.api, huma.Operation{
		OperationID: "retry-stale-reindex",
		Method:      http.MethodPost,
		Path:        "/api/v1/search/reindex-stale",
		Summary:     "Re-embed entries whose semantic index is stale",
		Tags:        []string{"search"},
	}, s.handleRetryStale)

	// Relation endpoints
	huma.Register(s.api, huma.Operation{
		OperationID: "link-entries",
		Method:      http.MethodPut,
		Path:        "/api/v1/relations",
		Summary:     "Add a typed relation between two entries",
		Tags:        []string{"relations"},
	}, s.handleLink)

	huma.Register(s.api, huma.Operation{
		OperationID: "unlink-entries",
		Method:      http.MethodDelete,
		Path:        "/api/v1/relations",
		Summary:     "Remove a typed relation",
		Tags:        []string{"relations"},
	}, s.handleUnlink)

	huma.Register(s.api, huma.Operation{
		OperationID: "entry-neighborhood",
		Method:      http.MethodGet,
		Path:        "/api/v1/entries/{id}/neighborhood",
		Summary:     "Breadth-first related entries up to a depth",
		Tags:        []string{"relations"},
	}, s.handleNeighborhood)

	// Taxonomy endpoints
	huma.Register(s.api, huma.Operation{
		OperationID: "create-taxonomy-node",
		Method:      http.MethodPost,
		Path:        "/api/v1/taxonomy/nodes",
		Summary:     "Create a taxonomy node",
		Tags:        []string{"taxonomy"},
	}, s.handleCreateNode)

	huma.Register(s.api, huma.Operation{
		OperationID: "delete-taxonomy-node",
		Method:      http.MethodDelete,
		Path:        "/api/v1/taxonomy/nodes/{id}",
		Summary:     "Delete an unused leaf taxonomy node",
		Tags:        []string{"taxonomy"},
	}, s.handleDeleteNode)

	huma.Register(s.api, huma.Operation{
		OperationID: "taxonomy-path",
		Method:      http.MethodGet,
		Path:        "/api/v1/taxonomy/nodes/{id}/path",
		Summary:     "Node chain from a root down to a node",
		Tags:        []string{"taxonomy"},
	}, s.handlePath)

	huma.Register(s.api, huma.Operation{
		OperationID: "taxonomy-subtree",
		Method:      http.MethodGet,
		Path:        "/api/v1/taxonomy/nodes/{id}/subtree",
		Summary:     "Node and all descendant node ids",
		Tags:        []string{"taxonomy"},
	}, s.handleSubtree)

	huma.Register(s.api, huma.Operation{
		OperationID: "taxonomy-tree",
		Method:      http.MethodGet,
		Path:        "/api/v1/taxonomy/tree",
		Summary:     "The whole taxonomy forest",
		Tags:        []string{"taxonomy"},
	}, s.handleTree)

	// Lock endpoints
	huma.Register(s.api, huma.Operation{
		OperationID: "acquire-lock",
		Method:      http.MethodPut,
		Path:        "/api/v1/entries/{id}/lock",
		Summary:     "Acquire or renew the advisory lock on an entry",
		Tags:        []string{"locks"},
	}, s.handleAcquireLock)

	huma.Register(s.api, huma.Operation{
		OperationID: "release-lock",
		Method:      http.MethodDelete,
		Path:        "/api/v1/entries/{id}/lock",
		Summary:     "Release the advisory lock on an entry",
		Tags:        []string{"locks"},
	}, s.handleReleaseLock)
}

// --- Request/Response types ---

type createEntryInput struct {
	Body struct {
		Content        store.Content `json:"content"`
		TaxonomyNodeID string        `json:"taxonomy_node_id,omitempty"`
		Author         string        `json:"author" minLength:"1"`
	}
}
type createEntryOutput struct {
	Body EntrySummary
}

type entryIDInput struct {
	ID string `path:"id"`
}
type getEntryOutput struct {
	Body EntryDetail
}

type historyOutput struct {
	Body struct {
		Revisions []RevisionView `json:"revisions"`
	}
}

type getRevisionInput struct {
	ID     string `path:"id"`
	Number int    `path:"number" minimum:"1"`
}
type getRevisionOutput struct {
	Body RevisionView
}

type submitRevisionInput struct {
	ID   string `path:"id"`
	Body struct {
		Content store.Content `json:"content"`
		Author  string        `json:"author" minLength:"1"`
		Parent  int           `json:"parent" minimum:"1" doc:"Revision number this edit is based on"`
	}
}
type reviewOutput struct {
	Body ReviewView
}

type revertInput struct {
	ID   string `path:"id"`
	Body struct {
		Revision int    `json:"revision" minimum:"1"`
		Author   string `json:"author" minLength:"1"`
	}
}

type moveEntryInput struct {
	ID   string `path:"id"`
	Body struct {
		TaxonomyNodeID string `json:"taxonomy_node_id"`
	}
}
type statusOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

type decideInput struct {
	ID   string `path:"id"`
	Body struct {
		Reviewer string `json:"reviewer" minLength:"1"`
		Reason   string `json:"reason,omitempty"`
	}
}
type approveOutput struct {
	Body struct {
		Review     ReviewView `json:"review"`
		IndexStale bool       `json:"index_stale" doc:"True when the semantic index could not be refreshed"`
	}
}

type searchInput struct {
	Query string `query:"q" minLength:"1"`
	Mode  string `query:"mode" enum:"keyword,semantic,hybrid" default:"hybrid"`
	TopK  int    `query:"top_k" default:"10"`
}
type searchOutput struct {
	Body struct {
		Results []search.Result `json:"results"`
	}
}

type retryStaleOutput struct {
	Body struct {
		Stale []string `json:"stale" doc:"Entries still awaiting semantic reindex"`
	}
}

type relationInput struct {
	Body struct {
		Source string `json:"source" minLength:"1"`
		Target string `json:"target" minLength:"1"`
		Type   string `json:"type" minLength:"1"`
	}
}
type unlinkInput struct {
	Source string `query:"source" minLength:"1"`
	Target string `query:"target" minLength:"1"`
	Type   string `query:"type" minLength:"1"`
}

type neighborhoodInput struct {
	ID    string `path:"id"`
	Depth int    `query:"depth" default:"2" minimum:"0"`
}
type neighborhoodOutput struct {
	Body struct {
		Visits []VisitView `json:"visits"`
	}
}

type createNodeInput struct {
	Body struct {
		Label    string `json:"label" minLength:"1"`
		ParentID string `json:"parent_id,omitempty"`
	}
}
type nodeOutput struct {
	Body NodeView
}

type nodeIDInput struct {
	ID string `path:"id"`
}
type pathOutput struct {
	Body struct {
		Path []NodeView `json:"path"`
	}
}
type subtreeOutput struct {
	Body struct {
		NodeIDs []string `json:"node_ids"`
	}
}
type treeOutput struct {
	Body struct {
		Nodes []NodeView `json:"nodes"`
	}
}

type lockInput struct {
	ID   string `path:"id"`
	Body struct {
		Holder string `json:"holder" minLength:"1"`
	}
}
type lockOutput struct {
	Body LockView
}
type releaseLockInput struct {
	ID     string `path:"id"`
	Holder string `query:"holder" minLength:"1"`
}

// --- Handlers ---

func (s *Server) handleCreateEntry(ctx context.Context, input *createEntryInput) (*createEntryOutput, error) {
	entry, err := s.svc.CreateEntry(ctx, input.Body.Content, input.Body.TaxonomyNodeID, input.Body.Author)
	if err != nil {
		return nil, humaError(err)
	}
	return &createEntryOutput{Body: entrySummary(entry)}, nil
}

func (s *Server) handleGetEntry(ctx context.Context, input *entryIDInput) (*getEntryOutput, error) {
	view, err := s.svc.GetEntry(ctx, input.ID)
	if err != nil {
		return nil, humaError(err)
	}
	return &getEntryOutput{Body: entryDetail(view)}, nil
}

func (s *Server) handleHistory(ctx context.Context, input *entryIDInput) (*historyOutput, error) {
	revisions, err := s.svc.History(ctx, input.ID)
	if err != nil {
		return nil, humaError(err)
	}

	out := &historyOutput{}
	out.Body.Revisions = make([]RevisionView, len(revisions))
	for i, r := range revisions {
		out.Body.Revisions[i] = revisionView(r)
	}
	return out, nil
}

func (s *Server) handleGetRevision(ctx context.Context, input *getRevisionInput) (*getRevisionOutput, error) {
	content, err := s.svc.RevisionContent(ctx, input.ID, input.Number)
	if err != nil {
		return nil, humaError(err)
	}
	return &getRevisionOutput{Body: RevisionView{
		EntryID: input.ID,
		Number:  input.Number,
		Content: content,
	}}, nil
}

func (s *Server) handleSubmitRevision(ctx context.Context, input *submitRevisionInput) (*reviewOutput, error) {
	req, err := s.svc.SubmitRevision(ctx, input.ID, input.Body.Content, input.Body.Author, input.Body.Parent)
	if err != nil {
		return nil, humaError(err)
	}
	return &reviewOutput{Body: reviewView(req)}, nil
}

func (s *Server) handleRevert(ctx context.Context, input *revertInput) (*reviewOutput, error) {
	req, err := s.svc.RevertTo(ctx, input.ID, input.Body.Revision, input.Body.Author)
	if err != nil {
		return nil, humaError(err)
	}
	return &reviewOutput{Body: reviewView(req)}, nil
}

func (s *Server) handleMoveEntry(ctx context.Context, input *moveEntryInput) (*statusOutput, error) {
	if err := s.svc.MoveEntry(ctx, input.ID, input.Body.TaxonomyNodeID); err != nil {
		return nil, humaError(err)
	}
	out := &statusOutput{}
	out.Body.Status = "moved"
	return out, nil
}

func (s *Server) handleApprove(ctx context.Context, input *decideInput) (*approveOutput, error) {
	result, err := s.svc.Approve(ctx, input.ID, input.Body.Reviewer, input.Body.Reason)
	if err != nil {
		return nil, humaError(err)
	}

	out := &approveOutput{}
	out.Body.Review = reviewView(result.Decision.Request)
	out.Body.IndexStale = result.IndexStale
	return out, nil
}

func (s *Server) handleReject(ctx context.Context, input *decideInput) (*reviewOutput, error) {
	req, err := s.svc.Reject(ctx, input.ID, input.Body.Reviewer, input.Body.Reason)
	if err != nil {
		return nil, humaError(err)
	}
	return &reviewOutput{Body: reviewView(req)}, nil
}

func (s *Server) handleGetReview(ctx context.Context, input *nodeIDInput) (*reviewOutput, error) {
	req, err := s.svc.GetReview(ctx, input.ID)
	if err != nil {
		return nil, humaError(err)
	}
	return &reviewOutput{Body: reviewView(req)}, nil
}

func (s *Server) handleSearch(ctx context.Context, input *searchInput) (*searchOutput, error) {
	results, err := s.svc.Search(ctx, input.Query, search.Mode(input.Mode), input.TopK)
	if err != nil {
		return nil, humaError(err)
	}

	out := &searchOutput{}
	out.Body.Results = results
	return out, nil
}

func (s *Server) handleRetryStale(ctx context.Context, _ *struct{}) (*retryStaleOutput, error) {
	if err := s.svc.RetryStaleReindex(ctx); err != nil {
		return nil, humaError(err)
	}
	out := &retryStaleOutput{}
	out.Body.Stale = s.svc.StaleEntries()
	return out, nil
}

func (s *Server) handleLink(ctx context.Context, input *relationInput) (*statusOutput, error) {
	err := s.svc.LinkEntries(ctx, input.Body.Source, input.Body.Target, store.RelationType(input.Body.Type))
	if err != nil {
		return nil, humaError(err)
	}
	out := &statusOutput{}
	out.Body.Status = "linked"
	return out, nil
}

func (s *Server) handleUnlink(ctx context.Context, input *unlinkInput) (*statusOutput, error) {
	err := s.svc.UnlinkEntries(ctx, input.Source, input.Target, store.RelationType(input.Type))
	if err != nil {
		return nil, humaError(err)
	}
	out := &statusOutput{}
	out.Body.Status = "unlinked"
	return out, nil
}

func (s *Server) handleNeighborhood(ctx context.Context, input *neighborhoodInput) (*neighborhoodOutput, error) {
	visits, err := s.svc.GraphNeighborhood(ctx, input.ID, input.Depth)
	if err != nil {
		return nil, humaError(err)
	}

	out := &neighborhoodOutput{}
	out.Body.Visits = make([]VisitView, len(visits))
	for i, v := range visits {
		out.Body.Visits[i] = VisitView{EntryID: v.EntryID, Depth: v.Depth}
	}
	return out, nil
}

func (s *Server) handleCreateNode(ctx context.Context, input *createNodeInput) (*nodeOutput, error) {
	node, err := s.svc.InsertNode(ctx, input.Body.Label, input.Body.ParentID)
	if err != nil {
		return nil, humaError(err)
	}
	return &nodeOutput{Body: nodeView(node)}, nil
}

func (s *Server) handleDeleteNode(ctx context.Context, input *nodeIDInput) (*statusOutput, error) {
	if err := s.svc.DeleteNode(ctx, input.ID); err != nil {
		return nil, humaError(err)
	}
	out := &statusOutput{}
	out.Body.Status = "deleted"
	return out, nil
}

func (s *Server) handlePath(ctx context.Context, input *nodeIDInput) (*pathOutput, error) {
	path, err := s.svc.PathOf(ctx, input.ID)
	if err != nil {
		return nil, humaError(err)
	}

	out := &pathOutput{}
	out.Body.Path = nodeViews(path)
	return out, nil
}

func (s *Server) handleSubtree(ctx context.Context, input *nodeIDInput) (*subtreeOutput, error) {
	ids, err := s.svc.Subtree(ctx, input.ID)
	if err != nil {
		return nil, humaError(err)
	}

	out := &subtreeOutput{}
	out.Body.NodeIDs = ids
	return out, nil
}

func (s *Server) handleTree(ctx context.Context, _ *struct{}) (*treeOutput, error) {
	nodes, err := s.svc.Tree(ctx)
	if err != nil {
		return nil, humaError(err)
	}

	out := &treeOutput{}
	out.Body.Nodes = nodeViews(nodes)
	return out, nil
}

func (s *Server) handleAcquireLock(ctx context.Context, input *lockInput) (*lockOutput, error) {
	lease, err := s.svc.AcquireLock(ctx, input.ID, input.Body.Holder)
	if err != nil {
		return nil, humaError(err)
	}
	return &lockOutput{Body: LockView{Holder: lease.Holder, ExpiresAt: lease.ExpiresAt}}, nil
}

func (s *Server) handleReleaseLock(_ context.Context, input *releaseLockInput) (*statusOutput, error) {
	if err := s.svc.ReleaseLock(input.ID, input.Holder); err != nil {
		return nil, humaError(err)
	}
	out := &statusOutput{}
	out.Body.Status = "released"
	return out, nil
}
