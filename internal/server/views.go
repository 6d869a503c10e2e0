// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loresmith Contributors

package server

import (
	"time"

	"github.com/loresmith-dev/loresmith/internal/knowledge"
	"github.com/loresmith-dev/loresmith/internal/lock"
	"github.com/loresmith-dev/loresmith/internal/store"
)

// EntrySummary is the wire shape of an entry without its content.
type EntrySummary struct {
	ID             string    `json:"id"`
	Category       string    `json:"category"`
	TaxonomyNodeID string    `json:"taxonomy_node_id,omitempty"`
	TaxonomyPath   []string  `json:"taxonomy_path,omitempty"`
	HeadRevision   int       `json:"head_revision"`
	CreatedAt      time.Time `json:"created_at"`
}

// EntryDetail is the full entry read model: head content, resolved
// taxonomy path, relations, lock, and open review.
type EntryDetail struct {
	EntrySummary
	Content       store.Content `json:"content"`
	Path          []NodeView    `json:"path,omitempty"`
	Outbound      []EdgeView    `json:"outbound,omitempty"`
	Inbound       []EdgeView    `json:"inbound,omitempty"`
	Lock          *LockView     `json:"lock,omitempty"`
	PendingReview *ReviewView   `json:"pending_review,omitempty"`
}

// RevisionView is the wire shape of one revision.
type RevisionView struct {
	EntryID   string        `json:"entry_id"`
	Number    int           `json:"number"`
	Parent    int           `json:"parent"`
	Status    string        `json:"status"`
	Author    string        `json:"author"`
	CreatedAt time.Time     `json:"created_at"`
	Content   store.Content `json:"content"`
}

// ReviewView is the wire shape of a review request.
type ReviewView struct {
	ID        string     `json:"id"`
	EntryID   string     `json:"entry_id"`
	Revision  int        `json:"revision"`
	State     string     `json:"state"`
	Author    string     `json:"author"`
	Reviewer  string     `json:"reviewer,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`
}

// NodeView is the wire shape of a taxonomy node.
type NodeView struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	ParentID  string    `json:"parent_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// EdgeView is the wire shape of a typed relation.
type EdgeView struct {
	Source    string    `json:"source"`
	Target    string    `json:"target"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// LockView is the wire shape of an advisory lease.
type LockView struct {
	Holder    string    `json:"holder"`
	ExpiresAt time.Time `json:"expires_at"`
}

// VisitView is one step of a graph traversal.
type VisitView struct {
	EntryID string `json:"entry_id"`
	Depth   int    `json:"depth"`
}

func entrySummary(e *store.Entry) EntrySummary {
	return EntrySummary{
		ID:             e.ID,
		Category:       string(e.Category),
		TaxonomyNodeID: e.TaxonomyNodeID,
		TaxonomyPath:   e.TaxonomyPath,
		HeadRevision:   e.HeadRevision,
		CreatedAt:      e.CreatedAt,
	}
}

func entryDetail(view *knowledge.EntryView) EntryDetail {
	detail := EntryDetail{
		EntrySummary: entrySummary(view.Entry),
		Content:      view.Content,
		Path:         nodeViews(view.Path),
		Outbound:     edgeViews(view.Outbound),
		Inbound:      edgeViews(view.Inbound),
		Lock:         lockView(view.Lock),
	}
	if view.Pending != nil {
		rv := reviewView(view.Pending)
		detail.PendingReview = &rv
	}
	return detail
}

func revisionView(r *store.Revision) RevisionView {
	return RevisionView{
		EntryID:   r.EntryID,
		Number:    r.Number,
		Parent:    r.Parent,
		Status:    string(r.Status),
		Author:    r.Author,
		CreatedAt: r.CreatedAt,
		Content:   r.Content,
	}
}

func reviewView(r *store.ReviewRequest) ReviewView {
	view := ReviewView{
		ID:        r.ID,
		EntryID:   r.EntryID,
		Revision:  r.Revision,
		State:     string(r.State),
		Author:    r.Author,
		Reviewer:  r.Reviewer,
		Reason:    r.Reason,
		CreatedAt: r.CreatedAt,
	}
	if !r.DecidedAt.IsZero() {
		t := r.DecidedAt
		view.DecidedAt = &t
	}
	return view
}

func nodeView(n *store.TaxonomyNode) NodeView {
	return NodeView{
		ID:        n.ID,
		Label:     n.Label,
		ParentID:  n.ParentID,
		CreatedAt: n.CreatedAt,
	}
}

func nodeViews(nodes []*store.TaxonomyNode) []NodeView {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]NodeView, len(nodes))
	for i, n := range nodes {
		out[i] = nodeView(n)
	}
	return out
}

func edgeViews(edges []*store.Edge) []EdgeView {
	if len(edges) == 0 {
		return nil
	}
	out := make([]EdgeView, len(edges))
	for i, e := range edges {
		out[i] = EdgeView{
			Source:    e.SourceID,
			Target:    e.TargetID,
			Type:      string(e.Type),
			CreatedAt: e.CreatedAt,
		}
	}
	return out
}

func lockView(l *lock.Lease) *LockView {
	if l == nil {
		return nil
	}
	return &LockView{Holder: l.Holder, ExpiresAt: l.ExpiresAt}
}
