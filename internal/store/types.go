// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loresmith Contributors

package store

import (
	"strings"
	"time"
)

// --- Entry types ---

// Category identifies which structured content schema an entry uses.
type Category string

const (
	CategoryDesignConcept       Category = "design-concept"
	CategoryIndustryPractice    Category = "industry-practice"
	CategoryEducationalResource Category = "educational-resource"
	CategoryMarketResearch      Category = "market-research"
)

// Categories lists every valid category.
func Categories() []Category {
	return []Category{
		CategoryDesignConcept,
		CategoryIndustryPractice,
		CategoryEducationalResource,
		CategoryMarketResearch,
	}
}

// Entry is a knowledge entry. Its visible content always comes from the
// head revision, which is always an approved one.
type Entry struct {
	ID             string
	Category       Category
	TaxonomyNodeID string
	// TaxonomyPath is the ordered node-id sequence from a root to the
	// entry's node, recomputed and stored whenever the entry moves.
	TaxonomyPath []string
	HeadRevision int
	CreatedAt    time.Time
}

// --- Revision types ---

// RevisionStatus is the lifecycle state of a single revision.
type RevisionStatus string

const (
	RevisionPending    RevisionStatus = "pending"
	RevisionApproved   RevisionStatus = "approved"
	RevisionRejected   RevisionStatus = "rejected"
	RevisionSuperseded RevisionStatus = "superseded"
)

// Content holds an entry's editable fields as a tagged variant: Category
// selects which of the optional fields are meaningful. Title and Body are
// common to every category.
type Content struct {
	Category Category `json:"category"`
	Title    string   `json:"title"`
	Body     string   `json:"body"`

	// design-concept
	Examples string `json:"examples,omitempty"`

	// industry-practice
	Implementation string `json:"implementation,omitempty"`
	Benefits       string `json:"benefits,omitempty"`
	Challenges     string `json:"challenges,omitempty"`

	// educational-resource
	URL       string `json:"url,omitempty"`
	Summary   string `json:"summary,omitempty"`
	KeyPoints string `json:"key_points,omitempty"`

	// market-research
	KeyFindings string `json:"key_findings,omitempty"`
	Trends      string `json:"trends,omitempty"`
}

// IndexText assembles the text projection used for search indexing and
// embedding: title, body, then the category's structured fields.
func (c Content) IndexText() string {
	parts := []string{c.Title, c.Body}
	switch c.Category {
	case CategoryDesignConcept:
		parts = append(parts, c.Examples)
	case CategoryIndustryPractice:
		parts = append(parts, c.Implementation, c.Benefits, c.Challenges)
	case CategoryEducationalResource:
		parts = append(parts, c.Summary, c.KeyPoints)
	case CategoryMarketResearch:
		parts = append(parts, c.KeyFindings, c.Trends)
	}

	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

// Revision is one immutable edit in an entry's history. Identity is
// (EntryID, Number); Number starts at 1 and increases by one per append.
type Revision struct {
	EntryID   string
	Number    int
	Parent    int // 0 for the first revision
	Content   Content
	Author    string
	Status    RevisionStatus
	CreatedAt time.Time
}

// --- Taxonomy types ---

// TaxonomyNode is one node of the category forest. ParentID is empty for
// roots. Children are derived by the index, never stored.
type TaxonomyNode struct {
	ID        string
	Label     string
	ParentID  string
	CreatedAt time.Time
}

// --- Relationship types ---

// RelationType is the kind of a directed edge between two entries.
type RelationType string

const (
	RelationDependsOn   RelationType = "depends-on"
	RelationContradicts RelationType = "contradicts"
	RelationExtends     RelationType = "extends"
	RelationRelatedTo   RelationType = "related-to"
	RelationExampleOf   RelationType = "example-of"
)

// ValidRelationType reports whether t is one of the known relation kinds.
func ValidRelationType(t RelationType) bool {
	switch t {
	case RelationDependsOn, RelationContradicts, RelationExtends, RelationRelatedTo, RelationExampleOf:
		return true
	}
	return false
}

// Edge is a typed directed relationship. Identity is (SourceID, TargetID,
// Type); duplicates are idempotent on insert.
type Edge struct {
	SourceID  string
	TargetID  string
	Type      RelationType
	CreatedAt time.Time
}

// Direction selects which edges Neighbors considers.
type Direction string

const (
	DirectionOut  Direction = "out"
	DirectionIn   Direction = "in"
	DirectionBoth Direction = "both"
)

// Visit is one step of a breadth-first traversal: the entry and the depth
// at which it was first discovered.
type Visit struct {
	EntryID string
	Depth   int
}

// --- Review types ---

// ReviewState is the lifecycle state of a review request.
type ReviewState string

const (
	ReviewOpen     ReviewState = "open"
	ReviewApproved ReviewState = "approved"
	ReviewRejected ReviewState = "rejected"
)

// ReviewRequest gates a pending revision. One exists iff its revision's
// status is pending; approved and rejected are terminal.
type ReviewRequest struct {
	ID        string
	EntryID   string
	Revision  int
	State     ReviewState
	Author    string
	Reviewer  string
	Reason    string
	CreatedAt time.Time
	DecidedAt time.Time
}
