// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loresmith Contributors

// Package review implements the approval workflow over entry revisions.
// Every edit after an entry's first revision enters as a pending
// revision gated by an open review request; approval repoints the head
// and supersedes the previous one, rejection leaves the head untouched.
package review

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/loresmith-dev/loresmith/internal/store"
	lserr "github.com/loresmith-dev/loresmith/pkg/errors"
)

// Decision is the outcome of an approval, handed to the caller so it
// can reindex and invalidate caches after the commit.
type Decision struct {
	Request *store.ReviewRequest
	// Revision is the revision the request gated.
	Revision *store.Revision
	// Superseded is the head revision that was replaced, 0 on rejection.
	Superseded int
}

// Workflow coordinates revision submission and review decisions against
// the entry store. It owns no state of its own: every invariant (one
// open request per entry, parent check-and-append, status transitions)
// is enforced by the store so concurrent submitters cannot race past it.
type Workflow struct {
	entries store.EntryStore
	logger  *slog.Logger
}

// NewWorkflow creates a review workflow over the given entry store.
func NewWorkflow(entries store.EntryStore, logger *slog.Logger) *Workflow {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workflow{entries: entries, logger: logger}
}

// Submit appends a pending revision on top of parent and opens a review
// request for it. Fails with a conflict when parent is stale or when the
// entry already has an open request, and with invalid input when the
// content does not match the entry's category schema.
func (w *Workflow) Submit(ctx context.Context, entryID string, content store.Content, author string, parent int) (*store.ReviewRequest, error) {
	entry, err := w.entries.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if content.Category != entry.Category {
		return nil, lserr.Errorf(lserr.CodeContentInvalid,
			"revision category %q does not match entry category %q", content.Category, entry.Category)
	}
	if err := store.ValidateContent(content); err != nil {
		return nil, err
	}

	// Refuse early when a request is already open; the partial unique
	// index on open requests backstops the race.
	if _, err := w.entries.OpenReviewRequest(ctx, entryID); err == nil {
		return nil, lserr.New(lserr.CodeReviewInProgress,
			"entry already has a revision under review", lserr.FieldEntryID(entryID))
	} else if !lserr.IsNotFound(err) {
		return nil, err
	}

	rev, err := w.entries.Append(ctx, entryID, content, author, parent)
	if err != nil {
		return nil, err
	}

	req := &store.ReviewRequest{
		ID:        uuid.NewString(),
		EntryID:   entryID,
		Revision:  rev.Number,
		State:     store.ReviewOpen,
		Author:    author,
		CreatedAt: time.Now().UTC(),
	}
	if err := w.entries.CreateReviewRequest(ctx, req); err != nil {
		// The appended revision stays pending but ungated; reject it so
		// the chain records the dead end instead of hiding it.
		if markErr := w.entries.MarkStatus(ctx, entryID, rev.Number, store.RevisionRejected); markErr != nil {
			w.logger.Error("orphaned pending revision",
				slog.String("entry_id", entryID),
				slog.Int("revision", rev.Number),
				slog.Any("error", markErr))
		}
		return nil, err
	}

	w.logger.Info("revision submitted",
		slog.String("entry_id", entryID),
		slog.Int("revision", rev.Number),
		slog.String("author", author))
	return req, nil
}

// Approve decides an open request in favour of its revision: the
// revision becomes approved, the previous head becomes superseded, and
// the head repoints. Deciding a closed request fails with an invalid
// transition.
func (w *Workflow) Approve(ctx context.Context, requestID, reviewer, reason string) (*Decision, error) {
	req, err := w.openRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	entry, err := w.entries.GetEntry(ctx, req.EntryID)
	if err != nil {
		return nil, err
	}

	if err := w.entries.MarkStatus(ctx, req.EntryID, req.Revision, store.RevisionApproved); err != nil {
		return nil, err
	}

	superseded := 0
	if entry.HeadRevision != 0 && entry.HeadRevision != req.Revision {
		if err := w.entries.MarkStatus(ctx, req.EntryID, entry.HeadRevision, store.RevisionSuperseded); err != nil {
			return nil, err
		}
		superseded = entry.HeadRevision
	}
	if err := w.entries.SetHead(ctx, req.EntryID, req.Revision); err != nil {
		return nil, err
	}

	req.State = store.ReviewApproved
	req.Reviewer = reviewer
	req.Reason = reason
	req.DecidedAt = time.Now().UTC()
	if err := w.entries.UpdateReviewRequest(ctx, req); err != nil {
		return nil, err
	}

	rev, err := w.entries.GetRevision(ctx, req.EntryID, req.Revision)
	if err != nil {
		return nil, err
	}

	w.logger.Info("revision approved",
		slog.String("entry_id", req.EntryID),
		slog.Int("revision", req.Revision),
		slog.String("reviewer", reviewer))
	return &Decision{Request: req, Revision: rev, Superseded: superseded}, nil
}

// Reject decides an open request against its revision. The head is
// untouched and both revision and request reach terminal states.
func (w *Workflow) Reject(ctx context.Context, requestID, reviewer, reason string) (*store.ReviewRequest, error) {
	req, err := w.openRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if err := w.entries.MarkStatus(ctx, req.EntryID, req.Revision, store.RevisionRejected); err != nil {
		return nil, err
	}

	req.State = store.ReviewRejected
	req.Reviewer = reviewer
	req.Reason = reason
	req.DecidedAt = time.Now().UTC()
	if err := w.entries.UpdateReviewRequest(ctx, req); err != nil {
		return nil, err
	}

	w.logger.Info("revision rejected",
		slog.String("entry_id", req.EntryID),
		slog.Int("revision", req.Revision),
		slog.String("reviewer", reviewer))
	return req, nil
}

// Pending returns the entry's open review request, if any.
func (w *Workflow) Pending(ctx context.Context, entryID string) (*store.ReviewRequest, error) {
	return w.entries.OpenReviewRequest(ctx, entryID)
}

// Get returns a review request by ID.
func (w *Workflow) Get(ctx context.Context, requestID string) (*store.ReviewRequest, error) {
	return w.entries.GetReviewRequest(ctx, requestID)
}

func (w *Workflow) openRequest(ctx context.Context, requestID string) (*store.ReviewRequest, error) {
	req, err := w.entries.GetReviewRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.State != store.ReviewOpen {
		return nil, lserr.Errorf(lserr.CodeReviewInvalidTransition,
			"review request %s is already %s", requestID, req.State)
	}
	return req, nil
}
