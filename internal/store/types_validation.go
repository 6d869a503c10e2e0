// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loresmith Contributors

package store

import (
	lserr "github.com/loresmith-dev/loresmith/pkg/errors"
)

// ValidateContent checks a tagged content variant: the category must be
// known, Title and Body are required, and fields belonging to another
// category must be empty. Called on every create and submit, before any
// revision is appended.
func ValidateContent(c Content) error {
	switch c.Category {
	case CategoryDesignConcept, CategoryIndustryPractice, CategoryEducationalResource, CategoryMarketResearch:
	default:
		return lserr.Errorf(lserr.CodeContentInvalid, "unknown category %q", c.Category)
	}

	if c.Title == "" {
		return lserr.New(lserr.CodeContentInvalid, "content title must not be empty")
	}
	if c.Body == "" {
		return lserr.New(lserr.CodeContentInvalid, "content body must not be empty")
	}

	if stray := strayFields(c); len(stray) > 0 {
		return lserr.Errorf(lserr.CodeContentInvalid,
			"fields %v do not belong to category %q", stray, c.Category)
	}

	return nil
}

// strayFields returns the names of populated fields that the content's
// category does not define.
func strayFields(c Content) []string {
	type field struct {
		name  string
		value string
		owner Category
	}

	fields := []field{
		{"examples", c.Examples, CategoryDesignConcept},
		{"implementation", c.Implementation, CategoryIndustryPractice},
		{"benefits", c.Benefits, CategoryIndustryPractice},
		{"challenges", c.Challenges, CategoryIndustryPractice},
		{"url", c.URL, CategoryEducationalResource},
		{"summary", c.Summary, CategoryEducationalResource},
		{"key_points", c.KeyPoints, CategoryEducationalResource},
		{"key_findings", c.KeyFindings, CategoryMarketResearch},
		{"trends", c.Trends, CategoryMarketResearch},
	}

	var stray []string
	for _, f := range fields {
		if f.value != "" && f.owner != c.Category {
			stray = append(stray, f.name)
		}
	}
	return stray
}

// ValidStatusTransition reports whether a revision may move from one
// status to another: pending goes to approved or rejected, approved goes
// to superseded once a later revision is approved. Everything else is
// frozen.
func ValidStatusTransition(from, to RevisionStatus) bool {
	switch from {
	case RevisionPending:
		return to == RevisionApproved || to == RevisionRejected
	case RevisionApproved:
		return to == RevisionSuperseded
	default:
		return false
	}
}
