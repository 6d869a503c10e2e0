// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loresmith Contributors

package knowledge

import (
	"context"
	"io"

	"gopkg.in/yaml.v3"

	lserr "github.com/loresmith-dev/loresmith/pkg/errors"
)

// seedNode is one node of a YAML taxonomy seed file:
//
//	taxonomy:
//	  - label: Game Design
//	    children:
//	      - label: Mechanics
//	      - label: Narrative
type seedNode struct {
	Label    string     `yaml:"label"`
	Children []seedNode `yaml:"children"`
}

type seedFile struct {
	Taxonomy []seedNode `yaml:"taxonomy"`
}

// SeedTaxonomy inserts the taxonomy forest described by a YAML document,
// depth-first, and reports how many nodes were created. Nodes are always
// created fresh; seeding an already-populated forest adds duplicates, so
// callers should seed once at bootstrap.
func (s *Service) SeedTaxonomy(ctx context.Context, r io.Reader) (int, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return 0, lserr.Wrapf(err, lserr.CodeConfigLoadReadFailure, "reading taxonomy seed")
	}

	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return 0, lserr.Wrapf(err, lserr.CodeConfigLoadReadFailure, "parsing taxonomy seed")
	}
	if len(seed.Taxonomy) == 0 {
		return 0, lserr.New(lserr.CodeInvalidArgument, "taxonomy seed declares no nodes")
	}

	count := 0
	for _, root := range seed.Taxonomy {
		n, err := s.insertSeedNode(ctx, root, "")
		count += n
		if err != nil {
			return count, err
		}
	}
	return count, nil
}

func (s *Service) insertSeedNode(ctx context.Context, sn seedNode, parentID string) (int, error) {
	if sn.Label == "" {
		return 0, lserr.New(lserr.CodeInvalidArgument, "taxonomy seed node has no label")
	}

	node, err := s.InsertNode(ctx, sn.Label, parentID)
	if err != nil {
		return 0, err
	}

	count := 1
	for _, child := range sn.Children {
		n, err := s.insertSeedNode(ctx, child, node.ID)
		count += n
		if err != nil {
			return count, err
		}
	}
	return count, nil
}
