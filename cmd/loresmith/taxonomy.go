// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loresmith Contributors

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/loresmith-dev/loresmith/internal/server"
)

func newTaxonomyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taxonomy",
		Short: "Manage the taxonomy on a running server",
	}
	cmd.AddCommand(newTaxonomyTreeCmd(), newTaxonomyAddCmd(), newTaxonomySeedCmd())
	return cmd
}

func newTaxonomyTreeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Print the taxonomy forest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			client := newAPIClient(addr)

			var out struct {
				Nodes []server.NodeView `json:"nodes"`
			}
			if err := client.getJSON("/api/v1/taxonomy/tree", &out); err != nil {
				return err
			}

			children := make(map[string][]server.NodeView)
			for _, n := range out.Nodes {
				children[n.ParentID] = append(children[n.ParentID], n)
			}
			printForest(cmd, children, "", 0)
			return nil
		},
	}
}

func printForest(cmd *cobra.Command, children map[string][]server.NodeView, parent string, depth int) {
	for _, n := range children[parent] {
		for range depth {
			cmd.Print("  ")
		}
		cmd.Printf("%s  (%s)\n", n.Label, n.ID)
		printForest(cmd, children, n.ID, depth+1)
	}
}

func newTaxonomyAddCmd() *cobra.Command {
	var parentID string

	cmd := &cobra.Command{
		Use:   "add <label>",
		Short: "Create a taxonomy node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			client := newAPIClient(addr)

			var node server.NodeView
			err := client.postJSON("/api/v1/taxonomy/nodes", map[string]any{
				"label":     args[0],
				"parent_id": parentID,
			}, &node)
			if err != nil {
				return err
			}

			cmd.Println(node.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&parentID, "parent", "", "parent node id (empty for a new root)")

	return cmd
}

// seedTree mirrors the YAML seed file shape: nested labels.
type seedTree struct {
	Label    string     `yaml:"label"`
	Children []seedTree `yaml:"children,omitempty"`
}

type seedDoc struct {
	Taxonomy []seedTree `yaml:"taxonomy"`
}

func newTaxonomySeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file>",
		Short: "Create taxonomy nodes from a YAML seed file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading seed file: %w", err)
			}

			var doc seedDoc
			if err := yaml.Unmarshal(raw, &doc); err != nil {
				return fmt.Errorf("parsing seed file: %w", err)
			}

			addr, _ := cmd.Flags().GetString("addr")
			client := newAPIClient(addr)

			count := 0
			for _, root := range doc.Taxonomy {
				n, err := seedSubtree(client, root, "")
				if err != nil {
					return err
				}
				count += n
			}

			cmd.Printf("created %d nodes\n", count)
			return nil
		},
	}
}

func seedSubtree(client *apiClient, tree seedTree, parentID string) (int, error) {
	var node server.NodeView
	err := client.postJSON("/api/v1/taxonomy/nodes", map[string]any{
		"label":     tree.Label,
		"parent_id": parentID,
	}, &node)
	if err != nil {
		return 0, fmt.Errorf("creating node %q: %w", tree.Label, err)
	}

	count := 1
	for _, child := range tree.Children {
		n, err := seedSubtree(client, child, node.ID)
		if err != nil {
			return count, err
		}
		count += n
	}
	return count, nil
}
