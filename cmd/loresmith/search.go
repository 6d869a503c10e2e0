// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loresmith Contributors

package main

import (
	"fmt"
	"net/url"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/loresmith-dev/loresmith/internal/search"
)

func newSearchCmd() *cobra.Command {
	var (
		mode string
		topK int
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search knowledge entries on a running server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			client := newAPIClient(addr)

			q := url.Values{}
			q.Set("q", args[0])
			q.Set("mode", mode)
			q.Set("top_k", fmt.Sprintf("%d", topK))

			var out struct {
				Results []search.Result `json:"results"`
			}
			if err := client.getJSON("/api/v1/search?"+q.Encode(), &out); err != nil {
				return err
			}

			if len(out.Results) == 0 {
				cmd.Println("no results")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ENTRY\tSCORE")
			for _, r := range out.Results {
				fmt.Fprintf(w, "%s\t%.4f\n", r.EntryID, r.Score)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "hybrid", "search mode: keyword, semantic, or hybrid")
	cmd.Flags().IntVar(&topK, "top-k", 10, "maximum number of results")

	return cmd
}
