// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loresmith Contributors

package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/loresmith-dev/loresmith/internal/server"
)

func newEntryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entry",
		Short: "Inspect knowledge entries on a running server",
	}
	cmd.AddCommand(newEntryGetCmd(), newEntryHistoryCmd())
	return cmd
}

func newEntryGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show an entry with its head content, relations, and lock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			client := newAPIClient(addr)

			var detail server.EntryDetail
			if err := client.getJSON("/api/v1/entries/"+args[0], &detail); err != nil {
				return err
			}

			cmd.Printf("ID:       %s\n", detail.ID)
			cmd.Printf("Category: %s\n", detail.Category)
			cmd.Printf("Revision: %d\n", detail.HeadRevision)
			if len(detail.Path) > 0 {
				labels := make([]string, len(detail.Path))
				for i, n := range detail.Path {
					labels[i] = n.Label
				}
				cmd.Printf("Path:     %s\n", strings.Join(labels, " / "))
			}
			if detail.Lock != nil {
				cmd.Printf("Lock:     %s (expires %s)\n", detail.Lock.Holder, detail.Lock.ExpiresAt.Format("15:04:05"))
			}
			if detail.PendingReview != nil {
				cmd.Printf("Pending:  revision %d by %s\n", detail.PendingReview.Revision, detail.PendingReview.Author)
			}
			cmd.Printf("Title:    %s\n\n%s\n", detail.Content.Title, detail.Content.Body)

			for _, e := range detail.Outbound {
				cmd.Printf("-> %s (%s)\n", e.Target, e.Type)
			}
			for _, e := range detail.Inbound {
				cmd.Printf("<- %s (%s)\n", e.Source, e.Type)
			}
			return nil
		},
	}
}

func newEntryHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <id>",
		Short: "List the revision history of an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			client := newAPIClient(addr)

			var out struct {
				Revisions []server.RevisionView `json:"revisions"`
			}
			if err := client.getJSON("/api/v1/entries/"+args[0]+"/history", &out); err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "REV\tSTATUS\tAUTHOR\tCREATED\tTITLE")
			for _, r := range out.Revisions {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
					r.Number, r.Status, r.Author, r.CreatedAt.Format("2006-01-02 15:04"), r.Content.Title)
			}
			return w.Flush()
		},
	}
}
