// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loresmith Contributors

package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root loresmith command with all subcommands
// registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "loresmith",
		Short:         "Loresmith — game design knowledge management",
		Long:          "Loresmith stores, reviews, relates, and searches game-design knowledge entries.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags.
	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().String("addr", "127.0.0.1:7171", "address of a running loresmith server")

	root.AddCommand(
		newServeCmd(),
		newSearchCmd(),
		newEntryCmd(),
		newTaxonomyCmd(),
		newVersionCmd(),
	)

	return root
}
