// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Bollo123view/refresherr/internal/buildinfo"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "refresherr",
		Short: "Symlink repair daemon for debrid-mounted media libraries",
		Long: `refresherr watches media libraries whose files are symlinks into a
debrid mount, repairs broken links from a secondary library when possible,
and queues remote searches for the rest.`,
	}

	rootCmd.AddCommand(RunServeCommand())
	rootCmd.AddCommand(RunScanCommand())
	rootCmd.AddCommand(RunRepairCommand())
	rootCmd.AddCommand(RunVersionCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func RunVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println(buildinfo.String())
		},
	}
}
