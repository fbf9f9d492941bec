// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Bollo123view/refresherr/internal/models"
)

func RunRepairCommand() *cobra.Command {
	var (
		configPath string
		phase      string
	)

	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Run one repair pass and wait for it to finish",
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch phase {
			case models.RunPhaseHotswap, models.RunPhaseSearch, models.RunPhaseFull:
			default:
				return fmt.Errorf("invalid phase %q: want hotswap, search, or full", phase)
			}

			a, err := newApp(configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			runID, err := a.orchestrator.TriggerRun(cmd.Context(), phase, models.RunTriggerManual)
			if err != nil {
				return err
			}

			var run *models.RepairRun
			for {
				run, err = a.runs.GetRun(cmd.Context(), runID)
				if err != nil {
					return err
				}
				if run.Status != models.RunStatusRunning {
					break
				}
				time.Sleep(500 * time.Millisecond)
			}

			cmd.Printf("Run %d %s (%s phase)\n", run.ID, run.Status, run.Phase)
			cmd.Printf("Broken found: %d\n", run.BrokenFound)
			cmd.Printf("Repaired:     %d\n", run.Repaired)
			cmd.Printf("Skipped:      %d\n", run.Skipped)
			cmd.Printf("Failed:       %d\n", run.Failed)
			if run.ErrorMessage != "" {
				cmd.Printf("Error: %s\n", run.ErrorMessage)
			}

			if run.Status == models.RunStatusFailed {
				return fmt.Errorf("repair run %d failed", run.ID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to config file")
	cmd.Flags().StringVar(&phase, "phase", models.RunPhaseFull, "Repair phase to run: hotswap, search, or full")

	return cmd
}
