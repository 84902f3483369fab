package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/JaimeStill/rainn/internal/execution"
	"github.com/JaimeStill/rainn/internal/instances"
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run --process <id> [--agent <id>] <file>...",
		Short: "Run a process against local files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			processFlag, _ := cmd.Flags().GetString("process")
			agentFlag, _ := cmd.Flags().GetString("agent")

			processID, err := uuid.Parse(processFlag)
			if err != nil {
				return fmt.Errorf("invalid --process: %w", err)
			}

			agentID := uuid.Nil
			if agentFlag != "" {
				if agentID, err = uuid.Parse(agentFlag); err != nil {
					return fmt.Errorf("invalid --agent: %w", err)
				}
			}

			files := make([]execution.File, 0, len(args))
			for _, arg := range args {
				path, err := filepath.Abs(arg)
				if err != nil {
					return err
				}
				if _, err := os.Stat(path); err != nil {
					return err
				}
				files = append(files, execution.File{Path: path, Name: filepath.Base(path)})
			}

			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			result := s.domain.Runtime.Run(s.Context(), processID, agentID, files)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return err
			}

			if result.Status != instances.StatusCompleted {
				return fmt.Errorf("run %s", result.Status)
			}
			return nil
		},
	}

	cmd.Flags().String("process", "", "Process ID to run (required)")
	cmd.Flags().String("agent", "", "Agent ID override (defaults to the process's agent)")
	cmd.MarkFlagRequired("process")
	return cmd
}

func newSweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Apply run retention once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			result, err := s.domain.Sweeper.Sweep(s.Context())
			fmt.Fprintf(
				cmd.OutOrStdout(),
				"soft deleted: %d\npurged: %d\nreaped: %d\n",
				result.SoftDeleted, result.Purged, result.Reaped,
			)
			return err
		},
	}
}
