package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/JaimeStill/rainn/internal/flows"
)

func newFlowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flow",
		Short: "Export and import flow definitions",
	}

	cmd.AddCommand(newFlowExportCommand())
	cmd.AddCommand(newFlowImportCommand())
	return cmd
}

func newFlowExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <process-id>",
		Short: "Export a process as a flow document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatFlag, _ := cmd.Flags().GetString("format")
			output, _ := cmd.Flags().GetString("output")

			processID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid process id: %w", err)
			}

			format, err := flows.ParseFormat(formatFlag)
			if err != nil {
				return err
			}

			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			doc, err := s.domain.Flows.Export(s.Context(), processID)
			if err != nil {
				return err
			}

			data, err := flows.Encode(doc, format)
			if err != nil {
				return err
			}

			if output == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			return os.WriteFile(output, data, 0o644)
		},
	}

	cmd.Flags().String("format", "json", "Document format (json|yaml)")
	cmd.Flags().StringP("output", "o", "", "Write to file instead of stdout")
	return cmd
}

func newFlowImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a flow document as a new agent and process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			format := flows.FormatJSON
			switch strings.ToLower(filepath.Ext(args[0])) {
			case ".yaml", ".yml":
				format = flows.FormatYAML
			}

			doc, err := flows.Decode(data, format)
			if err != nil {
				return err
			}

			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			proc, err := s.domain.Flows.Import(s.Context(), doc)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "imported process %s (%s)\n", proc.Name, proc.ID)
			return nil
		},
	}
}
