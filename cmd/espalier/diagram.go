package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var diagramCmd = &cobra.Command{
	Use:     "diagram",
	Aliases: []string{"diagrams"},
	Short:   "Manage stored diagrams",
}

var diagramListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List stored diagrams",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ids, err := a.sessions().List(cmd.Context())
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "No diagrams found.")
			return nil
		}
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

var diagramCreateCmd = &cobra.Command{
	Use:   "create <diagram>",
	Short: "Create an empty diagram",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.sessions().Create(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", args[0])
		return nil
	},
}

var diagramRemoveCmd = &cobra.Command{
	Use:     "rm <diagram>...",
	Aliases: []string{"delete"},
	Short:   "Delete stored diagrams",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		sessions := a.sessions()
		for _, id := range args {
			if err := sessions.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", id)
		}
		return nil
	},
}

var diagramExportCmd = &cobra.Command{
	Use:   "export <diagram>",
	Short: "Write a diagram snapshot as JSON or YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		snap, err := a.sessions().Snapshot(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return encodeSnapshot(cmd.OutOrStdout(), format, snap)
	},
}

var diagramImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Store a diagram from a JSON or YAML snapshot",
	Long: `Reads a snapshot ("-" for stdin), checks that its edge index is consistent,
and stores it, replacing any diagram with the same ID.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var data []byte
		var err error
		if args[0] == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(args[0])
		}
		if err != nil {
			return fmt.Errorf("failed to read snapshot: %w", err)
		}
		snap, err := decodeSnapshot(data)
		if err != nil {
			return err
		}
		if id, _ := cmd.Flags().GetString("id"); id != "" {
			snap.DiagramID = id
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.sessions().Import(cmd.Context(), snap); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %s (%d nodes, %d edges)\n", snap.DiagramID, len(snap.Nodes), len(snap.Edges))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(diagramCmd)
	diagramCmd.AddCommand(diagramListCmd, diagramCreateCmd, diagramRemoveCmd, diagramExportCmd, diagramImportCmd)

	diagramExportCmd.Flags().StringP("format", "f", "json", "Output format: json or yaml")
	diagramImportCmd.Flags().String("id", "", "Store under this diagram ID instead of the one in the file")
}

func encodeSnapshot(w io.Writer, format string, snap *domain.Snapshot) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(snap)
	}
	return fmt.Errorf("%w: unknown format %q (want json or yaml)", domain.ErrInvalidArgument, format)
}

// decodeSnapshot accepts JSON or YAML; YAML is a superset of JSON.
func decodeSnapshot(data []byte) (*domain.Snapshot, error) {
	var snap domain.Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: snapshot: %v", domain.ErrInvalidArgument, err)
	}
	if snap.DiagramID == "" {
		return nil, fmt.Errorf("%w: snapshot has no diagram_id", domain.ErrInvalidArgument)
	}
	return &snap, nil
}
