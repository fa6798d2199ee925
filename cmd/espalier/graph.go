package main

import (
	"fmt"

	"github.com/aretw0/espalier/internal/presentation/graph"
	"github.com/aretw0/espalier/pkg/rules"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <diagram>",
	Short: "Export the diagram visualization",
	Long: `Outputs a Mermaid flowchart (graph TD) of a stored diagram.
With --check, elements flagged by the rules are highlighted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		snap, err := a.sessions().Snapshot(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		var overlay *graph.Overlay
		if check, _ := cmd.Flags().GetBool("check"); check {
			res, err := rules.Audit(snap, a.evaluator)
			if err != nil {
				return err
			}
			overlay = graph.OverlayFromResult(res)
		}
		if focus, _ := cmd.Flags().GetString("focus"); focus != "" {
			if overlay == nil {
				overlay = &graph.Overlay{}
			}
			overlay.Focus = focus
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(snap, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().Bool("check", false, "Highlight elements that break a rule")
	graphCmd.Flags().String("focus", "", "Highlight one node")
}
