package main

import (
	"fmt"

	"github.com/aretw0/espalier/internal/presentation/tui"
	"github.com/aretw0/espalier/pkg/rules"
	"github.com/spf13/cobra"
)

var describeCmd = &cobra.Command{
	Use:   "describe <diagram>",
	Short: "Print a readable report of a diagram and its rule findings",
	Args:  cobra.ExactArgs(1),
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
		res, err := rules.Audit(snap, a.evaluator)
		if err != nil {
			return err
		}

		out := tui.DescribeMarkdown(snap, res)
		if raw, _ := cmd.Flags().GetBool("raw"); !raw && tui.IsTerminal(cmd.OutOrStdout()) {
			if out, err = tui.NewRenderer()(out); err != nil {
				return err
			}
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
	describeCmd.Flags().Bool("raw", false, "Print Markdown without terminal styling")
}
