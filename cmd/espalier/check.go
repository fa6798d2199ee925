package main

import (
	"fmt"

	"github.com/aretw0/espalier/internal/presentation/tui"
	"github.com/aretw0/espalier/pkg/rules"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check <diagram>",
	Short: "Audit a stored diagram against the rules",
	Long: `Replays a stored diagram element by element through the rule evaluator and
reports every violation. Exits with status 1 when any violation is an error.`,
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
		res, err := rules.Audit(snap, a.evaluator)
		if err != nil {
			return err
		}

		tui.NewPrinter(cmd.OutOrStdout()).Result("check "+args[0], res)
		if n := len(res.Errors()); n > 0 {
			return fmt.Errorf("diagram %q has %d error(s)", args[0], n)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
