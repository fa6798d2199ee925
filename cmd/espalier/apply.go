package main

import (
	"fmt"

	"github.com/aretw0/espalier/internal/cli"
	"github.com/aretw0/espalier/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var applyCmd = &cobra.Command{
	Use:   "apply <script.yaml>",
	Short: "Apply a YAML script of commands to a diagram",
	Long: `Runs every step of a script in order. Steps execute, allow, undo or redo commands.
Undo and redo only reach steps of the same script, since history lives in memory.

A fault (unknown node, bad parameters) always stops the script. A step rejected by a
rule stops it too, unless --continue-on-error is set.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		script, err := cli.LoadScript(args[0])
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("continue-on-error") {
			script.ContinueOnError, _ = cmd.Flags().GetBool("continue-on-error")
		}
		if cmd.Flags().Changed("create") {
			script.Create, _ = cmd.Flags().GetBool("create")
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		p := tui.NewPrinter(cmd.OutOrStdout())
		report, err := cli.RunScript(cmd.Context(), a.sessions(), nil, script, func(out cli.StepOutcome) {
			label := fmt.Sprintf("%d. %s", out.Index, out.Label)
			if out.Err != nil {
				p.Failure(label, out.Err)
				return
			}
			p.Result(label, out.Result)
		})
		if report != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d step(s), %d rejected\n", len(report.Steps), report.Rejected())
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(applyCmd)
	applyCmd.Flags().Bool("continue-on-error", false, "Keep going after a step is rejected by a rule")
	applyCmd.Flags().Bool("create", false, "Create the diagram when it does not exist")
}
