package main

import (
	"fmt"

	"github.com/aretw0/espalier/internal/presentation/tui"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/registry"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var execCmd = &cobra.Command{
	Use:   "exec <diagram> <command>",
	Short: "Execute one command against a diagram",
	Long: `Builds a command from the registry and executes it against a stored diagram.
Parameters are given as a JSON or YAML object:

  espalier exec order dock --params '{parent: task, candidate: timer}'

A command rejected by a rule leaves the diagram unchanged and exits with status 1.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCommand(cmd, args, false)
	},
}

var allowCmd = &cobra.Command{
	Use:   "allow <diagram> <command>",
	Short: "Check whether a command would be accepted, without applying it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCommand(cmd, args, true)
	},
}

func init() {
	for _, c := range []*cobra.Command{execCmd, allowCmd} {
		c.Flags().String("params", "", "Command parameters as a JSON or YAML object")
		rootCmd.AddCommand(c)
	}
}

func runCommand(cmd *cobra.Command, args []string, dryRun bool) error {
	raw, _ := cmd.Flags().GetString("params")
	params, err := parseParams(raw)
	if err != nil {
		return err
	}
	c, err := registry.Default().Build(registry.Spec{Type: args[1], Params: params})
	if err != nil {
		return err
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	sessions := a.sessions()

	var res *domain.Result
	label := c.String()
	if dryRun {
		label = "allow " + label
		res, err = sessions.Allow(cmd.Context(), args[0], c)
	} else {
		res, err = sessions.Execute(cmd.Context(), args[0], c)
	}

	p := tui.NewPrinter(cmd.OutOrStdout())
	if err != nil {
		p.Failure(label, err)
		return err
	}
	p.Result(label, res)
	if res.HasError() {
		return fmt.Errorf("%s: rejected", label)
	}
	return nil
}

func parseParams(raw string) (map[string]any, error) {
	params := map[string]any{}
	if raw == "" {
		return params, nil
	}
	if err := yaml.Unmarshal([]byte(raw), &params); err != nil {
		return nil, fmt.Errorf("%w: params: %v", domain.ErrInvalidArgument, err)
	}
	return params, nil
}
