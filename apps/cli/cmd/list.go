package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/restflow/restflow/packages/spec"
)

var listCmd = &cobra.Command{
	Use:   "list <file|directory>",
	Short: "List the suites and cases in suite files",
	Long: `List every suite and case defined in .yaml/.yml suite files.

Examples:
  restflow list api.yaml
  restflow list ./suites/`,
	Args: cobra.MinimumNArgs(1),
	RunE: listCommand,
}

func listCommand(cmd *cobra.Command, args []string) error {
	for _, arg := range args {
		suites, err := spec.LoadAll(arg)
		if err != nil {
			return err
		}

		for _, suite := range suites {
			fmt.Fprintf(cmd.OutOrStdout(), "\n%s (%s):\n", suite.Name, suite.Path)
			module := ""
			for _, c := range suite.Cases {
				if c.Module != module && c.Module != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "  [%s]\n", c.Module)
				}
				if c.Module != "" {
					module = c.Module
				}
				fmt.Fprintf(cmd.OutOrStdout(), "  - %s", c.Name)
				if c.Skip != "" {
					fmt.Fprintf(cmd.OutOrStdout(), " (skip: %s)", c.Skip)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\n")
			}
		}
	}
	return nil
}
