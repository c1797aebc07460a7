package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/restflow/restflow/packages/spec"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file|directory>",
	Short: "Check suite definitions without executing them",
	Long: `Check suite files for definition errors without sending requests:
malformed templates, unknown operators, missing required fields.

Examples:
  restflow validate api.yaml
  restflow validate ./suites/`,
	Args: cobra.MinimumNArgs(1),
	RunE: validateCommand,
}

func validateCommand(cmd *cobra.Command, args []string) error {
	hasErrors := false
	for _, arg := range args {
		files, err := spec.Discover(arg)
		if err != nil {
			return err
		}

		for _, file := range files {
			suite, err := spec.Load(file)
			if err != nil {
				fmt.Fprintf(cmd.OutOrStderr(), "Error in %s: %v\n", file, err)
				hasErrors = true
				continue
			}
			if errs := suite.Check(); len(errs) > 0 {
				for _, e := range errs {
					fmt.Fprintf(cmd.OutOrStderr(), "Error in %s: %v\n", file, e)
				}
				hasErrors = true
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s (%d cases)\n", file, len(suite.Cases))
		}
	}

	if hasErrors {
		return fmt.Errorf("validation failed")
	}
	return nil
}
