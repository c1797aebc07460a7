package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new restflow project",
	Long: `Initialize a new restflow project in the current directory.

This creates:
  - example.yaml   - Example test suite

Examples:
  restflow init
  restflow init --force`,
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing files")
}

const exampleSuite = `name: example
variables:
  base: http://localhost:3000

defaults:
  timeout: 10s
  headers:
    Accept: application/json
  on_failure: continue

cases:
  - name: health check
    module: smoke
    request:
      method: GET
      url: ${base}/health
    validate:
      - selector: status
        op: eq
        expected: 200

  - name: create resource
    module: crud
    request:
      method: POST
      url: ${base}/resources
      body:
        name: Test Resource
        created: ${now()}
    validate:
      - selector: status
        op: eq
        expected: 201
      - selector: body.id
        op: exists
    extract:
      - name: resourceId
        selector: body.id
        scope: suite

  - name: fetch created resource
    module: crud
    request:
      method: GET
      url: ${base}/resources/${resourceId}
    validate:
      - selector: status
        op: eq
        expected: 200
      - selector: body.id
        op: eq
        expected: ${resourceId}
`

func initCommand(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	exampleFile := filepath.Join(cwd, "example.yaml")
	if !forceInit {
		if _, err := os.Stat(exampleFile); err == nil {
			return fmt.Errorf("file already exists: %s (use --force to overwrite)", exampleFile)
		}
	}

	if err := os.WriteFile(exampleFile, []byte(exampleSuite), 0o644); err != nil {
		return fmt.Errorf("failed to create example suite: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", exampleFile)

	fmt.Fprintf(cmd.OutOrStdout(), "\nrestflow project initialized!\n")
	fmt.Fprintf(cmd.OutOrStdout(), "Run 'restflow run example.yaml' to execute the example suite.\n")
	return nil
}
