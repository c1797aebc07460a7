package cmd

// Exit codes for the restflow CLI
const (
	// ExitSuccess indicates all cases passed
	ExitSuccess = 0

	// ExitCaseFailure indicates one or more cases failed or errored
	ExitCaseFailure = 1

	// ExitDefinitionError indicates a suite failed to load or validate
	ExitDefinitionError = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)
