package report

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/restflow/restflow/packages/engine"
)

// formatValue formats a value for display, summarizing containers and
// truncating long strings.
func formatValue(v any, maxLen int) string {
	switch val := v.(type) {
	case []any:
		return fmt.Sprintf("[array with %d items]", len(val))
	case map[string]any:
		return fmt.Sprintf("{object with %d keys}", len(val))
	}
	str := fmt.Sprintf("%v", v)
	if len(str) > maxLen {
		return str[:maxLen] + "..."
	}
	return str
}

// Console renders a human-readable run summary.
type Console struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*Console)

func NewConsole(opts ...ConsoleOption) *Console {
	c := &Console{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.noColor {
		color.NoColor = true
	}
	return c
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(c *Console) {
		c.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(c *Console) {
		c.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(c *Console) {
		c.noColor = nc
	}
}

func (c *Console) Format(run *engine.RunResult) error {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	for _, suite := range run.Suites {
		label := suite.Suite
		if suite.Path != "" {
			label = fmt.Sprintf("%s (%s)", suite.Suite, suite.Path)
		}
		fmt.Fprintf(c.writer, "\n%s\n\n", bold("Suite: "+label))

		module := ""
		for _, cr := range suite.Cases {
			if cr.Module != module && cr.Module != "" {
				fmt.Fprintf(c.writer, "  %s\n", bold(cr.Module))
			}
			if cr.Module != "" {
				module = cr.Module
			}
			c.printCase(cr, green, red, yellow, cyan)
		}

		if suite.Aborted {
			fmt.Fprintf(c.writer, "\n  %s\n", red("suite aborted"))
		}
		if c.verbose && suite.Latency != nil {
			l := suite.Latency
			fmt.Fprintf(c.writer, "\n  Latency: min=%dms p50=%dms p95=%dms p99=%dms max=%dms\n",
				l.Min, l.P50, l.P95, l.P99, l.Max)
		}
	}

	passed, failed, errs, skipped := run.Totals()
	fmt.Fprintf(c.writer, "\nTests: ")
	if passed > 0 {
		fmt.Fprintf(c.writer, "%s, ", green(fmt.Sprintf("%d passed", passed)))
	}
	if failed > 0 {
		fmt.Fprintf(c.writer, "%s, ", red(fmt.Sprintf("%d failed", failed)))
	}
	if errs > 0 {
		fmt.Fprintf(c.writer, "%s, ", red(fmt.Sprintf("%d errored", errs)))
	}
	if skipped > 0 {
		fmt.Fprintf(c.writer, "%s, ", yellow(fmt.Sprintf("%d skipped", skipped)))
	}
	fmt.Fprintf(c.writer, "%d total\n", passed+failed+errs+skipped)
	fmt.Fprintf(c.writer, "Time:  %dms\n\n", run.Duration.Milliseconds())
	return nil
}

func (c *Console) printCase(cr *engine.CaseResult, green, red, yellow, cyan func(...any) string) {
	switch cr.Outcome {
	case engine.OutcomeSkip:
		fmt.Fprintf(c.writer, "  %s %s", yellow("-"), cr.Name)
		if cr.SkipReason != "" {
			fmt.Fprintf(c.writer, " (%s)", cr.SkipReason)
		}
		fmt.Fprintf(c.writer, "\n")
		return
	case engine.OutcomeError:
		fmt.Fprintf(c.writer, "  %s %s %s\n", red("x"), cr.Name, red(fmt.Sprintf("(%v)", cr.Err)))
		return
	}

	symbol := green("✓")
	if cr.Outcome == engine.OutcomeFail {
		symbol = red("✗")
	}
	fmt.Fprintf(c.writer, "  %s %s %s\n", symbol, cr.Name, cyan(fmt.Sprintf("(%dms)", cr.Duration.Milliseconds())))

	if c.verbose && cr.Response != nil {
		fmt.Fprintf(c.writer, "    Status: %d\n", cr.Response.StatusCode)
	}

	if cr.Outcome == engine.OutcomeFail {
		for _, r := range cr.Rules {
			if r.Passed {
				continue
			}
			fmt.Fprintf(c.writer, "    %s %s %s\n", red("→"), r.Selector, r.Operator)
			fmt.Fprintf(c.writer, "      Expected: %s\n", formatValue(r.Expected, 100))
			fmt.Fprintf(c.writer, "      Actual:   %s\n", formatValue(r.Actual, 100))
			if r.Message != "" {
				fmt.Fprintf(c.writer, "      %s\n", r.Message)
			}
		}
	}

	for _, r := range cr.Rules {
		if r.Warning != "" {
			fmt.Fprintf(c.writer, "    %s %s\n", yellow("warning:"), r.Warning)
		}
	}

	if c.verbose && len(cr.Extracted) > 0 {
		fmt.Fprintf(c.writer, "    Extracted:\n")
		for name, value := range cr.Extracted {
			fmt.Fprintf(c.writer, "      %s = %v\n", name, value)
		}
	}
}

// FormatError renders a run-level failure, e.g. a suite that would not load.
func (c *Console) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(c.writer, "%s %v\n", red("Error:"), err)
}
