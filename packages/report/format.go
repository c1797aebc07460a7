package report

import (
	"fmt"
	"io"

	"github.com/restflow/restflow/packages/engine"
)

// Formatter renders one run result to its writer.
type Formatter interface {
	Format(run *engine.RunResult) error
}

// New returns the formatter for a kind name: console, json, or junit.
func New(kind string, w io.Writer) (Formatter, error) {
	switch kind {
	case "", "console":
		return NewConsole(WithWriter(w)), nil
	case "json":
		return NewJSON(JSONWithWriter(w)), nil
	case "junit":
		return NewJUnit(JUnitWithWriter(w)), nil
	default:
		return nil, fmt.Errorf("unknown report format: %q", kind)
	}
}
