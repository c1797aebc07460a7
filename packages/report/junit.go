package report

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/restflow/restflow/packages/engine"
)

// JUnitTestSuites is the root element of the JUnit document.
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Name       string           `xml:"name,attr,omitempty"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Skipped    int              `xml:"skipped,attr"`
	Time       float64          `xml:"time,attr"`
	Timestamp  string           `xml:"timestamp,attr,omitempty"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

type JUnitTestSuite struct {
	XMLName   xml.Name        `xml:"testsuite"`
	Name      string          `xml:"name,attr"`
	Tests     int             `xml:"tests,attr"`
	Failures  int             `xml:"failures,attr"`
	Errors    int             `xml:"errors,attr"`
	Skipped   int             `xml:"skipped,attr"`
	Time      float64         `xml:"time,attr"`
	Timestamp string          `xml:"timestamp,attr,omitempty"`
	TestCases []JUnitTestCase `xml:"testcase"`
}

type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Error     *JUnitError   `xml:"error,omitempty"`
	Skipped   *JUnitSkipped `xml:"skipped,omitempty"`
}

type JUnitFailure struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Content string `xml:",chardata"`
}

type JUnitError struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Content string `xml:",chardata"`
}

type JUnitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// JUnit renders the run as JUnit XML. The module label, when present,
// becomes the testcase classname so CI groups cases the same way the
// suite does.
type JUnit struct {
	writer io.Writer
}

type JUnitOption func(*JUnit)

func NewJUnit(opts ...JUnitOption) *JUnit {
	j := &JUnit{writer: os.Stdout}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

func JUnitWithWriter(w io.Writer) JUnitOption {
	return func(j *JUnit) {
		j.writer = w
	}
}

func (j *JUnit) Format(run *engine.RunResult) error {
	now := time.Now().Format(time.RFC3339)
	doc := JUnitTestSuites{
		Name:       "restflow",
		Time:       run.Duration.Seconds(),
		Timestamp:  now,
		TestSuites: make([]JUnitTestSuite, 0, len(run.Suites)),
	}

	for _, suite := range run.Suites {
		ts := JUnitTestSuite{
			Name:      suite.Suite,
			Tests:     len(suite.Cases),
			Failures:  suite.Failed,
			Errors:    suite.Errors,
			Skipped:   suite.Skipped,
			Time:      suite.Duration.Seconds(),
			Timestamp: now,
			TestCases: make([]JUnitTestCase, 0, len(suite.Cases)),
		}

		for _, cr := range suite.Cases {
			tc := JUnitTestCase{
				Name:      cr.Name,
				ClassName: suite.Suite,
				Time:      cr.Duration.Seconds(),
			}
			if cr.Module != "" {
				tc.ClassName = fmt.Sprintf("%s.%s", suite.Suite, cr.Module)
			}

			switch cr.Outcome {
			case engine.OutcomeSkip:
				tc.Skipped = &JUnitSkipped{Message: cr.SkipReason}
			case engine.OutcomeError:
				tc.Error = &JUnitError{
					Message: cr.Err.Error(),
					Type:    "Error",
				}
			case engine.OutcomeFail:
				var msg strings.Builder
				for _, r := range cr.Rules {
					if !r.Passed {
						fmt.Fprintf(&msg, "%s %s: expected %v, got %v. %s\n",
							r.Selector, r.Operator, r.Expected, r.Actual, r.Message)
					}
				}
				tc.Failure = &JUnitFailure{
					Message: "validation failed",
					Type:    "ValidationError",
					Content: msg.String(),
				}
			}
			ts.TestCases = append(ts.TestCases, tc)
		}

		doc.Tests += ts.Tests
		doc.Failures += ts.Failures
		doc.Errors += ts.Errors
		doc.Skipped += ts.Skipped
		doc.TestSuites = append(doc.TestSuites, ts)
	}

	if _, err := fmt.Fprintf(j.writer, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n"); err != nil {
		return err
	}
	encoder := xml.NewEncoder(j.writer)
	encoder.Indent("", "  ")
	return encoder.Encode(doc)
}
