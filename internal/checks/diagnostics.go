package checks

import (
	"fmt"
	"io"
	"maps"

	"github.com/fatih/color"
)

// ResultType is the verdict of a diagnostics check.
type ResultType string

const (
	ResultSuccess ResultType = "success"
	ResultWarning ResultType = "warning"
	ResultFailure ResultType = "failure"
)

// DiagnosticsResult is the outcome of one diagnostics check.
type DiagnosticsResult struct {
	Name        string
	Passed      ResultType
	Message     string
	Diagnostics string

	// Details are extra fields included in the report.
	Details map[string]any
}

// Success returns a passed result.
func Success(name, message string) DiagnosticsResult {
	return DiagnosticsResult{Name: name, Passed: ResultSuccess, Message: message}
}

// Warn returns a result that does not fail the diagnostics.
func Warn(name, message string) DiagnosticsResult {
	return DiagnosticsResult{Name: name, Passed: ResultWarning, Message: message}
}

// Fail returns a failed result.
func Fail(name, message, diagnostics string) DiagnosticsResult {
	return DiagnosticsResult{Name: name, Passed: ResultFailure, Message: message, Diagnostics: diagnostics}
}

// ToMap renders the result for a JSON or YAML report. Empty message and
// diagnostics are left out.
func (r DiagnosticsResult) ToMap() map[string]any {
	m := make(map[string]any, len(r.Details)+4)
	maps.Copy(m, r.Details)
	m["name"] = r.Name
	m["passed"] = string(r.Passed)
	if r.Message != "" {
		m["message"] = r.Message
	}
	if r.Diagnostics != "" {
		m["diagnostics"] = r.Diagnostics
	}
	return m
}

// CoalesceType returns the overall verdict of results: failure if any
// failed, otherwise warning if any warned, otherwise success.
func CoalesceType(results []DiagnosticsResult) ResultType {
	verdict := ResultSuccess
	for _, r := range results {
		switch r.Passed {
		case ResultFailure:
			return ResultFailure
		case ResultWarning:
			verdict = ResultWarning
		}
	}
	return verdict
}

var verdictColor = map[ResultType]*color.Color{
	ResultSuccess: color.New(color.FgGreen),
	ResultWarning: color.New(color.FgYellow),
	ResultFailure: color.New(color.FgRed, color.Bold),
}

// WriteResults writes one line per result, coloured by verdict, followed by
// the diagnostics of results that did not pass.
func WriteResults(w io.Writer, results []DiagnosticsResult) {
	for _, r := range results {
		c, ok := verdictColor[r.Passed]
		if !ok {
			c = color.New()
		}
		line := r.Name + " ... " + c.Sprint(string(r.Passed))
		if r.Message != "" {
			line += ": " + r.Message
		}
		fmt.Fprintln(w, line)
		if r.Passed != ResultSuccess && r.Diagnostics != "" {
			fmt.Fprintln(w, "  "+r.Diagnostics)
		}
	}
}
