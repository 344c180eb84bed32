package notify

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
)

// TimeLayout formats report timestamps, e.g. "March 14, 2025 at 9:05:00 AM".
const TimeLayout = "January 2, 2006 at 3:04:05 PM"

// Default report templates.
const (
	DefaultFailureSubject = `{{ .StatusEmoji }} Form Test Failures`
	DefaultFailureBody    = `Some form tests failed on {{ .Time }} PT:

{{ join "\n\n" .Failures }}`
	DefaultSuccessSubject = `{{ .StatusEmoji }} Form Test Passed (Manual Run)`
	DefaultSuccessBody    = `All form tests passed successfully on {{ .Time }} PT.`
)

// ReportData holds all data available to report templates.
type ReportData struct {
	RunID       string
	Time        string
	Status      string // "passed" or "failed"
	StatusEmoji string
	Total       int
	Failures    []string
	Passed      []string
}

// BuildReportData constructs template data for a finished run.
func BuildReportData(runID string, at time.Time, failures, passed []string) ReportData {
	status := "passed"
	if len(failures) > 0 {
		status = "failed"
	}
	if failures == nil {
		failures = []string{}
	}
	if passed == nil {
		passed = []string{}
	}
	return ReportData{
		RunID:       runID,
		Time:        at.Format(TimeLayout),
		Status:      status,
		StatusEmoji: statusEmoji(status),
		Total:       len(failures) + len(passed),
		Failures:    failures,
		Passed:      passed,
	}
}

func statusEmoji(status string) string {
	switch status {
	case "failed":
		return "\U0001f525" // 🔥
	case "passed":
		return "\u2705" // ✅
	default:
		return "\u2753" // ❓
	}
}

// Render executes a Go text/template string with Sprig functions.
func Render(tmplStr string, data ReportData) (string, error) {
	t, err := template.New("notify").Funcs(sprig.TxtFuncMap()).Parse(tmplStr)
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}

	return buf.String(), nil
}
