package runner

import (
	"fmt"
	"time"

	"github.com/sznuper/formprobe/internal/form"
	"github.com/sznuper/formprobe/internal/notify"
)

// BrowserLabel names the failure recorded when the browser cannot start.
const BrowserLabel = "Browser"

// Report is the outcome of one run over a set of forms. Failures are kept in
// the results rather than returned, so the caller always has something to
// display.
type Report struct {
	RunID    string
	Started  time.Time
	Duration time.Duration
	Results  []form.Result

	// Delivery is set once the report has been sent.
	Delivery *notify.Delivery
	// Notified is true if Finish sent a notification for this report.
	Notified bool
}

// Failed returns the results that did not reach the confirmation page.
func (r Report) Failed() []form.Result {
	var out []form.Result
	for _, res := range r.Results {
		if !res.OK() {
			out = append(out, res)
		}
	}
	return out
}

// OK reports whether every form was confirmed.
func (r Report) OK() bool { return len(r.Failed()) == 0 }

// FailureLines formats each failure as "❌ Label: error".
func (r Report) FailureLines() []string {
	var lines []string
	for _, res := range r.Failed() {
		lines = append(lines, fmt.Sprintf("❌ %s: %v", label(res), res.Err))
	}
	return lines
}

// PassedLabels returns the labels of the confirmed forms.
func (r Report) PassedLabels() []string {
	var out []string
	for _, res := range r.Results {
		if res.OK() {
			out = append(out, label(res))
		}
	}
	return out
}

func label(res form.Result) string {
	if res.Label != "" {
		return res.Label
	}
	return res.Name
}
