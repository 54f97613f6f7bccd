// Package report records the outcome of every product attempt in a session
// as report.json, and renders JUnit XML and HTML views of it.
package report

import "time"

// Version is the report format version.
const Version = "1.0.0"

// Status of a run or attempt.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// IsTerminal reports whether the status is final.
func (s Status) IsTerminal() bool {
	return s == StatusPassed || s == StatusFailed || s == StatusSkipped
}

// Reason categorizes why an attempt did not pass.
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonNavigation  Reason = "navigation"
	ReasonNoCandidate Reason = "no_candidate"
	ReasonVerify      Reason = "verification"
	ReasonForbidden   Reason = "forbidden_keyword"
	ReasonPermission  Reason = "permission_denied"
	ReasonVariant     Reason = "variant"
	ReasonDuplicate   Reason = "duplicate"
	ReasonStopped     Reason = "stopped"
	ReasonPanic       Reason = "panic"
	ReasonError       Reason = "error"
	ReasonInterrupted Reason = "interrupted"
)

// Device identifies the phone a session ran on.
type Device struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Platform string `json:"platform"`
}

// App identifies the driven application.
type App struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Summary counts attempts. Requested is the number of products the job
// asked for and Succeeded the number obtained.
type Summary struct {
	Flow      string `json:"flow"`
	Requested int    `json:"requested"`
	Succeeded int    `json:"succeeded"`
	Total     int    `json:"total"`
	Passed    int    `json:"passed"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`
	Running   int    `json:"running"`
}

// Attempt is one product processed by an orchestrator.
type Attempt struct {
	ID        string            `json:"id"`
	Index     int               `json:"index"`
	Product   string            `json:"product"`
	Price     float64           `json:"price,omitempty"`
	Status    Status            `json:"status"`
	Reason    Reason            `json:"reason,omitempty"`
	Error     *string           `json:"error,omitempty"`
	StartTime time.Time         `json:"startTime"`
	Duration  *int64            `json:"duration,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

// Report is the content of report.json.
type Report struct {
	Version     string     `json:"version"`
	Session     string     `json:"session"`
	Status      Status     `json:"status"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	LastUpdated time.Time  `json:"lastUpdated"`
	UpdateSeq   uint64     `json:"updateSeq"`
	Device      Device     `json:"device"`
	App         App        `json:"app"`
	Summary     Summary    `json:"summary"`
	Attempts    []Attempt  `json:"attempts"`
}

// Summarize recounts attempts into s, keeping Flow and Requested.
func Summarize(s Summary, attempts []Attempt) Summary {
	out := Summary{Flow: s.Flow, Requested: s.Requested}
	for _, a := range attempts {
		out.Total++
		switch a.Status {
		case StatusPassed:
			out.Passed++
		case StatusFailed:
			out.Failed++
		case StatusSkipped:
			out.Skipped++
		case StatusRunning, StatusPending:
			out.Running++
		}
	}
	out.Succeeded = out.Passed
	return out
}
