package report

import (
	"path/filepath"

	"github.com/devicelab-dev/cartpilot/pkg/store"
)

// ReadReport reads report.json from dir.
func ReadReport(dir string) (*Report, error) {
	var r Report
	if err := store.ReadJSON(filepath.Join(dir, FileName), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Recover repairs a report left behind by a crashed session: attempts
// still marked running become failed/interrupted and the summary and run
// status are recomputed. It reports whether anything changed.
func Recover(dir string) (bool, error) {
	r, err := ReadReport(dir)
	if err != nil {
		return false, err
	}

	changed := false
	for i := range r.Attempts {
		a := &r.Attempts[i]
		if a.Status.IsTerminal() {
			continue
		}
		a.Status = StatusFailed
		a.Reason = ReasonInterrupted
		msg := "attempt interrupted"
		a.Error = &msg
		changed = true
	}
	if !r.Status.IsTerminal() {
		changed = true
	}
	if !changed {
		return false, nil
	}

	r.Summary = Summarize(r.Summary, r.Attempts)
	r.Status = runStatus(r.Summary)
	r.UpdateSeq++
	return true, store.WriteJSON(filepath.Join(dir, FileName), r)
}
