package report

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/devicelab-dev/cartpilot/pkg/store"
)

// FileName is the report document inside the report directory.
const FileName = "report.json"

// Writer owns a Report and flushes it to disk after every change. A Writer
// with an empty directory keeps the report in memory only.
type Writer struct {
	mu   sync.Mutex
	dir  string
	path string
	r    *Report
	err  error
	now  func() time.Time
}

// NewWriter returns a writer for r under dir.
func NewWriter(dir string, r *Report) *Writer {
	w := &Writer{dir: dir, r: r, now: time.Now}
	if dir != "" {
		w.path = filepath.Join(dir, FileName)
	}
	if r.Version == "" {
		r.Version = Version
	}
	if r.Status == "" {
		r.Status = StatusPending
	}
	return w
}

// Dir returns the report directory.
func (w *Writer) Dir() string { return w.dir }

// Start marks the run as running.
func (w *Writer) Start(requested int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.r.Status = StatusRunning
	w.r.StartTime = w.now()
	w.r.Summary.Requested = requested
	w.flushLocked()
}

// SetRequested changes the requested count, for flows that only learn it
// while running.
func (w *Writer) SetRequested(n int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.r.Summary.Requested = n
	w.flushLocked()
}

// Begin appends a running attempt and returns its id.
func (w *Writer) Begin(product string, price float64) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := uuid.NewString()
	w.r.Attempts = append(w.r.Attempts, Attempt{
		ID:        id,
		Index:     len(w.r.Attempts),
		Product:   product,
		Price:     price,
		Status:    StatusRunning,
		StartTime: w.now(),
	})
	w.flushLocked()
	return id
}

// Detail attaches a key/value to an attempt.
func (w *Writer) Detail(id, key, value string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if a := w.findLocked(id); a != nil {
		if a.Details == nil {
			a.Details = map[string]string{}
		}
		a.Details[key] = value
	}
}

// Rename updates the product label of an attempt once it is known.
func (w *Writer) Rename(id, product string, price float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if a := w.findLocked(id); a != nil {
		a.Product = product
		if price > 0 {
			a.Price = price
		}
	}
}

// Finish sets the terminal status of an attempt. msg is optional.
func (w *Writer) Finish(id string, status Status, reason Reason, msg string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	a := w.findLocked(id)
	if a == nil {
		return
	}
	a.Status = status
	a.Reason = reason
	if msg != "" {
		a.Error = &msg
	}
	d := w.now().Sub(a.StartTime).Milliseconds()
	a.Duration = &d
	w.flushLocked()
}

// Summary returns the current counts.
func (w *Writer) Summary() Summary {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.r.Summary
}

// Report returns a copy of the report.
func (w *Writer) Report() Report {
	w.mu.Lock()
	defer w.mu.Unlock()
	r := *w.r
	r.Attempts = append([]Attempt(nil), w.r.Attempts...)
	return r
}

// End closes the run, writes the final document and the JUnit and HTML
// views, and returns the summary. Attempts still running are marked
// interrupted.
func (w *Writer) End() (Summary, error) {
	w.mu.Lock()
	for i := range w.r.Attempts {
		if !w.r.Attempts[i].Status.IsTerminal() {
			w.r.Attempts[i].Status = StatusFailed
			w.r.Attempts[i].Reason = ReasonInterrupted
		}
	}
	end := w.now()
	w.r.EndTime = &end
	w.flushLocked()
	w.r.Status = runStatus(w.r.Summary)
	w.flushLocked()
	s, err, dir := w.r.Summary, w.err, w.dir
	w.mu.Unlock()

	if err != nil || dir == "" {
		return s, err
	}
	if err := GenerateJUnit(dir); err != nil {
		return s, err
	}
	if err := GenerateHTML(dir, HTMLConfig{}); err != nil {
		return s, err
	}
	return s, nil
}

func runStatus(s Summary) Status {
	if s.Succeeded >= s.Requested && s.Requested > 0 {
		return StatusPassed
	}
	return StatusFailed
}

func (w *Writer) findLocked(id string) *Attempt {
	for i := range w.r.Attempts {
		if w.r.Attempts[i].ID == id {
			return &w.r.Attempts[i]
		}
	}
	return nil
}

// flushLocked recounts and writes. The first write error is kept and
// returned by End; the run itself continues.
func (w *Writer) flushLocked() {
	w.r.Summary = Summarize(w.r.Summary, w.r.Attempts)
	w.r.LastUpdated = w.now()
	w.r.UpdateSeq++
	if w.path == "" {
		return
	}
	if err := store.WriteJSON(w.path, w.r); err != nil && w.err == nil {
		w.err = fmt.Errorf("write report: %w", err)
	}
}
