package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/devicelab-dev/cartpilot/pkg/flow"
	"github.com/devicelab-dev/cartpilot/pkg/report"
	"github.com/devicelab-dev/cartpilot/pkg/session"
)

// Worker is one device and the runner driving it.
type Worker struct {
	Device  report.Device
	Runner  *Runner
	Cleanup func()
}

// workItem is a job and its index in the job list.
type workItem struct {
	req   flow.Request
	index int
}

// JobResult is the outcome of one job.
type JobResult struct {
	Job      string
	Device   report.Device
	Summary  report.Summary
	Err      error
	Duration int64
}

// FleetResult aggregates every job of a run.
type FleetResult struct {
	Status    report.Status
	Jobs      []JobResult
	Requested int
	Succeeded int
	Duration  int64
}

// Fleet runs jobs across several devices. Each device takes the next job
// from a shared queue when it finishes the previous one.
type Fleet struct {
	workers  []Worker
	out      io.Writer
	outputMu sync.Mutex
}

// formatDeviceLabel creates a short device label for progress lines.
func formatDeviceLabel(device *report.Device) string {
	if device == nil {
		return "Unknown"
	}
	if device.Name != "" {
		return device.Name
	}
	return device.ID
}

// formatDuration formats milliseconds as human-readable duration
func formatDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	seconds := float64(ms) / 1000.0
	if seconds < 60 {
		return fmt.Sprintf("%.1fs", seconds)
	}
	minutes := int(seconds / 60)
	secs := int(seconds) % 60
	return fmt.Sprintf("%dm%ds", minutes, secs)
}

// NewFleet returns a fleet printing progress lines to out.
func NewFleet(workers []Worker, out io.Writer) *Fleet {
	if out == nil {
		out = io.Discard
	}
	return &Fleet{workers: workers, out: out}
}

func (f *Fleet) printf(format string, args ...interface{}) {
	f.outputMu.Lock()
	defer f.outputMu.Unlock()
	fmt.Fprintf(f.out, format, args...)
}

// Run executes reqs and returns once every job finished or a stop was
// requested. A stop is reported as session.ErrStopped alongside the
// partial result.
func (f *Fleet) Run(ctx context.Context, reqs []flow.Request) (*FleetResult, error) {
	if len(f.workers) == 0 {
		return nil, fmt.Errorf("no workers available")
	}
	start := time.Now()

	queue := make(chan workItem, len(reqs))
	for i, r := range reqs {
		queue <- workItem{req: r, index: i}
	}
	close(queue)

	results := make([]JobResult, len(reqs))
	var resultsMu sync.Mutex
	var stopped bool
	var wg sync.WaitGroup
	total := len(reqs)

	for i := range f.workers {
		wg.Add(1)
		go func(w Worker) {
			defer wg.Done()
			label := formatDeviceLabel(&w.Device)
			for item := range queue {
				resultsMu.Lock()
				halt := stopped
				resultsMu.Unlock()
				if halt {
					results[item.index] = JobResult{Job: item.req.Label(), Device: w.Device, Err: session.ErrStopped}
					continue
				}

				f.printf("[%d/%d] %s - started on %s\n", item.index+1, total, item.req.Label(), label)
				t0 := time.Now()
				sum, err := w.Runner.Run(ctx, item.req)
				res := JobResult{Job: item.req.Label(), Device: w.Device, Err: err, Duration: time.Since(t0).Milliseconds()}
				if sum != nil {
					res.Summary = *sum
				}

				resultsMu.Lock()
				results[item.index] = res
				if errors.Is(err, session.ErrStopped) {
					stopped = true
				}
				resultsMu.Unlock()

				status := "✓ passed"
				if err != nil || res.Summary.Succeeded < res.Summary.Requested {
					status = "✗ failed"
				}
				f.printf("[%d/%d] %s - %s on %s (%s), succeeded %d of %d requested\n",
					item.index+1, total, item.req.Label(), status, label,
					formatDuration(res.Duration), res.Summary.Succeeded, res.Summary.Requested)
				if err != nil {
					f.printf("  Error: %s\n", err)
				}
			}
		}(f.workers[i])
	}
	wg.Wait()

	for i := range f.workers {
		if f.workers[i].Cleanup != nil {
			f.workers[i].Cleanup()
		}
	}

	res := buildFleetResult(results, time.Since(start).Milliseconds())
	if stopped {
		return res, session.ErrStopped
	}
	return res, nil
}

// buildFleetResult totals job results. The run passes when every job got
// what it requested without error.
func buildFleetResult(jobs []JobResult, wallClock int64) *FleetResult {
	res := &FleetResult{Jobs: jobs, Duration: wallClock, Status: report.StatusPassed}
	for _, j := range jobs {
		res.Requested += j.Summary.Requested
		res.Succeeded += j.Summary.Succeeded
		if j.Err != nil || j.Summary.Succeeded < j.Summary.Requested {
			res.Status = report.StatusFailed
		}
	}
	return res
}
