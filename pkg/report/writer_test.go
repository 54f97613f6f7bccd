package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestWriter(t *testing.T, dir string) *Writer {
	t.Helper()
	w := NewWriter(dir, &Report{
		Session: "s-1",
		Device:  Device{ID: "emulator-5554", Platform: "android"},
		App:     App{ID: "com.example.shop"},
		Summary: Summary{Flow: "favorite"},
	})
	clock := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	w.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return w
}

func TestWriterLifecycle(t *testing.T) {
	dir := t.TempDir()
	w := newTestWriter(t, dir)

	w.Start(2)
	a := w.Begin("手机壳", 0.9)
	w.Detail(a, "via", "ancestor")
	w.Finish(a, StatusPassed, ReasonNone, "")
	b := w.Begin("数据线", 1.5)
	w.Finish(b, StatusSkipped, ReasonForbidden, "定制")

	s := w.Summary()
	if s.Total != 2 || s.Passed != 1 || s.Skipped != 1 || s.Succeeded != 1 || s.Requested != 2 {
		t.Fatalf("summary = %+v", s)
	}

	r, err := ReadReport(dir)
	if err != nil {
		t.Fatalf("ReadReport: %v", err)
	}
	if r.Status != StatusRunning {
		t.Errorf("Status = %q, want %q", r.Status, StatusRunning)
	}
	if len(r.Attempts) != 2 {
		t.Fatalf("attempts = %d, want 2", len(r.Attempts))
	}
	if r.Attempts[0].Details["via"] != "ancestor" {
		t.Errorf("details = %v", r.Attempts[0].Details)
	}
	if r.Attempts[1].Error == nil || *r.Attempts[1].Error != "定制" {
		t.Errorf("error message not recorded")
	}
	if r.Attempts[0].Duration == nil || *r.Attempts[0].Duration != 2000 {
		t.Errorf("duration = %v, want 2000ms", r.Attempts[0].Duration)
	}
	if r.UpdateSeq < 5 {
		t.Errorf("UpdateSeq = %d, want >= 5", r.UpdateSeq)
	}
}

func TestWriterEnd(t *testing.T) {
	dir := t.TempDir()
	w := newTestWriter(t, dir)

	w.Start(1)
	w.Finish(w.Begin("a", 1), StatusPassed, ReasonNone, "")
	w.Begin("b", 2)

	s, err := w.End()
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if s.Failed != 1 || s.Running != 0 {
		t.Errorf("dangling attempt not closed: %+v", s)
	}

	r := w.Report()
	if r.Status != StatusPassed {
		t.Errorf("run status = %q, want passed (1 of 1 succeeded)", r.Status)
	}
	if r.Attempts[1].Reason != ReasonInterrupted {
		t.Errorf("reason = %q, want %q", r.Attempts[1].Reason, ReasonInterrupted)
	}
	for _, name := range []string{FileName, JUnitFileName, "report.html"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
}

func TestWriterInMemory(t *testing.T) {
	w := newTestWriter(t, "")
	w.Start(3)
	w.Finish(w.Begin("a", 1), StatusFailed, ReasonVerify, "")

	s, err := w.End()
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if s.Requested != 3 || s.Failed != 1 {
		t.Errorf("summary = %+v", s)
	}
	if w.Report().Status != StatusFailed {
		t.Errorf("run with 0 of 3 should fail")
	}
}

func TestWriterUnknownAttemptIgnored(t *testing.T) {
	w := newTestWriter(t, "")
	w.Finish("missing", StatusPassed, ReasonNone, "")
	w.Detail("missing", "k", "v")
	if w.Summary().Total != 0 {
		t.Error("unknown attempt must not be counted")
	}
}

func TestRecover(t *testing.T) {
	dir := t.TempDir()
	w := newTestWriter(t, dir)
	w.Start(2)
	w.Finish(w.Begin("a", 1), StatusPassed, ReasonNone, "")
	w.Begin("b", 2)

	changed, err := Recover(dir)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if !changed {
		t.Fatal("Recover reported no change")
	}

	r, err := ReadReport(dir)
	if err != nil {
		t.Fatalf("ReadReport: %v", err)
	}
	if r.Attempts[1].Status != StatusFailed || r.Attempts[1].Reason != ReasonInterrupted {
		t.Errorf("attempt = %+v", r.Attempts[1])
	}
	if r.Status != StatusFailed {
		t.Errorf("Status = %q, want failed", r.Status)
	}

	changed, err = Recover(dir)
	if err != nil || changed {
		t.Errorf("second Recover = %v, %v; want no change", changed, err)
	}
}

func TestRecoverMissingReportWriter(t *testing.T) {
	if _, err := Recover(t.TempDir()); err == nil {
		t.Error("expected error for missing report.json")
	}
}
