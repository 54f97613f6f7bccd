package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/devicelab-dev/cartpilot/pkg/store"
)

func TestGenerateJUnit(t *testing.T) {
	tmpDir := t.TempDir()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	end := now.Add(10 * time.Second)
	d1, d2, d3 := int64(5000), int64(3000), int64(1500)
	denied := "shop blocked"

	r := &Report{
		Version:   Version,
		Session:   "sess-1",
		Status:    StatusFailed,
		StartTime: now,
		EndTime:   &end,
		Device:    Device{ID: "emulator-5554", Name: "Pixel 6", Platform: "android"},
		App:       App{ID: "com.example.shop"},
		Summary:   Summary{Flow: "purchase", Requested: 2, Succeeded: 1, Total: 3, Passed: 1, Failed: 1, Skipped: 1},
		Attempts: []Attempt{
			{ID: "a-0", Index: 0, Product: "手机壳", Price: 0.9, Status: StatusPassed, Duration: &d1, Details: map[string]string{"via": "ancestor"}},
			{ID: "a-1", Index: 1, Product: "A&B <cable>", Price: 1.2, Status: StatusFailed, Reason: ReasonPermission, Error: &denied, Duration: &d2},
			{ID: "a-2", Index: 2, Status: StatusSkipped, Reason: ReasonForbidden, Duration: &d3},
		},
	}
	if err := store.WriteJSON(filepath.Join(tmpDir, FileName), r); err != nil {
		t.Fatalf("write report: %v", err)
	}

	if err := GenerateJUnit(tmpDir); err != nil {
		t.Fatalf("GenerateJUnit: %v", err)
	}

	content, err := os.ReadFile(filepath.Join(tmpDir, JUnitFileName))
	if err != nil {
		t.Fatalf("read junit xml: %v", err)
	}
	xml := string(content)

	checks := []string{
		`<?xml version="1.0" encoding="UTF-8"?>`,
		`<testsuites tests="3" failures="1" skipped="1" errors="0" time="10.000">`,
		`<testsuite name="cartpilot.purchase" tests="3" failures="1" skipped="1"`,
		`timestamp="2026-03-01T10:00:00Z"`,
		`<property name="device.id" value="emulator-5554"/>`,
		`<property name="requested" value="2"/>`,
		`<testcase name="手机壳" classname="cartpilot.purchase" time="5.000">`,
		`<property name="price" value="0.90"/>`,
		`<property name="via" value="ancestor"/>`,
		`<testcase name="A&amp;B &lt;cable&gt;"`,
		`<failure message="shop blocked" type="PolicyRejection">permission_denied</failure>`,
		`<testcase name="attempt-002"`,
		`<skipped message="forbidden_keyword"/>`,
		`</testsuites>`,
	}
	for _, want := range checks {
		if !strings.Contains(xml, want) {
			t.Errorf("junit xml missing %q", want)
		}
	}
}

func TestGenerateJUnitMissingReport(t *testing.T) {
	if err := GenerateJUnit(t.TempDir()); err == nil {
		t.Error("expected error for missing report")
	}
}

func TestMapReasonToFailure(t *testing.T) {
	tests := []struct {
		reason Reason
		want   string
	}{
		{ReasonNavigation, "NavigationError"},
		{ReasonVerify, "VerificationError"},
		{ReasonVariant, "VariantError"},
		{ReasonForbidden, "PolicyRejection"},
		{ReasonPanic, "RuntimeError"},
		{ReasonInterrupted, "Interrupted"},
		{ReasonError, "AttemptError"},
	}
	for _, tt := range tests {
		t.Run(string(tt.reason), func(t *testing.T) {
			if got := mapReasonToFailure(tt.reason); got != tt.want {
				t.Errorf("mapReasonToFailure(%q) = %q, want %q", tt.reason, got, tt.want)
			}
		})
	}
}

func TestXMLEscape(t *testing.T) {
	got := xmlEscape(`a&b<c>"d"'e'`)
	want := "a&amp;b&lt;c&gt;&quot;d&quot;&apos;e&apos;"
	if got != want {
		t.Errorf("xmlEscape = %q, want %q", got, want)
	}
}
