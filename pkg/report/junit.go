package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// JUnitFileName is written next to report.json.
const JUnitFileName = "junit-report.xml"

// GenerateJUnit reads report.json from dir and writes junit-report.xml with
// one testcase per product attempt.
func GenerateJUnit(dir string) error {
	r, err := ReadReport(dir)
	if err != nil {
		return fmt.Errorf("read report: %w", err)
	}

	xml := buildJUnitXML(r)

	outputPath := filepath.Join(dir, JUnitFileName)
	if err := os.WriteFile(outputPath, []byte(xml), 0o644); err != nil {
		return fmt.Errorf("write junit xml: %w", err)
	}
	return nil
}

func buildJUnitXML(r *Report) string {
	var totalTime float64
	if r.EndTime != nil {
		totalTime = r.EndTime.Sub(r.StartTime).Seconds()
	}
	suite := "cartpilot"
	if r.Summary.Flow != "" {
		suite += "." + r.Summary.Flow
	}

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(fmt.Sprintf(
		`<testsuites tests="%d" failures="%d" skipped="%d" errors="0" time="%.3f">`+"\n",
		r.Summary.Total, r.Summary.Failed, r.Summary.Skipped, totalTime,
	))
	b.WriteString(fmt.Sprintf(
		`  <testsuite name="%s" tests="%d" failures="%d" skipped="%d" errors="0" time="%.3f" timestamp="%s">`+"\n",
		xmlEscape(suite), r.Summary.Total, r.Summary.Failed, r.Summary.Skipped, totalTime,
		r.StartTime.Format(time.RFC3339),
	))

	b.WriteString("    <properties>\n")
	writeProperty(&b, "    ", "session", r.Session)
	writeProperty(&b, "    ", "device.id", r.Device.ID)
	writeProperty(&b, "    ", "device.name", r.Device.Name)
	writeProperty(&b, "    ", "app.id", r.App.ID)
	writeProperty(&b, "    ", "requested", fmt.Sprint(r.Summary.Requested))
	writeProperty(&b, "    ", "succeeded", fmt.Sprint(r.Summary.Succeeded))
	b.WriteString("    </properties>\n")

	for i := range r.Attempts {
		b.WriteString(buildTestCase(&r.Attempts[i], suite))
	}

	b.WriteString("  </testsuite>\n")
	b.WriteString("</testsuites>\n")
	return b.String()
}

func buildTestCase(a *Attempt, suite string) string {
	var tcTime float64
	if a.Duration != nil {
		tcTime = float64(*a.Duration) / 1000.0
	}
	name := a.Product
	if name == "" {
		name = fmt.Sprintf("attempt-%03d", a.Index)
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf(
		`    <testcase name="%s" classname="%s" time="%.3f">`+"\n",
		xmlEscape(name), xmlEscape(suite), tcTime,
	))

	b.WriteString("      <properties>\n")
	writeProperty(&b, "      ", "attempt.id", a.ID)
	if a.Price > 0 {
		writeProperty(&b, "      ", "price", fmt.Sprintf("%.2f", a.Price))
	}
	for _, k := range sortedKeys(a.Details) {
		writeProperty(&b, "      ", k, a.Details[k])
	}
	b.WriteString("      </properties>\n")

	msg := ""
	if a.Error != nil {
		msg = *a.Error
	}
	switch a.Status {
	case StatusFailed:
		b.WriteString(fmt.Sprintf(
			`      <failure message="%s" type="%s">%s</failure>`+"\n",
			xmlEscape(msg), mapReasonToFailure(a.Reason), xmlEscape(string(a.Reason)),
		))
	case StatusSkipped:
		b.WriteString(fmt.Sprintf(`      <skipped message="%s"/>`+"\n", xmlEscape(string(a.Reason))))
	}

	b.WriteString("    </testcase>\n")
	return b.String()
}

func writeProperty(b *strings.Builder, indent, name, value string) {
	if value == "" {
		return
	}
	b.WriteString(fmt.Sprintf(`%s  <property name="%s" value="%s"/>`+"\n", indent, xmlEscape(name), xmlEscape(value)))
}

// mapReasonToFailure maps an attempt reason to a JUnit failure type.
func mapReasonToFailure(r Reason) string {
	switch r {
	case ReasonNavigation:
		return "NavigationError"
	case ReasonVerify:
		return "VerificationError"
	case ReasonVariant:
		return "VariantError"
	case ReasonForbidden, ReasonPermission:
		return "PolicyRejection"
	case ReasonPanic:
		return "RuntimeError"
	case ReasonInterrupted, ReasonStopped:
		return "Interrupted"
	default:
		return "AttemptError"
	}
}

// xmlEscape escapes special XML characters in a string.
func xmlEscape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "'", "&apos;")
	return s
}
