package report

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// HTMLConfig contains configuration for HTML report generation.
type HTMLConfig struct {
	OutputPath string // default: <dir>/report.html
	Title      string // default: "cartpilot session"
}

// HTMLData is the template input.
type HTMLData struct {
	Title       string
	GeneratedAt string
	Report      *Report
	Attempts    []AttemptHTMLData
}

// AttemptHTMLData is one row of the attempt table.
type AttemptHTMLData struct {
	Attempt
	StatusClass string
	DurationStr string
	PriceStr    string
	Message     string
	DetailKeys  []string
}

// GenerateHTML renders report.json from dir as a static HTML page.
func GenerateHTML(dir string, cfg HTMLConfig) error {
	r, err := ReadReport(dir)
	if err != nil {
		return fmt.Errorf("read report: %w", err)
	}
	if cfg.Title == "" {
		cfg.Title = "cartpilot session"
	}
	if cfg.OutputPath == "" {
		cfg.OutputPath = filepath.Join(dir, "report.html")
	}

	html, err := renderHTML(buildHTMLData(r, cfg))
	if err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	if err := os.WriteFile(cfg.OutputPath, []byte(html), 0o644); err != nil {
		return fmt.Errorf("write html: %w", err)
	}
	return nil
}

func buildHTMLData(r *Report, cfg HTMLConfig) HTMLData {
	rows := make([]AttemptHTMLData, len(r.Attempts))
	for i, a := range r.Attempts {
		row := AttemptHTMLData{
			Attempt:     a,
			StatusClass: string(a.Status),
			DurationStr: formatDuration(a.Duration),
			PriceStr:    "-",
			DetailKeys:  sortedKeys(a.Details),
		}
		if a.Price > 0 {
			row.PriceStr = fmt.Sprintf("¥%.2f", a.Price)
		}
		if a.Error != nil {
			row.Message = *a.Error
		}
		rows[i] = row
	}
	return HTMLData{
		Title:       cfg.Title,
		GeneratedAt: time.Now().Format("2006-01-02 15:04:05"),
		Report:      r,
		Attempts:    rows,
	}
}

func formatDuration(ms *int64) string {
	if ms == nil {
		return "-"
	}
	d := time.Duration(*ms) * time.Millisecond
	if d < time.Second {
		return fmt.Sprintf("%dms", *ms)
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func renderHTML(data HTMLData) (string, error) {
	tmpl, err := template.New("report").Parse(htmlTemplate)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="zh-CN">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        :root {
            --bg-primary: #1a1a2e;
            --bg-secondary: #16213e;
            --text-primary: #eee;
            --text-secondary: #aaa;
            --border-color: #333;
            --passed: #22c55e;
            --failed: #ef4444;
            --skipped: #eab308;
            --running: #3b82f6;
        }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            background: var(--bg-primary);
            color: var(--text-primary);
            margin: 0;
        }
        .summary-bar {
            background: var(--bg-secondary);
            padding: 16px 24px;
            display: flex;
            gap: 24px;
            border-bottom: 1px solid var(--border-color);
        }
        .summary-meta { margin-left: auto; font-size: 12px; color: var(--text-secondary); }
        table { width: 100%; border-collapse: collapse; font-size: 14px; }
        th, td { padding: 8px 16px; border-bottom: 1px solid var(--border-color); text-align: left; }
        th { color: var(--text-secondary); font-weight: 500; }
        .status { width: 10px; height: 10px; border-radius: 50%; display: inline-block; }
        .status.passed { background: var(--passed); }
        .status.failed { background: var(--failed); }
        .status.skipped { background: var(--skipped); }
        .status.running, .status.pending { background: var(--running); }
        .details { color: var(--text-secondary); font-size: 12px; }
    </style>
</head>
<body>
    <div class="summary-bar">
        <strong>{{.Title}}</strong>
        <span>{{.Report.Summary.Flow}}</span>
        <span>succeeded {{.Report.Summary.Succeeded}} of {{.Report.Summary.Requested}} requested</span>
        <span>passed {{.Report.Summary.Passed}}</span>
        <span>failed {{.Report.Summary.Failed}}</span>
        <span>skipped {{.Report.Summary.Skipped}}</span>
        <span class="summary-meta">{{.Report.Device.ID}} &middot; {{.Report.Session}} &middot; {{.GeneratedAt}}</span>
    </div>
    <table>
        <thead>
            <tr><th></th><th>#</th><th>Product</th><th>Price</th><th>Reason</th><th>Duration</th><th>Details</th></tr>
        </thead>
        <tbody>
        {{range .Attempts}}
            <tr>
                <td><span class="status {{.StatusClass}}" title="{{.Status}}"></span></td>
                <td>{{.Index}}</td>
                <td>{{.Product}}</td>
                <td>{{.PriceStr}}</td>
                <td>{{.Reason}}{{if .Message}}: {{.Message}}{{end}}</td>
                <td>{{.DurationStr}}</td>
                <td class="details">{{$d := .Details}}{{range .DetailKeys}}{{.}}={{index $d .}} {{end}}</td>
            </tr>
        {{end}}
        </tbody>
    </table>
</body>
</html>
`
