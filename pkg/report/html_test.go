package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGenerateHTML(t *testing.T) {
	dir := t.TempDir()
	w := newTestWriter(t, dir)
	w.Start(1)
	id := w.Begin("<script>x</script>", 0.9)
	w.Detail(id, "courier", "极兔速递")
	w.Finish(id, StatusPassed, ReasonNone, "")

	out := filepath.Join(dir, "custom.html")
	if err := GenerateHTML(dir, HTMLConfig{OutputPath: out, Title: "run"}); err != nil {
		t.Fatalf("GenerateHTML: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read html: %v", err)
	}
	html := string(data)

	for _, want := range []string{"<title>run</title>", "succeeded 1 of 1 requested", "¥0.90", "courier=极兔速递", "&lt;script&gt;"} {
		if !strings.Contains(html, want) {
			t.Errorf("html missing %q", want)
		}
	}
	if strings.Contains(html, "<script>x</script>") {
		t.Error("product text must be escaped")
	}
}

func TestFormatDuration(t *testing.T) {
	ms := func(v int64) *int64 { return &v }
	tests := []struct {
		in   *int64
		want string
	}{
		{nil, "-"},
		{ms(250), "250ms"},
		{ms(1500), "1.5s"},
		{ms(125000), "2m 5s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.want {
			t.Errorf("formatDuration = %q, want %q", got, tt.want)
		}
	}
}
