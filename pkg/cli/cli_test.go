package cli

import (
	"flag"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/cartpilot/pkg/config"
	"github.com/devicelab-dev/cartpilot/pkg/report"
)

func newTestContext(t *testing.T, args ...string) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet("cartpilot", flag.ContinueOnError)
	for _, f := range GlobalFlags {
		if err := f.Apply(set); err != nil {
			t.Fatalf("apply flag: %v", err)
		}
	}
	if err := set.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return cli.NewContext(cli.NewApp(), set, nil)
}

func TestApplyFlags(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "info"
	c := newTestContext(t,
		"--device", "emulator-5554,emulator-5556",
		"--storage-dir", "/tmp/cp",
		"--order-check-url", "http://backend/check",
		"--verbose",
		"--no-ansi",
	)
	applyFlags(c, cfg)

	if cfg.Device.Serial != "emulator-5554,emulator-5556" {
		t.Errorf("Serial = %q", cfg.Device.Serial)
	}
	if cfg.Storage.Dir != "/tmp/cp" {
		t.Errorf("Storage.Dir = %q", cfg.Storage.Dir)
	}
	if cfg.API.OrderCheckURL != "http://backend/check" {
		t.Errorf("OrderCheckURL = %q", cfg.API.OrderCheckURL)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	if !cfg.Log.NoColor {
		t.Error("NoColor not set")
	}
}

func TestApplyFlagsLeavesUnsetValues(t *testing.T) {
	cfg := config.Default()
	want := *cfg
	applyFlags(newTestContext(t), cfg)
	if !reflect.DeepEqual(*cfg, want) {
		t.Error("config changed without flags")
	}
}

func TestSerials(t *testing.T) {
	tests := []struct {
		name     string
		setting  string
		expected []string
	}{
		{"empty", "", []string{""}},
		{"single", "emulator-5554", []string{"emulator-5554"}},
		{"list with spaces", "emulator-5554, R58M123 ,", []string{"emulator-5554", "R58M123"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Device.Serial = tt.setting
			got := (&env{cfg: cfg}).serials()
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("serials() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestFinalizeReports(t *testing.T) {
	root := t.TempDir()
	for _, dev := range []string{"emulator-5554", "emulator-5556"} {
		dir := filepath.Join(root, dev, "01-purchase")
		w := report.NewWriter(dir, &report.Report{Session: "s1", Summary: report.Summary{Flow: "purchase"}})
		w.Start(1)
		id := w.Begin("数据线", 0.9)
		w.Finish(id, report.StatusPassed, report.ReasonNone, "")
		if _, err := w.End(); err != nil {
			t.Fatalf("End() error = %v", err)
		}
	}

	if err := finalizeReports(root, true, zerolog.Nop()); err != nil {
		t.Fatalf("finalizeReports() error = %v", err)
	}
	for _, dev := range []string{"emulator-5554", "emulator-5556"} {
		dir := filepath.Join(root, dev, "01-purchase")
		for _, name := range []string{report.JUnitFileName, "report.html"} {
			if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
				t.Errorf("%s/%s missing: %v", dev, name, err)
			}
		}
	}
}

func TestFinalizeReportsMissingDir(t *testing.T) {
	if err := finalizeReports(filepath.Join(t.TempDir(), "absent"), true, zerolog.Nop()); err != nil {
		t.Errorf("finalizeReports() error = %v, want nil", err)
	}
}

func waitNotice(t *testing.T) string {
	t.Helper()
	select {
	case msg := <-backendNotice:
		return msg
	case <-time.After(2 * checkTimeout):
		t.Fatal("backend check did not finish")
		return ""
	}
}

func TestBackendCheck(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		startBackendCheck("")
		if msg := waitNotice(t); msg != "" {
			t.Errorf("notice = %q, want empty", msg)
		}
	})

	t.Run("reachable with any status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodHead {
				t.Errorf("method = %s, want HEAD", r.Method)
			}
			w.WriteHeader(http.StatusMethodNotAllowed)
		}))
		defer server.Close()

		startBackendCheck(server.URL)
		if msg := waitNotice(t); msg != "" {
			t.Errorf("notice = %q, want empty", msg)
		}
	})

	t.Run("unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		startBackendCheck(url)
		if msg := waitNotice(t); !strings.Contains(msg, "unreachable") {
			t.Errorf("notice = %q, want unreachable warning", msg)
		}
	})
}
