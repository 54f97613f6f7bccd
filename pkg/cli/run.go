package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/cartpilot/pkg/executor"
	"github.com/devicelab-dev/cartpilot/pkg/flow"
	"github.com/devicelab-dev/cartpilot/pkg/logger"
	"github.com/devicelab-dev/cartpilot/pkg/report"
	"github.com/devicelab-dev/cartpilot/pkg/session"
	"github.com/devicelab-dev/cartpilot/pkg/store"
)

// heartbeat is how often a running session logs its state.
const heartbeat = 30 * time.Second

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "Run the jobs of one or more job files",
	ArgsUsage: "<jobs.yaml>...",
	Description: `Each job file holds one or more YAML documents, one job each:

  flow: purchase
  keyword: 数据线
  count: 2
  priceRange: {min: 0.5, max: 1}
  ---
  flow: delivery

Jobs run in order on one device, or from a shared queue when several
devices are given with --device. SIGINT or SIGTERM stops the session at the
next safe point.`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "report-dir",
			Usage:   "Report directory (default <storage-dir>/reports/<timestamp>)",
			EnvVars: []string{"CARTPILOT_REPORT_DIR"},
		},
		&cli.BoolFlag{
			Name:  "force-reset",
			Usage: "Clear stale session state left by a crashed run before starting",
		},
		&cli.BoolFlag{
			Name:  "no-html",
			Usage: "Skip the HTML report",
		},
	},
	Action: runJobs,
}

func runJobs(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one job file is required")
	}
	var reqs []flow.Request
	for _, path := range c.Args().Slice() {
		jobs, err := flow.Load(path)
		if err != nil {
			return err
		}
		reqs = append(reqs, jobs...)
	}

	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()
	e.watch()

	ctrl := session.New(logger.For("session"))
	if c.Bool("force-reset") {
		ctrl.ForceReset()
	} else {
		ctrl.Reset()
	}
	log := e.log.With().Str("session", ctrl.ID()).Logger()

	reportDir := c.String("report-dir")
	if reportDir == "" {
		reportDir = filepath.Join(e.cfg.Storage.Dir, "reports", time.Now().Format("20060102-150405"))
	}

	stopSignals := watchSignals(ctrl, log)
	defer stopSignals()
	ctrl.Every("heartbeat", heartbeat, func() {
		s := ctrl.State()
		log.Debug().Int("running", s.RunningScriptCount).Strs("threads", s.ActiveThreads).Msg("session alive")
	})
	defer ctrl.Untrack("heartbeat")

	startBackendCheck(e.cfg.API.OrderCheckURL)

	ctx := context.Background()
	workers, err := openWorkers(ctx, e, ctrl, reportDir, log)
	if err != nil {
		return err
	}

	log.Info().Int("jobs", len(reqs)).Int("devices", len(workers)).Str("reports", reportDir).Msg("session started")
	fmt.Printf("\nRunning %d job(s) on %d device(s)\n\n", len(reqs), len(workers))
	res, runErr := executor.NewFleet(workers, os.Stdout).Run(ctx, reqs)

	if res != nil {
		printFleetSummary(res)
	}
	if err := finalizeReports(reportDir, !c.Bool("no-html"), log); err != nil {
		log.Warn().Err(err).Msg("report generation incomplete")
	}
	fmt.Printf("Reports: %s\n", reportDir)
	printBackendNotice()

	switch {
	case errors.Is(runErr, session.ErrStopped):
		return cli.Exit("session stopped", 130)
	case runErr != nil:
		return runErr
	case res.Status != report.StatusPassed:
		return cli.Exit("", 1)
	}
	return nil
}

// openWorkers connects every configured device and builds its runner. On
// failure the devices already connected are released.
func openWorkers(ctx context.Context, e *env, ctrl *session.Controller, reportDir string, log zerolog.Logger) ([]executor.Worker, error) {
	serials := e.serials()
	st := store.Open(e.cfg.Storage.Dir)

	var workers []executor.Worker
	for _, serial := range serials {
		hostPort := 0
		if len(serials) == 1 {
			hostPort = e.cfg.Device.HostPort
		}
		cn, err := connect(ctx, e.cfg, serial, hostPort, log)
		if err != nil {
			for _, w := range workers {
				w.Cleanup()
			}
			return nil, err
		}
		dir := reportDir
		if len(serials) > 1 {
			dir = filepath.Join(reportDir, strings.NewReplacer(":", "_", "/", "_").Replace(cn.info.ID))
		}
		runner := executor.New(executor.Options{
			Device:     cn.driver,
			Live:       e.live,
			Session:    ctrl,
			Store:      st,
			ReportDir:  dir,
			DeviceInfo: cn.info,
			Logger:     logger.For("executor").With().Str("device", cn.info.ID).Logger(),
		})
		workers = append(workers, executor.Worker{Device: cn.info, Runner: runner, Cleanup: cn.close})
	}
	return workers, nil
}

// watchSignals turns SIGINT and SIGTERM into a stop request. The returned
// func releases the handler.
func watchSignals(ctrl *session.Controller, log zerolog.Logger) func() {
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	ctrl.Go("signals", func(ctx context.Context) error {
		select {
		case s := <-sigs:
			log.Warn().Str("signal", s.String()).Msg("stopping session")
			fmt.Println("\nStopping at the next safe point...")
			ctrl.RequestStop()
		case <-ctx.Done():
		case <-done:
		}
		return nil
	})
	return func() {
		signal.Stop(sigs)
		close(done)
		_ = ctrl.Wait()
	}
}

func printFleetSummary(res *executor.FleetResult) {
	fmt.Println()
	fmt.Println(strings.Repeat("─", 60))
	for _, j := range res.Jobs {
		mark := "✓"
		if j.Err != nil || j.Summary.Succeeded < j.Summary.Requested {
			mark = "✗"
		}
		fmt.Printf("  %s %-24s %d/%d succeeded, %d attempt(s), %d skipped\n",
			mark, j.Job, j.Summary.Succeeded, j.Summary.Requested, j.Summary.Total, j.Summary.Skipped)
	}
	fmt.Println(strings.Repeat("─", 60))
	fmt.Printf("  %s: %d of %d requested in %s\n\n", strings.ToUpper(string(res.Status)), res.Succeeded, res.Requested,
		(time.Duration(res.Duration) * time.Millisecond).Round(time.Second))
}

// finalizeReports writes the JUnit and HTML views next to every report.json
// under root.
func finalizeReports(root string, html bool, log zerolog.Logger) error {
	var errs []error
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != report.FileName {
			return nil
		}
		dir := filepath.Dir(path)
		if err := report.GenerateJUnit(dir); err != nil {
			errs = append(errs, err)
		}
		if html {
			if err := report.GenerateHTML(dir, report.HTMLConfig{}); err != nil {
				errs = append(errs, err)
			}
		}
		log.Debug().Str("dir", dir).Msg("report views written")
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
