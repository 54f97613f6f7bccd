// Package executor runs cartpilot jobs: it wires the page classifier,
// navigator, scanner, variant engine and gate to one device and drives one
// of the four flow orchestrators.
package executor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog"

	"github.com/devicelab-dev/cartpilot/pkg/clipboard"
	"github.com/devicelab-dev/cartpilot/pkg/config"
	"github.com/devicelab-dev/cartpilot/pkg/core"
	"github.com/devicelab-dev/cartpilot/pkg/flow"
	"github.com/devicelab-dev/cartpilot/pkg/gate"
	"github.com/devicelab-dev/cartpilot/pkg/nav"
	"github.com/devicelab-dev/cartpilot/pkg/page"
	"github.com/devicelab-dev/cartpilot/pkg/permission"
	"github.com/devicelab-dev/cartpilot/pkg/report"
	"github.com/devicelab-dev/cartpilot/pkg/scan"
	"github.com/devicelab-dev/cartpilot/pkg/session"
	"github.com/devicelab-dev/cartpilot/pkg/store"
	"github.com/devicelab-dev/cartpilot/pkg/variant"
)

// errNavigation ends a run whose working page stays unreachable after the
// return-home recovery.
var errNavigation = errors.New("working page unreachable")

// Options wires a Runner.
type Options struct {
	Device  core.Device
	Live    *config.Live
	Session *session.Controller
	Store   *store.Store
	// Permission defaults to a client built from the api config section.
	Permission *permission.Client
	// ReportDir receives one sub-directory per job. Empty keeps reports in
	// memory.
	ReportDir  string
	DeviceInfo report.Device
	Logger     zerolog.Logger
}

// Runner executes jobs on one device. Jobs run one at a time; a Runner must
// not be shared between goroutines.
type Runner struct {
	dev     core.Device
	live    *config.Live
	ctrl    *session.Controller
	store   *store.Store
	perm    *permission.Client
	cls     *page.Classifier
	nav     *nav.Navigator
	scanner *scan.Scanner
	engine  *variant.Engine
	gate    *gate.Gate
	clip    *clipboard.Snapshotter
	history *scan.History

	reportDir  string
	deviceInfo report.Device
	jobs       int
	log        zerolog.Logger
}

// New builds a runner and its components.
func New(opts Options) *Runner {
	cfg := opts.Live.Get()
	log := opts.Logger
	ctrl := opts.Session

	cls := page.NewClassifier(opts.Device, opts.Live, ctrl, log.With().Str("module", "page").Logger())
	launcher := nav.NewLauncher(opts.Device, opts.Live, ctrl, log.With().Str("module", "launcher").Logger())
	scanner := scan.NewScanner(opts.Device, cls, opts.Live, ctrl, log.With().Str("module", "scan").Logger())

	perm := opts.Permission
	if perm == nil {
		perm = permission.NewClient(permission.Options{
			URL:        cfg.API.OrderCheckURL,
			Timeout:    cfg.API.Timeout.D(),
			MaxRetries: cfg.API.MaxRetries,
			RetryDelay: cfg.API.RetryDelay.D(),
		}, ctrl, log.With().Str("module", "permission").Logger())
	}
	st := opts.Store
	if st == nil {
		st = store.Open(cfg.Storage.Dir)
	}

	return &Runner{
		dev:        opts.Device,
		live:       opts.Live,
		ctrl:       ctrl,
		store:      st,
		perm:       perm,
		cls:        cls,
		nav:        nav.NewNavigator(opts.Device, cls, launcher, opts.Live, ctrl, log.With().Str("module", "nav").Logger()),
		scanner:    scanner,
		engine:     variant.NewEngine(opts.Device, scanner, opts.Live, ctrl, log.With().Str("module", "variant").Logger()),
		gate:       gate.New(opts.Device, opts.Live, log.With().Str("module", "gate").Logger()),
		clip:       clipboard.NewSnapshotter(opts.Device, ctrl, cfg.Timing.AfterClick.D()),
		history:    scan.NewHistory(cfg.Scan.HistorySize, cfg.Scan.DedupDistancePx, true),
		reportDir:  opts.ReportDir,
		deviceInfo: opts.DeviceInfo,
		log:        log,
	}
}

// Run executes one job and returns its summary. Navigation failures and
// rejected products are outcomes recorded in the summary, not errors; an
// error is returned for an invalid request, a stop request, or a report
// that could not be written.
func (r *Runner) Run(ctx context.Context, req flow.Request) (*report.Summary, error) {
	if err := req.Normalize(); err != nil {
		return nil, err
	}
	ctx, done := r.ctrl.Begin(ctx)
	defer done()

	cfg := r.live.Get()
	r.jobs++
	r.history.Reset()
	log := r.log.With().Str("session", r.ctrl.ID()).Str("flow", req.Kind.String()).Str("job", req.Label()).Logger()
	w := report.NewWriter(r.jobDir(req), &report.Report{
		Session: r.ctrl.ID(),
		Device:  r.deviceInfo,
		App:     report.App{ID: cfg.App.Package, Name: cfg.App.DisplayName},
		Summary: report.Summary{Flow: req.Kind.String()},
	})
	w.Start(req.Count)
	log.Info().Int("count", req.Count).Str("range", req.PriceRange.String()).Msg("job started")

	j := &job{Runner: r, req: req, w: w, log: log}
	if req.Kind == flow.Purchase {
		j.user = r.orderUser(cfg, log)
	}
	var err error
	if !r.nav.EnsureRunning(ctx) {
		log.Warn().Msg("app not confirmed in foreground")
	}
	switch req.Kind {
	case flow.Purchase:
		err = j.purchase(ctx)
	case flow.Favorite:
		err = j.favorite(ctx)
	case flow.FavoriteSettlement:
		err = j.settle(ctx)
	case flow.Delivery:
		err = j.deliveries(ctx)
	default:
		err = fmt.Errorf("%w: %v", flow.ErrUnknownKind, req.Kind)
	}

	sum, werr := w.End()
	log.Info().Int("succeeded", sum.Succeeded).Int("requested", sum.Requested).Int("attempts", sum.Total).
		Msgf("succeeded %d of %d requested", sum.Succeeded, sum.Requested)

	switch {
	case errors.Is(err, session.ErrStopped):
		return &sum, session.ErrStopped
	case errors.Is(err, errNavigation):
		log.Error().Err(err).Msg("job abandoned")
	case err != nil:
		log.Error().Err(err).Msg("job failed")
	}
	if werr != nil {
		return &sum, werr
	}
	return &sum, nil
}

func (r *Runner) jobDir(req flow.Request) string {
	if r.reportDir == "" {
		return ""
	}
	name := strings.ReplaceAll(strings.ToLower(req.Label()), " ", "-")
	return filepath.Join(r.reportDir, fmt.Sprintf("%02d-%s", r.jobs, name))
}

// job is the state of one Run.
type job struct {
	*Runner
	req flow.Request
	w   *report.Writer
	log zerolog.Logger
	// user is the name sent with order checks, resolved at job start.
	user string
}

// outcome of one orchestrator iteration.
type outcome int

const (
	succeeded outcome = iota
	rejected
	exhausted
)

// attempt is the report entry for one product, opened lazily once a
// candidate is known.
type attempt struct {
	w    *report.Writer
	id   string
	done bool
}

func (a *attempt) open(product string, p float64) {
	if a.id == "" {
		a.id = a.w.Begin(product, p)
		return
	}
	a.w.Rename(a.id, product, p)
}

func (a *attempt) detail(k, v string) {
	if a.id != "" {
		a.w.Detail(a.id, k, v)
	}
}

func (a *attempt) finish(status report.Status, reason report.Reason, msg string) {
	if a.id == "" || a.done {
		return
	}
	a.done = true
	a.w.Finish(a.id, status, reason, msg)
}

func (a *attempt) pass()                               { a.finish(report.StatusPassed, report.ReasonNone, "") }
func (a *attempt) fail(reason report.Reason, m string) { a.finish(report.StatusFailed, reason, m) }
func (a *attempt) skip(reason report.Reason, m string) { a.finish(report.StatusSkipped, reason, m) }

// loop is the shared orchestrator loop: stop check, ensure the working
// page, then one guarded iteration, until count products succeeded or the
// attempt budget is spent. An unreachable working page gets one
// return-home recovery before the run is abandoned.
func (j *job) loop(ctx context.Context, count int, ensure func(context.Context) bool, iterate func(context.Context, *attempt) (outcome, error)) error {
	got := 0
	for tries := 0; (count <= 0 || got < count) && tries < j.req.MaxAttempts; tries++ {
		if err := j.ctrl.Check(ctx); err != nil {
			return err
		}
		if !ensure(ctx) {
			j.log.Warn().Msg("working page lost, returning home")
			if !j.nav.GoHome(ctx) && !j.nav.NavigateTo(ctx, page.Home) {
				return errNavigation
			}
			if !ensure(ctx) {
				return errNavigation
			}
		}

		a := &attempt{w: j.w}
		out, err := j.guard(ctx, a, iterate)
		if errors.Is(err, session.ErrStopped) || j.ctrl.StopRequested() {
			a.fail(report.ReasonStopped, "stopped")
			return session.ErrStopped
		}
		if err != nil {
			j.log.Error().Err(err).Int("iteration", tries+1).Msg("iteration failed")
			a.fail(report.ReasonError, err.Error())
			continue
		}
		switch out {
		case succeeded:
			a.pass()
			got++
			j.log.Info().Int("succeeded", got).Int("requested", count).Msg("product done")
		case exhausted:
			a.fail(report.ReasonNoCandidate, "no more candidates")
			j.log.Info().Msg("no more candidates")
			return nil
		default:
			a.fail(report.ReasonError, "rejected")
		}
	}
	return nil
}

// guard runs one iteration, turning a panic into an error.
func (j *job) guard(ctx context.Context, a *attempt, iterate func(context.Context, *attempt) (outcome, error)) (out outcome, err error) {
	defer func() {
		if p := recover(); p != nil {
			j.log.Error().Interface("panic", p).Str("stack", string(debug.Stack())).Msg("iteration panicked")
			a.fail(report.ReasonPanic, fmt.Sprint(p))
			out, err = rejected, nil
		}
	}()
	return iterate(ctx, a)
}
