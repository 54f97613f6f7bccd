// Package session owns the cooperative cancellation state of an
// orchestration session. One Controller is created by the host and passed
// to every long-running routine; nothing in cartpilot keeps global stop
// state.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// PollSlice is the granularity at which Sleep observes a stop request.
const PollSlice = 100 * time.Millisecond

// ErrStopped is returned by operations interrupted by a stop request.
var ErrStopped = errors.New("session stopped")

// State is a point-in-time view of the controller.
type State struct {
	ID                 string   `json:"id"`
	ShouldStop         bool     `json:"shouldStop"`
	RunningScriptCount int      `json:"runningScriptCount"`
	ActiveThreads      []string `json:"activeThreads"`
	ActiveIntervals    []string `json:"activeIntervals"`
}

// Controller is the injectable stop/lifecycle signal.
//
// The screen is a single shared resource. A Controller does not serialize
// access to it: hosts must run at most one orchestrator at a time.
type Controller struct {
	log zerolog.Logger

	stop    atomic.Bool
	running atomic.Int32

	mu        sync.Mutex
	id        string
	ctx       context.Context
	cancel    context.CancelFunc
	group     *errgroup.Group
	threads   map[string]context.CancelFunc
	intervals map[string]context.CancelFunc
}

// New returns a controller in the reset state.
func New(log zerolog.Logger) *Controller {
	c := &Controller{log: log}
	c.resetLocked()
	return c
}

func (c *Controller) resetLocked() {
	c.id = uuid.New().String()
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.group = &errgroup.Group{}
	c.threads = make(map[string]context.CancelFunc)
	c.intervals = make(map[string]context.CancelFunc)
}

// ID identifies the current session generation. It changes on Reset.
func (c *Controller) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

// Begin marks a script as running and returns a context that is cancelled
// on RequestStop. The returned func must be called when the script ends.
func (c *Controller) Begin(parent context.Context) (context.Context, func()) {
	c.mu.Lock()
	sessionCtx := c.ctx
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(parent)
	stopWatch := context.AfterFunc(sessionCtx, cancel)
	c.running.Add(1)

	var once sync.Once
	return ctx, func() {
		once.Do(func() {
			stopWatch()
			cancel()
			for {
				n := c.running.Load()
				if n <= 0 || c.running.CompareAndSwap(n, n-1) {
					break
				}
			}
		})
	}
}

// StopRequested reports whether a stop has been requested.
func (c *Controller) StopRequested() bool {
	return c.stop.Load()
}

// Check returns ErrStopped after a stop request or when ctx is done.
func (c *Controller) Check(ctx context.Context) error {
	if c.stop.Load() {
		return ErrStopped
	}
	if ctx.Err() != nil {
		return ErrStopped
	}
	return nil
}

// RequestStop sets the stop flag and cancels every registered task. Safe to
// call repeatedly.
func (c *Controller) RequestStop() {
	if c.stop.Swap(true) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.log.Info().Str("session", c.id).Int("threads", len(c.threads)).Int("intervals", len(c.intervals)).Msg("stop requested")
	c.cancel()
	for name, cancel := range c.threads {
		cancel()
		delete(c.threads, name)
	}
	for name, cancel := range c.intervals {
		cancel()
		delete(c.intervals, name)
	}
}

// Reset clears the stop flag and registries so a new session can start.
// Running scripts keep their count; use ForceReset after a crash.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancel()
	c.resetLocked()
	c.stop.Store(false)
}

// ForceReset is Reset plus zeroing the running-script counter.
func (c *Controller) ForceReset() {
	c.Reset()
	c.running.Store(0)
	c.log.Info().Str("session", c.ID()).Msg("session state force reset")
}

// Go runs fn as a registered background thread. Its context is cancelled on
// RequestStop. Wait collects the first error.
func (c *Controller) Go(name string, fn func(ctx context.Context) error) {
	c.mu.Lock()
	ctx, cancel := context.WithCancel(c.ctx)
	c.threads[name] = cancel
	g := c.group
	c.mu.Unlock()

	g.Go(func() error {
		defer func() {
			c.mu.Lock()
			delete(c.threads, name)
			c.mu.Unlock()
			cancel()
		}()
		return fn(ctx)
	})
}

// Wait blocks until every thread started with Go has returned.
func (c *Controller) Wait() error {
	c.mu.Lock()
	g := c.group
	c.mu.Unlock()
	return g.Wait()
}

// Every runs fn on a ticker until stopped or Untrack(name) is called.
// Registering an existing name replaces the previous interval.
func (c *Controller) Every(name string, d time.Duration, fn func()) {
	c.mu.Lock()
	if old, ok := c.intervals[name]; ok {
		old()
	}
	ctx, cancel := context.WithCancel(c.ctx)
	c.intervals[name] = cancel
	c.mu.Unlock()

	go func() {
		t := time.NewTicker(d)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				fn()
			}
		}
	}()
}

// Untrack stops the named interval.
func (c *Controller) Untrack(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cancel, ok := c.intervals[name]; ok {
		cancel()
		delete(c.intervals, name)
	}
}

// State returns a snapshot for diagnostics.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := State{
		ID:                 c.id,
		ShouldStop:         c.stop.Load(),
		RunningScriptCount: int(c.running.Load()),
	}
	for name := range c.threads {
		s.ActiveThreads = append(s.ActiveThreads, name)
	}
	for name := range c.intervals {
		s.ActiveIntervals = append(s.ActiveIntervals, name)
	}
	return s
}
