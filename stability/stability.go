// Package stability decides when a page has stopped actively changing,
// within a hard time budget. It combines a network-idle wait with an
// injected MutationObserver whose last-mutation timestamp is polled from
// the Go side. The observer is torn down on every exit path so it never
// outlives the call on a reused page.
package stability

import (
	"context"
	_ "embed"
	"log/slog"
	"time"

	"github.com/hazyhaar/webtext/page"
)

//go:embed observe.js
var observeJS string

// quietJS returns the age in ms of the last recorded mutation, or -1 when
// the observer is not installed.
const quietJS = `() => {
	if (window.__wtLastMutation === undefined) return -1;
	return performance.now() - window.__wtLastMutation;
}`

const teardownJS = `() => {
	if (window.__wtObserver) {
		window.__wtObserver.disconnect();
		delete window.__wtObserver;
		delete window.__wtLastMutation;
	}
	return true;
}`

// Report is the outcome of one stability wait.
type Report struct {
	// Achieved is true when the DOM went quiet for the configured period
	// before the budget ran out.
	Achieved bool
	// Elapsed is the total time spent waiting.
	Elapsed time.Duration
}

// Config tunes the monitor. Zero values get defaults matching the service's
// SPA profile.
type Config struct {
	// NetworkIdleTimeout bounds the initial network-idle wait. A timeout
	// here is non-fatal and simply advances to mutation monitoring.
	NetworkIdleTimeout time.Duration

	// QuietPeriod is how long the DOM must stay mutation-free.
	QuietPeriod time.Duration

	// TotalBudget bounds the whole call, network idle included.
	TotalBudget time.Duration

	// PollInterval between quiet-period probes.
	PollInterval time.Duration

	// DegradedSleep is the fixed wait used when the observer cannot be
	// installed (e.g. the page navigated away mid-call).
	DegradedSleep time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.NetworkIdleTimeout <= 0 {
		c.NetworkIdleTimeout = 30 * time.Second
	}
	if c.QuietPeriod <= 0 {
		c.QuietPeriod = 500 * time.Millisecond
	}
	if c.TotalBudget <= 0 {
		c.TotalBudget = 35 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 100 * time.Millisecond
	}
	if c.DegradedSleep <= 0 {
		c.DegradedSleep = 3 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Monitor performs stability waits. Safe for concurrent use; all state is
// per-call.
type Monitor struct {
	cfg Config
}

// New creates a Monitor.
func New(cfg Config) *Monitor {
	cfg.defaults()
	return &Monitor{cfg: cfg}
}

// Await blocks until the page settles or the budget elapses. It returns a
// Report in both cases; the only error it surfaces is a page-handle fault.
func (m *Monitor) Await(ctx context.Context, h page.Handle) (Report, error) {
	log := m.cfg.Logger
	start := time.Now()

	// Clamp the budget to the caller's remaining allowance so a stage
	// never overruns the overall request timeout.
	budget := m.cfg.TotalBudget
	if d, ok := ctx.Deadline(); ok {
		if remaining := time.Until(d); remaining < budget {
			budget = remaining
		}
	}
	deadline := start.Add(budget)

	// Step 1: network idle, clamped to the overall budget. Timeouts are a
	// signal to continue, not an error.
	idleTimeout := min(m.cfg.NetworkIdleTimeout, budget)
	if err := h.WaitLoad(ctx, page.LoadNetworkIdle, idleTimeout); err != nil {
		if page.IsFatal(err) {
			return Report{Elapsed: time.Since(start)}, err
		}
		log.Debug("stability: network idle timeout", "url", h.URL(), "error", err)
	}

	// Step 2: install the mutation observer.
	installed := true
	if err := evalBool(ctx, h, observeJS); err != nil {
		if page.IsFatal(err) {
			return Report{Elapsed: time.Since(start)}, err
		}
		log.Warn("stability: observer install failed, degrading to fixed sleep",
			"url", h.URL(), "error", err)
		installed = false
	}

	if !installed {
		sleepFor := min(m.cfg.DegradedSleep, time.Until(deadline))
		if sleepFor > 0 {
			sleep(ctx, sleepFor)
		}
		return Report{Achieved: false, Elapsed: time.Since(start)}, nil
	}

	// Observer must never outlive the call, whatever the exit path.
	defer func() {
		tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := evalBool(tctx, h, teardownJS); err != nil {
			log.Debug("stability: observer teardown failed", "url", h.URL(), "error", err)
		}
	}()

	// Step 3: poll until the DOM has been quiet for QuietPeriod, bounded
	// by the remaining budget.
	achieved, err := m.pollQuiet(ctx, h, deadline)
	if err != nil {
		return Report{Elapsed: time.Since(start)}, err
	}
	return Report{Achieved: achieved, Elapsed: time.Since(start)}, nil
}

func (m *Monitor) pollQuiet(ctx context.Context, h page.Handle, deadline time.Time) (bool, error) {
	quietMs := float64(m.cfg.QuietPeriod.Milliseconds())

	for {
		if time.Now().After(deadline) {
			return false, nil
		}

		var age float64
		if err := page.EvalInto(ctx, h, quietJS, &age); err != nil {
			if page.IsFatal(err) {
				return false, err
			}
			// A failing probe means the observer is gone; the page is not
			// provably quiet.
			m.cfg.Logger.Debug("stability: quiet probe failed", "url", h.URL(), "error", err)
			return false, nil
		}

		if age > quietMs {
			return true, nil
		}

		wait := min(m.cfg.PollInterval, time.Until(deadline))
		if wait <= 0 {
			return false, nil
		}
		if !sleep(ctx, wait) {
			return false, nil
		}
	}
}

func evalBool(ctx context.Context, h page.Handle, js string) error {
	var ok bool
	return page.EvalInto(ctx, h, js, &ok)
}

// sleep waits d or until ctx is done, reporting whether the full duration
// elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
