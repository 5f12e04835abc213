package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/webtext/classify"
	"github.com/hazyhaar/webtext/page"
	"github.com/hazyhaar/webtext/stability"
)

// Waiter executes the tier-specific wait strategy ahead of extraction.
// Every wait in here is time-boxed and soft: a timeout is a signal to
// proceed, never an error. Only page-handle faults propagate.
type WaiterConfig struct {
	// Monitor performs the DOM-stability wait shared by all tiers.
	Monitor *stability.Monitor

	// StandardIdle bounds the Standard tier's network-idle wait.
	StandardIdle time.Duration
	// UltraIdle bounds the UltraComplexSPA tier's extended idle wait.
	UltraIdle time.Duration
	// IndicatorTimeout bounds each loading-indicator disappearance wait.
	IndicatorTimeout time.Duration

	// LoadingSelectors are the indicators whose disappearance the SPA
	// tier waits for.
	LoadingSelectors []string

	Logger *slog.Logger
}

func (c *WaiterConfig) defaults() {
	if c.Monitor == nil {
		c.Monitor = stability.New(stability.Config{})
	}
	if c.StandardIdle <= 0 {
		c.StandardIdle = 8 * time.Second
	}
	if c.UltraIdle <= 0 {
		c.UltraIdle = 20 * time.Second
	}
	if c.IndicatorTimeout <= 0 {
		c.IndicatorTimeout = 5 * time.Second
	}
	if len(c.LoadingSelectors) == 0 {
		c.LoadingSelectors = []string{
			".loading", ".spinner", ".loader", "[data-loading]",
			".loading-spinner", ".loading-overlay", ".preloader",
		}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Waiter runs tier waits. Safe for concurrent use.
type Waiter struct {
	cfg WaiterConfig
}

// NewWaiter creates a Waiter.
func NewWaiter(cfg WaiterConfig) *Waiter {
	cfg.defaults()
	return &Waiter{cfg: cfg}
}

// Wait runs the wait strategy for the tier and reports stability. The only
// error surfaced is a page-handle fault.
func (w *Waiter) Wait(ctx context.Context, h page.Handle, tier classify.Tier) (stability.Report, error) {
	switch tier {
	case classify.SPA:
		return w.waitSPA(ctx, h)
	case classify.UltraComplexSPA:
		return w.waitUltra(ctx, h)
	default:
		return w.waitStandard(ctx, h)
	}
}

func (w *Waiter) waitStandard(ctx context.Context, h page.Handle) (stability.Report, error) {
	if err := h.WaitLoad(ctx, page.LoadNetworkIdle, w.cfg.StandardIdle); err != nil {
		if page.IsFatal(err) {
			return stability.Report{}, err
		}
		w.cfg.Logger.Debug("wait: standard idle timeout", "url", h.URL(), "error", err)
	}
	return w.cfg.Monitor.Await(ctx, h)
}

func (w *Waiter) waitSPA(ctx context.Context, h page.Handle) (stability.Report, error) {
	report, err := w.cfg.Monitor.Await(ctx, h)
	if err != nil {
		return report, err
	}

	// Loading indicators should be gone before reading. Absent selectors
	// pass immediately; stuck ones time out softly.
	for _, sel := range w.cfg.LoadingSelectors {
		if err := h.WaitSelectorHidden(ctx, sel, w.cfg.IndicatorTimeout); err != nil {
			if page.IsFatal(err) {
				return report, err
			}
			w.cfg.Logger.Debug("wait: indicator still visible", "selector", sel, "url", h.URL())
		}
	}

	if err := w.softEval(ctx, h, "framework-readiness", frameworkReadyJS); err != nil {
		return report, err
	}
	return report, nil
}

func (w *Waiter) waitUltra(ctx context.Context, h page.Handle) (stability.Report, error) {
	log := w.cfg.Logger

	// Step 1: extended network idle.
	if err := h.WaitLoad(ctx, page.LoadNetworkIdle, w.cfg.UltraIdle); err != nil {
		if page.IsFatal(err) {
			return stability.Report{}, err
		}
		log.Debug("wait: ultra idle timeout", "url", h.URL(), "error", err)
	}

	// Step 2: poll for framework-ready signals up to a cap.
	if err := w.softEval(ctx, h, "framework-init", frameworkInitPollJS); err != nil {
		return stability.Report{}, err
	}

	// Step 3: deep mutation monitoring that also detects significant
	// content insertions.
	if err := w.softEval(ctx, h, "deep-mutation", w.deepMutationJS()); err != nil {
		return stability.Report{}, err
	}

	// Step 4: interaction probes to force lazy rendering: click one
	// plausible interactive element, then scroll top-to-bottom-to-top.
	if err := w.softEval(ctx, h, "click-probe", clickProbeJS); err != nil {
		return stability.Report{}, err
	}
	if err := w.softEval(ctx, h, "scroll-probe", scrollProbeJS); err != nil {
		return stability.Report{}, err
	}

	return w.cfg.Monitor.Await(ctx, h)
}

// softEval runs a wait probe, absorbing everything but handle faults.
func (w *Waiter) softEval(ctx context.Context, h page.Handle, name, js string) error {
	if _, err := h.Eval(ctx, js); err != nil {
		if page.IsFatal(err) {
			return err
		}
		w.cfg.Logger.Debug("wait: probe failed", "probe", name, "url", h.URL(), "error", err)
	}
	return nil
}

func (w *Waiter) deepMutationJS() string {
	phrases, _ := json.Marshal([]string{"JavaScript wird benötigt", "JavaScript is required"})
	return fmt.Sprintf(deepMutationJSTemplate, phrases)
}

// frameworkReadyJS checks whether known frameworks consider the document
// complete. Not a hard gate: a missing framework reports ready.
const frameworkReadyJS = `() => {
	if (window.React && window.ReactDOM) {
		return document.readyState === 'complete';
	}
	if (window.Vue) {
		return document.readyState === 'complete';
	}
	return true;
}`

// frameworkInitPollJS polls for framework initialisation markers, capped at
// 100 attempts of 200ms.
const frameworkInitPollJS = `() => {
	return new Promise((resolve) => {
		let attempts = 0;
		const check = () => {
			attempts++;
			if (window.React && window.__REACT_DEVTOOLS_GLOBAL_HOOK__) {
				const root = document.querySelector('[data-reactroot]') || document.querySelector('#root');
				if (root && root.childElementCount > 0) { resolve(true); return; }
			}
			if (window.Vue && window.Vue.version) {
				if (document.querySelector('[data-v-app]') || document.querySelector('[data-v-]')) {
					resolve(true); return;
				}
			}
			if (window.app && window.app.ready) { resolve(true); return; }
			if (attempts >= 100) { resolve(false); return; }
			setTimeout(check, 200);
		};
		check();
	});
}`

// deepMutationJSTemplate resolves once content insertions look significant,
// or the DOM stays quiet for 3s, or the 15s cap is hit. The observer is
// disconnected on every resolution path.
const deepMutationJSTemplate = `() => {
	return new Promise((resolve) => {
		const placeholders = %s;
		let lastMutation = Date.now();
		let significant = 0;

		const observer = new MutationObserver((mutations) => {
			lastMutation = Date.now();
			for (const m of mutations) {
				if (m.type !== 'childList') continue;
				for (const node of m.addedNodes) {
					if (node.nodeType !== Node.ELEMENT_NODE) continue;
					const text = node.textContent || '';
					if (text.length > 50 && !placeholders.some((p) => text.includes(p))) {
						significant++;
					}
				}
			}
		});
		observer.observe(document.body || document.documentElement, {
			childList: true,
			subtree: true,
			attributes: true
		});

		const finish = (reason) => {
			observer.disconnect();
			resolve(reason);
		};
		const check = () => {
			if (significant >= 3) { finish('content'); return; }
			if (Date.now() - lastMutation > 3000) { finish('quiet'); return; }
			setTimeout(check, 500);
		};
		setTimeout(check, 500);
		setTimeout(() => finish('cap'), 15000);
	});
}`

// clickProbeJS clicks the first plausible interactive element. Read-only in
// intent: the target set avoids links that would navigate away.
const clickProbeJS = `() => {
	const candidates = document.querySelectorAll('button, [role="button"], a[href="#"], .nav-item, .menu-item');
	if (candidates.length > 0) {
		try { candidates[0].click(); } catch (e) {}
		return true;
	}
	return false;
}`

// scrollProbeJS scrolls top-to-bottom-to-top to force lazy rendering.
const scrollProbeJS = `() => {
	return new Promise((resolve) => {
		let top = 0;
		const step = 300;
		const max = Math.max(document.body ? document.body.scrollHeight : 0, 2000);
		const scroll = () => {
			window.scrollTo(0, top);
			top += step;
			if (top >= max) {
				window.scrollTo(0, 0);
				setTimeout(() => resolve(true), 500);
			} else {
				setTimeout(scroll, 100);
			}
		};
		scroll();
	});
}`
