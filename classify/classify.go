// Package classify assigns one of three extraction tiers to a live page
// using weighted signal scoring over scripted runtime and DOM probes.
//
// The tier is decided once per request, before any extraction strategy runs,
// and drives both the wait strategy and the strategy ordering. A probe that
// errors contributes nothing: absence of signal, not failure, is the only
// output of an erroring probe.
package classify

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/hazyhaar/webtext/page"
)

// Tier selects the wait strategy and extraction strategy ordering.
type Tier int

const (
	// Standard is a conventional server-rendered page.
	Standard Tier = iota
	// SPA is a JavaScript-rendered single-page application.
	SPA
	// UltraComplexSPA resists normal rendering and needs aggressive
	// waiting and widened extraction.
	UltraComplexSPA
)

func (t Tier) String() string {
	switch t {
	case SPA:
		return "spa"
	case UltraComplexSPA:
		return "ultra_complex_spa"
	default:
		return "standard"
	}
}

// Result is one classification, computed fresh per request. Pages are not
// assumed stable across navigations, so results are never cached.
type Result struct {
	Score           int
	EscalationScore int
	Signals         []string
	Tier            Tier
}

// Config tunes the classifier.
type Config struct {
	// SPAThreshold is the base score at or above which a page is an SPA.
	SPAThreshold int
	// UltraThreshold is the escalation score at or above which a page is
	// an UltraComplexSPA. Escalation is scored independently of the base.
	UltraThreshold int

	Tables *Tables
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.SPAThreshold <= 0 {
		c.SPAThreshold = 2
	}
	if c.UltraThreshold <= 0 {
		c.UltraThreshold = 4
	}
	if c.Tables == nil {
		c.Tables = DefaultTables()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Classifier scores pages into tiers. Safe for concurrent use.
type Classifier struct {
	cfg Config
}

// New creates a Classifier.
func New(cfg Config) *Classifier {
	cfg.defaults()
	return &Classifier{cfg: cfg}
}

// Classify probes the page and returns its tier. It never fails on probe
// errors; the only error returned is a page-handle fault.
func (c *Classifier) Classify(ctx context.Context, h page.Handle, pageURL string) (Result, error) {
	t := c.cfg.Tables
	log := c.cfg.Logger

	var res Result

	// Base signals.
	var families []string
	if err := c.probe(ctx, h, "frameworks", frameworksProbe(t.Frameworks), &families); err != nil {
		return res, err
	}
	for _, fam := range families {
		for _, sig := range t.Frameworks {
			if sig.Family == fam {
				res.Score += sig.Weight
				res.Signals = append(res.Signals, "framework:"+fam)
				break
			}
		}
	}

	var routing bool
	if err := c.probe(ctx, h, "routing", routingProbe, &routing); err != nil {
		return res, err
	}
	if routing {
		res.Score += t.Routing.Weight
		res.Signals = append(res.Signals, "client-routing")
	}

	var loading bool
	if err := c.probe(ctx, h, "loading-indicators",
		selectorsPresentProbe(t.LoadingIndicators.Selectors), &loading); err != nil {
		return res, err
	}
	if loading {
		res.Score += t.LoadingIndicators.Weight
		res.Signals = append(res.Signals, "loading-indicator")
	}

	var appRoot bool
	if err := c.probe(ctx, h, "app-root", appRootProbe(t.AppRoot), &appRoot); err != nil {
		return res, err
	}
	if appRoot {
		res.Score += t.AppRoot.Weight
		res.Signals = append(res.Signals, "app-root")
	}

	// Escalation signals, scored independently.
	var body bodyTextReport
	if err := c.probe(ctx, h, "body-text", bodyTextProbe(t.Escalation.Placeholder.Phrases), &body); err != nil {
		return res, err
	}
	if body.Placeholder {
		res.EscalationScore += t.Escalation.Placeholder.Weight
		res.Signals = append(res.Signals, "placeholder-text")
	}
	if body.DOMNonEmpty && body.BodyLen > 0 && body.BodyLen < t.Escalation.ShortBody.MaxLen {
		res.EscalationScore += t.Escalation.ShortBody.Weight
		res.Signals = append(res.Signals, "short-body")
	}

	var stateMgmt bool
	if err := c.probe(ctx, h, "state-management",
		stateGlobalsProbe(t.Escalation.StateManagement.Globals), &stateMgmt); err != nil {
		return res, err
	}
	if stateMgmt {
		res.EscalationScore += t.Escalation.StateManagement.Weight
		res.Signals = append(res.Signals, "state-management")
	}

	if hostMatches(pageURL, t.Escalation.DifficultDomains.Hosts) {
		res.EscalationScore += t.Escalation.DifficultDomains.Weight
		res.Signals = append(res.Signals, "difficult-domain")
	}

	// Ties resolve toward the higher tier: safer to over-wait than to
	// under-extract.
	switch {
	case res.EscalationScore >= c.cfg.UltraThreshold:
		res.Tier = UltraComplexSPA
	case res.Score >= c.cfg.SPAThreshold:
		res.Tier = SPA
	default:
		res.Tier = Standard
	}

	log.Debug("classify: tier decided",
		"url", pageURL, "tier", res.Tier.String(),
		"score", res.Score, "escalation", res.EscalationScore,
		"signals", res.Signals)
	return res, nil
}

// probe runs one named probe, defaulting its signal to absent on error.
// Only handle faults propagate.
func (c *Classifier) probe(ctx context.Context, h page.Handle, name, js string, dst any) error {
	if err := page.EvalInto(ctx, h, js, dst); err != nil {
		if page.IsFatal(err) {
			return err
		}
		c.cfg.Logger.Debug("classify: probe failed", "probe", name, "url", h.URL(), "error", err)
	}
	return nil
}

func hostMatches(pageURL string, hosts []string) bool {
	u, err := url.Parse(pageURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, want := range hosts {
		want = strings.ToLower(want)
		if host == want || strings.HasSuffix(host, "."+want) {
			return true
		}
	}
	return false
}
