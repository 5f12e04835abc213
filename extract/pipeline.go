// Package extract produces the best available text for a page by trying
// strategies in a tier-specific priority order, short-circuiting on the
// first result that clears its acceptance threshold.
//
// Every strategy runs in its own failure boundary: an error in one strategy
// is logged and the next is tried, never aborting the pipeline. When no
// strategy clears its threshold the pipeline returns the single longest
// non-empty attempt observed across the whole ordered list.
package extract

import (
	"context"
	"log/slog"
	"strings"

	"github.com/hazyhaar/webtext/classify"
	"github.com/hazyhaar/webtext/page"
)

// Strategy is one self-contained method of turning a page's current state
// into text.
type Strategy struct {
	// Name identifies the strategy in outcomes and logs.
	Name string
	// Accept is the length above which the result is taken immediately.
	// Zero means the pipeline's substantial-content default.
	Accept int
	// Run extracts candidate text. It must be read-only apart from probe
	// interactions and must not panic the pipeline.
	Run func(ctx context.Context, h page.Handle) (string, error)
}

// Config tunes the pipeline.
type Config struct {
	// Substantial is the default acceptance threshold for primary
	// strategies.
	Substantial int
	// FallbackFloor is the smaller threshold used by last-resort
	// strategies.
	FallbackFloor int
	// PlaceholderPhrases are loading placeholders the polling strategy
	// refuses to keep as content.
	PlaceholderPhrases []string

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Substantial <= 0 {
		c.Substantial = 500
	}
	if c.FallbackFloor <= 0 {
		c.FallbackFloor = 50
	}
	if len(c.PlaceholderPhrases) == 0 {
		c.PlaceholderPhrases = []string{"JavaScript wird benötigt", "JavaScript is required", "Loading..."}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Pipeline runs tier-ordered extraction strategies. Safe for concurrent
// use; per-request state lives in the accumulator.
type Pipeline struct {
	cfg Config
}

// New creates a Pipeline.
func New(cfg Config) *Pipeline {
	cfg.defaults()
	return &Pipeline{cfg: cfg}
}

// Result is the pipeline's contribution to the request outcome.
type Result struct {
	Text     string
	Strategy string
	// Attempts records every strategy tried, in order.
	Attempts []Attempt
}

// Extract folds the tier's strategy list. It returns an error only for a
// page-handle fault; everything else degrades to the best attempt seen.
func (p *Pipeline) Extract(ctx context.Context, h page.Handle, tier classify.Tier) (Result, error) {
	log := p.cfg.Logger
	acc := &accumulator{}

	for _, s := range p.strategies(tier) {
		text, err := s.Run(ctx, h)
		if err != nil {
			if page.IsFatal(err) {
				return resultFrom(acc), err
			}
			log.Warn("extract: strategy failed", "strategy", s.Name, "url", h.URL(), "error", err)
			acc.record(failed(s.Name, err))
			continue
		}

		text = strings.TrimSpace(text)
		if text == "" {
			log.Debug("extract: strategy empty", "strategy", s.Name, "url", h.URL())
			acc.record(empty(s.Name))
			continue
		}

		accept := s.Accept
		if accept <= 0 {
			accept = p.cfg.Substantial
		}
		acc.record(ok(s.Name, text))
		if len(text) > accept {
			log.Debug("extract: strategy accepted",
				"strategy", s.Name, "url", h.URL(), "chars", len(text))
			return Result{Text: text, Strategy: s.Name, Attempts: acc.attempts}, nil
		}
		log.Debug("extract: strategy below threshold",
			"strategy", s.Name, "url", h.URL(), "chars", len(text), "threshold", accept)
	}

	res := resultFrom(acc)
	log.Debug("extract: no strategy cleared threshold",
		"url", h.URL(), "best", res.Strategy, "chars", len(res.Text))
	return res, nil
}

func resultFrom(acc *accumulator) Result {
	return Result{Text: acc.best.Text, Strategy: acc.best.Strategy, Attempts: acc.attempts}
}

// strategies returns the ordered list for a tier. The standard chain is
// shared; higher tiers widen the front of the list, and the aggressive
// miner closes the UltraComplexSPA chain as the absolute last resort.
func (p *Pipeline) strategies(tier classify.Tier) []Strategy {
	standard := []Strategy{
		p.readabilityStrategy(),
		p.containerStrategy(),
		p.readableWalkStrategy(),
		p.rawBodyStrategy(),
	}

	switch tier {
	case classify.UltraComplexSPA:
		widened := []Strategy{
			p.embeddedJSONStrategy(),
			p.frameworkTreeStrategy(),
			p.shadowDOMStrategy(),
			p.iframeStrategy(),
			p.pollingStrategy(),
			p.stateMiningStrategy(),
		}
		chain := append(widened, standard...)
		return append(chain, p.aggressiveMinerStrategy())
	default:
		return standard
	}
}
