// Package engine sequences one extraction request end to end: navigate,
// classify, wait, extract, classify errors, assemble the outcome.
//
// The lifecycle is a fixed state machine. Classification, waiting,
// extraction, and error classification always complete; the only early exit
// is a page-handle fault, which surfaces as a distinct fatal result so
// callers can tell "nothing extractable" apart from "the extraction
// infrastructure itself broke".
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/webtext/classify"
	"github.com/hazyhaar/webtext/errorpage"
	"github.com/hazyhaar/webtext/extract"
	"github.com/hazyhaar/webtext/page"
	"github.com/hazyhaar/webtext/stability"
)

// State names one lifecycle stage, for logging and outcome reporting.
type State string

const (
	StateNavigated        State = "navigated"
	StateClassifying      State = "classifying"
	StateWaiting          State = "waiting"
	StateExtracting       State = "extracting"
	StateClassifyingError State = "classifying_error"
	StateDone             State = "done"
	StateFailed           State = "failed"
)

// Outcome is the engine's single externally visible artifact.
type Outcome struct {
	Text         string        `json:"text"`
	StrategyUsed string        `json:"strategy_used"`
	Tier         classify.Tier `json:"-"`
	TierName     string        `json:"tier"`

	Score           int      `json:"score"`
	EscalationScore int      `json:"escalation_score"`
	Signals         []string `json:"signals,omitempty"`

	StabilityAchieved bool          `json:"stability_achieved"`
	StabilityElapsed  time.Duration `json:"-"`

	IsErrorPage bool   `json:"is_error_page"`
	ErrorType   string `json:"error_type,omitempty"`

	StatusCode int    `json:"status_code,omitempty"`
	FinalURL   string `json:"final_url,omitempty"`
}

// Config assembles the engine's collaborators.
type Config struct {
	Classifier      *classify.Classifier
	Waiter          *extract.Waiter
	Pipeline        *extract.Pipeline
	ErrorClassifier *errorpage.Classifier

	// RequestTimeout is the overall budget one request may spend.
	RequestTimeout time.Duration
	// NavigateTimeout bounds the initial navigation.
	NavigateTimeout time.Duration
	// WaitShare is the fraction of the remaining budget granted to the
	// waiting stage; the rest is left for extraction.
	WaitShare float64

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Classifier == nil {
		c.Classifier = classify.New(classify.Config{Logger: c.Logger})
	}
	if c.Waiter == nil {
		c.Waiter = extract.NewWaiter(extract.WaiterConfig{Logger: c.Logger})
	}
	if c.Pipeline == nil {
		c.Pipeline = extract.New(extract.Config{Logger: c.Logger})
	}
	if c.ErrorClassifier == nil {
		c.ErrorClassifier = errorpage.New(errorpage.Config{Logger: c.Logger})
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 90 * time.Second
	}
	if c.NavigateTimeout <= 0 {
		c.NavigateTimeout = 30 * time.Second
	}
	if c.WaitShare <= 0 || c.WaitShare >= 1 {
		c.WaitShare = 0.6
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Engine orchestrates extraction requests. Safe for concurrent use; each
// request gets exclusive use of its page handle for the full duration and
// shares no state with other requests.
type Engine struct {
	cfg Config
}

// New creates an Engine.
func New(cfg Config) *Engine {
	cfg.defaults()
	return &Engine{cfg: cfg}
}

// Run executes one extraction request against the handle. A non-nil error
// means the Failed state: the page handle itself broke. Every other path
// returns a complete Outcome, possibly with empty text.
func (e *Engine) Run(ctx context.Context, h page.Handle, url string) (*Outcome, error) {
	log := e.cfg.Logger
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	defer cancel()

	// Navigated.
	nav, err := h.Navigate(ctx, url, e.cfg.NavigateTimeout)
	if err != nil {
		log.Error("engine: navigation failed", "url", url, "error", err)
		return nil, fmt.Errorf("engine: navigate %s: %w", url, err)
	}
	out := &Outcome{StatusCode: nav.StatusCode, FinalURL: nav.FinalURL}

	// Classifying: always completes and fixes the tier for the rest of
	// the request.
	e.logState(StateClassifying, url, start)
	cls, err := e.cfg.Classifier.Classify(ctx, h, url)
	if err != nil {
		return nil, e.failed(StateClassifying, url, err)
	}
	out.Tier = cls.Tier
	out.TierName = cls.Tier.String()
	out.Score = cls.Score
	out.EscalationScore = cls.EscalationScore
	out.Signals = cls.Signals

	// Waiting: tier wait plus stability monitoring, soft on timeout.
	e.logState(StateWaiting, url, start)
	report, err := e.wait(ctx, h, cls.Tier)
	if err != nil {
		return nil, e.failed(StateWaiting, url, err)
	}
	out.StabilityAchieved = report.Achieved
	out.StabilityElapsed = report.Elapsed

	// Extracting: always completes with at least an empty string.
	e.logState(StateExtracting, url, start)
	res, err := e.cfg.Pipeline.Extract(ctx, h, cls.Tier)
	if err != nil {
		return nil, e.failed(StateExtracting, url, err)
	}
	out.Text = res.Text
	out.StrategyUsed = res.Strategy

	// ClassifyingError: advisory labelling, never mutates the text.
	e.logState(StateClassifyingError, url, start)
	verdict, err := e.cfg.ErrorClassifier.Classify(ctx, h, res.Text)
	if err != nil {
		return nil, e.failed(StateClassifyingError, url, err)
	}
	out.IsErrorPage = verdict.IsErrorPage
	out.ErrorType = verdict.ErrorType

	log.Info("engine: done",
		"url", url,
		"tier", out.TierName,
		"strategy", out.StrategyUsed,
		"chars", len(out.Text),
		"stable", out.StabilityAchieved,
		"error_page", out.IsErrorPage,
		"elapsed", time.Since(start))
	return out, nil
}

// wait grants the waiting stage its share of the remaining budget, leaving
// the rest for extraction.
func (e *Engine) wait(ctx context.Context, h page.Handle, tier classify.Tier) (stability.Report, error) {
	waitCtx := ctx
	if d, ok := ctx.Deadline(); ok {
		allowance := time.Duration(float64(time.Until(d)) * e.cfg.WaitShare)
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, allowance)
		defer cancel()
	}
	return e.cfg.Waiter.Wait(waitCtx, h, tier)
}

func (e *Engine) failed(state State, url string, err error) error {
	e.cfg.Logger.Error("engine: page handle fault",
		"state", string(state), "url", url, "error", err)
	return fmt.Errorf("engine: %s: %w", state, err)
}

func (e *Engine) logState(s State, url string, start time.Time) {
	e.cfg.Logger.Debug("engine: state", "state", string(s), "url", url, "elapsed", time.Since(start))
}
