package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hazyhaar/webtext/audit"
	"github.com/hazyhaar/webtext/browser"
	"github.com/hazyhaar/webtext/convert"
	"github.com/hazyhaar/webtext/engine"
	"github.com/hazyhaar/webtext/lang"
	"github.com/hazyhaar/webtext/proxy"
	"github.com/hazyhaar/webtext/quality"
)

// Config assembles the service's collaborators.
type Config struct {
	Engine   *engine.Engine
	Browser  *browser.Manager
	Renderer *convert.Renderer
	Audit    *audit.Log

	// Proxies is the server-wide pool for simple fetches, host:port.
	// Request proxies take precedence when given.
	Proxies []string

	// FetchTimeout bounds one simple fetch when the request carries no
	// timeout of its own. Default: 30s.
	FetchTimeout time.Duration

	// MaxFetchBytes caps the response body read during simple fetches.
	// Default: 50MB.
	MaxFetchBytes int64

	// Version is reported in responses and on /health.
	Version string

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Renderer == nil {
		c.Renderer = convert.NewRenderer(c.Logger)
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 30 * time.Second
	}
	if c.MaxFetchBytes <= 0 {
		c.MaxFetchBytes = 50 << 20
	}
	if c.Version == "" {
		c.Version = "dev"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Service ties fetching, extraction, rendering and auditing into the
// operation the transports expose.
type Service struct {
	cfg Config
}

// New creates a Service. Engine and Browser may be nil, in which case
// browser-method requests are rejected.
func New(cfg Config) *Service {
	cfg.defaults()
	return &Service{cfg: cfg}
}

// Version reports the configured service version.
func (s *Service) Version() string { return s.cfg.Version }

// Extract runs one extraction job. A non-nil error means the request
// itself is unusable; every fetch or extraction problem is reported
// inside the Response instead.
func (s *Service) Extract(ctx context.Context, req *Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	method, _ := ParseMethod(req.Method)
	format := convert.ParseFormat(req.OutputFormat)

	reqProxies, err := proxy.Normalize(req.Proxies)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}

	timeout := s.cfg.FetchTimeout
	if req.Timeout > 0 {
		timeout = time.Duration(req.Timeout) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	var resp *Response
	switch method {
	case MethodBrowser:
		resp, err = s.extractBrowser(ctx, req, format)
	default:
		pool := reqProxies
		if len(pool) == 0 {
			pool = s.cfg.Proxies
		}
		resp, err = s.extractSimple(ctx, req, format, pool)
	}
	if err != nil {
		s.audit(req, &Response{Reason: ReasonFetchError, Message: err.Error(), Mode: string(method)}, time.Since(start))
		return nil, err
	}

	resp.Mode = string(method)
	resp.Version = s.cfg.Version
	resp.ExtractionTime = time.Since(start).Seconds()
	if resp.FinalURL == "" {
		resp.FinalURL = req.URL
	}
	resp.Lang = lang.Detect(resp.Text)
	if req.CalculateQuality && resp.Text != "" {
		resp.QualityMetrics = quality.Compute(resp.Text)
	}

	s.audit(req, resp, time.Since(start))
	return resp, nil
}

// extractBrowser runs the full tiered pipeline on a fresh tab.
func (s *Service) extractBrowser(ctx context.Context, req *Request, format convert.Format) (*Response, error) {
	if s.cfg.Browser == nil || s.cfg.Engine == nil {
		return nil, fmt.Errorf("service: browser extraction not configured")
	}

	tab, err := s.cfg.Browser.NewTab(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	defer tab.Close()

	out, err := s.cfg.Engine.Run(ctx, tab, req.URL)
	if err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}

	resp := &Response{
		Text:     out.Text,
		Status:   out.StatusCode,
		Reason:   ReasonSuccess,
		FinalURL: out.FinalURL,
		Tier:     out.TierName,
		Strategy: out.StrategyUsed,
	}
	if resp.Status == 0 {
		resp.Status = 200
	}

	switch {
	case out.IsErrorPage:
		resp.Reason = ReasonErrorPage
		resp.Message = out.ErrorType
	case strings.TrimSpace(out.Text) == "":
		resp.Reason = ReasonNoContent
	}

	// Markdown, HTML output and link extraction all need the rendered DOM.
	if format != convert.FormatText || req.IncludeLinks {
		html, herr := tab.Content(ctx)
		if herr != nil {
			s.cfg.Logger.Warn("service: page content unavailable", "url", req.URL, "error", herr)
		} else {
			resp.Text = s.cfg.Renderer.Render(format, html, resp.FinalURL, out.Text)
			if req.IncludeLinks {
				resp.Links = extractLinks(html, resp.FinalURL)
			}
		}
	}
	return resp, nil
}

// audit records the request outcome, best effort.
func (s *Service) audit(req *Request, resp *Response, elapsed time.Duration) {
	if s.cfg.Audit == nil {
		return
	}
	status := "success"
	errorType := ""
	switch resp.Reason {
	case ReasonNoContent:
		status = "empty"
	case ReasonErrorPage, ReasonFetchError, ReasonUnsupported:
		status = "error"
		errorType = resp.Reason
	}
	s.cfg.Audit.RecordAsync(&audit.Event{
		URL:          req.URL,
		FinalURL:     resp.FinalURL,
		Tier:         resp.Tier,
		Strategy:     resp.Strategy,
		Status:       status,
		StatusCode:   resp.Status,
		ErrorType:    errorType,
		ErrorMessage: resp.Message,
		TextLength:   len(resp.Text),
		DurationMs:   elapsed.Milliseconds(),
		ProxyUsed:    resp.ProxyUsed,
	})
}
