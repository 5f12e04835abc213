package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hazyhaar/webtext/convert"
	"github.com/hazyhaar/webtext/doctext"
	"github.com/hazyhaar/webtext/extract"
	"github.com/hazyhaar/webtext/proxy"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// extractSimple fetches the URL over plain HTTP and extracts from the
// static body. The proxy pool is tried in shuffled order, then a direct
// connection; the first transport-level success wins, whatever the
// status code.
func (s *Service) extractSimple(ctx context.Context, req *Request, format convert.Format, pool []string) (*Response, error) {
	fetched, err := s.fetch(ctx, req.URL, pool)
	if err != nil {
		return nil, err
	}

	resp := &Response{
		Status:    fetched.status,
		Reason:    ReasonSuccess,
		FinalURL:  fetched.finalURL,
		ProxyUsed: fetched.proxyUsed,
	}

	if doctext.IsPDF(fetched.contentType, fetched.body) {
		if !req.ConvertFiles {
			resp.Reason = ReasonUnsupported
			resp.Message = "pdf content; enable convert_files to extract"
			return resp, nil
		}
		doc, derr := doctext.FromPDF(fetched.body)
		if derr != nil {
			resp.Reason = ReasonUnsupported
			resp.Message = derr.Error()
			return resp, nil
		}
		resp.Text = doc.Text
		resp.Converted = true
		resp.OriginalFormat = "pdf"
		resp.Strategy = "pdf"
		if strings.TrimSpace(resp.Text) == "" {
			resp.Reason = ReasonNoContent
		}
		return resp, nil
	}

	html := string(fetched.body)
	static := extract.FromHTML(html, fetched.finalURL)
	resp.Text = static.Text
	resp.Strategy = static.Strategy
	if strings.TrimSpace(resp.Text) == "" {
		resp.Reason = ReasonNoContent
		return resp, nil
	}

	resp.Text = s.cfg.Renderer.Render(format, html, fetched.finalURL, static.Text)
	if req.IncludeLinks {
		resp.Links = extractLinks(html, fetched.finalURL)
	}
	return resp, nil
}

type fetchResult struct {
	body        []byte
	status      int
	contentType string
	finalURL    string
	proxyUsed   string
}

// fetch tries each pool entry in rotation order and reports the first
// response obtained. All transport errors are folded into the last one.
func (s *Service) fetch(ctx context.Context, target string, pool []string) (*fetchResult, error) {
	rot := proxy.NewRotation(pool)
	var lastErr error
	for {
		entry, ok := rot.Next()
		if !ok {
			break
		}
		res, err := s.fetchVia(ctx, target, entry)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if entry != "" {
			s.cfg.Logger.Debug("service: proxy fetch failed", "proxy", entry, "error", err)
		}
	}
	return nil, fmt.Errorf("service: fetch %s: %w", target, lastErr)
}

func (s *Service) fetchVia(ctx context.Context, target, entry string) (*fetchResult, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if p := proxy.URL(entry); p != "" {
		u, err := url.Parse(p)
		if err != nil {
			return nil, err
		}
		transport.Proxy = http.ProxyURL(u)
	}
	client := &http.Client{Transport: transport, Timeout: s.cfg.FetchTimeout}
	defer client.CloseIdleConnections()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf,*/*;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.cfg.MaxFetchBytes))
	if err != nil {
		return nil, err
	}

	final := target
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	return &fetchResult{
		body:        body,
		status:      resp.StatusCode,
		contentType: resp.Header.Get("Content-Type"),
		finalURL:    final,
		proxyUsed:   entry,
	}, nil
}
