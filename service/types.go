package service

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/hazyhaar/webtext/quality"
)

// ErrBadRequest marks errors caused by the request itself rather than by
// fetching or extraction. Transports map it to a client error status.
var ErrBadRequest = errors.New("service: invalid request")

// Method selects how a page is fetched before extraction.
type Method string

const (
	// MethodSimple fetches the URL over plain HTTP and extracts from the
	// static response body. Cheap, and sufficient for server-rendered pages.
	MethodSimple Method = "simple"
	// MethodBrowser drives a full Chrome tab through the tiered pipeline.
	MethodBrowser Method = "browser"
)

// ParseMethod maps a request string onto a known Method, defaulting to
// simple.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "simple":
		return MethodSimple, nil
	case "browser":
		return MethodBrowser, nil
	default:
		return "", fmt.Errorf("%w: unknown method %q", ErrBadRequest, s)
	}
}

// Request describes one extraction job.
type Request struct {
	URL          string `json:"url"`
	Method       string `json:"method,omitempty"`
	OutputFormat string `json:"output_format,omitempty"`

	// ConvertFiles enables extraction from non-HTML payloads such as PDF.
	ConvertFiles bool `json:"convert_files,omitempty"`

	// IncludeLinks adds classified hyperlinks to the response.
	IncludeLinks bool `json:"include_links,omitempty"`

	// Proxies overrides the server-configured pool for this request.
	// Entries are host:port; empty and no-proxy indicators are dropped.
	Proxies []string `json:"proxies,omitempty"`

	// Timeout in seconds for the whole request. Zero uses the server default.
	Timeout int `json:"timeout,omitempty"`

	// CalculateQuality adds content quality metrics to the response.
	CalculateQuality bool `json:"calculate_quality,omitempty"`
}

// Validate checks the fields a handler cannot sensibly default.
func (r *Request) Validate() error {
	u, err := url.Parse(r.URL)
	if err != nil {
		return fmt.Errorf("%w: invalid url: %v", ErrBadRequest, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported url scheme %q", ErrBadRequest, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: url has no host", ErrBadRequest)
	}
	if _, err := ParseMethod(r.Method); err != nil {
		return err
	}
	if r.Timeout < 0 {
		return fmt.Errorf("%w: negative timeout", ErrBadRequest)
	}
	return nil
}

// Link is one classified hyperlink found in the page.
type Link struct {
	URL      string `json:"url"`
	Text     string `json:"text,omitempty"`
	Internal bool   `json:"internal"`
}

// Response is the outcome of one extraction job. Status carries the HTTP
// status code the target answered with; Reason summarizes how extraction
// went ("success", "no_content", "error_page", "fetch_error",
// "unsupported_content").
type Response struct {
	Text string `json:"text"`

	Status  int    `json:"status"`
	Reason  string `json:"reason"`
	Message string `json:"message,omitempty"`

	Lang     string `json:"lang"`
	Mode     string `json:"mode"`
	FinalURL string `json:"final_url"`
	Version  string `json:"version"`

	Tier     string `json:"tier,omitempty"`
	Strategy string `json:"strategy,omitempty"`

	Converted      bool   `json:"converted"`
	OriginalFormat string `json:"original_format,omitempty"`

	ProxyUsed string `json:"proxy_used,omitempty"`

	Links []Link `json:"links,omitempty"`

	QualityMetrics *quality.Metrics `json:"quality_metrics,omitempty"`

	ExtractionTime float64 `json:"extraction_time"`
}

const (
	ReasonSuccess     = "success"
	ReasonNoContent   = "no_content"
	ReasonErrorPage   = "error_page"
	ReasonFetchError  = "fetch_error"
	ReasonUnsupported = "unsupported_content"
)
