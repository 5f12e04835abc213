// Package convert renders extracted page HTML as markdown or sanitized
// HTML for callers that want structure preserved.
package convert

import (
	"log/slog"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
)

// Format selects the output rendering for an extraction response.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// ParseFormat maps a request string onto a known Format, defaulting to
// plain text.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "markdown", "md":
		return FormatMarkdown
	case "html":
		return FormatHTML
	default:
		return FormatText
	}
}

// Renderer converts raw page HTML into the requested output format.
// Safe for concurrent use.
type Renderer struct {
	md        *converter.Converter
	sanitizer *bluemonday.Policy
	logger    *slog.Logger
}

// NewRenderer builds a Renderer with commonmark and table support.
func NewRenderer(logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		sanitizer: bluemonday.UGCPolicy(),
		logger:    logger,
	}
}

// Render produces the requested format from page HTML. The plain-text
// fallback is returned whenever conversion fails or yields nothing, so
// callers always get the extracted text at minimum.
func (r *Renderer) Render(format Format, html, pageURL, fallback string) string {
	switch format {
	case FormatMarkdown:
		return r.markdown(html, pageURL, fallback)
	case FormatHTML:
		if html == "" {
			return fallback
		}
		return r.sanitizer.Sanitize(html)
	default:
		return fallback
	}
}

func (r *Renderer) markdown(html, pageURL, fallback string) string {
	if html == "" {
		return fallback
	}
	clean := r.sanitizer.Sanitize(html)
	result, err := r.md.ConvertString(clean, converter.WithDomain(pageURL))
	if err != nil || strings.TrimSpace(result) == "" {
		if err != nil {
			r.logger.Debug("convert: markdown conversion failed", "url", pageURL, "error", err)
		}
		return fallback
	}
	return strings.TrimSpace(result)
}
