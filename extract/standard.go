package extract

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/hazyhaar/webtext/page"
)

// mainContainerSelector lists the containers tried by the direct
// visible-text strategy, most specific first.
const mainContainerSelector = "main, article, [role=main], .content, #content, .main, #main, .post, .entry"

// readabilityStrategy runs readability-style extraction over the captured
// HTML. This is the primary strategy for conventional pages.
func (p *Pipeline) readabilityStrategy() Strategy {
	return Strategy{
		Name: "readability",
		Run: func(ctx context.Context, h page.Handle) (string, error) {
			html, err := h.Content(ctx)
			if err != nil {
				return "", err
			}
			if strings.TrimSpace(html) == "" {
				return "", nil
			}

			pageURL, err := url.Parse(h.URL())
			if err != nil {
				pageURL = &url.URL{}
			}

			parser := readability.NewParser()
			article, err := parser.Parse(strings.NewReader(html), pageURL)
			if err != nil {
				return "", fmt.Errorf("extract: readability parse: %w", err)
			}
			return article.TextContent, nil
		},
	}
}

// containerStrategy extracts the text of the first substantial main-content
// container from the captured HTML.
func (p *Pipeline) containerStrategy() Strategy {
	return Strategy{
		Name: "main_container",
		Run: func(ctx context.Context, h page.Handle) (string, error) {
			html, err := h.Content(ctx)
			if err != nil {
				return "", err
			}
			doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
			if err != nil {
				return "", fmt.Errorf("extract: parse document: %w", err)
			}

			var best string
			doc.Find(mainContainerSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
				text := squeezeSpace(s.Text())
				if len(text) > len(best) {
					best = text
				}
				// The first container clearing the substantial threshold
				// wins outright.
				return len(best) <= p.cfg.Substantial
			})
			return best, nil
		},
	}
}

// readableWalkStrategy walks the captured DOM collecting visible text while
// excluding navigation, ads, and hidden elements.
func (p *Pipeline) readableWalkStrategy() Strategy {
	return Strategy{
		Name: "readable_walk",
		Run: func(ctx context.Context, h page.Handle) (string, error) {
			html, err := h.Content(ctx)
			if err != nil {
				return "", err
			}
			return readableText(html)
		},
	}
}

// rawBodyStrategy grabs the body's full text content in page context. Last
// resort for the standard chain, so it accepts shorter results.
func (p *Pipeline) rawBodyStrategy() Strategy {
	return Strategy{
		Name:   "raw_body",
		Accept: p.cfg.FallbackFloor,
		Run: func(ctx context.Context, h page.Handle) (string, error) {
			var text string
			err := page.EvalInto(ctx, h,
				`() => (document.body && document.body.textContent) || ''`, &text)
			if err != nil {
				return "", err
			}
			return squeezeSpace(text), nil
		},
	}
}

func squeezeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
