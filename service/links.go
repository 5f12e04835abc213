package service

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxLinks = 500

// extractLinks collects anchors from the page, resolved against the base
// URL and flagged internal when they stay on the same host. Fragment-only,
// javascript: and mailto: anchors are skipped.
func extractLinks(html, baseURL string) []Link {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		base = &url.URL{}
	}

	seen := make(map[string]struct{})
	var links []Link
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return true
		}
		lower := strings.ToLower(href)
		if strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "tel:") {
			return true
		}

		ref, err := url.Parse(href)
		if err != nil {
			return true
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return true
		}
		abs.Fragment = ""
		key := abs.String()
		if _, dup := seen[key]; dup {
			return true
		}
		seen[key] = struct{}{}

		text := strings.Join(strings.Fields(sel.Text()), " ")
		if len(text) > 200 {
			text = text[:200]
		}
		links = append(links, Link{
			URL:      key,
			Text:     text,
			Internal: abs.Host == base.Host,
		})
		return len(links) < maxLinks
	})
	return links
}
