package extract

import (
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// StaticResult is the outcome of extracting from fetched HTML without a
// browser.
type StaticResult struct {
	Text     string
	Title    string
	Strategy string
}

// FromHTML extracts readable text from static HTML, without driving a
// browser. Used for pages fetched over plain HTTP. It tries readability
// first and falls back to a filtered DOM walk.
func FromHTML(rawHTML, pageURL string) StaticResult {
	if strings.TrimSpace(rawHTML) == "" {
		return StaticResult{}
	}

	parsed, err := url.Parse(pageURL)
	if err != nil {
		parsed = &url.URL{}
	}

	parser := readability.NewParser()
	article, err := parser.Parse(strings.NewReader(rawHTML), parsed)
	if err == nil {
		text := strings.TrimSpace(article.TextContent)
		if text != "" {
			return StaticResult{Text: text, Title: article.Title, Strategy: "readability"}
		}
	}

	text, werr := readableText(rawHTML)
	if werr == nil && strings.TrimSpace(text) != "" {
		return StaticResult{Text: strings.TrimSpace(text), Strategy: "readable_walk"}
	}
	return StaticResult{}
}
