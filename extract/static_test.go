package extract

import (
	"strings"
	"testing"
)

func TestFromHTML_Readability(t *testing.T) {
	res := FromHTML(articleHTML(12), "https://example.test/notes")
	if res.Strategy != "readability" {
		t.Fatalf("strategy: got %q", res.Strategy)
	}
	if !strings.Contains(res.Text, "soil moisture") {
		t.Fatalf("text lost content:\n%s", res.Text)
	}
	if res.Title != "Field Notes" {
		t.Fatalf("title: got %q", res.Title)
	}
}

func TestFromHTML_WalkFallback(t *testing.T) {
	// Too little structure for readability; the walk still finds the text.
	html := "<html><body><div>a modest fragment of visible text</div>" +
		"<div class=\"sidebar\">navigation junk</div></body></html>"
	res := FromHTML(html, "https://example.test/")
	if !strings.Contains(res.Text, "modest fragment") {
		t.Fatalf("text lost: %q", res.Text)
	}
	if res.Strategy == "" {
		t.Fatal("strategy not reported")
	}
}

func TestFromHTML_Empty(t *testing.T) {
	if res := FromHTML("   ", "https://example.test/"); res.Text != "" || res.Strategy != "" {
		t.Fatalf("empty input produced %+v", res)
	}
}

func TestReadableText_SkipsHiddenAndScripts(t *testing.T) {
	html := `<html><body>
		<p>visible paragraph</p>
		<p style="display:none">hidden paragraph</p>
		<script>var x = "script text";</script>
		<nav>site navigation</nav>
	</body></html>`
	text, err := readableText(html)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "visible paragraph") {
		t.Fatalf("visible text lost: %q", text)
	}
	for _, banned := range []string{"hidden paragraph", "script text", "site navigation"} {
		if strings.Contains(text, banned) {
			t.Fatalf("%q leaked into %q", banned, text)
		}
	}
}
