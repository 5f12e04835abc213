package service

import "testing"

func TestExtractLinks(t *testing.T) {
	html := `<html><body>
		<a href="/about">About   the team</a>
		<a href="https://other.test/docs">External docs</a>
		<a href="/about#history">About again</a>
		<a href="#top">Top</a>
		<a href="javascript:void(0)">JS</a>
		<a href="mailto:team@example.test">Mail</a>
		<a href="tel:+123456">Call</a>
		<a href="ftp://files.test/pub">FTP</a>
	</body></html>`

	links := extractLinks(html, "https://example.test/index")
	if len(links) != 2 {
		t.Fatalf("got %d links: %+v", len(links), links)
	}

	if links[0].URL != "https://example.test/about" || !links[0].Internal {
		t.Fatalf("internal link: %+v", links[0])
	}
	if links[0].Text != "About the team" {
		t.Fatalf("link text not squeezed: %q", links[0].Text)
	}
	if links[1].URL != "https://other.test/docs" || links[1].Internal {
		t.Fatalf("external link: %+v", links[1])
	}
}

func TestExtractLinks_DedupesByFragmentlessURL(t *testing.T) {
	html := `<a href="/p">one</a><a href="/p#a">two</a><a href="/p#b">three</a>`
	links := extractLinks(html, "https://example.test/")
	if len(links) != 1 {
		t.Fatalf("got %d links, want 1", len(links))
	}
	if links[0].URL != "https://example.test/p" {
		t.Fatalf("got %q", links[0].URL)
	}
}

func TestExtractLinks_BadBase(t *testing.T) {
	links := extractLinks(`<a href="https://abs.test/x">x</a>`, "::bad::")
	if len(links) != 1 || links[0].Internal {
		t.Fatalf("got %+v", links)
	}
}

func TestExtractLinks_Empty(t *testing.T) {
	if links := extractLinks("<p>no anchors</p>", "https://example.test/"); len(links) != 0 {
		t.Fatalf("got %+v", links)
	}
}
