package extract

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/hazyhaar/webtext/classify"
	"github.com/hazyhaar/webtext/page"
	"github.com/hazyhaar/webtext/page/pagetest"
)

func articleHTML(sentences int) string {
	var sb strings.Builder
	sb.WriteString("<html><head><title>Field Notes</title></head><body><article>")
	for i := 0; i < sentences; i++ {
		sb.WriteString("<p>Observations from the long-running soil moisture experiment, recorded at station ")
		fmt.Fprintf(&sb, "%d, show a stable seasonal pattern across all probes.</p>", i)
	}
	sb.WriteString("</article></body></html>")
	return sb.String()
}

func TestExtract_ShortCircuitsOnSubstantialResult(t *testing.T) {
	h := pagetest.New()
	h.HTML = articleHTML(12)
	p := New(Config{})

	res, err := p.Extract(context.Background(), h, classify.Standard)
	if err != nil {
		t.Fatal(err)
	}
	if res.Strategy != "readability" {
		t.Fatalf("strategy: got %q", res.Strategy)
	}
	if len(res.Text) <= 500 {
		t.Fatalf("text too short: %d chars", len(res.Text))
	}
	if len(res.Attempts) != 1 {
		t.Fatalf("later strategies ran: %d attempts", len(res.Attempts))
	}
}

func TestExtract_FallbackFloorAcceptsShortRawBody(t *testing.T) {
	h := pagetest.New().
		Respond("document.body.textContent", strings.Repeat("short but real content. ", 4))
	h.HTML = "<html><body></body></html>"
	p := New(Config{})

	res, err := p.Extract(context.Background(), h, classify.Standard)
	if err != nil {
		t.Fatal(err)
	}
	if res.Strategy != "raw_body" {
		t.Fatalf("strategy: got %q (text %q)", res.Strategy, res.Text)
	}
}

func TestExtract_ReturnsLongestAttemptWhenNothingClears(t *testing.T) {
	h := pagetest.New().
		Respond("document.body.textContent", "tiny")
	h.HTML = "<html><body><main>a slightly longer fragment of text</main></body></html>"
	p := New(Config{})

	res, err := p.Extract(context.Background(), h, classify.Standard)
	if err != nil {
		t.Fatal(err)
	}
	if res.Text == "" {
		t.Fatal("expected the best attempt, got empty text")
	}
	for _, a := range res.Attempts {
		if a.Kind == AttemptOK && a.Len() > len(res.Text) {
			t.Fatalf("attempt %q (%d chars) beats result (%d chars)", a.Strategy, a.Len(), len(res.Text))
		}
	}
}

func TestExtract_StrategyErrorDoesNotAbort(t *testing.T) {
	h := pagetest.New().
		RespondFunc("document.body.textContent", func(string) (any, error) {
			return nil, fmt.Errorf("probe exploded")
		})
	h.HTML = articleHTML(12)
	p := New(Config{})

	res, err := p.Extract(context.Background(), h, classify.Standard)
	if err != nil {
		t.Fatal(err)
	}
	if res.Text == "" {
		t.Fatal("pipeline aborted on a contained strategy error")
	}
}

func TestExtract_HandleFaultAborts(t *testing.T) {
	h := pagetest.New().
		RespondFunc("document.body.textContent", func(string) (any, error) {
			return nil, fmt.Errorf("%w: target closed", page.ErrHandleInvalid)
		})
	h.HTML = "<html><body></body></html>"
	p := New(Config{})

	if _, err := p.Extract(context.Background(), h, classify.Standard); !page.IsFatal(err) {
		t.Fatalf("want handle fault, got %v", err)
	}
}

func TestExtract_UltraTriesEmbeddedJSONFirst(t *testing.T) {
	h := pagetest.New()
	h.HTML = `<html><body><script id="embedded-topic">{"description":"` +
		strings.Repeat("A thorough walk through the chapter material. ", 15) +
		`","educationalLevel":"Sek II"}</script><div id="root"></div></body></html>`
	p := New(Config{})

	res, err := p.Extract(context.Background(), h, classify.UltraComplexSPA)
	if err != nil {
		t.Fatal(err)
	}
	if res.Strategy != "embedded_json" {
		t.Fatalf("strategy: got %q", res.Strategy)
	}
	if !strings.Contains(res.Text, "Description:") || !strings.Contains(res.Text, "Level: Sek II") {
		t.Fatalf("projection incomplete:\n%s", res.Text)
	}
	if res.Attempts[0].Strategy != "embedded_json" {
		t.Fatalf("ordering: first attempt was %q", res.Attempts[0].Strategy)
	}
}

func TestExtract_IframeTextAggregation(t *testing.T) {
	h := pagetest.New()
	h.HTML = "<html><body><div id='root'></div></body></html>"
	h.SubFrames = []page.Frame{
		pagetest.StaticFrame{
			FrameURL: "https://example.test/embed",
			Body:     strings.Repeat("Frame content that actually carries the article. ", 15),
		},
	}
	p := New(Config{})

	res, err := p.Extract(context.Background(), h, classify.UltraComplexSPA)
	if err != nil {
		t.Fatal(err)
	}
	if res.Strategy != "iframe_text" {
		t.Fatalf("strategy: got %q", res.Strategy)
	}
}

func TestParseLenientJSON_StripsWrappers(t *testing.T) {
	raw := `<!--//--><![CDATA[//>{"summary":"short outline"}//--><!]]>`
	payload, err := parseLenientJSON(raw)
	if err != nil {
		t.Fatal(err)
	}
	if payload["summary"] != "short outline" {
		t.Fatalf("payload: %v", payload)
	}
}

func TestProjectPayload_Fields(t *testing.T) {
	text := projectPayload(map[string]any{
		"description": "What the <b>unit</b> covers",
		"subject":     "Mathematik",
		"topic":       "Integralrechnung",
		"attachments": []any{
			map[string]any{"name": "Arbeitsblatt", "tag": "pdf"},
		},
	})
	for _, want := range []string{
		"Description: What the unit covers",
		"Subject: Mathematik — Integralrechnung",
		"- Arbeitsblatt (pdf)",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("missing %q in:\n%s", want, text)
		}
	}
}

func TestAccumulator_KeepsEarliestLongest(t *testing.T) {
	acc := &accumulator{}
	acc.record(ok("first", "aaaa"))
	acc.record(ok("second", "aaaa")) // equal length must not displace
	acc.record(empty("third"))
	if acc.best.Strategy != "first" {
		t.Fatalf("best: got %q", acc.best.Strategy)
	}
	acc.record(ok("fourth", "aaaaa"))
	if acc.best.Strategy != "fourth" {
		t.Fatalf("best: got %q", acc.best.Strategy)
	}
}
