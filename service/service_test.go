package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hazyhaar/webtext/audit"
	"github.com/hazyhaar/webtext/dbopen"
	_ "modernc.org/sqlite"
)

func articlePage() string {
	var b strings.Builder
	b.WriteString("<html><head><title>Ridge Survey</title></head><body><article><h1>Ridge Survey</h1>")
	for i := 0; i < 8; i++ {
		fmt.Fprintf(&b, "<p>Survey paragraph %d covers the northern ridge in enough detail "+
			"that the readability pass treats it as genuine article content rather than "+
			"navigation chrome or boilerplate text from the page frame.</p>", i)
	}
	b.WriteString("</article></body></html>")
	return b.String()
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	db := dbopen.OpenMemory(t, dbopen.WithSchema(audit.Schema))
	log := audit.New(db, 16)
	t.Cleanup(func() { log.Close() })
	return New(Config{Audit: log, Version: "test"})
}

func TestExtract_Simple(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, articlePage())
	}))
	defer srv.Close()

	svc := newTestService(t)
	resp, err := svc.Extract(context.Background(), &Request{URL: srv.URL})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if resp.Reason != ReasonSuccess {
		t.Fatalf("reason: got %q (%s)", resp.Reason, resp.Message)
	}
	if resp.Status != http.StatusOK {
		t.Fatalf("status: got %d", resp.Status)
	}
	if resp.Mode != "simple" || resp.Version != "test" {
		t.Fatalf("mode/version: got %q/%q", resp.Mode, resp.Version)
	}
	if !strings.Contains(resp.Text, "northern ridge") {
		t.Fatalf("article text missing:\n%s", resp.Text)
	}
	if resp.Strategy == "" {
		t.Fatal("no strategy reported")
	}
	if resp.Lang != "en" {
		t.Fatalf("lang: got %q", resp.Lang)
	}
	if resp.ExtractionTime <= 0 {
		t.Fatalf("extraction time: got %v", resp.ExtractionTime)
	}
}

func TestExtract_SimpleMarkdownWithLinks(t *testing.T) {
	page := `<html><body><article><h1>Index</h1>` +
		`<p>A short index page linking to the <a href="/survey">survey report</a> and an ` +
		`<a href="https://other.test/archive">external archive</a> of older material kept elsewhere.</p>` +
		`</article></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	svc := newTestService(t)
	resp, err := svc.Extract(context.Background(), &Request{
		URL:          srv.URL,
		OutputFormat: "markdown",
		IncludeLinks: true,
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(resp.Text, "# Index") {
		t.Fatalf("markdown heading missing:\n%s", resp.Text)
	}
	if len(resp.Links) != 2 {
		t.Fatalf("links: got %+v", resp.Links)
	}
	if !resp.Links[0].Internal || resp.Links[1].Internal {
		t.Fatalf("link classification: %+v", resp.Links)
	}
}

func TestExtract_PDFWithoutConversion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		fmt.Fprint(w, "%PDF-1.4\nnot really a document")
	}))
	defer srv.Close()

	svc := newTestService(t)
	resp, err := svc.Extract(context.Background(), &Request{URL: srv.URL})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if resp.Reason != ReasonUnsupported {
		t.Fatalf("reason: got %q", resp.Reason)
	}
	if resp.Message == "" {
		t.Fatal("expected a hint about convert_files")
	}
}

func TestExtract_EmptyBodyIsNoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body></body></html>")
	}))
	defer srv.Close()

	svc := newTestService(t)
	resp, err := svc.Extract(context.Background(), &Request{URL: srv.URL})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if resp.Reason != ReasonNoContent {
		t.Fatalf("reason: got %q", resp.Reason)
	}
}

func TestExtract_TargetErrorStatusIsReported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	svc := newTestService(t)
	resp, err := svc.Extract(context.Background(), &Request{URL: srv.URL})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if resp.Status != http.StatusNotFound {
		t.Fatalf("status: got %d", resp.Status)
	}
}

func TestExtract_InvalidProxiesRejected(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Extract(context.Background(), &Request{
		URL:     "https://example.test/",
		Proxies: []string{"proxy.internal:notaport"},
	})
	if !errors.Is(err, ErrBadRequest) {
		t.Fatalf("got %v, want ErrBadRequest", err)
	}
}

func TestExtract_InvalidURLRejected(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Extract(context.Background(), &Request{URL: "ftp://example.test/x"})
	if !errors.Is(err, ErrBadRequest) {
		t.Fatalf("got %v, want ErrBadRequest", err)
	}
}

func TestExtract_BrowserUnconfigured(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Extract(context.Background(), &Request{
		URL:    "https://example.test/",
		Method: "browser",
	})
	if err == nil {
		t.Fatal("expected error when no browser is wired")
	}
	if errors.Is(err, ErrBadRequest) {
		t.Fatalf("misconfiguration is not a client error: %v", err)
	}
}

func TestExtract_FetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	addr := srv.URL
	srv.Close()

	svc := newTestService(t)
	_, err := svc.Extract(context.Background(), &Request{URL: addr, Timeout: 2})
	if err == nil {
		t.Fatal("expected fetch error against closed listener")
	}
	if !strings.Contains(err.Error(), "fetch") {
		t.Fatalf("got %v", err)
	}
}
