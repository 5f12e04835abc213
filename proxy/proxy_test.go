package proxy

import (
	"strings"
	"testing"
)

func TestNormalize_DropsNoProxyIndicators(t *testing.T) {
	got, err := Normalize([]string{"", "none", "NULL", "false", " direct ", "off", "10.0.0.1:8080"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "10.0.0.1:8080" {
		t.Fatalf("got %v", got)
	}
}

func TestNormalize_AllIndicatorsMeansDirect(t *testing.T) {
	got, err := Normalize([]string{"none", ""})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("got %v", got)
	}
}

func TestNormalize_RejectsMalformed(t *testing.T) {
	if _, err := Normalize([]string{"proxy-without-port"}); err == nil {
		t.Fatal("missing port accepted")
	}
	_, err := Normalize([]string{"host:notaport"})
	if err == nil {
		t.Fatal("non-numeric port accepted")
	}
	if !strings.Contains(err.Error(), "port must be numeric") {
		t.Fatalf("error: %v", err)
	}
	if _, err := Normalize([]string{":8080"}); err == nil {
		t.Fatal("empty host accepted")
	}
}

func TestRotation_EndsWithDirectFallback(t *testing.T) {
	r := NewRotation([]string{"a:1", "b:2", "c:3"})
	if r.Len() != 4 {
		t.Fatalf("len: got %d", r.Len())
	}

	seen := map[string]bool{}
	var last string
	for {
		entry, ok := r.Next()
		if !ok {
			break
		}
		seen[entry] = true
		last = entry
	}
	if last != "" {
		t.Fatalf("last entry: got %q, want direct fallback", last)
	}
	for _, want := range []string{"a:1", "b:2", "c:3", ""} {
		if !seen[want] {
			t.Fatalf("entry %q never yielded", want)
		}
	}
	if _, ok := r.Next(); ok {
		t.Fatal("rotation yielded past exhaustion")
	}
}

func TestRotation_EmptyPoolIsDirectOnly(t *testing.T) {
	r := NewRotation(nil)
	entry, ok := r.Next()
	if !ok || entry != "" {
		t.Fatalf("got %q, %v", entry, ok)
	}
	if _, ok := r.Next(); ok {
		t.Fatal("more than one attempt for an empty pool")
	}
}

func TestURL(t *testing.T) {
	if got := URL("10.0.0.1:8080"); got != "http://10.0.0.1:8080" {
		t.Fatalf("got %q", got)
	}
	if got := URL(""); got != "" {
		t.Fatalf("direct entry rendered as %q", got)
	}
}
