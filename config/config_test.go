package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Addr != ":8000" {
		t.Fatalf("addr: got %q", cfg.Server.Addr)
	}
	if cfg.Server.WriteTimeout != 5*time.Minute {
		t.Fatalf("write timeout: got %v", cfg.Server.WriteTimeout)
	}
	if cfg.Extraction.RequestTimeout != 90*time.Second {
		t.Fatalf("request timeout: got %v", cfg.Extraction.RequestTimeout)
	}
	if cfg.Extraction.NavigateTimeout != 30*time.Second {
		t.Fatalf("navigate timeout: got %v", cfg.Extraction.NavigateTimeout)
	}
	if cfg.Extraction.WaitShare != 0.6 {
		t.Fatalf("wait share: got %v", cfg.Extraction.WaitShare)
	}
	if cfg.Extraction.SubstantialChars != 500 || cfg.Extraction.FallbackFloor != 50 {
		t.Fatalf("thresholds: got %d/%d", cfg.Extraction.SubstantialChars, cfg.Extraction.FallbackFloor)
	}
	if cfg.Extraction.SPAThreshold != 2 || cfg.Extraction.UltraThreshold != 4 {
		t.Fatalf("tier thresholds: got %d/%d", cfg.Extraction.SPAThreshold, cfg.Extraction.UltraThreshold)
	}
	if cfg.Audit.BufferSize != 1000 || cfg.Audit.RetentionDays != 30 {
		t.Fatalf("audit defaults: got %d/%d", cfg.Audit.BufferSize, cfg.Audit.RetentionDays)
	}
	if cfg.Browser.MemoryLimit != 1<<30 {
		t.Fatalf("memory limit: got %d", cfg.Browser.MemoryLimit)
	}
}

func TestLoadFile(t *testing.T) {
	doc := `
server:
  addr: ":9090"
  shutdown_timeout: 10s
browser:
  remote: "ws://127.0.0.1:9222"
  stealth: true
extraction:
  request_timeout: 2m
  wait_share: 0.5
audit:
  path: "/tmp/events.db"
  retention_days: 7
proxies:
  - "proxy.internal:3128"
  - "none"
`
	path := filepath.Join(t.TempDir(), "webtextd.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Fatalf("addr: got %q", cfg.Server.Addr)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Fatalf("shutdown timeout: got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Browser.Remote != "ws://127.0.0.1:9222" || !cfg.Browser.Stealth {
		t.Fatalf("browser: got %+v", cfg.Browser)
	}
	if cfg.Extraction.RequestTimeout != 2*time.Minute {
		t.Fatalf("request timeout: got %v", cfg.Extraction.RequestTimeout)
	}
	if cfg.Extraction.WaitShare != 0.5 {
		t.Fatalf("wait share: got %v", cfg.Extraction.WaitShare)
	}
	// Unset fields still pick up defaults.
	if cfg.Extraction.SubstantialChars != 500 {
		t.Fatalf("substantial chars: got %d", cfg.Extraction.SubstantialChars)
	}
	if cfg.Audit.Path != "/tmp/events.db" || cfg.Audit.RetentionDays != 7 || cfg.Audit.BufferSize != 1000 {
		t.Fatalf("audit: got %+v", cfg.Audit)
	}
	// The no-proxy indicator is filtered out during normalization.
	if len(cfg.Proxies) != 1 || cfg.Proxies[0] != "proxy.internal:3128" {
		t.Fatalf("proxies: got %v", cfg.Proxies)
	}
}

func TestLoadFile_InvalidProxy(t *testing.T) {
	doc := "proxies:\n  - \"proxy.internal:notaport\"\n"
	path := filepath.Join(t.TempDir(), "webtextd.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFile(path)
	if err == nil {
		t.Fatal("expected error for malformed proxy")
	}
	if !strings.Contains(err.Error(), "config:") {
		t.Fatalf("error not wrapped: %v", err)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
