package mcpquic

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"strings"
	"testing"
)

func TestMagicBytes_Roundtrip(t *testing.T) {
	var buf bytes.Buffer
	if err := SendMagicBytes(&buf); err != nil {
		t.Fatal(err)
	}
	if buf.String() != MagicBytesMCP {
		t.Fatalf("preamble: got %q, want %q", buf.String(), MagicBytesMCP)
	}
	if err := ValidateMagicBytes(&buf); err != nil {
		t.Fatal(err)
	}
}

func TestValidateMagicBytes_Rejects(t *testing.T) {
	err := ValidateMagicBytes(bytes.NewReader([]byte("HTTP")))
	if !errors.Is(err, ErrInvalidMagicBytes) {
		t.Fatalf("want ErrInvalidMagicBytes, got %v", err)
	}

	if err := ValidateMagicBytes(bytes.NewReader([]byte("MC"))); err == nil {
		t.Fatal("expected error for truncated preamble")
	}
}

func TestProductionQUICConfig(t *testing.T) {
	cfg := ProductionQUICConfig()
	if cfg.MaxIdleTimeout != DefaultIdleTimeout {
		t.Fatalf("idle timeout: got %v", cfg.MaxIdleTimeout)
	}
	if cfg.KeepAlivePeriod != DefaultKeepAlive {
		t.Fatalf("keepalive: got %v", cfg.KeepAlivePeriod)
	}
	if cfg.Allow0RTT {
		t.Fatal("0-RTT must stay disabled")
	}
}

func TestSelfSignedTLSConfig(t *testing.T) {
	cfg, err := SelfSignedTLSConfig()
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Certificates) != 1 {
		t.Fatalf("certificates: got %d", len(cfg.Certificates))
	}
	if cfg.MinVersion != tls.VersionTLS13 {
		t.Fatalf("min version: got %x", cfg.MinVersion)
	}
	found := false
	for _, p := range cfg.NextProtos {
		if p == ALPNProtocolMCP {
			found = true
		}
	}
	if !found {
		t.Fatalf("ALPN %q missing from %v", ALPNProtocolMCP, cfg.NextProtos)
	}
}

func TestClientTLSConfig(t *testing.T) {
	insecure := ClientTLSConfig(true)
	if !insecure.InsecureSkipVerify {
		t.Fatal("expected InsecureSkipVerify")
	}
	secure := ClientTLSConfig(false)
	if secure.InsecureSkipVerify {
		t.Fatal("default must verify the server certificate")
	}
	if secure.MinVersion != tls.VersionTLS13 {
		t.Fatalf("min version: got %x", secure.MinVersion)
	}
}

func TestH3TLSConfig_DoesNotMutateBase(t *testing.T) {
	base, err := SelfSignedTLSConfig()
	if err != nil {
		t.Fatal(err)
	}
	h3 := H3TLSConfig(base)
	if len(h3.NextProtos) != 1 || h3.NextProtos[0] != "h3" {
		t.Fatalf("ALPN: got %v, want [h3]", h3.NextProtos)
	}
	if base.NextProtos[0] == "h3" {
		t.Fatal("base config was mutated")
	}
	if len(h3.Certificates) != len(base.Certificates) {
		t.Fatal("certificates not carried over")
	}
}

func TestConnectionError(t *testing.T) {
	inner := errors.New("timeout")
	ce := &ConnectionError{
		RemoteAddr: "127.0.0.1:8443",
		Code:       ConnErrorProtocolViolation,
		Err:        inner,
	}
	msg := ce.Error()
	if !strings.Contains(msg, "127.0.0.1:8443") || !strings.Contains(msg, "0x03") {
		t.Fatalf("error message incomplete: %s", msg)
	}
	if !errors.Is(ce, inner) {
		t.Fatal("Unwrap should expose the inner error")
	}
}

func TestClient_NotConnected(t *testing.T) {
	c := NewClient("localhost:1234", nil)
	if c.tlsCfg == nil || c.tlsCfg.InsecureSkipVerify {
		t.Fatal("default client TLS must verify the server certificate")
	}
	ctx := context.Background()
	if _, err := c.ListTools(ctx); !errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("ListTools: got %v", err)
	}
	if _, err := c.CallTool(ctx, "webtext_extract", nil); !errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("CallTool: got %v", err)
	}
	if err := c.Ping(ctx); !errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("Ping: got %v", err)
	}
}
