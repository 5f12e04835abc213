// Command webtextd is the web text extraction daemon.
//
// Usage:
//
//	webtextd -config webtextd.yaml
//	webtextd -addr :8000
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/webtext/audit"
	"github.com/hazyhaar/webtext/browser"
	"github.com/hazyhaar/webtext/classify"
	"github.com/hazyhaar/webtext/config"
	"github.com/hazyhaar/webtext/convert"
	"github.com/hazyhaar/webtext/dbopen"
	"github.com/hazyhaar/webtext/engine"
	"github.com/hazyhaar/webtext/errorpage"
	"github.com/hazyhaar/webtext/extract"
	"github.com/hazyhaar/webtext/mcpquic"
	"github.com/hazyhaar/webtext/service"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "", "path to webtextd.yaml config file")
	addr := flag.String("addr", "", "listen address, overrides config")
	logLevel := flag.String("log-level", env("LOG_LEVEL", "info"), "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *addr); err != nil {
		logger.Error("webtextd: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, addr string) error {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = config.Default()
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	var auditLog *audit.Log
	if cfg.Audit.Path != "" {
		db, err := dbopen.Open(cfg.Audit.Path,
			dbopen.WithMkdirAll(),
			dbopen.WithSchema(audit.Schema),
		)
		if err != nil {
			return fmt.Errorf("open audit db: %w", err)
		}
		defer db.Close()

		auditLog = audit.New(db, cfg.Audit.BufferSize, audit.WithLogger(logger))
		defer auditLog.Close()

		if cfg.Audit.RetentionDays > 0 {
			if n, err := auditLog.Cleanup(ctx, cfg.Audit.RetentionDays); err != nil {
				logger.Warn("webtextd: audit cleanup failed", "error", err)
			} else if n > 0 {
				logger.Info("webtextd: audit cleanup", "deleted", n)
			}
		}
	}

	mgr := browser.NewManager(browser.Config{
		RemoteURL:        cfg.Browser.Remote,
		MemoryLimit:      cfg.Browser.MemoryLimit,
		RecycleInterval:  cfg.Browser.RecycleInterval,
		ResourceBlocking: cfg.Browser.ResourceBlocking,
		Stealth:          cfg.Browser.Stealth,
		Logger:           logger,
	})
	if err := mgr.Start(ctx); err != nil {
		logger.Warn("webtextd: browser unavailable, browser method disabled", "error", err)
		mgr = nil
	} else {
		defer mgr.Close()
	}

	eng := engine.New(engine.Config{
		Classifier: classify.New(classify.Config{
			SPAThreshold:   cfg.Extraction.SPAThreshold,
			UltraThreshold: cfg.Extraction.UltraThreshold,
			Logger:         logger,
		}),
		Pipeline: extract.New(extract.Config{
			Substantial:   cfg.Extraction.SubstantialChars,
			FallbackFloor: cfg.Extraction.FallbackFloor,
			Logger:        logger,
		}),
		ErrorClassifier: errorpage.New(errorpage.Config{Logger: logger}),
		RequestTimeout:  cfg.Extraction.RequestTimeout,
		NavigateTimeout: cfg.Extraction.NavigateTimeout,
		WaitShare:       cfg.Extraction.WaitShare,
		Logger:          logger,
	})

	svc := service.New(service.Config{
		Engine:       eng,
		Browser:      mgr,
		Renderer:     convert.NewRenderer(logger),
		Audit:        auditLog,
		Proxies:      cfg.Proxies,
		FetchTimeout: cfg.Extraction.RequestTimeout,
		Version:      version,
		Logger:       logger,
	})

	// Optional MCP over QUIC.
	if quicAddr := env("MCP_QUIC_ADDR", ""); quicAddr != "" {
		mcpSrv := mcp.NewServer(&mcp.Implementation{
			Name:    "webtext",
			Version: version,
		}, nil)
		svc.RegisterMCP(mcpSrv)

		var tlsCfg *tls.Config
		certFile := env("TLS_CERT", "")
		keyFile := env("TLS_KEY", "")
		if certFile != "" && keyFile != "" {
			tlsCfg, err = mcpquic.ServerTLSConfig(certFile, keyFile)
		} else {
			tlsCfg, err = mcpquic.SelfSignedTLSConfig()
		}
		if err != nil {
			logger.Error("webtextd: MCP QUIC TLS", "error", err)
		} else {
			ql, qErr := mcpquic.NewListener(quicAddr, tlsCfg, mcpSrv, logger)
			if qErr != nil {
				logger.Error("webtextd: MCP QUIC listener", "error", qErr)
			} else {
				defer ql.Close()
				go func() {
					logger.Info("webtextd: MCP QUIC starting", "addr", quicAddr)
					if sErr := ql.Serve(ctx); sErr != nil && ctx.Err() == nil {
						logger.Error("webtextd: MCP QUIC", "error", sErr)
					}
				}()
			}
		}
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      service.NewRouter(svc),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("webtextd: listening", "addr", cfg.Server.Addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("webtextd: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
