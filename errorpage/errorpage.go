// Package errorpage labels extraction outcomes as error, blocked, or
// challenge pages without mutating their text. The classifier is purely
// advisory: a short, clearly-labelled error page with real text is still a
// valid, non-empty outcome.
package errorpage

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hazyhaar/webtext/page"
	"gopkg.in/yaml.v3"
)

//go:embed phrases.yaml
var defaultPhrases []byte

// Tables hold the phrase and selector lists, checked in priority order.
type Tables struct {
	TitleTokens      []string `yaml:"title_tokens"`
	HTTPPhrases      []string `yaml:"http_phrases"`
	ChallengePhrases []string `yaml:"challenge_phrases"`
	ShortContent     struct {
		MaxLen int      `yaml:"max_len"`
		Tokens []string `yaml:"tokens"`
	} `yaml:"short_content"`
	DOMSelectors []string `yaml:"dom_selectors"`
}

// LoadTables parses phrase tables from YAML.
func LoadTables(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("errorpage: parse phrase tables: %w", err)
	}
	if t.ShortContent.MaxLen <= 0 {
		t.ShortContent.MaxLen = 100
	}
	return &t, nil
}

// DefaultTables returns the embedded phrase tables.
func DefaultTables() *Tables {
	t, err := LoadTables(defaultPhrases)
	if err != nil {
		panic(err)
	}
	return t
}

// Verdict is the advisory label for one (page, text) snapshot.
type Verdict struct {
	IsErrorPage bool
	// ErrorType names the matched signal, e.g. "error_title_404" or
	// "security_challenge_cloudflare". Empty when IsErrorPage is false.
	ErrorType string
}

// Config tunes the classifier.
type Config struct {
	Tables *Tables
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Tables == nil {
		c.Tables = DefaultTables()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Classifier flags error and challenge pages. Idempotent for a given
// (page, text) snapshot; safe for concurrent use.
type Classifier struct {
	cfg Config
}

// New creates a Classifier.
func New(cfg Config) *Classifier {
	cfg.defaults()
	return &Classifier{cfg: cfg}
}

// Classify inspects the winning text and page metadata. Probe errors make
// the corresponding signal absent; only handle faults propagate.
func (c *Classifier) Classify(ctx context.Context, h page.Handle, text string) (Verdict, error) {
	t := c.cfg.Tables

	title, err := h.Title(ctx)
	if err != nil {
		if page.IsFatal(err) {
			return Verdict{}, err
		}
		c.cfg.Logger.Debug("errorpage: title probe failed", "url", h.URL(), "error", err)
		title = ""
	}

	// 1. Title tokens.
	titleLower := strings.ToLower(title)
	for _, tok := range t.TitleTokens {
		if strings.Contains(titleLower, tok) {
			return verdict("error_title_" + label(tok)), nil
		}
	}

	textLower := strings.ToLower(text)
	if text != "" {
		// 2. HTTP error phrases.
		for _, phrase := range t.HTTPPhrases {
			if strings.Contains(textLower, phrase) {
				return verdict("http_error_" + label(phrase)), nil
			}
		}

		// 3. Bot-challenge and security-check phrases.
		for _, phrase := range t.ChallengePhrases {
			if strings.Contains(textLower, phrase) {
				return verdict("security_challenge_" + label(phrase)), nil
			}
		}

		// 4. Suspiciously short text carrying a minimal error token.
		if len(strings.TrimSpace(text)) < t.ShortContent.MaxLen {
			for _, tok := range t.ShortContent.Tokens {
				if strings.Contains(textLower, tok) {
					return verdict("short_error_" + label(tok)), nil
				}
			}
		}
	}

	// 5. Recognizable error containers in the DOM.
	sel, err := c.domProbe(ctx, h)
	if err != nil {
		return Verdict{}, err
	}
	if sel != "" {
		return verdict("dom_error_" + label(strings.TrimLeft(sel, ".#"))), nil
	}

	return Verdict{}, nil
}

func (c *Classifier) domProbe(ctx context.Context, h page.Handle) (string, error) {
	sels, _ := json.Marshal(c.cfg.Tables.DOMSelectors)
	js := fmt.Sprintf(`() => {
		const sels = %s;
		for (const s of sels) {
			try {
				if (document.querySelector(s)) return s;
			} catch (e) {}
		}
		return "";
	}`, sels)

	var matched string
	if err := page.EvalInto(ctx, h, js, &matched); err != nil {
		if page.IsFatal(err) {
			return "", err
		}
		c.cfg.Logger.Debug("errorpage: dom probe failed", "url", h.URL(), "error", err)
		return "", nil
	}
	return matched, nil
}

func verdict(errorType string) Verdict {
	return Verdict{IsErrorPage: true, ErrorType: errorType}
}

func label(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), " ", "_")
}
