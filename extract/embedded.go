package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/hazyhaar/webtext/page"
)

// Script tags that tend to carry structured payloads on app-shell pages.
var embeddedScriptPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<script[^>]*id="embedded-topic"[^>]*>(.*?)</script>`),
	regexp.MustCompile(`(?is)<script[^>]*type="(?:application/(?:ld\+)?json|json)"[^>]*>(.*?)</script>`),
	regexp.MustCompile(`(?is)<script[^>]*id="[^"]*(?:topic|data)[^"]*"[^>]*>(.*?)</script>`),
}

var (
	cdataWrappers = []string{`<!--//--><![CDATA[//>`, `//--><!]]>`, `<![CDATA[`, `]]>`, `<!--`, `-->`}
	tagStripper   = regexp.MustCompile(`<[^>]*>`)
)

// embeddedJSONStrategy mines structured JSON payloads out of script tags:
// strip comment/CDATA wrappers, parse leniently, and project well-known
// fields into plain text.
func (p *Pipeline) embeddedJSONStrategy() Strategy {
	return Strategy{
		Name: "embedded_json",
		Run: func(ctx context.Context, h page.Handle) (string, error) {
			html, err := h.Content(ctx)
			if err != nil {
				return "", err
			}

			for _, pat := range embeddedScriptPatterns {
				for _, match := range pat.FindAllStringSubmatch(html, -1) {
					payload, perr := parseLenientJSON(match[1])
					if perr != nil {
						p.cfg.Logger.Debug("extract: embedded payload rejected", "error", perr)
						continue
					}
					if text := projectPayload(payload); text != "" {
						return text, nil
					}
				}
			}
			return "", nil
		},
	}
}

// parseLenientJSON tolerates the wrappers CMSes put around inline JSON.
func parseLenientJSON(raw string) (map[string]any, error) {
	for _, w := range cdataWrappers {
		raw = strings.ReplaceAll(raw, w, "")
	}

	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no object literal found")
	}
	raw = strings.TrimSpace(raw[start : end+1])

	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// projectPayload renders the well-known descriptive fields of a payload as
// labelled plain text.
func projectPayload(payload map[string]any) string {
	var sb strings.Builder

	appendField := func(label, value string) {
		value = strings.TrimSpace(value)
		if value == "" {
			return
		}
		fmt.Fprintf(&sb, "%s: %s\n", label, value)
	}

	if desc, _ := payload["description"].(string); desc != "" {
		appendField("Description", squeezeSpace(tagStripper.ReplaceAllString(desc, " ")))
	}
	if summary, _ := payload["summary"].(string); summary != "" {
		appendField("Summary", summary)
	}
	if keywords, _ := payload["keywords"].(string); keywords != "" {
		appendField("Keywords", keywords)
	}
	subject, _ := payload["subject"].(string)
	topic, _ := payload["topic"].(string)
	if subject != "" && topic != "" {
		appendField("Subject", subject+" — "+topic)
	} else if subject != "" {
		appendField("Subject", subject)
	}
	if level, _ := payload["educationalLevel"].(string); level != "" {
		appendField("Level", level)
	}
	if ages, _ := payload["typicalAgeRange"].(string); ages != "" {
		appendField("Age range", ages)
	}

	if attachments, _ := payload["attachments"].([]any); len(attachments) > 0 {
		var lines []string
		for _, a := range attachments {
			entry, _ := a.(map[string]any)
			name, _ := entry["name"].(string)
			if name == "" {
				continue
			}
			if tag, _ := entry["tag"].(string); tag != "" {
				name += " (" + tag + ")"
			}
			lines = append(lines, "- "+name)
		}
		if len(lines) > 0 {
			sb.WriteString("Resources:\n")
			sb.WriteString(strings.Join(lines, "\n"))
			sb.WriteByte('\n')
		}
	}

	return strings.TrimSpace(sb.String())
}
