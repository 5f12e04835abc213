package service

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/webtext/kit"
)

// RegisterMCP registers the extraction tool on an MCP server.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "webtext_extract",
		Description: "Extract readable text from a web page, with optional browser rendering, format conversion and quality metrics.",
		InputSchema: inputSchema(map[string]any{
			"url":               map[string]any{"type": "string", "description": "URL to extract from"},
			"method":            map[string]any{"type": "string", "enum": []string{"simple", "browser"}, "description": "Fetch method, default simple"},
			"output_format":     map[string]any{"type": "string", "enum": []string{"text", "markdown", "html"}, "description": "Output rendering, default text"},
			"convert_files":     map[string]any{"type": "boolean", "description": "Extract from PDF payloads"},
			"include_links":     map[string]any{"type": "boolean", "description": "Include classified hyperlinks"},
			"timeout":           map[string]any{"type": "integer", "description": "Request timeout in seconds"},
			"calculate_quality": map[string]any{"type": "boolean", "description": "Include content quality metrics"},
		}, []string{"url"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		return s.Extract(ctx, req.(*Request))
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r Request
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{
			Request: &r,
			EnrichCtx: func(ctx context.Context) context.Context {
				return kit.WithTransport(ctx, "mcp")
			},
		}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}
